package llm

import "time"

// Usage is the token accounting for one or more provider calls.
type Usage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

func (u Usage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}

func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheCreationInputTokens += other.CacheCreationInputTokens
	u.CacheReadInputTokens += other.CacheReadInputTokens
}

// Call status values written to the token ledger.
const (
	StatusSuccess = "SUCCESS"
	StatusError   = "ERROR"
)

// Call is one agent invocation as recorded in the token ledger.
type Call struct {
	At       time.Time
	Role     Role
	Provider string
	Model    string
	Usage    Usage
	Latency  time.Duration
	Status   string
	Error    string
}
