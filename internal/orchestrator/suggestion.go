package orchestrator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Score is a clarity score. Models answer with a number, a numeric string,
// or "N/A"; exempt placeholders always carry "N/A".
type Score string

const ScoreNA Score = "N/A"

func (s *Score) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*s = ""
		return nil
	}
	var asNumber float64
	if err := json.Unmarshal(data, &asNumber); err == nil {
		*s = Score(strconv.FormatFloat(asNumber, 'f', -1, 64))
		return nil
	}
	var asString string
	if err := json.Unmarshal(data, &asString); err != nil {
		return fmt.Errorf("clarity_score: %w", err)
	}
	*s = Score(strings.TrimSpace(asString))
	return nil
}

func (s Score) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseFloat(string(s), 64); err == nil {
		return []byte(strconv.FormatFloat(n, 'f', -1, 64)), nil
	}
	return json.Marshal(string(s))
}

type Option struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

type Remediation struct {
	OptionA Option `json:"option_a"`
	OptionB Option `json:"option_b"`
}

// Suggestion is the per-slide outcome of the rewrite stage.
type Suggestion struct {
	SlideNumber    int          `json:"slide_number"`
	ClarityScore   Score        `json:"clarity_score"`
	ToneAudit      string       `json:"tone_audit"`
	SuggestedNotes *string      `json:"suggested_notes"`
	Remediation    *Remediation `json:"remediation,omitempty"`
	Exempt         bool         `json:"exempt,omitempty"`
}

const exemptToneAudit = "Slide marked as Exempt in settings."

func exemptPlaceholder(number int) Suggestion {
	return Suggestion{
		SlideNumber:  number,
		ClarityScore: ScoreNA,
		ToneAudit:    exemptToneAudit,
		Exempt:       true,
	}
}

var (
	fencePattern   = regexp.MustCompile("```json\\s*|```")
	controlPattern = regexp.MustCompile(`[\x00-\x09\x0B\x0C\x0E-\x1F]`)
	arrayPattern   = regexp.MustCompile(`(?s)\[.*\]`)
	objectPattern  = regexp.MustCompile(`(?s)\{.*\}`)
)

var errEmptyResponse = errors.New("empty model response")

// parseSuggestions cleans a model response and decodes it. A bare object is
// treated as a one-element list. When the whole text does not decode, the
// outermost array (or object) found in it is tried instead.
func parseSuggestions(text string) ([]Suggestion, error) {
	clean := fencePattern.ReplaceAllString(text, "")
	clean = controlPattern.ReplaceAllString(clean, "")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return nil, errEmptyResponse
	}
	out, err := decodeSuggestions(clean)
	if err == nil {
		return out, nil
	}
	for _, p := range []*regexp.Regexp{arrayPattern, objectPattern} {
		if m := p.FindString(clean); m != "" {
			if out, mErr := decodeSuggestions(m); mErr == nil {
				return out, nil
			}
		}
	}
	return nil, fmt.Errorf("parsing rewrite response: %w (response: %s)", err, truncate(clean, 200))
}

func decodeSuggestions(text string) ([]Suggestion, error) {
	var list []Suggestion
	if err := json.Unmarshal([]byte(text), &list); err == nil {
		return list, nil
	}
	var one Suggestion
	if err := json.Unmarshal([]byte(text), &one); err != nil {
		return nil, err
	}
	return []Suggestion{one}, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
