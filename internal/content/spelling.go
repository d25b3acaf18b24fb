package content

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode"

	"slideaudit/internal/domain"
)

// SystemWordList is tried when no dictionary path is configured.
const SystemWordList = "/usr/share/dict/words"

const (
	minSpellWordLen  = 4
	maxReportedWords = 5
)

// Dictionary answers whether a lowercased word is known.
type Dictionary interface {
	Known(word string) bool
}

// WordList is an in-memory set of lowercased words.
type WordList map[string]struct{}

func (w WordList) Known(word string) bool {
	_, ok := w[strings.ToLower(word)]
	return ok
}

// ReadWordList reads one word per line; blank lines and '#' comments are skipped.
func ReadWordList(r io.Reader) (WordList, error) {
	words := make(WordList)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words[strings.ToLower(line)] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read word list: %w", err)
	}
	return words, nil
}

// LoadWordList opens path, or the system word list when path is empty.
func LoadWordList(path string) (WordList, error) {
	if path == "" {
		path = SystemWordList
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dictionary: %w", err)
	}
	defer f.Close()
	return ReadWordList(f)
}

type Speller struct {
	dict  Dictionary
	allow map[string]bool
}

func NewSpeller(dict Dictionary, allowList []string) *Speller {
	allow := make(map[string]bool, len(allowList))
	for _, w := range allowList {
		allow[strings.ToLower(strings.TrimSpace(w))] = true
	}
	return &Speller{dict: dict, allow: allow}
}

var (
	urlOrEmailRe = regexp.MustCompile(`http\S+|www\.\S+|[\w.-]+@[\w.-]+`)
	camelRe      = regexp.MustCompile(`(\p{Ll})(\p{Lu})`)
	dotCapRe     = regexp.MustCompile(`(\.)(\p{Lu})`)
	separatorRe  = regexp.MustCompile(`[-_/]`)
	nonWordRe    = regexp.MustCompile(`[^\p{L}\p{N}_\s']`)
)

// candidates normalizes text and returns the words worth checking: URLs
// and emails removed, camelCase split, no digits, no acronyms, 4+ letters.
func candidates(text string) []string {
	t := urlOrEmailRe.ReplaceAllString(text, "")
	t = strings.NewReplacer("’", "'", "‘", "'").Replace(t)
	t = camelRe.ReplaceAllString(t, "$1 $2")
	t = dotCapRe.ReplaceAllString(t, "$1 $2")
	t = separatorRe.ReplaceAllString(t, " ")
	t = nonWordRe.ReplaceAllString(t, "")

	var out []string
	for _, w := range strings.Fields(t) {
		w = strings.Trim(w, "'")
		if w == "" || strings.IndexFunc(w, unicode.IsDigit) >= 0 {
			continue
		}
		if len([]rune(w)) > 1 && isAllUpper(w) {
			continue
		}
		if len([]rune(w)) >= minSpellWordLen {
			out = append(out, w)
		}
	}
	return out
}

func isAllUpper(w string) bool {
	hasLetter := false
	for _, r := range w {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

func (s *Speller) known(word string) bool {
	lower := strings.ToLower(word)
	if s.allow[lower] || s.dict.Known(lower) {
		return true
	}
	if strings.Contains(lower, "'") {
		base := strings.TrimSuffix(lower, "'s")
		if s.dict.Known(base) || s.dict.Known(strings.ReplaceAll(lower, "'", "")) {
			return true
		}
	}
	return false
}

// Unknown returns the distinct unknown words in order of first appearance.
func (s *Speller) Unknown(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range candidates(text) {
		key := strings.ToLower(w)
		if seen[key] {
			continue
		}
		seen[key] = true
		if !s.known(w) {
			out = append(out, w)
		}
	}
	return out
}

// Check warns about up to five unknown words.
func (s *Speller) Check(text, shapeName string, slideNum int) []domain.Issue {
	if len(text) < 3 {
		return nil
	}
	unknown := s.Unknown(text)
	if len(unknown) == 0 {
		return nil
	}
	if len(unknown) > maxReportedWords {
		unknown = unknown[:maxReportedWords]
	}
	return []domain.Issue{{
		Slide:     slideNum,
		Check:     domain.CheckSpelling,
		ShapeName: shapeName,
		Severity:  domain.SeverityWarning,
		Details:   fmt.Sprintf("Potential typos found: %s...", strings.Join(unknown, ", ")),
	}}
}
