// Package retrieval serves instructional-design guidance for the rewrite
// agent from a YAML knowledge base ranked by TF-IDF similarity.
package retrieval

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed knowledge.yaml
var builtinKnowledge []byte

// ErrNoMatch is returned when no entry shares a term with the query.
var ErrNoMatch = errors.New("no matching guidance")

type Entry struct {
	Title     string   `yaml:"title"`
	Framework string   `yaml:"framework"`
	Text      string   `yaml:"text"`
	Tags      []string `yaml:"tags"`
}

type knowledgeFile struct {
	Entries []Entry `yaml:"entries"`
}

// Store ranks knowledge entries against free-text queries. It is safe for
// concurrent use once built.
type Store struct {
	entries []Entry
	index   *tfidfIndex
	topK    int
}

// NewStore indexes entries. topK below 1 means 3.
func NewStore(entries []Entry, topK int) *Store {
	if topK < 1 {
		topK = 3
	}
	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = strings.Join(append([]string{e.Title, e.Framework, e.Text}, e.Tags...), " ")
	}
	return &Store{entries: entries, index: buildTFIDFIndex(texts), topK: topK}
}

// Parse reads a knowledge base document.
func Parse(data []byte) ([]Entry, error) {
	var kf knowledgeFile
	if err := yaml.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parsing knowledge base: %w", err)
	}
	var out []Entry
	for _, e := range kf.Entries {
		if strings.TrimSpace(e.Text) == "" {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Load reads the knowledge base at path; an empty path selects the
// built-in one.
func Load(path string, topK int) (*Store, error) {
	data := builtinKnowledge
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading knowledge base %s: %w", path, err)
		}
		data = b
	}
	entries, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return NewStore(entries, topK), nil
}

// Len returns the number of indexed entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// Retrieve returns the best-matching entries formatted as a research brief.
func (s *Store) Retrieve(ctx context.Context, query string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	hits := s.index.topKIndices(query, s.topK)
	if len(hits) == 0 {
		return "", ErrNoMatch
	}
	var b strings.Builder
	for i, idx := range hits {
		if i > 0 {
			b.WriteString("\n")
		}
		e := s.entries[idx]
		fmt.Fprintf(&b, "- %s (%s): %s", e.Title, e.Framework, strings.TrimSpace(e.Text))
	}
	return b.String(), nil
}
