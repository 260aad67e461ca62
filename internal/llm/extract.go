package llm

import (
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
)

// DefaultResultPaths lists where the known providers put their completion text,
// highest priority first. The final "." accepts a result that is already a string.
var DefaultResultPaths = []string{
	".response.candidates[0].content.parts[0].text",
	".candidates[0].content.parts[0].text",
	".output[0].content[0].text",
	".outputText",
	".text",
	".choices[0].message.content",
	".Choices[0].Content",
	".",
}

type strategy struct {
	path  string
	query *gojq.Query
}

// Extractor pulls completion text out of whatever a Backend returned.
type Extractor struct {
	strategies []strategy
}

func NewExtractor(paths ...string) (*Extractor, error) {
	e := &Extractor{strategies: make([]strategy, 0, len(paths))}
	for _, p := range paths {
		q, err := gojq.Parse(p)
		if err != nil {
			return nil, fmt.Errorf("parse result path %q: %w", p, err)
		}
		e.strategies = append(e.strategies, strategy{path: p, query: q})
	}
	return e, nil
}

var defaultExtractor = mustExtractor(DefaultResultPaths...)

func mustExtractor(paths ...string) *Extractor {
	e, err := NewExtractor(paths...)
	if err != nil {
		panic(err)
	}
	return e
}

// Extract uses DefaultResultPaths.
func Extract(raw any) (string, bool) {
	return defaultExtractor.Extract(raw)
}

// Extract returns the first non-empty string found along the configured paths.
// A result that matches none of them yields ("", false).
func (e *Extractor) Extract(raw any) (string, bool) {
	v, ok := normalize(raw)
	if !ok {
		return "", false
	}
	for _, s := range e.strategies {
		if text, ok := runPath(s.query, v); ok {
			return text, true
		}
	}
	return "", false
}

func runPath(q *gojq.Query, v any) (string, bool) {
	iter := q.Run(v)
	out, ok := iter.Next()
	if !ok {
		return "", false
	}
	// type errors (indexing a string, etc.) come back as values
	if _, isErr := out.(error); isErr {
		return "", false
	}
	text, isStr := out.(string)
	if !isStr || text == "" {
		return "", false
	}
	return text, true
}

// normalize turns SDK structs and hand-built maps into the plain JSON tree gojq expects.
func normalize(raw any) (any, bool) {
	switch v := raw.(type) {
	case nil:
		return nil, false
	case string:
		return v, true
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, false
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, false
	}
	if out == nil {
		return nil, false
	}
	return out, true
}
