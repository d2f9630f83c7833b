// Package catalog loads quiz questions from a YAML document, the Go
// analogue of original_source/backend/helper/helper.py's load_questions,
// which calls safe_load on a generated quiz file. Parsing uses
// gopkg.in/yaml.v3, generalized here to decode from any io.Reader rather
// than a fixed on-disk path, so it can be fed either a local file or the
// body of a generator response.
package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"quizrunner/internal/model"
)

// document mirrors the quiz YAML file's top-level shape:
//
//	questions:
//	  - question: "..."
//	    options: {a: "...", b: "..."}
//	    answer: "a"
type document struct {
	Questions []model.Question `yaml:"questions"`
}

// Parse decodes a quiz document from r.
func Parse(r io.Reader) ([]model.Question, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	return doc.Questions, nil
}

// Generator produces a quiz for a given topic prompt, generalizing
// generate_questions from the Python original into a pluggable provider
// interface.
type Generator interface {
	Generate(ctx context.Context, prompt string) ([]model.Question, error)
}

// HTTPGenerator calls an HTTP endpoint that returns a YAML quiz document in
// its response body, and parses it with Parse.
type HTTPGenerator struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPGenerator returns a Generator with a sane default client timeout.
func NewHTTPGenerator(baseURL string) *HTTPGenerator {
	return &HTTPGenerator{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (g *HTTPGenerator) Generate(ctx context.Context, prompt string) ([]model.Question, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL,
		strings.NewReader(fmt.Sprintf("prompt=%s", prompt)))
	if err != nil {
		return nil, fmt.Errorf("catalog: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog: provider returned status %d", resp.StatusCode)
	}

	return Parse(resp.Body)
}
