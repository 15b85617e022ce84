package trainset

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/ports"
)

// Builder mines input-only training examples from a web search backend.
// Each query becomes one example with a "context" field built from a
// randomized number of search hits and a "question" field holding the
// query itself.
type Builder struct {
	search     ports.SearchService
	maxResults int
	delay      time.Duration
	rng        *rand.Rand
}

// BuilderOption configures a Builder
type BuilderOption func(*Builder)

// WithMaxResults caps the per-query result count (minimum stays 1)
func WithMaxResults(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.maxResults = n
		}
	}
}

// WithDelay sets the pause between queries to stay polite to the
// search backend.
func WithDelay(d time.Duration) BuilderOption {
	return func(b *Builder) {
		b.delay = d
	}
}

// WithSeed makes the per-query result counts reproducible
func WithSeed(seed int64) BuilderOption {
	return func(b *Builder) {
		b.rng = rand.New(rand.NewSource(seed))
	}
}

// NewBuilder creates a trainset builder backed by a search service
func NewBuilder(search ports.SearchService, opts ...BuilderOption) *Builder {
	b := &Builder{
		search:     search,
		maxResults: 10,
		delay:      time.Second,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build turns queries into examples with "context" and "question" input
// fields. Queries whose search fails are skipped with a log line rather
// than failing the batch.
func (b *Builder) Build(ctx context.Context, queries []string) ([]*Example, error) {
	examples := make([]*Example, 0, len(queries))

	for i, query := range queries {
		if i > 0 && b.delay > 0 {
			select {
			case <-ctx.Done():
				return examples, ctx.Err()
			case <-time.After(b.delay):
			}
		}

		// Vary the context size so the optimizer sees both sparse
		// and crowded retrievals.
		count := 1 + b.rng.Intn(b.maxResults)
		results, err := b.search.Search(ctx, query, count)
		if err != nil {
			log.Printf("trainset builder: search failed for %q: %v", query, err)
			continue
		}
		if len(results) == 0 {
			log.Printf("trainset builder: no results for %q", query)
			continue
		}

		example := New()
		if err := example.Set("context", FormatContext(results)); err != nil {
			return nil, err
		}
		if err := example.Set("question", query); err != nil {
			return nil, err
		}
		if err := example.SetInputs("context", "question"); err != nil {
			return nil, err
		}
		examples = append(examples, example)
	}

	return examples, nil
}

// FormatContext renders search results as a numbered source list. The
// [[n]] markers are the citation ids answers are expected to reference.
func FormatContext(results []*ports.SearchResult) string {
	var sb strings.Builder
	for i, result := range results {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[[%d]] %s\n%s", i+1, result.Title, result.URL)
		if result.Content != "" {
			sb.WriteString("\n")
			sb.WriteString(result.Content)
		} else if result.Snippet != "" {
			sb.WriteString("\n")
			sb.WriteString(result.Snippet)
		}
	}
	return sb.String()
}

// LoadQueries reads a JSONL file of {"query": "..."} records
func LoadQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrTrainsetNotFound, path)
		}
		return nil, fmt.Errorf("failed to open queries file: %w", err)
	}
	defer f.Close()

	var queries []string
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}

		var record struct {
			Query string `json:"query"`
		}
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, &ParseError{Path: path, Line: line, Err: err}
		}
		if record.Query == "" {
			return nil, &ParseError{Path: path, Line: line, Err: fmt.Errorf("%w: empty query", domain.ErrInvalidInput)}
		}
		queries = append(queries, record.Query)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read queries file: %w", err)
	}

	return queries, nil
}
