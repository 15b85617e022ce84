package trainset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain"
)

// maxLineBytes bounds a single JSONL record; search-built contexts can
// carry several pages of converted markdown.
const maxLineBytes = 4 * 1024 * 1024

// ParseError reports a malformed trainset record with its 1-based line
// number.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Save writes the examples to path as JSONL, one example per line with
// fields in their insertion order. The file is written atomically via a
// temp file rename.
func Save(path string, examples []*Example) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create trainset directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for i, example := range examples {
		data, err := json.Marshal(example)
		if err != nil {
			tmp.Close()
			return fmt.Errorf("failed to encode example %d: %w", i, err)
		}
		if _, err := w.Write(data); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write example %d: %w", i, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write example %d: %w", i, err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush trainset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace trainset file: %w", err)
	}
	return nil
}

// Load reads a JSONL trainset from path and marks inputKeys as the
// input fields of every example. Blank lines are skipped; a malformed
// line fails the whole load with a ParseError naming the line.
func Load(path string, inputKeys ...string) ([]*Example, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrTrainsetNotFound, path)
		}
		return nil, fmt.Errorf("failed to open trainset: %w", err)
	}
	defer f.Close()

	var examples []*Example
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}

		example, err := parseRecord(data)
		if err != nil {
			return nil, &ParseError{Path: path, Line: line, Err: err}
		}
		if len(inputKeys) > 0 {
			if err := example.SetInputs(inputKeys...); err != nil {
				return nil, &ParseError{Path: path, Line: line, Err: err}
			}
		}
		examples = append(examples, example)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trainset: %w", err)
	}

	return examples, nil
}

// parseRecord decodes one JSONL object with a token walk so field order
// survives the round trip.
func parseRecord(data []byte) (*Example, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedExample, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: record is not a JSON object", domain.ErrMalformedExample)
	}

	example := New()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformedExample, err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: non-string field name", domain.ErrMalformedExample)
		}
		if _, exists := example.Get(key); exists {
			return nil, fmt.Errorf("%w: duplicate field %q", domain.ErrMalformedExample, key)
		}

		valTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformedExample, err)
		}

		switch v := valTok.(type) {
		case string:
			err = example.Set(key, v)
		case bool:
			err = example.Set(key, v)
		case json.Number:
			var f float64
			if f, err = v.Float64(); err == nil {
				err = example.Set(key, f)
			}
		case json.Delim:
			return nil, fmt.Errorf("%w: field %q has nested value", domain.ErrUnsupportedValue, key)
		case nil:
			return nil, fmt.Errorf("%w: field %q is null", domain.ErrUnsupportedValue, key)
		default:
			return nil, fmt.Errorf("%w: field %q has type %T", domain.ErrUnsupportedValue, key, valTok)
		}
		if err != nil {
			return nil, err
		}
	}

	// consume the closing brace, then require end of input
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedExample, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing content after record", domain.ErrMalformedExample)
	}

	return example, nil
}
