// Package trainset stores optimization training examples as JSONL files.
// Each example is an ordered mapping from field name to a string, number
// or boolean value, with a subset of the fields marked as program inputs.
package trainset

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain"
)

// Example is one training record. Field order is preserved from
// insertion through serialization, so shuffled files stay diffable and
// prompts render fields in a stable order.
type Example struct {
	names  []string
	values map[string]any
	inputs map[string]struct{}
}

// New creates an empty example
func New() *Example {
	return &Example{
		values: make(map[string]any),
		inputs: make(map[string]struct{}),
	}
}

// Set stores a field value, keeping insertion order. Setting an existing
// field overwrites the value but keeps its original position. Values are
// restricted to strings, booleans and numbers; numbers are normalized
// to float64.
func (e *Example) Set(name string, value any) error {
	if name == "" {
		return fmt.Errorf("%w: empty field name", domain.ErrInvalidInput)
	}

	normalized, err := normalizeValue(value)
	if err != nil {
		return fmt.Errorf("field %q: %w", name, err)
	}

	if _, exists := e.values[name]; !exists {
		e.names = append(e.names, name)
	}
	e.values[name] = normalized
	return nil
}

func normalizeValue(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		return v, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return nil, fmt.Errorf("%w: %T", domain.ErrUnsupportedValue, value)
	}
}

// Get returns a field value and whether it exists
func (e *Example) Get(name string) (any, bool) {
	v, ok := e.values[name]
	return v, ok
}

// GetString returns a string field, or "" if absent or not a string
func (e *Example) GetString(name string) string {
	if v, ok := e.values[name].(string); ok {
		return v
	}
	return ""
}

// Names returns the field names in insertion order
func (e *Example) Names() []string {
	out := make([]string, len(e.names))
	copy(out, e.names)
	return out
}

// Len returns the number of fields
func (e *Example) Len() int {
	return len(e.names)
}

// SetInputs marks the named fields as program inputs. Every name must
// refer to an existing field.
func (e *Example) SetInputs(names ...string) error {
	for _, name := range names {
		if _, ok := e.values[name]; !ok {
			return fmt.Errorf("%w: %q", domain.ErrUnknownInputField, name)
		}
	}
	e.inputs = make(map[string]struct{}, len(names))
	for _, name := range names {
		e.inputs[name] = struct{}{}
	}
	return nil
}

// IsInput reports whether a field is marked as an input
func (e *Example) IsInput(name string) bool {
	_, ok := e.inputs[name]
	return ok
}

// InputNames returns the input field names in insertion order
func (e *Example) InputNames() []string {
	out := make([]string, 0, len(e.inputs))
	for _, name := range e.names {
		if e.IsInput(name) {
			out = append(out, name)
		}
	}
	return out
}

// Inputs returns a map of the input fields
func (e *Example) Inputs() map[string]any {
	out := make(map[string]any, len(e.inputs))
	for name := range e.inputs {
		out[name] = e.values[name]
	}
	return out
}

// Outputs returns a map of the fields not marked as inputs
func (e *Example) Outputs() map[string]any {
	out := make(map[string]any, len(e.names)-len(e.inputs))
	for _, name := range e.names {
		if !e.IsInput(name) {
			out[name] = e.values[name]
		}
	}
	return out
}

// MarshalJSON writes the fields as a JSON object in insertion order.
// Input markings are not serialized; callers re-apply input keys when
// loading.
func (e *Example) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range e.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(e.values[name])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
