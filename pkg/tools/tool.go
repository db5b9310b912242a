package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// DefaultDegradedMessage is returned when a tool fails and has no message of its own.
const DefaultDegradedMessage = "Sorry, I could not complete that request right now. Please try again in some time."

// Definition is the schema entry sent to the model in the session tool list.
type Definition struct {
	Type        string             `json:"type"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  *jsonschema.Schema `json:"parameters"`
}

// Tool is one callable registered with a Registry.
type Tool struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema

	degraded string
	call     func(ctx context.Context, args json.RawMessage) (string, error)
}

// Option customizes a Tool built by NewFunc.
type Option func(*Tool)

// WithDegradedMessage sets the text returned when the tool fails.
func WithDegradedMessage(msg string) Option {
	return func(t *Tool) {
		t.degraded = msg
	}
}

// WithParameters lets the caller refine the derived schema, e.g. to add enums.
func WithParameters(edit func(*jsonschema.Schema)) Option {
	return func(t *Tool) {
		if edit != nil && t.Parameters != nil {
			edit(t.Parameters)
		}
	}
}

// NewFunc builds a tool whose parameters schema is derived from Args.
func NewFunc[Args any](name, description string, fn func(context.Context, Args) (string, error), opts ...Option) (*Tool, error) {
	if name == "" {
		return nil, errors.New("tools: empty tool name")
	}
	if fn == nil {
		return nil, fmt.Errorf("tools: nil func for %q", name)
	}
	schema, err := jsonschema.For[Args](&jsonschema.ForOptions{})
	if err != nil {
		return nil, fmt.Errorf("tools: schema for %q: %w", name, err)
	}
	tool := &Tool{
		Name:        name,
		Description: description,
		Parameters:  schema,
		degraded:    DefaultDegradedMessage,
	}
	tool.call = func(ctx context.Context, raw json.RawMessage) (string, error) {
		var args Args
		if err := decodeArgs(raw, &args); err != nil {
			return "", &ArgumentError{Tool: name, Err: err}
		}
		return fn(ctx, args)
	}
	for _, opt := range opts {
		opt(tool)
	}
	return tool, nil
}

// MustNewFunc is NewFunc that panics on error.
func MustNewFunc[Args any](name, description string, fn func(context.Context, Args) (string, error), opts ...Option) *Tool {
	tool, err := NewFunc(name, description, fn, opts...)
	if err != nil {
		panic(err)
	}
	return tool
}

// Definition returns the model-facing schema entry.
func (t *Tool) Definition() Definition {
	return Definition{
		Type:        "function",
		Name:        t.Name,
		Description: t.Description,
		Parameters:  t.Parameters,
	}
}

// Call runs the tool directly, without the registry timeout or degradation.
func (t *Tool) Call(ctx context.Context, args json.RawMessage) (string, error) {
	return t.call(ctx, args)
}

// DegradedMessage returns the text used when the tool fails.
func (t *Tool) DegradedMessage() string {
	return t.degraded
}

func decodeArgs(raw json.RawMessage, v any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}
	return json.Unmarshal(raw, v)
}
