package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds a single tool invocation.
const DefaultTimeout = 30 * time.Second

// Result is the outcome of a successful Invoke.
type Result struct {
	Output   string
	Degraded bool
	Elapsed  time.Duration
}

// Registry maps tool names to tools. Registration order is kept for Definitions.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]*Tool
	order   []string
	timeout time.Duration
	logger  *zap.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithTimeout sets the per-call timeout. Zero or negative disables it.
func WithTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		r.timeout = d
	}
}

// WithLogger sets the registry logger.
func WithLogger(logger *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		tools:   make(map[string]*Tool),
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds tools. Duplicate names are rejected.
func (r *Registry) Register(tools ...*Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tool := range tools {
		if tool == nil || tool.call == nil {
			return errors.New("tools: register nil tool")
		}
		if _, ok := r.tools[tool.Name]; ok {
			return fmt.Errorf("tools: duplicate tool %q", tool.Name)
		}
		r.tools[tool.Name] = tool
		r.order = append(r.order, tool.Name)
	}
	return nil
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Definitions returns the model-facing schema list in registration order.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Invoke runs the named tool with JSON arguments.
//
// It fails only with *UnknownToolError or *ArgumentError. Errors, panics and
// timeouts inside the tool are logged and reported as a degraded Result.
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) (Result, error) {
	tool, ok := r.Lookup(name)
	if !ok {
		return Result{}, &UnknownToolError{Name: name}
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	type outcome struct {
		out string
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				ch <- outcome{err: fmt.Errorf("tool panic: %v", p)}
			}
		}()
		out, err := tool.call(ctx, args)
		ch <- outcome{out: out, err: err}
	}()

	var res outcome
	select {
	case res = <-ch:
	case <-ctx.Done():
		res = outcome{err: ctx.Err()}
	}
	elapsed := time.Since(start)

	if res.err != nil {
		var argErr *ArgumentError
		if errors.As(res.err, &argErr) {
			return Result{Elapsed: elapsed}, argErr
		}
		r.logger.Warn("tool degraded",
			zap.String("tool", name),
			zap.Duration("elapsed", elapsed),
			zap.Error(res.err),
		)
		return Result{Output: tool.degraded, Degraded: true, Elapsed: elapsed}, nil
	}
	r.logger.Debug("tool completed",
		zap.String("tool", name),
		zap.Duration("elapsed", elapsed),
	)
	return Result{Output: res.out, Elapsed: elapsed}, nil
}
