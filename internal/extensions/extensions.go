// Package extensions provides a registry of named capabilities that the
// engine invokes at defined points (for example after each rating). Every
// extension exposes the same single-method surface and the same error
// channel, so callers never need per-extension signatures.
package extensions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownExtension is returned when no extension is registered under
// the requested name.
var ErrUnknownExtension = errors.New("unknown extension")

// Extension is a named capability: it consumes an input string and
// produces an output string, or an error.
type Extension interface {
	Invoke(ctx context.Context, input string) (string, error)
}

// Func adapts a plain function to the Extension interface.
type Func func(ctx context.Context, input string) (string, error)

// Invoke implements Extension.
func (f Func) Invoke(ctx context.Context, input string) (string, error) {
	return f(ctx, input)
}

// Registry maps extension names to implementations. Safe for concurrent use.
type Registry struct {
	mu  sync.RWMutex
	ext map[string]Extension
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ext: make(map[string]Extension)}
}

// Register binds a name to an extension, replacing any prior binding.
func (r *Registry) Register(name string, ext Extension) {
	if ext == nil {
		panic("extension cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ext[name] = ext
}

// Invoke runs the named extension. Returns ErrUnknownExtension when the
// name is not registered; any other error comes from the extension itself.
func (r *Registry) Invoke(ctx context.Context, name, input string) (string, error) {
	r.mu.RLock()
	ext, ok := r.ext[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownExtension, name)
	}
	return ext.Invoke(ctx, input)
}

// Names returns the registered extension names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ext))
	for name := range r.ext {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
