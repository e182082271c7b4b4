package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/weak-head/fl-pipe/internal/convert"
)

var (
	// ErrUnknownEngine happens when no engine is registered under the requested name.
	ErrUnknownEngine = errors.New("unknown engine")

	// ErrDuplicateEngine happens when an engine name is registered twice.
	ErrDuplicateEngine = errors.New("engine already registered")
)

// Options configures a newly created engine.
type Options struct {
	// Key is the secret used by engines that sign their output.
	Key []byte
}

// Factory creates an engine instance.
type Factory func(opts Options) (convert.Engine, error)

// Descriptor describes a registered engine.
type Descriptor struct {
	Name        string
	Description string
	MimeTypes   []string
}

// Registry keeps the engines that can be instantiated by name.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registration
}

type registration struct {
	descriptor Descriptor
	factory    Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: map[string]registration{}}
}

// DefaultRegistry creates a registry with every engine built into this binary.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register(Descriptor{
		Name:        LoopbackName,
		Description: "Pass-through engine with a signed header, for testing and dry runs.",
		MimeTypes:   []string{convert.MimeTypeDM},
	}, func(opts Options) (convert.Engine, error) {
		return NewLoopback(opts.Key)
	})
	return r
}

// Register adds an engine factory under d.Name.
func (r *Registry) Register(d Descriptor, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[d.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateEngine, d.Name)
	}
	r.entries[d.Name] = registration{descriptor: d, factory: f}
	return nil
}

// Available returns the sorted names of the registered engines.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsLoaded reports whether an engine is registered under name.
func (r *Registry) IsLoaded(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.entries[name]
	return ok
}

// Describe returns the descriptors of the registered engines sorted by name.
func (r *Registry) Describe() []Descriptor {
	names := r.Available()

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(names))
	for _, name := range names {
		out = append(out, r.entries[name].descriptor)
	}
	return out
}

// CanHandle returns the sorted names of the engines accepting mimeType.
func (r *Registry) CanHandle(mimeType string) []string {
	var names []string
	for _, d := range r.Describe() {
		for _, m := range d.MimeTypes {
			if m == mimeType {
				names = append(names, d.Name)
				break
			}
		}
	}
	return names
}

// New creates the engine registered under name.
func (r *Registry) New(name string, opts Options) (convert.Engine, error) {
	r.mu.RLock()
	reg, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEngine, name)
	}
	return reg.factory(opts)
}
