// Package registry maps operator names to extractors.
//
// Registrations happen during a discovery phase (see extractors.RegisterAll). Sealing the registry
// ends discovery; afterwards it is read-only and safe for concurrent lookups.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/born-ml/graphir/internal/extract"
)

// Common errors.
var (
	ErrSealed       = errors.New("registry is sealed")
	ErrNilExtractor = errors.New("nil extractor")
	ErrEmptyOp      = errors.New("empty operator name")
)

// DuplicateRegistrationError is returned when two extractors claim the same operator name.
type DuplicateRegistrationError struct {
	Op string
}

// Error implements the error interface.
func (e *DuplicateRegistrationError) Error() string {
	return fmt.Sprintf("duplicate extractor registration for op %q", e.Op)
}

// Registration is one registry entry.
type Registration struct {
	Op        string
	Enabled   bool
	Extractor extract.Extractor
}

// Registry maps operator names to extractors.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Registration
	sealed  bool
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]Registration)}
}

// Register adds an extractor for op. Disabled registrations are kept for diagnostics but are not
// returned by Lookup.
func (r *Registry) Register(op string, ex extract.Extractor, enabled bool) error {
	if op == "" {
		return ErrEmptyOp
	}
	if ex == nil {
		return fmt.Errorf("op %q: %w", op, ErrNilExtractor)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return fmt.Errorf("op %q: %w", op, ErrSealed)
	}
	if _, dup := r.entries[op]; dup {
		return &DuplicateRegistrationError{Op: op}
	}
	r.entries[op] = Registration{Op: op, Enabled: enabled, Extractor: ex}
	return nil
}

// MustRegister is like Register but panics on error. It is meant for static registration lists.
func (r *Registry) MustRegister(op string, ex extract.Extractor, enabled bool) {
	if err := r.Register(op, ex, enabled); err != nil {
		panic(err)
	}
}

// SetEnabled toggles an existing registration before sealing.
func (r *Registry) SetEnabled(op string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return fmt.Errorf("op %q: %w", op, ErrSealed)
	}
	reg, ok := r.entries[op]
	if !ok {
		return fmt.Errorf("op %q is not registered", op)
	}
	reg.Enabled = enabled
	r.entries[op] = reg
	return nil
}

// Seal ends the discovery phase. It is idempotent.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Sealed reports whether Seal was called.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Lookup returns the enabled extractor for op.
func (r *Registry) Lookup(op string) (extract.Extractor, bool) {
	r.mu.RLock()
	reg, ok := r.entries[op]
	r.mu.RUnlock()
	if !ok || !reg.Enabled {
		return nil, false
	}
	return reg.Extractor, true
}

// Registration returns the registration for op, enabled or not.
func (r *Registry) Registration(op string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[op]
	return reg, ok
}

// Registrations returns all registrations sorted by op.
func (r *Registry) Registrations() []Registration {
	r.mu.RLock()
	regs := make([]Registration, 0, len(r.entries))
	for _, reg := range r.entries {
		regs = append(regs, reg)
	}
	r.mu.RUnlock()
	sort.Slice(regs, func(i, j int) bool { return regs[i].Op < regs[j].Op })
	return regs
}

// SupportedOps returns the enabled op names, sorted.
func (r *Registry) SupportedOps() []string {
	var ops []string
	for _, reg := range r.Registrations() {
		if reg.Enabled {
			ops = append(ops, reg.Op)
		}
	}
	return ops
}
