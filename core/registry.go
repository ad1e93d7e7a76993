package core

import "sync"

// ── Registry ──────────────────────────────────────────────────────────────────

// DefaultRegistry is a thread-safe, map-backed ModuleRegistry: Op identifier
// to installed Module. Registration is expected at startup; Lookup is on the
// hot path for every pipeline node, hence the RWMutex.
type DefaultRegistry struct {
	mu      sync.RWMutex
	modules map[string]Module
}

// NewRegistry returns an empty DefaultRegistry.
func NewRegistry() *DefaultRegistry {
	return &DefaultRegistry{modules: make(map[string]Module)}
}

// Register installs m under its own Descriptor().Op, replacing any prior
// module registered at that identifier.
func (r *DefaultRegistry) Register(m Module) {
	r.mu.Lock()
	r.modules[m.Descriptor().Op] = m
	r.mu.Unlock()
}

// Lookup returns the Module registered for op, if any.
func (r *DefaultRegistry) Lookup(op string) (Module, bool) {
	r.mu.RLock()
	m, ok := r.modules[op]
	r.mu.RUnlock()
	return m, ok
}

// Descriptor returns the OperationType of the module registered for op.
func (r *DefaultRegistry) Descriptor(op string) (OperationType, bool) {
	r.mu.RLock()
	m, ok := r.modules[op]
	r.mu.RUnlock()
	if !ok {
		return OperationType{}, false
	}
	return m.Descriptor(), true
}

// All returns the descriptors of every registered module, in no particular
// order.
func (r *DefaultRegistry) All() []OperationType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]OperationType, 0, len(r.modules))
	for _, m := range r.modules {
		out = append(out, m.Descriptor())
	}
	return out
}

var _ ModuleRegistry = (*DefaultRegistry)(nil)
