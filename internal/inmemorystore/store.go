package inmemorystore

import (
	"sync"

	"github.com/vk/depsgraph/internal/node"
	"github.com/vk/depsgraph/internal/nodestore"
	"github.com/vk/depsgraph/internal/recalc"
	"github.com/vk/depsgraph/internal/topologystore"
)

type entry struct {
	mu          sync.Mutex
	dirty       bool
	mask        recalc.Flag
	status      node.Status
	err         error
	evaluations uint64
}

// Store is an in-memory implementation of nodestore.Store.
type Store struct {
	entries sync.Map // Key: topologystore.Handle, Value: *entry
}

var _ nodestore.Store = (*Store)(nil)

// New creates a new, empty in-memory node state store.
func New() *Store {
	return &Store{}
}

func (s *Store) get(h topologystore.Handle) *entry {
	if v, ok := s.entries.Load(h); ok {
		return v.(*entry)
	}
	v, _ := s.entries.LoadOrStore(h, &entry{})
	return v.(*entry)
}

func (s *Store) peek(h topologystore.Handle) (*entry, bool) {
	v, ok := s.entries.Load(h)
	if !ok {
		return nil, false
	}
	return v.(*entry), true
}

// MarkDirty implements nodestore.Store.
func (s *Store) MarkDirty(h topologystore.Handle, mask recalc.Flag) bool {
	e := s.get(h)
	e.mu.Lock()
	defer e.mu.Unlock()
	changed := !e.dirty || e.mask|mask != e.mask
	e.dirty = true
	e.mask |= mask
	return changed
}

// ClearDirty implements nodestore.Store.
func (s *Store) ClearDirty(h topologystore.Handle) {
	e, ok := s.peek(h)
	if !ok {
		return
	}
	e.mu.Lock()
	e.dirty = false
	e.mask = 0
	e.mu.Unlock()
}

// IsDirty implements nodestore.Store.
func (s *Store) IsDirty(h topologystore.Handle) bool {
	e, ok := s.peek(h)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dirty
}

// Mask implements nodestore.Store.
func (s *Store) Mask(h topologystore.Handle) recalc.Flag {
	e, ok := s.peek(h)
	if !ok {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mask
}

// Dirty implements nodestore.Store.
func (s *Store) Dirty() []topologystore.Handle {
	var out []topologystore.Handle
	s.entries.Range(func(k, v any) bool {
		e := v.(*entry)
		e.mu.Lock()
		if e.dirty {
			out = append(out, k.(topologystore.Handle))
		}
		e.mu.Unlock()
		return true
	})
	return out
}

// SetStatus implements nodestore.Store.
func (s *Store) SetStatus(h topologystore.Handle, st node.Status) {
	e := s.get(h)
	e.mu.Lock()
	e.status = st
	e.mu.Unlock()
}

// Status implements nodestore.Store. Unknown nodes are Idle.
func (s *Store) Status(h topologystore.Handle) node.Status {
	e, ok := s.peek(h)
	if !ok {
		return node.Idle
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// SetError implements nodestore.Store.
func (s *Store) SetError(h topologystore.Handle, err error) {
	e := s.get(h)
	e.mu.Lock()
	e.err = err
	e.mu.Unlock()
}

// Error implements nodestore.Store.
func (s *Store) Error(h topologystore.Handle) error {
	e, ok := s.peek(h)
	if !ok {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// RecordEvaluation implements nodestore.Store.
func (s *Store) RecordEvaluation(h topologystore.Handle) {
	e := s.get(h)
	e.mu.Lock()
	e.evaluations++
	e.mu.Unlock()
}

// Evaluations implements nodestore.Store.
func (s *Store) Evaluations(h topologystore.Handle) uint64 {
	e, ok := s.peek(h)
	if !ok {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.evaluations
}

// ResetStatuses implements nodestore.Store.
func (s *Store) ResetStatuses() {
	s.entries.Range(func(_, v any) bool {
		e := v.(*entry)
		e.mu.Lock()
		e.status = node.Idle
		e.mu.Unlock()
		return true
	})
}

// Forget implements nodestore.Store.
func (s *Store) Forget(h topologystore.Handle) {
	s.entries.Delete(h)
}
