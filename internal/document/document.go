package document

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vk/depsgraph/internal/recalc"
)

// ID identifies an element, e.g. "OBCube".
type ID string

// Type is the element type tag, e.g. "OB" for objects or "ME" for meshes.
type Type string

// View names the view layer a graph instance serves.
type View string

// Element is one addressable unit of host data.
type Element struct {
	ID   ID
	Type Type
	Name string
}

// PendingTag is a tag recorded before any graph instance existed.
type PendingTag struct {
	Element ID
	Mask    recalc.Flag
}

// Document owns elements. It is shared by every graph instance built for it.
type Document struct {
	name string

	mu       sync.RWMutex
	elements map[ID]*Element
	pending  []PendingTag

	// editMu serializes destructive structural edits against evaluation
	// passes of all instances referencing this document.
	editMu sync.RWMutex
}

// New creates an empty document.
func New(name string) *Document {
	return &Document{
		name:     name,
		elements: make(map[ID]*Element),
	}
}

// Name returns the document's name.
func (d *Document) Name() string { return d.name }

// AddElement registers an element. It takes the exclusive edit lock, so it
// waits for in-flight evaluation passes to finish.
func (d *Document) AddElement(e Element) error {
	if e.ID == "" {
		return fmt.Errorf("element id is required")
	}
	d.editMu.Lock()
	defer d.editMu.Unlock()
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.elements[e.ID]; exists {
		return fmt.Errorf("duplicate element %q", e.ID)
	}
	el := e
	d.elements[e.ID] = &el
	return nil
}

// RemoveElement deletes an element under the exclusive edit lock.
func (d *Document) RemoveElement(id ID) bool {
	d.editMu.Lock()
	defer d.editMu.Unlock()
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.elements[id]; !ok {
		return false
	}
	delete(d.elements, id)
	return true
}

// Edit runs fn while holding the exclusive edit lock.
func (d *Document) Edit(fn func() error) error {
	d.editMu.Lock()
	defer d.editMu.Unlock()
	return fn()
}

// BeginEvaluation takes the shared edit lock for the duration of a pass. The
// returned function releases it.
func (d *Document) BeginEvaluation() (release func()) {
	d.editMu.RLock()
	return d.editMu.RUnlock
}

// Element looks up an element by ID.
func (d *Document) Element(id ID) (Element, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.elements[id]
	if !ok {
		return Element{}, false
	}
	return *e, true
}

// Elements returns a snapshot of all elements sorted by ID.
func (d *Document) Elements() []Element {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Element, 0, len(d.elements))
	for _, e := range d.elements {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ElementsOfType returns all elements with the given type tag, sorted by ID.
func (d *Document) ElementsOfType(t Type) []Element {
	var out []Element
	for _, e := range d.Elements() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// QueueTag records a tag for an instance that does not exist yet. Repeated
// tags for the same element OR together.
func (d *Document) QueueTag(id ID, mask recalc.Flag) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.pending {
		if d.pending[i].Element == id {
			d.pending[i].Mask |= mask
			return
		}
	}
	d.pending = append(d.pending, PendingTag{Element: id, Mask: mask})
}

// DrainPending returns and forgets all queued tags.
func (d *Document) DrainPending() []PendingTag {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.pending
	d.pending = nil
	return out
}
