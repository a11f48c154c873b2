package depsgraph

// IsEvaluating reports whether a pass is in flight.
func (i *Instance) IsEvaluating() bool { return i.evaluating.Load() }

// IsActive reports whether this instance drives live editing.
func (i *Instance) IsActive() bool { return i.active.Load() }

// MakeActive activates the instance and deactivates every other instance of
// the same document and view.
func (i *Instance) MakeActive() {
	doc, view := i.Document(), i.View()
	for _, other := range i.engine.Instances() {
		if other != i && other.Document() == doc && other.View() == view {
			other.active.Store(false)
		}
	}
	i.active.Store(true)
}

// MakeInactive deactivates the instance.
func (i *Instance) MakeInactive() { i.active.Store(false) }

// EnableEditorsUpdate lets passes invoke the editor callbacks.
func (i *Instance) EnableEditorsUpdate() { i.editorsUpdate.Store(true) }

// DisableEditorsUpdate keeps passes from invoking the editor callbacks.
func (i *Instance) DisableEditorsUpdate() { i.editorsUpdate.Store(false) }

// EditorsUpdateEnabled reports whether passes invoke the editor callbacks.
func (i *Instance) EditorsUpdateEnabled() bool { return i.editorsUpdate.Load() }

// Time returns the instance time of the last frame change.
func (i *Instance) Time() float64 {
	i.structMu.Lock()
	defer i.structMu.Unlock()
	return i.time
}
