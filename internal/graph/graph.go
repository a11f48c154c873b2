package graph

import (
	"context"
	"sort"
	"sync"

	"github.com/vk/depsgraph/internal/ctxlog"
	"github.com/vk/depsgraph/internal/node"
	"github.com/vk/depsgraph/internal/nodeid"
	"github.com/vk/depsgraph/internal/nodestore"
	"github.com/vk/depsgraph/internal/recalc"
	"github.com/vk/depsgraph/internal/topologystore"
)

// Manager composes a topology store and a node state store.
type Manager struct {
	mu       sync.RWMutex
	topology topologystore.Store
	state    nodestore.Store
}

var _ Graph = (*Manager)(nil)

// New creates a new graph manager.
func New(ts topologystore.Store, ns nodestore.Store) *Manager {
	return &Manager{topology: ts, state: ns}
}

func (m *Manager) ts() topologystore.Store {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.topology
}

// Topology implements Graph.
func (m *Manager) Topology() topologystore.Store { return m.ts() }

// Replace swaps in a new topology and drops the state of removed nodes.
func (m *Manager) Replace(ctx context.Context, ts topologystore.Store, removed []topologystore.Handle) {
	m.mu.Lock()
	m.topology = ts
	m.mu.Unlock()
	for _, h := range removed {
		m.state.Forget(h)
	}
	ctxlog.FromContext(ctx).Debug("Topology replaced.", "nodes", ts.Len(), "relations", ts.RelationCount(), "removed", len(removed))
}

func (m *Manager) Node(h topologystore.Handle) (*node.Node, bool) { return m.ts().Node(h) }

func (m *Manager) Lookup(key nodeid.Key) (topologystore.Handle, bool) { return m.ts().Lookup(key) }

func (m *Manager) NodesOf(element string) []topologystore.Handle { return m.ts().NodesOf(element) }

func (m *Manager) AllNodes() []topologystore.Handle { return m.ts().Nodes() }

func (m *Manager) Successors(h topologystore.Handle) []topologystore.Relation {
	return m.ts().Outgoing(h)
}

func (m *Manager) Predecessors(h topologystore.Handle) []topologystore.Relation {
	return m.ts().Incoming(h)
}

func (m *Manager) MarkDirty(h topologystore.Handle, mask recalc.Flag) bool {
	return m.state.MarkDirty(h, mask)
}

func (m *Manager) IsDirty(h topologystore.Handle) bool { return m.state.IsDirty(h) }

func (m *Manager) Mask(h topologystore.Handle) recalc.Flag { return m.state.Mask(h) }

// DirtyNodes implements Graph. Handles whose node no longer exists are
// ignored.
func (m *Manager) DirtyNodes() []topologystore.Handle {
	ts := m.ts()
	type ordered struct {
		h     topologystore.Handle
		order uint64
	}
	var live []ordered
	for _, h := range m.state.Dirty() {
		if n, ok := ts.Node(h); ok {
			live = append(live, ordered{h, n.Order})
		}
	}
	sort.Slice(live, func(i, j int) bool { return live[i].order < live[j].order })
	out := make([]topologystore.Handle, len(live))
	for i, o := range live {
		out[i] = o.h
	}
	return out
}

func (m *Manager) NodeStatus(h topologystore.Handle) node.Status { return m.state.Status(h) }

func (m *Manager) NodeError(h topologystore.Handle) error { return m.state.Error(h) }

func (m *Manager) Evaluations(h topologystore.Handle) uint64 { return m.state.Evaluations(h) }

func (m *Manager) MarkPending(h topologystore.Handle) { m.state.SetStatus(h, node.Pending) }

func (m *Manager) MarkRunning(h topologystore.Handle) { m.state.SetStatus(h, node.Running) }

func (m *Manager) MarkCompleted(h topologystore.Handle) {
	m.state.SetStatus(h, node.Done)
	m.state.SetError(h, nil)
	m.state.ClearDirty(h)
	m.state.RecordEvaluation(h)
}

func (m *Manager) MarkFailed(h topologystore.Handle, err error) {
	m.state.SetStatus(h, node.Failed)
	m.state.SetError(h, err)
}

func (m *Manager) MarkSkipped(h topologystore.Handle) { m.state.SetStatus(h, node.Skipped) }

func (m *Manager) ResetPass() { m.state.ResetStatuses() }
