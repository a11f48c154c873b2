package inmemorytopology

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vk/depsgraph/internal/node"
	"github.com/vk/depsgraph/internal/nodeid"
	"github.com/vk/depsgraph/internal/topologystore"
)

// minCompaction is the smallest tombstone count that triggers an automatic
// compaction.
const minCompaction = 64

type slot struct {
	node *node.Node
	gen  uint32
	live bool
	out  []int
	in   []int
}

type relSlot struct {
	rel  topologystore.Relation
	live bool
}

type pair struct {
	from, to uint32
}

// Store is the arena-backed topology.
type Store struct {
	mu sync.RWMutex

	slots     []slot
	free      []uint32
	byKey     map[nodeid.Key]topologystore.Handle
	byElement map[string][]topologystore.Handle
	live      int
	seq       uint64

	rels     []relSlot
	relIndex map[pair]int
	dead     int
}

var _ topologystore.Store = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{
		byKey:     make(map[nodeid.Key]topologystore.Handle),
		byElement: make(map[string][]topologystore.Handle),
		relIndex:  make(map[pair]int),
	}
}

func (s *Store) resolve(h topologystore.Handle) (*slot, bool) {
	if h.IsZero() || int(h.Index) >= len(s.slots) {
		return nil, false
	}
	sl := &s.slots[h.Index]
	if !sl.live || sl.gen != h.Gen {
		return nil, false
	}
	return sl, true
}

// AddNode implements topologystore.Store.
func (s *Store) AddNode(_ context.Context, n *node.Node) (topologystore.Handle, error) {
	if n == nil {
		return topologystore.Handle{}, fmt.Errorf("cannot add nil node")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byKey[n.Key]; exists {
		return topologystore.Handle{}, fmt.Errorf("node %q already exists", n.Key)
	}

	var idx uint32
	if k := len(s.free); k > 0 {
		idx = s.free[k-1]
		s.free = s.free[:k-1]
	} else {
		idx = uint32(len(s.slots))
		s.slots = append(s.slots, slot{gen: 1})
	}
	sl := &s.slots[idx]
	s.seq++
	n.Order = s.seq
	sl.node = n
	sl.live = true

	h := topologystore.Handle{Index: idx, Gen: sl.gen}
	s.byKey[n.Key] = h
	s.byElement[n.Key.Element] = append(s.byElement[n.Key.Element], h)
	s.live++
	return h, nil
}

// RemoveNode implements topologystore.Store.
func (s *Store) RemoveNode(_ context.Context, h topologystore.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl, ok := s.resolve(h)
	if !ok {
		return fmt.Errorf("stale or unknown node handle %v", h)
	}
	for _, ri := range sl.out {
		s.killRel(ri)
	}
	for _, ri := range sl.in {
		s.killRel(ri)
	}

	key := sl.node.Key
	delete(s.byKey, key)
	owned := s.byElement[key.Element]
	for i, oh := range owned {
		if oh == h {
			owned = append(owned[:i:i], owned[i+1:]...)
			break
		}
	}
	if len(owned) == 0 {
		delete(s.byElement, key.Element)
	} else {
		s.byElement[key.Element] = owned
	}

	sl.node = nil
	sl.live = false
	sl.out = nil
	sl.in = nil
	sl.gen++
	s.free = append(s.free, h.Index)
	s.live--
	s.maybeCompact()
	return nil
}

func (s *Store) killRel(ri int) {
	rs := &s.rels[ri]
	if !rs.live {
		return
	}
	rs.live = false
	delete(s.relIndex, pair{rs.rel.From.Index, rs.rel.To.Index})
	s.dead++
}

// AddRelation implements topologystore.Store.
func (s *Store) AddRelation(_ context.Context, rel topologystore.Relation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	from, ok := s.resolve(rel.From)
	if !ok {
		return fmt.Errorf("relation source %v is not a live node", rel.From)
	}
	to, ok := s.resolve(rel.To)
	if !ok {
		return fmt.Errorf("relation target %v is not a live node", rel.To)
	}
	if rel.From == rel.To {
		return fmt.Errorf("node %q cannot depend on itself", from.node.Key)
	}
	p := pair{rel.From.Index, rel.To.Index}
	if _, exists := s.relIndex[p]; exists {
		return fmt.Errorf("relation %q -> %q already exists", from.node.Key, to.node.Key)
	}

	ri := len(s.rels)
	s.rels = append(s.rels, relSlot{rel: rel, live: true})
	s.relIndex[p] = ri
	from.out = append(from.out, ri)
	to.in = append(to.in, ri)
	return nil
}

// RemoveRelation implements topologystore.Store.
func (s *Store) RemoveRelation(_ context.Context, from, to topologystore.Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.resolve(from); !ok {
		return false
	}
	if _, ok := s.resolve(to); !ok {
		return false
	}
	ri, ok := s.relIndex[pair{from.Index, to.Index}]
	if !ok {
		return false
	}
	s.killRel(ri)
	s.maybeCompact()
	return true
}

// Node implements topologystore.Store.
func (s *Store) Node(h topologystore.Handle) (*node.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sl, ok := s.resolve(h)
	if !ok {
		return nil, false
	}
	return sl.node, true
}

// Lookup implements topologystore.Store.
func (s *Store) Lookup(key nodeid.Key) (topologystore.Handle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.byKey[key]
	return h, ok
}

// NodesOf implements topologystore.Store.
func (s *Store) NodesOf(element string) []topologystore.Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]topologystore.Handle(nil), s.byElement[element]...)
	s.sortHandles(out)
	return out
}

// Nodes implements topologystore.Store.
func (s *Store) Nodes() []topologystore.Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]topologystore.Handle, 0, s.live)
	for i := range s.slots {
		if s.slots[i].live {
			out = append(out, topologystore.Handle{Index: uint32(i), Gen: s.slots[i].gen})
		}
	}
	s.sortHandles(out)
	return out
}

func (s *Store) sortHandles(hs []topologystore.Handle) {
	sort.Slice(hs, func(i, j int) bool {
		return s.slots[hs[i].Index].node.Order < s.slots[hs[j].Index].node.Order
	})
}

// Relation implements topologystore.Store.
func (s *Store) Relation(from, to topologystore.Handle) (topologystore.Relation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.resolve(from); !ok {
		return topologystore.Relation{}, false
	}
	if _, ok := s.resolve(to); !ok {
		return topologystore.Relation{}, false
	}
	ri, ok := s.relIndex[pair{from.Index, to.Index}]
	if !ok {
		return topologystore.Relation{}, false
	}
	return s.rels[ri].rel, true
}

// Outgoing implements topologystore.Store.
func (s *Store) Outgoing(h topologystore.Handle) []topologystore.Relation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sl, ok := s.resolve(h)
	if !ok {
		return nil
	}
	out := s.collect(sl.out)
	sort.Slice(out, func(i, j int) bool { return s.order(out[i].To) < s.order(out[j].To) })
	return out
}

// Incoming implements topologystore.Store.
func (s *Store) Incoming(h topologystore.Handle) []topologystore.Relation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sl, ok := s.resolve(h)
	if !ok {
		return nil
	}
	out := s.collect(sl.in)
	sort.Slice(out, func(i, j int) bool { return s.order(out[i].From) < s.order(out[j].From) })
	return out
}

func (s *Store) collect(idx []int) []topologystore.Relation {
	out := make([]topologystore.Relation, 0, len(idx))
	for _, ri := range idx {
		if s.rels[ri].live {
			out = append(out, s.rels[ri].rel)
		}
	}
	return out
}

func (s *Store) order(h topologystore.Handle) uint64 {
	return s.slots[h.Index].node.Order
}

// Relations implements topologystore.Store.
func (s *Store) Relations() []topologystore.Relation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]topologystore.Relation, 0, len(s.relIndex))
	for _, rs := range s.rels {
		if rs.live {
			out = append(out, rs.rel)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		fi, fj := s.order(out[i].From), s.order(out[j].From)
		if fi != fj {
			return fi < fj
		}
		return s.order(out[i].To) < s.order(out[j].To)
	})
	return out
}

// Len implements topologystore.Store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live
}

// RelationCount implements topologystore.Store.
func (s *Store) RelationCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.relIndex)
}

// Tombstones implements topologystore.Store.
func (s *Store) Tombstones() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dead
}

// Compact implements topologystore.Store.
func (s *Store) Compact() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compact()
}

func (s *Store) maybeCompact() {
	if s.dead >= minCompaction && s.dead*2 > len(s.rels) {
		s.compact()
	}
}

func (s *Store) compact() {
	if s.dead == 0 {
		return
	}
	rels := make([]relSlot, 0, len(s.rels)-s.dead)
	for i := range s.slots {
		s.slots[i].out = s.slots[i].out[:0]
		s.slots[i].in = s.slots[i].in[:0]
	}
	clear(s.relIndex)
	for _, rs := range s.rels {
		if !rs.live {
			continue
		}
		ri := len(rels)
		rels = append(rels, rs)
		s.relIndex[pair{rs.rel.From.Index, rs.rel.To.Index}] = ri
		s.slots[rs.rel.From.Index].out = append(s.slots[rs.rel.From.Index].out, ri)
		s.slots[rs.rel.To.Index].in = append(s.slots[rs.rel.To.Index].in, ri)
	}
	s.rels = rels
	s.dead = 0
}

// Clone implements topologystore.Store.
func (s *Store) Clone() topologystore.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := &Store{
		slots:     make([]slot, len(s.slots)),
		free:      append([]uint32(nil), s.free...),
		byKey:     make(map[nodeid.Key]topologystore.Handle, len(s.byKey)),
		byElement: make(map[string][]topologystore.Handle, len(s.byElement)),
		live:      s.live,
		seq:       s.seq,
		rels:      append([]relSlot(nil), s.rels...),
		relIndex:  make(map[pair]int, len(s.relIndex)),
		dead:      s.dead,
	}
	for i, sl := range s.slots {
		c.slots[i] = slot{
			node: sl.node,
			gen:  sl.gen,
			live: sl.live,
			out:  append([]int(nil), sl.out...),
			in:   append([]int(nil), sl.in...),
		}
	}
	for k, v := range s.byKey {
		c.byKey[k] = v
	}
	for k, v := range s.byElement {
		c.byElement[k] = append([]topologystore.Handle(nil), v...)
	}
	for k, v := range s.relIndex {
		c.relIndex[k] = v
	}
	return c
}
