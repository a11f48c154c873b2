package builder

import (
	"context"
	"fmt"
	"sort"

	"github.com/vk/depsgraph/internal/ctxlog"
	"github.com/vk/depsgraph/internal/evalerr"
	"github.com/vk/depsgraph/internal/graph"
	"github.com/vk/depsgraph/internal/node"
	"github.com/vk/depsgraph/internal/propagate"
	"github.com/vk/depsgraph/internal/recalc"
	"github.com/vk/depsgraph/internal/registry"
	"github.com/vk/depsgraph/internal/topologystore"
)

const op = "build"

// Builder applies descriptions to one graph. It remembers what it applied
// last, so it must stay paired with the same graph. It is not safe for
// concurrent use.
type Builder struct {
	reg   *registry.Registry
	last  [32]byte
	built bool
	sigs  map[string][32]byte
}

// New creates a builder resolving operation kinds through reg.
func New(reg *registry.Registry) *Builder {
	return &Builder{reg: reg, sigs: make(map[string][32]byte)}
}

// Apply diffs d against the live topology of g and swaps in the result.
func (b *Builder) Apply(ctx context.Context, g *graph.Manager, d Description) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	fp := Fingerprint(d)
	if b.built && fp == b.last {
		logger.Debug("Build: Description unchanged, skipping.")
		return &Result{Unchanged: true, Fingerprint: fp}, nil
	}
	logger.Debug("Build: Starting graph update.", "nodes", len(d.Nodes), "relations", len(d.Relations))

	clone := g.Topology().Clone()
	res := &Result{Fingerprint: fp}
	touched := make(map[string]struct{})
	// rewired collects nodes whose set of inputs changed.
	rewired := make(map[topologystore.Handle]struct{})

	sigs, err := b.diffNodes(ctx, clone, d, res, touched, rewired)
	if err != nil {
		return nil, err
	}
	logger.Debug("Build: Node diff complete.", "added", len(res.Added), "removed", len(res.Removed))

	if err := diffRelations(ctx, clone, d, res, rewired); err != nil {
		return nil, err
	}
	logger.Debug("Build: Relation diff complete.", "added", res.RelationsAdded, "removed", res.RelationsRemoved)

	if err := graph.Validate(op, clone); err != nil {
		return nil, err
	}
	logger.Debug("Build: Cycle detection passed.")

	g.Replace(ctx, clone, res.Removed)
	seeds := make([]propagate.Seed, 0, len(res.Added)+len(rewired))
	for _, h := range res.Added {
		seeds = append(seeds, propagate.Seed{Node: h, Mask: recalc.All})
		delete(rewired, h)
	}
	for h := range rewired {
		seeds = append(seeds, propagate.Seed{Node: h, Mask: recalc.All})
	}
	if len(seeds) > 0 {
		pr := propagate.Nodes(ctx, g, seeds...)
		res.Elements = pr.Elements
		logger.Debug("Build: Dirtied dependents of changed nodes.", "seeds", len(seeds), "reached", len(pr.Reached))
	}
	b.last = fp
	b.built = true
	b.sigs = sigs

	for el := range touched {
		res.Touched = append(res.Touched, el)
	}
	sort.Strings(res.Touched)
	logger.Info("Build: Graph update successful.", "nodes", clone.Len(), "relations", clone.RelationCount())
	return res, nil
}

func (b *Builder) diffNodes(ctx context.Context, ts topologystore.Store, d Description, res *Result, touched map[string]struct{}, rewired map[topologystore.Handle]struct{}) (map[string][32]byte, error) {
	want := make(map[string]NodeSpec, len(d.Nodes))
	sigs := make(map[string][32]byte, len(d.Nodes))
	for _, n := range d.Nodes {
		if n.Key.IsZero() {
			return nil, fmt.Errorf("%s: node with empty key", op)
		}
		k := n.Key.String()
		if _, dup := want[k]; dup {
			return nil, evalerr.Inconsistent(op, "node %s is described twice", k)
		}
		want[k] = n
		sigs[k] = nodeSignature(n)
	}

	for _, h := range ts.Nodes() {
		existing, _ := ts.Node(h)
		k := existing.Key.String()
		if spec, ok := want[k]; ok && b.sigs[k] == sigs[k] && existing.Kind == spec.Kind {
			continue
		}
		for _, out := range ts.Outgoing(h) {
			rewired[out.To] = struct{}{}
		}
		if err := ts.RemoveNode(ctx, h); err != nil {
			return nil, fmt.Errorf("%s: removing node %s: %w", op, k, err)
		}
		res.Removed = append(res.Removed, h)
		touched[existing.Key.Element] = struct{}{}
	}

	for _, spec := range d.Nodes {
		if _, exists := ts.Lookup(spec.Key); exists {
			continue
		}
		body, err := b.reg.Build(spec.Kind, registry.Spec{Key: spec.Key, Args: spec.Args})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		h, err := ts.AddNode(ctx, node.New(spec.Key, spec.Kind, body, spec.Flags))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		res.Added = append(res.Added, h)
		touched[spec.Key.Element] = struct{}{}
	}
	return sigs, nil
}

func diffRelations(ctx context.Context, ts topologystore.Store, d Description, res *Result, rewired map[topologystore.Handle]struct{}) error {
	type pair struct{ from, to topologystore.Handle }
	want := make(map[pair]topologystore.Relation, len(d.Relations))
	order := make([]pair, 0, len(d.Relations))

	for _, r := range d.Relations {
		from, ok := ts.Lookup(r.From)
		if !ok {
			return evalerr.Inconsistent(op, "relation %s -> %s references unknown node %s", r.From, r.To, r.From)
		}
		to, ok := ts.Lookup(r.To)
		if !ok {
			return evalerr.Inconsistent(op, "relation %s -> %s references unknown node %s", r.From, r.To, r.To)
		}
		if from == to {
			return evalerr.Cycle(op, []string{r.From.String(), r.To.String()})
		}
		if r.Kind == topologystore.Conditional && r.Triggers == 0 {
			return fmt.Errorf("%s: conditional relation %s -> %s has no trigger reasons", op, r.From, r.To)
		}
		p := pair{from, to}
		if _, dup := want[p]; dup {
			return evalerr.Inconsistent(op, "relation %s -> %s is described twice", r.From, r.To)
		}
		want[p] = topologystore.Relation{From: from, To: to, Kind: r.Kind, Triggers: r.Triggers, Flags: r.Flags, Name: r.Name}
		order = append(order, p)
	}

	for _, p := range order {
		if _, existed := ts.Relation(p.from, p.to); !existed {
			rewired[p.to] = struct{}{}
		}
	}

	for _, existing := range ts.Relations() {
		p := pair{existing.From, existing.To}
		w, ok := want[p]
		if ok && w == existing {
			delete(want, p)
			continue
		}
		if !ok {
			rewired[p.to] = struct{}{}
		}
		ts.RemoveRelation(ctx, existing.From, existing.To)
		res.RelationsRemoved++
	}

	for _, p := range order {
		rel, ok := want[p]
		if !ok {
			continue
		}
		if err := ts.AddRelation(ctx, rel); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		res.RelationsAdded++
	}
	// Swapped-in topologies start without tombstones.
	if ts.Tombstones() > 0 {
		ts.Compact()
	}
	return nil
}
