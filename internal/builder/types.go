package builder

import (
	"github.com/vk/depsgraph/internal/node"
	"github.com/vk/depsgraph/internal/nodeid"
	"github.com/vk/depsgraph/internal/recalc"
	"github.com/vk/depsgraph/internal/topologystore"
	"github.com/zclconf/go-cty/cty"
)

// NodeSpec describes one operation node.
type NodeSpec struct {
	Key   nodeid.Key
	Kind  string
	Args  map[string]cty.Value
	Flags node.Flags
}

// RelationSpec describes one relation: To depends on From.
type RelationSpec struct {
	From     nodeid.Key
	To       nodeid.Key
	Kind     topologystore.RelationKind
	Triggers recalc.Flag
	Flags    topologystore.RelationFlags
	Name     string
}

// Description is the full desired shape of a graph.
type Description struct {
	Nodes     []NodeSpec
	Relations []RelationSpec
}

// Result summarizes what an Apply changed.
type Result struct {
	Unchanged        bool
	Fingerprint      [32]byte
	Added            []topologystore.Handle
	Removed          []topologystore.Handle
	RelationsAdded   int
	RelationsRemoved int
	// Touched lists the elements that gained, lost or replaced nodes.
	Touched []string
	// Elements maps the elements owning nodes dirtied by the change, new
	// nodes and their dependents included, to the reasons that reached them.
	Elements map[string]recalc.Flag
}
