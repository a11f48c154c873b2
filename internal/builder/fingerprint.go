package builder

import (
	"encoding/binary"
	"sort"

	"lukechampine.com/blake3"
)

type hashWriter struct {
	buf []byte
}

func (w *hashWriter) str(s string) {
	w.buf = binary.AppendUvarint(w.buf, uint64(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *hashWriter) num(n uint64) {
	w.buf = binary.AppendUvarint(w.buf, n)
}

func (w *hashWriter) node(n NodeSpec) {
	w.str(n.Key.String())
	w.str(n.Kind)
	w.num(uint64(n.Flags))
	names := make([]string, 0, len(n.Args))
	for name := range n.Args {
		names = append(names, name)
	}
	sort.Strings(names)
	w.num(uint64(len(names)))
	for _, name := range names {
		w.str(name)
		w.str(n.Args[name].GoString())
	}
}

// nodeSignature identifies everything about a node that requires replacing it
// when it changes.
func nodeSignature(n NodeSpec) [32]byte {
	var w hashWriter
	w.node(n)
	return blake3.Sum256(w.buf)
}

// Fingerprint hashes a description independently of the order its nodes and
// relations are listed in.
func Fingerprint(d Description) [32]byte {
	nodes := append([]NodeSpec(nil), d.Nodes...)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Key.Less(nodes[j].Key) })
	rels := append([]RelationSpec(nil), d.Relations...)
	sort.Slice(rels, func(i, j int) bool {
		if rels[i].From != rels[j].From {
			return rels[i].From.Less(rels[j].From)
		}
		return rels[i].To.Less(rels[j].To)
	})

	var w hashWriter
	w.num(uint64(len(nodes)))
	for _, n := range nodes {
		w.node(n)
	}
	w.num(uint64(len(rels)))
	for _, r := range rels {
		w.str(r.From.String())
		w.str(r.To.String())
		w.num(uint64(r.Kind))
		w.num(uint64(r.Triggers))
		w.num(uint64(r.Flags))
		w.str(r.Name)
	}
	return blake3.Sum256(w.buf)
}
