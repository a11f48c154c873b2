package config

import (
	"fmt"

	"github.com/vk/depsgraph/internal/builder"
	"github.com/vk/depsgraph/internal/document"
	"github.com/vk/depsgraph/internal/node"
	"github.com/vk/depsgraph/internal/nodeid"
	"github.com/vk/depsgraph/internal/recalc"
	"github.com/vk/depsgraph/internal/topologystore"
	"github.com/zclconf/go-cty/cty"
)

// Scene is the unified, format-agnostic representation of a scene.
type Scene struct {
	Elements []*Element
}

// Element is one data element of the document.
type Element struct {
	Type       string
	ID         string
	Name       string
	Operations []*Operation
}

// Operation is one operation node owned by an element.
type Operation struct {
	Component     string
	Name          string
	Index         *int
	Kind          string
	TimeDependent bool
	Arguments     map[string]cty.Value
	Relations     []*Relation
}

// Relation makes the enclosing operation depend on From.
type Relation struct {
	From string
	// Triggers gates a conditional relation. Zero means unconditional.
	Triggers recalc.Flag
	NoFlush  bool
	Name     string
}

// Key returns the operation key of op within element el.
func (op *Operation) Key(el *Element) nodeid.Key {
	if op.Index != nil {
		return nodeid.NewIndexed(el.ID, op.Component, op.Name, *op.Index)
	}
	return nodeid.New(el.ID, op.Component, op.Name)
}

// Document creates a document holding every element of the scene.
func (s *Scene) Document(name string) (*document.Document, error) {
	doc := document.New(name)
	for _, el := range s.Elements {
		err := doc.AddElement(document.Element{ID: document.ID(el.ID), Type: document.Type(el.Type), Name: el.Name})
		if err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// Description converts the scene into a graph build description.
func (s *Scene) Description() (builder.Description, error) {
	var d builder.Description
	seen := make(map[nodeid.Key]bool)
	for _, el := range s.Elements {
		for _, op := range el.Operations {
			key := op.Key(el)
			if seen[key] {
				return builder.Description{}, fmt.Errorf("element %s: duplicate operation %s", el.ID, key)
			}
			seen[key] = true

			var flags node.Flags
			if op.TimeDependent {
				flags |= node.TimeDependent
			}
			d.Nodes = append(d.Nodes, builder.NodeSpec{Key: key, Kind: op.Kind, Args: op.Arguments, Flags: flags})

			for _, rel := range op.Relations {
				from, err := nodeid.Parse(rel.From)
				if err != nil {
					return builder.Description{}, fmt.Errorf("operation %s: relation source: %w", key, err)
				}
				spec := builder.RelationSpec{From: from, To: key, Name: rel.Name}
				if rel.Triggers != 0 {
					spec.Kind = topologystore.Conditional
					spec.Triggers = rel.Triggers
				}
				if rel.NoFlush {
					spec.Flags |= topologystore.NoFlush
				}
				d.Relations = append(d.Relations, spec)
			}
		}
	}
	return d, nil
}

// Merge appends the elements of other. Element IDs must stay unique.
func (s *Scene) Merge(other *Scene) error {
	ids := make(map[string]bool, len(s.Elements))
	for _, el := range s.Elements {
		ids[el.ID] = true
	}
	for _, el := range other.Elements {
		if ids[el.ID] {
			return fmt.Errorf("element %q defined more than once", el.ID)
		}
		ids[el.ID] = true
		s.Elements = append(s.Elements, el)
	}
	return nil
}
