package hclscene

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes all top-level blocks of a scene file.
type fileRoot struct {
	Elements []*elementBlock `hcl:"element,block"`
	Remain   hcl.Body        `hcl:",remain"`
}

type elementBlock struct {
	Type       string            `hcl:"type,label"`
	ID         string            `hcl:"id,label"`
	Name       string            `hcl:"name,optional"`
	Operations []*operationBlock `hcl:"operation,block"`
}

type operationBlock struct {
	Component     string           `hcl:"component,label"`
	Name          string           `hcl:"name,label"`
	Kind          string           `hcl:"kind"`
	Index         *int             `hcl:"index,optional"`
	TimeDependent bool             `hcl:"time_dependent,optional"`
	Arguments     *argumentsBlock  `hcl:"arguments,block"`
	Relations     []*relationBlock `hcl:"relation,block"`
}

type argumentsBlock struct {
	Body hcl.Body `hcl:",remain"`
}

type relationBlock struct {
	From     string         `hcl:"from,label"`
	Triggers hcl.Expression `hcl:"triggers,optional"`
	NoFlush  bool           `hcl:"no_flush,optional"`
	Name     string         `hcl:"name,optional"`
}
