// internal/nodeid/doc.go

/*
Package nodeid provides the structured identifier of an operation node,
based on the canonical format `element/component/op` with an optional
`[index]` suffix on the operation, e.g. `OBCube/transform/local` or
`OBCube/modifier/array[2]`.

Element is the identity of the owning data element, Component groups the
operations of one aspect of that element (transform, geometry, shading) and
Op names the operation itself. The package centralizes formatting and parsing
so that scene files, logs and traces agree on a single spelling.
*/
package nodeid
