// Package config defines the format-agnostic scene model: the elements of a
// document, the operations that evaluate them and the relations between those
// operations. A Loader reads the model from some source; Scene.Description
// turns it into the input of a graph build.
//
// Concrete loaders, such as for HCL, live in separate packages.
package config
