// Package registry maps operation kind names used in scene descriptions
// (e.g. "print") to the Go factories that build their operation bodies.
//
// Modules register their kinds at startup. The builder resolves every node of
// a description through the registry, so a description naming an unknown
// kind, or passing arguments the kind does not declare, fails the build
// before any topology changes.
package registry
