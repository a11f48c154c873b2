// Package recalc defines the unit of invalidation: a bitmask of reasons why an
// element changed.
//
// The set of reasons grows and shrinks over the lifetime of the engine, so the
// enumeration is versioned and every lookup degrades to "unknown" for bits it
// does not recognize instead of failing.
package recalc
