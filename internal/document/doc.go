// Package document is the engine's view of the host data model: addressable
// elements with a type tag, grouped in a document.
//
// The concrete field layout of host data is out of scope; the engine only
// needs identities. A Document also carries the process-wide coordination
// point between structural edits and evaluation passes, and the queue of tags
// recorded before any graph instance exists for it.
package document
