// Package inmemorystore provides a thread-safe, in-memory implementation of
// the nodestore.Store interface.
//
// # Concurrency Model
//
// Unlike inmemorytopology which uses an RWMutex, this store keeps one entry
// per handle in a sync.Map. Workers update different nodes at the same time
// and the set of keys only changes on a rebuild, which is the access pattern
// sync.Map is built for. Each entry has its own small mutex so that the dirty
// flag and the mask change together.
package inmemorystore
