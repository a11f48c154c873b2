// Package inmemorytopology provides a thread-safe, in-memory implementation
// of the topologystore.Store interface: an arena of node slots with a free
// list and a flat relation table with tombstones.
package inmemorytopology
