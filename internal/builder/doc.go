/*
Package builder turns a graph Description into the live topology of an
instance, and keeps it up to date when the description changes.

Every Apply is an incremental diff against the current topology, run in phases:

 1. Fingerprint: the description is hashed. An unchanged description is a
    no-op and leaves the graph alone.

 2. Node diff: on a clone of the live topology, nodes whose key disappeared
    from the description (or whose kind, arguments or flags changed) are
    removed together with their relations. New nodes get their operation body
    from the registry and are added.

 3. Relation diff: relations are matched by their (from, to) pair. Vanished
    pairs are removed, changed ones are replaced and new ones added. A
    relation naming a node the description does not contain is an error.

 4. Validation: the clone must be acyclic.

Only when every phase succeeded is the clone swapped in as the live topology
and the new nodes marked dirty. On any error the instance keeps exactly the
topology it had before, so a build is all-or-nothing.
*/
package builder
