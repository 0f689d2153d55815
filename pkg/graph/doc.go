// Package graph implements the in-memory knowledge graph store.
//
// The store keeps canonical entities, an alias table built from content
// signatures, and one multi-typed edge per ordered entity pair. A YAML
// validity table restricts which (source type, relation, target type) triples
// may be stored.
//
// Writes go through Store (or Store.Update for batches) and are serialized.
// Reads go through an immutable Snapshot:
//
//	snap := store.Snapshot()
//	id, err := snap.Resolve("Jennie (singer)")
//	if err != nil {
//	    // types.ErrEntityNotFound
//	}
//	for _, r := range snap.Outgoing(id) {
//	    fmt.Println(r.Target, r.Types)
//	}
//
// A snapshot never changes; later writes are only visible to snapshots taken
// after them.
package graph
