// Package record implements the tinydoc record store.
//
// Owns:
//   - Record and Collection types, and the Schema that names a collection
//   - The document codec (collection <-> persisted JSON document)
//   - Store: id assignment and serialized read-modify-write over a Backend
//
// Does not own:
//   - Durable backends other than MemoryBackend (see internal/storage)
//   - HTTP routing and request validation (see internal/server)
//
// Invariants:
//   - Ids are unique within a collection and never reissued, even after delete
//   - NextID is always greater than every id ever issued
//   - Every mutation runs load -> mutate -> save under Store.mu
//   - Backends replace the whole document on Save; readers see the old or the new state
package record
