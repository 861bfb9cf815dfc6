// Package storage persists indexed files and chunk vectors in SQLite, one
// database file per project.
//
// Projects are addressed by a stable hash of their absolute root path
// (ProjectID), so identical roots reuse the same database and distinct
// roots never collide:
//
//	store, err := storage.Open(indexDir, "/home/dev/myproject")
//	defer store.Close()
//
// # Atomicity
//
// ReplaceFileChunks and DeleteFile each run as a single transaction: a
// file's chunk set is all-old or all-new across any call boundary, and any
// failure rolls back fully to the pre-call state. WAL mode lets search-side
// reads interleave with indexing writes without observing a half-written
// chunk set.
//
// The store provides transaction atomicity but not cross-process
// exclusivity; the index coordinator serializes concurrent writes to the
// same path with its per-path locks.
//
// # Vectors
//
// Vectors are stored as little-endian float32 blobs. LoadAllVectors streams
// the full chunk set once to warm the in-memory embedding cache; per-query
// scans of the database are never performed.
//
// # Drivers
//
// Two drivers are supported via build tags: the pure Go modernc.org/sqlite
// (default) and mattn/go-sqlite3 behind the cgo_sqlite tag.
package storage
