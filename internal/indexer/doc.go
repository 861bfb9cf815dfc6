// Package indexer coordinates incremental index runs.
//
// A run scans the project tree, diffs content hashes against stored state,
// reprocesses only the changed files across a bounded worker pool, and
// removes files that no longer exist on disk. Storage writes and the
// in-memory embedding cache are updated together under per-path locks, so
// concurrent work on the same file serializes while distinct files proceed
// in parallel.
//
// Only one run per project is active at a time; a second request fails
// fast with ErrIndexInProgress rather than queuing.
package indexer
