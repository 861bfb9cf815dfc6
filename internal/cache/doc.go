// Package cache keeps all indexed chunk vectors in memory.
//
// Query scoring reads only from this cache; SQLite is the durable copy and
// is consulted once per process, when Warm rebuilds the cache after a
// restart. Indexing keeps the two in step by calling SetFile and RemoveFile
// alongside the corresponding storage writes.
package cache
