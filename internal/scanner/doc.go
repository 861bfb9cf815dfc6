// Package scanner discovers indexable files under a project root.
//
// The walk skips hidden files and directories, common dependency and build
// output directories, symlinks, and anything matched by the project's
// .gitignore or by extra glob patterns. Surviving files are filtered by the
// chunker's supported extensions, content-hashed with SHA-256, and returned
// sorted by relative path so repeated scans of an unchanged tree produce
// identical output.
//
// DiffFiles then splits the scan result against the stored state into
// changed, unchanged, and orphaned sets, which is the entire basis for
// incremental indexing.
package scanner
