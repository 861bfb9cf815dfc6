//go:build !cgo_sqlite

package storage

// This file is compiled when building without the cgo_sqlite tag. It uses a
// pure Go SQLite implementation:
//   - No C compiler required
//   - Cross-platform compilation
//   - Suitable for development and typical codebases
//
// Driver used: modernc.org/sqlite

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
