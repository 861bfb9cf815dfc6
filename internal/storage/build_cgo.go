//go:build cgo_sqlite

package storage

// This file is compiled when building with CGO and the cgo_sqlite tag:
//
//   CGO_ENABLED=1 go build -tags "cgo_sqlite" ./...
//
// The C implementation is faster on large indexes at the cost of requiring
// a C toolchain.
//
// Driver used: github.com/mattn/go-sqlite3

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)
