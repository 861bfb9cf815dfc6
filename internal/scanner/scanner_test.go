package scanner

import (
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vecgrep/vecgrep/internal/chunker"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func relPaths(files []ScannedFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.RelPath
	}
	return out
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, "lib/util.py", "def f(): pass")
	writeFile(t, root, "README.md", "# readme")
	writeFile(t, root, "image.png", "not really an image")
	writeFile(t, root, ".hidden.go", "package hidden")
	writeFile(t, root, ".git/config", "[core]")
	writeFile(t, root, "node_modules/dep/index.js", "module.exports = {}")

	s := New(chunker.New(), nil)
	files, softErrs, err := s.Scan(root)
	require.NoError(t, err)
	assert.Empty(t, softErrs)

	assert.Equal(t, []string{"README.md", "lib/util.py", "main.go"}, relPaths(files))
}

func TestScanHashes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a")

	s := New(chunker.New(), nil)
	files, _, err := s.Scan(root)
	require.NoError(t, err)
	require.Len(t, files, 1)

	assert.Equal(t, sha256.Sum256([]byte("package a")), files[0].ContentHash)
	assert.Equal(t, int64(len("package a")), files[0].Size)
}

func TestScanDeterministic(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "b.go", "package b")
	writeFile(t, root, "a.go", "package a")
	writeFile(t, root, "sub/c.go", "package c")

	s := New(chunker.New(), nil)
	first, _, err := s.Scan(root)
	require.NoError(t, err)
	second, _, err := s.Scan(root)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"a.go", "b.go", "sub/c.go"}, relPaths(first))
}

func TestScanGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "generated/\n*.gen.go\n")
	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, "api.gen.go", "package api")
	writeFile(t, root, "generated/out.go", "package out")

	s := New(chunker.New(), nil)
	files, _, err := s.Scan(root)
	require.NoError(t, err)

	assert.Equal(t, []string{"main.go"}, relPaths(files))
}

func TestScanExtraIgnores(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, "testdata/fixture.go", "package fixture")
	writeFile(t, root, "deep/nested/skip.go", "package skip")

	s := New(chunker.New(), []string{"testdata/**", "**/skip.go"})
	files, _, err := s.Scan(root)
	require.NoError(t, err)

	assert.Equal(t, []string{"main.go"}, relPaths(files))
}

func TestScanSymlink(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "real.go", "package real")
	require.NoError(t, os.Symlink(filepath.Join(root, "real.go"), filepath.Join(root, "link.go")))

	s := New(chunker.New(), nil)
	files, _, err := s.Scan(root)
	require.NoError(t, err)

	assert.Equal(t, []string{"real.go"}, relPaths(files))
}

func TestScanMissingRoot(t *testing.T) {
	s := New(chunker.New(), nil)
	_, _, err := s.Scan(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}

func TestScanRootIsFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "file.go", "package f")

	s := New(chunker.New(), nil)
	_, _, err := s.Scan(filepath.Join(root, "file.go"))
	assert.Error(t, err)
}

func TestDiffFiles(t *testing.T) {
	hashA := sha256.Sum256([]byte("a"))
	hashB := sha256.Sum256([]byte("b"))
	hashC := sha256.Sum256([]byte("c"))

	scanned := []ScannedFile{
		{RelPath: "changed.go", ContentHash: hashB},
		{RelPath: "new.go", ContentHash: hashC},
		{RelPath: "same.go", ContentHash: hashA},
	}
	stored := map[string][32]byte{
		"same.go":    hashA,
		"changed.go": hashA,
		"gone.go":    hashA,
		"zap.go":     hashA,
	}

	diff := DiffFiles(scanned, stored)

	assert.Equal(t, []string{"changed.go", "new.go"}, relPaths(diff.Changed))
	assert.Equal(t, []string{"same.go"}, relPaths(diff.Unchanged))
	assert.Equal(t, []string{"gone.go", "zap.go"}, diff.Orphaned)
}

func TestDiffFilesEmpty(t *testing.T) {
	diff := DiffFiles(nil, nil)
	assert.Empty(t, diff.Changed)
	assert.Empty(t, diff.Unchanged)
	assert.Empty(t, diff.Orphaned)
}
