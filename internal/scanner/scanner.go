package scanner

import (
	"crypto/sha256"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/vecgrep/vecgrep/pkg/types"
)

// MaxFileSize caps the files considered for indexing. Larger files are
// skipped silently; they are almost always generated or vendored.
const MaxFileSize = 1 << 20 // 1 MiB

// ScannedFile is one candidate file found under the project root.
type ScannedFile struct {
	RelPath     string
	ContentHash [32]byte
	Size        int64
}

// Diff classifies scanned files against the stored file set.
type Diff struct {
	// Changed holds files that are new or whose content hash differs
	Changed []ScannedFile
	// Unchanged holds files whose stored hash matches the current content
	Unchanged []ScannedFile
	// Orphaned holds stored paths no longer present on disk
	Orphaned []string
}

// Matcher decides which files are eligible for indexing based on
// extension. Satisfied by the chunker.
type Matcher interface {
	Supports(path string) bool
}

// Scanner walks a project tree and produces the deterministic, filtered,
// hashed file list that drives incremental indexing.
type Scanner struct {
	matcher      Matcher
	extraIgnores []string
}

// New creates a Scanner. extraIgnores are doublestar glob patterns applied
// relative to the root, in addition to .gitignore rules.
func New(matcher Matcher, extraIgnores []string) *Scanner {
	return &Scanner{matcher: matcher, extraIgnores: extraIgnores}
}

// Scan walks root and returns eligible files sorted by relative path.
// Per-file read failures are collected as ScanError values and returned
// alongside the successful entries; only a root-level failure aborts the
// scan.
func (s *Scanner) Scan(root string) ([]ScannedFile, []error, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, nil, &types.ScanError{Path: absRoot, Err: err}
	}
	if !info.IsDir() {
		return nil, nil, &types.ScanError{Path: absRoot, Err: fmt.Errorf("not a directory")}
	}

	ignorer := loadGitignore(absRoot)

	var files []ScannedFile
	var softErrors []error

	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			softErrors = append(softErrors, &types.ScanError{Path: path, Err: err})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(absRoot, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if s.skipDir(d.Name(), rel, ignorer) {
				return filepath.SkipDir
			}
			return nil
		}

		// Symlinks are not followed
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		if s.skipFile(rel, ignorer) {
			return nil
		}
		if !s.matcher.Supports(path) {
			return nil
		}

		fi, statErr := d.Info()
		if statErr != nil {
			softErrors = append(softErrors, &types.ScanError{Path: rel, Err: statErr})
			return nil
		}
		if fi.Size() > MaxFileSize {
			return nil
		}

		content, readErr := os.ReadFile(path)
		if readErr != nil {
			softErrors = append(softErrors, &types.ScanError{Path: rel, Err: readErr})
			return nil
		}

		files = append(files, ScannedFile{
			RelPath:     rel,
			ContentHash: sha256.Sum256(content),
			Size:        fi.Size(),
		})
		return nil
	})
	if walkErr != nil {
		return nil, softErrors, fmt.Errorf("failed to walk %s: %w", absRoot, walkErr)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, softErrors, nil
}

func (s *Scanner) skipDir(name, rel string, ignorer *gitignore.GitIgnore) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	switch name {
	case "node_modules", "vendor", "target", "dist", "build", "__pycache__":
		return true
	}
	if ignorer != nil && ignorer.MatchesPath(rel+"/") {
		return true
	}
	return s.matchesExtraIgnore(rel)
}

func (s *Scanner) skipFile(rel string, ignorer *gitignore.GitIgnore) bool {
	base := filepath.Base(rel)
	if strings.HasPrefix(base, ".") {
		return true
	}
	if ignorer != nil && ignorer.MatchesPath(rel) {
		return true
	}
	return s.matchesExtraIgnore(rel)
}

func (s *Scanner) matchesExtraIgnore(rel string) bool {
	for _, pattern := range s.extraIgnores {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func loadGitignore(root string) *gitignore.GitIgnore {
	ignorer, err := gitignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return ignorer
}

// DiffFiles compares scanned files against stored (path -> hash) state.
// Orphaned paths come back sorted for deterministic cleanup order.
func DiffFiles(scanned []ScannedFile, stored map[string][32]byte) Diff {
	var diff Diff
	seen := make(map[string]bool, len(scanned))

	for _, f := range scanned {
		seen[f.RelPath] = true
		if hash, ok := stored[f.RelPath]; ok && hash == f.ContentHash {
			diff.Unchanged = append(diff.Unchanged, f)
		} else {
			diff.Changed = append(diff.Changed, f)
		}
	}

	for path := range stored {
		if !seen[path] {
			diff.Orphaned = append(diff.Orphaned, path)
		}
	}
	sort.Strings(diff.Orphaned)

	return diff
}
