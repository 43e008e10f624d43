// Package pathguard canonicalizes filesystem references and rejects any
// resolved path that, after symlink and ".." resolution, is not a
// descendant of a declared root. It is the only defense against the Go
// toolchain silently honoring symlinks or replace directives that lead
// outside the project (dh-make-golang's findVendorDirs walks a tree with
// filepath.Rel but never checks containment; this package adds that
// check as a hard gate).
package pathguard

import (
	"path/filepath"
	"strings"

	"github.com/hermeto/gomodprefetch/internal/errs"
)

// Root is a canonicalized root directory that relative references are
// checked against.
type Root struct {
	abs string
}

// NewRoot canonicalizes dir (resolving symlinks) and returns a Root.
func NewRoot(dir string) (Root, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Root{}, err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return Root{}, err
	}
	return Root{abs: resolved}, nil
}

// String returns the canonicalized root path.
func (r Root) String() string { return r.abs }

// Resolve joins rel onto the root, resolves symlinks and ".." segments,
// and rejects the result with *errs.PathOutsideRoot if it escapes the
// root. rel may itself already be absolute (e.g. a local replacement
// target given as an absolute path).
func (r Root) Resolve(rel string) (string, error) {
	var joined string
	if filepath.IsAbs(rel) {
		joined = rel
	} else {
		joined = filepath.Join(r.abs, rel)
	}

	resolved, err := evalSymlinksBestEffort(joined)
	if err != nil {
		return "", err
	}

	if !isDescendant(r.abs, resolved) {
		return "", &errs.PathOutsideRoot{Root: r.abs, Resolved: resolved}
	}
	return resolved, nil
}

// evalSymlinksBestEffort resolves symlinks for path, walking up to the
// nearest existing ancestor when path itself does not yet exist (e.g. a
// file we are about to create inside the workspace).
func evalSymlinksBestEffort(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	dir, base := filepath.Split(path)
	dir = filepath.Clean(dir)
	if dir == path {
		return path, nil
	}
	resolvedDir, err2 := evalSymlinksBestEffort(dir)
	if err2 != nil {
		return "", err
	}
	return filepath.Join(resolvedDir, base), nil
}

func isDescendant(root, candidate string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return true
}
