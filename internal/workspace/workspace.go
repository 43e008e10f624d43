// Package workspace implements the scoped module-cache workspace: a
// temporary directory whose GOPATH/GOCACHE/GOMODCACHE subtrees back every
// toolchain invocation for one resolution, and whose release always runs
// `go clean -modcache` before attempting removal (direct removal fails
// because the Go module cache marks its files read-only — the same
// problem dh-make-golang's forceRemoveAll works around by chmod'ing
// every file before RemoveAll).
package workspace

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
)

// Workspace is a scoped temporary directory holding one resolution's
// module cache.
type Workspace struct {
	root string
}

// New acquires a fresh scoped temporary directory under the system temp
// dir, named with the given prefix.
func New(prefix string) (*Workspace, error) {
	dir, err := os.MkdirTemp("", prefix)
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{root: dir}, nil
}

// Root returns the workspace's root directory.
func (w *Workspace) Root() string { return w.root }

// GOPATH returns the workspace-scoped GOPATH.
func (w *Workspace) GOPATH() string { return filepath.Join(w.root, "gopath") }

// GOCACHE returns the workspace-scoped GOCACHE.
func (w *Workspace) GOCACHE() string { return filepath.Join(w.root, "gocache") }

// GOMODCACHE returns the workspace-scoped GOMODCACHE.
func (w *Workspace) GOMODCACHE() string { return filepath.Join(w.root, "gopath", "pkg", "mod") }

// Env returns the GOPATH/GOCACHE/GOMODCACHE environment assignments that
// every toolchain invocation within this workspace's scope MUST use.
func (w *Workspace) Env() []string {
	return []string{
		"GOPATH=" + w.GOPATH(),
		"GOCACHE=" + w.GOCACHE(),
		"GOMODCACHE=" + w.GOMODCACHE(),
	}
}

// PkgModDir returns the pkg/mod subtree of the workspace, the part that
// gets copied into the request's persistent download directory in
// download mode.
func (w *Workspace) PkgModDir() string { return w.GOMODCACHE() }

// CopyModCacheTo copies the workspace's pkg/mod subtree into dest,
// preserving the relative tree (spec §6 "On-disk layout": the pkg/mod
// subtree of the workspace is copied into the request's persistent
// download directory). Must run before Release, which deletes the
// workspace outright. Module-cache files are read-only; the copies are
// written with a writable mode so the destination tree behaves like an
// ordinary directory rather than inheriting the cache's protections.
func (w *Workspace) CopyModCacheTo(dest string) error {
	src := w.PkgModDir()
	if _, err := os.Stat(src); os.IsNotExist(err) {
		return nil
	}
	return filepath.Walk(src, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(p, target, info.Mode())
	})
}

func copyFile(src, dest string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode|0o200)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

// Release runs `go clean -modcache` against the workspace (best-effort;
// the module cache marks files read-only so a bare RemoveAll would fail
// partway through) and then removes the workspace directory regardless
// of whether the clean succeeded. Callers MUST defer Release immediately
// after New succeeds.
func (w *Workspace) Release(ctx context.Context) error {
	cleanErr := w.cleanModCache(ctx)

	if err := forceRemoveAll(w.root); err != nil {
		if cleanErr != nil {
			return fmt.Errorf("clean modcache: %v; remove workspace: %w", cleanErr, err)
		}
		return fmt.Errorf("remove workspace: %w", err)
	}
	return cleanErr
}

func (w *Workspace) cleanModCache(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "go", "clean", "-modcache")
	cmd.Dir = w.root
	cmd.Env = append([]string{"PATH=" + os.Getenv("PATH")}, w.Env()...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("go clean -modcache: %w: %s", err, out)
	}
	return nil
}

// forceRemoveAll is a more robust alternative to os.RemoveAll that makes
// every directory writable before removing it, the same pattern
// dh-make-golang uses for its own temp-directory cleanup.
func forceRemoveAll(path string) error {
	err := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return os.Chmod(p, 0o777)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return os.RemoveAll(path)
}
