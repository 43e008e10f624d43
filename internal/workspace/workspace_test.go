package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewLayout(t *testing.T) {
	ws, err := New("gomodprefetch-test-")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer os.RemoveAll(ws.Root())

	if got, want := ws.GOPATH(), filepath.Join(ws.Root(), "gopath"); got != want {
		t.Errorf("GOPATH() = %q, want %q", got, want)
	}
	if got, want := ws.GOMODCACHE(), filepath.Join(ws.Root(), "gopath", "pkg", "mod"); got != want {
		t.Errorf("GOMODCACHE() = %q, want %q", got, want)
	}
	if ws.PkgModDir() != ws.GOMODCACHE() {
		t.Errorf("PkgModDir() must equal GOMODCACHE()")
	}
}

func TestForceRemoveAllRemovesReadOnlyFiles(t *testing.T) {
	ws, err := New("gomodprefetch-test-")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	modDir := filepath.Join(ws.GOMODCACHE(), "example.com", "pkg@v1.0.0")
	if err := os.MkdirAll(modDir, 0o555); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	readOnlyFile := filepath.Join(modDir, "file.go")
	if err := os.WriteFile(readOnlyFile, []byte("package pkg\n"), 0o444); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := forceRemoveAll(ws.Root()); err != nil {
		t.Fatalf("forceRemoveAll: %v", err)
	}
	if _, err := os.Stat(ws.Root()); !os.IsNotExist(err) {
		t.Errorf("workspace root still exists after forceRemoveAll: %v", err)
	}
}

func TestForceRemoveAllToleratesMissingPath(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "does-not-exist")
	if err := forceRemoveAll(missing); err != nil {
		t.Errorf("forceRemoveAll(missing) = %v, want nil", err)
	}
}

func TestCopyModCacheToPreservesTreeAndContent(t *testing.T) {
	ws, err := New("gomodprefetch-test-")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer os.RemoveAll(ws.Root())

	modDir := filepath.Join(ws.PkgModDir(), "example.com", "pkg@v1.0.0")
	if err := os.MkdirAll(modDir, 0o555); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(modDir, "file.go"), []byte("package pkg\n"), 0o444); err != nil {
		t.Fatalf("write: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "deps", "gomod", "pkg", "mod")
	if err := ws.CopyModCacheTo(dest); err != nil {
		t.Fatalf("CopyModCacheTo: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dest, "example.com", "pkg@v1.0.0", "file.go"))
	if err != nil {
		t.Fatalf("read copied file: %v", err)
	}
	if string(got) != "package pkg\n" {
		t.Errorf("copied content = %q, want %q", got, "package pkg\n")
	}
}

func TestCopyModCacheToToleratesMissingSource(t *testing.T) {
	ws, err := New("gomodprefetch-test-")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer os.RemoveAll(ws.Root())

	if err := ws.CopyModCacheTo(filepath.Join(t.TempDir(), "deps")); err != nil {
		t.Errorf("CopyModCacheTo = %v, want nil when pkg/mod was never populated", err)
	}
}
