package vendormutation

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/hermeto/gomodprefetch/internal/errs"
)

func gitCmdOrFatal(t *testing.T, dir string, arg ...string) {
	t.Helper()
	cmd := exec.Command("git", arg...)
	cmd.Dir = dir
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("could not run %v: %v", cmd.Args, err)
	}
}

func newCommittedVendorRepo(t *testing.T) (repoRoot, vendorDir string) {
	t.Helper()
	dir := t.TempDir()
	gitCmdOrFatal(t, dir, "init", "-q")
	gitCmdOrFatal(t, dir, "config", "user.email", "unittest@example.com")
	gitCmdOrFatal(t, dir, "config", "user.name", "Unit Test")

	vendor := filepath.Join(dir, "vendor")
	if err := os.MkdirAll(vendor, 0o755); err != nil {
		t.Fatalf("mkdir vendor: %v", err)
	}
	if err := os.WriteFile(filepath.Join(vendor, "modules.txt"), []byte("# example.com/m v1.0.0\nexample.com/m/pkg\n"), 0o644); err != nil {
		t.Fatalf("write modules.txt: %v", err)
	}
	if err := os.WriteFile(filepath.Join(vendor, "example.go"), []byte("package m\n"), 0o644); err != nil {
		t.Fatalf("write vendored file: %v", err)
	}
	gitCmdOrFatal(t, dir, "add", "vendor")
	gitCmdOrFatal(t, dir, "commit", "-q", "-m", "vendor example.com/m")
	return dir, vendor
}

func TestDetectNoMutation(t *testing.T) {
	repoRoot, vendorDir := newCommittedVendorRepo(t)
	mutated, err := Detect(repoRoot, vendorDir)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if mutated {
		t.Errorf("Detect() = true, want false (vendor tree is unchanged)")
	}
}

func TestDetectManifestMutation(t *testing.T) {
	repoRoot, vendorDir := newCommittedVendorRepo(t)
	if err := os.WriteFile(filepath.Join(vendorDir, "modules.txt"), []byte("# example.com/m v1.0.1\nexample.com/m/pkg\n"), 0o644); err != nil {
		t.Fatalf("rewrite modules.txt: %v", err)
	}
	_, err := Detect(repoRoot, vendorDir)
	if err == nil {
		t.Fatalf("expected an error for a changed manifest")
	}
	if _, ok := err.(*errs.PackageRejected); !ok {
		t.Errorf("error = %v, want *errs.PackageRejected", err)
	}
}

func TestDetectNewVendoredFile(t *testing.T) {
	repoRoot, vendorDir := newCommittedVendorRepo(t)
	if err := os.WriteFile(filepath.Join(vendorDir, "extra.go"), []byte("package m\n"), 0o644); err != nil {
		t.Fatalf("write extra file: %v", err)
	}
	_, err := Detect(repoRoot, vendorDir)
	if err == nil {
		t.Fatalf("expected an error for a new untracked file under vendor/")
	}
}

func TestDetectResetsStagingAreaOnMutation(t *testing.T) {
	repoRoot, vendorDir := newCommittedVendorRepo(t)
	if err := os.WriteFile(filepath.Join(vendorDir, "extra.go"), []byte("package m\n"), 0o644); err != nil {
		t.Fatalf("write extra file: %v", err)
	}
	if _, err := Detect(repoRoot, vendorDir); err == nil {
		t.Fatalf("expected an error for a new untracked file under vendor/")
	}

	cmd := exec.Command("git", "status", "--porcelain")
	cmd.Dir = repoRoot
	out, err := cmd.Output()
	if err != nil {
		t.Fatalf("git status: %v", err)
	}
	if want := "?? vendor/extra.go"; string(out) != want+"\n" {
		t.Errorf("git status --porcelain = %q, want %q (staging must be reset after Detect)", out, want)
	}
}
