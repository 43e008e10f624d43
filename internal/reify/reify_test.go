package reify

import (
	"os"
	"os/exec"
	"strings"
	"testing"
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

func commitOrFatal(t *testing.T, dir, file, content, message, date string) {
	t.Helper()
	if err := os.WriteFile(dir+"/"+file, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", file, err)
	}
	gitCmdOrFatal(t, dir, "add", file)
	cmd := exec.Command("git", "commit", "-q", "-m", message)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_COMMITTER_DATE="+date, "GIT_AUTHOR_DATE="+date)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func newRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	gitCmdOrFatal(t, dir, "init", "-q")
	gitCmdOrFatal(t, dir, "config", "user.email", "unittest@example.com")
	gitCmdOrFatal(t, dir, "config", "user.name", "Unit Test")
	return dir
}

func TestReifyPseudoVersionNoTags(t *testing.T) {
	dir := newRepo(t)
	commitOrFatal(t, dir, "README", "v1", "initial commit", "2015-04-20T11:22:33")

	got, err := Reify(Request{ModuleName: "example.com/mod", AppDir: dir, RepoRoot: dir})
	if err != nil {
		t.Fatalf("Reify: %v", err)
	}
	if want := "v0.0.0-20150420112233-"; !strings.HasPrefix(got, want) {
		t.Errorf("Reify() = %q, want prefix %q", got, want)
	}
}

func TestReifyExactTag(t *testing.T) {
	dir := newRepo(t)
	commitOrFatal(t, dir, "README", "v1", "initial commit", "2015-04-20T11:22:33")
	gitCmdOrFatal(t, dir, "tag", "-a", "v1.2.3", "-m", "release v1.2.3")

	got, err := Reify(Request{ModuleName: "example.com/mod", AppDir: dir, RepoRoot: dir})
	if err != nil {
		t.Fatalf("Reify: %v", err)
	}
	if got != "v1.2.3" {
		t.Errorf("Reify() = %q, want v1.2.3", got)
	}
}

func TestReifyPseudoVersionAfterTag(t *testing.T) {
	dir := newRepo(t)
	commitOrFatal(t, dir, "README", "v1", "initial commit", "2015-04-20T11:22:33")
	gitCmdOrFatal(t, dir, "tag", "-a", "v1.2.3", "-m", "release v1.2.3")
	commitOrFatal(t, dir, "README", "v2", "second commit", "2015-05-07T11:22:33")

	got, err := Reify(Request{ModuleName: "example.com/mod", AppDir: dir, RepoRoot: dir})
	if err != nil {
		t.Fatalf("Reify: %v", err)
	}
	if want := "v1.2.4-0.20150507112233-"; !strings.HasPrefix(got, want) {
		t.Errorf("Reify() = %q, want prefix %q (patch bumped past the last tag)", got, want)
	}
}

func TestReifyModuleMajorConstrainsTagSelection(t *testing.T) {
	dir := newRepo(t)
	commitOrFatal(t, dir, "README", "v1", "initial commit", "2015-04-20T11:22:33")
	gitCmdOrFatal(t, dir, "tag", "-a", "v1.9.9", "-m", "v1 release")
	gitCmdOrFatal(t, dir, "tag", "-a", "v2.0.0", "-m", "v2 release")

	got, err := Reify(Request{ModuleName: "example.com/mod/v2", AppDir: dir, RepoRoot: dir})
	if err != nil {
		t.Fatalf("Reify: %v", err)
	}
	if got != "v2.0.0" {
		t.Errorf("Reify() = %q, want v2.0.0 (module path declares major v2)", got)
	}
}

func TestReifyPseudoVersionAfterPrereleaseTag(t *testing.T) {
	dir := newRepo(t)
	commitOrFatal(t, dir, "README", "v1", "initial commit", "2015-04-20T11:22:33")
	gitCmdOrFatal(t, dir, "tag", "-a", "v2.0.0-alpha", "-m", "v2 prerelease")
	commitOrFatal(t, dir, "README", "v2", "second commit", "2024-01-02T03:04:05")

	got, err := Reify(Request{ModuleName: "example.com/mod/v2", AppDir: dir, RepoRoot: dir})
	if err != nil {
		t.Fatalf("Reify: %v", err)
	}
	if want := "v2.0.0-alpha.0.20240102030405-"; !strings.HasPrefix(got, want) {
		t.Errorf("Reify() = %q, want prefix %q (prerelease base keeps its suffix, dot-separated)", got, want)
	}
}

func TestReifySubpathPrefixedTags(t *testing.T) {
	dir := newRepo(t)
	if err := os.Mkdir(dir+"/sub", 0o755); err != nil {
		t.Fatalf("mkdir sub: %v", err)
	}
	commitOrFatal(t, dir, "sub/README", "v1", "initial commit", "2015-04-20T11:22:33")
	gitCmdOrFatal(t, dir, "tag", "-a", "sub/v1.0.0", "-m", "sub release")

	got, err := Reify(Request{ModuleName: "example.com/mod/sub", AppDir: dir + "/sub", RepoRoot: dir})
	if err != nil {
		t.Fatalf("Reify: %v", err)
	}
	if got != "v1.0.0" {
		t.Errorf("Reify() = %q, want v1.0.0 (subpath-prefixed tag)", got)
	}
}
