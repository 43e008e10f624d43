// Package vendormutation implements the vendor mutation detector (spec
// §4.5): after `go mod vendor` runs in a mode that forbids mutating a
// pre-existing vendor tree, it stages untracked files with intent-to-add
// (never actually staging content), diffs the manifest file
// vendor/modules.txt, then lists the changed file names of the vendor
// subtree (`git diff --name-only`).
// Any non-empty diff is a mutation. The staging area is reset on every
// exit path.
//
// go-git (used everywhere else this core touches a .git directory) has
// no equivalent of `git add --intent-to-add`, so this one component
// shells out to the git binary directly, the way dh-make-golang's
// version.go does for git describe/rev-list/log — the closest idiomatic
// fit given the gap in the library.
package vendormutation

import (
	"bytes"
	"fmt"
	"os/exec"

	"github.com/hermeto/gomodprefetch/internal/errs"
)

// Detect reports whether `go mod vendor` changed the vendor tree rooted
// at vendorDir, by inspecting the enclosing version-control working copy
// at repoRoot. It requires repoRoot to be a git working copy; any other
// kind of root is a fatal configuration error.
func Detect(repoRoot, vendorDir string) (mutated bool, err error) {
	if !isGitWorkingCopy(repoRoot) {
		return false, fmt.Errorf("vendor mutation detection requires a version-control working copy at %s", repoRoot)
	}

	defer func() {
		if resetErr := resetIndex(repoRoot); resetErr != nil && err == nil {
			err = fmt.Errorf("reset staging area: %w", resetErr)
		}
	}()

	if err := intentToAdd(repoRoot, vendorDir); err != nil {
		return false, fmt.Errorf("stage untracked files: %w", err)
	}

	manifestDiff, err := diffNameOnly(repoRoot, vendorDir+"/modules.txt")
	if err != nil {
		return false, err
	}
	if manifestDiff {
		return true, &errs.PackageRejected{
			Reason: "vendor/modules.txt changed after `go mod vendor`; run with an explicit vendor flag or commit the vendor tree",
		}
	}

	vendorDiff, err := diffNameOnly(repoRoot, vendorDir)
	if err != nil {
		return false, err
	}
	if vendorDiff {
		return true, &errs.PackageRejected{
			Reason: fmt.Sprintf("%s changed after `go mod vendor`", vendorDir),
		}
	}

	return false, nil
}

func isGitWorkingCopy(root string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = root
	out, err := cmd.Output()
	return err == nil && string(bytes.TrimSpace(out)) == "true"
}

func intentToAdd(root, path string) error {
	cmd := exec.Command("git", "add", "--intent-to-add", "--", path)
	cmd.Dir = root
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git add --intent-to-add %s: %w: %s", path, err, stderr.Bytes())
	}
	return nil
}

func diffNameOnly(root, path string) (changed bool, err error) {
	cmd := exec.Command("git", "diff", "--name-only", "--", path)
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return false, fmt.Errorf("git diff %s: %w: %s", path, err, stderr.Bytes())
	}
	return len(bytes.TrimSpace(stdout.Bytes())) > 0, nil
}

func resetIndex(root string) error {
	cmd := exec.Command("git", "reset")
	cmd.Dir = root
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git reset: %w: %s", err, stderr.Bytes())
	}
	return nil
}
