// Package reify implements the version reifier (spec §4.8): it computes
// the canonical version string the Go toolchain would assign to the
// main module from the local version-control history, including the
// pseudo-version algorithm. It generalizes dh-make-golang's
// pkgVersionFromGit (version.go) — which derives a date-stamped Debian
// upstream version from the same git describe/tag data — into the Go
// toolchain's actual pseudo-version scheme.
package reify

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/hermeto/gomodprefetch/internal/errs"
	"github.com/hermeto/gomodprefetch/internal/gitutil"
)

// moduleMajorRegexp extracts a trailing "/vN" (N >= 2) module major
// version suffix from a module path.
var moduleMajorRegexp = regexp.MustCompile(`/v([2-9][0-9]*)$`)

// Request parameterizes one reification.
type Request struct {
	ModuleName string
	AppDir     string // directory containing the module's go.mod
	RepoRoot   string // root of the enclosing git working copy
	Commit     string // optional; "" or "HEAD" means the current HEAD
	UpdateTags bool
}

// Reify computes the version string, in the format `go list` would
// emit, for the module described by req.
func Reify(req Request) (string, error) {
	repo, err := gitutil.Open(req.RepoRoot)
	if err != nil {
		return "", err
	}

	if req.UpdateTags {
		if err := repo.FetchTagsForce("origin"); err != nil {
			return "", err
		}
	}

	target, err := repo.ResolveCommit(req.Commit)
	if err != nil {
		return "", err
	}

	subpath, err := modulePath(req.RepoRoot, req.AppDir)
	if err != nil {
		return "", err
	}

	moduleMajor, hasModuleMajor := parseModuleMajor(req.ModuleName)
	candidates := majorCandidates(moduleMajor, hasModuleMajor)

	prefix := "v"
	if subpath != "" {
		prefix = subpath + "/v"
	}

	if _, ver, ok, err := exactTagMatch(repo, target, candidates, prefix, subpath); err != nil {
		return "", err
	} else if ok {
		return ver, nil
	}

	pseudoBase, hasPseudoBase, err := pseudoBaseLookup(repo, target, candidates, prefix, subpath)
	if err != nil {
		return "", err
	}

	commitTime, err := repo.CommitTime(target)
	if err != nil {
		return "", err
	}
	timestamp := commitTime.Format("20060102150405")
	hash := gitutil.ShortHash(target, 12)

	if !hasPseudoBase {
		major := 0
		if hasModuleMajor {
			major = moduleMajor
		}
		return fmt.Sprintf("v%d.0.0-%s-%s", major, timestamp, hash), nil
	}

	return synthesizePseudoVersion(pseudoBase, timestamp, hash), nil
}

// modulePath returns appDir's path relative to repoRoot, using forward
// slashes, or "" if they are the same directory.
func modulePath(repoRoot, appDir string) (string, error) {
	rel, err := filepath.Rel(repoRoot, appDir)
	if err != nil {
		return "", fmt.Errorf("compute module subpath: %w", err)
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return "", nil
	}
	return rel, nil
}

func parseModuleMajor(moduleName string) (major int, ok bool) {
	m := moduleMajorRegexp.FindStringSubmatch(moduleName)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// majorCandidates returns the major-version candidate list: [moduleMajor]
// if known, otherwise [1, 0] (v1 preferred over v0 when both exist).
func majorCandidates(moduleMajor int, hasModuleMajor bool) []int {
	if hasModuleMajor {
		return []int{moduleMajor}
	}
	return []int{1, 0}
}

// parsedTag is a tag stripped of its subpath prefix and leading "v",
// paired with its canonical semver string for comparison.
type parsedTag struct {
	name    string // original tag name, with subpath prefix stripped
	version string // "v" + the tag's version text, valid per semver.IsValid (may be shorthand like "v1.2")
}

// filterAndRank strips prefix from each candidate tag name, parses the
// remainder as semver, discards anything that fails to parse or whose
// major version isn't in majors, and returns the highest-ranked
// survivor.
func filterAndRank(tagNames []string, prefix string, majors []int) (parsedTag, bool) {
	majorSet := make(map[int]bool, len(majors))
	for _, m := range majors {
		majorSet[m] = true
	}

	var best parsedTag
	haveBest := false

	for _, name := range tagNames {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		stripped := strings.TrimPrefix(name, prefix)
		versionStr := "v" + stripped
		if !semver.IsValid(versionStr) {
			continue
		}
		majorStr := semver.Major(versionStr) // e.g. "v2"
		majorNum, err := strconv.Atoi(strings.TrimPrefix(majorStr, "v"))
		if err != nil || !majorSet[majorNum] {
			continue
		}

		candidate := parsedTag{name: strings.TrimPrefix(name, tagPrefixToStrip(prefix)), version: versionStr}
		if !haveBest || semver.Compare(candidate.version, best.version) > 0 {
			best = candidate
			haveBest = true
		}
	}
	return best, haveBest
}

// tagPrefixToStrip returns the subpath portion of prefix (without the
// trailing "v"), which is what gets stripped from the returned tag name
// (the leading "v" of the version itself is kept in the name).
func tagPrefixToStrip(prefix string) string {
	return strings.TrimSuffix(prefix, "v")
}

func exactTagMatch(repo *gitutil.Repo, target plumbing.Hash, majors []int, prefix, subpath string) (string, string, bool, error) {
	tagsAt, err := repo.TagsAt(target)
	if err != nil {
		return "", "", false, err
	}
	best, ok := filterAndRank(tagsAt, prefix, majors)
	if !ok {
		return "", "", false, nil
	}
	return best.name, best.version, true, nil
}

func pseudoBaseLookup(repo *gitutil.Repo, target plumbing.Hash, majors []int, prefix, subpath string) (string, bool, error) {
	tagsMerged, err := repo.TagsMergedInto(target)
	if err != nil {
		return "", false, err
	}
	best, ok := filterAndRank(tagsMerged, prefix, majors)
	if !ok {
		return "", false, nil
	}
	return best.version, true, nil
}

// synthesizePseudoVersion applies the Go toolchain's pseudo-version
// rules given a base tag's canonical semver string:
//
//	base has a prerelease component  -> vX.Y.Z-pre.0.<ts>-<hash>
//	base has no prerelease           -> vX.Y.(Z+1)-0.<ts>-<hash>
func synthesizePseudoVersion(base, timestamp, hash string) string {
	// Canonicalize: "v1.2" becomes "v1.2.0" and build metadata is dropped.
	base = semver.Canonical(base)
	pre := semver.Prerelease(base) // e.g. "-alpha", or "" if none
	core := strings.TrimSuffix(base, pre)

	if pre != "" {
		return fmt.Sprintf("%s%s.0.%s-%s", core, pre, timestamp, hash)
	}

	bumped, err := bumpPatch(core)
	if err != nil {
		// Defensive: base was canonicalized above, so core is always
		// "vX.Y.Z" and this should not happen.
		return fmt.Sprintf("%s-0.%s-%s", core, timestamp, hash)
	}
	return fmt.Sprintf("%s-0.%s-%s", bumped, timestamp, hash)
}

func bumpPatch(version string) (string, error) {
	trimmed := strings.TrimPrefix(version, "v")
	parts := strings.SplitN(trimmed, ".", 3)
	if len(parts) != 3 {
		return "", &errs.UnexpectedFormat{Source: "pseudo-version base", Line: version}
	}
	patch, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", &errs.UnexpectedFormat{Source: "pseudo-version base", Line: version, Cause: err}
	}
	return fmt.Sprintf("v%s.%s.%d", parts[0], parts[1], patch+1), nil
}
