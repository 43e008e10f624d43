// Package gitutil is the core's go-git based version-control interface:
// parse origin URL, resolve HEAD, fetch tags with force, list tags
// pointing at a commit, list tags merged into a commit, and commit lookup
// by hash. It has no index operations; the vendor mutation detector runs
// the git binary for its add/reset/diff steps. Every operation
// names the repository root explicitly. Built on go-git so the core does
// not depend on a `git` binary on PATH for reads, unlike dh-make-golang
// (a one-shot packaging CLI, where shelling to git is fine) — a
// prefetcher invoked per build benefits from not shelling out for
// something this core does on every request.
package gitutil

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/hermeto/gomodprefetch/internal/errs"
)

// Repo wraps an opened git working copy rooted at a directory.
type Repo struct {
	repo *git.Repository
	root string
}

// Open opens the git working copy containing dir (dir itself, or any
// ancestor holding .git), recording the discovered top-level directory
// as Root() rather than dir itself.
func Open(dir string) (*Repo, error) {
	r, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open git repository at %s: %w", dir, err)
	}
	wt, err := r.Worktree()
	if err != nil {
		return nil, fmt.Errorf("get worktree for %s: %w", dir, err)
	}
	return &Repo{repo: r, root: wt.Filesystem.Root()}, nil
}

// OriginURL returns the "origin" remote's first configured URL.
func (r *Repo) OriginURL() (string, error) {
	remote, err := r.repo.Remote("origin")
	if err != nil {
		return "", fmt.Errorf("get origin remote: %w", err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("origin remote has no URLs")
	}
	return urls[0], nil
}

// ResolveHEAD returns the commit hash HEAD currently points at.
func (r *Repo) ResolveHEAD() (plumbing.Hash, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolve HEAD: %w", err)
	}
	return ref.Hash(), nil
}

// ResolveCommit resolves a commit-ish (hash or "HEAD") to its hash.
func (r *Repo) ResolveCommit(commitIsh string) (plumbing.Hash, error) {
	if commitIsh == "" || strings.EqualFold(commitIsh, "HEAD") {
		return r.ResolveHEAD()
	}
	hash, err := r.repo.ResolveRevision(plumbing.Revision(commitIsh))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolve revision %q: %w", commitIsh, err)
	}
	return *hash, nil
}

// FetchTagsForce fetches all tags from the named remote, overwriting any
// locally conflicting tag refs. A failure is fatal with *errs.FetchError.
func (r *Repo) FetchTagsForce(remoteName string) error {
	err := r.repo.Fetch(&git.FetchOptions{
		RemoteName: remoteName,
		RefSpecs: []config.RefSpec{
			config.RefSpec("+refs/tags/*:refs/tags/*"),
		},
		Force: true,
		Tags:  git.AllTags,
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return &errs.FetchError{Remote: remoteName, Cause: err}
	}
	return nil
}

// Tag is a single tag ref resolved to its target commit.
type Tag struct {
	Name   string // without the "refs/tags/" prefix
	Commit plumbing.Hash
}

// AllTags lists every tag in the repository, resolving annotated tags to
// their target commit.
func (r *Repo) AllTags() ([]Tag, error) {
	iter, err := r.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer iter.Close()

	var tags []Tag
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := strings.TrimPrefix(ref.Name().String(), "refs/tags/")
		hash := ref.Hash()

		if obj, err := r.repo.TagObject(ref.Hash()); err == nil {
			hash = obj.Target
		}
		tags = append(tags, Tag{Name: name, Commit: hash})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}
	return tags, nil
}

// TagsAt returns the names of tags whose target commit is exactly
// target.
func (r *Repo) TagsAt(target plumbing.Hash) ([]string, error) {
	tags, err := r.AllTags()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, t := range tags {
		if t.Commit == target {
			names = append(names, t.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// TagsMergedInto returns the names of tags whose target commit is
// reachable from (an ancestor of, or equal to) target.
func (r *Repo) TagsMergedInto(target plumbing.Hash) ([]string, error) {
	tags, err := r.AllTags()
	if err != nil {
		return nil, err
	}

	targetCommit, err := r.repo.CommitObject(target)
	if err != nil {
		return nil, fmt.Errorf("load commit %s: %w", target, err)
	}

	var names []string
	for _, t := range tags {
		ok, err := isAncestor(r.repo, t.Commit, targetCommit)
		if err != nil {
			continue
		}
		if ok {
			names = append(names, t.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func isAncestor(repo *git.Repository, ancestor plumbing.Hash, descendant *object.Commit) (bool, error) {
	if ancestor == descendant.Hash {
		return true, nil
	}
	ancestorCommit, err := repo.CommitObject(ancestor)
	if err != nil {
		return false, err
	}
	return ancestorCommit.IsAncestor(descendant)
}

// CommitTime returns the committer's UTC time for the given commit.
func (r *Repo) CommitTime(hash plumbing.Hash) (time.Time, error) {
	commit, err := r.repo.CommitObject(hash)
	if err != nil {
		return time.Time{}, fmt.Errorf("load commit %s: %w", hash, err)
	}
	return commit.Committer.When.UTC(), nil
}

// ShortHash returns the first n hex characters of hash.
func ShortHash(hash plumbing.Hash, n int) string {
	full := hash.String()
	if len(full) < n {
		return full
	}
	return full[:n]
}

// Root returns the working copy's root directory.
func (r *Repo) Root() string { return r.root }
