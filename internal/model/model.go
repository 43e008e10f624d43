// Package model defines the canonical and raw shapes the resolver, version
// reifier, vendor parser and SBOM projection all operate on.
package model

import "strings"

// ReplaceKind discriminates the two variants a go.mod replace directive
// can take: rewriting to a specific version of another module, or to a
// local filesystem path.
type ReplaceKind int

const (
	// ReplaceVersion rewrites path@version to a new path@version.
	ReplaceVersion ReplaceKind = iota
	// ReplaceLocal rewrites a module reference to a local directory.
	ReplaceLocal
)

// Replace is the tagged alternative for a go.mod replace directive,
// discriminated by the presence of Version rather than modeled as an
// inheritance hierarchy.
type Replace struct {
	Path    string
	Version string // empty for a local-path replacement
}

// Kind reports which variant this replacement is.
func (r *Replace) Kind() ReplaceKind {
	if r == nil {
		return ReplaceVersion
	}
	if r.Version == "" {
		return ReplaceLocal
	}
	return ReplaceVersion
}

// IsLocal reports whether the replacement target is a local path rather
// than a versioned module.
func (r *Replace) IsLocal() bool {
	return r != nil && r.Version == ""
}

// ParsedModule is a module record as emitted by the Go toolchain, before
// replacement has been reconciled into a canonical Module.
type ParsedModule struct {
	Path    string
	Version string // empty for a local replacement target
	Main    bool
	Replace *ParsedModule
}

// ParsedPackage is a package record as emitted by `go list`, before its
// owning module has necessarily been resolved.
type ParsedPackage struct {
	ImportPath string
	Standard   bool
	Module     *ParsedModule // nil when the toolchain omitted it
}

// Module is the canonical, post-replacement module record.
type Module struct {
	// Name is the identity after any replacement: the replacement path
	// for a version replacement, otherwise the declared path.
	Name string
	// OriginalName is the path as written before replacement; the join
	// key against parsed packages.
	OriginalName string
	// RealPath is the location used to build a globally-unique purl
	// identifier (see the SBOM projection rules).
	RealPath string
	// Version is always non-empty for non-main modules, and for the
	// main module once the version reifier has run.
	Version string
	Main    bool
}

// IdentityKey is the uniqueness key for merging two views of the same
// logical module: (identity_path, identity_version), where identity
// collapses replacement.
type IdentityKey struct {
	Path    string
	Version string
}

// Identity computes a ParsedModule's uniqueness key per the data model:
// for a version replacement it is (replace.path, replace.version); for a
// local replacement it is (path, replace.path); otherwise (path, version).
func Identity(m *ParsedModule) IdentityKey {
	if m.Replace != nil {
		if m.Replace.Version != "" {
			return IdentityKey{Path: m.Replace.Path, Version: m.Replace.Version}
		}
		return IdentityKey{Path: m.Path, Version: m.Replace.Path}
	}
	return IdentityKey{Path: m.Path, Version: m.Version}
}

// LocalReplacementResolver computes the version and real_path for a
// module replaced by a local filesystem path: version by reifying the
// replacement target's own version-control history, real_path by
// joining the main module's real_path with the replacement path (the
// caller owns both, since they require git and main-module state
// Canonicalize has no access to). Mirrors the original's
// _get_golang_version/_resolve_path_for_local_replacement pair.
type LocalReplacementResolver func(pm *ParsedModule) (version, realPath string, err error)

// Canonicalize reconciles a ParsedModule into a canonical Module. For a
// version replacement or no replacement, real_path is computed by
// realPathFor given the identity path (the caller supplies the
// main-module-aware logic from the main-module composer; for ordinary
// modules realPathFor is the identity function). For a local-path
// replacement, name stays the declared path (spec §3: "otherwise the
// declared path") and version/real_path come from resolveLocal instead.
func Canonicalize(pm *ParsedModule, realPathFor func(path string) string, resolveLocal LocalReplacementResolver) (Module, error) {
	m := Module{
		OriginalName: pm.Path,
		Main:         pm.Main,
	}
	switch {
	case pm.Replace == nil:
		m.Name = pm.Path
		m.Version = pm.Version
		m.RealPath = realPathFor(m.Name)
	case pm.Replace.Version != "":
		m.Name = pm.Replace.Path
		m.Version = pm.Replace.Version
		m.RealPath = realPathFor(m.Name)
	default:
		m.Name = pm.Path
		version, realPath, err := resolveLocal(pm)
		if err != nil {
			return Module{}, err
		}
		m.Version = version
		m.RealPath = realPath
	}
	return m, nil
}

// Package is the canonical package record.
type Package struct {
	// RelativePath is the portion of the import path below the owning
	// module's OriginalName. Empty means the package is the module root.
	RelativePath string
	Module       *Module
}

// StandardPackage is a Go-standard-library package: no owning module,
// no version.
type StandardPackage struct {
	Name string
}

// RelativePath computes the portion of importPath below moduleOriginal,
// returning ("", false) if moduleOriginal is not a path-segment prefix
// of importPath.
func RelativePath(importPath, moduleOriginal string) (string, bool) {
	if importPath == moduleOriginal {
		return "", true
	}
	prefix := moduleOriginal + "/"
	if !strings.HasPrefix(importPath, prefix) {
		return "", false
	}
	return strings.TrimPrefix(importPath, prefix), true
}

// LongestPrefixModule finds the module among candidates whose
// OriginalName is the longest path-segment prefix of importPath. Used
// when a parsed package omits its Module field.
func LongestPrefixModule(importPath string, candidates []*Module) *Module {
	var best *Module
	bestLen := -1
	for _, m := range candidates {
		if _, ok := RelativePath(importPath, m.OriginalName); ok && len(m.OriginalName) > bestLen {
			best = m
			bestLen = len(m.OriginalName)
		}
	}
	return best
}
