// Package maincomposer derives the main module's public identity (spec
// §4.9): a canonical real_path built from the repository's origin URL
// and the module's subpath, name/original_name taken from `go list -m`.
// Grounded on dh-make-golang's own origin-URL handling in make.go/
// metadata.go, which splits a remote into host and path components
// before turning it into an import path.
package maincomposer

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/hermeto/gomodprefetch/internal/model"
)

// Compose builds the main module's canonical record. name and
// originalName come from `go list -m`; originURL is the enclosing
// repository's origin remote URL; subpath is the module's path within
// the repository (empty if the module root is the repository root);
// version must already have been computed by the reifier — a missing
// version here is a programmer error, per §4.9.
func Compose(name, originalName, originURL, subpath, version string) (model.Module, error) {
	if version == "" {
		panic("maincomposer: main module version must be set before Compose is called")
	}

	realPath, err := realPathFromOrigin(originURL, subpath)
	if err != nil {
		return model.Module{}, fmt.Errorf("derive real_path from origin URL %q: %w", originURL, err)
	}

	return model.Module{
		Name:         name,
		OriginalName: originalName,
		RealPath:     realPath,
		Version:      version,
		Main:         true,
	}, nil
}

// realPathFromOrigin concatenates the origin URL's host and path (with
// a trailing "/" and ".git" suffix stripped), then appends subpath if
// non-empty.
func realPathFromOrigin(originURL, subpath string) (string, error) {
	host, p, err := hostAndPath(originURL)
	if err != nil {
		return "", err
	}
	p = strings.TrimSuffix(p, "/")
	p = strings.TrimSuffix(p, ".git")

	realPath := host + p
	if subpath != "" {
		realPath = path.Join(realPath, subpath)
	}
	return realPath, nil
}

// hostAndPath extracts the host and path components from either a
// standard URL (https://github.com/org/repo) or an SCP-like SSH remote
// (git@github.com:org/repo).
func hostAndPath(originURL string) (host, p string, err error) {
	if u, err := url.Parse(originURL); err == nil && u.Host != "" {
		return u.Host, u.Path, nil
	}

	// SCP-like syntax: [user@]host:path
	at := strings.Index(originURL, "@")
	colon := strings.Index(originURL, ":")
	if colon < 0 {
		return "", "", fmt.Errorf("cannot parse origin URL %q", originURL)
	}
	hostStart := 0
	if at >= 0 && at < colon {
		hostStart = at + 1
	}
	host = originURL[hostStart:colon]
	p = originURL[colon+1:]
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return host, p, nil
}
