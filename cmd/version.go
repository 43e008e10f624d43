package cmd

import (
	"fmt"
	"runtime"
)

const program = "gomodprefetch"

// buildVersion is the tool's own release version, distinct from any
// Go module version it resolves.
type buildVersion struct {
	major      int
	minor      int
	patch      int
	preRelease string
}

var currentVersion = buildVersion{major: 0, minor: 1, patch: 0}

func (v buildVersion) String() string {
	return fmt.Sprintf("%d.%d.%d%s", v.major, v.minor, v.patch, v.preRelease)
}

func buildVersionString() string {
	return fmt.Sprintf("%s v%s %s/%s", program, currentVersion, runtime.GOOS, runtime.GOARCH)
}
