// Package config is the process-wide, read-only configuration store: the
// download retry count, proxy URL, strict-vendor mode, the CGO toggle,
// and the tag-refresh switch. It holds no default-environment setting;
// the toolchain environment is built from the workspace and these
// fields alone. No component mutates it once built;
// it is passed by reference through the resolver's entry point (per the
// spec's design note on process-wide configuration).
package config

// Config holds the settings a single core invocation is parameterized
// by. Callers construct one from CLI flags and never mutate it again.
type Config struct {
	// DownloadMaxAttempts bounds the download invoker's exponential
	// backoff retries.
	DownloadMaxAttempts int
	// GoProxy, when non-empty, is exported as GOPROXY to every
	// toolchain invocation.
	GoProxy string
	// StrictVendor rejects a vendor directory present without an
	// explicit vendor flag.
	StrictVendor bool
	// CGODisable exports CGO_ENABLED=0 when set.
	CGODisable bool
	// RefreshTags gates whether the version reifier is allowed to fetch
	// tags from the default remote before computing the main module's
	// version. Unconditional refetching can mutate the user's working
	// copy's tags, so this defaults to false (see the reifier's Open
	// Question resolution).
	RefreshTags bool
}

// Default returns the conservative default configuration: three download
// attempts, no proxy override, strict vendor checking off, cgo left
// enabled, and tag refresh disabled.
func Default() *Config {
	return &Config{
		DownloadMaxAttempts: 3,
		StrictVendor:        false,
		CGODisable:          false,
		RefreshTags:         false,
	}
}
