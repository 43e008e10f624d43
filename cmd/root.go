// Package cmd implements the command-line front end: flag parsing,
// workspace lifecycle, and driving internal/resolve end to end into a
// CycloneDX-shaped SBOM on stdout or a named file. Grounded on
// dh-make-golang's cmd/root.go (the same cobra root-command-plus-
// persistent-flags shape), generalized from a Debian-packaging CLI into
// a single-purpose prefetch CLI.
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/hermeto/gomodprefetch/internal/config"
	"github.com/hermeto/gomodprefetch/internal/logging"
)

var (
	flagVendor       bool
	flagVendorCheck  bool
	flagForceTidy    bool
	flagRefreshTags  bool
	flagCGODisable   bool
	flagStrictVendor bool
	flagProxy        string
	flagRetries      int
	flagOutput       string
	flagDepsDir      string
	flagVerbose      bool
)

var rootCmd = &cobra.Command{
	Use:           program + " [flags] <path-to-go-module>",
	Short:         "Resolve a Go module's dependencies hermetically and emit an SBOM",
	Long:          `gomodprefetch resolves every module and package a Go build would need, without trusting the build to reach the network itself, and reports the result as a CycloneDX-shaped software bill of materials.`,
	Args:          cobra.MaximumNArgs(1),
	Version:       buildVersionString(),
	RunE:          runResolve,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command. Called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.Flags()
	flags.BoolVar(&flagVendor, "vendor", false,
		"populate and use vendor/ unconditionally (equivalent to go build -mod=vendor)")
	flags.BoolVar(&flagVendorCheck, "vendor-check", false,
		"run `go mod vendor` and use vendor/, refusing to let it mutate a vendor/ that already exists")
	flags.BoolVar(&flagForceTidy, "force-tidy", false,
		"run `go mod tidy` before resolving, to reconcile a go.mod/go.sum left behind stale")
	flags.BoolVar(&flagRefreshTags, "refresh-tags", false,
		"force-fetch tags from the default remote before computing the main module's version\n"+
			"(off by default: this can rewrite locally-conflicting tag refs in the working copy)")
	flags.BoolVar(&flagCGODisable, "cgo-disable", false, "export CGO_ENABLED=0 to every toolchain invocation")
	flags.BoolVar(&flagStrictVendor, "strict-vendor", false,
		"reject a present vendor/ directory unless --vendor or --vendor-check is also given")
	flags.StringVar(&flagProxy, "proxy", "", "GOPROXY value to export to every toolchain invocation")
	flags.IntVar(&flagRetries, "retries", 3, "maximum attempts for the download step's exponential backoff")
	flags.StringVarP(&flagOutput, "output", "o", "", "write the SBOM to this file instead of stdout")
	flags.StringVar(&flagDepsDir, "deps-dir", "deps/gomod",
		"persistent directory to deliver the downloaded module cache into (ignored in vendor mode)")
	flags.BoolVarP(&flagVerbose, "verbose", "v", false, "enable microsecond timestamps and caller annotations in logs")
}

func runResolve(cmd *cobra.Command, args []string) error {
	logging.SetVerbose(flagVerbose)

	appDir := "."
	if len(args) == 1 {
		appDir = args[0]
	}

	cfg := config.Default()
	cfg.DownloadMaxAttempts = flagRetries
	cfg.GoProxy = flagProxy
	cfg.StrictVendor = flagStrictVendor
	cfg.CGODisable = flagCGODisable
	cfg.RefreshTags = flagRefreshTags

	return runPrefetch(context.Background(), appDir, cfg)
}
