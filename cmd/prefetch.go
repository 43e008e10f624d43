package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/CycloneDX/cyclonedx-go"

	"github.com/hermeto/gomodprefetch/internal/config"
	"github.com/hermeto/gomodprefetch/internal/gitutil"
	"github.com/hermeto/gomodprefetch/internal/logging"
	"github.com/hermeto/gomodprefetch/internal/progress"
	"github.com/hermeto/gomodprefetch/internal/resolve"
	"github.com/hermeto/gomodprefetch/internal/sbom"
	"github.com/hermeto/gomodprefetch/internal/toolchain"
	"github.com/hermeto/gomodprefetch/internal/workspace"
)

func runPrefetch(ctx context.Context, appDir string, cfg *config.Config) error {
	repo, err := gitutil.Open(appDir)
	if err != nil {
		return fmt.Errorf("locate enclosing git working copy: %w", err)
	}

	ws, err := workspace.New("gomodprefetch-")
	if err != nil {
		return fmt.Errorf("acquire workspace: %w", err)
	}
	defer func() {
		if err := ws.Release(ctx); err != nil {
			logging.L.Printf("release workspace: %v", err)
		}
	}()

	env := toolchain.Env{
		GOPATH:     ws.GOPATH(),
		GOCACHE:    ws.GOCACHE(),
		GOMODCACHE: ws.GOMODCACHE(),
		GOProxy:    cfg.GoProxy,
		CGODisable: cfg.CGODisable,
	}

	done := make(chan struct{})
	go progress.WatchDirSize("fetching modules", ws.GOMODCACHE(), done)

	result, err := resolve.Resolve(ctx, resolve.Request{
		AppDir:              appDir,
		RepoRoot:            repo.Root(),
		Vendor:              flagVendor,
		VendorCheck:         flagVendorCheck,
		ForceTidy:           flagForceTidy,
		StrictMode:          cfg.StrictVendor,
		RefreshTags:         cfg.RefreshTags,
		Env:                 env,
		DownloadMaxAttempts: cfg.DownloadMaxAttempts,
	})
	close(done)
	if err != nil {
		return err
	}

	// On-disk layout (spec §6): deliver the downloaded module cache into
	// the persistent deps directory before the workspace is released.
	// Vendor mode needs no copy; the vendor tree already holds everything.
	if !result.Vendored {
		if err := ws.CopyModCacheTo(filepath.Join(flagDepsDir, "pkg", "mod")); err != nil {
			return fmt.Errorf("copy module cache to %s: %w", flagDepsDir, err)
		}
	}
	fmt.Fprintf(os.Stderr, "GOCACHE=%s\n", flagDepsDir)
	fmt.Fprintf(os.Stderr, "GOPATH=%s\n", flagDepsDir)
	fmt.Fprintf(os.Stderr, "GOMODCACHE=%s\n", filepath.Join(flagDepsDir, "pkg", "mod"))

	bom := projectBOM(result)

	out := os.Stdout
	if flagOutput != "" {
		f, err := os.Create(flagOutput)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	encoder := cyclonedx.NewBOMEncoder(out, cyclonedx.BOMFileFormatJSON)
	encoder.SetPretty(true)
	if err := encoder.Encode(bom); err != nil {
		return fmt.Errorf("encode SBOM: %w", err)
	}
	return nil
}

func projectBOM(result resolve.Result) *cyclonedx.BOM {
	var components []cyclonedx.Component
	for _, m := range result.Modules {
		if m.Main {
			continue
		}
		components = append(components, sbom.ModuleComponent(m))
	}
	for _, p := range result.Packages {
		components = append(components, sbom.PackageComponent(p))
	}
	for _, p := range result.Standard {
		components = append(components, sbom.StandardPackageComponent(p))
	}
	components = sbom.SortedByPURL(components)

	bom := cyclonedx.NewBOM()
	bom.Metadata = &cyclonedx.Metadata{
		Component: &cyclonedx.Component{
			Type:       cyclonedx.ComponentTypeApplication,
			Name:       result.MainModule.RealPath,
			Version:    result.MainModule.Version,
			PackageURL: sbom.ModulePURL(result.MainModule.RealPath, result.MainModule.Version),
		},
	}
	bom.Components = &components
	return bom
}
