// Package resolve implements the resolver (spec §4.7): it drives the
// external Go toolchain to enumerate modules and packages, reconciles
// the downloaded-set and package-modules-set views, applies module
// replacements, and validates local-replacement targets against the app
// root. Grounded on dh-make-golang's make.go/estimate.go, which already
// shell out to `go list`/`go get`/`go mod graph` with a scoped GOPATH —
// generalized here into the full toolchain contract the spec documents.
package resolve

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hermeto/gomodprefetch/internal/arbiter"
	"github.com/hermeto/gomodprefetch/internal/errs"
	"github.com/hermeto/gomodprefetch/internal/gitutil"
	"github.com/hermeto/gomodprefetch/internal/logging"
	"github.com/hermeto/gomodprefetch/internal/maincomposer"
	"github.com/hermeto/gomodprefetch/internal/model"
	"github.com/hermeto/gomodprefetch/internal/pathguard"
	"github.com/hermeto/gomodprefetch/internal/reify"
	"github.com/hermeto/gomodprefetch/internal/sbom"
	"github.com/hermeto/gomodprefetch/internal/toolchain"
	"github.com/hermeto/gomodprefetch/internal/vendormutation"
	"github.com/hermeto/gomodprefetch/internal/vendorparse"
)

// Request parameterizes one resolution.
type Request struct {
	AppDir      string // directory containing the main module's go.mod
	RepoRoot    string // root of the enclosing git working copy
	Vendor      bool   // "vendor" flag
	VendorCheck bool   // "vendor-check" flag
	ForceTidy   bool   // "force-tidy" flag
	StrictMode  bool
	RefreshTags bool // gates update_tags in the version reifier (Open Question)

	Env toolchain.Env

	DownloadMaxAttempts int
}

// Result is the resolver's output.
type Result struct {
	MainModule model.Module
	Modules    []model.Module // deduplicated, includes MainModule
	Packages   []model.Package
	Standard   []model.StandardPackage
	Vendored   bool
}

// wireModule mirrors the JSON shape `go list`/`go mod download` emit for
// a module record.
type wireModule struct {
	Path    string
	Version string
	Main    bool
	Replace *wireModule
}

func (w *wireModule) toParsed() *model.ParsedModule {
	if w == nil {
		return nil
	}
	return &model.ParsedModule{
		Path:    w.Path,
		Version: w.Version,
		Main:    w.Main,
		Replace: w.Replace.toParsed(),
	}
}

// wirePackage mirrors `go list -json=ImportPath,Module,Standard,Deps`.
type wirePackage struct {
	ImportPath string
	Standard   bool
	Module     *wireModule
}

// Resolve executes the resolver's contract end to end.
func Resolve(ctx context.Context, req Request) (Result, error) {
	root, err := pathguard.NewRoot(req.AppDir)
	if err != nil {
		return Result{}, fmt.Errorf("canonicalize app dir: %w", err)
	}
	if err := guardProjectInputs(root, req.AppDir); err != nil {
		return Result{}, err
	}

	decision, err := arbiter.Decide(arbiter.Flags{Vendor: req.Vendor, VendorCheck: req.VendorCheck}, req.AppDir, req.StrictMode)
	if err != nil {
		return Result{}, err
	}

	inv := toolchain.Invoker{}
	dl := toolchain.DownloadInvoker{Invoker: inv, MaxAttempts: req.DownloadMaxAttempts}

	var downloadedSet []model.ParsedModule
	if decision.ShouldVendor {
		logging.L.Printf("vendoring %s (mutation allowed: %v)", req.AppDir, decision.MayMutateVendor)
		if _, err := dl.Run(ctx, req.AppDir, req.Env, "go", "mod", "vendor"); err != nil {
			return Result{}, err
		}
		if !decision.MayMutateVendor {
			if _, err := vendormutation.Detect(req.RepoRoot, filepath.Join(req.AppDir, "vendor")); err != nil {
				return Result{}, err
			}
		}
		manifestPath := filepath.Join(req.AppDir, "vendor", "modules.txt")
		if _, err := root.Resolve(filepath.Join("vendor", "modules.txt")); err != nil {
			return Result{}, err
		}
		f, err := os.Open(manifestPath)
		if err != nil {
			return Result{}, fmt.Errorf("open vendor manifest: %w", err)
		}
		defer f.Close()
		downloadedSet, err = vendorparse.Parse(f)
		if err != nil {
			return Result{}, err
		}
	} else {
		logging.L.Printf("downloading modules for %s", req.AppDir)
		out, err := dl.Run(ctx, req.AppDir, req.Env, "go", "mod", "download", "-json")
		if err != nil {
			return Result{}, err
		}
		downloadedSet, err = parseDownloadStream(bytes.NewReader(out))
		if err != nil {
			return Result{}, err
		}
	}

	if req.ForceTidy {
		if _, err := inv.Run(ctx, req.AppDir, req.Env, "go", "mod", "tidy"); err != nil {
			return Result{}, err
		}
	}

	mainName, err := listMainModuleName(ctx, inv, req, decision.ShouldVendor)
	if err != nil {
		return Result{}, err
	}

	mainVersion, err := reify.Reify(reify.Request{
		ModuleName: mainName,
		AppDir:     req.AppDir,
		RepoRoot:   req.RepoRoot,
		UpdateTags: req.RefreshTags,
	})
	if err != nil {
		return Result{}, err
	}

	repo, err := gitutil.Open(req.RepoRoot)
	if err != nil {
		return Result{}, err
	}
	originURL, err := repo.OriginURL()
	if err != nil {
		return Result{}, err
	}
	subpath, err := filepath.Rel(req.RepoRoot, req.AppDir)
	if err != nil {
		return Result{}, err
	}
	if subpath == "." {
		subpath = ""
	}
	subpath = filepath.ToSlash(subpath)

	mainModule, err := maincomposer.Compose(mainName, mainName, originURL, subpath, mainVersion)
	if err != nil {
		return Result{}, err
	}

	var packageModulesSet []model.ParsedModule
	var packageSetWire []wirePackage

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pkgs, err := listDeps(gctx, inv, req, "all")
		if err != nil {
			return err
		}
		for _, p := range pkgs {
			if p.Standard || p.Module == nil || p.Module.Main {
				continue
			}
			packageModulesSet = append(packageModulesSet, *p.Module.toParsed())
		}
		return nil
	})
	g.Go(func() error {
		pkgs, err := listDeps(gctx, inv, req, "./...")
		if err != nil {
			return err
		}
		packageSetWire = pkgs
		return nil
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	if err := validateLocalReplacements(root, packageModulesSet, downloadedSet); err != nil {
		return Result{}, err
	}

	merged, err := mergeModules(root, mainModule, packageModulesSet, downloadedSet)
	if err != nil {
		return Result{}, err
	}
	merged[model.Identity(&model.ParsedModule{Path: mainModule.OriginalName, Version: mainModule.Version, Main: true})] = mainModule

	modules := make([]model.Module, 0, len(merged))
	for _, m := range merged {
		modules = append(modules, m)
	}

	var packages []model.Package
	var standard []model.StandardPackage
	modulePtrs := make([]*model.Module, len(modules))
	for i := range modules {
		modulePtrs[i] = &modules[i]
	}

	for _, p := range packageSetWire {
		if p.Standard {
			standard = append(standard, model.StandardPackage{Name: p.ImportPath})
			continue
		}
		pp := model.ParsedPackage{ImportPath: p.ImportPath, Standard: p.Standard, Module: p.Module.toParsed()}
		owner := sbom.JoinPackageToModule(pp, modulePtrs)
		if owner == nil {
			return Result{}, &errs.UnexpectedFormat{
				Source: "go list -deps",
				Line:   fmt.Sprintf("package %s has no owning module", p.ImportPath),
			}
		}
		rel, _ := model.RelativePath(p.ImportPath, owner.OriginalName)
		packages = append(packages, model.Package{RelativePath: rel, Module: owner})
	}

	for i := range modules {
		if !modules[i].Main && modules[i].Version == "" {
			return Result{}, &errs.UnexpectedFormat{
				Source: "go list -deps",
				Line:   fmt.Sprintf("module %s resolved with no version", modules[i].Name),
			}
		}
	}

	return Result{
		MainModule: mainModule,
		Modules:    modules,
		Packages:   packages,
		Standard:   standard,
		Vendored:   decision.ShouldVendor,
	}, nil
}

func guardProjectInputs(root pathguard.Root, appDir string) error {
	required := []string{"go.mod"}
	optional := []string{"go.sum", filepath.Join("vendor", "modules.txt")}

	for _, rel := range required {
		if _, err := root.Resolve(rel); err != nil {
			return err
		}
		if _, err := os.Stat(filepath.Join(appDir, rel)); err != nil {
			return &errs.PackageRejected{Reason: fmt.Sprintf("missing %s", rel), Cause: err}
		}
	}
	for _, rel := range optional {
		if _, err := os.Stat(filepath.Join(appDir, rel)); err == nil {
			if _, err := root.Resolve(rel); err != nil {
				return err
			}
		}
	}
	return filepath.Walk(appDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		rel, relErr := filepath.Rel(appDir, path)
		if relErr != nil {
			return relErr
		}
		_, err = root.Resolve(rel)
		return err
	})
}

func listMainModuleName(ctx context.Context, inv toolchain.Invoker, req Request, shouldVendor bool) (string, error) {
	args := []string{"go", "list", "-e", "-m"}
	if !shouldVendor {
		args = append(args, "-mod", "readonly")
	}
	out, err := inv.Run(ctx, req.AppDir, req.Env, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func listDeps(ctx context.Context, inv toolchain.Invoker, req Request, pattern string) ([]wirePackage, error) {
	out, err := inv.Run(ctx, req.AppDir, req.Env,
		"go", "list", "-e", "-deps", "-json=ImportPath,Module,Standard,Deps", pattern)
	if err != nil {
		return nil, err
	}
	var pkgs []wirePackage
	err = decodeJSONStream(bytes.NewReader(out), func(raw json.RawMessage) error {
		var p wirePackage
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("decode package record: %w", err)
		}
		pkgs = append(pkgs, p)
		return nil
	})
	return pkgs, err
}

func parseDownloadStream(r *bytes.Reader) ([]model.ParsedModule, error) {
	var out []model.ParsedModule
	err := decodeJSONStream(r, func(raw json.RawMessage) error {
		var w wireModule
		if err := json.Unmarshal(raw, &w); err != nil {
			return fmt.Errorf("decode download record: %w", err)
		}
		out = append(out, *w.toParsed())
		return nil
	})
	return out, err
}

// mergeModules walks packageModulesSet first, then downloadedSet,
// inserting each into a map keyed by identity; first writer wins,
// because the package view carries replacement information and must
// dominate (spec §4.7 step 6, §5 ordering guarantee). A local-path
// replacement is canonicalized by reifying its own version and joining
// its real_path against mainModule's, so callers must have already
// validated every local replacement (validateLocalReplacements) before
// calling this.
func mergeModules(root pathguard.Root, mainModule model.Module, packageModulesSet, downloadedSet []model.ParsedModule) (map[model.IdentityKey]model.Module, error) {
	merged := make(map[model.IdentityKey]model.Module)
	resolveLocal := localReplacementResolver(root, mainModule)
	insert := func(pm model.ParsedModule) error {
		key := model.Identity(&pm)
		if _, exists := merged[key]; exists {
			return nil
		}
		m, err := model.Canonicalize(&pm, func(path string) string { return path }, resolveLocal)
		if err != nil {
			return fmt.Errorf("canonicalize module %s: %w", pm.Path, err)
		}
		merged[key] = m
		return nil
	}
	for _, pm := range packageModulesSet {
		if err := insert(pm); err != nil {
			return nil, err
		}
	}
	for _, pm := range downloadedSet {
		if err := insert(pm); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

// localReplacementResolver builds the callback Canonicalize invokes for
// a local-path replacement: the version comes from reifying the
// replacement target's own git history (ModuleName stays the original,
// unreplaced path, exactly as the original's _get_golang_version call
// does), and real_path is mainModule's real_path joined with the
// replacement path, normalized (_resolve_path_for_local_replacement).
func localReplacementResolver(root pathguard.Root, mainModule model.Module) model.LocalReplacementResolver {
	return func(pm *model.ParsedModule) (version, realPath string, err error) {
		resolved, err := root.Resolve(pm.Replace.Path)
		if err != nil {
			return "", "", err
		}
		localRepo, err := gitutil.Open(resolved)
		if err != nil {
			return "", "", err
		}
		version, err = reify.Reify(reify.Request{
			ModuleName: pm.Path,
			AppDir:     resolved,
			RepoRoot:   localRepo.Root(),
		})
		if err != nil {
			return "", "", err
		}
		realPath = path.Join(mainModule.RealPath, pm.Replace.Path)
		return version, realPath, nil
	}
}

// validateLocalReplacements fails with *errs.PathOutsideRoot if any
// local replacement's target does not join within the app root.
func validateLocalReplacements(root pathguard.Root, sets ...[]model.ParsedModule) error {
	seen := make(map[string]bool)
	for _, set := range sets {
		for _, pm := range set {
			if pm.Replace == nil || pm.Replace.Version != "" {
				continue
			}
			if !strings.HasPrefix(pm.Replace.Path, ".") {
				continue
			}
			key := pm.Path + "=>" + pm.Replace.Path
			if seen[key] {
				continue
			}
			seen[key] = true
			if _, err := root.Resolve(pm.Replace.Path); err != nil {
				return fmt.Errorf("local replacement %s => %s: %w", pm.Path, pm.Replace.Path, err)
			}
		}
	}
	return nil
}
