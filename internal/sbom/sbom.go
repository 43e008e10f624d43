// Package sbom projects the resolver's canonical modules and packages
// into the external SBOM component shape (spec §4.10): a purl, a name,
// and a version per component. It uses the same two libraries
// cyclonedx-gomod and osv-scalibr pair in the wider Go-ecosystem pack:
// packageurl-go for purl construction, and cyclonedx-go for the
// Component type the (external) SBOM serializer ultimately consumes.
package sbom

import (
	"sort"

	"github.com/CycloneDX/cyclonedx-go"
	"github.com/package-url/packageurl-go"

	"github.com/hermeto/gomodprefetch/internal/model"
)

const (
	qualifierType    = "type"
	qualifierModule  = "module"
	qualifierPackage = "package"
)

// ModulePURL builds the purl for a module component:
// pkg:golang/<real_path>@<version>?type=module
func ModulePURL(realPath, version string) string {
	instance := packageurl.NewPackageURL(
		packageurl.TypeGolang,
		"",
		realPath,
		version,
		packageurl.QualifiersFromMap(map[string]string{qualifierType: qualifierModule}),
		"",
	)
	return instance.ToString()
}

// PackagePURL builds the purl for a package component:
// pkg:golang/<real_path>[/<relative_path>]@<version>?type=package
func PackagePURL(realPath, relativePath, version string) string {
	name := realPath
	if relativePath != "" {
		name = realPath + "/" + relativePath
	}
	instance := packageurl.NewPackageURL(
		packageurl.TypeGolang,
		"",
		name,
		version,
		packageurl.QualifiersFromMap(map[string]string{qualifierType: qualifierPackage}),
		"",
	)
	return instance.ToString()
}

// StandardPackagePURL builds the purl for a standard-library package:
// pkg:golang/<name>?type=package (no version qualifier).
func StandardPackagePURL(name string) string {
	instance := packageurl.NewPackageURL(
		packageurl.TypeGolang,
		"",
		name,
		"",
		packageurl.QualifiersFromMap(map[string]string{qualifierType: qualifierPackage}),
		"",
	)
	return instance.ToString()
}

// ModuleComponent projects a canonical Module into a CycloneDX component.
func ModuleComponent(m model.Module) cyclonedx.Component {
	purl := ModulePURL(m.RealPath, m.Version)
	return cyclonedx.Component{
		Type:       cyclonedx.ComponentTypeLibrary,
		Name:       m.RealPath,
		Version:    m.Version,
		PackageURL: purl,
		BOMRef:     purl,
	}
}

// PackageComponent projects a canonical Package into a CycloneDX
// component, joining it to its owning module by purl rules.
func PackageComponent(p model.Package) cyclonedx.Component {
	purl := PackagePURL(p.Module.RealPath, p.RelativePath, p.Module.Version)
	name := p.Module.RealPath
	if p.RelativePath != "" {
		name = p.Module.RealPath + "/" + p.RelativePath
	}
	return cyclonedx.Component{
		Type:       cyclonedx.ComponentTypeLibrary,
		Name:       name,
		Version:    p.Module.Version,
		PackageURL: purl,
		BOMRef:     purl,
	}
}

// StandardPackageComponent projects a StandardPackage into a CycloneDX
// component: no version, no owning module.
func StandardPackageComponent(p model.StandardPackage) cyclonedx.Component {
	purl := StandardPackagePURL(p.Name)
	return cyclonedx.Component{
		Type:       cyclonedx.ComponentTypeLibrary,
		Name:       p.Name,
		PackageURL: purl,
		BOMRef:     purl,
	}
}

// JoinPackageToModule resolves a parsed package's owning module: by
// exact path match against the parsed module's declared path when the
// package carries one, otherwise by longest-prefix match of its import
// path against the canonical modules' original names. A package with no
// match is a programmer error — the toolchain does not emit such
// packages outside of error states (spec §4.10, preserved silently per
// the Open Question resolution in SPEC_FULL.md §9: the fallback carries
// no warning).
func JoinPackageToModule(pp model.ParsedPackage, modules []*model.Module) *model.Module {
	if pp.Module != nil {
		for _, m := range modules {
			if m.OriginalName == pp.Module.Path {
				return m
			}
		}
	}
	return model.LongestPrefixModule(pp.ImportPath, modules)
}

// SortedByPURL sorts components by purl, giving a deterministic output
// order so that running resolution twice on an unchanged source tree
// produces byte-identical SBOM output (spec §8).
func SortedByPURL(components []cyclonedx.Component) []cyclonedx.Component {
	sorted := make([]cyclonedx.Component, len(components))
	copy(sorted, components)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].PackageURL < sorted[j].PackageURL
	})
	return sorted
}
