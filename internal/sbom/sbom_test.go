package sbom

import (
	"testing"

	"github.com/CycloneDX/cyclonedx-go"

	"github.com/hermeto/gomodprefetch/internal/model"
)

func TestModulePURL(t *testing.T) {
	got := ModulePURL("github.com/org/repo", "v1.2.3")
	want := "pkg:golang/github.com/org/repo@v1.2.3?type=module"
	if got != want {
		t.Errorf("ModulePURL() = %q, want %q", got, want)
	}
}

func TestPackagePURLWithRelativePath(t *testing.T) {
	got := PackagePURL("github.com/org/repo", "internal/util", "v1.2.3")
	want := "pkg:golang/github.com/org/repo/internal/util@v1.2.3?type=package"
	if got != want {
		t.Errorf("PackagePURL() = %q, want %q", got, want)
	}
}

func TestPackagePURLModuleRoot(t *testing.T) {
	got := PackagePURL("github.com/org/repo", "", "v1.2.3")
	want := "pkg:golang/github.com/org/repo@v1.2.3?type=package"
	if got != want {
		t.Errorf("PackagePURL() = %q, want %q", got, want)
	}
}

func TestStandardPackagePURL(t *testing.T) {
	got := StandardPackagePURL("net/http")
	want := "pkg:golang/net/http?type=package"
	if got != want {
		t.Errorf("StandardPackagePURL() = %q, want %q", got, want)
	}
}

func TestJoinPackageToModuleByExactPath(t *testing.T) {
	a := &model.Module{OriginalName: "example.com/a"}
	b := &model.Module{OriginalName: "example.com/b"}
	pp := model.ParsedPackage{ImportPath: "example.com/b/sub", Module: &model.ParsedModule{Path: "example.com/b"}}
	got := JoinPackageToModule(pp, []*model.Module{a, b})
	if got != b {
		t.Errorf("JoinPackageToModule() = %+v, want %+v", got, b)
	}
}

func TestJoinPackageToModuleFallsBackToLongestPrefix(t *testing.T) {
	a := &model.Module{OriginalName: "example.com/a"}
	nested := &model.Module{OriginalName: "example.com/a/nested"}
	pp := model.ParsedPackage{ImportPath: "example.com/a/nested/pkg"}
	got := JoinPackageToModule(pp, []*model.Module{a, nested})
	if got != nested {
		t.Errorf("JoinPackageToModule() = %+v, want %+v", got, nested)
	}
}

func TestSortedByPURL(t *testing.T) {
	unsorted := []cyclonedx.Component{
		{PackageURL: "pkg:golang/z"},
		{PackageURL: "pkg:golang/a"},
	}
	sorted := SortedByPURL(unsorted)
	if sorted[0].PackageURL != "pkg:golang/a" || sorted[1].PackageURL != "pkg:golang/z" {
		t.Errorf("SortedByPURL() = %+v", sorted)
	}
}
