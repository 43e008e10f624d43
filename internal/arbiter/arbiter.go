// Package arbiter implements the vendoring arbiter (spec §4.4): decides
// whether to run in vendored-mode or download-mode, and whether the
// resolver is allowed to let `go mod vendor` mutate a pre-existing
// vendor tree.
package arbiter

import (
	"os"
	"path/filepath"

	"github.com/hermeto/gomodprefetch/internal/errs"
)

// Flags is the subset of the request's flag-set the arbiter consults.
type Flags struct {
	Vendor      bool // "vendor" flag present
	VendorCheck bool // "vendor-check" flag present
}

// Decision is the arbiter's output.
type Decision struct {
	ShouldVendor     bool
	MayMutateVendor  bool
}

// Decide implements the arbiter's truth table:
//
//	vendor flag present         -> (true, true)
//	vendor-check flag present   -> (true, vendor_dir_absent)
//	neither, vendor/ present,
//	  strict mode                -> PackageRejected
//	otherwise                   -> (false, false)
func Decide(flags Flags, moduleRoot string, strict bool) (Decision, error) {
	vendorDir := filepath.Join(moduleRoot, "vendor")
	vendorPresent := dirExists(vendorDir)

	switch {
	case flags.Vendor:
		return Decision{ShouldVendor: true, MayMutateVendor: true}, nil
	case flags.VendorCheck:
		return Decision{ShouldVendor: true, MayMutateVendor: !vendorPresent}, nil
	case vendorPresent && strict:
		return Decision{}, &errs.PackageRejected{
			Reason:   "a vendor directory is present but neither --vendor nor --vendor-check was specified",
			Solution: "pass --vendor or --vendor-check to select how the existing vendor tree is treated",
		}
	default:
		return Decision{}, nil
	}
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
