// Package logging centralizes the module-global *log.Logger that every
// component writes operator diagnostics through, the way dh-make-golang's
// make.go/estimate.go/version.go each call log.Printf directly but the
// CLI entry point sets the logger's prefix and flags exactly once.
package logging

import (
	"log"
	"os"
)

// L is the package-wide logger every internal package writes through.
var L = log.New(os.Stderr, "", log.LstdFlags)

// SetVerbose toggles microsecond timestamps and file/line annotations
// for debugging a resolution run.
func SetVerbose(verbose bool) {
	if verbose {
		L.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	} else {
		L.SetFlags(log.LstdFlags)
	}
}
