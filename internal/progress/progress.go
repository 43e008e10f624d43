// Package progress renders a TTY-only progress meter for long-running
// toolchain invocations, ported from dh-make-golang's progress.go: it
// polls the growing size of a directory (the module cache filling up
// during `go mod download`) and overwrites a single terminal line.
package progress

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
)

const (
	_ = 1 << (10 * iota)
	kibi
	mebi
	gibi
	tebi
)

func humanizeBytes(b int64) string {
	switch {
	case b > tebi:
		return fmt.Sprintf("%.2f TiB", float64(b)/float64(tebi))
	case b > gibi:
		return fmt.Sprintf("%.2f GiB", float64(b)/float64(gibi))
	case b > mebi:
		return fmt.Sprintf("%.2f MiB", float64(b)/float64(mebi))
	default:
		return fmt.Sprintf("%.2f KiB", float64(b)/float64(kibi))
	}
}

// WatchDirSize prints a live-updating "prefix: N modules, size" line to
// stdout while walking path every 250ms, until done is closed. It is a
// no-op when stdout is not a terminal. Run it in its own goroutine and
// close done when the watched operation completes. path is expected to
// be a GOMODCACHE: module count is derived from its extracted
// "<module>@<version>" directories, one level above the source files
// whose sizes are summed.
func WatchDirSize(prefix, path string, done <-chan struct{}) {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		<-done
		return
	}

	var previous int
	for {
		var usage int64
		var modules int
		_ = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if info.IsDir() {
				if strings.Contains(info.Name(), "@") && !strings.HasPrefix(info.Name(), "@") {
					modules++
				}
				return nil
			}
			usage += info.Size()
			return nil
		})
		fmt.Printf("\r%s", strings.Repeat(" ", previous))
		previous, _ = fmt.Printf("\r%s: %d modules, %s", prefix, modules, humanizeBytes(usage))

		select {
		case <-done:
			fmt.Printf("\r")
			return
		case <-time.After(250 * time.Millisecond):
		}
	}
}
