// Package toolchain wraps Go-toolchain subprocess invocations uniformly:
// an explicit working directory, an explicit environment that never
// inherits beyond PATH (dh-make-golang's passthroughEnv names the few
// variables it forwards; this wraps the same idea for GOPATH/GOCACHE/
// GOMODCACHE/GO111MODULE/GOPROXY/CGO_ENABLED), and a download
// specialization with deterministic exponential backoff.
package toolchain

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/hermeto/gomodprefetch/internal/errs"
)

// Env describes the environment a toolchain invocation runs under: the
// workspace's GOPATH/GOCACHE/GOMODCACHE plus optional GOPROXY/cgo
// settings. Builders pass this in; toolchain itself holds no global
// config.
type Env struct {
	GOPATH     string
	GOCACHE    string
	GOMODCACHE string
	GOProxy    string // optional
	CGODisable bool
}

func (e Env) toSlice() []string {
	out := []string{
		"PATH=" + os.Getenv("PATH"),
		"GOPATH=" + e.GOPATH,
		"GOCACHE=" + e.GOCACHE,
		"GOMODCACHE=" + e.GOMODCACHE,
		"GO111MODULE=on",
	}
	if e.GOProxy != "" {
		out = append(out, "GOPROXY="+e.GOProxy)
	}
	if e.CGODisable {
		out = append(out, "CGO_ENABLED=0")
	}
	return out
}

// Invoker runs a single Go-toolchain subprocess with a uniform error
// taxonomy: a non-zero exit becomes a *errs.ToolchainError carrying the
// argv and exit code.
type Invoker struct{}

// Run executes argv[0] with argv[1:] as arguments, in dir, under env,
// returning its standard output. Standard error is captured and
// attached to the returned error on failure.
func (Invoker) Run(ctx context.Context, dir string, env Env, argv ...string) ([]byte, error) {
	if len(argv) == 0 {
		panic("toolchain: empty argv")
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = env.toSlice()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if ok := asExitError(err, &exitErr); ok {
			exitCode = exitErr.ExitCode()
		}
		return stdout.Bytes(), &errs.ToolchainError{
			Argv:     argv,
			ExitCode: exitCode,
			Cause:    wrapWithStderr(err, stderr.Bytes()),
		}
	}
	return stdout.Bytes(), nil
}

func asExitError(err error, target **exec.ExitError) bool {
	if ee, ok := err.(*exec.ExitError); ok {
		*target = ee
		return true
	}
	return false
}

func wrapWithStderr(err error, stderr []byte) error {
	if len(stderr) == 0 {
		return err
	}
	return &stderrError{cause: err, stderr: string(stderr)}
}

type stderrError struct {
	cause  error
	stderr string
}

func (e *stderrError) Error() string { return e.cause.Error() + ": " + e.stderr }
func (e *stderrError) Unwrap() error { return e.cause }

// DownloadInvoker wraps Invoker with deterministic exponential backoff
// (1s, 2s, 4s, ... no jitter) up to MaxAttempts, observing only
// *errs.ToolchainError — the Go toolchain does not distinguish network
// failures from other toolchain errors, so neither do we.
type DownloadInvoker struct {
	Invoker     Invoker
	MaxAttempts int
}

// Run retries Invoker.Run on *errs.ToolchainError with deterministic
// backoff. On final failure it returns a *errs.ToolchainError whose
// Attempts field names the total number of attempts made.
func (d DownloadInvoker) Run(ctx context.Context, dir string, env Env, argv ...string) ([]byte, error) {
	maxAttempts := d.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 1 * time.Second
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0 // bounded by attempt count, not elapsed time

	var lastOut []byte
	var lastErr error
	attempts := 0

	operation := func() error {
		attempts++
		out, err := d.Invoker.Run(ctx, dir, env, argv...)
		lastOut, lastErr = out, err
		if err == nil {
			return nil
		}
		var tcErr *errs.ToolchainError
		if !asToolchainError(err, &tcErr) {
			return backoff.Permanent(err)
		}
		if attempts >= maxAttempts {
			return backoff.Permanent(err)
		}
		return err
	}

	if err := backoff.Retry(operation, backoff.WithMaxRetries(bo, uint64(maxAttempts-1))); err != nil {
		var tcErr *errs.ToolchainError
		if asToolchainError(lastErr, &tcErr) {
			return lastOut, &errs.ToolchainError{
				Argv:     tcErr.Argv,
				ExitCode: tcErr.ExitCode,
				Attempts: attempts,
				Cause:    tcErr.Cause,
			}
		}
		return lastOut, lastErr
	}
	return lastOut, nil
}

func asToolchainError(err error, target **errs.ToolchainError) bool {
	te, ok := err.(*errs.ToolchainError)
	if ok {
		*target = te
	}
	return ok
}
