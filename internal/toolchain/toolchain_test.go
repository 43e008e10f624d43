package toolchain

import (
	"context"
	"os"
	"testing"

	"github.com/hermeto/gomodprefetch/internal/errs"
)

func TestInvokerRunSuccess(t *testing.T) {
	inv := Invoker{}
	out, err := inv.Run(context.Background(), t.TempDir(), Env{}, "echo", "-n", "hello")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(out) != "hello" {
		t.Errorf("Run() output = %q, want %q", out, "hello")
	}
}

func TestInvokerRunFailureWrapsExitCode(t *testing.T) {
	inv := Invoker{}
	_, err := inv.Run(context.Background(), t.TempDir(), Env{}, "sh", "-c", "exit 7")
	if err == nil {
		t.Fatalf("expected an error")
	}
	tcErr, ok := err.(*errs.ToolchainError)
	if !ok {
		t.Fatalf("error = %v (%T), want *errs.ToolchainError", err, err)
	}
	if tcErr.ExitCode != 7 {
		t.Errorf("ExitCode = %d, want 7", tcErr.ExitCode)
	}
}

func TestInvokerRunPanicsOnEmptyArgv(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic for an empty argv")
		}
	}()
	inv := Invoker{}
	_, _ = inv.Run(context.Background(), t.TempDir(), Env{})
}

func TestDownloadInvokerRetriesUntilSuccess(t *testing.T) {
	dir := t.TempDir()
	// A script that fails twice (consulting a counter file) then succeeds.
	script := dir + "/flaky.sh"
	counter := dir + "/count"
	contents := "#!/bin/sh\nn=$(cat \"$1\" 2>/dev/null || echo 0)\nn=$((n+1))\necho $n > \"$1\"\nif [ \"$n\" -lt 3 ]; then exit 1; fi\necho ok\n"
	if err := os.WriteFile(script, []byte(contents), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	d := DownloadInvoker{Invoker: Invoker{}, MaxAttempts: 5}
	out, err := d.Run(context.Background(), dir, Env{}, "sh", script, counter)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(out) != "ok\n" {
		t.Errorf("Run() output = %q, want %q", out, "ok\n")
	}
}

func TestDownloadInvokerExhaustsAttempts(t *testing.T) {
	d := DownloadInvoker{Invoker: Invoker{}, MaxAttempts: 2}
	_, err := d.Run(context.Background(), t.TempDir(), Env{}, "sh", "-c", "exit 1")
	if err == nil {
		t.Fatalf("expected an error after exhausting retries")
	}
	tcErr, ok := err.(*errs.ToolchainError)
	if !ok {
		t.Fatalf("error = %v (%T), want *errs.ToolchainError", err, err)
	}
	if tcErr.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", tcErr.Attempts)
	}
}
