package typst

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"
)

// fakeRunner scripts the compiler invocation. When artifact is non-nil it
// is written to the output path argument, mimicking a successful compile.
type fakeRunner struct {
	artifact []byte
	stderr   string
	err      error

	gotName string
	gotArgs []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	f.gotName = name
	f.gotArgs = args
	if f.artifact != nil {
		if len(args) < 3 {
			return "", errors.New("missing output path")
		}
		if err := os.WriteFile(args[2], f.artifact, 0o644); err != nil {
			return "", err
		}
	}
	return f.stderr, f.err
}

func TestNewInvokerRejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	if _, err := NewInvoker(WithFormat("gif")); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("NewInvoker() error = %v, want %v", err, ErrUnknownFormat)
	}
}

func TestWithTimeoutPanicsOnNonPositive(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("WithTimeout(0) did not panic")
		}
	}()
	WithTimeout(0)
}

func TestCompose(t *testing.T) {
	t.Parallel()

	src := "#let x = 1"
	if got := Compose(src, true); got != Prelude+src {
		t.Errorf("Compose(prelude) = %q", got)
	}
	if got := Compose(src, false); got != src {
		t.Errorf("Compose(no prelude) = %q", got)
	}
}

func TestRenderSuccess(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{artifact: []byte("<svg/>")}
	inv, err := NewInvoker(WithRunner(runner))
	if err != nil {
		t.Fatalf("NewInvoker() error = %v", err)
	}

	res, err := inv.Render(context.Background(), "#let x = 1", true)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !res.OK() {
		t.Fatalf("Render() failed: %s", res.Reason)
	}
	if string(res.Artifact) != "<svg/>" {
		t.Errorf("artifact = %q", res.Artifact)
	}
	if res.Format != FormatSVG {
		t.Errorf("format = %q, want %q", res.Format, FormatSVG)
	}

	if runner.gotName != DefaultBinary {
		t.Errorf("binary = %q, want %q", runner.gotName, DefaultBinary)
	}
	if len(runner.gotArgs) != 3 || runner.gotArgs[0] != "compile" {
		t.Fatalf("args = %v, want compile <in> <out>", runner.gotArgs)
	}
	if !strings.HasSuffix(runner.gotArgs[1], ".typ") {
		t.Errorf("input path = %q, want .typ suffix", runner.gotArgs[1])
	}
	if !strings.HasSuffix(runner.gotArgs[2], ".svg") {
		t.Errorf("output path = %q, want .svg suffix", runner.gotArgs[2])
	}
}

func TestRenderCleansUpTempFiles(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{artifact: []byte("x")}
	inv, err := NewInvoker(WithRunner(runner))
	if err != nil {
		t.Fatalf("NewInvoker() error = %v", err)
	}

	if _, err := inv.Render(context.Background(), "= a", false); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	for _, path := range []string{runner.gotArgs[1], runner.gotArgs[2]} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("temp file %q still exists", path)
		}
	}
}

func TestRenderFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		runner     *fakeRunner
		wantReason string
	}{
		{
			name:       "compiler error includes stderr",
			runner:     &fakeRunner{err: errors.New("exit status 1"), stderr: "error: unknown variable"},
			wantReason: "unknown variable",
		},
		{
			name:       "missing binary",
			runner:     &fakeRunner{err: &exec.Error{Name: "typst", Err: exec.ErrNotFound}},
			wantReason: "not found in PATH",
		},
		{
			name:       "empty artifact",
			runner:     &fakeRunner{artifact: []byte{}},
			wantReason: "artifact is empty",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			inv, err := NewInvoker(WithRunner(tt.runner))
			if err != nil {
				t.Fatalf("NewInvoker() error = %v", err)
			}

			res, err := inv.Render(context.Background(), "= a", false)
			if err != nil {
				t.Fatalf("Render() error = %v, failures must be in-band", err)
			}
			if res.OK() {
				t.Fatal("Render() succeeded, want failure")
			}
			if !strings.Contains(res.Reason, tt.wantReason) {
				t.Errorf("Reason = %q, want substring %q", res.Reason, tt.wantReason)
			}
		})
	}
}

func TestRenderCancellationIsAnError(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inv, err := NewInvoker(WithRunner(&fakeRunner{artifact: []byte("x")}))
	if err != nil {
		t.Fatalf("NewInvoker() error = %v", err)
	}

	if _, err := inv.Render(ctx, "= a", false); !errors.Is(err, context.Canceled) {
		t.Errorf("Render() error = %v, want %v", err, context.Canceled)
	}
}

func TestRenderTimeoutIsAFailure(t *testing.T) {
	t.Parallel()

	// A runner that blocks until its context expires, like a hung compiler.
	runner := runnerFunc(func(ctx context.Context, _ string, _ ...string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	inv, err := NewInvoker(WithRunner(runner), WithTimeout(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewInvoker() error = %v", err)
	}

	res, err := inv.Render(context.Background(), "= a", false)
	if err != nil {
		t.Fatalf("Render() error = %v, timeout must be in-band", err)
	}
	if res.OK() || !strings.Contains(res.Reason, "timed out") {
		t.Errorf("Reason = %q, want timeout failure", res.Reason)
	}
}

type runnerFunc func(ctx context.Context, name string, args ...string) (string, error)

func (f runnerFunc) Run(ctx context.Context, name string, args ...string) (string, error) {
	return f(ctx, name, args...)
}
