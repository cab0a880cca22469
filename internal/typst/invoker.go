// Package typst invokes the external Typst compiler to render source
// snippets to images.
package typst

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/alnah/go-typst-highlight/internal/fileutil"
	"github.com/alnah/go-typst-highlight/internal/process"
)

// Prelude is prepended to snippets before compilation so they render as a
// tight, auto-sized page instead of a full A4 sheet.
const Prelude = "#set page(width: 350pt, height: auto, margin: 0.5cm)\n"

// Render output formats.
const (
	FormatSVG = "svg"
	FormatPNG = "png"
)

// Defaults for the invoker.
const (
	DefaultBinary  = "typst"
	DefaultTimeout = 30 * time.Second

	// waitDelay bounds how long exec waits for I/O after the process is
	// killed on cancellation.
	waitDelay = 5 * time.Second
)

// ErrUnknownFormat indicates an unsupported render format.
var ErrUnknownFormat = errors.New("unknown render format")

// Result carries either a rendered artifact or a failure reason.
// Failures are data, not errors: rendering is best-effort and the caller
// falls back to highlight-only output.
type Result struct {
	Artifact []byte
	Format   string
	Reason   string
}

// OK reports whether the render produced an artifact.
func (r Result) OK() bool {
	return r.Reason == ""
}

func failure(format string, args ...any) Result {
	return Result{Reason: fmt.Sprintf(format, args...)}
}

// Runner abstracts compiler execution to enable testing without a real
// subprocess.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stderr string, err error)
}

// execRunner implements Runner using os/exec. The subprocess starts in its
// own process group and the whole group is killed on cancellation so no
// orphan processes survive.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	process.SetGroup(cmd)
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		process.KillGroup(cmd.Process.Pid)
		return cmd.Process.Kill()
	}
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	return stderr.String(), err
}

// Invoker renders Typst snippets through the external compiler.
type Invoker struct {
	binary  string
	format  string
	timeout time.Duration
	runner  Runner
}

// InvokerOption configures an Invoker.
type InvokerOption func(*Invoker)

// WithBinary sets the compiler binary name or path.
func WithBinary(bin string) InvokerOption {
	return func(inv *Invoker) {
		if bin != "" {
			inv.binary = bin
		}
	}
}

// WithFormat sets the artifact format (svg or png).
func WithFormat(format string) InvokerOption {
	return func(inv *Invoker) {
		if format != "" {
			inv.format = format
		}
	}
}

// WithTimeout bounds a single compiler invocation.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) InvokerOption {
	if d <= 0 {
		panic("typst: WithTimeout duration must be positive")
	}
	return func(inv *Invoker) {
		inv.timeout = d
	}
}

// WithRunner replaces the subprocess runner (for tests).
func WithRunner(r Runner) InvokerOption {
	return func(inv *Invoker) {
		inv.runner = r
	}
}

// NewInvoker creates an Invoker with defaults applied.
func NewInvoker(opts ...InvokerOption) (*Invoker, error) {
	inv := &Invoker{
		binary:  DefaultBinary,
		format:  FormatSVG,
		timeout: DefaultTimeout,
		runner:  execRunner{},
	}
	for _, opt := range opts {
		opt(inv)
	}
	if inv.format != FormatSVG && inv.format != FormatPNG {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, inv.format)
	}
	return inv, nil
}

// Format returns the configured artifact format.
func (inv *Invoker) Format() string {
	return inv.format
}

// Compose returns the exact source handed to the compiler for a snippet.
// Exposed so artifact naming can hash the same bytes that were compiled.
func Compose(source string, usePrelude bool) string {
	if usePrelude {
		return Prelude + source
	}
	return source
}

// Render compiles a snippet to an image artifact. All failure modes
// (missing binary, nonzero exit, timeout, missing or empty artifact) are
// returned inside the Result; the error return is reserved for context
// cancellation, which must stop the whole run. Temporary files are removed
// on every path.
func (inv *Invoker) Render(ctx context.Context, source string, usePrelude bool) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	composed := Compose(source, usePrelude)

	inPath, cleanupIn, err := fileutil.WriteTempFile([]byte(composed), "typ")
	if err != nil {
		return failure("preparing input: %v", err), nil
	}
	defer cleanupIn()

	outPath, cleanupOut, err := fileutil.TempPath(inv.format)
	if err != nil {
		return failure("preparing output: %v", err), nil
	}
	defer cleanupOut()

	runCtx, cancel := context.WithTimeout(ctx, inv.timeout)
	defer cancel()

	stderr, runErr := inv.runner.Run(runCtx, inv.binary, "compile", inPath, outPath)
	if runErr != nil {
		// Cancellation of the whole run propagates as an error; a
		// per-invocation timeout is an ordinary render failure.
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return failure("compiler timed out after %s", inv.timeout), nil
		}
		if errors.Is(runErr, exec.ErrNotFound) {
			return failure("compiler %q not found in PATH", inv.binary), nil
		}
		return failure("compiler failed: %v%s", runErr, stderrSuffix(stderr)), nil
	}

	artifact, err := os.ReadFile(outPath)
	if err != nil {
		return failure("compiler succeeded but produced no artifact: %v", err), nil
	}
	if len(artifact) == 0 {
		return failure("compiler succeeded but artifact is empty"), nil
	}

	return Result{Artifact: artifact, Format: inv.format}, nil
}

// stderrSuffix formats compiler stderr for inclusion in a failure reason.
func stderrSuffix(stderr string) string {
	trimmed := strings.TrimSpace(stderr)
	if trimmed == "" {
		return ""
	}
	return ": " + trimmed
}
