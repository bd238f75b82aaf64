// Package plantuml shells out to the PlantUML binary to turn diagram text
// into images. The binary is an optional runtime dependency: when it is not
// installed, rendering reports "no image" instead of failing, and callers
// fall back to text-only output.
package plantuml

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// DefaultBinary is the executable looked up on PATH.
const DefaultBinary = "plantuml"

// DefaultTimeout bounds a single rendering run.
const DefaultTimeout = 30 * time.Second

// Executor runs the PlantUML binary.
type Executor interface {
	Run(ctx context.Context, args []string, stdin []byte) ([]byte, error)
	Available() bool
}

// DefaultExecutor implements Executor using os/exec.
type DefaultExecutor struct {
	binary string
	logger *slog.Logger
	dryRun bool
}

// NewExecutor creates a command executor for the given binary name.
func NewExecutor(binary string, logger *slog.Logger, dryRun bool) *DefaultExecutor {
	if binary == "" {
		binary = DefaultBinary
	}
	return &DefaultExecutor{
		binary: binary,
		logger: logger,
		dryRun: dryRun,
	}
}

// Available reports whether the binary can be found on PATH.
func (e *DefaultExecutor) Available() bool {
	_, err := exec.LookPath(e.binary)
	return err == nil
}

// Run executes the binary with stdin piped in and stdout captured. Stderr is
// folded into the returned error on failure.
func (e *DefaultExecutor) Run(ctx context.Context, args []string, stdin []byte) ([]byte, error) {
	e.logger.Debug("executing command",
		"cmd", e.binary,
		"args", args,
	)

	if e.dryRun {
		fmt.Printf("[dry-run] %s %s\n", e.binary, strings.Join(args, " "))
		return nil, nil
	}

	c := exec.CommandContext(ctx, e.binary, args...)
	c.Stdin = bytes.NewReader(stdin)

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	if err := c.Run(); err != nil {
		return nil, fmt.Errorf("%w: %s", err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// Renderer adapts an Executor to the diagram image-rendering contract:
// `plantuml -t<format> -pipe` with the PUML text on stdin and the image bytes
// on stdout. A missing binary yields (nil, nil); a failed run yields the
// execution error, which render pipelines treat as "no image".
type Renderer struct {
	executor Executor
	timeout  time.Duration
	logger   *slog.Logger
}

// NewRenderer wraps executor with a per-run timeout. A zero timeout falls
// back to DefaultTimeout.
func NewRenderer(executor Executor, timeout time.Duration, logger *slog.Logger) *Renderer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Renderer{
		executor: executor,
		timeout:  timeout,
		logger:   logger,
	}
}

// Render produces image bytes for puml in the given format.
func (r *Renderer) Render(ctx context.Context, puml string, format string) ([]byte, error) {
	if !r.executor.Available() {
		r.logger.Debug("plantuml binary not found, skipping image generation")
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	data, err := r.executor.Run(ctx, []string{"-t" + format, "-pipe"}, []byte(puml))
	if err != nil {
		r.logger.Warn("plantuml rendering failed", "format", format, "error", err)
		return nil, err
	}
	return data, nil
}
