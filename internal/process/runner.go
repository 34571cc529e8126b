// Package process runs external commands and captures both output streams
// without deadlocking on full pipe buffers.
//
// The runner owns both read ends of the child's stdout and stderr pipes and
// multiplexes them with a readiness poll (poll(2)) on a single goroutine.
// Each wait is bounded by the configured poll interval so that context
// cancellation is observed between waits.
package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/text/encoding/unicode"
)

const (
	// DefaultPollInterval bounds a single readiness wait.
	DefaultPollInterval = time.Second
	// DefaultShell interprets command strings.
	DefaultShell = "/bin/sh"

	readChunk = 64 * 1024
)

// RunOptions tune a single Run call.
type RunOptions struct {
	// IgnoreErrors returns stdout even when the command exits non-zero.
	IgnoreErrors bool
	// Verbose echoes captured stderr to the runner's diagnostic writer.
	Verbose bool
}

// Runner executes shell command strings. The zero value is not usable; use NewRunner.
// A Runner holds no per-call state and is safe for concurrent use.
type Runner struct {
	shell        string
	pollInterval time.Duration
	diag         io.Writer
	logger       *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithPollInterval sets the upper bound of one readiness wait.
func WithPollInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.pollInterval = d
		}
	}
}

// WithShell sets the interpreter used as `<shell> -c <command>`.
func WithShell(shell string) Option {
	return func(r *Runner) {
		if shell = strings.TrimSpace(shell); shell != "" {
			r.shell = shell
		}
	}
}

// WithDiagnostics sets where verbose stderr output is echoed. Defaults to os.Stderr.
func WithDiagnostics(w io.Writer) Option {
	return func(r *Runner) {
		if w != nil {
			r.diag = w
		}
	}
}

// WithLogger sets the logger used for debug tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner constructs a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		shell:        DefaultShell,
		pollInterval: DefaultPollInterval,
		diag:         os.Stderr,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PollInterval reports the configured readiness wait bound.
func (r *Runner) PollInterval() time.Duration { return r.pollInterval }

type stream struct {
	name   string
	file   *os.File
	fd     int
	closed bool
	data   []byte
}

// Run executes command through the shell and returns everything it wrote to
// stdout, decoded as UTF-8.
//
// A command that cannot be started yields *LaunchError. A command that exits
// non-zero yields *ExternalCommandError carrying its stderr, unless
// opts.IgnoreErrors is set. Cancelling ctx kills the child and returns ctx's error.
func (r *Runner) Run(ctx context.Context, command string, opts RunOptions) (string, error) {
	if strings.TrimSpace(command) == "" {
		return "", errors.New("process: empty command")
	}

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return "", &LaunchError{Command: command, Err: fmt.Errorf("stdout pipe: %w", err)}
	}
	defer stdoutR.Close()

	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		stdoutW.Close()
		return "", &LaunchError{Command: command, Err: fmt.Errorf("stderr pipe: %w", err)}
	}
	defer stderrR.Close()

	cmd := exec.CommandContext(ctx, r.shell, "-c", command) //nolint:gosec
	cmd.Stdin = nil
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	startErr := cmd.Start()
	// The child holds its own copies; ours must go so EOF is observable.
	stdoutW.Close()
	stderrW.Close()
	if startErr != nil {
		return "", &LaunchError{Command: command, Err: startErr}
	}

	logger := r.logger.With(slog.String("command", command), slog.Int("pid", cmd.Process.Pid))
	logger.Debug("started external command")

	stdout := &stream{name: "stdout", file: stdoutR}
	stderr := &stream{name: "stderr", file: stderrR}
	streams := []*stream{stdout, stderr}
	for _, s := range streams {
		if err := s.bindFD(); err != nil {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			return "", fmt.Errorf("process: %s descriptor: %w", s.name, err)
		}
	}

	var waitErr error
	exited := make(chan struct{})
	go func() {
		waitErr = cmd.Wait()
		close(exited)
	}()

	cancelled, pollErr := r.multiplex(ctx, streams, exited)
	if pollErr != nil {
		_ = cmd.Process.Kill()
	}
	<-exited

	if ctxErr := interruption(ctx, cancelled, waitErr); ctxErr != nil {
		return "", fmt.Errorf("run %q: %w", command, ctxErr)
	}
	if pollErr != nil {
		return "", fmt.Errorf("run %q: %w", command, pollErr)
	}

	outText := decodeUTF8(stdout.data)
	errText := decodeUTF8(stderr.data)

	if opts.Verbose {
		if trimmed := strings.TrimSpace(errText); trimmed != "" {
			fmt.Fprintln(r.diag, trimmed)
		}
	}

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return "", fmt.Errorf("wait %q: %w", command, waitErr)
		}
		exitCode = exitErr.ExitCode()
	}
	logger.Debug("external command finished",
		slog.Int("exit_code", exitCode),
		slog.Int("stdout_bytes", len(stdout.data)),
		slog.Int("stderr_bytes", len(stderr.data)),
	)

	if exitCode != 0 && !opts.IgnoreErrors {
		return "", &ExternalCommandError{Command: command, ExitCode: exitCode, Stderr: errText}
	}
	return outText, nil
}

// multiplex reads from every stream until the child exits, each stream reports
// EOF, or ctx is done. Once the child has exited the pipes are drained without
// waiting, since a backgrounded grandchild may keep them open indefinitely.
// cancelled reports that ctx stopped the loop.
func (r *Runner) multiplex(ctx context.Context, streams []*stream, exited <-chan struct{}) (cancelled bool, err error) {
	timeout := int(r.pollInterval / time.Millisecond)
	if timeout < 1 {
		timeout = 1
	}
	buf := make([]byte, readChunk)
	fds := make([]unix.PollFd, 0, len(streams))
	watched := make([]*stream, 0, len(streams))

	for {
		select {
		case <-exited:
			return false, drain(streams, buf)
		default:
		}
		if ctx.Err() != nil {
			return true, nil
		}

		fds, watched = fds[:0], watched[:0]
		for _, s := range streams {
			if s.closed {
				continue
			}
			fds = append(fds, unix.PollFd{Fd: int32(s.fd), Events: unix.POLLIN})
			watched = append(watched, s)
		}
		if len(fds) == 0 {
			return false, nil
		}

		n, err := unix.Poll(fds, timeout)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("poll: %w", err)
		}
		if n == 0 {
			continue
		}
		for i, pfd := range fds {
			if pfd.Revents == 0 {
				continue
			}
			if _, err := watched[i].readAvailable(buf); err != nil {
				return false, fmt.Errorf("read %s: %w", watched[i].name, err)
			}
		}
	}
}

// interruption returns ctx's error when ctx ended the command: either the loop
// stopped on it, or the child died after it expired. A command that exited
// cleanly keeps its output even if ctx expired meanwhile.
func interruption(ctx context.Context, cancelled bool, waitErr error) error {
	ctxErr := ctx.Err()
	if ctxErr == nil || (!cancelled && waitErr == nil) {
		return nil
	}
	return ctxErr
}

// drain reads whatever is already buffered in each pipe and stops at the first
// read that would block.
func drain(streams []*stream, buf []byte) error {
	for _, s := range streams {
		for !s.closed {
			n, err := s.readAvailable(buf)
			if err != nil {
				return fmt.Errorf("read %s: %w", s.name, err)
			}
			if n == 0 {
				break
			}
		}
	}
	return nil
}

func (s *stream) bindFD() error {
	raw, err := s.file.SyscallConn()
	if err != nil {
		return err
	}
	var nbErr error
	if err := raw.Control(func(fd uintptr) {
		s.fd = int(fd)
		nbErr = unix.SetNonblock(s.fd, true)
	}); err != nil {
		return err
	}
	return nbErr
}

// readAvailable performs one read and returns the number of bytes kept.
// A zero-length read is EOF and closes the stream.
func (s *stream) readAvailable(buf []byte) (int, error) {
	n, err := unix.Read(s.fd, buf)
	switch {
	case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EINTR):
		return 0, nil
	case err != nil:
		s.closed = true
		return 0, err
	case n == 0:
		s.closed = true
		return 0, nil
	}
	s.data = append(s.data, buf[:n]...)
	return n, nil
}

func decodeUTF8(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	out, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "�")
	}
	return string(out)
}
