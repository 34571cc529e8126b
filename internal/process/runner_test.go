package process

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCapturesStdout(t *testing.T) {
	r := NewRunner()
	out, err := r.Run(context.Background(), "printf 'hello\\nworld\\n'", RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, "hello\nworld\n", out)
}

func TestRunLargeOutputIsNotTruncated(t *testing.T) {
	const size = 300000
	r := NewRunner(WithPollInterval(50 * time.Millisecond))

	cmd := "head -c 300000 /dev/zero | tr '\\000' 'a'; head -c 100000 /dev/zero | tr '\\000' 'e' >&2"
	out, err := r.Run(context.Background(), cmd, RunOptions{})
	require.NoError(t, err)
	assert.Len(t, out, size)
	assert.Equal(t, strings.Repeat("a", size), out)
}

func TestRunNonZeroExit(t *testing.T) {
	r := NewRunner()
	cmd := "echo partial; echo 'something broke' >&2; exit 2"

	_, err := r.Run(context.Background(), cmd, RunOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExternalCommand))

	var cmdErr *ExternalCommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, 2, cmdErr.ExitCode)
	assert.Contains(t, cmdErr.Stderr, "something broke")
	assert.False(t, errors.Is(err, ErrLaunch))

	out, err := r.Run(context.Background(), cmd, RunOptions{IgnoreErrors: true})
	require.NoError(t, err)
	assert.Equal(t, "partial\n", out)
}

func TestRunVerboseEchoesStderr(t *testing.T) {
	var diag bytes.Buffer
	r := NewRunner(WithDiagnostics(&diag))

	_, err := r.Run(context.Background(), "echo warning >&2", RunOptions{Verbose: true})
	require.NoError(t, err)
	assert.Equal(t, "warning\n", diag.String())

	diag.Reset()
	_, err = r.Run(context.Background(), "echo warning >&2", RunOptions{})
	require.NoError(t, err)
	assert.Empty(t, diag.String())
}

func TestRunLaunchFailure(t *testing.T) {
	r := NewRunner(WithShell("/nonexistent/shell"))

	_, err := r.Run(context.Background(), "true", RunOptions{IgnoreErrors: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLaunch))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.False(t, errors.Is(err, ErrExternalCommand))
}

func TestRunEmptyCommand(t *testing.T) {
	_, err := NewRunner().Run(context.Background(), "   ", RunOptions{})
	require.Error(t, err)
}

func TestRunCancelledContext(t *testing.T) {
	r := NewRunner(WithPollInterval(20 * time.Millisecond))
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Run(ctx, "exec sleep 5", RunOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestRunInvalidUTF8IsReplaced(t *testing.T) {
	out, err := NewRunner().Run(context.Background(), "printf 'ok\\377'", RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, "ok�", out)
}

func TestExternalCommandErrorMessage(t *testing.T) {
	err := &ExternalCommandError{Command: "samtools view", ExitCode: 1, Stderr: "  bad header\n"}
	assert.Equal(t, `command "samtools view" exited with code 1: bad header`, err.Error())

	err.Stderr = ""
	assert.Equal(t, `command "samtools view" exited with code 1`, err.Error())
}

func TestRunReturnsWhenShellExitsBeforeBackgroundChild(t *testing.T) {
	r := NewRunner(WithPollInterval(20 * time.Millisecond))

	start := time.Now()
	out, err := r.Run(context.Background(), "sleep 5 & echo done", RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, "done\n", out)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestRunDrainsOutputWrittenJustBeforeExit(t *testing.T) {
	r := NewRunner(WithPollInterval(time.Second))
	out, err := r.Run(context.Background(), "sleep 5 & printf 'tail'; printf 'err' >&2", RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, "tail", out)
}

func TestInterruption(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	exitErr := errors.New("signal: killed")

	assert.NoError(t, interruption(context.Background(), true, exitErr))
	assert.NoError(t, interruption(cancelled, false, nil), "clean exit keeps its output")
	assert.ErrorIs(t, interruption(cancelled, false, exitErr), context.Canceled)
	assert.ErrorIs(t, interruption(cancelled, true, nil), context.Canceled)
}
