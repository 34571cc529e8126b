package genomics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SayaAndy/saya-today-format-converter/config"
	"github.com/SayaAndy/saya-today-format-converter/internal/converter"
	"github.com/SayaAndy/saya-today-format-converter/internal/process"
)

func fakeTool(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func descriptor(t *testing.T, cfg config.GenomicsConfig, name string) converter.Descriptor {
	t.Helper()
	for _, decl := range Declarations(cfg) {
		if decl.Name == name {
			desc, err := converter.Define(decl)
			require.NoError(t, err)
			return desc
		}
	}
	t.Fatalf("no declaration %q", name)
	return converter.Descriptor{}
}

func TestSam2BamInvokesSamtools(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "with space")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	argsFile := filepath.Join(dir, "args")
	t.Setenv("FAKE_ARGS", argsFile)
	samtools := fakeTool(t, dir, "samtools", `printf '%s\n' "$@" > "$FAKE_ARGS"`)

	in := filepath.Join(dir, "reads.sam")
	desc := descriptor(t, config.GenomicsConfig{SamtoolsBinary: samtools}, "Sam2Bam")
	conv, err := desc.New(in, "", converter.Options{Runner: process.NewRunner(), Params: map[string]any{"threads": 4}})
	require.NoError(t, err)
	require.NoError(t, conv.Convert(context.Background()))

	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	want := "view\n-b\n-@\n3\n-o\n" + filepath.Join(dir, "reads.bam") + "\n" + in + "\n"
	assert.Equal(t, want, string(args))
}

func TestBam2BedRedirectsStdout(t *testing.T) {
	dir := t.TempDir()
	bedtools := fakeTool(t, dir, "bedtools", `printf 'chr1\t0\t10\n'`)

	in := filepath.Join(dir, "it's.bam")
	out := filepath.Join(dir, "regions.bed")
	conv, err := descriptor(t, config.GenomicsConfig{BedtoolsBinary: bedtools}, "Bam2Bed").New(in, out, converter.Options{})
	require.NoError(t, err)
	require.NoError(t, conv.Convert(context.Background()))

	body, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "chr1\t0\t10\n", string(body))
}

func TestToolFailureCarriesStderr(t *testing.T) {
	dir := t.TempDir()
	samtools := fakeTool(t, dir, "samtools", `echo "[main_samview] truncated file." >&2; exit 1`)

	conv, err := descriptor(t, config.GenomicsConfig{SamtoolsBinary: samtools}, "Bam2Sam").New(filepath.Join(dir, "x.bam"), "", converter.Options{})
	require.NoError(t, err)
	err = conv.Convert(context.Background())
	require.Error(t, err)

	var cmdErr *process.ExternalCommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, 1, cmdErr.ExitCode)
	assert.Contains(t, cmdErr.Stderr, "truncated file")
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, `'plain'`, shellQuote("plain"))
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
}

func TestToolBinaryComesFromConfigOnly(t *testing.T) {
	dir := t.TempDir()
	samtools := fakeTool(t, dir, "samtools", "exit 0")
	desc := descriptor(t, config.GenomicsConfig{SamtoolsBinary: samtools}, "Bam2Sam")

	conv, err := desc.New(filepath.Join(dir, "reads.bam"), "", converter.Options{Params: map[string]any{"samtools": "/nonexistent/samtools"}})
	require.NoError(t, err)

	tool, ok := conv.(*ToolConverter)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(tool.Command(), shellQuote(samtools)+" view -h "))
	assert.NotContains(t, tool.Command(), "/nonexistent/samtools")
}
