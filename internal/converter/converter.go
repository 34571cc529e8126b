// Package converter defines the contract every conversion plugin satisfies:
// a Declaration validated once by Define into an immutable Descriptor, and the
// Converter capability produced by the descriptor's factory.
package converter

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/SayaAndy/saya-today-format-converter/internal/process"
)

// Converter performs one file conversion. Convert writes the output file as its
// only observable effect.
type Converter interface {
	Convert(ctx context.Context) error
}

// Factory builds a converter for concrete paths. outputPath may be empty, in
// which case the converter derives its own.
type Factory func(inputPath, outputPath string, opts Options) (Converter, error)

// Options carry format-specific parameters and the shared process runner.
type Options struct {
	Params map[string]any
	Runner *process.Runner
}

// Int reads an integer parameter. JSON numbers and numeric strings are accepted.
func (o Options) Int(key string, def int) int {
	switch v := o.Params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// String reads a string parameter.
func (o Options) String(key, def string) string {
	if v, ok := o.Params[key].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

// Bool reads a boolean parameter.
func (o Options) Bool(key string, def bool) bool {
	switch v := o.Params[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

// Base carries the paths every converter works on and the Execute helper for
// converters that shell out. Embed it in concrete converters.
type Base struct {
	InputPath  string
	OutputPath string
	runner     *process.Runner
}

// NewBase fills in the output path from outputExt when outputPath is empty.
func NewBase(inputPath, outputPath, outputExt string, opts Options) Base {
	if outputPath == "" {
		outputPath = DeriveOutputPath(inputPath, outputExt)
	}
	return Base{InputPath: inputPath, OutputPath: outputPath, runner: opts.Runner}
}

// ExecOption adjusts a single Execute call.
type ExecOption func(*process.RunOptions)

// IgnoreErrors returns stdout even when the command exits non-zero.
func IgnoreErrors() ExecOption { return func(o *process.RunOptions) { o.IgnoreErrors = true } }

// Verbose echoes the command's stderr to the runner's diagnostic writer.
func Verbose() ExecOption { return func(o *process.RunOptions) { o.Verbose = true } }

// Execute runs cmd through the shell and returns its stdout.
// A non-zero exit yields *process.ExternalCommandError unless IgnoreErrors is given.
func (b *Base) Execute(ctx context.Context, cmd string, opts ...ExecOption) (string, error) {
	var ro process.RunOptions
	for _, opt := range opts {
		opt(&ro)
	}
	if b.runner == nil {
		b.runner = process.NewRunner()
	}
	return b.runner.Run(ctx, cmd, ro)
}

// DeriveOutputPath replaces the extension of inputPath with ext.
func DeriveOutputPath(inputPath, ext string) string {
	withoutExt, _ := strings.CutSuffix(inputPath, filepath.Ext(inputPath))
	return withoutExt + NormalizeExtension(ext)
}
