// Package genomics wraps the samtools and bedtools command-line programs.
// Parsing and writing the formats is left entirely to those tools; the
// converters only build the command and run it through converter.Base.Execute.
package genomics

import (
	"context"
	"fmt"
	"strings"

	"github.com/SayaAndy/saya-today-format-converter/config"
	"github.com/SayaAndy/saya-today-format-converter/internal/converter"
)

func Declarations(cfg config.GenomicsConfig) []converter.Declaration {
	return []converter.Declaration{
		{
			Name:      "Sam2Bam",
			InputExt:  "sam",
			OutputExt: "bam",
			New:       samtoolsView(cfg.SamtoolsBinary, ".bam", "-b"),
			Doc:       "samtools view -b",
		},
		{
			Name:      "Bam2Sam",
			InputExt:  "bam",
			OutputExt: "sam",
			New:       samtoolsView(cfg.SamtoolsBinary, ".sam", "-h"),
			Doc:       "samtools view -h",
		},
		{
			Name:      "Bam2Bed",
			InputExt:  "bam",
			OutputExt: "bed",
			New:       bamToBed(cfg.BedtoolsBinary),
			Doc:       "bedtools bamtobed",
		},
	}
}

// ToolConverter runs a single shell command built from its paths.
type ToolConverter struct {
	converter.Base
	command string
	verbose bool
}

func (c *ToolConverter) Convert(ctx context.Context) error {
	var opts []converter.ExecOption
	if c.verbose {
		opts = append(opts, converter.Verbose())
	}
	if _, err := c.Execute(ctx, c.command, opts...); err != nil {
		return fmt.Errorf("convert %s: %w", c.InputPath, err)
	}
	return nil
}

// Command returns the shell command Convert will run.
func (c *ToolConverter) Command() string { return c.command }

func samtoolsView(binary, outputExt, flag string) converter.Factory {
	return func(inputPath, outputPath string, opts converter.Options) (converter.Converter, error) {
		base := converter.NewBase(inputPath, outputPath, outputExt, opts)
		args := []string{shellQuote(binary), "view", flag}
		if threads := opts.Int("threads", 0); threads > 1 {
			args = append(args, "-@", fmt.Sprint(threads-1))
		}
		args = append(args, "-o", shellQuote(base.OutputPath), shellQuote(base.InputPath))
		return &ToolConverter{Base: base, command: strings.Join(args, " "), verbose: opts.Bool("verbose", false)}, nil
	}
}

func bamToBed(binary string) converter.Factory {
	return func(inputPath, outputPath string, opts converter.Options) (converter.Converter, error) {
		base := converter.NewBase(inputPath, outputPath, ".bed", opts)
		command := fmt.Sprintf("%s bamtobed -i %s > %s",
			shellQuote(binary), shellQuote(base.InputPath), shellQuote(base.OutputPath))
		return &ToolConverter{Base: base, command: command, verbose: opts.Bool("verbose", false)}, nil
	}
}

// shellQuote wraps s in single quotes for /bin/sh.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
