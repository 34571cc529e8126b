// Package batch converts every eligible file of an input storage into the
// configured target extension and uploads the results to an output storage.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/SayaAndy/saya-today-format-converter/internal/client/input"
	"github.com/SayaAndy/saya-today-format-converter/internal/client/output"
	"github.com/SayaAndy/saya-today-format-converter/internal/converter"
	"github.com/SayaAndy/saya-today-format-converter/internal/process"
	"github.com/SayaAndy/saya-today-format-converter/internal/registry"
)

// Options tune a Job.
type Options struct {
	TargetExtension   string
	MaxConcurrentJobs int
	ForceRewrite      bool
	Params            map[string]any
	Runner            *process.Runner
	Logger            *slog.Logger
	// WorkDir holds per-file staging directories. Empty means os.TempDir().
	WorkDir string
}

// Stats counts per-file outcomes of one Run.
type Stats struct {
	Converted   int
	Skipped     int
	Unsupported int
	Failed      int
}

type outcome int

const (
	converted outcome = iota
	skipped
	failed
)

// Job is one pass over the input storage.
type Job struct {
	registry *registry.Registry
	input    input.InputClient
	output   output.OutputClient
	opts     Options
	logger   *slog.Logger
}

func NewJob(reg *registry.Registry, in input.InputClient, out output.OutputClient, opts Options) *Job {
	if opts.MaxConcurrentJobs < 1 {
		opts.MaxConcurrentJobs = 1
	}
	if opts.TargetExtension != "" {
		opts.TargetExtension = converter.NormalizeExtension(opts.TargetExtension)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Job{registry: reg, input: in, output: out, opts: opts, logger: logger}
}

// Run scans the input storage and converts every file a registered converter
// can turn into the target extension. A failing file is logged and counted;
// only a scan failure or cancellation aborts the run.
func (j *Job) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	if j.opts.TargetExtension == "" {
		return stats, errors.New("batch: target extension required")
	}

	files, err := j.input.Scan(ctx)
	if err != nil {
		return stats, fmt.Errorf("scan input: %w", err)
	}
	j.logger.Info("scanned input storage", slog.Int("files", len(files)))

	tasks, unsupportedCount, collisions := j.plan(files)
	stats.Unsupported = unsupportedCount
	stats.Failed = collisions

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.opts.MaxConcurrentJobs)

	for _, t := range tasks {
		g.Go(func() error {
			result := j.processFile(gctx, t)
			mu.Lock()
			defer mu.Unlock()
			switch result {
			case converted:
				stats.Converted++
			case skipped:
				stats.Skipped++
			case failed:
				stats.Failed++
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}

type task struct {
	file       string
	outputName string
	desc       converter.Descriptor
}

// plan resolves a converter for every file and claims each output name once.
// Files are claimed in lexical order; any later file mapping to an already
// claimed output is reported and counted as failed instead of overwriting it.
func (j *Job) plan(files []string) (tasks []task, unsupportedCount, collisions int) {
	sorted := slices.Clone(files)
	slices.Sort(sorted)
	claimedBy := make(map[string]string, len(sorted))

	for _, file := range sorted {
		outputName := converter.DeriveOutputPath(file, j.opts.TargetExtension)
		desc, err := j.resolve(file)
		if err != nil {
			j.logger.Debug("skip file without converter",
				slog.String("input_path", j.input.ID(file)),
				slog.String("error", err.Error()),
			)
			unsupportedCount++
			continue
		}
		if owner, ok := claimedBy[outputName]; ok {
			j.logger.Error("skip file whose output is already claimed by another input",
				slog.String("input_path", j.input.ID(file)),
				slog.String("output_path", j.output.ID(outputName)),
				slog.String("claimed_by", j.input.ID(owner)),
			)
			collisions++
			continue
		}
		claimedBy[outputName] = file
		tasks = append(tasks, task{file: file, outputName: outputName, desc: desc})
	}
	return tasks, unsupportedCount, collisions
}

func (j *Job) resolve(file string) (converter.Descriptor, error) {
	ext := filepath.Ext(file)
	desc, err := j.registry.Lookup(ext, j.opts.TargetExtension)
	if errors.Is(err, registry.ErrNotFound) && ext != strings.ToLower(ext) {
		return j.registry.Lookup(strings.ToLower(ext), j.opts.TargetExtension)
	}
	return desc, err
}

func (j *Job) processFile(ctx context.Context, t task) outcome {
	file, outputName, desc := t.file, t.outputName, t.desc
	jobID := uuid.NewString()
	fileLogger := j.logger.With(
		slog.String("job_id", jobID),
		slog.String("input_path", j.input.ID(file)),
		slog.String("output_path", j.output.ID(outputName)),
		slog.String("converter", desc.Name()),
	)

	inputMetadata, err := j.input.ReadMetadata(ctx, file)
	if err != nil {
		fileLogger.Error("fail to read metadata of (supposedly existing) input file", slog.String("error", err.Error()))
		return failed
	}

	if !j.opts.ForceRewrite && !j.output.IsMissing(ctx, outputName) {
		outputMetadata, err := j.output.ReadMetadata(ctx, outputName)
		if err != nil {
			fileLogger.Error("fail to read metadata of (supposedly existing) output file", slog.String("error", err.Error()))
			return failed
		}
		if outputMetadata.HashOriginal != "" && inputMetadata.Hash == outputMetadata.HashOriginal {
			fileLogger.Info("skip already processed file (based on equal hash)", slog.String("input_hash", inputMetadata.Hash))
			return skipped
		}
	}

	fileLogger.Info("start to process file")
	if err := j.convert(ctx, jobID, desc, file, outputName, inputMetadata); err != nil {
		fileLogger.Error("fail to convert file", slog.String("error", err.Error()))
		return failed
	}

	fileLogger.Info("successfully processed file", slog.String("input_hash", inputMetadata.Hash))
	return converted
}

// convert stages the input in a private directory named after the job, runs
// the converter there and streams the result to the output storage.
func (j *Job) convert(ctx context.Context, jobID string, desc converter.Descriptor, file, outputName string, inputMetadata *input.MetadataStruct) error {
	workDir, err := os.MkdirTemp(j.opts.WorkDir, "convert-"+jobID+"-")
	if err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	localIn := filepath.Join(workDir, "in"+filepath.Ext(file))
	localOut := filepath.Join(workDir, "out"+j.opts.TargetExtension)

	if err := j.stage(ctx, file, localIn); err != nil {
		return err
	}

	conv, err := desc.New(localIn, localOut, converter.Options{Params: j.opts.Params, Runner: j.opts.Runner})
	if err != nil {
		return err
	}
	if err := conv.Convert(ctx); err != nil {
		return err
	}

	result, err := os.Open(localOut)
	if err != nil {
		return fmt.Errorf("open converted file: %w", err)
	}
	defer result.Close()

	writer, err := j.output.GetWriter(ctx, outputName, inputMetadata)
	if err != nil {
		return fmt.Errorf("fail to get writer for output file: %w", err)
	}
	if _, err := io.Copy(writer, result); err != nil {
		if abortErr := writer.Abort(); abortErr != nil {
			err = errors.Join(err, abortErr)
		}
		return fmt.Errorf("upload converted file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize converted file: %w", err)
	}
	return nil
}

func (j *Job) stage(ctx context.Context, file, localIn string) error {
	reader, err := j.input.GetReader(ctx, file)
	if err != nil {
		return fmt.Errorf("fail to get reader for input file: %w", err)
	}
	defer reader.Close()

	f, err := os.Create(localIn)
	if err != nil {
		return fmt.Errorf("create staged input: %w", err)
	}
	if _, err := io.Copy(f, reader); err != nil {
		f.Close()
		return fmt.Errorf("download input file: %w", err)
	}
	return f.Close()
}
