package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/SayaAndy/saya-today-format-converter/config"
	"github.com/SayaAndy/saya-today-format-converter/internal/batch"
	"github.com/SayaAndy/saya-today-format-converter/internal/client/input"
	"github.com/SayaAndy/saya-today-format-converter/internal/client/output"
	"github.com/SayaAndy/saya-today-format-converter/internal/converters"
	"github.com/SayaAndy/saya-today-format-converter/internal/process"
	"github.com/SayaAndy/saya-today-format-converter/internal/registry"
)

var (
	configPath = flag.String("c", "config.json", "Path to the configuration file")
)

func main() {
	flag.Parse()

	slog.Info("starting format converter...")
	slog.SetLogLoggerLevel(slog.LevelDebug)

	cfg, err := config.InitConfig(*configPath)
	if err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, err := registry.New(converters.Modules(cfg), registry.WithSkipModules(cfg.Registry.SkipModules...))
	if err != nil {
		panic(err)
	}
	for _, pair := range reg.Conversions() {
		slog.Debug("available conversion", slog.String("input_format", pair.Input), slog.String("output_format", pair.Output))
	}

	inputClient, err := input.NewInputClientMap[cfg.Input.Storage.Type](&cfg.Input)
	if err != nil {
		panic(err)
	}

	outputClient, err := output.NewOutputClientMap[cfg.Output.Storage.Type](&cfg.Output)
	if err != nil {
		panic(err)
	}

	runner := process.NewRunner(
		process.WithShell(cfg.Process.Shell),
		process.WithPollInterval(cfg.Process.PollInterval()),
	)

	generalLogger := slog.With(
		slog.String("input_storage", cfg.Input.Storage.Type),
		slog.String("target_extension", cfg.TargetExtension),
		slog.String("output_storage", cfg.Output.Storage.Type),
	)
	generalLogger.Info("initialized clients and registry", slog.Int("converters", len(reg.Converters())))

	job := batch.NewJob(reg, inputClient, outputClient, batch.Options{
		TargetExtension:   cfg.TargetExtension,
		MaxConcurrentJobs: cfg.MaxConcurrentJobs,
		ForceRewrite:      cfg.ForceRewrite,
		Params:            map[string]any{"verbose": cfg.Process.Verbose},
		Runner:            runner,
		Logger:            generalLogger,
	})

	stats, err := job.Run(ctx)
	if err != nil {
		generalLogger.Error("conversion run aborted", slog.String("error", err.Error()))
		os.Exit(1)
	}

	generalLogger.Info("finished conversion run",
		slog.Int("converted", stats.Converted),
		slog.Int("skipped", stats.Skipped),
		slog.Int("unsupported", stats.Unsupported),
		slog.Int("failed", stats.Failed),
	)
	if stats.Failed > 0 {
		os.Exit(1)
	}
}
