package config

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultQuality           = 80
	DefaultPollIntervalMs    = 1000
	DefaultMaxConcurrentJobs = 1
	DefaultSamtoolsBinary    = "samtools"
	DefaultBedtoolsBinary    = "bedtools"
)

func applyDefaults(cfg *Config) {
	if cfg.MaxConcurrentJobs == 0 {
		cfg.MaxConcurrentJobs = DefaultMaxConcurrentJobs
	}
	if cfg.Process.PollIntervalMs == 0 {
		cfg.Process.PollIntervalMs = DefaultPollIntervalMs
	}
	if cfg.Raster.Quality == 0 {
		cfg.Raster.Quality = DefaultQuality
	}
	if cfg.Webp.Quality == 0 {
		cfg.Webp.Quality = DefaultQuality
	}
	if strings.TrimSpace(cfg.Genomics.SamtoolsBinary) == "" {
		cfg.Genomics.SamtoolsBinary = DefaultSamtoolsBinary
	}
	if strings.TrimSpace(cfg.Genomics.BedtoolsBinary) == "" {
		cfg.Genomics.BedtoolsBinary = DefaultBedtoolsBinary
	}
	if cfg.TargetExtension != "" && !strings.HasPrefix(cfg.TargetExtension, ".") {
		cfg.TargetExtension = "." + cfg.TargetExtension
	}
}

func newValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	_ = validate.RegisterValidation("octal_mode", func(fl validator.FieldLevel) bool {
		_, err := strconv.ParseUint(fl.Field().String(), 8, 32)
		return err == nil
	})
	return validate
}
