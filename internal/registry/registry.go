package registry

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/SayaAndy/saya-today-format-converter/internal/converter"
)

// ReservedModules never hold converters and are always skipped.
var ReservedModules = []string{"base", "registry"}

// Module is one loadable unit of the plugin namespace.
type Module struct {
	Name string
	Load func() ([]converter.Declaration, error)
}

// Option configures discovery.
type Option func(*options)

type options struct {
	logger *slog.Logger
	skip   []string
}

// WithLogger sets the logger receiving discovery warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSkipModules excludes modules by name in addition to ReservedModules.
func WithSkipModules(names ...string) Option {
	return func(o *options) { o.skip = append(o.skip, names...) }
}

// Registry holds the two lookup indexes built by New.
type Registry struct {
	byExt      map[converter.ExtensionPair]converter.Descriptor
	byFmt      map[converter.FormatPair]converter.Descriptor
	converters []converter.Descriptor
	warnings   []error
}

// New runs discovery over modules and returns the populated registry.
// The only error it returns is a *DuplicateRegistration.
func New(modules []Module, opts ...Option) (*Registry, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	r := &Registry{
		byExt: make(map[converter.ExtensionPair]converter.Descriptor),
		byFmt: make(map[converter.FormatPair]converter.Descriptor),
	}

	for _, m := range modules {
		logger := o.logger.With(slog.String("module", m.Name))
		if slices.Contains(ReservedModules, m.Name) || slices.Contains(o.skip, m.Name) {
			logger.Debug("skip non-plugin module")
			continue
		}

		decls, err := loadModule(m)
		if err != nil {
			logger.Warn("skip module", slog.String("error", err.Error()))
			r.warnings = append(r.warnings, err)
			continue
		}

		for _, decl := range decls {
			if decl.Abstract() {
				logger.Debug("skip abstract converter", slog.String("converter", decl.Name))
				continue
			}
			desc, err := converter.Define(decl)
			if err != nil {
				logger.Warn("skip converter", slog.String("converter", decl.Name), slog.String("error", err.Error()))
				r.warnings = append(r.warnings, err)
				continue
			}
			if err := r.add(desc); err != nil {
				return nil, err
			}
			logger.Debug("registered converter",
				slog.String("converter", desc.Name()),
				slog.String("formats", desc.FormatPair().String()),
			)
		}
	}

	return r, nil
}

func loadModule(m Module) (decls []converter.Declaration, err error) {
	if m.Load == nil {
		return nil, &ModuleLoadError{Module: m.Name, Err: errors.New("module has no loader")}
	}
	defer func() {
		if rec := recover(); rec != nil {
			decls = nil
			err = &ModuleLoadError{Module: m.Name, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()
	decls, err = m.Load()
	if err != nil {
		return nil, &ModuleLoadError{Module: m.Name, Err: err}
	}
	return decls, nil
}

// add inserts desc into both indexes. Nothing is inserted when any key collides.
func (r *Registry) add(desc converter.Descriptor) error {
	pairs := desc.ExtensionPairs()
	for _, pair := range pairs {
		if existing, ok := r.byExt[pair]; ok {
			return &DuplicateRegistration{Index: "extension", Key: pair.String(), Existing: existing.Name(), Incoming: desc.Name()}
		}
	}
	fp := desc.FormatPair()
	if existing, ok := r.byFmt[fp]; ok {
		return &DuplicateRegistration{Index: "format", Key: fp.String(), Existing: existing.Name(), Incoming: desc.Name()}
	}

	for _, pair := range pairs {
		r.byExt[pair] = desc
	}
	r.byFmt[fp] = desc
	r.converters = append(r.converters, desc)
	return nil
}

// Contains reports whether a converter handles the extension pair.
// A missing leading "." is added; comparison is case-sensitive.
func (r *Registry) Contains(inputExt, outputExt string) bool {
	_, ok := r.byExt[extPair(inputExt, outputExt)]
	return ok
}

// Lookup returns the converter registered for the extension pair, or ErrNotFound.
func (r *Registry) Lookup(inputExt, outputExt string) (converter.Descriptor, error) {
	pair := extPair(inputExt, outputExt)
	desc, ok := r.byExt[pair]
	if !ok {
		return converter.Descriptor{}, fmt.Errorf("%w: extension pair %s", ErrNotFound, pair)
	}
	return desc, nil
}

// ForPaths resolves a converter from the extensions of two file paths.
func (r *Registry) ForPaths(inputPath, outputPath string) (converter.Descriptor, error) {
	inExt, outExt := filepath.Ext(inputPath), filepath.Ext(outputPath)
	if inExt == "" || outExt == "" {
		return converter.Descriptor{}, fmt.Errorf("%w: cannot infer extensions from %q and %q", ErrNotFound, inputPath, outputPath)
	}
	return r.Lookup(inExt, outExt)
}

// ConversionExists reports whether a converter handles the format pair.
// Formats are compared case-insensitively.
func (r *Registry) ConversionExists(inputFormat, outputFormat string) bool {
	_, ok := r.byFmt[fmtPair(inputFormat, outputFormat)]
	return ok
}

// LookupFormat returns the converter registered for the format pair, or ErrNotFound.
func (r *Registry) LookupFormat(inputFormat, outputFormat string) (converter.Descriptor, error) {
	pair := fmtPair(inputFormat, outputFormat)
	desc, ok := r.byFmt[pair]
	if !ok {
		return converter.Descriptor{}, fmt.Errorf("%w: format pair %s", ErrNotFound, pair)
	}
	return desc, nil
}

// Conversions returns a sorted snapshot of every registered format pair.
func (r *Registry) Conversions() []converter.FormatPair {
	pairs := make([]converter.FormatPair, 0, len(r.byFmt))
	for pair := range r.byFmt {
		pairs = append(pairs, pair)
	}
	slices.SortFunc(pairs, func(a, b converter.FormatPair) int {
		return cmp.Or(cmp.Compare(a.Input, b.Input), cmp.Compare(a.Output, b.Output))
	})
	return pairs
}

// ExtensionPairs returns a sorted snapshot of every registered extension pair.
func (r *Registry) ExtensionPairs() []converter.ExtensionPair {
	pairs := make([]converter.ExtensionPair, 0, len(r.byExt))
	for pair := range r.byExt {
		pairs = append(pairs, pair)
	}
	slices.SortFunc(pairs, func(a, b converter.ExtensionPair) int {
		return cmp.Or(cmp.Compare(a.Input, b.Input), cmp.Compare(a.Output, b.Output))
	})
	return pairs
}

// Converters returns every registered descriptor in discovery order.
func (r *Registry) Converters() []converter.Descriptor {
	return slices.Clone(r.converters)
}

// Warnings returns the non-fatal problems met during discovery:
// *ModuleLoadError and *converter.ContractViolation values.
func (r *Registry) Warnings() []error {
	return slices.Clone(r.warnings)
}

func extPair(in, out string) converter.ExtensionPair {
	return converter.ExtensionPair{Input: converter.NormalizeExtension(in), Output: converter.NormalizeExtension(out)}
}

func fmtPair(in, out string) converter.FormatPair {
	return converter.FormatPair{Input: strings.ToUpper(in), Output: strings.ToUpper(out)}
}
