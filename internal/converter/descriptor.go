package converter

import (
	"fmt"
	"slices"
)

// ExtensionPair keys the extension index: normalized input and output extensions.
type ExtensionPair struct {
	Input  string
	Output string
}

func (p ExtensionPair) String() string { return p.Input + " -> " + p.Output }

// FormatPair keys the format index: upper-case input and output formats.
type FormatPair struct {
	Input  string
	Output string
}

func (p FormatPair) String() string { return p.Input + " -> " + p.Output }

// Descriptor is the validated, normalized form of a Declaration. It is a value
// type; its slices are never handed out without copying.
type Descriptor struct {
	name         string
	doc          string
	inputExts    []string
	outputExts   []string
	inputFormat  string
	outputFormat string
	factory      Factory
}

func (d Descriptor) Name() string         { return d.name }
func (d Descriptor) Doc() string          { return d.doc }
func (d Descriptor) InputFormat() string  { return d.inputFormat }
func (d Descriptor) OutputFormat() string { return d.outputFormat }

// IsZero reports whether d was never produced by Define.
func (d Descriptor) IsZero() bool { return d.factory == nil }

func (d Descriptor) InputExtensions() []string  { return slices.Clone(d.inputExts) }
func (d Descriptor) OutputExtensions() []string { return slices.Clone(d.outputExts) }

// FormatPair returns the single format pair this converter handles.
func (d Descriptor) FormatPair() FormatPair {
	return FormatPair{Input: d.inputFormat, Output: d.outputFormat}
}

// ExtensionPairs returns the Cartesian product of input and output extensions
// in declaration order.
func (d Descriptor) ExtensionPairs() []ExtensionPair {
	pairs := make([]ExtensionPair, 0, len(d.inputExts)*len(d.outputExts))
	for _, in := range d.inputExts {
		for _, out := range d.outputExts {
			pairs = append(pairs, ExtensionPair{Input: in, Output: out})
		}
	}
	return pairs
}

// New instantiates the converter for the given paths. An empty outputPath lets
// the converter derive one from inputPath.
func (d Descriptor) New(inputPath, outputPath string, opts Options) (Converter, error) {
	if d.factory == nil {
		return nil, fmt.Errorf("converter %q: descriptor has no factory", d.name)
	}
	if inputPath == "" {
		return nil, fmt.Errorf("converter %q: input path required", d.name)
	}
	conv, err := d.factory(inputPath, outputPath, opts)
	if err != nil {
		return nil, fmt.Errorf("converter %q: %w", d.name, err)
	}
	return conv, nil
}
