package converter

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ExtensionSeparator prefixes every normalized extension.
const ExtensionSeparator = "."

// formatSeparator splits a converter name into its input and output formats.
const formatSeparator = "2"

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrContractViolation matches every *ContractViolation.
var ErrContractViolation = errors.New("converter: contract violation")

// ContractViolation reports a declaration that cannot become a Descriptor.
type ContractViolation struct {
	Converter string
	Attribute string
	Reason    string
}

func (e *ContractViolation) Error() string {
	if e.Attribute == "" {
		return fmt.Sprintf("converter %q: %s", e.Converter, e.Reason)
	}
	return fmt.Sprintf("converter %q: attribute %s: %s", e.Converter, e.Attribute, e.Reason)
}

func (e *ContractViolation) Is(target error) bool { return target == ErrContractViolation }

// Declaration is what a plugin module writes down for each converter it offers.
//
// InputExt and OutputExt each hold a single string, a []string, a []any of
// strings, or a set (map[string]struct{} / map[string]bool). A missing leading
// "." is tolerated; Define adds it to the Descriptor, never to the Declaration.
//
// A Declaration without a factory is abstract: it documents shared defaults for
// other declarations and is skipped during discovery.
type Declaration struct {
	Name      string
	InputExt  any
	OutputExt any
	New       Factory
	Doc       string
}

// Abstract reports whether d has no factory and cannot be instantiated.
func (d Declaration) Abstract() bool { return d.New == nil }

// Define validates a declaration and returns its normalized, immutable descriptor.
// It has no side effects on d.
func Define(d Declaration) (Descriptor, error) {
	if d.Abstract() {
		return Descriptor{}, &ContractViolation{Converter: d.Name, Reason: "abstract declaration has no factory"}
	}

	inFmt, outFmt, err := ParseName(d.Name)
	if err != nil {
		return Descriptor{}, err
	}

	inExts, err := normalizeDeclared(d.Name, "InputExt", d.InputExt)
	if err != nil {
		return Descriptor{}, err
	}
	outExts, err := normalizeDeclared(d.Name, "OutputExt", d.OutputExt)
	if err != nil {
		return Descriptor{}, err
	}

	return Descriptor{
		name:         d.Name,
		doc:          strings.TrimSpace(d.Doc),
		inputExts:    inExts,
		outputExts:   outExts,
		inputFormat:  inFmt,
		outputFormat: outFmt,
		factory:      d.New,
	}, nil
}

// ParseName splits a converter name of the form <INPUT>2<OUTPUT> into its
// upper-cased formats. The name must be ASCII alphanumeric and contain
// exactly one "2" with a non-empty format on each side.
func ParseName(name string) (input, output string, err error) {
	if err := validate.Var(name, "required,alphanum"); err != nil {
		return "", "", &ContractViolation{Converter: name, Attribute: "Name", Reason: "name must be non-empty ASCII alphanumeric"}
	}
	if strings.Count(name, formatSeparator) != 1 {
		return "", "", &ContractViolation{Converter: name, Attribute: "Name", Reason: "name must follow the <input>2<output> convention with a single 2"}
	}
	input, output, _ = strings.Cut(strings.ToUpper(name), formatSeparator)
	if input == "" || output == "" {
		return "", "", &ContractViolation{Converter: name, Attribute: "Name", Reason: "name must follow the <input>2<output> convention with a single 2"}
	}
	return input, output, nil
}

// NormalizeExtension prefixes ext with "." when it is missing. It is idempotent.
func NormalizeExtension(ext string) string {
	if strings.HasPrefix(ext, ExtensionSeparator) {
		return ext
	}
	return ExtensionSeparator + ext
}

func normalizeDeclared(name, attribute string, value any) ([]string, error) {
	var raw []string
	switch v := value.(type) {
	case nil:
		return nil, &ContractViolation{Converter: name, Attribute: attribute, Reason: "must be declared"}
	case string:
		raw = []string{v}
	case []string:
		raw = v
	case []any:
		raw = make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, &ContractViolation{Converter: name, Attribute: attribute, Reason: fmt.Sprintf("element %d is %T, want string", i, item)}
			}
			raw = append(raw, s)
		}
	case map[string]struct{}:
		raw = slices.Sorted(maps.Keys(v))
	case map[string]bool:
		raw = slices.Sorted(maps.Keys(v))
	default:
		return nil, &ContractViolation{Converter: name, Attribute: attribute, Reason: fmt.Sprintf("has type %T, want string or collection of strings", value)}
	}

	if len(raw) == 0 {
		return nil, &ContractViolation{Converter: name, Attribute: attribute, Reason: "declares no extensions"}
	}

	out := make([]string, 0, len(raw))
	for _, ext := range raw {
		if err := validate.Var(ext, "required,printascii"); err != nil || strings.ContainsAny(ext, " /\\") {
			return nil, &ContractViolation{Converter: name, Attribute: attribute, Reason: fmt.Sprintf("invalid extension %q", ext)}
		}
		norm := NormalizeExtension(ext)
		if norm == ExtensionSeparator {
			return nil, &ContractViolation{Converter: name, Attribute: attribute, Reason: fmt.Sprintf("invalid extension %q", ext)}
		}
		if !slices.Contains(out, norm) {
			out = append(out, norm)
		}
	}
	return out, nil
}
