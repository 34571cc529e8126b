package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by lookups for an unregistered pair.
	ErrNotFound = errors.New("registry: converter not found")
	// ErrDuplicateRegistration matches every *DuplicateRegistration.
	ErrDuplicateRegistration = errors.New("registry: duplicate registration")
	// ErrModuleLoad matches every *ModuleLoadError.
	ErrModuleLoad = errors.New("registry: module load failed")
)

// DuplicateRegistration reports two converters claiming the same index key.
// It aborts registry construction.
type DuplicateRegistration struct {
	Index    string // "extension" or "format"
	Key      string
	Existing string
	Incoming string
}

func (e *DuplicateRegistration) Error() string {
	return fmt.Sprintf("registry: %s pair %s claimed by both %q and %q", e.Index, e.Key, e.Existing, e.Incoming)
}

func (e *DuplicateRegistration) Is(target error) bool { return target == ErrDuplicateRegistration }

// ModuleLoadError reports a plugin module whose loader failed or panicked.
// Discovery logs it and moves on to the next module.
type ModuleLoadError struct {
	Module string
	Err    error
}

func (e *ModuleLoadError) Error() string {
	return fmt.Sprintf("registry: load module %q: %v", e.Module, e.Err)
}

func (e *ModuleLoadError) Unwrap() error { return e.Err }

func (e *ModuleLoadError) Is(target error) bool { return target == ErrModuleLoad }
