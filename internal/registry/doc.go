// Package registry discovers converter plugins and serves lookups by
// extension pair and by format pair.
//
// A plugin namespace is an explicit list of Modules. Discovery runs once in New:
// every module is loaded, every concrete Declaration it returns is validated
// with converter.Define, and the resulting descriptors are inserted into two
// indexes:
//
//   - extension index: (input ext, output ext) -> descriptor, one entry per
//     element of the Cartesian product of the declared extensions;
//   - format index: (INPUT, OUTPUT) -> descriptor.
//
// Both indexes reject collisions: a second converter claiming an existing key
// fails construction with *DuplicateRegistration. A module that fails to load
// and a declaration that violates the contract are logged and skipped.
//
// A Registry is never mutated after New returns, so it may be shared by any
// number of goroutines without locking.
package registry
