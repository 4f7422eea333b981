// Package host loads processing-unit descriptors and instantiates them
// behind a uniform port and lifecycle contract.
//
// A Descriptor carries the unit's source text, declared type and parameter
// specs. Two runtimes are supported:
//
//   - "hcl": a declarative chain of effect stages (see hcl_unit.go) whose
//     attributes are expressions over the unit's parameters.
//   - "wasm": a WebAssembly module exporting process(f32) f32, executed by
//     wazero.
//
// Every instantiation failure, including panics inside a loader, is
// reported as an error wrapping ErrInstantiation.
package host
