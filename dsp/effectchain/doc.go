// Package effectchain runs an ordered list of effect stages over mono
// blocks.
//
// Each stage names a registered effect type; a Registry maps type names to
// factories producing a Runtime. DefaultRegistry wires the runtimes built
// on this module's primitives: gain, saturator, lowpass, delay, reverb and
// transient.
package effectchain
