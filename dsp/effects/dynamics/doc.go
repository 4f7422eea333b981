// Package dynamics provides envelope-driven gain processors.
//
// Included processors:
//   - TransientShaper: percussive attack/sustain emphasis driven by a fast
//     envelope follower compared against a reference envelope.
package dynamics
