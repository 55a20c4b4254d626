// Package ir provides the declarative model representation for cellsim.
//
// A Model is what the compiler produces from CUE and what the sim builder
// consumes. All other internal packages may import ir; ir imports nothing
// internal.
//
// Key design constraints:
//   - Model units are physical: lengths in µm, times in seconds,
//     concentrations in M, surface densities in molecules per µm²
//   - References between parts are by name, never by index
//   - All JSON tags use snake_case
//   - The content hash of a model is computed from canonical JSON only
package ir
