// Package ir provides the value model for everything a tune captures.
//
// Captured notes are restricted to null, bool, int, float, string, array
// and object. Live Go values are converted with Sanitize, which always
// builds fresh containers, so a tune never aliases the caller's arguments.
//
// Key design constraints:
//   - IRValue is sealed; only the types in value.go implement it
//   - Object keys are ordered by UTF-16 code units when serialized
//   - Integral floats keep their float identity on disk ("5.0")
//   - Equal compares int and float numerically
//
// This package imports nothing internal.
package ir
