// Package codegen synthesizes the instruction fragments that make a method
// suspendable.
//
// For every instrumented method it produces a dispatch prologue with one
// restore block per resume tag, a replacement fragment for every
// invocation point and, when a suspended frame can hold monitors, the
// lock-state bookkeeping around monitor instructions.
//
// # Responsibilities
//
//   - Emit the resume dispatch table and frame reconstruction
//   - Generate stack and local save sequences around suspendable calls
//   - Release and reacquire monitors held across a suspension
//
// Fragments are single-use: splicing one into a method moves its
// instructions. Clone a fragment before inserting it a second time.
//
// This package is internal to the instrumenter.
package codegen
