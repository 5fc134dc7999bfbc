// Package engine runs the instrumentation passes over one class.
//
// # Passes
//
// A run applies an ordered list of passes to a class and a fresh State:
//
//	identify    - select candidate methods, stop on already instrumented classes
//	analyze     - frames, continuation points, held monitors and slot plans
//	detail      - emit the <SimpleName>.continfo artifact and summary
//	instrument  - generate fragments for every method, then splice them in
//	finalize    - mark the class as instrumented
//
// Each pass returns an Outcome. Stop ends the run early while keeping the
// artifacts already produced; an error abandons the class. Later passes
// rely on what earlier ones established and fail with a precondition error
// when that no longer holds.
//
// # Failures
//
// A method whose shape cannot be instrumented (unsupported kind) is left
// untouched and recorded in State.Skipped. Any other failure, such as an
// unbalanced monitor, fails the whole class before anything is spliced.
package engine
