// Package slots reserves the extra local variables an instrumented method
// needs and lays out where each live value is stored at every invocation
// point.
//
// Slots are handed out sequentially from the first index past the method's
// declared locals and parameters. Groups that analysis proves unnecessary
// are left nil; code generation skips whatever a nil group would have
// served.
//
// This package is internal to the instrumenter.
package slots
