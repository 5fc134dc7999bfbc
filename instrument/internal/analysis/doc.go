// Package analysis computes per-instruction frames for a method and classifies
// its continuation points.
//
// The frame analyzer is a forward worklist dataflow over the instruction
// list. Every value carries the kind the slot holds, its descriptor for
// references, and an origin identifying the instruction or parameter that
// produced it. Copies (loads, stores, dup variants, checkcast) keep the
// origin, which lets the lock tracker tell whether a monitorexit releases
// the object the innermost monitorenter acquired.
//
// # Points
//
// Calls that can suspend become InvocationPoints, tagged 1..N in instruction
// order. Monitor instructions become MonitorPoints. Both satisfy the sealed
// Point interface; callers switch over the concrete types.
//
// This package is internal to the instrumenter.
package analysis
