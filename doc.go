// Package continuum rewrites compiled methods so they can suspend mid-call
// and later resume where they left off, without support from the virtual
// machine that runs them.
//
// The instrumenter works on an editable instruction-list model of one class
// at a time. For every method that calls a suspend-capable method it
// synthesizes a resume-dispatch prologue and, per call site, code that saves
// the operand stack and locals into typed storage arrays, records held
// monitors, and rebuilds all of it on resume.
//
// # Architecture Overview
//
//	continuum/           Runtime contract shared with the continuation objects
//	├── instrument/      Public API: settings, filters, Instrument, InstrumentAll
//	│   └── internal/
//	│       ├── analysis/  Frame dataflow, continuation points, monitor tracking
//	│       ├── slots/     Extra local slot allocation and storage layout
//	│       ├── codegen/   Dispatch prologue, save/restore/reacquire fragments
//	│       ├── detail/    Auxiliary per-class detail artifact
//	│       └── engine/    Ordered pass pipeline over shared state
//	├── bytecode/        Instruction-list model (classes, methods, labels, types)
//	├── descriptor/      Method and type-ancestry value objects
//	├── hierarchy/       Precomputed type map and common-superclass resolver
//	└── errors/          Structured error types
//
// # Runtime Contract
//
// Instrumented code talks to three runtime-side classes whose names and
// method descriptors are fixed by the constants in this package. A suspendable
// method is any method taking a Continuation parameter; calling
// Continuation.suspend() is the primitive suspend point.
//
// # Quick Start
//
//	inst, err := instrument.New(instrument.Settings{Markers: instrument.MarkerNone})
//	if err != nil {
//	    return err
//	}
//	res, err := inst.Instrument(class, hierarchyMap)
//	if err != nil {
//	    return err
//	}
//	for name, data := range res.Artifacts {
//	    write(name, data)
//	}
package continuum
