// Package instrument is the public entry point of the continuation
// instrumenter.
//
// An Instrumenter rewrites every method that takes a Continuation
// parameter and calls a suspend-capable method. Methods without such calls
// keep their exact instruction stream; classes that were instrumented
// before are recognized by a marker field and left alone.
//
//	inst, err := instrument.New(instrument.Settings{
//	    Markers: instrument.MarkerConstant,
//	    Exclude: []string{"app/Main.main"},
//	})
//	res, err := inst.Instrument(class, types)
//
// Settings may also be kept in a TOML file:
//
//	markers = "none"
//	debug   = false
//	only    = ["app/*"]
//	exclude = ["app/Legacy.*"]
//
// Method patterns follow the same rules for Only and Exclude: "owner.name",
// "owner.name(desc)", "owner.*", a bare method name, a class prefix ending
// in "*", or "*" for everything. Owners are internal names such as
// "app/Main".
//
// InstrumentBytes bridges to an external class file Codec, and
// InstrumentAll processes many classes concurrently with one state per
// class. The hierarchy map passed to either must not change while they run.
package instrument
