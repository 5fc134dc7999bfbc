package continuum

// Internal names of the runtime-side classes.
const (
	ContinuationClass = "continuum/user/Continuation"
	MethodStateClass  = "continuum/user/MethodState"
	LockStateClass    = "continuum/user/LockState"
)

// Descriptors of the runtime-side classes.
const (
	ContinuationDesc = "L" + ContinuationClass + ";"
	MethodStateDesc  = "L" + MethodStateClass + ";"
	LockStateDesc    = "L" + LockStateClass + ";"
)

// Continuation modes returned by Continuation.getMode().
const (
	ModeNormal  int32 = 0
	ModeSaving  int32 = 1
	ModeLoading int32 = 2
)

// Continuation methods.
const (
	GetModeMethod     = "getMode"
	GetModeDesc       = "()I"
	LoadStateMethod   = "loadNextMethodState"
	LoadStateDesc     = "()" + MethodStateDesc
	PushStateMethod   = "pushNewMethodState"
	PushStateDesc     = "(" + MethodStateDesc + ")V"
	SuspendMethod     = "suspend"
	SuspendMethodDesc = "()V"
)

// MethodState methods. The constructor takes the resume tag, the storage
// container and the lock state (which may be null).
const (
	MethodStateInitDesc = "(I[Ljava/lang/Object;" + LockStateDesc + ")V"
	GetPointMethod      = "getContinuationPoint"
	GetPointDesc        = "()I"
	GetDataMethod       = "getData"
	GetDataDesc         = "()[Ljava/lang/Object;"
	GetLockStateMethod  = "getLockState"
	GetLockStateDesc    = "()" + LockStateDesc
)

// LockState methods. ToArray lists held monitors in acquisition order with
// one element per re-entrant enter.
const (
	LockEnterMethod = "enter"
	LockExitMethod  = "exit"
	LockEnterDesc   = "(Ljava/lang/Object;)V"
	LockToArray     = "toArray"
	LockToArrayDesc = "()[Ljava/lang/Object;"
)

// Storage container layout: MethodState.getData() returns an Object[] of
// DataSlots elements holding the typed arrays at these positions. Unused
// buckets are null.
const (
	DataInts    = 0
	DataLongs   = 1
	DataFloats  = 2
	DataDoubles = 3
	DataObjects = 4
	DataSlots   = 5
)

// InstrumentedMarker is the synthetic static field added to rewritten classes.
const InstrumentedMarker = "__continuum_instrumented"

// DetailExtension is the file extension of the per-class detail artifact.
const DetailExtension = "continfo"
