// Package bytecode provides the editable instruction-list model that the
// instrumenter rewrites.
//
// The model mirrors a parsed JVM class file: a Class owns Methods, each
// Method owns an InsnList, exception handler ranges (TryCatchBlock) and an
// optional local variable table. Parsing raw class bytes into this model and
// serializing it back is done by an external front end; this package never
// touches the binary container format.
//
// # Instructions
//
// Instructions use real JVM opcode numbers. Labels and line numbers are
// represented by the pseudo opcodes OpLabel and OpLine, which never appear in
// a class file:
//
//	l := bytecode.NewLabel()
//	list := bytecode.NewInsnList(
//	    bytecode.Var(bytecode.OpIload, 1),
//	    bytecode.Jump(bytecode.OpIfeq, l),
//	    bytecode.Op(bytecode.OpIconst1),
//	    bytecode.Op(bytecode.OpIreturn),
//	    bytecode.Mark(l),
//	    bytecode.Op(bytecode.OpIconst0),
//	    bytecode.Op(bytecode.OpIreturn),
//	)
//
// # Ownership
//
// Instructions are identified by pointer. Inserting one InsnList into another
// moves its instructions: the source list is left empty and marked consumed,
// and inserting a consumed list again panics. Lists that must be inserted at
// more than one point are copied with Clone first.
//
// # Types
//
// Type wraps a JVM field or method descriptor:
//
//	mt := bytecode.MustType("(ILjava/lang/String;)J")
//	mt.ArgumentTypes() // [I, Ljava/lang/String;]
//	mt.ReturnType()    // J
package bytecode
