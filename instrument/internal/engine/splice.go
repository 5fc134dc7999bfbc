package engine

import (
	"github.com/wippyai/continuum/bytecode"
	"github.com/wippyai/continuum/instrument/internal/codegen"
)

// splice installs the generated fragments into m. Each fragment is
// consumed by the insertion.
func splice(m *bytecode.Method, attrs *MethodAttributes, out *codegen.Output) {
	insns := m.Instructions
	var handlers []bytecode.TryCatchBlock
	for _, p := range attrs.Analysis.Invocations {
		f := out.Invocations[p]
		handlers = append(handlers, f.TryCatch...)
		insns.Replace(p.Insn, f.Insns)
	}
	for _, p := range attrs.Analysis.Monitors {
		f, ok := out.Monitors[p]
		if !ok {
			continue
		}
		handlers = append(handlers, f.TryCatch...)
		insns.Replace(p.Insn, f.Insns)
	}
	handlers = append(handlers, out.Prologue.TryCatch...)
	insns.Prepend(out.Prologue.Insns)

	if out.Start != nil {
		insns.Prepend(bytecode.NewInsnList(bytecode.Mark(out.Start)))
		insns.Append(bytecode.Mark(out.End))
		m.LocalVariables = append(m.LocalVariables, out.Locals...)
	}
	// generated ranges go first so they take precedence over the method's own
	m.TryCatchBlocks = append(handlers, m.TryCatchBlocks...)
	m.MaxLocals = attrs.Plan.MaxLocals
	m.MaxStack += codegen.ExtraStack
}
