package analysis

import (
	"fmt"

	"github.com/wippyai/continuum/bytecode"
	"github.com/wippyai/continuum/errors"
)

// HeldLock is one entry of the monitor stack. Count is the number of
// consecutive enters on the same object; re-entering the innermost monitor
// increments it instead of adding an entry.
type HeldLock struct {
	Origin int
	Count  int
}

// Depth returns the total number of acquisitions in locks.
func Depth(locks []HeldLock) int {
	d := 0
	for _, l := range locks {
		d += l.Count
	}
	return d
}

func enter(locks []HeldLock, origin int) []HeldLock {
	out := append([]HeldLock(nil), locks...)
	if n := len(out); n > 0 && out[n-1].Origin == origin {
		out[n-1].Count++
		return out
	}
	return append(out, HeldLock{Origin: origin, Count: 1})
}

func exit(locks []HeldLock, origin, idx int) ([]HeldLock, error) {
	n := len(locks)
	if n == 0 {
		return nil, errors.UnbalancedMonitor(idx, "monitorexit with no monitor held")
	}
	if locks[n-1].Origin != origin {
		return nil, errors.UnbalancedMonitor(idx,
			fmt.Sprintf("monitorexit on %s does not match innermost monitor %s",
				originString(origin), originString(locks[n-1].Origin)))
	}
	out := append([]HeldLock(nil), locks...)
	if out[n-1].Count > 1 {
		out[n-1].Count--
		return out, nil
	}
	return out[:n-1], nil
}

func sameLocks(a, b []HeldLock) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func originString(origin int) string {
	switch {
	case origin >= 0:
		return fmt.Sprintf("value of #%d", origin)
	case origin > -phiBase:
		return fmt.Sprintf("parameter slot %d", -1-origin)
	}
	n := -phiBase - origin
	join, pos := n/phiSpan, n%phiSpan
	if pos >= phiStack {
		return fmt.Sprintf("stack entry %d merged at #%d", pos-phiStack, join)
	}
	return fmt.Sprintf("local %d merged at #%d", pos, join)
}

// trackLocks computes the monitor stack before each reachable instruction.
// Every path reaching an instruction must hold the same monitors.
func (a *Analyzer) trackLocks(frames []*Frame) ([][]HeldLock, error) {
	states := make([][]HeldLock, len(a.insns))
	seen := NewBitSet(len(a.insns))
	work := NewBitSet(len(a.insns))
	if len(a.insns) == 0 {
		return states, nil
	}

	propagate := func(target int, s []HeldLock) error {
		if !seen.Has(target) {
			seen.Set(target)
			states[target] = s
			work.Set(target)
			return nil
		}
		if !sameLocks(states[target], s) {
			return errors.UnbalancedMonitor(target,
				fmt.Sprintf("paths join holding different monitors (depth %d vs %d)",
					Depth(states[target]), Depth(s)))
		}
		return nil
	}

	if err := propagate(0, nil); err != nil {
		return nil, err
	}
	for {
		idx, ok := work.Pop()
		if !ok {
			break
		}
		insn := a.insns[idx]
		before := states[idx]

		for _, h := range a.handlers[idx] {
			if err := propagate(h.target, before); err != nil {
				return nil, err
			}
		}

		after := before
		switch insn.Opcode {
		case bytecode.OpMonitorenter:
			after = enter(before, frames[idx].Top(0).Origin)
		case bytecode.OpMonitorexit:
			var err error
			if after, err = exit(before, frames[idx].Top(0).Origin, idx); err != nil {
				return nil, err
			}
		}

		for _, l := range insn.Targets() {
			if err := propagate(a.labels[l], after); err != nil {
				return nil, err
			}
		}
		if insn.FallsThrough() && idx+1 < len(a.insns) {
			if err := propagate(idx+1, after); err != nil {
				return nil, err
			}
		}
	}
	return states, nil
}
