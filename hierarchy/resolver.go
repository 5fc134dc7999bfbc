package hierarchy

import (
	"strings"

	"github.com/wippyai/continuum/descriptor"
	"github.com/wippyai/continuum/errors"
)

// Resolver computes nearest common superclasses from a Map.
type Resolver struct {
	types *Map
}

// NewResolver creates a resolver over m. The map must not be mutated while
// the resolver is in use.
func NewResolver(m *Map) *Resolver {
	return &Resolver{types: m}
}

// CommonSuperclass returns the nearest common ancestor of a and b.
//
// The ancestor chain of a (a, super(a), ...) is scanned in order and the first
// entry that also appears in the chain of b is returned. Array types resolve
// to the root type.
func (r *Resolver) CommonSuperclass(a, b string) (string, error) {
	if a == b {
		return a, nil
	}
	if strings.HasPrefix(a, "[") || strings.HasPrefix(b, "[") {
		return descriptor.RootType, nil
	}
	chainA, err := r.chain(a)
	if err != nil {
		return "", err
	}
	chainB, err := r.chain(b)
	if err != nil {
		return "", err
	}
	inB := make(map[string]bool, len(chainB))
	for _, n := range chainB {
		inB[n] = true
	}
	for _, n := range chainA {
		if inB[n] {
			return n, nil
		}
	}
	return "", errors.NoCommonAncestor(a, b)
}

// Chain returns name followed by its superclasses up to the root.
func (r *Resolver) Chain(name string) ([]string, error) {
	return r.chain(name)
}

// IsAssignable reports whether a value of type from may be stored in to.
// Interfaces declared by from or its ancestors count.
func (r *Resolver) IsAssignable(to, from string) (bool, error) {
	if to == from || to == descriptor.RootType {
		return true, nil
	}
	chain, err := r.chain(from)
	if err != nil {
		return false, err
	}
	seen := make(map[string]bool)
	queue := append([]string(nil), chain...)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n == to {
			return true, nil
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		if info, ok := r.types.Lookup(n); ok {
			queue = append(queue, info.Interfaces()...)
		}
	}
	return false, nil
}

func (r *Resolver) chain(name string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for cur := name; ; {
		if seen[cur] {
			return nil, errors.InvalidData(errors.PhaseResolve, "cyclic superclass chain at "+cur)
		}
		seen[cur] = true
		out = append(out, cur)
		info, ok := r.types.Lookup(cur)
		if !ok {
			return nil, errors.New(errors.PhaseResolve, errors.KindNoCommonAncestor).
				Detail("type %s missing from hierarchy map (chain of %s)", cur, name).
				Build()
		}
		super, ok := info.SuperName()
		if !ok {
			return out, nil
		}
		cur = super
	}
}
