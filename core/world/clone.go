package world

import (
	"github.com/artpar/worldgate/core/errors"
	"github.com/artpar/worldgate/core/scope"
)

// Clone deep-copies n and every node beneath it. Each copied node gets its
// own fields, and the copied scopes are bound to them.
func Clone(n Node) (Node, error) {
	src := n.Scope()
	cp, err := rebind(src, src.Clone())
	if err != nil {
		return nil, err
	}
	if cp == nil {
		return nil, errors.New(errors.CodeInvalidState, "scope of %q has no owner", n.Name())
	}
	return cp, nil
}

// rebind walks a scope and its clone in parallel, rebuilding nodes over the
// cloned scopes.
func rebind(orig, cp *scope.Scope) (Node, error) {
	var node Node
	if n, ok := NodeOf(orig); ok {
		c, err := n.CloneInto(cp)
		if err != nil {
			return nil, errors.Wrap(errors.CodeBindMismatch, err, "clone %s %q", n.Role(), n.Name())
		}
		node = c
	}

	oc, cc := orig.Children(), cp.Children()
	if len(oc) != len(cc) {
		return nil, errors.New(errors.CodeInvalidState, "clone has %d children, source has %d", len(cc), len(oc))
	}
	for i := range oc {
		if _, err := rebind(oc[i], cc[i]); err != nil {
			return nil, err
		}
	}
	return node, nil
}
