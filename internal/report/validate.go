package report

import (
	"errors"
	"fmt"
)

// ErrInvalidStructure is returned by Validate for malformed trees.
var ErrInvalidStructure = errors.New("invalid report structure")

// Validate checks the structural rules the layout engine relies on. The first
// violation found in document order is returned.
func Validate(root *Node) error {
	if root == nil {
		return fmt.Errorf("%w: nil root", ErrInvalidStructure)
	}
	if root.kind != KindReport {
		return fmt.Errorf("%w: root must be a report, got %s", ErrInvalidStructure, root)
	}
	return validate(root, true)
}

func validate(n *Node, isRoot bool) error {
	if n == nil {
		return fmt.Errorf("%w: nil node", ErrInvalidStructure)
	}
	if !isRoot && n.kind == KindReport {
		return fmt.Errorf("%w: nested report %s", ErrInvalidStructure, n)
	}
	if !n.kind.IsContainer() && len(n.children) > 0 {
		return fmt.Errorf("%w: leaf %s has children", ErrInvalidStructure, n)
	}

	bodies := 0
	for _, c := range n.children {
		if c != nil && c.kind.IsBody() {
			bodies++
		}
	}
	if bodies > 0 && n.kind != KindReport && n.kind != KindGroup {
		return fmt.Errorf("%w: %s cannot hold a detail or group child", ErrInvalidStructure, n)
	}
	if bodies > 1 {
		return fmt.Errorf("%w: %s has %d body children, at most one allowed", ErrInvalidStructure, n, bodies)
	}
	if n.kind == KindField && n.formula == "" {
		return fmt.Errorf("%w: field %s has no formula", ErrInvalidStructure, n)
	}

	for _, c := range n.children {
		if err := validate(c, false); err != nil {
			return err
		}
	}
	return nil
}
