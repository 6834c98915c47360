package app

import (
	"fmt"

	"github.com/vk/reportflow/internal/formula"
	"github.com/vk/reportflow/internal/report"
)

// checkFormulas validates every formula and display condition of the tree
// before any event is emitted, so that typos fail the run up front.
func checkFormulas(root *report.Node, fctx formula.Context) error {
	if cond := root.DisplayCondition(); cond != "" {
		if err := formula.Check(fctx, cond); err != nil {
			return fmt.Errorf("display condition of %s: %w", root, err)
		}
	}
	if root.Kind() == report.KindField {
		if err := formula.Check(fctx, root.Formula()); err != nil {
			return fmt.Errorf("formula of %s: %w", root, err)
		}
	}
	for _, child := range root.Children() {
		if err := checkFormulas(child, fctx); err != nil {
			return err
		}
	}
	return nil
}
