package layout

import (
	"context"
	"strconv"

	"github.com/vk/reportflow/internal/ctxlog"
	"github.com/vk/reportflow/internal/flow"
	"github.com/vk/reportflow/internal/report"
)

// RepeatIntervalProperty names the configuration property holding the number
// of body iterations after which a group regenerates its headers. Zero or
// absent disables repeat passes.
const RepeatIntervalProperty = "repeat-header-interval"

// groupContent walks headers, then the body once per row of the group, then
// footers. A report root behaves like a group without key fields.
func groupContent(ctx context.Context, c *Controller, t Target) (*Controller, error) {
	body := c.node.BodyIndex()

	if c.mode == RepeatFlow && (body < 0 || c.next >= body) {
		ctxlog.FromContext(ctx).Debug("Repeat pass finished, resuming normal flow.", "node", c.node.String(), "row", c.flow.Position())
		resumed := c.WithFlowMode(NormalFlow)
		resumed.next = max(body, c.next)
		return resumed, nil
	}
	if c.next >= c.node.ChildCount() {
		done := c.clone()
		done.contentDone = true
		return done, nil
	}
	if c.next == body && !c.flow.HasRow() {
		ctxlog.FromContext(ctx).Debug("No data rows, skipping body.", "node", c.node.String())
		skipped := c.clone()
		skipped.next++
		return skipped, nil
	}
	return newController(c.node.Child(c.next), c, c.flow)
}

// groupJoin decides, after the body finished for one row, whether the body
// runs again for the next row or the group moves on to its footers.
func groupJoin(c *Controller, fc *flow.Controller) (*Controller, error) {
	next := c.WithFlow(fc)
	body := c.node.BodyIndex()
	if c.mode == RepeatFlow || c.next != body {
		next.next++
		return next, nil
	}

	next.iterations++
	breaks, err := fc.KeyChangesAtNext(groupKey(c))
	if err != nil {
		return nil, err
	}
	if breaks {
		next.next++
		return next, nil
	}

	advanced, err := fc.Advance()
	if err != nil {
		return nil, err
	}
	next.flow = advanced

	if c.node.Kind() == report.KindGroup && body > 0 {
		if interval := repeatInterval(fc); interval > 0 && next.iterations%interval == 0 {
			next.mode = RepeatFlow
			next.next = 0
		}
	}
	return next, nil
}

// skipGroupRows moves the flow of a hidden group to the last row of its key
// run, so that the parent resumes after the whole group.
func skipGroupRows(c *Controller) (*flow.Controller, error) {
	fc := c.flow
	if !fc.HasRow() {
		return fc, nil
	}
	key := groupKey(c)
	for {
		breaks, err := fc.KeyChangesAtNext(key)
		if err != nil {
			return nil, err
		}
		if breaks {
			return fc, nil
		}
		if fc, err = fc.Advance(); err != nil {
			return nil, err
		}
	}
}

// groupKey collects the group fields of c and every enclosing group.
func groupKey(c *Controller) []string {
	var fields []string
	for p := c; p != nil; p = p.parent {
		if p.node.Kind() == report.KindGroup {
			fields = append(fields, p.node.GroupFields()...)
		}
	}
	return fields
}

func repeatInterval(fc *flow.Controller) int {
	raw, ok := fc.Configuration().Property(RepeatIntervalProperty)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
