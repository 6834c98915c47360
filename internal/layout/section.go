package layout

import (
	"context"

	"github.com/vk/reportflow/internal/attrs"
	"github.com/vk/reportflow/internal/ctxlog"
	"github.com/vk/reportflow/internal/flow"
	"github.com/vk/reportflow/internal/report"
)

// sectionContent returns the controller of the next child, or marks the
// content done once every child has been processed.
func sectionContent(_ context.Context, c *Controller, _ Target) (*Controller, error) {
	if c.next >= c.node.ChildCount() {
		done := c.clone()
		done.contentDone = true
		return done, nil
	}
	return newController(c.node.Child(c.next), c, c.flow)
}

// sectionJoin resumes after a child finished, taking over its flow position.
func sectionJoin(c *Controller, fc *flow.Controller) (*Controller, error) {
	next := c.WithFlow(fc)
	next.next++
	return next, nil
}

// repeatPassOf returns the group parent of c when that group is regenerating
// its headers, or nil.
func repeatPassOf(c *Controller) *Controller {
	p := c.parent
	if p == nil || p.node.Kind() != report.KindGroup {
		return nil
	}
	if p.IsNormalFlowProcessing() {
		return nil
	}
	return p
}

// groupSectionStartElement skips a repeating header/footer while its group
// is in a repeat pass. Such a section emits no events in that pass.
func groupSectionStartElement(ctx context.Context, c *Controller, t Target) (*Controller, error) {
	if !c.node.IsRepeatSection() {
		return baseStartElement(ctx, c, t)
	}
	if repeatPassOf(c) == nil {
		return baseStartElement(ctx, c, t)
	}
	ctxlog.FromContext(ctx).Debug("Skipping repeat section during repeat flow.", "node", c.node.String(), "group", c.parent.node.String())
	return c.WithState(Finished), nil
}

// groupSectionComputeAttributes marks elements emitted during a repeat pass.
func groupSectionComputeAttributes(c *Controller, fc *flow.Controller, node *report.Node, t Target) (attrs.ReadOnly, error) {
	base, err := baseComputeAttributes(c, fc, node, t)
	if err != nil {
		return attrs.ReadOnly{}, err
	}
	if repeatPassOf(c) == nil {
		return base, nil
	}
	marked := base.Copy()
	if err := marked.Set(attrs.ReportNamespace, attrs.RepeatedSection, true); err != nil {
		return attrs.ReadOnly{}, err
	}
	return marked.Freeze(), nil
}
