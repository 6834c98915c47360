package layout

import (
	"context"

	"github.com/vk/reportflow/internal/attrs"
	"github.com/vk/reportflow/internal/ctxlog"
	"github.com/vk/reportflow/internal/flow"
	"github.com/vk/reportflow/internal/formula"
	"github.com/vk/reportflow/internal/report"
	"github.com/zclconf/go-cty/cty"
)

// Element types synthesized by content controllers.
const (
	TypeObjectOle = "object-ole"
	TypeText      = "text"
)

// contentJoin marks a leaf's content as produced; the next step closes it.
func contentJoin(c *Controller, fc *flow.Controller) (*Controller, error) {
	done := c.WithFlow(fc)
	done.contentDone = true
	return done, nil
}

// IsValueChanged reports whether any master field of the node changed since
// the previous row. A field whose lookup fails counts as unchanged, so one
// broken field cannot hide its siblings' changes or abort the run.
func (c *Controller) IsValueChanged(ctx context.Context) bool {
	logger := ctxlog.FromContext(ctx)
	view := c.flow.GlobalView()
	for _, master := range c.node.MasterFields() {
		flags, err := view.Flags(master)
		if err != nil {
			logger.Debug("Master field lookup failed, assuming unchanged.", "node", c.node.String(), "field", master, "error", err)
			continue
		}
		if flags.Changed {
			return true
		}
	}
	return false
}

// objectOleShouldGenerate re-emits a bound object only when a master field changed.
func objectOleShouldGenerate(ctx context.Context, c *Controller) (bool, error) {
	if len(c.node.MasterFields()) == 0 {
		return true, nil
	}
	return c.IsValueChanged(ctx), nil
}

// objectOleContent emits one embedded-object element carrying the resolved
// master values. Without a URL nothing is emitted.
func objectOleContent(ctx context.Context, c *Controller, t Target) (*Controller, error) {
	href, ok := c.node.URL()
	if !ok {
		return c.join(c.flow)
	}
	logger := ctxlog.FromContext(ctx)

	view := c.flow.GlobalView()
	var columns []string
	var values []cty.Value
	for _, master := range c.node.MasterFields() {
		flags, err := view.Flags(master)
		if err != nil {
			logger.Warn("Master field lookup failed, leaving it out of the element.", "node", c.node.String(), "field", master, "error", err)
			continue
		}
		columns = append(columns, master)
		values = append(values, flags.Value)
	}

	a, err := buildAttributes([]report.Attribute{
		{Namespace: attrs.ReportNamespace, Name: attrs.Namespace, Value: attrs.ReportNamespace},
		{Namespace: attrs.ReportNamespace, Name: attrs.Type, Value: TypeObjectOle},
		{Namespace: attrs.ReportNamespace, Name: attrs.Href, Value: href},
		{Namespace: attrs.ReportNamespace, Name: attrs.ClassID, Value: c.node.ClassID()},
		{Namespace: attrs.ReportNamespace, Name: attrs.MasterColumns, Value: columns},
		{Namespace: attrs.ReportNamespace, Name: attrs.MasterValues, Value: values},
		{Namespace: attrs.ReportNamespace, Name: attrs.DetailColumns, Value: c.node.DetailFields()},
	})
	if err != nil {
		return nil, err
	}
	if err := t.StartElement(a); err != nil {
		return nil, err
	}
	if err := t.EndElement(a); err != nil {
		return nil, err
	}
	logger.Debug("Emitted embedded object.", "node", c.node.String(), "href", href, "masters", len(columns))
	return c.join(c.flow)
}

// fieldShouldGenerate suppresses repeated values: with printing of repeated
// values disabled, a field is emitted only when a field it references is dirty.
func fieldShouldGenerate(_ context.Context, c *Controller) (bool, error) {
	if c.node.PrintRepeatedValues() {
		return true, nil
	}
	refs, err := formula.References(c.node.Formula())
	if err != nil {
		return false, err
	}
	if len(refs) == 0 {
		return true, nil
	}
	fctx := c.flow.FormulaContext()
	for _, ref := range refs {
		dirty, err := fctx.IsReferenceDirty(ref)
		if err != nil {
			return false, err
		}
		if dirty {
			return true, nil
		}
	}
	return false, nil
}

// fieldContent evaluates the field formula and emits one text element.
func fieldContent(ctx context.Context, c *Controller, t Target) (*Controller, error) {
	fctx := c.flow.FormulaContext()
	v, err := formula.Evaluate(fctx, c.node.Formula())
	if err != nil {
		return nil, err
	}
	text, err := displayString(fctx, v)
	if err != nil {
		return nil, &formula.EvaluationError{Expression: c.node.Formula(), Cause: err}
	}

	entries := []report.Attribute{
		{Namespace: attrs.ReportNamespace, Name: attrs.Namespace, Value: attrs.ReportNamespace},
		{Namespace: attrs.ReportNamespace, Name: attrs.Type, Value: TypeText},
		{Namespace: attrs.ReportNamespace, Name: attrs.Name, Value: c.node.Name()},
		{Namespace: attrs.ReportNamespace, Name: attrs.Value, Value: text},
	}
	a, err := buildAttributes(append(entries, c.node.Attributes()...))
	if err != nil {
		return nil, err
	}
	if err := t.StartElement(a); err != nil {
		return nil, err
	}
	if err := t.EndElement(a); err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("Emitted field.", "node", c.node.String(), "row", c.flow.Position())
	return c.join(c.flow)
}

func displayString(fctx formula.Context, v cty.Value) (string, error) {
	if v.IsNull() {
		return "", nil
	}
	s, err := fctx.TypeRegistry().Convert(v, cty.String)
	if err != nil {
		return "", err
	}
	if s.IsNull() || !s.IsKnown() {
		return "", nil
	}
	return s.AsString(), nil
}
