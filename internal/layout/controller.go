package layout

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/reportflow/internal/attrs"
	"github.com/vk/reportflow/internal/ctxlog"
	"github.com/vk/reportflow/internal/flow"
	"github.com/vk/reportflow/internal/formula"
	"github.com/vk/reportflow/internal/report"
)

var (
	// ErrControllerFinished is returned when a finished controller is advanced.
	ErrControllerFinished = errors.New("layout controller already finished")
	// ErrInvalidTransition is returned when a step is requested in the wrong state.
	ErrInvalidTransition = errors.New("invalid layout transition")
)

// Target receives the output events in document order.
type Target interface {
	StartElement(a attrs.ReadOnly) error
	EndElement(a attrs.ReadOnly) error
}

// State is the processing state of a Controller. Transitions are monotonic.
type State int

const (
	// NotStarted means the element has not been opened yet.
	NotStarted State = iota
	// InProgress means the element is open and producing content.
	InProgress
	// Finished means the element is closed or was skipped.
	Finished
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case InProgress:
		return "in-progress"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// FlowMode distinguishes the normal body pass of a group from a pass that
// regenerates its headers.
type FlowMode int

const (
	// NormalFlow is the regular pass over the body rows.
	NormalFlow FlowMode = iota
	// RepeatFlow is a pass that only re-emits repeating group sections.
	RepeatFlow
)

func (m FlowMode) String() string {
	if m == RepeatFlow {
		return "repeat"
	}
	return "normal"
}

// Controller drives the emission of one report node.
type Controller struct {
	node   *report.Node
	parent *Controller
	flow   *flow.Controller
	state  State
	caps   *capabilities

	// attributes computed when the element was opened, reused for its end event
	attrs       attrs.ReadOnly
	opened      bool
	contentDone bool

	// container bookkeeping
	next       int
	mode       FlowMode
	iterations int
}

// New creates the controller for the root of a report.
func New(root *report.Node, fc *flow.Controller) (*Controller, error) {
	return newController(root, nil, fc)
}

func newController(node *report.Node, parent *Controller, fc *flow.Controller) (*Controller, error) {
	if node == nil {
		return nil, fmt.Errorf("%w: nil node", ErrInvalidTransition)
	}
	caps, ok := capabilityTable[node.Kind()]
	if !ok {
		return nil, fmt.Errorf("no layout controller for node kind %s", node.Kind())
	}
	return &Controller{
		node:   node,
		parent: parent,
		flow:   fc,
		state:  NotStarted,
		caps:   caps,
	}, nil
}

// Node returns the layout element the controller processes.
func (c *Controller) Node() *report.Node { return c.node }

// Parent returns the controller of the enclosing element, or nil for the root.
func (c *Controller) Parent() *Controller { return c.parent }

// Flow returns the data cursor at the controller's current position.
func (c *Controller) Flow() *flow.Controller { return c.flow }

// State returns the processing state.
func (c *Controller) State() State { return c.state }

// Mode returns the flow mode the controller runs in.
func (c *Controller) Mode() FlowMode { return c.mode }

// Attributes returns the attributes computed when the element was opened.
func (c *Controller) Attributes() attrs.ReadOnly { return c.attrs }

// IsFinished reports whether the controller reached Finished.
func (c *Controller) IsFinished() bool { return c.state == Finished }

// IsNormalFlowProcessing reports whether the controller is in its normal body
// pass rather than a repeat pass.
func (c *Controller) IsNormalFlowProcessing() bool { return c.mode == NormalFlow }

func (c *Controller) String() string {
	return fmt.Sprintf("%s[%s]", c.node, c.state)
}

func (c *Controller) clone() *Controller {
	cp := *c
	return &cp
}

// WithState returns a copy of c in state s. c itself is unchanged.
func (c *Controller) WithState(s State) *Controller {
	cp := c.clone()
	cp.state = s
	return cp
}

// WithFlowMode returns a copy of c processing in mode m.
func (c *Controller) WithFlowMode(m FlowMode) *Controller {
	cp := c.clone()
	cp.mode = m
	return cp
}

// WithFlow returns a copy of c positioned at fc.
func (c *Controller) WithFlow(fc *flow.Controller) *Controller {
	cp := c.clone()
	cp.flow = fc
	return cp
}

// Advance performs a single step and returns the controller to continue with.
// A controller that finishes hands control to its parent's join point; the
// root's finished controller is returned as is and must not be advanced again.
func (c *Controller) Advance(ctx context.Context, t Target) (*Controller, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Advancing layout controller.", "node", c.node.String(), "state", c.state.String(), "row", c.flow.Position())

	var next *Controller
	var err error
	switch {
	case c.state == Finished:
		return nil, fmt.Errorf("advance %s: %w", c.node, ErrControllerFinished)
	case c.state == NotStarted:
		next, err = c.StartElement(ctx, t)
	case !c.contentDone:
		next, err = c.generateContent(ctx, t)
	default:
		next, err = c.EndElement(ctx, t)
	}
	if err != nil {
		return nil, err
	}
	return next.resume()
}

// resume hands a finished controller back to its parent.
func (c *Controller) resume() (*Controller, error) {
	if c.state != Finished || c.parent == nil {
		return c, nil
	}
	return c.parent.join(c.flow)
}

func (c *Controller) generateContent(ctx context.Context, t Target) (*Controller, error) {
	if c.caps.shouldGenerate != nil {
		ok, err := c.caps.shouldGenerate(ctx, c)
		if err != nil {
			return nil, err
		}
		if !ok {
			ctxlog.FromContext(ctx).Debug("Content unchanged, skipping generation.", "node", c.node.String(), "row", c.flow.Position())
			return c.join(c.flow)
		}
	}
	return c.DelegateContentGeneration(ctx, t)
}

// StartElement opens the element. The returned controller is InProgress, or
// Finished when the node has nothing to process.
func (c *Controller) StartElement(ctx context.Context, t Target) (*Controller, error) {
	if c.state != NotStarted {
		return nil, c.transitionError("start")
	}
	if c.caps.startElement != nil {
		return c.caps.startElement(ctx, c, t)
	}
	return baseStartElement(ctx, c, t)
}

// DelegateContentGeneration produces the element's body. Containers return
// the controller of their next child; content leaves emit their output and
// return their join point.
func (c *Controller) DelegateContentGeneration(ctx context.Context, t Target) (*Controller, error) {
	if c.state != InProgress {
		return nil, c.transitionError("generate content for")
	}
	return c.caps.delegateContentGeneration(ctx, c, t)
}

// EndElement closes the element and returns it Finished.
func (c *Controller) EndElement(ctx context.Context, t Target) (*Controller, error) {
	if c.state != InProgress {
		return nil, c.transitionError("end")
	}
	if c.opened {
		if err := t.EndElement(c.attrs); err != nil {
			return nil, err
		}
	}
	ctxlog.FromContext(ctx).Debug("Finished element.", "node", c.node.String())
	return c.WithState(Finished), nil
}

// ComputeAttributes returns the attributes of node for the row fc points at.
func (c *Controller) ComputeAttributes(fc *flow.Controller, node *report.Node, t Target) (attrs.ReadOnly, error) {
	if c.caps.computeAttributes != nil {
		return c.caps.computeAttributes(c, fc, node, t)
	}
	return baseComputeAttributes(c, fc, node, t)
}

// join is the point where control returns to c after a child, or c's own
// content, is done.
func (c *Controller) join(fc *flow.Controller) (*Controller, error) {
	return c.caps.join(c, fc)
}

func (c *Controller) transitionError(step string) error {
	if c.state == Finished {
		return fmt.Errorf("%s %s: %w", step, c.node, ErrControllerFinished)
	}
	return fmt.Errorf("%s %s in state %s: %w", step, c.node, c.state, ErrInvalidTransition)
}

func baseStartElement(ctx context.Context, c *Controller, t Target) (*Controller, error) {
	logger := ctxlog.FromContext(ctx)

	if cond := c.node.DisplayCondition(); cond != "" {
		visible, err := formula.EvaluateBool(c.flow.FormulaContext(), cond)
		if err != nil {
			return nil, err
		}
		if !visible {
			logger.Debug("Display condition is false, skipping element.", "node", c.node.String(), "row", c.flow.Position())
			hidden := c.WithState(Finished)
			if c.node.Kind() == report.KindGroup {
				fc, err := skipGroupRows(c)
				if err != nil {
					return nil, err
				}
				hidden.flow = fc
			}
			return hidden, nil
		}
	}

	a, err := c.ComputeAttributes(c.flow, c.node, t)
	if err != nil {
		return nil, err
	}

	next := c.clone()
	next.attrs = a
	next.state = InProgress
	if !c.caps.container {
		return next, nil
	}

	logger.Debug("Starting element.", "node", c.node.String(), "row", c.flow.Position())
	if err := t.StartElement(a); err != nil {
		return nil, err
	}
	next.opened = true
	if c.node.ChildCount() == 0 {
		if err := t.EndElement(a); err != nil {
			return nil, err
		}
		next.state = Finished
	}
	return next, nil
}

func baseComputeAttributes(_ *Controller, _ *flow.Controller, node *report.Node, _ Target) (attrs.ReadOnly, error) {
	entries := []report.Attribute{
		{Namespace: attrs.ReportNamespace, Name: attrs.Namespace, Value: attrs.ReportNamespace},
		{Namespace: attrs.ReportNamespace, Name: attrs.Type, Value: node.Kind().String()},
		{Namespace: attrs.ReportNamespace, Name: attrs.Name, Value: node.Name()},
	}
	return buildAttributes(append(entries, node.Attributes()...))
}

func buildAttributes(entries []report.Attribute) (attrs.ReadOnly, error) {
	m := attrs.New()
	for _, e := range entries {
		if err := m.Set(e.Namespace, e.Name, e.Value); err != nil {
			return attrs.ReadOnly{}, err
		}
	}
	return m.Freeze(), nil
}
