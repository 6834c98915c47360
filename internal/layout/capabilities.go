package layout

import (
	"context"

	"github.com/vk/reportflow/internal/attrs"
	"github.com/vk/reportflow/internal/flow"
	"github.com/vk/reportflow/internal/report"
)

// capabilities are the per-kind overrides of the base state machine. A nil
// startElement or computeAttributes selects the base behavior.
type capabilities struct {
	// container kinds emit their own start/end events around their children.
	container bool

	startElement              func(ctx context.Context, c *Controller, t Target) (*Controller, error)
	computeAttributes         func(c *Controller, fc *flow.Controller, node *report.Node, t Target) (attrs.ReadOnly, error)
	delegateContentGeneration func(ctx context.Context, c *Controller, t Target) (*Controller, error)
	join                      func(c *Controller, fc *flow.Controller) (*Controller, error)

	// shouldGenerate gates content generation; nil means always generate.
	shouldGenerate func(ctx context.Context, c *Controller) (bool, error)
}

var capabilityTable map[report.Kind]*capabilities

func init() {
	section := &capabilities{
		container:                 true,
		delegateContentGeneration: sectionContent,
		join:                      sectionJoin,
	}
	iterating := &capabilities{
		container:                 true,
		delegateContentGeneration: groupContent,
		join:                      groupJoin,
	}
	capabilityTable = map[report.Kind]*capabilities{
		report.KindReport:  iterating,
		report.KindGroup:   iterating,
		report.KindSection: section,
		report.KindDetail:  section,
		report.KindGroupSection: {
			container:                 true,
			startElement:              groupSectionStartElement,
			computeAttributes:         groupSectionComputeAttributes,
			delegateContentGeneration: sectionContent,
			join:                      sectionJoin,
		},
		report.KindObjectOle: {
			delegateContentGeneration: objectOleContent,
			join:                      contentJoin,
			shouldGenerate:            objectOleShouldGenerate,
		},
		report.KindField: {
			delegateContentGeneration: fieldContent,
			join:                      contentJoin,
			shouldGenerate:            fieldShouldGenerate,
		},
	}
}
