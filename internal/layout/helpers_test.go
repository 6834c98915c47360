package layout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/reportflow/internal/attrs"
	"github.com/vk/reportflow/internal/datarow"
	"github.com/vk/reportflow/internal/flow"
	"github.com/vk/reportflow/internal/formula"
	"github.com/vk/reportflow/internal/report"
)

// recorder is a Target that keeps events as compact labels plus the raw attributes.
type recorder struct {
	labels []string
	starts []attrs.ReadOnly
	failOn string
}

func (r *recorder) label(prefix string, a attrs.ReadOnly) string {
	l := a.Type()
	if name, ok := a.Get(attrs.ReportNamespace, attrs.Name); ok && name != "" {
		l += ":" + fmt.Sprint(name)
	}
	if v, ok := a.Get(attrs.ReportNamespace, attrs.Value); ok {
		l += "=" + fmt.Sprint(v)
	}
	if _, ok := a.Get(attrs.ReportNamespace, attrs.RepeatedSection); ok {
		l += "*"
	}
	return prefix + l + ">"
}

func (r *recorder) StartElement(a attrs.ReadOnly) error {
	l := r.label("<", a)
	if r.failOn != "" && l == r.failOn {
		return errTargetFailed
	}
	r.labels = append(r.labels, l)
	r.starts = append(r.starts, a)
	return nil
}

func (r *recorder) EndElement(a attrs.ReadOnly) error {
	r.labels = append(r.labels, r.label("</", a))
	return nil
}

var errTargetFailed = errors.New("target failed")

func mustTable(t *testing.T, columns []string, rows ...[]any) *datarow.Table {
	t.Helper()
	table, err := datarow.FromValues(columns, rows)
	require.NoError(t, err)
	return table
}

func repeatEvery(n int) flow.Option {
	return flow.WithConfiguration(formula.MapConfiguration{RepeatIntervalProperty: strconv.Itoa(n)})
}

// drive runs root to completion the way a driver does and returns the event labels.
func drive(t *testing.T, root *report.Node, fc *flow.Controller) ([]string, error) {
	t.Helper()
	require.NoError(t, report.Validate(root))
	lc, err := New(root, fc)
	require.NoError(t, err)

	rec := &recorder{}
	for steps := 0; !(lc.IsFinished() && lc.Parent() == nil); steps++ {
		require.Less(t, steps, 10_000, "layout did not terminate")
		lc, err = lc.Advance(context.Background(), rec)
		if err != nil {
			return rec.labels, err
		}
	}
	return rec.labels, nil
}

func ptr(s string) *string { return &s }
