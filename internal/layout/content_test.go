package layout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/reportflow/internal/attrs"
	"github.com/vk/reportflow/internal/datarow"
	"github.com/vk/reportflow/internal/flow"
	"github.com/vk/reportflow/internal/report"
	"github.com/zclconf/go-cty/cty"
)

// oleController returns an in-progress ObjectOle controller at row pos.
func oleController(t *testing.T, ole report.ObjectOle, table *datarow.Table, pos int) *Controller {
	t.Helper()
	node := report.NewObjectOle("chart", ole)
	parent := report.NewDetail("d", report.WithChildren(node))

	fc := flow.New(table)
	for i := 0; i < pos; i++ {
		var err error
		fc, err = fc.Advance()
		require.NoError(t, err)
	}
	p, err := newController(parent, nil, fc)
	require.NoError(t, err)
	c, err := newController(node, p.WithState(InProgress), fc)
	require.NoError(t, err)
	return c.WithState(InProgress)
}

func abTable(t *testing.T) *datarow.Table {
	return mustTable(t, []string{"A", "B"},
		[]any{"w", "y"},
		[]any{"x", "y"},
	)
}

func TestObjectOle_IsValueChanged(t *testing.T) {
	table := mustTable(t, []string{"A", "B"},
		[]any{"w", "y"},
		[]any{"x", "y"},
		[]any{"x", "y"},
	)
	testCases := []struct {
		name    string
		masters []string
		pos     int
		want    bool
	}{
		{name: "no master fields", masters: nil, pos: 1, want: false},
		{name: "first row is always changed", masters: []string{"B"}, pos: 0, want: true},
		{name: "one dirty master is enough", masters: []string{"B", "A"}, pos: 1, want: true},
		{name: "all clean", masters: []string{"A", "B"}, pos: 2, want: false},
		{name: "failing lookup counts as unchanged", masters: []string{"missing", "B"}, pos: 1, want: false},
		{name: "failing lookup does not hide a change", masters: []string{"missing", "A"}, pos: 1, want: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := oleController(t, report.ObjectOle{URL: ptr("u"), MasterFields: tc.masters}, table, tc.pos)
			assert.Equal(t, tc.want, c.IsValueChanged(context.Background()))
		})
	}
}

func TestObjectOle_Content(t *testing.T) {
	t.Run("carries resolved master values in order", func(t *testing.T) {
		ole := report.ObjectOle{
			URL:          ptr("chart://sales"),
			ClassID:      "chart",
			MasterFields: []string{"A", "B"},
			DetailFields: []string{"amount"},
		}
		c := oleController(t, ole, abTable(t), 1)

		rec := &recorder{}
		next, err := c.DelegateContentGeneration(context.Background(), rec)
		require.NoError(t, err)
		assert.Equal(t, []string{"<object-ole>", "</object-ole>"}, rec.labels)
		assert.NotNil(t, next)

		a := rec.starts[0]
		href, _ := a.Get(attrs.ReportNamespace, attrs.Href)
		assert.Equal(t, "chart://sales", href)
		classID, _ := a.Get(attrs.ReportNamespace, attrs.ClassID)
		assert.Equal(t, "chart", classID)
		columns, _ := a.Get(attrs.ReportNamespace, attrs.MasterColumns)
		assert.Equal(t, []string{"A", "B"}, columns)
		values, _ := a.Get(attrs.ReportNamespace, attrs.MasterValues)
		assert.Equal(t, []cty.Value{cty.StringVal("x"), cty.StringVal("y")}, values)
		details, _ := a.Get(attrs.ReportNamespace, attrs.DetailColumns)
		assert.Equal(t, []string{"amount"}, details)
	})

	t.Run("failed lookups are left out of both lists", func(t *testing.T) {
		ole := report.ObjectOle{URL: ptr("u"), MasterFields: []string{"A", "missing", "B"}}
		c := oleController(t, ole, abTable(t), 1)

		rec := &recorder{}
		_, err := c.DelegateContentGeneration(context.Background(), rec)
		require.NoError(t, err)

		columns, _ := rec.starts[0].Get(attrs.ReportNamespace, attrs.MasterColumns)
		values, _ := rec.starts[0].Get(attrs.ReportNamespace, attrs.MasterValues)
		assert.Equal(t, []string{"A", "B"}, columns)
		assert.Len(t, values, 2)
	})

	t.Run("without url nothing is emitted", func(t *testing.T) {
		c := oleController(t, report.ObjectOle{MasterFields: []string{"A"}}, abTable(t), 1)

		rec := &recorder{}
		next, err := c.DelegateContentGeneration(context.Background(), rec)
		require.NoError(t, err)
		require.NotNil(t, next)
		assert.Empty(t, rec.labels)
		assert.True(t, next.contentDone)
	})
}

func TestObjectOle_AdvanceSkipsUnchangedMasters(t *testing.T) {
	ole := report.ObjectOle{URL: ptr("u"), MasterFields: []string{"B"}}
	c := oleController(t, ole, abTable(t), 1)

	rec := &recorder{}
	next, err := c.Advance(context.Background(), rec)
	require.NoError(t, err)
	assert.Empty(t, rec.labels)
	assert.Equal(t, InProgress, next.State())
	assert.True(t, next.contentDone)

	closed, err := next.Advance(context.Background(), rec)
	require.NoError(t, err)
	assert.Empty(t, rec.labels, "object elements have no enclosing end event")
	assert.Equal(t, report.KindDetail, closed.Node().Kind())
}

func TestDrive_ObjectOleOnlyOnMasterChange(t *testing.T) {
	table := mustTable(t, []string{"region", "amount"},
		[]any{"north", 1},
		[]any{"north", 2},
		[]any{"south", 3},
	)
	root := report.NewReport("r", report.WithChildren(
		report.NewDetail("d", report.WithChildren(
			report.NewObjectOle("chart", report.ObjectOle{URL: ptr("chart://region"), MasterFields: []string{"region"}}),
		)),
	))

	got, err := drive(t, root, flow.New(table))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"<report:r>",
		"<detail:d>", "<object-ole>", "</object-ole>", "</detail:d>",
		"<detail:d>", "</detail:d>",
		"<detail:d>", "<object-ole>", "</object-ole>", "</detail:d>",
		"</report:r>",
	}, got)
}

func TestField_Content(t *testing.T) {
	table := mustTable(t, []string{"amount", "note"},
		[]any{1234.5, nil},
	)

	testCases := []struct {
		name    string
		formula string
		want    string
	}{
		{name: "number", formula: "row.amount", want: "1234.5"},
		{name: "null renders empty", formula: "row.note", want: ""},
		{name: "function call", formula: `format("%s!", upper("hi"))`, want: "HI!"},
		{name: "bool", formula: "row.amount > 1000", want: "true"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			node := report.NewField("f", tc.formula)
			fc := flow.New(table)
			c, err := newController(node, nil, fc)
			require.NoError(t, err)

			rec := &recorder{}
			_, err = c.WithState(InProgress).DelegateContentGeneration(context.Background(), rec)
			require.NoError(t, err)
			require.Len(t, rec.starts, 1)
			v, _ := rec.starts[0].Get(attrs.ReportNamespace, attrs.Value)
			assert.Equal(t, tc.want, v)
		})
	}
}
