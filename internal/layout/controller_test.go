package layout

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/reportflow/internal/datarow"
	"github.com/vk/reportflow/internal/flow"
	"github.com/vk/reportflow/internal/formula"
	"github.com/vk/reportflow/internal/report"
)

func salesTable(t *testing.T) *datarow.Table {
	return mustTable(t, []string{"region", "city", "amount"},
		[]any{"north", "a", 10},
		[]any{"north", "b", 20},
		[]any{"south", "c", 30},
	)
}

func TestWithState_DoesNotMutateOriginal(t *testing.T) {
	lc, err := New(report.NewReport("r"), flow.New(nil))
	require.NoError(t, err)

	finished := lc.WithState(Finished)
	assert.Equal(t, NotStarted, lc.State())
	assert.Equal(t, Finished, finished.State())
	assert.NotSame(t, lc, finished)

	repeat := lc.WithFlowMode(RepeatFlow)
	assert.True(t, lc.IsNormalFlowProcessing())
	assert.False(t, repeat.IsNormalFlowProcessing())
}

func TestAdvance_FinishedControllerIsAnError(t *testing.T) {
	lc, err := New(report.NewReport("r"), flow.New(nil))
	require.NoError(t, err)

	rec := &recorder{}
	_, err = lc.WithState(Finished).Advance(context.Background(), rec)
	assert.ErrorIs(t, err, ErrControllerFinished)

	_, err = lc.EndElement(context.Background(), rec)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = lc.WithState(InProgress).StartElement(context.Background(), rec)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = lc.WithState(Finished).DelegateContentGeneration(context.Background(), rec)
	assert.ErrorIs(t, err, ErrControllerFinished)
	assert.Empty(t, rec.labels)
}

func TestAdvance_StepsAreRetryable(t *testing.T) {
	root := report.NewReport("r", report.WithChildren(report.NewSection("s")))
	lc, err := New(root, flow.New(nil))
	require.NoError(t, err)

	first := &recorder{}
	started, err := lc.Advance(context.Background(), first)
	require.NoError(t, err)

	second := &recorder{}
	again, err := lc.Advance(context.Background(), second)
	require.NoError(t, err)

	assert.Equal(t, NotStarted, lc.State())
	assert.Equal(t, started.State(), again.State())
	assert.Equal(t, first.labels, second.labels)
}

func TestDrive_GroupedReport(t *testing.T) {
	root := report.NewReport("sales", report.WithChildren(
		report.NewSection("title", report.WithChildren(report.NewField("heading", `"Sales"`))),
		report.NewGroup("by-region", []string{"region"}, report.WithChildren(
			report.NewGroupSection("region-header", false, report.WithChildren(report.NewField("region", "row.region"))),
			report.NewDetail("line", report.WithChildren(
				report.NewField("city", "row.city"),
				report.NewField("amount", "row.amount"),
			)),
			report.NewGroupSection("region-footer", false),
		)),
	))

	got, err := drive(t, root, flow.New(salesTable(t)))
	require.NoError(t, err)

	want := []string{
		"<report:sales>",
		"<section:title>", "<text:heading=Sales>", "</text:heading=Sales>", "</section:title>",
		"<group:by-region>",
		"<group-section:region-header>", "<text:region=north>", "</text:region=north>", "</group-section:region-header>",
		"<detail:line>", "<text:city=a>", "</text:city=a>", "<text:amount=10>", "</text:amount=10>", "</detail:line>",
		"<detail:line>", "<text:city=b>", "</text:city=b>", "<text:amount=20>", "</text:amount=20>", "</detail:line>",
		"<group-section:region-footer>", "</group-section:region-footer>",
		"</group:by-region>",
		"<group:by-region>",
		"<group-section:region-header>", "<text:region=south>", "</text:region=south>", "</group-section:region-header>",
		"<detail:line>", "<text:city=c>", "</text:city=c>", "<text:amount=30>", "</text:amount=30>", "</detail:line>",
		"<group-section:region-footer>", "</group-section:region-footer>",
		"</group:by-region>",
		"</report:sales>",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("event stream mismatch (-want +got):\n%s", diff)
	}
}

func TestDrive_NestedGroupsBreakOnOuterKey(t *testing.T) {
	table := mustTable(t, []string{"region", "kind"},
		[]any{"north", "x"},
		[]any{"south", "x"},
	)
	root := report.NewReport("r", report.WithChildren(
		report.NewGroup("outer", []string{"region"}, report.WithChildren(
			report.NewGroup("inner", []string{"kind"}, report.WithChildren(
				report.NewDetail("d", report.WithChildren(report.NewField("k", "row.region"))),
			)),
		)),
	))

	got, err := drive(t, root, flow.New(table))
	require.NoError(t, err)

	want := []string{
		"<report:r>",
		"<group:outer>", "<group:inner>", "<detail:d>", "<text:k=north>", "</text:k=north>", "</detail:d>", "</group:inner>", "</group:outer>",
		"<group:outer>", "<group:inner>", "<detail:d>", "<text:k=south>", "</text:k=south>", "</detail:d>", "</group:inner>", "</group:outer>",
		"</report:r>",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("event stream mismatch (-want +got):\n%s", diff)
	}
}

func TestDrive_EmptyDataSkipsBody(t *testing.T) {
	root := report.NewReport("r", report.WithChildren(
		report.NewSection("title"),
		report.NewDetail("d", report.WithChildren(report.NewField("f", "row.missing"))),
	))

	got, err := drive(t, root, flow.New(mustTable(t, []string{"a"})))
	require.NoError(t, err)
	assert.Equal(t, []string{"<report:r>", "<section:title>", "</section:title>", "</report:r>"}, got)
}

func TestDrive_DisplayCondition(t *testing.T) {
	root := report.NewReport("r", report.WithChildren(
		report.NewDetail("d", report.WithChildren(
			report.NewField("big", "row.amount", report.WithDisplayCondition("row.amount > 15")),
		)),
	))

	got, err := drive(t, root, flow.New(salesTable(t)))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"<report:r>",
		"<detail:d>", "</detail:d>",
		"<detail:d>", "<text:big=20>", "</text:big=20>", "</detail:d>",
		"<detail:d>", "<text:big=30>", "</text:big=30>", "</detail:d>",
		"</report:r>",
	}, got)
}

func TestDrive_SuppressRepeatedValues(t *testing.T) {
	root := report.NewReport("r", report.WithChildren(
		report.NewDetail("d", report.WithChildren(
			report.NewField("region", "upper(row.region)", report.WithPrintRepeatedValues(false)),
		)),
	))

	got, err := drive(t, root, flow.New(salesTable(t)))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"<report:r>",
		"<detail:d>", "<text:region=NORTH>", "</text:region=NORTH>", "</detail:d>",
		"<detail:d>", "</detail:d>",
		"<detail:d>", "<text:region=SOUTH>", "</text:region=SOUTH>", "</detail:d>",
		"</report:r>",
	}, got)
}

func TestDrive_ErrorsPropagate(t *testing.T) {
	t.Run("data source error in field formula", func(t *testing.T) {
		root := report.NewReport("r", report.WithChildren(
			report.NewDetail("d", report.WithChildren(report.NewField("f", "row.missing"))),
		))
		got, err := drive(t, root, flow.New(salesTable(t)))
		require.Error(t, err)
		assert.ErrorIs(t, err, datarow.ErrDataSource)
		assert.ErrorIs(t, err, formula.ErrEvaluation)
		assert.Equal(t, []string{"<report:r>", "<detail:d>"}, got, "partial output is not rolled back")
	})

	t.Run("unknown group field", func(t *testing.T) {
		root := report.NewReport("r", report.WithChildren(
			report.NewGroup("g", []string{"nope"}, report.WithChildren(report.NewDetail("d"))),
		))
		_, err := drive(t, root, flow.New(salesTable(t)))
		assert.ErrorIs(t, err, datarow.ErrDataSource)
	})

	t.Run("target failure", func(t *testing.T) {
		lc, err := New(report.NewReport("r", report.WithChildren(report.NewSection("s"))), flow.New(nil))
		require.NoError(t, err)
		rec := &recorder{failOn: "<report:r>"}
		_, err = lc.Advance(context.Background(), rec)
		assert.ErrorIs(t, err, errTargetFailed)
	})
}

func TestDrive_HiddenGroupSkipsItsWholeKeyRun(t *testing.T) {
	layout := func() *report.Node {
		return report.NewReport("r", report.WithChildren(
			report.NewGroup("g", []string{"region"},
				report.WithDisplayCondition("row.amount > 15"),
				report.WithChildren(
					report.NewGroupSection("h", false, report.WithChildren(report.NewField("region", "row.region"))),
					report.NewDetail("d", report.WithChildren(report.NewField("amount", "row.amount"))),
				),
			),
		))
	}
	group := func(region string, amounts ...string) []string {
		out := []string{"<group:g>", "<group-section:h>", "<text:region=" + region + ">", "</text:region=" + region + ">", "</group-section:h>"}
		for _, a := range amounts {
			out = append(out, "<detail:d>", "<text:amount="+a+">", "</text:amount="+a+">", "</detail:d>")
		}
		return append(out, "</group:g>")
	}

	t.Run("hidden first group", func(t *testing.T) {
		table := mustTable(t, []string{"region", "amount"},
			[]any{"north", 10},
			[]any{"north", 20},
			[]any{"south", 30},
		)
		got, err := drive(t, layout(), flow.New(table))
		require.NoError(t, err)

		want := append([]string{"<report:r>"}, group("south", "30")...)
		want = append(want, "</report:r>")
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("event stream mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("hidden last group", func(t *testing.T) {
		table := mustTable(t, []string{"region", "amount"},
			[]any{"north", 30},
			[]any{"south", 5},
			[]any{"south", 40},
		)
		got, err := drive(t, layout(), flow.New(table))
		require.NoError(t, err)

		want := append([]string{"<report:r>"}, group("north", "30")...)
		want = append(want, "</report:r>")
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("event stream mismatch (-want +got):\n%s", diff)
		}
	})
}
