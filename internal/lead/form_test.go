package lead

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPreview_Empty(t *testing.T) {
	t.Parallel()

	state := Preview(FormValues{})
	require.False(t, state.ShowAdditionalFields)
	require.False(t, state.ShowCostDisplay)
	require.Nil(t, state.EstimatedHours)
	require.Nil(t, state.EstimatedCost)
}

func TestPreview_WordCountOnlyShowsHours(t *testing.T) {
	t.Parallel()

	state := Preview(FormValues{WordCount: "90000"})
	require.NotNil(t, state.EstimatedHours)
	require.Equal(t, 10.0, *state.EstimatedHours)
	require.Nil(t, state.EstimatedCost)
	require.False(t, state.ShowAdditionalFields)
}

func TestPreview_GatesCostOnEveryPriorStep(t *testing.T) {
	t.Parallel()

	base := FormValues{WordCount: "18000", SelectedService: TierFullCast}
	state := Preview(base)
	require.True(t, state.ShowAdditionalFields)
	require.False(t, state.ShowCostDisplay)
	require.Equal(t, 300.0, *state.EstimatedCost)

	base.Genre = "romance"
	require.False(t, Preview(base).ShowCostDisplay)

	base.Email = "reader@example"
	require.False(t, Preview(base).ShowCostDisplay, "domain without a dot")

	base.Email = "reader@example.com"
	require.True(t, Preview(base).ShowCostDisplay)

	base.WordCount = "0"
	state = Preview(base)
	require.False(t, state.ShowAdditionalFields)
	require.False(t, state.ShowCostDisplay, "hidden fields never count")
}

func TestPreview_WordCountReadsLeadingDigits(t *testing.T) {
	t.Parallel()

	cases := map[string]float64{
		"1200 words": 1200,
		" 9000":      9000,
		"18000.7":    18000,
		"+900":       900,
	}
	for in, words := range cases {
		state := Preview(FormValues{WordCount: in, SelectedService: TierNarrationOnly})
		require.NotNil(t, state.EstimatedHours, in)
		require.Equal(t, words/WordsPerHour, *state.EstimatedHours, in)
		require.True(t, state.ShowAdditionalFields, in)
	}

	for _, in := range []string{"words 1200", "-50", "", "abc"} {
		state := Preview(FormValues{WordCount: in, SelectedService: TierNarrationOnly})
		require.Nil(t, state.EstimatedHours, in)
		require.False(t, state.ShowAdditionalFields, in)
	}
}
