package tscluster

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeStatistics(t *testing.T) {
	data := [][]float64{
		{1, 2, 3, 4},
		{2, 4, 6, 8},
	}
	stats, err := Summarize(data)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, 0, stats[0].Index)
	assert.InDelta(t, 2.5, stats[0].Mean, 1e-12)
	assert.InDelta(t, 5.0/3.0, stats[0].Variance, 1e-12) // sample variance, L-1 denominator
	assert.InDelta(t, 5.0, stats[1].Mean, 1e-12)

	for i, s := range stats {
		require.Len(t, s.Standardized, 4)
		var sum, ss float64
		for _, z := range s.Standardized {
			sum += z
			ss += z * z
		}
		assert.InDelta(t, 0, sum/4, 1e-12, "series %d: standardized mean", i)
		assert.InDelta(t, 1, ss/3, 1e-12, "series %d: standardized sample variance", i)
	}
}

func TestSummarizeRoundTrip(t *testing.T) {
	series := make([]float64, 36)
	for i := range series {
		series[i] = 40 + 3*math.Sin(2*math.Pi*float64(i)/12) + 0.25*float64(i%5)
	}
	data := [][]float64{series, {1, 2, 1, 2}} // second series only to satisfy N >= 2
	data[1] = make([]float64, 36)
	for i := range data[1] {
		data[1][i] = float64(i % 3)
	}

	stats, err := Summarize(data)
	require.NoError(t, err)

	sd := math.Sqrt(stats[0].Variance)
	for i, z := range stats[0].Standardized {
		reconstructed := z*sd + stats[0].Mean
		assert.InDelta(t, series[i], reconstructed, 1e-9)
	}
}

func TestSummarizeDegenerateSeries(t *testing.T) {
	data := [][]float64{
		{1, 2, 3},
		{7, 7, 7}, // constant: zero variance
		{4, 5, 6},
	}
	_, err := Summarize(data)
	require.Error(t, err)

	var degErr *DegenerateSeriesError
	require.ErrorAs(t, err, &degErr)
	assert.Equal(t, 1, degErr.Index)
	assert.Contains(t, err.Error(), "series 1")
}

func TestSummarizeInputShape(t *testing.T) {
	tests := []struct {
		name      string
		data      [][]float64
		wantIndex int
	}{
		{"no series", nil, -1},
		{"one series", [][]float64{{1, 2, 3}}, -1},
		{"too short", [][]float64{{1}, {2}}, -1},
		{"ragged", [][]float64{{1, 2, 3}, {4, 5, 6}, {7, 8}}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Summarize(tt.data)
			require.Error(t, err)

			var shapeErr *InputShapeError
			require.True(t, errors.As(err, &shapeErr), "expected *InputShapeError, got %T", err)
			assert.Equal(t, tt.wantIndex, shapeErr.Index)
		})
	}
}

func TestSummarizeDoesNotMutateInput(t *testing.T) {
	data := [][]float64{{1, 2, 3}, {9, 6, 3}}
	_, err := Summarize(data)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2, 3}, {9, 6, 3}}, data)
}
