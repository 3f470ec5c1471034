package tscluster

import (
	"math"

	"github.com/montanaflynn/stats"
)

// Series variance below this is treated as numerically zero.
const degenerateVariance = 1e-300

// SeriesStatistics is the sufficient summary of one input series: its level
// (mean), variability (sample variance, length-1 denominator) and a
// standardized copy with the level and scale removed. Records are immutable
// once produced and may be shared across concurrent sampler runs.
type SeriesStatistics struct {
	// Index is the position of the series in the input table.
	Index int

	Mean     float64
	Variance float64

	// Standardized is the series transformed to zero mean and unit variance.
	// It has the same length as the input series.
	Standardized []float64
}

// Summarize reduces each raw series to a SeriesStatistics record. All series
// must share the same length L >= 2, and at least two series are required.
// A series whose variance is numerically zero yields a
// *DegenerateSeriesError naming the offending index. The computation is
// deterministic and has no side effects.
func Summarize(data [][]float64) ([]SeriesStatistics, error) {
	if len(data) < 2 {
		return nil, &InputShapeError{Index: -1, Reason: "need at least 2 series"}
	}
	length := len(data[0])
	if length < 2 {
		return nil, &InputShapeError{Index: -1, Reason: "series must have at least 2 observations"}
	}
	for i, row := range data {
		if len(row) != length {
			return nil, &InputShapeError{Index: i, WantLen: length, GotLen: len(row)}
		}
	}

	out := make([]SeriesStatistics, len(data))
	for i, row := range data {
		mean, err := stats.Mean(row)
		if err != nil {
			return nil, err
		}
		variance, err := stats.SampleVariance(row)
		if err != nil {
			return nil, err
		}
		if variance < degenerateVariance || math.IsNaN(variance) {
			return nil, &DegenerateSeriesError{Index: i}
		}

		sd := math.Sqrt(variance)
		standardized := make([]float64, length)
		for t, x := range row {
			standardized[t] = (x - mean) / sd
		}
		out[i] = SeriesStatistics{
			Index:        i,
			Mean:         mean,
			Variance:     variance,
			Standardized: standardized,
		}
	}
	return out, nil
}
