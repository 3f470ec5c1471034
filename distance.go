package tscluster

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// DissimilarityMetric measures how different two standardized series are in
// temporal shape. Zero means identical shape; larger values mean less alike.
type DissimilarityMetric interface {
	Dissimilarity(a, b []float64) float64
}

// DissimilarityFunc adapts a plain function into a DissimilarityMetric.
type DissimilarityFunc func(a, b []float64) float64

func (f DissimilarityFunc) Dissimilarity(a, b []float64) float64 { return f(a, b) }

// CorrelationMetric computes 1 − Pearson correlation, in [0, 2]. Series that
// move together score near 0, uncorrelated series near 1 and series that
// move in opposition near 2. This is the default shape dissimilarity.
type CorrelationMetric struct{}

func (CorrelationMetric) Dissimilarity(a, b []float64) float64 {
	return 1 - stat.Correlation(a, b, nil)
}

// EuclideanMetric computes the Euclidean (L2) distance between two
// standardized series.
type EuclideanMetric struct{}

func (EuclideanMetric) Dissimilarity(a, b []float64) float64 {
	return math.Sqrt(euclideanSumOfSquares(a, b))
}

func euclideanSumOfSquares(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
