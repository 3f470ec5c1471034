package tscluster

import (
	"math"
	"math/rand/v2"
)

// Below this log weight, raw-space evaluation of a likelihood would have
// underflowed to zero.
var logUnderflow = math.Log(math.SmallestNonzeroFloat64)

// StageResult is the output of one sampling stage.
type StageResult struct {
	// Partition is the reported partition of the stage: the terminal draw,
	// or the trajectory draw closest to the co-clustering similarity matrix
	// when DrawSelectionSimilarity is configured.
	Partition Partition

	// SweepsRun counts completed sweeps; it is less than the configured
	// budget only when the context was cancelled.
	SweepsRun int

	// NumericFallbacks counts reassignment steps whose likelihood weights
	// were so small that raw-space evaluation would have underflowed and
	// only the log-space path produced a usable distribution.
	NumericFallbacks int

	// ClusterCounts traces the number of clusters of each retained draw, in
	// sweep order, when DrawSelectionSimilarity is configured; nil in
	// terminal mode, where no draws are retained. In within-level shape
	// sampling the traces of the disjoint scopes are concatenated in scope
	// order.
	ClusterCounts []int

	// Interrupted reports that the context was cancelled and Partition is
	// the best-so-far state rather than the full-budget result.
	Interrupted bool
}

// sampleLogWeights draws an index from the categorical distribution given by
// unnormalized log weights, using a max-shifted softmax so that weights
// spanning many orders of magnitude normalize without underflow. fallbacks
// is incremented when the raw-space weights would all have underflowed.
func sampleLogWeights(rng *rand.Rand, logw []float64, fallbacks *int) int {
	maxLog := math.Inf(-1)
	for _, w := range logw {
		if w > maxLog {
			maxLog = w
		}
	}
	if maxLog < logUnderflow {
		*fallbacks++
	}

	var total float64
	w := make([]float64, len(logw))
	for i, lw := range logw {
		w[i] = math.Exp(lw - maxLog)
		total += w[i]
	}

	u := rng.Float64() * total
	var cum float64
	for i, wi := range w {
		cum += wi
		if u < cum {
			return i
		}
	}
	return len(w) - 1
}

// trajectory retains Gibbs draws past the burn-in period at the configured
// thinning interval, and accumulates the co-clustering similarity matrix
// and the number-of-clusters trace over the retained draws.
type trajectory struct {
	n        int
	burnIn   int
	thinning int

	draws  []Partition
	counts []int     // clusters per retained draw, parallel to draws
	sim    []float64 // co-clustering counts, flat n×n
}

func newTrajectory(n, sweeps, burnIn, thinning int) *trajectory {
	if burnIn == 0 {
		burnIn = sweeps / 10
	}
	return &trajectory{
		n:        n,
		burnIn:   burnIn,
		thinning: thinning,
		sim:      make([]float64, n*n),
	}
}

// record saves the labels of a completed sweep if it falls past burn-in on
// the thinning grid. labels is copied.
func (t *trajectory) record(sweep int, labels Partition) {
	if sweep < t.burnIn || (sweep-t.burnIn)%t.thinning != 0 {
		return
	}
	draw := make(Partition, len(labels))
	copy(draw, labels)
	t.draws = append(t.draws, draw)
	t.counts = append(t.counts, draw.NumClusters())

	for i := 0; i < t.n; i++ {
		t.sim[i*t.n+i]++
		for j := i + 1; j < t.n; j++ {
			if draw[i] == draw[j] {
				t.sim[i*t.n+j]++
				t.sim[j*t.n+i]++
			}
		}
	}
}

// selectPartition returns the retained draw whose co-membership matrix is
// closest (least squares) to the average similarity matrix, or terminal if
// no draws were retained.
func (t *trajectory) selectPartition(terminal Partition) Partition {
	if t == nil || len(t.draws) == 0 {
		return terminal
	}

	m := float64(len(t.draws))
	best := 0
	bestDist := math.Inf(1)
	for d, draw := range t.draws {
		co := draw.coMembership()
		var dist float64
		for k, c := range co {
			diff := c - t.sim[k]/m
			dist += diff * diff
		}
		if dist < bestDist {
			bestDist = dist
			best = d
		}
	}
	return t.draws[best]
}
