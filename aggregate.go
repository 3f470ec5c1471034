package tscluster

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ClusterSummary describes one final cluster for external reporting.
type ClusterSummary struct {
	// Label is the final cluster ID, LevelLabel/ShapeLabel the stage labels
	// it was composed from. All three are exchangeable identifiers.
	Label      int
	LevelLabel int
	ShapeLabel int

	// Members lists the series indices in the cluster, ascending.
	Members []int
	Size    int

	// Mean and Variance average the members' series means and sample
	// variances.
	Mean     float64
	Variance float64

	// Representative is the member whose standardized series has the
	// smallest average dissimilarity to the rest of the cluster.
	Representative int
}

// ComposePartitions combines a level partition and a shape partition into a
// single final partition: series share a final cluster exactly when they
// share both a level cluster and a shape cluster. Final labels are
// contiguous from 0 in order of first appearance.
func ComposePartitions(level, shape Partition) Partition {
	final := make(Partition, len(level))
	type pair struct{ l, s int }
	seen := make(map[pair]int)
	for i := range level {
		p := pair{level[i], shape[i]}
		label, ok := seen[p]
		if !ok {
			label = len(seen)
			seen[p] = label
		}
		final[i] = label
	}
	return final
}

// BuildSummaries computes a ClusterSummary per final cluster. diss is the
// flat n×n dissimilarity matrix over standardized series (as produced by
// the shape stage); it drives the representative-member choice.
func BuildSummaries(stats []SeriesStatistics, final, level, shape Partition, diss []float64) []ClusterSummary {
	n := len(stats)
	summaries := make([]ClusterSummary, final.NumClusters())

	for label := range summaries {
		members := final.Members(label)
		sort.Ints(members)

		means := make([]float64, len(members))
		variances := make([]float64, len(members))
		for p, i := range members {
			means[p] = stats[i].Mean
			variances[p] = stats[i].Variance
		}

		summaries[label] = ClusterSummary{
			Label:          label,
			LevelLabel:     level[members[0]],
			ShapeLabel:     shape[members[0]],
			Members:        members,
			Size:           len(members),
			Mean:           stat.Mean(means, nil),
			Variance:       stat.Mean(variances, nil),
			Representative: representative(members, diss, n),
		}
	}
	return summaries
}

// representative returns the member with minimal average dissimilarity to
// the other members, breaking ties toward the lower index.
func representative(members []int, diss []float64, n int) int {
	if len(members) == 1 {
		return members[0]
	}
	best := members[0]
	bestAvg := math.Inf(1)
	for _, i := range members {
		var sum float64
		for _, j := range members {
			if j != i {
				sum += diss[i*n+j]
			}
		}
		avg := sum / float64(len(members)-1)
		if avg < bestAvg {
			bestAvg = avg
			best = i
		}
	}
	return best
}

// Heterogeneity computes the HM measure of a cluster configuration over the
// standardized series: the sum over clusters of 2/(size−1) times the total
// squared distance between member pairs. Lower values mean tighter
// clusters; singleton clusters contribute zero.
func Heterogeneity(stats []SeriesStatistics, p Partition) float64 {
	var hm float64
	for label := 0; label < p.NumClusters(); label++ {
		members := p.Members(label)
		if len(members) < 2 {
			continue
		}
		var within float64
		for a := 1; a < len(members); a++ {
			for b := 0; b < a; b++ {
				within += euclideanSumOfSquares(
					stats[members[a]].Standardized,
					stats[members[b]].Standardized,
				)
			}
		}
		hm += 2 / float64(len(members)-1) * within
	}
	return hm
}
