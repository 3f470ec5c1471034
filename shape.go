package tscluster

import (
	"context"
	"math"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"
)

// shapeScope is the set of series a shape-stage chain runs over: all series
// when ShapeWithinLevels is false, otherwise the members of one level
// cluster. idx maps local positions to global series indices.
type shapeScope struct {
	idx  []int
	diss []float64 // global flat n×n dissimilarity matrix
	n    int       // global series count (row stride of diss)
}

func (s *shapeScope) d(li, lj int) float64 {
	return s.diss[s.idx[li]*s.n+s.idx[lj]]
}

// shapeChain is the mutable state of one shape-stage chain: local cluster
// member lists and the local assignment. Clusters hold local positions.
type shapeChain struct {
	scope    *shapeScope
	assign   Partition
	clusters [][]int
}

// newShapeChain starts the chain with every series of the scope in one
// cluster, so a run interrupted before its first sweep reports the level
// partition unchanged rather than splintering it into singletons.
func newShapeChain(scope *shapeScope) *shapeChain {
	ch := &shapeChain{
		scope:  scope,
		assign: make(Partition, len(scope.idx)),
	}
	members := make([]int, len(scope.idx))
	for i := range members {
		members[i] = i
	}
	ch.clusters = [][]int{members}
	return ch
}

func (ch *shapeChain) detach(i int) {
	k := ch.assign[i]
	members := ch.clusters[k]
	for p, m := range members {
		if m == i {
			members[p] = members[len(members)-1]
			ch.clusters[k] = members[:len(members)-1]
			break
		}
	}
	ch.assign[i] = -1
	if len(ch.clusters[k]) > 0 {
		return
	}

	last := len(ch.clusters) - 1
	ch.clusters[k] = ch.clusters[last]
	ch.clusters = ch.clusters[:last]
	if k == last {
		return
	}
	for j, l := range ch.assign {
		if l == last {
			ch.assign[j] = k
		}
	}
}

func (ch *shapeChain) attach(i, k int) {
	if k == len(ch.clusters) {
		ch.clusters = append(ch.clusters, nil)
	}
	ch.clusters[k] = append(ch.clusters[k], i)
	ch.assign[i] = k
}

// reassign resamples the membership of local series i. Joining cluster k
// weighs size × exp(−d̄/bandwidth), where d̄ is i's mean dissimilarity to
// the members of k; a new singleton cluster weighs alpha.
func (ch *shapeChain) reassign(i int, alpha, bandwidth float64, rng *rand.Rand, fallbacks *int) {
	ch.detach(i)

	logw := make([]float64, len(ch.clusters)+1)
	for k, members := range ch.clusters {
		var sum float64
		for _, m := range members {
			sum += ch.scope.d(i, m)
		}
		avg := sum / float64(len(members))
		logw[k] = math.Log(float64(len(members))) - avg/bandwidth
	}
	logw[len(ch.clusters)] = math.Log(alpha)

	ch.attach(i, sampleLogWeights(rng, logw, fallbacks))
}

// runShapeScope runs one shape-stage chain over a scope and returns its
// reported local partition.
func runShapeScope(ctx context.Context, scope *shapeScope, cfg Config, rng *rand.Rand) *StageResult {
	ch := newShapeChain(scope)
	local := len(scope.idx)

	var traj *trajectory
	if cfg.DrawSelection == DrawSelectionSimilarity {
		traj = newTrajectory(local, cfg.SweepsShape, cfg.BurnIn, cfg.Thinning)
	}

	res := &StageResult{}
	for sweep := 0; sweep < cfg.SweepsShape; sweep++ {
		select {
		case <-ctx.Done():
			res.Interrupted = true
		default:
		}
		if res.Interrupted {
			break
		}

		for _, i := range rng.Perm(local) {
			ch.reassign(i, cfg.AlphaShape, cfg.Bandwidth, rng, &res.NumericFallbacks)
		}
		res.SweepsRun++
		if traj != nil {
			traj.record(sweep, ch.assign)
		}
	}

	res.Partition = traj.selectPartition(ch.assign).Canonical()
	if traj != nil {
		res.ClusterCounts = traj.counts
	}
	return res
}

// ShapeResult extends StageResult with the pairwise dissimilarity matrix
// the shape stage was sampled from, for reuse by the aggregator.
type ShapeResult struct {
	StageResult

	// Dissimilarities is the flat n×n matrix over standardized series.
	Dissimilarities []float64
}

// SampleShapePartition refines a level partition by temporal shape. It
// computes the pairwise dissimilarity matrix over the standardized series
// once (cfg.Metric, cfg.Workers) and Gibbs-samples a dissimilarity-based
// partition model per spec: within each level cluster when
// cfg.ShapeWithinLevels is true (the default), or across all series
// otherwise. Shape labels are globally contiguous either way.
//
// Disjoint level clusters are sampled concurrently; each scope draws from a
// generator seeded deterministically from rng before the fan-out, so
// results are reproducible regardless of goroutine scheduling.
func SampleShapePartition(ctx context.Context, stats []SeriesStatistics, level Partition, cfg Config, rng *rand.Rand) (*ShapeResult, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	if len(level) != len(stats) {
		return nil, &InputShapeError{Index: -1, Reason: "level partition length does not match the number of series"}
	}

	n := len(stats)
	standardized := make([][]float64, n)
	for i, s := range stats {
		standardized[i] = s.Standardized
	}
	diss := PairwiseDissimilarities(standardized, cfg.Metric, cfg.Workers)

	res := &ShapeResult{Dissimilarities: diss}
	labels := make(Partition, n)

	if !cfg.ShapeWithinLevels {
		scope := &shapeScope{idx: allIndices(n), diss: diss, n: n}
		sr := runShapeScope(ctx, scope, cfg, rng)
		for li, gi := range scope.idx {
			labels[gi] = sr.Partition[li]
		}
		res.StageResult = *sr
		res.Partition = labels.Canonical()
		return res, nil
	}

	level = level.Canonical()
	numScopes := level.NumClusters()
	scopes := make([]*shapeScope, numScopes)
	seeds := make([]uint64, numScopes)
	for k := 0; k < numScopes; k++ {
		scopes[k] = &shapeScope{idx: level.Members(k), diss: diss, n: n}
		// Seeds are drawn before the fan-out so the parent rng advances
		// identically no matter how the scopes are scheduled.
		seeds[k] = rng.Uint64()
	}

	results := make([]*StageResult, numScopes)
	g, gctx := errgroup.WithContext(ctx)
	for k := 0; k < numScopes; k++ {
		g.Go(func() error {
			scopeRNG := rand.New(rand.NewPCG(seeds[k], seeds[k]^chainSeedMix))
			results[k] = runShapeScope(gctx, scopes[k], cfg, scopeRNG)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge scope partitions into globally contiguous shape labels.
	offset := 0
	for k, sr := range results {
		for li, gi := range scopes[k].idx {
			labels[gi] = offset + sr.Partition[li]
		}
		offset += sr.Partition.NumClusters()
		res.SweepsRun += sr.SweepsRun
		res.NumericFallbacks += sr.NumericFallbacks
		res.ClusterCounts = append(res.ClusterCounts, sr.ClusterCounts...)
		res.Interrupted = res.Interrupted || sr.Interrupted
	}
	res.Partition = labels.Canonical()
	return res, nil
}

func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
