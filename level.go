package tscluster

import (
	"context"
	"math"
	"math/rand/v2"
)

// levelObs is the level-stage observation for one series: its mean and the
// log of its sample variance. The log keeps the variance coordinate
// real-valued so the same Normal–Inverse-Gamma machinery applies to both
// coordinates.
type levelObs [2]float64

// levelCluster carries the running per-coordinate sufficient statistics of
// one level cluster. Its size is dims[0].n.
type levelCluster struct {
	dims [2]moments
}

func (c *levelCluster) size() int { return c.dims[0].n }

func (c *levelCluster) add(x levelObs) {
	for d := range c.dims {
		c.dims[d].add(x[d])
	}
}

func (c *levelCluster) remove(x levelObs) {
	for d := range c.dims {
		c.dims[d].remove(x[d])
	}
}

// levelChain is the mutable state of one level-stage Markov chain: the
// current assignment of series to clusters and each cluster's sufficient
// statistics. It is owned exclusively by the sampler run that created it.
type levelChain struct {
	obs      []levelObs
	assign   Partition
	clusters []*levelCluster
	prior    nigPrior
}

func newLevelChain(stats []SeriesStatistics, initial Partition, prior nigPrior) *levelChain {
	n := len(stats)
	ch := &levelChain{
		obs:    make([]levelObs, n),
		assign: make(Partition, n),
		prior:  prior,
	}
	for i, s := range stats {
		ch.obs[i] = levelObs{s.Mean, math.Log(s.Variance)}
	}

	if initial == nil {
		initial = singletonPartition(n)
	}
	initial = initial.Canonical()
	for k := 0; k < initial.NumClusters(); k++ {
		ch.clusters = append(ch.clusters, &levelCluster{})
	}
	for i, l := range initial {
		ch.assign[i] = l
		ch.clusters[l].add(ch.obs[i])
	}
	return ch
}

// detach removes series i from its cluster, compacting the cluster slice if
// the cluster became empty so labels stay contiguous.
func (ch *levelChain) detach(i int) {
	k := ch.assign[i]
	ch.clusters[k].remove(ch.obs[i])
	ch.assign[i] = -1
	if ch.clusters[k].size() > 0 {
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

// attach places series i in cluster k, where k == len(clusters) opens a new
// singleton cluster.
func (ch *levelChain) attach(i, k int) {
	if k == len(ch.clusters) {
		ch.clusters = append(ch.clusters, &levelCluster{})
	}
	ch.clusters[k].add(ch.obs[i])
	ch.assign[i] = k
}

// reassign resamples the cluster membership of series i from its Polya-urn
// full conditional: each existing cluster weighs size × posterior
// predictive, a new cluster weighs alpha × prior predictive. All weights
// are computed in log space.
func (ch *levelChain) reassign(i int, alpha float64, rng *rand.Rand, fallbacks *int) {
	ch.detach(i)

	x := ch.obs[i]
	logw := make([]float64, len(ch.clusters)+1)
	for k, c := range ch.clusters {
		logw[k] = math.Log(float64(c.size())) +
			ch.prior.logPredictive(x[0], c.dims[0]) +
			ch.prior.logPredictive(x[1], c.dims[1])
	}
	var empty moments
	logw[len(ch.clusters)] = math.Log(alpha) +
		ch.prior.logPredictive(x[0], empty) +
		ch.prior.logPredictive(x[1], empty)

	ch.attach(i, sampleLogWeights(rng, logw, fallbacks))
}

// SampleLevelPartition infers a partition of the series into level and
// variability clusters by Gibbs-sampling the Dirichlet-process product
// partition model over (mean, log variance) pairs. The chain starts from
// cfg.InitialLevel (every series in its own cluster when nil) and runs
// cfg.SweepsLevel sweeps in random order; the sweep budget is the only
// stopping rule. The context is checked once per sweep: on cancellation the
// best-so-far partition is returned with Interrupted set.
//
// rng is the caller-owned source of randomness; identical inputs, config
// and rng state produce bit-identical partitions.
func SampleLevelPartition(ctx context.Context, stats []SeriesStatistics, cfg Config, rng *rand.Rand) (*StageResult, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	if cfg.InitialLevel != nil {
		if len(cfg.InitialLevel) != len(stats) {
			return nil, &ConfigError{Field: "InitialLevel", Reason: "length does not match the number of series"}
		}
		for _, l := range cfg.InitialLevel {
			if l < 0 {
				return nil, &ConfigError{Field: "InitialLevel", Reason: "labels must be non-negative"}
			}
		}
	}

	n := len(stats)
	ch := newLevelChain(stats, cfg.InitialLevel, newNIGPrior(cfg.Mean0, cfg.Var0, cfg.Shape0, cfg.Scale0))

	var traj *trajectory
	if cfg.DrawSelection == DrawSelectionSimilarity {
		traj = newTrajectory(n, cfg.SweepsLevel, cfg.BurnIn, cfg.Thinning)
	}

	res := &StageResult{}
	for sweep := 0; sweep < cfg.SweepsLevel; sweep++ {
		select {
		case <-ctx.Done():
			res.Interrupted = true
		default:
		}
		if res.Interrupted {
			break
		}

		for _, i := range rng.Perm(n) {
			ch.reassign(i, cfg.AlphaLevel, rng, &res.NumericFallbacks)
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
	return res, nil
}
