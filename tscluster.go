package tscluster

import (
	"context"
	"math/rand/v2"
	"runtime"
	"time"
)

// Draw-selection modes for the reported partition of each stage.
const (
	// DrawSelectionTerminal reports the terminal draw of the chain. This is
	// the baseline behavior.
	DrawSelectionTerminal = "terminal"

	// DrawSelectionSimilarity retains the post-burn-in trajectory and
	// reports the draw whose co-membership matrix is closest (least
	// squares) to the co-clustering similarity matrix averaged over the
	// retained draws.
	DrawSelectionSimilarity = "similarity"
)

// chainSeedMix decorrelates derived generator streams from their base seed.
const chainSeedMix = 0x9e3779b97f4a7c15

// deriveTimeSeed produces a nonzero seed for runs that did not set one.
// Such runs are deliberately nondeterministic; the seed used is reported in
// Diagnostics.Seed so they can still be reproduced after the fact.
func deriveTimeSeed() uint64 {
	s := uint64(time.Now().UnixNano())
	if s == 0 {
		s = chainSeedMix
	}
	return s
}

// Config controls the two-stage clustering.
// Start with [DefaultConfig] and override the fields you need.
type Config struct {
	// AlphaLevel is the Dirichlet-process concentration of the level stage.
	// Larger values make new level clusters more likely. Must be > 0.
	// Default: 1.0.
	AlphaLevel float64

	// AlphaShape is the concentration of the shape stage. Must be > 0.
	// Default: 0.5.
	AlphaShape float64

	// Mean0, Var0, Shape0 and Scale0 parameterize the Normal–Inverse-Gamma
	// base measure of the level stage, applied independently to the mean
	// and log-variance coordinates:
	//
	//	mu | sig2 ~ Normal(Mean0, sig2*Var0)
	//	sig2      ~ InverseGamma(Shape0, Scale0)
	//
	// Var0, Shape0 and Scale0 must be > 0.
	// Defaults: Mean0 0, Var0 1, Shape0 2, Scale0 1.
	Mean0  float64
	Var0   float64
	Shape0 float64
	Scale0 float64

	// SweepsLevel and SweepsShape are the fixed Gibbs sweep budgets of the
	// two stages — the only stopping rule. Must be > 0. Default: 400 each.
	SweepsLevel int
	SweepsShape int

	// Bandwidth scales the shape-stage dissimilarity kernel
	// exp(-dissimilarity/Bandwidth). Must be > 0. Default: 0.5.
	Bandwidth float64

	// Metric is the shape dissimilarity over standardized series.
	// Built-in: CorrelationMetric, EuclideanMetric. Use DissimilarityFunc
	// to wrap a custom function. Default: CorrelationMetric.
	Metric DissimilarityMetric

	// ShapeWithinLevels restricts the shape stage to refine within each
	// level cluster. When false, shape clustering runs across all series
	// and may cut across level clusters. Default: true.
	ShapeWithinLevels bool

	// DrawSelection chooses the reported draw of each stage:
	// DrawSelectionTerminal (default) or DrawSelectionSimilarity.
	DrawSelection string

	// BurnIn is the number of initial sweeps excluded from the retained
	// trajectory in DrawSelectionSimilarity mode. 0 means one tenth of the
	// stage's sweep budget. Default: 0.
	BurnIn int

	// Thinning keeps every Thinning-th post-burn-in sweep in the retained
	// trajectory. Must be >= 1 once defaulted. Default: 5.
	Thinning int

	// Seed seeds the sampler's random generator. With an explicit non-zero
	// seed, runs are bit-for-bit reproducible. 0 derives a seed from the
	// clock. Default: 0.
	Seed uint64

	// Workers controls the number of goroutines building the pairwise
	// dissimilarity matrix. 0 means runtime.NumCPU(). Default: 0 (auto).
	Workers int

	// InitialLevel optionally seeds the level chain with a starting
	// partition instead of all-singletons. Must have one label per series.
	InitialLevel Partition
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		AlphaLevel:        1.0,
		AlphaShape:        0.5,
		Mean0:             0,
		Var0:              1,
		Shape0:            2,
		Scale0:            1,
		SweepsLevel:       400,
		SweepsShape:       400,
		Bandwidth:         0.5,
		Metric:            CorrelationMetric{},
		ShapeWithinLevels: true,
		DrawSelection:     DrawSelectionTerminal,
		Thinning:          5,
	}
}

// applyDefaults fills in zero-valued config fields with their defaults.
func applyDefaults(cfg *Config) {
	if cfg.Metric == nil {
		cfg.Metric = CorrelationMetric{}
	}
	if cfg.DrawSelection == "" {
		cfg.DrawSelection = DrawSelectionTerminal
	}
	if cfg.Thinning == 0 {
		cfg.Thinning = 5
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
}

// validateConfig checks cfg and returns a *ConfigError describing the first
// invalid field. It runs before any sampling.
func validateConfig(cfg *Config) error {
	switch {
	case cfg.AlphaLevel <= 0:
		return &ConfigError{Field: "AlphaLevel", Reason: "must be > 0"}
	case cfg.AlphaShape <= 0:
		return &ConfigError{Field: "AlphaShape", Reason: "must be > 0"}
	case cfg.Var0 <= 0:
		return &ConfigError{Field: "Var0", Reason: "must be > 0"}
	case cfg.Shape0 <= 0:
		return &ConfigError{Field: "Shape0", Reason: "must be > 0"}
	case cfg.Scale0 <= 0:
		return &ConfigError{Field: "Scale0", Reason: "must be > 0"}
	case cfg.SweepsLevel <= 0:
		return &ConfigError{Field: "SweepsLevel", Reason: "must be > 0"}
	case cfg.SweepsShape <= 0:
		return &ConfigError{Field: "SweepsShape", Reason: "must be > 0"}
	case cfg.Bandwidth <= 0:
		return &ConfigError{Field: "Bandwidth", Reason: "must be > 0"}
	case cfg.BurnIn < 0:
		return &ConfigError{Field: "BurnIn", Reason: "must be >= 0"}
	case cfg.Thinning < 1:
		return &ConfigError{Field: "Thinning", Reason: "must be >= 1"}
	case cfg.Workers < 0:
		return &ConfigError{Field: "Workers", Reason: "must be >= 0"}
	case cfg.DrawSelection != DrawSelectionTerminal && cfg.DrawSelection != DrawSelectionSimilarity:
		return &ConfigError{Field: "DrawSelection", Reason: `must be "terminal" or "similarity"`}
	}
	return nil
}

// Diagnostics reports how a run went alongside its partition.
type Diagnostics struct {
	// Seed is the seed the run actually used (the derived one when
	// Config.Seed was 0); re-running with this seed reproduces the result.
	Seed uint64

	// LevelSweeps and ShapeSweeps count completed sweeps per stage
	// (summed over level-cluster scopes for the shape stage).
	LevelSweeps int
	ShapeSweeps int

	// NumericFallbacks counts reassignment steps where raw-space likelihood
	// evaluation would have underflowed and only the log-space path
	// produced a usable distribution. Non-fatal.
	NumericFallbacks int

	// Interrupted reports that the context was cancelled and the result is
	// the best-so-far partition.
	Interrupted bool

	LevelClusters int
	ShapeClusters int
	FinalClusters int
}

// Result contains the output of two-stage clustering.
type Result struct {
	// Final assigns each series its composed (level, shape) cluster ID.
	Final Partition

	// Level and Shape are the per-stage partitions Final was composed from.
	Level Partition
	Shape Partition

	// Summaries describes each final cluster, indexed by final label.
	Summaries []ClusterSummary

	// Heterogeneity is the HM measure of the final configuration over the
	// standardized series; lower means tighter clusters.
	Heterogeneity float64

	Diagnostics Diagnostics
}

// Cluster runs the full pipeline on a rectangular table of series:
// summarize, sample the level partition, refine by shape, aggregate.
// Each element of data is one series; all series must have the same length.
//
// Cancelling ctx stops sampling at the next sweep boundary; the best-so-far
// partition is still aggregated and returned (with Diagnostics.Interrupted
// set) rather than discarded. A shape stage interrupted before its first
// sweep leaves each level cluster whole, so Final degrades to the level
// partition rather than to singletons.
func Cluster(ctx context.Context, data [][]float64, cfg Config) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	stats, err := Summarize(data)
	if err != nil {
		return nil, err
	}

	if cfg.Seed == 0 {
		cfg.Seed = deriveTimeSeed()
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^chainSeedMix))

	levelRes, err := SampleLevelPartition(ctx, stats, cfg, rng)
	if err != nil {
		return nil, err
	}
	shapeRes, err := SampleShapePartition(ctx, stats, levelRes.Partition, cfg, rng)
	if err != nil {
		return nil, err
	}

	final := ComposePartitions(levelRes.Partition, shapeRes.Partition)
	result := &Result{
		Final:         final,
		Level:         levelRes.Partition,
		Shape:         shapeRes.Partition,
		Summaries:     BuildSummaries(stats, final, levelRes.Partition, shapeRes.Partition, shapeRes.Dissimilarities),
		Heterogeneity: Heterogeneity(stats, final),
		Diagnostics: Diagnostics{
			Seed:             cfg.Seed,
			LevelSweeps:      levelRes.SweepsRun,
			ShapeSweeps:      shapeRes.SweepsRun,
			NumericFallbacks: levelRes.NumericFallbacks + shapeRes.NumericFallbacks,
			Interrupted:      levelRes.Interrupted || shapeRes.Interrupted,
			LevelClusters:    levelRes.Partition.NumClusters(),
			ShapeClusters:    shapeRes.Partition.NumClusters(),
			FinalClusters:    final.NumClusters(),
		},
	}
	return result, nil
}
