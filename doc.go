// Package tscluster implements two-stage Bayesian non-parametric clustering
// of aligned monthly time series.
//
// Series are grouped first by level and variability using a Dirichlet-process
// product partition model over (mean, variance) pairs with a conjugate
// Normal–Inverse-Gamma base measure, then refined by temporal shape using a
// pairwise-dissimilarity partition model over the standardized series. Both
// stages sample cluster assignments with a Polya-urn Gibbs sampler, so the
// number of clusters is inferred rather than fixed in advance.
//
// Basic usage:
//
//	cfg := tscluster.DefaultConfig()
//	cfg.Seed = 42
//	result, err := tscluster.Cluster(ctx, data, cfg)
//	// result.Final[i] is the cluster ID for series i
//	// result.Summaries[k] describes final cluster k
//
// Cluster IDs are exchangeable labels: they carry no ordering or meaning
// beyond identity, and two runs may produce the same partition under
// different labelings. Use [Partition.EquivalentTo] to compare partitions.
//
// # Stages
//
// The pipeline is Summarize → level sampler → shape sampler → aggregation.
// Each stage is also exported on its own ([Summarize],
// [SampleLevelPartition], [SampleShapePartition], [ComposePartitions]) for
// callers that want to intercept intermediate partitions. With an explicit
// Config.Seed the whole pipeline is deterministic; [RunChains] runs
// independent chains in parallel to check partition stability across seeds.
package tscluster
