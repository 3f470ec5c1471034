package tscluster

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"
)

// seriesAtLevel builds a series of length l around the given mean with a
// small fixed-amplitude seasonal wiggle, so all series built this way share
// the same variance.
func seriesAtLevel(mean float64, phase int, l int) []float64 {
	s := make([]float64, l)
	for t := range s {
		s[t] = mean + 0.1*math.Sin(2*math.Pi*float64(t+phase)/12)
	}
	return s
}

func testRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^chainSeedMix))
}

// Two groups of three series with means near 1 and near 10 and equal small
// variance must resolve into exactly those two level clusters.
func TestLevelTwoGroupScenario(t *testing.T) {
	data := [][]float64{
		seriesAtLevel(1.0, 0, 24),
		seriesAtLevel(1.1, 1, 24),
		seriesAtLevel(0.9, 2, 24),
		seriesAtLevel(10.0, 3, 24),
		seriesAtLevel(10.2, 4, 24),
		seriesAtLevel(9.8, 5, 24),
	}
	stats, err := Summarize(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := DefaultConfig()
	cfg.AlphaLevel = 0.01
	cfg.Mean0 = 5
	cfg.Var0 = 25
	cfg.SweepsLevel = 200

	res, err := SampleLevelPartition(context.Background(), stats, cfg, testRNG(7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := Partition{0, 0, 0, 1, 1, 1}
	if !res.Partition.EquivalentTo(want) {
		t.Fatalf("level partition: got %v, want equivalent of %v", res.Partition, want)
	}
	if res.SweepsRun != 200 {
		t.Errorf("SweepsRun: got %d, want 200", res.SweepsRun)
	}
}

// Two identical series must share a cluster for any positive concentration;
// with a small alpha the merged configuration dominates overwhelmingly.
func TestLevelIdenticalSeriesMerge(t *testing.T) {
	s := seriesAtLevel(3, 0, 24)
	data := [][]float64{s, append([]float64(nil), s...)}
	stats, err := Summarize(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := DefaultConfig()
	cfg.AlphaLevel = 1e-4
	cfg.SweepsLevel = 100

	res, err := SampleLevelPartition(context.Background(), stats, cfg, testRNG(21))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Partition[0] != res.Partition[1] {
		t.Errorf("identical series split across clusters: %v", res.Partition)
	}
}

func TestLevelInitialPartition(t *testing.T) {
	data := testPanel(5, 24)
	stats, err := Summarize(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := DefaultConfig()
	cfg.SweepsLevel = 30
	cfg.InitialLevel = Partition{0, 0, 0, 0, 0} // start from one big cluster

	res, err := SampleLevelPartition(context.Background(), stats, cfg, testRNG(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Partition) != 5 {
		t.Fatalf("expected 5 labels, got %d", len(res.Partition))
	}

	cfg.InitialLevel = Partition{0, 1}
	if _, err := SampleLevelPartition(context.Background(), stats, cfg, testRNG(3)); err == nil {
		t.Fatal("expected error for wrong-length initial partition")
	}
}

func TestLevelDeterminism(t *testing.T) {
	data := testPanel(6, 24)
	stats, err := Summarize(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := DefaultConfig()
	cfg.SweepsLevel = 40

	a, err := SampleLevelPartition(context.Background(), stats, cfg, testRNG(17))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := SampleLevelPartition(context.Background(), stats, cfg, testRNG(17))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range a.Partition {
		if a.Partition[i] != b.Partition[i] {
			t.Fatalf("identically seeded runs differ at series %d: %v vs %v",
				i, a.Partition, b.Partition)
		}
	}
}

func TestLevelClusterCountTrace(t *testing.T) {
	data := testPanel(6, 24)
	stats, err := Summarize(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := DefaultConfig()
	cfg.SweepsLevel = 80
	cfg.DrawSelection = DrawSelectionSimilarity
	cfg.BurnIn = 20
	cfg.Thinning = 3

	res, err := SampleLevelPartition(context.Background(), stats, cfg, testRNG(5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Retained sweeps are 20, 23, ..., 77: twenty draws.
	if len(res.ClusterCounts) != 20 {
		t.Fatalf("trace length: got %d, want 20", len(res.ClusterCounts))
	}
	for i, c := range res.ClusterCounts {
		if c < 1 || c > 6 {
			t.Errorf("draw %d: %d clusters outside [1, 6]", i, c)
		}
	}

	// Terminal mode retains no draws and reports no trace.
	cfg.DrawSelection = DrawSelectionTerminal
	res, err = SampleLevelPartition(context.Background(), stats, cfg, testRNG(5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ClusterCounts != nil {
		t.Errorf("terminal mode: expected nil trace, got %v", res.ClusterCounts)
	}
}

func TestLevelInterruptedBeforeStart(t *testing.T) {
	data := testPanel(4, 24)
	stats, err := Summarize(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := DefaultConfig()
	cfg.SweepsLevel = 50

	res, err := SampleLevelPartition(ctx, stats, cfg, testRNG(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Interrupted {
		t.Error("Interrupted: got false, want true")
	}
	if res.SweepsRun != 0 {
		t.Errorf("SweepsRun: got %d, want 0", res.SweepsRun)
	}
	// Best-so-far is the untouched initial state: all singletons.
	if !res.Partition.EquivalentTo(singletonPartition(4)) {
		t.Errorf("expected the initial singleton partition, got %v", res.Partition)
	}
}
