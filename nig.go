package tscluster

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// nigPrior holds the Normal–Inverse-Gamma base measure of the level-stage
// product partition model:
//
//	x | mu, sig2  ~ Normal(mu, sig2)
//	mu | sig2     ~ Normal(mu0, sig2 * var0)
//	sig2          ~ InverseGamma(shape0, scale0)
//
// The Inverse-Gamma component regularizes single-observation clusters: the
// posterior predictive stays proper even when a cluster's empirical variance
// is zero.
type nigPrior struct {
	mu0    float64
	kappa0 float64 // 1 / var0
	shape0 float64
	scale0 float64
}

func newNIGPrior(mean0, var0, shape0, scale0 float64) nigPrior {
	return nigPrior{mu0: mean0, kappa0: 1 / var0, shape0: shape0, scale0: scale0}
}

// logPredictive returns the log posterior-predictive density of x under the
// prior updated with the running moments of a cluster (empty moments give
// the prior predictive). The predictive is a location-scale Student-t with
// the cluster parameters integrated out, evaluated in log space.
func (p nigPrior) logPredictive(x float64, m moments) float64 {
	n := float64(m.n)
	kn := p.kappa0 + n
	mun := (p.kappa0*p.mu0 + n*m.mean) / kn
	an := p.shape0 + n/2
	dev := m.mean - p.mu0
	bn := p.scale0 + 0.5*m.m2 + p.kappa0*n*dev*dev/(2*kn)

	t := distuv.StudentsT{
		Mu:    mun,
		Sigma: math.Sqrt(bn * (kn + 1) / (an * kn)),
		Nu:    2 * an,
	}
	return t.LogProb(x)
}

// moments tracks the running sufficient statistics of one coordinate of one
// cluster: observation count, mean and centered sum of squares. Updates and
// downdates use Welford's recurrences so the sampler can remove a series
// from its cluster and reinsert it elsewhere in O(1).
type moments struct {
	n    int
	mean float64
	m2   float64
}

func (m *moments) add(x float64) {
	m.n++
	delta := x - m.mean
	m.mean += delta / float64(m.n)
	m.m2 += delta * (x - m.mean)
}

func (m *moments) remove(x float64) {
	if m.n <= 1 {
		*m = moments{}
		return
	}
	n := float64(m.n)
	newMean := (n*m.mean - x) / (n - 1)
	m.m2 -= (x - m.mean) * (x - newMean)
	if m.m2 < 0 {
		// Guard against cancellation pushing the sum of squares negative.
		m.m2 = 0
	}
	m.mean = newMean
	m.n--
}
