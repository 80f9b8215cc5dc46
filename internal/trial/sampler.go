package trial

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Sampler draws binomial event counts for one replication.
type Sampler interface {
	Binomial(trials, p float64) float64
}

// binomialSampler draws from gonum's binomial distribution over a private
// random stream.
type binomialSampler struct {
	src rand.Source
}

// NewStream returns the sampler for one replication. Replication i of the
// scenario seeded with seed always reads the PCG stream (seed, i), which
// keeps results independent of how replications are split across workers.
func NewStream(seed uint64, replication int) Sampler {
	return binomialSampler{src: rand.NewPCG(seed, uint64(replication))}
}

func (s binomialSampler) Binomial(trials, p float64) float64 {
	if trials <= 0 {
		return 0
	}
	return distuv.Binomial{N: trials, P: p, Src: s.src}.Rand()
}

// normalQuantile is the standard-normal inverse CDF.
func normalQuantile(p float64) float64 {
	return distuv.UnitNormal.Quantile(p)
}
