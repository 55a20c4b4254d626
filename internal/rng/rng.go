// Package rng provides the explicit random stream threaded through every
// operation that consumes randomness. The same seed and the same call
// sequence reproduce the same trajectory.
package rng

import (
	"math"
	"math/rand/v2"
)

// streamSalt decorrelates the second PCG word from the seed.
const streamSalt = 0x9e3779b97f4a7c15

// RNG is a seeded pseudo-random stream. It is not safe for concurrent use;
// the simulation is single-threaded and owns exactly one stream.
type RNG struct {
	seed  uint64
	src   *rand.PCG
	r     *rand.Rand
	draws uint64
}

// New returns a stream for the given seed.
func New(seed uint64) *RNG {
	src := rand.NewPCG(seed, seed^streamSalt)
	return &RNG{seed: seed, src: src, r: rand.New(src)}
}

// Seed returns the seed the stream was created with.
func (g *RNG) Seed() uint64 { return g.seed }

// Draws returns the number of primitive draws consumed so far.
func (g *RNG) Draws() uint64 { return g.draws }

// Uniform returns a value in [0,1).
func (g *RNG) Uniform() float64 {
	g.draws++
	return g.r.Float64()
}

// UniformOpen returns a value in (0,1).
func (g *RNG) UniformOpen() float64 {
	for {
		u := g.Uniform()
		if u > 0 {
			return u
		}
	}
}

// Intn returns a value in [0,n). It panics if n <= 0.
func (g *RNG) Intn(n int) int {
	g.draws++
	return g.r.IntN(n)
}

// Sign returns +1 or -1 with equal probability.
func (g *RNG) Sign() int {
	if g.Intn(2) == 0 {
		return 1
	}
	return -1
}

// Gauss returns a standard normal deviate.
func (g *RNG) Gauss() float64 {
	g.draws++
	return g.r.NormFloat64()
}

// Poisson draws from a Poisson distribution with the given mean by walking
// outward from the mode: starting at floor(mean), it alternately extends
// the low and high tails, subtracting each probability mass from one
// uniform draw until the draw is exhausted. This enumeration order is part
// of the observable behavior and must not be replaced by CDF inversion.
func (g *RNG) Poisson(mean float64) int {
	if mean <= 0 || math.IsNaN(mean) {
		return 0
	}
	return poissonWalk(mean, g.Uniform())
}

func poissonWalk(lambda, p float64) int {
	i := int(lambda)
	lg, _ := math.Lgamma(float64(i) + 1)
	pctr := math.Exp(-lambda + float64(i)*math.Log(lambda) - lg)
	if p < pctr {
		return i
	}

	lo, hi := i, i
	plo, phi := pctr, pctr
	p -= pctr
	invLambda := 1 / lambda

	for p > 0 {
		if lo > 0 {
			plo *= float64(lo) * invLambda
			lo--
			if p < plo {
				return lo
			}
			p -= plo
		}
		hi++
		phi = phi * lambda / float64(hi)
		if p < phi {
			return hi
		}
		p -= phi
		// mass below float resolution on both sides
		if lo == 0 && phi == 0 {
			break
		}
	}
	return hi
}
