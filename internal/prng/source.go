// Package prng provides the seedable per-cell random stream used by the noise fields.
package prng

import "math"

// multiplier is the odd constant of the multiplicative congruential step.
const multiplier uint32 = 3039177861

// Source is a deterministic pseudorandom stream. It is cheap to construct and
// holds no shared state, so every cell evaluation builds its own.
type Source struct {
	x   uint32
	mix bool
}

// New returns a Source using the plain multiplicative congruential step.
// A zero seed is a fixed point of the step; callers remap it before calling.
func New(seed uint32) *Source {
	return &Source{x: seed}
}

// NewMixed returns a Source with the same state step whose outputs are passed
// through an avalanche finalizer, which hides the weak low-order bits.
func NewMixed(seed uint32) *Source {
	return &Source{x: seed, mix: true}
}

// State returns the current internal state.
func (s *Source) State() uint32 { return s.x }

// Next advances the state and returns the next raw value.
func (s *Source) Next() uint32 {
	s.x *= multiplier
	if s.mix {
		return fmix32(s.x)
	}
	return s.x
}

// Uniform01 returns a value in [0,1]. The divisor is 2^32-1, so a raw value of
// math.MaxUint32 maps to exactly 1; this keeps the field's historical output.
func (s *Source) Uniform01() float64 {
	return float64(s.Next()) / float64(math.MaxUint32)
}

// Uniform returns a value between min and max.
func (s *Source) Uniform(min, max float64) float64 {
	return min + s.Uniform01()*(max-min)
}

// maxPoissonChunk bounds the mean of a single product-of-uniforms draw.
// Beyond roughly 745, e^-mean underflows and the method saturates.
const maxPoissonChunk = 500

// Poisson draws a Poisson distributed count with the given mean using the
// product-of-uniforms method. Means above maxPoissonChunk are drawn as the sum
// of equal chunks, which is Poisson with the full mean; smaller means consume
// draws exactly as a single product would.
func (s *Source) Poisson(mean float64) uint32 {
	if mean <= 0 {
		return 0
	}
	if mean <= maxPoissonChunk {
		return s.poisson(mean)
	}
	chunks := math.Ceil(mean / maxPoissonChunk)
	part := mean / chunks
	var n uint32
	for i := 0; i < int(chunks); i++ {
		n += s.poisson(part)
	}
	return n
}

func (s *Source) poisson(mean float64) uint32 {
	g := math.Exp(-mean)
	var n uint32
	t := s.Uniform01()
	for t > g {
		n++
		t *= s.Uniform01()
	}
	return n
}

// fmix32 is the murmur3 32-bit finalizer.
func fmix32(x uint32) uint32 {
	x ^= x >> 16
	x *= 0x85ebca6b
	x ^= x >> 13
	x *= 0xc2b2ae35
	x ^= x >> 16
	return x
}
