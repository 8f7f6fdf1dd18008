// Package modem generates complex-baseband OFDM waveforms: Schmidl-Cox
// preambles, random payload symbols, and whole frames. The receiver chain
// uses it to produce test and demo signals; it is not part of the detection
// pipeline itself.
package modem

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Generator builds frames for a fixed OFDM geometry. Waveforms are
// deterministic for a given seed.
type Generator struct {
	k, cp, n int
	fft      *fourier.CmplxFFT
	rng      *rand.Rand
}

// NewGenerator creates a generator for symbols of length k with cyclic
// prefix cp and n payload symbols per frame. k must be even so the preamble
// splits into two identical halves.
func NewGenerator(k, cp, n int, seed int64) (*Generator, error) {
	if k <= 0 || k%2 != 0 {
		return nil, fmt.Errorf("symbol length must be positive and even, got %d", k)
	}
	if cp <= 0 || cp >= k {
		return nil, fmt.Errorf("cyclic prefix must satisfy 0 < CP < K, got CP=%d K=%d", cp, k)
	}
	if n < 0 {
		return nil, fmt.Errorf("payload symbol count must be non-negative, got %d", n)
	}
	return &Generator{
		k:   k,
		cp:  cp,
		n:   n,
		fft: fourier.NewCmplxFFT(k),
		rng: rand.New(rand.NewSource(seed)),
	}, nil
}

// SymbolLen returns the length of one symbol including its cyclic prefix.
func (g *Generator) SymbolLen() int {
	return g.k + g.cp
}

// FrameLen returns the length of a whole frame: preamble plus n payload
// symbols, each with cyclic prefix.
func (g *Generator) FrameLen() int {
	return (g.n + 1) * g.SymbolLen()
}

// Preamble returns one CP+K preamble symbol. BPSK values occupy only the
// even subcarriers, so the useful K samples consist of two identical halves
// of length K/2.
func (g *Generator) Preamble() []complex128 {
	spectrum := make([]complex128, g.k)
	for i := 2; i < g.k; i += 2 {
		if g.rng.Intn(2) == 0 {
			spectrum[i] = 1
		} else {
			spectrum[i] = -1
		}
	}
	td := g.inverse(spectrum)
	normalizePower(td)
	return addCyclicPrefix(td, g.cp)
}

// PayloadSymbol returns one CP+K payload symbol carrying random QPSK on all
// subcarriers but DC.
func (g *Generator) PayloadSymbol() []complex128 {
	spectrum := make([]complex128, g.k)
	s := math.Sqrt2 / 2
	for i := 1; i < g.k; i++ {
		re, im := s, s
		if g.rng.Intn(2) == 0 {
			re = -re
		}
		if g.rng.Intn(2) == 0 {
			im = -im
		}
		spectrum[i] = complex(re, im)
	}
	td := g.inverse(spectrum)
	normalizePower(td)
	return addCyclicPrefix(td, g.cp)
}

// Frame returns a complete frame: preamble followed by n payload symbols.
func (g *Generator) Frame() []complex128 {
	frame := make([]complex128, 0, g.FrameLen())
	frame = append(frame, g.Preamble()...)
	for i := 0; i < g.n; i++ {
		frame = append(frame, g.PayloadSymbol()...)
	}
	return frame
}

// inverse computes the normalized inverse transform of the subcarrier
// spectrum. fourier's Sequence is unnormalized, so scale by 1/K.
func (g *Generator) inverse(spectrum []complex128) []complex128 {
	td := g.fft.Sequence(nil, spectrum)
	scale := complex(1/float64(g.k), 0)
	for i := range td {
		td[i] *= scale
	}
	return td
}

// addCyclicPrefix copies the last cp samples of the symbol to its front.
func addCyclicPrefix(symbol []complex128, cp int) []complex128 {
	out := make([]complex128, cp+len(symbol))
	copy(out, symbol[len(symbol)-cp:])
	copy(out[cp:], symbol)
	return out
}

// normalizePower scales the symbol to unit average power.
func normalizePower(symbol []complex128) {
	p := Power(symbol)
	if p == 0 {
		return
	}
	s := complex(1/math.Sqrt(p), 0)
	for i := range symbol {
		symbol[i] *= s
	}
}
