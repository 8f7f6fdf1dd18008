package timing

import (
	"math"
	"math/cmplx"
)

// DefaultResyncInterval is how often, in samples, the engine recomputes its
// running sums directly from the circular buffers. The subtract-then-add
// recursion accumulates floating-point error linearly with stream length;
// recomputing every few thousand samples keeps it bounded.
const DefaultResyncInterval = 4096

// Engine maintains the two Schmidl-Cox running sums over a sliding window of
// length L: the complex auto-correlation between each sample and the sample L
// positions earlier, and the received energy.
//
// Both sums use the recursion S(n) = S(n-1) + x[n] - x[n-L]. The pole at 1
// cancels the zero at 1, so each sum is a finite boxcar of width L, which is
// why a circular history of the last L terms is enough state.
type Engine struct {
	l           int
	resyncEvery int

	history []complex128 // last l raw samples
	lagProd []complex128 // last l one-lag products conj(r[n-L])*r[n]
	energy  []float64    // last l energy terms |r[n]|^2

	pos   int // shared write position into the three rings
	count int64
	live  int // ring slots holding a nonzero energy term

	corr      complex128 // moving sum of lagProd
	energySum float64    // moving sum of energy
}

// NewEngine creates an engine with repetition half-length l. resyncEvery <= 0
// selects DefaultResyncInterval.
func NewEngine(l, resyncEvery int) *Engine {
	if resyncEvery <= 0 {
		resyncEvery = DefaultResyncInterval
	}
	return &Engine{
		l:           l,
		resyncEvery: resyncEvery,
		history:     make([]complex128, l),
		lagProd:     make([]complex128, l),
		energy:      make([]float64, l),
	}
}

// Ingest consumes one sample and returns the updated correlation and energy
// sums. Values returned before Ready reports true are undefined and must not
// be interpreted.
func (e *Engine) Ingest(s complex128) (corr complex128, energy float64) {
	// The sample leaving the lag line is r[n-L]; the lag product and energy
	// term leaving the sums are the ones written L samples ago at this slot.
	old := e.history[e.pos]
	oldLag := e.lagProd[e.pos]
	oldEnergy := e.energy[e.pos]

	var v complex128
	if e.count >= int64(e.l) {
		v = cmplx.Conj(old) * s
	}
	p := real(s)*real(s) + imag(s)*imag(s)

	e.corr += v - oldLag
	e.energySum += p - oldEnergy

	if oldEnergy != 0 {
		e.live--
	}
	if p != 0 {
		e.live++
	}

	e.history[e.pos] = s
	e.lagProd[e.pos] = v
	e.energy[e.pos] = p

	e.pos++
	if e.pos == e.l {
		e.pos = 0
	}
	e.count++

	switch {
	case e.live == 0:
		// An all-zero window must yield exactly zero sums. The recursion
		// leaves floating-point residue behind a departed signal, and
		// residue/residue can clear the detection threshold in silence.
		e.corr = 0
		e.energySum = 0
	case e.count%int64(e.resyncEvery) == 0 || !finite(oldLag, oldEnergy):
		// A non-finite term poisons the running sums until it is summed
		// away exactly; resyncing as the term leaves the ring bounds the
		// corruption to the window length instead of the resync interval.
		e.resync()
	}

	return e.corr, e.energySum
}

// Ready reports whether the engine has seen enough history for its outputs
// to be valid.
func (e *Engine) Ready() bool {
	return e.count > int64(e.l)
}

// Count returns the number of samples ingested since creation or Reset.
func (e *Engine) Count() int64 {
	return e.count
}

// Reset returns the engine to its initial state.
func (e *Engine) Reset() {
	for i := range e.history {
		e.history[i] = 0
		e.lagProd[i] = 0
		e.energy[i] = 0
	}
	e.pos = 0
	e.count = 0
	e.live = 0
	e.corr = 0
	e.energySum = 0
}

func finite(c complex128, f float64) bool {
	return !cmplx.IsNaN(c) && !cmplx.IsInf(c) && !math.IsNaN(f) && !math.IsInf(f, 0)
}

// resync recomputes both running sums exactly from the circular buffers.
func (e *Engine) resync() {
	var c complex128
	var p float64
	for i := range e.lagProd {
		c += e.lagProd[i]
		p += e.energy[i]
	}
	e.corr = c
	e.energySum = p
}
