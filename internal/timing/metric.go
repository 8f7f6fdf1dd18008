package timing

import "math"

// Metric converts a correlation/energy pair into the normalized detection
// statistic M = |P|^2 / R^2. Zero energy forces the metric to zero rather
// than dividing; non-finite inputs propagate as non-finite metric values.
func Metric(corr complex128, energy float64) float64 {
	if energy == 0 {
		return 0
	}
	p := real(corr)*real(corr) + imag(corr)*imag(corr)
	return p / (energy * energy)
}

// MetricMean returns the theoretical mean of the detection metric at the
// ideal timing offset under AWGN, as a function of the noise-to-signal power
// ratio nsr = sigma_n^2 / sigma_s^2. With no noise the metric approaches 1.
//
// Used to calibrate the detection threshold; it is not a runtime invariant.
func MetricMean(nsr float64) float64 {
	d := 1 + nsr
	return 1 / (d * d)
}

// MetricSigma returns the theoretical standard deviation of the detection
// metric at the ideal timing offset for a correlation window of length l,
// with nsr as in MetricMean.
func MetricSigma(nsr float64, l int) float64 {
	mu := MetricMean(nsr)
	d := 1 + nsr
	v := 2 * ((1+mu)*nsr + (1+2*mu)*nsr*nsr) / (float64(l) * d * d * d * d)
	return math.Sqrt(v)
}

// boxcar is a causal moving average of fixed width. It reuses the engine's
// add-new/drop-old window over a circular buffer, with the same periodic
// exact recomputation to bound drift.
type boxcar struct {
	w           int
	resyncEvery int

	buf   []float64
	pos   int
	count int64
	sum   float64
}

func newBoxcar(w, resyncEvery int) *boxcar {
	if resyncEvery <= 0 {
		resyncEvery = DefaultResyncInterval
	}
	return &boxcar{
		w:           w,
		resyncEvery: resyncEvery,
		buf:         make([]float64, w),
	}
}

// push consumes one value and returns the average over the last w values,
// with zeros standing in while the window fills.
func (b *boxcar) push(x float64) float64 {
	old := b.buf[b.pos]
	b.sum += x - old
	b.buf[b.pos] = x

	b.pos++
	if b.pos == b.w {
		b.pos = 0
	}
	b.count++

	// As in the engine, a departing non-finite term forces an exact
	// recomputation so the sum recovers within one window width.
	if b.count%int64(b.resyncEvery) == 0 || math.IsNaN(old) || math.IsInf(old, 0) {
		var s float64
		for _, v := range b.buf {
			s += v
		}
		b.sum = s
	}

	return b.sum / float64(b.w)
}

func (b *boxcar) reset() {
	for i := range b.buf {
		b.buf[i] = 0
	}
	b.pos = 0
	b.count = 0
	b.sum = 0
}
