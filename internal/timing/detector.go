package timing

// Candidate is a possible frame boundary: the index of a zero crossing in
// the first difference of the smoothed metric, together with the raw metric
// value there. Several adjacent candidates per true boundary are normal;
// the refractory window keeps the first one per frame.
type Candidate struct {
	Index  int64
	Metric float64
}

// peakDetector finds sign changes in the first difference of the smoothed
// metric, gated by a minimum raw-metric threshold. It remembers only the
// previous smoothed sample, the previous difference, and the raw metric one
// sample back.
type peakDetector struct {
	theta  float64
	warmup int64 // no candidates before this index

	prevFilt float64
	prevDiff float64
	prevRaw  float64
	seen     int64
}

func newPeakDetector(theta float64, warmup int64) *peakDetector {
	return &peakDetector{theta: theta, warmup: warmup}
}

// push consumes the smoothed and raw metric at index idx. When the
// difference changes sign across idx-1 and the raw metric there clears the
// threshold, it returns a candidate at idx-1.
//
// A non-finite metric fails both comparisons below, so invalid samples
// simply produce no candidate.
func (d *peakDetector) push(filt, raw float64, idx int64) (Candidate, bool) {
	defer func() {
		d.prevFilt = filt
		d.prevRaw = raw
		d.seen++
	}()

	if d.seen == 0 {
		return Candidate{}, false
	}

	diff := filt - d.prevFilt
	prevDiff := d.prevDiff
	d.prevDiff = diff

	if d.seen < 2 {
		return Candidate{}, false
	}
	if idx-1 < d.warmup {
		return Candidate{}, false
	}
	if !(prevDiff*diff <= 0) || !(d.prevRaw > d.theta) {
		return Candidate{}, false
	}
	return Candidate{Index: idx - 1, Metric: d.prevRaw}, true
}

func (d *peakDetector) reset() {
	d.prevFilt = 0
	d.prevDiff = 0
	d.prevRaw = 0
	d.seen = 0
}

// refractory suppresses candidates for one frame period after each accepted
// one, so a cluster of noisy zero crossings yields exactly one boundary per
// transmitted frame.
type refractory struct {
	period     int64
	armedUntil int64
}

func newRefractory(period int64) *refractory {
	return &refractory{period: period}
}

// accept reports whether a candidate at idx falls outside the armed window,
// arming a new window when it does.
func (r *refractory) accept(idx int64) bool {
	if idx < r.armedUntil {
		return false
	}
	r.armedUntil = idx + r.period
	return true
}

func (r *refractory) reset() {
	r.armedUntil = 0
}
