// Package timing implements streaming Schmidl-Cox timing synchronization
// for OFDM reception: it consumes a complex baseband sample stream and emits
// the sample ranges of each detected frame, with no prior knowledge of
// arrival time, in a single causal pass with bounded memory.
package timing

import "fmt"

// DefaultThreshold is the default minimum raw metric for a zero crossing to
// count as a boundary candidate. Empirical; tune per deployment via
// Config.Threshold.
const DefaultThreshold = 0.1

// Config holds the immutable OFDM geometry and detection parameters of one
// synchronizer instance.
type Config struct {
	// K is the useful symbol length in samples.
	K int
	// CP is the cyclic prefix length, 0 < CP < K.
	CP int
	// L is the preamble repetition half-length. Zero selects K/2.
	L int
	// N is the number of payload symbols per frame.
	N int
	// Threshold gates boundary candidates on the raw metric, in (0, 1].
	// Zero selects DefaultThreshold.
	Threshold float64
	// Delay overrides the computed delay compensation constant when > 0.
	Delay int
	// ResyncInterval overrides how often the running sums are recomputed
	// exactly. Zero selects DefaultResyncInterval.
	ResyncInterval int
}

// validate fills defaults and rejects impossible geometry. All parameter
// errors surface here, at construction, never during streaming.
func (c *Config) validate() error {
	if c.K <= 0 {
		return fmt.Errorf("symbol length K must be positive, got %d", c.K)
	}
	if c.CP <= 0 || c.CP >= c.K {
		return fmt.Errorf("cyclic prefix length must satisfy 0 < CP < K, got CP=%d K=%d", c.CP, c.K)
	}
	if c.L == 0 {
		c.L = c.K / 2
	}
	if c.L <= 0 {
		return fmt.Errorf("repetition half-length L must be positive, got %d", c.L)
	}
	if c.N < 0 {
		return fmt.Errorf("payload symbol count N must be non-negative, got %d", c.N)
	}
	if c.Threshold == 0 {
		c.Threshold = DefaultThreshold
	}
	if c.Threshold <= 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold must be in (0, 1], got %v", c.Threshold)
	}
	if c.ResyncInterval < 0 {
		return fmt.Errorf("resync interval must be non-negative, got %d", c.ResyncInterval)
	}
	return nil
}

// FramePeriod returns the frame period K + CP + N*(K+CP) in samples.
func (c Config) FramePeriod() int {
	return (c.N + 1) * (c.K + c.CP)
}

// Trace records per-sample stage outputs for calibration and debugging.
// Correctness never depends on it.
type Trace struct {
	Corr     []complex128
	Energy   []float64
	Metric   []float64
	Filtered []float64
}

// Synchronizer runs the full detection pipeline: correlation and energy
// sums, metric normalization, plateau smoothing, zero-crossing peak
// detection, refractory deduplication, and boundary extraction. One instance
// per receive stream; instances share nothing but their Config values.
type Synchronizer struct {
	cfg   Config
	delay int64

	engine *Engine
	box    *boxcar
	det    *peakDetector
	ref    *refractory

	n        int64 // samples ingested
	lastM    float64
	lastFilt float64
	trace    *Trace
}

// New creates a synchronizer for the given configuration. Invalid geometry
// fails here; a constructed instance never errors while streaming.
func New(cfg Config) (*Synchronizer, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("timing: %w", err)
	}

	// The correlation sum at ingest index n spans the window starting at
	// n-(2L-1); the boxcar then settles the plateau's local maximum one
	// sample before its trailing edge. Net: a boundary accepted at index d
	// has its first useful preamble sample at d-(2L-2).
	delay := int64(2*cfg.L - 2)
	if cfg.Delay > 0 {
		delay = int64(cfg.Delay)
	}

	// The correlation sum is only fully populated 2L samples in, and the
	// boxcar another CP after that. Suppressing candidates until then keeps
	// partially filled windows from crossing the threshold on startup
	// transients.
	warmup := int64(2*cfg.L + cfg.CP)

	return &Synchronizer{
		cfg:    cfg,
		delay:  delay,
		engine: NewEngine(cfg.L, cfg.ResyncInterval),
		box:    newBoxcar(cfg.CP, cfg.ResyncInterval),
		det:    newPeakDetector(cfg.Threshold, warmup),
		ref:    newRefractory(int64(cfg.FramePeriod())),
	}, nil
}

// Config returns the configuration the synchronizer was built with,
// defaults filled in.
func (s *Synchronizer) Config() Config {
	return s.cfg
}

// Delay returns the delay compensation constant applied when mapping an
// accepted boundary back to stream time. The default is 2L-2; the cyclic
// prefix absorbs the residual jitter of the peak position.
func (s *Synchronizer) Delay() int {
	return int(s.delay)
}

// Count returns the number of samples ingested since creation or Reset.
func (s *Synchronizer) Count() int64 {
	return s.n
}

// LastMetric returns the raw detection metric at the most recent sample.
// Valid only once more than L samples have been ingested.
func (s *Synchronizer) LastMetric() float64 {
	return s.lastM
}

// LastFiltered returns the smoothed detection metric at the most recent
// sample.
func (s *Synchronizer) LastFiltered() float64 {
	return s.lastFilt
}

// EnableTrace starts recording per-sample stage outputs. Memory grows with
// stream length, so this is for tests and short diagnostic captures only.
func (s *Synchronizer) EnableTrace() *Trace {
	s.trace = &Trace{}
	return s.trace
}

// Feed consumes a chunk of samples in stream order and returns the frames
// whose boundaries were accepted during this chunk. Chunk boundaries carry
// no meaning: feeding one sample at a time yields identical results.
func (s *Synchronizer) Feed(samples []complex128) []Frame {
	var frames []Frame
	for _, sample := range samples {
		if f, ok := s.ingest(sample); ok {
			frames = append(frames, f)
		}
	}
	return frames
}

// ingest advances every stage by one sample.
func (s *Synchronizer) ingest(sample complex128) (Frame, bool) {
	idx := s.n
	s.n++

	corr, energy := s.engine.Ingest(sample)
	m := Metric(corr, energy)
	filt := s.box.push(m)
	s.lastM, s.lastFilt = m, filt

	if s.trace != nil {
		s.trace.Corr = append(s.trace.Corr, corr)
		s.trace.Energy = append(s.trace.Energy, energy)
		s.trace.Metric = append(s.trace.Metric, m)
		s.trace.Filtered = append(s.trace.Filtered, filt)
	}

	cand, ok := s.det.push(filt, m, idx)
	if !ok || !s.ref.accept(cand.Index) {
		return Frame{}, false
	}

	return extractFrame(cand.Index, s.delay, s.cfg.K, s.cfg.CP, s.cfg.N), true
}

// Reset returns the synchronizer to its initial state so the instance can be
// reused for a new stream. The trace, if enabled, is cleared.
func (s *Synchronizer) Reset() {
	s.engine.Reset()
	s.box.reset()
	s.det.reset()
	s.ref.reset()
	s.n = 0
	s.lastM = 0
	s.lastFilt = 0
	if s.trace != nil {
		s.trace.Corr = s.trace.Corr[:0]
		s.trace.Energy = s.trace.Energy[:0]
		s.trace.Metric = s.trace.Metric[:0]
		s.trace.Filtered = s.trace.Filtered[:0]
	}
}
