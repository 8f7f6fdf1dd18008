package main

import (
	"math/rand"

	"github.com/jeongseonghan/ofdm-sync/internal/audio"
	"github.com/jeongseonghan/ofdm-sync/internal/modem"
)

// A source produces successive chunks of complex baseband samples. The
// returned slice may be reused by the next call.
type source interface {
	Next() ([]complex128, error)
	Close() error
}

// syntheticSource emits an endless stream of frames separated by noise-only
// gaps, at a configured SNR.
type syntheticSource struct {
	gen        *modem.Generator
	rng        *rand.Rand
	snrDB      float64
	gapSamples int
	chunk      []complex128

	pending []complex128
}

func newSyntheticSource(k, cp, n int, cfg SyntheticConfig) (*syntheticSource, error) {
	gen, err := modem.NewGenerator(k, cp, n, cfg.Seed)
	if err != nil {
		return nil, err
	}
	return &syntheticSource{
		gen:        gen,
		rng:        rand.New(rand.NewSource(cfg.Seed)),
		snrDB:      cfg.SNRdB,
		gapSamples: cfg.GapFrames * gen.FrameLen(),
		chunk:      make([]complex128, cfg.ChunkSize),
	}, nil
}

// Next returns the next chunk, generating a gap-plus-frame period whenever
// the previous one is exhausted.
func (s *syntheticSource) Next() ([]complex128, error) {
	for len(s.pending) < len(s.chunk) {
		s.pending = append(s.pending, s.period()...)
	}
	n := copy(s.chunk, s.pending)
	s.pending = s.pending[:copy(s.pending, s.pending[n:])]
	return s.chunk, nil
}

// period builds one noise gap followed by one noisy frame.
func (s *syntheticSource) period() []complex128 {
	frame := s.gen.Frame()
	noisePower := modem.AddWhiteNoise(s.rng, frame, s.snrDB)
	out := modem.WhiteNoise(s.rng, s.gapSamples, noisePower)
	return append(out, frame...)
}

func (s *syntheticSource) Close() error {
	return nil
}

// audioSource adapts a PortAudio capture stream.
type audioSource struct {
	cap *audio.Capture
}

func newAudioSource(cfg AudioConfig) (*audioSource, error) {
	c := audio.NewCapture(cfg.SampleRate, cfg.FramesPerBuffer)
	if err := c.Open(); err != nil {
		return nil, err
	}
	if err := c.Start(); err != nil {
		c.Close()
		return nil, err
	}
	return &audioSource{cap: c}, nil
}

func (a *audioSource) Next() ([]complex128, error) {
	return a.cap.Read()
}

func (a *audioSource) Close() error {
	return a.cap.Close()
}
