package timing

import (
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/jeongseonghan/ofdm-sync/internal/modem"
)

const (
	testK  = 1024
	testCP = 128
	testL  = 512
	testN  = 5
)

func testConfig() Config {
	return Config{K: testK, CP: testCP, N: testN}
}

// buildStream returns a noisy stream of the given length containing one
// frame per offset, where each offset is the index of the first useful
// preamble sample (the frame's cyclic prefix sits just before it).
func buildStream(t *testing.T, seed int64, snrDB float64, total int, offsets ...int) []complex128 {
	t.Helper()

	gen, err := modem.NewGenerator(testK, testCP, testN, seed)
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(seed + 1))

	var noisePower float64
	stream := make([]complex128, total)
	for _, off := range offsets {
		frame := gen.Frame()
		noisePower = modem.Power(frame) / math.Pow(10, snrDB/10)
		for i, s := range frame {
			idx := off - testCP + i
			if idx < 0 || idx >= total {
				continue
			}
			stream[idx] = s
		}
	}
	for i, n := range modem.WhiteNoise(rng, total, noisePower) {
		stream[i] += n
	}
	return stream
}

func TestKnownOffsetRecovery(t *testing.T) {
	const sto = 1000
	sy, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}

	total := sto + (testN+1)*(testK+testCP) + 4000
	stream := buildStream(t, 10, 20, total, sto)

	frames := sy.Feed(stream)
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}

	f := frames[0]
	if diff := f.Start - sto; diff < -testCP || diff > testCP {
		t.Errorf("recovered start %d, want %d within %d (boundary=%d delay=%d)",
			f.Start, sto, testCP, f.Boundary, sy.Delay())
	}
	t.Logf("start=%d (true %d, error %d)", f.Start, sto, f.Start-sto)

	if f.Preamble.Len() != testK {
		t.Errorf("preamble length %d, want %d", f.Preamble.Len(), testK)
	}
	if len(f.Payload) != testN {
		t.Fatalf("got %d payload ranges, want %d", len(f.Payload), testN)
	}
	for s, r := range f.Payload {
		wantStart := f.Start + testK + int64(s+1)*testCP + int64(s)*testK
		if r.Start != wantStart || r.Len() != testK {
			t.Errorf("payload %d = [%d,%d), want [%d,%d)", s, r.Start, r.End, wantStart, wantStart+testK)
		}
	}
}

func TestDeterminism(t *testing.T) {
	stream := buildStream(t, 11, 15, 20000, 2000, 12000)

	var results [][]Frame
	for i := 0; i < 2; i++ {
		sy, err := New(testConfig())
		if err != nil {
			t.Fatal(err)
		}
		results = append(results, sy.Feed(stream))
	}

	if !reflect.DeepEqual(results[0], results[1]) {
		t.Errorf("runs differ:\n%+v\n%+v", results[0], results[1])
	}
}

func TestChunkSizeInvariance(t *testing.T) {
	stream := buildStream(t, 12, 15, 20000, 2000, 12000)

	sy, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	want := sy.Feed(stream)

	for _, chunk := range []int{1, 7, 999, 4096} {
		sy, err := New(testConfig())
		if err != nil {
			t.Fatal(err)
		}
		var got []Frame
		for i := 0; i < len(stream); i += chunk {
			end := i + chunk
			if end > len(stream) {
				end = len(stream)
			}
			got = append(got, sy.Feed(stream[i:end])...)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("chunk size %d: frames differ from single feed", chunk)
		}
	}
}

func TestSingleDetectionPerFrame(t *testing.T) {
	cfg := testConfig()
	period := cfg.FramePeriod()

	// Four frames separated by noise-only gaps longer than a frame period.
	var offsets []int
	off := 2000
	for i := 0; i < 4; i++ {
		offsets = append(offsets, off)
		off += period + period/2
	}
	total := off + 4000
	stream := buildStream(t, 13, 15, total, offsets...)

	sy, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	frames := sy.Feed(stream)
	if len(frames) != len(offsets) {
		t.Fatalf("got %d frames, want %d", len(frames), len(offsets))
	}

	for i, f := range frames {
		if diff := f.Start - int64(offsets[i]); diff < -testCP || diff > testCP {
			t.Errorf("frame %d start %d, want %d within %d", i, f.Start, offsets[i], testCP)
		}
		if i > 0 {
			if spacing := f.Boundary - frames[i-1].Boundary; spacing < int64(period) {
				t.Errorf("boundaries %d and %d only %d apart, want >= %d", i-1, i, spacing, period)
			}
		}
	}
}

func TestPhaseRotationInsensitive(t *testing.T) {
	const sto = 2000
	stream := buildStream(t, 18, 20, 20000, sto)
	modem.Rotate(stream, math.Pi/5)

	sy, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	frames := sy.Feed(stream)
	if len(frames) != 1 {
		t.Fatalf("got %d frames on rotated stream, want 1", len(frames))
	}
	if diff := frames[0].Start - sto; diff < -testCP || diff > testCP {
		t.Errorf("recovered start %d, want %d within %d", frames[0].Start, sto, testCP)
	}
}

func TestAmplitudeScaleInsensitive(t *testing.T) {
	const sto = 2000
	stream := buildStream(t, 19, 20, 20000, sto)
	modem.Scale(stream, 0.01)

	sy, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	frames := sy.Feed(stream)
	if len(frames) != 1 {
		t.Fatalf("got %d frames on scaled stream, want 1", len(frames))
	}
	if diff := frames[0].Start - sto; diff < -testCP || diff > testCP {
		t.Errorf("recovered start %d, want %d within %d", frames[0].Start, sto, testCP)
	}
}

func TestAllNoiseNoDetections(t *testing.T) {
	rng := rand.New(rand.NewSource(14))
	stream := modem.WhiteNoise(rng, 50000, 1)

	sy, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	if frames := sy.Feed(stream); len(frames) != 0 {
		t.Errorf("got %d frames in pure noise, want 0", len(frames))
	}
}

func TestFrameInDigitalSilence(t *testing.T) {
	cfg := testConfig()
	sy, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	gen, err := modem.NewGenerator(testK, testCP, testN, 20)
	if err != nil {
		t.Fatal(err)
	}

	// One frame in an otherwise all-zero stream, long enough for several
	// refractory windows to expire after the frame ends. The silence after
	// the frame must not echo it as phantom boundaries.
	const sto = 5000
	total := sto + gen.FrameLen() + 4*cfg.FramePeriod()
	stream := modem.Embed(gen.Frame(), sto-testCP, total)

	frames := sy.Feed(stream)
	if len(frames) != 1 {
		t.Fatalf("got %d frames in silence-padded stream, want 1: %+v", len(frames), frames)
	}
	if diff := frames[0].Start - sto; diff < -testCP || diff > testCP {
		t.Errorf("recovered start %d, want %d within %d", frames[0].Start, sto, testCP)
	}
}

func TestSilenceNoDetections(t *testing.T) {
	sy, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	if frames := sy.Feed(make([]complex128, 50000)); len(frames) != 0 {
		t.Errorf("got %d frames in silence, want 0", len(frames))
	}
}

func TestShortInput(t *testing.T) {
	sy, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	if frames := sy.Feed(make([]complex128, testL)); len(frames) != 0 {
		t.Errorf("got %d frames from short input, want 0", len(frames))
	}
}

func TestNonFiniteSamplesRecover(t *testing.T) {
	cfg := testConfig()
	// Longer than the stream, so recovery cannot come from the periodic
	// resynchronization: the engine must flush the bad terms as they leave
	// the window, within 2L of the burst.
	cfg.ResyncInterval = 1 << 20

	// A NaN burst poisons the running sums; a frame arriving afterwards
	// must still be detected.
	const sto = 6000
	total := sto + cfg.FramePeriod() + 4000
	stream := buildStream(t, 15, 20, total, sto)
	nan := math.NaN()
	for i := 100; i < 110; i++ {
		stream[i] = complex(nan, nan)
	}

	sy, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	frames := sy.Feed(stream)
	if len(frames) != 1 {
		t.Fatalf("got %d frames after NaN burst, want 1", len(frames))
	}
	if diff := frames[0].Start - sto; diff < -testCP || diff > testCP {
		t.Errorf("recovered start %d, want %d within %d", frames[0].Start, sto, testCP)
	}
}

func TestResetReuse(t *testing.T) {
	stream := buildStream(t, 16, 15, 20000, 2000)

	sy, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	first := sy.Feed(stream)

	sy.Reset()
	second := sy.Feed(stream)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("frames after reset differ:\n%+v\n%+v", first, second)
	}
}

func TestConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"zero K", Config{K: 0, CP: 16}},
		{"negative K", Config{K: -8, CP: 4}},
		{"zero CP", Config{K: 64, CP: 0}},
		{"CP equals K", Config{K: 64, CP: 64}},
		{"CP exceeds K", Config{K: 64, CP: 65}},
		{"negative L", Config{K: 64, CP: 16, L: -1}},
		{"negative N", Config{K: 64, CP: 16, N: -1}},
		{"threshold too large", Config{K: 64, CP: 16, Threshold: 1.5}},
		{"negative threshold", Config{K: 64, CP: 16, Threshold: -0.1}},
		{"negative resync interval", Config{K: 64, CP: 16, ResyncInterval: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.cfg); err == nil {
				t.Errorf("config %+v accepted, want error", tc.cfg)
			}
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	sy, err := New(Config{K: 64, CP: 16})
	if err != nil {
		t.Fatal(err)
	}
	cfg := sy.Config()
	if cfg.L != 32 {
		t.Errorf("default L = %d, want 32", cfg.L)
	}
	if cfg.Threshold != DefaultThreshold {
		t.Errorf("default threshold = %v, want %v", cfg.Threshold, DefaultThreshold)
	}
	if cfg.FramePeriod() != 80 {
		t.Errorf("frame period = %d, want 80", cfg.FramePeriod())
	}
}

func TestTraceRecordsStages(t *testing.T) {
	sy, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	trace := sy.EnableTrace()

	stream := buildStream(t, 17, 20, 12000, 2000)
	sy.Feed(stream)

	if len(trace.Metric) != len(stream) || len(trace.Filtered) != len(stream) {
		t.Fatalf("trace lengths %d/%d, want %d", len(trace.Metric), len(trace.Filtered), len(stream))
	}

	// The raw metric must top out near 1 inside the preamble region and
	// stay small long before it.
	var peak float64
	for _, m := range trace.Metric {
		if m > peak {
			peak = m
		}
	}
	if peak < 0.8 {
		t.Errorf("peak metric %v, want > 0.8", peak)
	}
}
