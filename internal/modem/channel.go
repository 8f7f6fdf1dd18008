package modem

import (
	"math"
	"math/cmplx"
	"math/rand"
)

// Power returns the average sample power of the signal.
func Power(signal []complex128) float64 {
	if len(signal) == 0 {
		return 0
	}
	var sum float64
	for _, s := range signal {
		sum += real(s)*real(s) + imag(s)*imag(s)
	}
	return sum / float64(len(signal))
}

// WhiteNoise returns n samples of circular complex Gaussian noise with the
// given average power.
func WhiteNoise(rng *rand.Rand, n int, power float64) []complex128 {
	sigma := math.Sqrt(power / 2)
	out := make([]complex128, n)
	for i := range out {
		out[i] = complex(rng.NormFloat64()*sigma, rng.NormFloat64()*sigma)
	}
	return out
}

// AddWhiteNoise adds complex Gaussian noise to the signal in place, sized so
// the measured signal power exceeds the noise power by snrDB decibels.
// It returns the noise power used.
func AddWhiteNoise(rng *rand.Rand, signal []complex128, snrDB float64) float64 {
	p := Power(signal)
	noisePower := p / math.Pow(10, snrDB/10)
	sigma := math.Sqrt(noisePower / 2)
	for i := range signal {
		signal[i] += complex(rng.NormFloat64()*sigma, rng.NormFloat64()*sigma)
	}
	return noisePower
}

// Rotate applies a constant phase rotation, in radians, to the signal in
// place. Timing synchronization must be insensitive to it.
func Rotate(signal []complex128, phase float64) {
	r := cmplx.Exp(complex(0, phase))
	for i := range signal {
		signal[i] *= r
	}
}

// Scale multiplies the signal by a real gain in place.
func Scale(signal []complex128, gain float64) {
	g := complex(gain, 0)
	for i := range signal {
		signal[i] *= g
	}
}

// Embed copies the frame into a zero stream of length total, starting at
// offset. Samples falling outside the stream are dropped.
func Embed(frame []complex128, offset, total int) []complex128 {
	out := make([]complex128, total)
	for i, s := range frame {
		if offset+i < 0 || offset+i >= total {
			continue
		}
		out[offset+i] = s
	}
	return out
}
