package timing

// Range is a half-open interval [Start, End) of absolute sample indices.
type Range struct {
	Start int64
	End   int64
}

// Len returns the number of samples covered by the range.
func (r Range) Len() int64 {
	return r.End - r.Start
}

// Contains reports whether idx falls inside the range.
func (r Range) Contains(idx int64) bool {
	return idx >= r.Start && idx < r.End
}

// Frame locates one detected frame in the sample stream. Ranges are in
// absolute stream time: the causal delay of the correlation and smoothing
// stages has already been compensated. The preamble range covers the K
// useful preamble samples; each payload range covers the K useful samples of
// one OFDM symbol, skipping its cyclic prefix.
type Frame struct {
	// Boundary is the accepted detection index in the delayed time base,
	// before delay compensation. Kept for diagnostics.
	Boundary int64

	// Start is the delay-compensated index of the first useful preamble
	// sample.
	Start int64

	Preamble Range
	Payload  []Range
}

// extractFrame maps an accepted boundary index to the preamble and payload
// sample ranges. delay is the fixed causal delay of the correlation engine
// and boxcar stages for the configured geometry.
func extractFrame(boundary, delay int64, k, cp, n int) Frame {
	start := boundary - delay
	f := Frame{
		Boundary: boundary,
		Start:    start,
		Preamble: Range{Start: start, End: start + int64(k)},
	}
	if n > 0 {
		f.Payload = make([]Range, n)
		for s := 0; s < n; s++ {
			ps := start + int64(k) + int64(s+1)*int64(cp) + int64(s)*int64(k)
			f.Payload[s] = Range{Start: ps, End: ps + int64(k)}
		}
	}
	return f
}
