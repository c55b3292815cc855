package pcm

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resampler converts a mono float sample stream between two sample rates.
// It keeps converter state across calls so chunk boundaries stay artifact
// free. Not safe for concurrent use.
type Resampler struct {
	inRate  int
	outRate int
	conv    resampling.Resampler
}

// NewResampler creates a mono resampler from inRate to outRate. When the
// rates match, Process is a pass-through.
func NewResampler(inRate, outRate int) (*Resampler, error) {
	r := &Resampler{inRate: inRate, outRate: outRate}
	if inRate == outRate {
		return r, nil
	}

	conv, err := resampling.New(&resampling.Config{
		InputRate:  float64(inRate),
		OutputRate: float64(outRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("create resampler %d->%d: %w", inRate, outRate, err)
	}
	r.conv = conv
	return r, nil
}

// Process resamples one chunk of samples. The output length follows the rate
// ratio and the converter's internal latency.
func (r *Resampler) Process(samples []float32) ([]float32, error) {
	if r.conv == nil {
		out := make([]float32, len(samples))
		copy(out, samples)
		return out, nil
	}

	input := make([]float64, len(samples))
	for i, s := range samples {
		input[i] = float64(s)
	}
	output, err := r.conv.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resample %d->%d: %w", r.inRate, r.outRate, err)
	}
	out := make([]float32, len(output))
	for i, s := range output {
		out[i] = float32(s)
	}
	return out, nil
}
