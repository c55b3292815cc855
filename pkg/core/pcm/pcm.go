// Package pcm converts between the float sample frames the audio graph works
// with and the 16-bit little-endian PCM payloads carried on the wire.
package pcm

import (
	"encoding/base64"
	"math"
)

// Encode converts normalized float32 samples to 16-bit signed little-endian
// PCM. Samples outside [-1, 1] are clamped before scaling.
func Encode(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}

// EncodeBase64 encodes samples as PCM and returns the standard base64 form
// used for media payloads.
func EncodeBase64(samples []float32) string {
	return base64.StdEncoding.EncodeToString(Encode(samples))
}

// Decode converts 16-bit signed little-endian PCM to normalized float32
// samples. A trailing odd byte is ignored.
func Decode(pcm []byte) []float32 {
	n := len(pcm) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		sample := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		out[i] = float32(sample) / 32768.0
	}
	return out
}

// DecodeBase64 decodes a base64 media payload into float samples.
func DecodeBase64(data string) ([]float32, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}
	return Decode(raw), nil
}

// RMSEnergy computes the root-mean-square energy of 16-bit signed
// little-endian PCM. Returns a value between 0.0 and 1.0.
func RMSEnergy(pcm []byte) float64 {
	samples := len(pcm) / 2
	if samples == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < len(pcm)-1; i += 2 {
		sample := int16(pcm[i]) | int16(pcm[i+1])<<8
		normalized := float64(sample) / 32768.0
		sum += normalized * normalized
	}

	return math.Sqrt(sum / float64(samples))
}

// RMSEnergyFloat computes the root-mean-square energy of float samples.
func RMSEnergyFloat(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// DownmixStereo averages interleaved stereo samples into mono. Input with an
// odd length drops the trailing sample.
func DownmixStereo(samples []float32) []float32 {
	out := make([]float32, len(samples)/2)
	for i := range out {
		out[i] = (samples[i*2] + samples[i*2+1]) / 2
	}
	return out
}
