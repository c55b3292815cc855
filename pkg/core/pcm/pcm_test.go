package pcm

import (
	"math"
	"testing"
)

func TestEncode_Clamps(t *testing.T) {
	got := Encode([]float32{2.0, -2.0})

	hi := int16(got[0]) | int16(got[1])<<8
	lo := int16(got[2]) | int16(got[3])<<8
	if hi != 32767 {
		t.Errorf("clamped positive sample = %d, want 32767", hi)
	}
	if lo != -32767 {
		t.Errorf("clamped negative sample = %d, want -32767", lo)
	}
}

func TestEncode_Silence(t *testing.T) {
	got := Encode(make([]float32, 4))
	for i, b := range got {
		if b != 0 {
			t.Fatalf("byte %d = %d, want 0", i, b)
		}
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	in := []float32{0, 0.5, -0.5, 0.25, -1}
	out := Decode(Encode(in))
	if len(out) != len(in) {
		t.Fatalf("length = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if math.Abs(float64(out[i]-in[i])) > 1.0/32000 {
			t.Errorf("sample %d = %f, want ~%f", i, out[i], in[i])
		}
	}
}

func TestDecode_OddTrailingByte(t *testing.T) {
	out := Decode([]byte{0, 0, 0x7f})
	if len(out) != 1 {
		t.Errorf("length = %d, want 1", len(out))
	}
}

func TestDecodeBase64(t *testing.T) {
	in := []float32{0.5, -0.25}
	out, err := DecodeBase64(EncodeBase64(in))
	if err != nil {
		t.Fatalf("DecodeBase64() error = %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("length = %d, want 2", len(out))
	}

	if _, err := DecodeBase64("not base64!!"); err == nil {
		t.Error("expected error for invalid base64")
	}
}

func TestRMSEnergy(t *testing.T) {
	if got := RMSEnergy(nil); got != 0 {
		t.Errorf("RMSEnergy(nil) = %f, want 0", got)
	}
	if got := RMSEnergy(make([]byte, 64)); got != 0 {
		t.Errorf("silence energy = %f, want 0", got)
	}

	// Full-scale square wave has RMS ~1.0.
	loud := Encode([]float32{1, -1, 1, -1})
	if got := RMSEnergy(loud); got < 0.99 || got > 1.0 {
		t.Errorf("full-scale energy = %f, want ~1.0", got)
	}
}

func TestRMSEnergyFloat(t *testing.T) {
	got := RMSEnergyFloat([]float32{0.5, -0.5, 0.5, -0.5})
	if math.Abs(got-0.5) > 1e-6 {
		t.Errorf("energy = %f, want 0.5", got)
	}
}

func TestDownmixStereo(t *testing.T) {
	out := DownmixStereo([]float32{1, 0, 0.5, 0.5, -1, -1})
	want := []float32{0.5, 0.5, -1}
	if len(out) != len(want) {
		t.Fatalf("length = %d, want %d", len(out), len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("sample %d = %f, want %f", i, out[i], want[i])
		}
	}
}

func TestResampler_PassThrough(t *testing.T) {
	r, err := NewResampler(16000, 16000)
	if err != nil {
		t.Fatalf("NewResampler() error = %v", err)
	}
	in := []float32{0.1, 0.2, 0.3}
	out, err := r.Process(in)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("length = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("sample %d = %f, want %f", i, out[i], in[i])
		}
	}
}

func TestResampler_RateConversion(t *testing.T) {
	r, err := NewResampler(48000, 16000)
	if err != nil {
		t.Fatalf("NewResampler() error = %v", err)
	}

	// Push a second of audio through in chunks; output should converge on
	// one third of the input length despite converter latency.
	var total int
	for i := 0; i < 10; i++ {
		out, err := r.Process(make([]float32, 4800))
		if err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		total += len(out)
	}
	if total < 14000 || total > 16100 {
		t.Errorf("total output samples = %d, want ~16000", total)
	}
}
