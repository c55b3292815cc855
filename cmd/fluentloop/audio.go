package main

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"sync"

	"github.com/fluentloop/fluentloop/pkg/core/pcm"
)

const pcmBytesPerSample = 2

// ffmpegSource captures s16le mono PCM from the default microphone via an
// ffmpeg subprocess and exposes it as float32 samples.
type ffmpegSource struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	buf    []byte
}

func newFFmpegSource(sampleRate int) (*ffmpegSource, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, errors.New("ffmpeg is required for mic capture (install ffmpeg and ensure it is in PATH)")
	}
	args, err := micFFmpegArgs(runtime.GOOS, sampleRate)
	if err != nil {
		return nil, err
	}
	cmd := exec.Command("ffmpeg", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open ffmpeg stdout: %w", err)
	}
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg mic capture: %w", err)
	}
	return &ffmpegSource{cmd: cmd, stdout: stdout}, nil
}

func micFFmpegArgs(goos string, sampleRate int) ([]string, error) {
	switch goos {
	case "darwin":
		return []string{
			"-hide_banner", "-loglevel", "error",
			"-f", "avfoundation", "-i", ":0",
			"-ac", "1", "-ar", fmt.Sprintf("%d", sampleRate),
			"-f", "s16le", "-",
		}, nil
	case "linux":
		return []string{
			"-hide_banner", "-loglevel", "error",
			"-f", "pulse", "-i", "default",
			"-ac", "1", "-ar", fmt.Sprintf("%d", sampleRate),
			"-f", "s16le", "-",
		}, nil
	default:
		return nil, fmt.Errorf("mic capture is not implemented for %s; supported platforms: darwin, linux", goos)
	}
}

func (s *ffmpegSource) Read(p []float32) (int, error) {
	if s == nil || s.stdout == nil {
		return 0, io.EOF
	}
	need := len(p) * pcmBytesPerSample
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	n, err := io.ReadFull(s.stdout, s.buf[:need])
	samples := pcm.Decode(s.buf[:n-n%pcmBytesPerSample])
	copy(p, samples)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	return len(samples), err
}

func (s *ffmpegSource) Close() error {
	if s == nil {
		return nil
	}
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
		_ = s.cmd.Wait()
	}
	return nil
}

// ffplaySink plays s16le mono PCM through an ffplay subprocess. ffplay
// drains its stdin in real time, so samples handed to PlayAt are heard in
// arrival order; Flush restarts the process to cut whatever is buffered.
type ffplaySink struct {
	sampleRate int
	mu         sync.Mutex
	cmd        *exec.Cmd
	stdin      io.WriteCloser
}

func newFFplaySink(sampleRate int) (*ffplaySink, error) {
	if _, err := exec.LookPath("ffplay"); err != nil {
		return nil, errors.New("ffplay is required for playback (install ffmpeg/ffplay and ensure it is in PATH)")
	}
	sink := &ffplaySink{sampleRate: sampleRate}
	if err := sink.startLocked(); err != nil {
		return nil, err
	}
	return sink, nil
}

func (s *ffplaySink) startLocked() error {
	s.cmd = exec.Command("ffplay",
		"-nodisp",
		"-loglevel", "error",
		"-f", "s16le",
		"-ar", fmt.Sprintf("%d", s.sampleRate),
		"-ac", "1",
		"-i", "pipe:0",
	)
	stdin, err := s.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open ffplay stdin: %w", err)
	}
	s.cmd.Stdout = io.Discard
	s.cmd.Stderr = io.Discard
	if err := s.cmd.Start(); err != nil {
		return fmt.Errorf("start ffplay: %w", err)
	}
	s.stdin = stdin
	return nil
}

func (s *ffplaySink) PlayAt(samples []float32, startAt float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stdin == nil {
		return errors.New("ffplay stdin is not initialized")
	}
	_, err := s.stdin.Write(pcm.Encode(samples))
	return err
}

func (s *ffplaySink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
		_ = s.cmd.Wait()
	}
	s.stdin = nil
	return s.startLocked()
}

func (s *ffplaySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
		_ = s.cmd.Wait()
	}
	s.stdin = nil
	return nil
}
