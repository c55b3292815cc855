package main

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fluentloop/fluentloop/pkg/core/live"
	"github.com/fluentloop/fluentloop/pkg/history"
)

func TestMicFFmpegArgs(t *testing.T) {
	tests := []struct {
		goos    string
		want    string
		wantErr bool
	}{
		{"darwin", "avfoundation", false},
		{"linux", "pulse", false},
		{"windows", "", true},
	}
	for _, tt := range tests {
		args, err := micFFmpegArgs(tt.goos, 16000)
		if (err != nil) != tt.wantErr {
			t.Errorf("micFFmpegArgs(%q) err = %v", tt.goos, err)
			continue
		}
		if tt.wantErr {
			continue
		}
		joined := strings.Join(args, " ")
		if !strings.Contains(joined, tt.want) {
			t.Errorf("micFFmpegArgs(%q) = %q, want %q present", tt.goos, joined, tt.want)
		}
		if !strings.Contains(joined, "-ar 16000") {
			t.Errorf("micFFmpegArgs(%q) missing sample rate: %q", tt.goos, joined)
		}
	}
}

func TestReviewVocabEmpty(t *testing.T) {
	store := openTestStore(t)
	var out strings.Builder
	if code := reviewVocab(store, strings.NewReader(""), &out); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(out.String(), "No cards due") {
		t.Errorf("output = %q", out.String())
	}
}

func TestReviewVocabUpdatesMastery(t *testing.T) {
	store := openTestStore(t)
	if err := store.AddVocab(history.VocabItem{Word: "serendipity", Definition: "a happy accident"}); err != nil {
		t.Fatalf("AddVocab: %v", err)
	}

	var out strings.Builder
	// One enter to reveal, then a correct answer.
	if code := reviewVocab(store, strings.NewReader("\ny\n"), &out); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(out.String(), "serendipity") {
		t.Errorf("output = %q", out.String())
	}

	due, err := store.DueVocab(time.Now())
	if err != nil {
		t.Fatalf("DueVocab: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("card still due after correct answer: %+v", due)
	}
}

func TestUserTranscript(t *testing.T) {
	turns := []live.TranscriptTurn{
		{Role: live.RoleModel, Text: "Hello there."},
		{Role: live.RoleUser, Text: "mera meeting kal hai"},
		{Role: live.RoleModel, Text: "Go on."},
		{Role: live.RoleUser, Text: "boss ke saath"},
	}
	got := userTranscript(turns)
	want := "mera meeting kal hai boss ke saath"
	if got != want {
		t.Errorf("userTranscript() = %q, want %q", got, want)
	}
	if userTranscript(nil) != "" {
		t.Error("empty transcript should join to empty string")
	}
}

func openTestStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}
