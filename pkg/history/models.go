package history

import "time"

// SessionRecord is one completed practice session.
type SessionRecord struct {
	ID              string    `json:"id"`
	Date            time.Time `json:"date"`
	DurationSeconds int       `json:"durationSeconds"`
	Mode            string    `json:"mode"`
	Topic           string    `json:"topic,omitempty"`
	Score           int       `json:"score"`
	Feedback        string    `json:"feedback"`
}

// VocabItem is one collected vocabulary card with its spaced-repetition
// state.
type VocabItem struct {
	ID              string    `json:"id"`
	Word            string    `json:"word"`
	Definition      string    `json:"definition"`
	ExampleSentence string    `json:"exampleSentence"`
	Context         string    `json:"context,omitempty"`
	MasteryLevel    int       `json:"masteryLevel"`
	NextReview      time.Time `json:"nextReviewDate"`
	AddedAt         time.Time `json:"addedAt"`
}

// UserStats aggregates session history for the profile screen.
type UserStats struct {
	StreakDays        int `json:"streakDays"`
	TotalMinutes      int `json:"totalMinutes"`
	AverageScore      int `json:"averageScore"`
	SessionsCompleted int `json:"sessionsCompleted"`
}
