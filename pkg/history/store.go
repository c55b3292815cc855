// Package history persists session records, vocabulary cards, and derived
// user statistics in a local SQLite database.
package history

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store provides access to the local history database.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	date INTEGER NOT NULL,
	duration_seconds INTEGER NOT NULL,
	mode TEXT NOT NULL,
	topic TEXT NOT NULL DEFAULT '',
	score INTEGER NOT NULL,
	feedback TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_sessions_date ON sessions(date);

CREATE TABLE IF NOT EXISTS vocab (
	id TEXT PRIMARY KEY,
	word TEXT NOT NULL UNIQUE COLLATE NOCASE,
	definition TEXT NOT NULL,
	example_sentence TEXT NOT NULL DEFAULT '',
	context TEXT NOT NULL DEFAULT '',
	mastery_level INTEGER NOT NULL DEFAULT 0,
	next_review INTEGER NOT NULL,
	added_at INTEGER NOT NULL
);
`

// Open opens (creating if needed) the database at path with WAL journaling.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSession inserts one completed session. A missing ID or date is filled
// in.
func (s *Store) SaveSession(rec SessionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Date.IsZero() {
		rec.Date = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO sessions (id, date, duration_seconds, mode, topic, score, feedback)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Date.Unix(), rec.DurationSeconds, rec.Mode, rec.Topic, rec.Score, rec.Feedback)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// RecentSessions returns up to limit sessions, newest first.
func (s *Store) RecentSessions(limit int) ([]SessionRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, date, duration_seconds, mode, topic, score, feedback
		FROM sessions
		ORDER BY date DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		var date int64
		if err := rows.Scan(&rec.ID, &date, &rec.DurationSeconds, &rec.Mode, &rec.Topic, &rec.Score, &rec.Feedback); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		rec.Date = time.Unix(date, 0)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Stats aggregates all sessions relative to now.
func (s *Store) Stats(now time.Time) (UserStats, error) {
	rows, err := s.db.Query(`SELECT date, duration_seconds, score FROM sessions`)
	if err != nil {
		return UserStats{}, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var (
		dates        []time.Time
		totalSeconds int
		totalScore   int
		count        int
	)
	for rows.Next() {
		var date int64
		var duration, score int
		if err := rows.Scan(&date, &duration, &score); err != nil {
			return UserStats{}, fmt.Errorf("scan session: %w", err)
		}
		dates = append(dates, time.Unix(date, 0))
		totalSeconds += duration
		totalScore += score
		count++
	}
	if err := rows.Err(); err != nil {
		return UserStats{}, err
	}
	if count == 0 {
		return UserStats{}, nil
	}

	return UserStats{
		StreakDays:        streakDays(dates, now),
		TotalMinutes:      (totalSeconds + 30) / 60,
		AverageScore:      (totalScore + count/2) / count,
		SessionsCompleted: count,
	}, nil
}

// streakDays counts consecutive practice days ending today or yesterday.
// Multiple sessions on the same day count once; a gap of more than one day
// breaks the streak.
func streakDays(dates []time.Time, now time.Time) int {
	if len(dates) == 0 {
		return 0
	}

	days := make([]time.Time, len(dates))
	for i, d := range dates {
		days[i] = startOfDay(d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	today := startOfDay(now)
	last := days[0]
	if !last.Equal(today) && !last.Equal(today.AddDate(0, 0, -1)) {
		return 0
	}

	streak := 1
	current := last
	for _, day := range days[1:] {
		switch {
		case day.Equal(current):
			continue
		case day.Equal(current.AddDate(0, 0, -1)):
			streak++
			current = day
		default:
			return streak
		}
	}
	return streak
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AddVocab inserts one vocabulary card, skipping words already collected
// regardless of case.
func (s *Store) AddVocab(item VocabItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now()
	}
	if item.NextReview.IsZero() {
		item.NextReview = item.AddedAt
	}
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO vocab (id, word, definition, example_sentence, context, mastery_level, next_review, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, item.ID, item.Word, item.Definition, item.ExampleSentence, item.Context, item.MasteryLevel, item.NextReview.Unix(), item.AddedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert vocab: %w", err)
	}
	return nil
}

// Words returns every collected word, for exclusion in mining prompts.
func (s *Store) Words() ([]string, error) {
	rows, err := s.db.Query(`SELECT word FROM vocab ORDER BY word`)
	if err != nil {
		return nil, fmt.Errorf("query words: %w", err)
	}
	defer rows.Close()

	var words []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("scan word: %w", err)
		}
		words = append(words, w)
	}
	return words, rows.Err()
}

// DueVocab returns cards due for review at now, lowest mastery first.
func (s *Store) DueVocab(now time.Time) ([]VocabItem, error) {
	rows, err := s.db.Query(`
		SELECT id, word, definition, example_sentence, context, mastery_level, next_review, added_at
		FROM vocab
		WHERE next_review <= ?
		ORDER BY mastery_level ASC, word ASC
	`, now.Unix())
	if err != nil {
		return nil, fmt.Errorf("query vocab: %w", err)
	}
	defer rows.Close()

	var items []VocabItem
	for rows.Next() {
		var item VocabItem
		var nextReview, addedAt int64
		if err := rows.Scan(&item.ID, &item.Word, &item.Definition, &item.ExampleSentence, &item.Context, &item.MasteryLevel, &nextReview, &addedAt); err != nil {
			return nil, fmt.Errorf("scan vocab: %w", err)
		}
		item.NextReview = time.Unix(nextReview, 0)
		item.AddedAt = time.Unix(addedAt, 0)
		items = append(items, item)
	}
	return items, rows.Err()
}

// reviewIntervals are the spaced-repetition gaps in days per mastery level.
var reviewIntervals = []int{1, 3, 7, 14, 30}

// UpdateMastery applies one quiz result. A correct answer raises mastery
// (capped at 5) and pushes the next review out along the interval ladder; a
// wrong answer lowers mastery and makes the card due immediately.
func (s *Store) UpdateMastery(id string, correct bool, now time.Time) error {
	row := s.db.QueryRow(`SELECT mastery_level FROM vocab WHERE id = ?`, id)
	var level int
	if err := row.Scan(&level); err != nil {
		return fmt.Errorf("load vocab %s: %w", id, err)
	}

	var next time.Time
	if correct {
		level++
		if level > 5 {
			level = 5
		}
		idx := level - 1
		if idx >= len(reviewIntervals) {
			idx = len(reviewIntervals) - 1
		}
		next = now.AddDate(0, 0, reviewIntervals[idx])
	} else {
		level--
		if level < 0 {
			level = 0
		}
		next = now
	}

	_, err := s.db.Exec(`UPDATE vocab SET mastery_level = ?, next_review = ? WHERE id = ?`,
		level, next.Unix(), id)
	if err != nil {
		return fmt.Errorf("update vocab %s: %w", id, err)
	}
	return nil
}
