package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// MoodStats holds per-label occurrence counters for a user. The label set is
// closed: the analyzer may report moods outside it (e.g. "neutral"), and
// those simply have no counter to bump.
type MoodStats struct {
	Happy   int `db:"mood_happy" json:"happy"`
	Sad     int `db:"mood_sad" json:"sad"`
	Excited int `db:"mood_excited" json:"excited"`
	Calm    int `db:"mood_calm" json:"calm"`
	Anxious int `db:"mood_anxious" json:"anxious"`
	Joyful  int `db:"mood_joyful" json:"joyful"`
	Tired   int `db:"mood_tired" json:"tired"`
}

// Labels returns the counters in declaration order.
func (m MoodStats) Labels() []MoodCount {
	return []MoodCount{
		{"happy", m.Happy},
		{"sad", m.Sad},
		{"excited", m.Excited},
		{"calm", m.Calm},
		{"anxious", m.Anxious},
		{"joyful", m.Joyful},
		{"tired", m.Tired},
	}
}

// MostCommon returns the label with the highest count, preferring earlier
// labels on ties. Falls back to "neutral" when every counter is zero.
func (m MoodStats) MostCommon() string {
	best, label := 0, "neutral"
	for _, c := range m.Labels() {
		if c.Count > best {
			best, label = c.Count, c.Label
		}
	}
	return label
}

type MoodCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type User struct {
	ID           int        `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Bio          string     `db:"bio" json:"bio"`
	Points       int        `db:"points" json:"points"`
	Streak       int        `db:"streak" json:"streak"`
	TotalEntries int        `db:"total_entries" json:"total_entries"`
	LastActive   *time.Time `db:"last_active" json:"last_active,omitempty"`
	IsAdmin      bool       `db:"is_admin" json:"is_admin"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	MoodStats    `json:"mood_stats"`
}

type JournalEntry struct {
	ID             int            `db:"id" json:"id"`
	UserID         int            `db:"user_id" json:"user_id"`
	Title          string         `db:"title" json:"title"`
	Content        string         `db:"content" json:"content"`
	MoodPrimary    string         `db:"mood_primary" json:"mood_primary"`
	MoodIntensity  int            `db:"mood_intensity" json:"mood_intensity"`
	Tags           pq.StringArray `db:"tags" json:"tags"`
	IsPrivate      bool           `db:"is_private" json:"is_private"`
	IsFavorite     bool           `db:"is_favorite" json:"is_favorite"`
	WordCount      int            `db:"word_count" json:"word_count"`
	Sentiment      string         `db:"sentiment" json:"sentiment"`
	SentimentScore float64        `db:"sentiment_score" json:"sentiment_score"`
	Keywords       pq.StringArray `db:"keywords" json:"keywords"`
	Themes         pq.StringArray `db:"themes" json:"themes"`
	Suggestions    pq.StringArray `db:"suggestions" json:"suggestions"`
	PointsEarned   int            `db:"points_earned" json:"points_earned"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// EditableOn reports whether the entry may still be edited or deleted:
// mutations are allowed only on the calendar day the entry was created.
func (e *JournalEntry) EditableOn(now time.Time) bool {
	ey, em, ed := e.CreatedAt.Date()
	ny, nm, nd := now.Date()
	return ey == ny && em == nm && ed == nd
}

// ReadingTime estimates minutes to read at 200 words per minute, minimum 1.
func (e *JournalEntry) ReadingTime() int {
	return (e.WordCount + 199) / 200
}

// CountWords counts whitespace-separated tokens.
func CountWords(s string) int {
	return len(strings.Fields(s))
}

type Affirmation struct {
	ID        int       `db:"id" json:"id"`
	UserID    int       `db:"user_id" json:"user_id"`
	Text      string    `db:"text" json:"text"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type Manifestation struct {
	ID            int        `db:"id" json:"id"`
	UserID        int        `db:"user_id" json:"user_id"`
	Title         string     `db:"title" json:"title"`
	Category      string     `db:"category" json:"category"`
	Priority      string     `db:"priority" json:"priority"`
	Fulfilled     bool       `db:"fulfilled" json:"fulfilled"`
	FulfilledDate *time.Time `db:"fulfilled_date" json:"fulfilled_date,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// ValidMood reports whether the label is an accepted entry mood. "neutral"
// is accepted on entries even though users carry no counter for it.
func ValidMood(label string) bool {
	switch label {
	case "happy", "sad", "excited", "calm", "anxious", "joyful", "tired", "neutral":
		return true
	}
	return false
}

// ValidManifestationCategory reports whether the category is in the fixed set.
func ValidManifestationCategory(c string) bool {
	switch c {
	case "personal", "career", "relationships", "health", "financial", "spiritual", "travel":
		return true
	}
	return false
}

// ValidPriority reports whether the priority is in the fixed set.
func ValidPriority(p string) bool {
	switch p {
	case "low", "medium", "high":
		return true
	}
	return false
}
