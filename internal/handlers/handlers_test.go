package handlers

import (
	"reflect"
	"strings"
	"testing"

	"safespace/internal/ai"
)

func TestEntryRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     entryRequest
		wantMsg string
	}{
		{
			name:    "valid entry",
			req:     entryRequest{Title: "A day", Content: "It went well.", Mood: entryMood{Primary: "happy", Intensity: 7}},
			wantMsg: "",
		},
		{
			name:    "whitespace title rejected",
			req:     entryRequest{Title: "   ", Content: "text", Mood: entryMood{Primary: "happy"}},
			wantMsg: "title must be between 1 and 100 characters",
		},
		{
			name:    "overlong content rejected",
			req:     entryRequest{Title: "t", Content: strings.Repeat("a", 10001), Mood: entryMood{Primary: "calm"}},
			wantMsg: "content must be between 1 and 10000 characters",
		},
		{
			name:    "unknown mood rejected",
			req:     entryRequest{Title: "t", Content: "c", Mood: entryMood{Primary: "furious"}},
			wantMsg: "invalid primary mood",
		},
		{
			name:    "neutral mood accepted",
			req:     entryRequest{Title: "t", Content: "c", Mood: entryMood{Primary: "neutral"}},
			wantMsg: "",
		},
		{
			name:    "out of range intensity rejected",
			req:     entryRequest{Title: "t", Content: "c", Mood: entryMood{Primary: "sad", Intensity: 11}},
			wantMsg: "mood intensity must be between 1 and 10",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.req.validate(); got != tt.wantMsg {
				t.Errorf("validate() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestEntryRequestValidateDefaultsIntensity(t *testing.T) {
	req := entryRequest{Title: "t", Content: "c", Mood: entryMood{Primary: "happy"}}
	if msg := req.validate(); msg != "" {
		t.Fatalf("validate() = %q, want ok", msg)
	}
	if req.Mood.Intensity != 5 {
		t.Errorf("intensity defaulted to %d, want 5", req.Mood.Intensity)
	}
}

func TestApplyDetectedMood(t *testing.T) {
	tests := []struct {
		name     string
		mood     entryMood
		analysis ai.Analysis
		want     entryMood
	}{
		{
			name:     "analyzer overrides known mood",
			mood:     entryMood{Primary: "happy", Intensity: 5},
			analysis: ai.Analysis{PrimaryMood: "anxious", MoodIntensity: 8},
			want:     entryMood{Primary: "anxious", Intensity: 8},
		},
		{
			name:     "unknown label keeps submitted mood",
			mood:     entryMood{Primary: "calm", Intensity: 4},
			analysis: ai.Analysis{PrimaryMood: "melancholic", MoodIntensity: 3},
			want:     entryMood{Primary: "calm", Intensity: 3},
		},
		{
			name:     "zero analysis changes nothing",
			mood:     entryMood{Primary: "tired", Intensity: 6},
			analysis: ai.Analysis{},
			want:     entryMood{Primary: "tired", Intensity: 6},
		},
		{
			name:     "out of range intensity ignored",
			mood:     entryMood{Primary: "joyful", Intensity: 2},
			analysis: ai.Analysis{PrimaryMood: "joyful", MoodIntensity: 15},
			want:     entryMood{Primary: "joyful", Intensity: 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := applyDetectedMood(tt.mood, tt.analysis); got != tt.want {
				t.Errorf("applyDetectedMood() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTopCounts(t *testing.T) {
	counts := map[string]int{"work": 3, "family": 5, "health": 3, "travel": 1}
	got := topCounts(counts, 3)
	want := []labelCount{{"family", 5}, {"health", 3}, {"work", 3}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("topCounts() = %+v, want %+v", got, want)
	}
}

func TestTopCountsEmpty(t *testing.T) {
	if got := topCounts(map[string]int{}, 5); len(got) != 0 {
		t.Errorf("topCounts() = %+v, want empty", got)
	}
}

func TestBuildAchievements(t *testing.T) {
	tests := []struct {
		name          string
		entries       int
		streak        int
		points        int
		averagePoints float64
		wantTitles    []string
	}{
		{
			name:       "no entries earns nothing",
			wantTitles: []string{},
		},
		{
			name:       "first entry",
			entries:    1,
			wantTitles: []string{"First Steps"},
		},
		{
			name:          "a full week with a streak",
			entries:       7,
			streak:        7,
			points:        120,
			averagePoints: 17,
			wantTitles:    []string{"First Steps", "Week Warrior", "Streak Master", "Century Club"},
		},
		{
			name:          "everything unlocked",
			entries:       40,
			streak:        31,
			points:        1300,
			averagePoints: 32.5,
			wantTitles:    []string{"First Steps", "Week Warrior", "Streak Master", "Monthly Master", "Century Club", "High Achiever"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildAchievements(tt.entries, tt.streak, tt.points, tt.averagePoints)
			titles := make([]string, 0, len(got))
			for _, a := range got {
				titles = append(titles, a.Title)
			}
			if !reflect.DeepEqual(titles, tt.wantTitles) {
				t.Errorf("buildAchievements() titles = %v, want %v", titles, tt.wantTitles)
			}
		})
	}
}

func TestMotivationalQuote(t *testing.T) {
	tests := []struct {
		name   string
		streak int
		points int
		want   string
	}{
		{"long streak wins over points", 30, 1000, "A month of showing up for yourself. That is real strength. 🌟"},
		{"week streak", 7, 0, "A full week of reflection. Keep the momentum going! 🔥"},
		{"high points without streak", 0, 500, "Your dedication to self-care is inspiring. Keep growing! 🌱"},
		{"new user", 0, 0, "The journey of a thousand miles begins with a single entry. ✨"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := motivationalQuote(tt.streak, tt.points); got != tt.want {
				t.Errorf("motivationalQuote(%d, %d) = %q", tt.streak, tt.points, got)
			}
		})
	}
}

func TestMaxKey(t *testing.T) {
	if got := maxKey(map[string]int{"Monday": 2, "Friday": 4, "Sunday": 4}); got != "Friday" {
		t.Errorf("maxKey() = %q, want Friday", got)
	}
	if got := maxKey(map[string]int{}); got != "" {
		t.Errorf("maxKey() on empty map = %q, want empty", got)
	}
}
