package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

const systemPrompt = "You are Dr. Luna, a compassionate AI therapist and journaling assistant. " +
	"You always respond in the format requested by the user. If the user requests JSON, " +
	"you MUST ONLY output a valid JSON object with no extra text or markdown."

const (
	noEntriesSummary = "No entries were made this week. Remember, every small step on your journey counts. " +
		"We're here when you're ready to write again. 🌸"
	summaryEmptyFallback = "I had a moment of reflection and couldn't summarize the week. " +
		"What was the most memorable part of it for you? 💖"
	summaryErrorFallback = "It seems my thoughts got a bit tangled summarizing the week. " +
		"What stood out most to you? Let's talk about it. ✨"
)

func analyzeEntryPrompt(content string, uc UserContext) string {
	moodStats, _ := json.Marshal(uc.MoodStats)
	return fmt.Sprintf(`Analyze the following journal entry with the empathy of a trained therapist.
Journal Entry: %q

User Context:
- Writing Streak: %d days
- Mood Patterns: %s

Provide a JSON response with the following structure:
{
  "sentiment": "positive/negative/neutral",
  "sentimentScore": -1.0 to 1.0,
  "primaryMood": "happy/sad/excited/calm/anxious/joyful/tired/neutral",
  "moodIntensity": 1-10,
  "secondaryMoods": ["mood1", "mood2"],
  "keywords": ["keyword1", "keyword2"],
  "themes": ["theme1", "theme2"],
  "insights": "Therapeutic analysis of emotional patterns.",
  "suggestions": ["Actionable suggestion 1.", "Actionable suggestion 2."],
  "encouragement": "A supportive, therapeutic message.",
  "pointsEarned": 10-50
}`, content, uc.Streak, moodStats)
}

func generateInsightsPrompt(uc UserContext, entries []EntrySummary) string {
	moodStats, _ := json.Marshal(uc.MoodStats)
	return fmt.Sprintf(`Analyze this user's journaling patterns and provide therapeutic insights.

User Profile:
- Username: %s
- Writing Streak: %d days
- Total Entries: %d
- Mood Stats: %s

Recent Entry Summaries:
%s

Provide a JSON response with the following structure:
{
  "emotionalPatterns": "Therapeutic analysis of emotional trends over time.",
  "growthAreas": "Key areas for personal growth and focus.",
  "recommendations": ["Recommendation 1.", "Recommendation 2."],
  "strengths": "Recognized strengths and positive coping mechanisms.",
  "therapeuticNotes": "Professional therapeutic observations."
}`, uc.Username, uc.Streak, uc.TotalEntries, moodStats, entriesText(entries, 150, false))
}

func weeklySummaryPrompt(entries []EntrySummary) string {
	return fmt.Sprintf(`Provide a therapeutic weekly summary based on these journal entries.

Weekly Entries:
%s

Please provide a compassionate, therapeutic summary of the week that includes:
- The overall emotional journey and mood of the week.
- Key themes, patterns, or recurring thoughts.
- Moments of progress, strength, or growth you noticed.
- A warm, encouraging message for the week ahead.

Keep the tone supportive, insightful, and therapeutic.`, entriesText(entries, 200, true))
}

// entriesText renders one prompt line per entry, trimming content to at
// most maxLen characters.
func entriesText(entries []EntrySummary, maxLen int, withMood bool) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		content := e.Content
		// Truncate on rune boundaries so multi-byte characters at the cut
		// point do not leave invalid UTF-8 in the prompt.
		if runes := []rune(content); len(runes) > maxLen {
			content = string(runes[:maxLen]) + "..."
		}
		line := fmt.Sprintf("On %s: %q", e.CreatedAt.Format("2006-01-02"), content)
		if withMood {
			mood := e.Mood
			if mood == "" {
				mood = "N/A"
			}
			line += fmt.Sprintf(" (Mood: %s)", mood)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// DefaultAnalysis is the deterministic payload substituted when the
// external service is unavailable or returns something unusable.
func DefaultAnalysis() Analysis {
	return Analysis{
		Sentiment:      "neutral",
		SentimentScore: 0,
		PrimaryMood:    "neutral",
		Insights:       "I'm here to support your journaling journey! 🌸",
		Suggestions:    []string{"Try reflecting on a challenge you overcame recently."},
		Encouragement:  "🌸 Every entry is a step forward! Keep writing, you're doing great. ✨",
		PointsEarned:   10,
	}
}

// DefaultInsights is the generic, non-personalized insight payload.
func DefaultInsights() Insights {
	return Insights{
		EmotionalPatterns: "Your commitment to self-reflection is a wonderful strength!",
		GrowthAreas:       "Continue to explore the connections between your thoughts and feelings.",
		Recommendations:   []string{"Try a new writing prompt to spark different insights."},
		Strengths:         "Consistency and willingness to be vulnerable.",
		TherapeuticNotes:  "User is actively engaged in self-reflection.",
	}
}
