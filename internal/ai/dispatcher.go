// Package ai talks to an OpenAI-compatible chat completions service and
// turns its output into entry analyses, journaling insights, and weekly
// summaries. External failures never escape the public operations: every
// one of them degrades to a fixed default payload.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"safespace/internal/models"
)

const (
	defaultBaseURL = "https://api.groq.com/openai/v1/chat/completions"
	attemptTimeout = 30 * time.Second
)

var errKeysExhausted = errors.New("ai: all API keys exhausted")

// Dispatcher sends prompts to the completion API, rotating across a pool of
// API keys. The cursor advances on every attempt, round-robin, so concurrent
// callers interleave across the pool instead of hammering one key.
type Dispatcher struct {
	client  *http.Client
	keys    []string
	cursor  atomic.Uint64
	baseURL string
	model   string
	log     *zap.Logger
}

// NewDispatcher builds a dispatcher over the given ordered key pool. An
// empty pool is an error: callers should treat it as fatal at startup.
func NewDispatcher(keys []string, model string, log *zap.Logger) (*Dispatcher, error) {
	if len(keys) == 0 {
		return nil, errors.New("ai: at least one API key is required")
	}
	return &Dispatcher{
		client:  &http.Client{Timeout: attemptTimeout},
		keys:    keys,
		baseURL: defaultBaseURL,
		model:   model,
		log:     log,
	}, nil
}

func (d *Dispatcher) nextKey() string {
	i := d.cursor.Add(1) - 1
	return d.keys[i%uint64(len(d.keys))]
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// complete runs the retry loop: up to one attempt per key, rotating only on
// unauthorized or rate-limited responses. Any other failure aborts the loop
// immediately, since it is unlikely to be credential-related.
func (d *Dispatcher) complete(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	for attempt := 0; attempt < len(d.keys); attempt++ {
		content, status, err := d.send(ctx, d.nextKey(), prompt, jsonMode)
		if err == nil {
			return content, nil
		}
		if (status == http.StatusUnauthorized || status == http.StatusTooManyRequests) && attempt < len(d.keys)-1 {
			d.log.Warn("completion request rejected, rotating key",
				zap.Int("status", status), zap.Int("attempt", attempt+1))
			continue
		}
		return "", err
	}
	return "", errKeysExhausted
}

func (d *Dispatcher) send(ctx context.Context, key, prompt string, jsonMode bool) (content string, status int, err error) {
	body := chatRequest{
		Model: d.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.7,
		MaxTokens:   1500,
	}
	if jsonMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL, bytes.NewReader(payload))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", resp.StatusCode, fmt.Errorf("ai: completion request failed with status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", resp.StatusCode, err
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", resp.StatusCode, errors.New("ai: empty completion content")
	}
	return parsed.Choices[0].Message.Content, resp.StatusCode, nil
}

// Analysis is the structured result of analyzing one journal entry.
type Analysis struct {
	Sentiment      string   `json:"sentiment"`
	SentimentScore float64  `json:"sentimentScore"`
	PrimaryMood    string   `json:"primaryMood"`
	MoodIntensity  int      `json:"moodIntensity"`
	SecondaryMoods []string `json:"secondaryMoods"`
	Keywords       []string `json:"keywords"`
	Themes         []string `json:"themes"`
	Insights       string   `json:"insights"`
	Suggestions    []string `json:"suggestions"`
	Encouragement  string   `json:"encouragement"`
	PointsEarned   int      `json:"pointsEarned"`
}

// Insights is the structured result of analyzing a user's recent entries.
type Insights struct {
	EmotionalPatterns string   `json:"emotionalPatterns"`
	GrowthAreas       string   `json:"growthAreas"`
	Recommendations   []string `json:"recommendations"`
	Strengths         string   `json:"strengths"`
	TherapeuticNotes  string   `json:"therapeuticNotes"`
}

// UserContext is the slice of a user's state shared with the model.
type UserContext struct {
	Username     string
	Streak       int
	TotalEntries int
	MoodStats    models.MoodStats
}

// EntrySummary is the minimal entry view included in prompts.
type EntrySummary struct {
	CreatedAt time.Time
	Content   string
	Mood      string
}

// AnalyzeEntry requests a structured analysis of one entry. It always
// returns a usable analysis: retry exhaustion, fatal statuses, and
// unparsable model output all map to the default payload.
func (d *Dispatcher) AnalyzeEntry(ctx context.Context, content string, uc UserContext) Analysis {
	text, err := d.complete(ctx, analyzeEntryPrompt(content, uc), true)
	if err != nil {
		d.log.Warn("entry analysis failed, using default", zap.Error(err))
		return DefaultAnalysis()
	}
	var a Analysis
	if err := decodeObject(text, &a); err != nil {
		d.log.Warn("entry analysis unparsable, using default", zap.Error(err))
		return DefaultAnalysis()
	}
	if a.PointsEarned == 0 {
		a.PointsEarned = 10
	}
	return a
}

// GenerateInsights requests a structured cross-entry analysis, falling back
// to the default insights on any failure.
func (d *Dispatcher) GenerateInsights(ctx context.Context, uc UserContext, entries []EntrySummary) Insights {
	text, err := d.complete(ctx, generateInsightsPrompt(uc, entries), true)
	if err != nil {
		d.log.Warn("insight generation failed, using default", zap.Error(err))
		return DefaultInsights()
	}
	var in Insights
	if err := decodeObject(text, &in); err != nil {
		d.log.Warn("insight generation unparsable, using default", zap.Error(err))
		return DefaultInsights()
	}
	return in
}

// GenerateWeeklySummary requests a free-text summary of the week's entries.
// An empty entry set short-circuits to a fixed message without touching the
// external service.
func (d *Dispatcher) GenerateWeeklySummary(ctx context.Context, entries []EntrySummary) string {
	if len(entries) == 0 {
		return noEntriesSummary
	}
	summary, err := d.complete(ctx, weeklySummaryPrompt(entries), false)
	if err != nil {
		d.log.Warn("weekly summary failed, using fallback", zap.Error(err))
		return summaryErrorFallback
	}
	if summary == "" {
		return summaryEmptyFallback
	}
	return summary
}
