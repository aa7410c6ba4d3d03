package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func completionBody(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func newTestDispatcher(t *testing.T, keys []string, handler http.HandlerFunc) (*Dispatcher, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	d, err := NewDispatcher(keys, "llama3-8b-8192", zap.NewNop())
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	d.baseURL = srv.URL
	return d, srv
}

func TestNewDispatcherRequiresKeys(t *testing.T) {
	if _, err := NewDispatcher(nil, "m", zap.NewNop()); err == nil {
		t.Fatal("expected an error for an empty key pool")
	}
}

func TestNextKeyRoundRobin(t *testing.T) {
	d, err := NewDispatcher([]string{"a", "b", "c"}, "m", zap.NewNop())
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	got := []string{d.nextKey(), d.nextKey(), d.nextKey(), d.nextKey()}
	want := []string{"a", "b", "c", "a"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("key sequence %v, want %v", got, want)
		}
	}
}

func TestAnalyzeEntryAllKeysRateLimited(t *testing.T) {
	var calls atomic.Int64
	keys := []string{"k1", "k2", "k3"}
	d, _ := newTestDispatcher(t, keys, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	a := d.AnalyzeEntry(context.Background(), "today was fine", UserContext{})

	if got := calls.Load(); got != int64(len(keys)) {
		t.Fatalf("made %d attempts, want %d", got, len(keys))
	}
	if got := d.cursor.Load(); got != uint64(len(keys)) {
		t.Fatalf("cursor advanced %d times, want %d", got, len(keys))
	}
	if !reflect.DeepEqual(a, DefaultAnalysis()) {
		t.Fatalf("expected the default analysis, got %+v", a)
	}
}

func TestAnalyzeEntryServerErrorIsFatal(t *testing.T) {
	var calls atomic.Int64
	d, _ := newTestDispatcher(t, []string{"k1", "k2", "k3"}, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	a := d.AnalyzeEntry(context.Background(), "today was fine", UserContext{})

	if got := calls.Load(); got != 1 {
		t.Fatalf("made %d attempts, want 1: server errors must not rotate keys", got)
	}
	if !reflect.DeepEqual(a, DefaultAnalysis()) {
		t.Fatalf("expected the default analysis, got %+v", a)
	}
}

func TestAnalyzeEntryRotatesOnUnauthorized(t *testing.T) {
	var calls atomic.Int64
	d, _ := newTestDispatcher(t, []string{"bad", "good"}, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer good" {
			t.Errorf("second attempt used %q", got)
		}
		w.Write([]byte(completionBody(`{"sentiment":"positive","sentimentScore":0.8,"primaryMood":"happy","pointsEarned":25}`)))
	})

	a := d.AnalyzeEntry(context.Background(), "great day", UserContext{})

	if calls.Load() != 2 {
		t.Fatalf("made %d attempts, want 2", calls.Load())
	}
	if a.Sentiment != "positive" || a.PrimaryMood != "happy" || a.PointsEarned != 25 {
		t.Fatalf("unexpected analysis: %+v", a)
	}
}

func TestAnalyzeEntryRecoversFencedJSON(t *testing.T) {
	content := "Here you go:\n```json\n{\"sentiment\": \"negative\", \"sentimentScore\": -0.4, \"primaryMood\": \"sad\", \"pointsEarned\": 15}\n```\nHope that helps!"
	d, _ := newTestDispatcher(t, []string{"k"}, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionBody(content)))
	})

	a := d.AnalyzeEntry(context.Background(), "rough day", UserContext{})
	if a.Sentiment != "negative" || a.SentimentScore != -0.4 || a.PointsEarned != 15 {
		t.Fatalf("unexpected analysis: %+v", a)
	}
}

func TestAnalyzeEntryMalformedOutputDoesNotRotate(t *testing.T) {
	var calls atomic.Int64
	d, _ := newTestDispatcher(t, []string{"k1", "k2"}, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(completionBody("I feel like chatting instead of emitting JSON today.")))
	})

	a := d.AnalyzeEntry(context.Background(), "hello", UserContext{})

	if calls.Load() != 1 {
		t.Fatalf("made %d attempts, want 1: parse failures must not rotate keys", calls.Load())
	}
	if !reflect.DeepEqual(a, DefaultAnalysis()) {
		t.Fatalf("expected the default analysis, got %+v", a)
	}
}

func TestAnalyzeEntryDefaultsMissingPoints(t *testing.T) {
	d, _ := newTestDispatcher(t, []string{"k"}, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionBody(`{"sentiment":"positive","primaryMood":"calm"}`)))
	})
	a := d.AnalyzeEntry(context.Background(), "quiet evening", UserContext{})
	if a.PointsEarned != 10 {
		t.Fatalf("PointsEarned = %d, want 10 when the model omits it", a.PointsEarned)
	}
}

func TestAnalyzeEntryRequestShape(t *testing.T) {
	d, _ := newTestDispatcher(t, []string{"k"}, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "llama3-8b-8192" {
			t.Errorf("model = %q", req.Model)
		}
		if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_object" {
			t.Errorf("structured dispatch must request a JSON object response")
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
			t.Errorf("expected system + user messages, got %+v", req.Messages)
		}
		w.Write([]byte(completionBody(`{"pointsEarned": 12}`)))
	})
	d.AnalyzeEntry(context.Background(), "checking the wire shape", UserContext{Streak: 2})
}

func TestGenerateInsightsFallsBack(t *testing.T) {
	d, _ := newTestDispatcher(t, []string{"k"}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	in := d.GenerateInsights(context.Background(), UserContext{Username: "mira"}, nil)
	if !reflect.DeepEqual(in, DefaultInsights()) {
		t.Fatalf("expected the default insights, got %+v", in)
	}
}

func TestGenerateWeeklySummary(t *testing.T) {
	var calls atomic.Int64
	d, _ := newTestDispatcher(t, []string{"k"}, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.ResponseFormat != nil {
			t.Error("free-text dispatch must not request a JSON object response")
		}
		w.Write([]byte(completionBody("A gentle week of steady progress.")))
	})

	// Zero entries short-circuit before any network call.
	if got := d.GenerateWeeklySummary(context.Background(), nil); got != noEntriesSummary {
		t.Fatalf("empty week summary = %q", got)
	}
	if calls.Load() != 0 {
		t.Fatalf("empty week made %d calls, want 0", calls.Load())
	}

	entries := []EntrySummary{{CreatedAt: time.Now(), Content: "a fine day", Mood: "calm"}}
	if got := d.GenerateWeeklySummary(context.Background(), entries); got != "A gentle week of steady progress." {
		t.Fatalf("summary = %q", got)
	}
	if calls.Load() != 1 {
		t.Fatalf("made %d calls, want 1", calls.Load())
	}
}

func TestDecodeObject(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{name: "direct object", text: `{"sentiment":"neutral"}`},
		{name: "fenced with language tag", text: "```json\n{\"sentiment\":\"neutral\"}\n```"},
		{name: "fenced without language tag", text: "```\n{\"sentiment\":\"neutral\"}\n```"},
		{name: "fenced with surrounding prose", text: "Sure!\n```json\n{\"sentiment\":\"neutral\"}\n```\nDone."},
		{name: "plain prose", text: "no json here", wantErr: true},
		{name: "fenced garbage", text: "```json\nnot json\n```", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var a Analysis
			err := decodeObject(tc.text, &a)
			if tc.wantErr != (err != nil) {
				t.Fatalf("decodeObject(%q) err = %v, wantErr %v", tc.text, err, tc.wantErr)
			}
			if !tc.wantErr && a.Sentiment != "neutral" {
				t.Fatalf("decoded sentiment %q", a.Sentiment)
			}
		})
	}
}
