package analyzer

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/credit-ledger/internal/config"
)

const validDiagnosis = `{"overallAssessment":"Vidriera ordenada pero poco visible.",
"strengths":["Buena iluminación"],"issues":["Cartel ilegible"],
"priorityFixes":["Agrandar el cartel"],"recommendations":["Mover el producto estrella al centro"],
"suggestedSignageText":"Entrá y descubrí la nueva temporada"}`

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func completion(content string) []byte {
	body, _ := json.Marshal(map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return body
}

func newTestAnalyzer(t *testing.T, handler http.HandlerFunc) *Analyzer {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.Analyzer{
		APIKey:     "sk-test",
		BaseURL:    srv.URL + "/v1",
		Model:      "gpt-4o-mini",
		Timeout:    5 * time.Second,
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
	}, newNoopLogger())
}

func TestAnalyze_Success(t *testing.T) {
	a := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "data:image/png;base64,")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(completion("Acá está:\n" + validDiagnosis))
	})

	d, err := a.Analyze(context.Background(), []byte("png"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "Vidriera ordenada pero poco visible.", d.OverallAssessment)
	assert.Len(t, d.Strengths, 1)
}

func TestAnalyze_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	a := newTestAnalyzer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			return
		}
		_, _ = w.Write(completion(validDiagnosis))
	})

	_, err := a.Analyze(context.Background(), []byte("jpg"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestAnalyze_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	a := newTestAnalyzer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit","type":"rate_limit"}}`))
	})

	_, err := a.Analyze(context.Background(), []byte("jpg"), "")
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestAnalyze_NoRetryOnAuthError(t *testing.T) {
	var calls atomic.Int32
	a := newTestAnalyzer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key","type":"invalid_request_error"}}`))
	})

	_, err := a.Analyze(context.Background(), []byte("jpg"), "image/jpeg")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestParse(t *testing.T) {
	a := New(config.Analyzer{}, newNoopLogger())

	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{name: "valid", content: validDiagnosis},
		{name: "no json", content: "lo siento", wantErr: true},
		{name: "missing assessment", content: `{"strengths":[]}`, wantErr: true},
		{
			name:    "too many strengths",
			content: strings.Replace(validDiagnosis, `["Buena iluminación"]`, `["a","b","c","d"]`, 1),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.parse(tt.content)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidResponse)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
