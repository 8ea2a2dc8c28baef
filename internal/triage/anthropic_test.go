package triage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-ai/internal/config"
	"github.com/spec-kit/ticket-ai/internal/domain"
)

func messageReply(text string) map[string]any {
	return map[string]any{
		"id":            "msg_test",
		"type":          "message",
		"role":          "assistant",
		"model":         "test-model",
		"stop_reason":   "end_turn",
		"stop_sequence": nil,
		"content":       []map[string]any{{"type": "text", "text": text}},
		"usage":         map[string]any{"input_tokens": 10, "output_tokens": 20},
	}
}

func newTestAnalyzer(t *testing.T, handler http.HandlerFunc) Analyzer {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewAnalyzer(config.TriageConfig{
		APIKey:    "test-key",
		Model:     "test-model",
		BaseURL:   srv.URL,
		MaxTokens: 256,
		Timeout:   5 * time.Second,
	})
}

func TestAnthropicAnalyzer_Analyze(t *testing.T) {
	var body map[string]any
	analyzer := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(messageReply("```json\n{\"priority\":\"high\",\"helpfulNotes\":\"Restart the client\",\"relatedSkills\":[\"networking\",\"vpn\"]}\n```"))
	})

	got, err := analyzer.Analyze(context.Background(), Request{Title: "VPN fails", Description: "Cannot connect to corporate VPN"})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityHigh, got.Priority)
	assert.Equal(t, []string{"networking", "vpn"}, got.RelatedSkills)
	assert.False(t, got.Fallback)

	assert.Equal(t, "test-model", body["model"])
	messages, _ := body["messages"].([]any)
	require.Len(t, messages, 1)
	assert.Contains(t, mustJSON(t, messages[0]), "VPN fails")
}

func TestAnthropicAnalyzer_ErrorsFallBack(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"boom"}}`))
		},
		"unparseable reply": func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(messageReply("no idea, sorry"))
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			analyzer := newTestAnalyzer(t, handler)
			got, err := AnalyzeOrFallback(context.Background(), analyzer, Request{Title: "x", Description: "y"})
			assert.Error(t, err)
			assert.Equal(t, Fallback(), got)
		})
	}
}

func TestNewAnalyzer_WithoutKeyIsDisabled(t *testing.T) {
	got, err := AnalyzeOrFallback(context.Background(), NewAnalyzer(config.TriageConfig{}), Request{})
	assert.ErrorIs(t, err, ErrDisabled)
	assert.True(t, got.Fallback)
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}
