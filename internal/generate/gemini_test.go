package generate_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neuralflow/internal/generate"
)

func candidateBody(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{
				"content":      map[string]any{"role": "model", "parts": []any{map[string]any{"text": text}}},
				"finishReason": "STOP",
			},
		},
	})
	return string(b)
}

func newClient(t *testing.T, url string) *generate.GeminiClient {
	t.Helper()
	c, err := generate.NewGeminiClient(generate.Config{
		APIKey:        "test-key",
		BaseURL:       url,
		RatePerMinute: 6000,
		Burst:         10,
	}, nil)
	require.NoError(t, err)
	return c
}

func TestGeminiClient_Generate(t *testing.T) {
	var got struct {
		path, key string
		body      map[string]any
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.key = r.Header.Get("x-goog-api-key")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got.body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, candidateBody(pipelineJSON))
	}))
	defer srv.Close()

	flow, err := newClient(t, srv.URL).Generate(context.Background(), "  pipeline  ")
	require.NoError(t, err)

	assert.Equal(t, "/v1beta/models/"+generate.DefaultModel+":generateContent", got.path)
	assert.Equal(t, "test-key", got.key)

	contents := got.body["contents"].([]any)
	part := contents[0].(map[string]any)["parts"].([]any)[0].(map[string]any)
	assert.Equal(t, "pipeline", part["text"])
	cfg := got.body["generationConfig"].(map[string]any)
	assert.Equal(t, "application/json", cfg["responseMimeType"])
	assert.NotNil(t, cfg["responseSchema"])

	assert.Equal(t, "Data Pipeline", flow.Title)
	assert.Len(t, flow.Nodes, 3)
	assert.InDelta(t, 650, flow.Nodes[0].X, 0.001)
}

func TestGeminiClient_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"api error", http.StatusBadRequest, `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`, generate.ErrUpstream},
		{"gateway html", http.StatusBadGateway, `<html>bad gateway</html>`, generate.ErrUpstream},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, generate.ErrMalformedResponse},
		{"garbage candidate", http.StatusOK, candidateBody("Sure! Here is a flow"), generate.ErrMalformedResponse},
		{"schema violation", http.StatusOK, candidateBody(`{"title":"t","summary":"s","edges":[]}`), generate.ErrSchemaViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := newClient(t, srv.URL).Generate(context.Background(), "anything")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGeminiClient_EmptyPromptSkipsRequest(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	defer srv.Close()

	_, err := newClient(t, srv.URL).Generate(context.Background(), "   \n")
	assert.ErrorIs(t, err, generate.ErrEmptyPrompt)
	assert.Zero(t, calls)
}

func TestGeminiClient_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, candidateBody(pipelineJSON))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newClient(t, srv.URL).Generate(ctx, "pipeline")
	assert.ErrorIs(t, err, generate.ErrUpstream)
}

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	_, err := generate.NewGeminiClient(generate.Config{}, nil)
	assert.Error(t, err)
}
