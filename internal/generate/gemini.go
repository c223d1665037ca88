package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"neuralflow/internal/domain"
)

const (
	DefaultModel   = "gemini-3-pro-preview"
	DefaultBaseURL = "https://generativelanguage.googleapis.com"

	defaultTimeout       = 120 * time.Second
	defaultRatePerMinute = 10
	defaultBurst         = 1
	maxResponseBytes     = 4 << 20
)

const systemInstruction = `You are an expert system architect and visual thinker.
Your goal is to transform complex topics into clear, logical, and hierarchical flowcharts (Neural Flows).
Each node should represent a key concept, step, or decision.
Connect them logically to show the flow of information or causation.

Guidelines:
1. Use at least 5-8 nodes for a comprehensive view.
2. Provide a 'summary' explaining the overall logic.
3. Categorize nodes as CONCEPT, ACTION, OUTCOME, PROBLEM, or SOLUTION.
4. Keep node labels concise (1-4 words).
5. Ensure connections (edges) represent valid relationships.`

// Config configures the Gemini client.
type Config struct {
	APIKey        string
	Model         string
	BaseURL       string
	Timeout       time.Duration
	RatePerMinute float64
	Burst         int
	Layout        *CircleLayout
}

// GeminiClient implements Gateway against the Gemini generateContent REST
// endpoint. Requests are rate limited and never retried.
type GeminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	layout     CircleLayout
	log        *zap.Logger
}

// NewGeminiClient validates cfg and fills in defaults.
func NewGeminiClient(cfg Config, log *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	perMinute := cfg.RatePerMinute
	if perMinute <= 0 {
		perMinute = defaultRatePerMinute
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	layout := DefaultLayout
	if cfg.Layout != nil {
		layout = *cfg.Layout
	}

	return &GeminiClient{
		apiKey:     cfg.APIKey,
		model:      model,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(perMinute/60), burst),
		layout:     layout,
		log:        log.Named("gemini"),
	}, nil
}

// ── Wire types ─────────────────────────────────────────────

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string         `json:"responseMimeType"`
	ResponseSchema   map[string]any `json:"responseSchema"`
}

type geminiRequest struct {
	SystemInstruction geminiContent          `json:"systemInstruction"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// responseSchema mirrors graphResponse in the OpenAPI subset Gemini accepts.
func responseSchema() map[string]any {
	types := make([]string, len(domain.NodeTypes))
	for i, t := range domain.NodeTypes {
		types[i] = string(t)
	}
	str := map[string]any{"type": "STRING"}
	return map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"title":   str,
			"summary": str,
			"nodes": map[string]any{
				"type": "ARRAY",
				"items": map[string]any{
					"type": "OBJECT",
					"properties": map[string]any{
						"id":          str,
						"label":       str,
						"description": str,
						"type":        map[string]any{"type": "STRING", "enum": types},
					},
					"required": []string{"id", "label", "description", "type"},
				},
			},
			"edges": map[string]any{
				"type": "ARRAY",
				"items": map[string]any{
					"type": "OBJECT",
					"properties": map[string]any{
						"id":    str,
						"from":  str,
						"to":    str,
						"label": str,
					},
					"required": []string{"id", "from", "to"},
				},
			},
		},
		"required": []string{"title", "summary", "nodes", "edges"},
	}
}

// Generate asks the model for a flow describing prompt.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (domain.Flow, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return domain.Flow{}, ErrEmptyPrompt
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.Flow{}, fmt.Errorf("%w: rate limiter: %v", ErrUpstream, err)
	}

	body, err := json.Marshal(geminiRequest{
		SystemInstruction: geminiContent{Parts: []geminiPart{{Text: systemInstruction}}},
		Contents:          []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   responseSchema(),
		},
	})
	if err != nil {
		return domain.Flow{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.Flow{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Flow{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.Flow{}, fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}
	c.log.Debug("generateContent finished",
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
		zap.Int("bytes", len(raw)),
	)

	var gr geminiResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		if resp.StatusCode != http.StatusOK {
			return domain.Flow{}, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
		}
		return domain.Flow{}, fmt.Errorf("%w: envelope: %v", ErrMalformedResponse, err)
	}
	if gr.Error != nil {
		return domain.Flow{}, fmt.Errorf("%w: %s (%d %s)", ErrUpstream, gr.Error.Message, gr.Error.Code, gr.Error.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Flow{}, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	text := candidateText(gr)
	if text == "" {
		return domain.Flow{}, fmt.Errorf("%w: empty candidate", ErrMalformedResponse)
	}
	return Decode([]byte(text), c.layout)
}

func candidateText(gr geminiResponse) string {
	if len(gr.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range gr.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return strings.TrimSpace(sb.String())
}
