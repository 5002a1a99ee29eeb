package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// HTTPClient talks to an Ollama-compatible generation endpoint.
type HTTPClient struct {
	baseURL    string
	model      string
	apiVersion string
	httpClient *http.Client
	logger     *zap.Logger
}

// HTTPClientConfig configures the capability endpoint.
type HTTPClientConfig struct {
	BaseURL    string
	Model      string
	APIVersion string
	Timeout    time.Duration
	Logger     *zap.Logger
}

// NewHTTPClient constructs the capability client.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &HTTPClient{
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		apiVersion: cfg.APIVersion,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     cfg.Logger,
	}
}

// Model reports the configured model identifier.
func (c *HTTPClient) Model() string { return c.model }

// APIVersion reports the configured api version tag.
func (c *HTTPClient) APIVersion() string { return c.apiVersion }

// GenerateLabContent sends the prompt and returns the raw model output.
func (c *HTTPClient) GenerateLabContent(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, prompt)
}

// InterpretAction asks the model to judge a single gamified action.
func (c *HTTPClient) InterpretAction(ctx context.Context, req ActionRequest) (*ActionInterpretation, error) {
	prompt := fmt.Sprintf(
		"You are guiding a level %d student through the %s experiment %q.\n"+
			"The student performed action %q with equipment %q at location %q. Current score: %d.\n"+
			"Respond with minimal JSON: {\"description\", \"explanation\", \"correct\" (boolean), "+
			"\"safety\" (safe|caution|dangerous), \"observation\", \"achievements\" (array), "+
			"\"hints\" (array), \"nextSuggestion\"}.",
		req.Context.Level, req.Context.Subject, req.Context.Title,
		req.Kind, req.Equipment, req.Target, req.GameState.Score,
	)
	raw, err := c.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	var out ActionInterpretation
	if err := json.Unmarshal([]byte(StripCodeFences(raw)), &out); err != nil {
		return nil, fmt.Errorf("parse action interpretation: %w", err)
	}
	if out.Description == "" {
		return nil, errors.New("interpretation missing description")
	}
	return &out, nil
}

// InterpretMixing asks the model to describe the outcome of mixing two chemicals.
func (c *HTTPClient) InterpretMixing(ctx context.Context, req MixingRequest) (*MixingInterpretation, error) {
	prompt := fmt.Sprintf(
		"In the %s experiment %q (student level %d), the student mixes %q with %q.\n"+
			"Respond with minimal JSON: {\"result\", \"explanation\", \"visualEffect\", "+
			"\"resultingSolution\", \"safety\" (safe|caution|dangerous), \"educational\" (boolean)}.",
		req.Context.Subject, req.Context.Title, req.Context.Level,
		req.ChemicalA, req.ChemicalB,
	)
	raw, err := c.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	var out MixingInterpretation
	if err := json.Unmarshal([]byte(StripCodeFences(raw)), &out); err != nil {
		return nil, fmt.Errorf("parse mixing interpretation: %w", err)
	}
	if out.Result == "" {
		return nil, errors.New("mixing interpretation missing result")
	}
	return &out, nil
}

// GenerateHint asks the model for one contextual hint.
func (c *HTTPClient) GenerateHint(ctx context.Context, req HintRequest) (*HintResult, error) {
	area := req.StrugglingArea
	if area == "" {
		area = "general progress"
	}
	prompt := fmt.Sprintf(
		"A level %d student in the %s experiment %q is struggling with %s. Score so far: %d, "+
			"actions taken: %d.\nRespond with minimal JSON: {\"text\", \"type\" "+
			"(tip|encouragement|direction|safety), \"specificity\"}.",
		req.Context.Level, req.Context.Subject, req.Context.Title, area,
		req.GameState.Score, len(req.GameState.SelectedEquipment),
	)
	raw, err := c.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	var out HintResult
	if err := json.Unmarshal([]byte(StripCodeFences(raw)), &out); err != nil {
		return nil, fmt.Errorf("parse hint: %w", err)
	}
	if out.Text == "" {
		return nil, errors.New("hint missing text")
	}
	return &out, nil
}

// complete performs one generation round-trip and aggregates streamed chunks.
func (c *HTTPClient) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"model":  c.model,
		"prompt": prompt,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("capability returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	full := string(raw)
	if strings.Contains(full, "\n") {
		return aggregateStreamedResponse(full), nil
	}

	var single responseChunk
	if err := json.Unmarshal(raw, &single); err != nil {
		return "", err
	}
	if single.Response == "" {
		return "", errors.New("empty capability response")
	}
	return single.Response, nil
}

type responseChunk struct {
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`
}

// aggregateStreamedResponse concatenates the response fields of
// newline-delimited JSON chunks into one string.
func aggregateStreamedResponse(body string) string {
	var builder strings.Builder
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		var chunk responseChunk
		if err := json.Unmarshal([]byte(trimmed), &chunk); err != nil {
			continue
		}
		builder.WriteString(chunk.Response)
	}
	return builder.String()
}

// StripCodeFences removes a wrapping markdown code fence, if present, so the
// remaining text can be parsed as JSON.
func StripCodeFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
