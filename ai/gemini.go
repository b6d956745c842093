// Package ai kapselt den Gemini-Client für Text-Zusammenfassungen.
package ai

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

	"paperwhale/config"
	"paperwhale/retry"
)

// Client ruft die Gemini generateContent-API auf. Der API-Key wird pro
// Aufruf übergeben, da jeder User seinen eigenen Key hinterlegt.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
	retryCfg   retry.Config
}

// NewClient erstellt einen neuen Gemini-Client.
func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.GeminiBaseURL, "/"),
		model:      cfg.GeminiModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		logger:     logger,
		retryCfg:   retry.DefaultConfig(),
	}
}

// Gemini API Request/Response-Typen.

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
	Error      *apiError   `json:"error,omitempty"`
}

type candidate struct {
	Content content `json:"content"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// SummarizeText schickt den Text mit einer festen Instruktion an Gemini und
// gibt die Zusammenfassung zurück. Transiente Fehler werden mit begrenztem
// exponentiellen Backoff wiederholt; nach Erschöpfung kommt der letzte
// Fehler als retry.ExhaustedError zurück.
func (c *Client) SummarizeText(ctx context.Context, apiKey, text string) (string, error) {
	prompt := fmt.Sprintf("Please summarize the following text:\n\n%s", text)

	var summary string
	err := retry.WithBackoff(ctx, c.retryCfg, func(ctx context.Context) error {
		s, err := c.generate(ctx, apiKey, prompt)
		if err != nil {
			c.logger.Warn("Gemini-Aufruf fehlgeschlagen", zap.Error(err))
			return err
		}
		summary = s
		return nil
	})
	if err != nil {
		return "", err
	}
	return summary, nil
}

func (c *Client) generate(ctx context.Context, apiKey, prompt string) (string, error) {
	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("gemini: failed to marshal request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("gemini: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gemini: failed to read response: %w", err)
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("gemini: failed to parse response (status %d): %w", resp.StatusCode, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("gemini: API error (status %d): %s", parsed.Error.Code, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini: unexpected status %d", resp.StatusCode)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: empty response")
	}
	return strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text), nil
}
