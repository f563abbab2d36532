package analysis

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"groceryhelper/internal/config"
)

// ErrAnalyzerUnavailable is returned when the model call fails
var ErrAnalyzerUnavailable = errors.New("analysis service unavailable")

const (
	defaultGeminiModel = "gemini-1.5-flash"
	defaultGeminiBase  = "https://generativelanguage.googleapis.com/v1beta"

	// analyzeTimeout bounds the model call per request
	analyzeTimeout = 60 * time.Second
)

// GeminiConfig holds generative-model configuration
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// NewGeminiConfig creates analyzer configuration from environment variables
func NewGeminiConfig() *GeminiConfig {
	return &GeminiConfig{
		APIKey:  config.GetEnvOrDefault("GEMINI_API_KEY", ""),
		Model:   config.GetEnvOrDefault("GEMINI_MODEL", defaultGeminiModel),
		BaseURL: config.GetEnvOrDefault("GEMINI_BASE_URL", defaultGeminiBase),
	}
}

// Configured reports whether the model credential is present
func (c *GeminiConfig) Configured() bool {
	return c.APIKey != ""
}

// geminiAnalyzer calls the Gemini generateContent endpoint with the
// prompt and the inline label photo
type geminiAnalyzer struct {
	cfg        *GeminiConfig
	httpClient *http.Client
}

// NewGeminiAnalyzer creates the Gemini-backed Analyzer
func NewGeminiAnalyzer(cfg *GeminiConfig) Analyzer {
	return &geminiAnalyzer{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: analyzeTimeout,
		},
	}
}

// generateContent request/response wire types, trimmed to what gets used
type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Analyze sends one generateContent call: the templated prompt and the
// image bytes inline. The image is forwarded as uploaded.
func (a *geminiAnalyzer) Analyze(ctx context.Context, image ImageInput, restrictions string) (string, error) {
	if err := ValidateImage(image); err != nil {
		return "", err
	}

	reqBody := generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: BuildPrompt(restrictions)},
				{InlineData: &inlineData{
					MimeType: image.ContentType,
					Data:     base64.StdEncoding.EncodeToString(image.Data),
				}},
			},
		}},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal analysis request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", a.cfg.BaseURL, a.cfg.Model, a.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build analysis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAnalyzerUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAnalyzerUnavailable, err)
	}

	var result generateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("%w: malformed response", ErrAnalyzerUnavailable)
	}

	if resp.StatusCode != http.StatusOK {
		if result.Error != nil {
			return "", fmt.Errorf("%w: %s", ErrAnalyzerUnavailable, result.Error.Message)
		}
		return "", fmt.Errorf("%w: status %d", ErrAnalyzerUnavailable, resp.StatusCode)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrAnalyzerUnavailable)
	}

	var text string
	for _, p := range result.Candidates[0].Content.Parts {
		text += p.Text
	}
	if text == "" {
		return "", fmt.Errorf("%w: empty response", ErrAnalyzerUnavailable)
	}

	return text, nil
}
