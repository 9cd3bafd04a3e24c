package portrait

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.replicate.com"
	DefaultModel   = "black-forest-labs/flux-pro"

	maxErrorBodyBytes = 4096
)

// ReplicateClient requests synchronous predictions from the Replicate
// models API.
type ReplicateClient struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewReplicateClient(baseURL, model, apiKey string, timeout time.Duration, logger *slog.Logger) *ReplicateClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReplicateClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type predictionRequest struct {
	Input predictionInput `json:"input"`
}

type predictionInput struct {
	Prompt string `json:"prompt"`
}

type predictionResponse struct {
	Output json.RawMessage `json:"output"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

func (c *ReplicateClient) RequestPortrait(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", ErrEmptyPrompt
	}
	if c.apiKey == "" {
		return "", ErrMissingCredential
	}

	body, err := json.Marshal(predictionRequest{Input: predictionInput{Prompt: prompt}})
	if err != nil {
		return "", fmt.Errorf("marshal prediction request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/models/%s/predictions", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "wait")

	c.logger.Debug("requesting portrait", "url", url, "prompt_bytes", len(prompt))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return "", &ProviderError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result predictionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode prediction response: %w", err)
	}

	imageURL := extractImageURL(result)
	if imageURL == "" {
		return "", ErrNoImageURL
	}

	c.logger.Info("generated portrait", "image_url", imageURL)
	return imageURL, nil
}

// extractImageURL accepts a string output, the first element of a list
// output, or the prediction's polling URL, in that order.
func extractImageURL(result predictionResponse) string {
	if len(result.Output) > 0 && string(result.Output) != "null" {
		var single string
		if err := json.Unmarshal(result.Output, &single); err == nil {
			return single
		}

		var list []string
		if err := json.Unmarshal(result.Output, &list); err == nil {
			if len(list) > 0 {
				return list[0]
			}
			return ""
		}
	}
	return result.URLs.Get
}
