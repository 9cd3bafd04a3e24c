// Package portrait acquires character portraits from a text-to-image
// provider, falling back to a local placeholder image on any failure.
package portrait

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrMissingCredential = errors.New("image provider credential not configured")
	ErrEmptyPrompt       = errors.New("prompt is required")
	ErrNoImageURL        = errors.New("no image URL returned from provider")
)

// Provider turns a free-text prompt into an image URL.
type Provider interface {
	RequestPortrait(ctx context.Context, prompt string) (string, error)
}

// ProviderError is returned for non-2xx provider responses.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("image provider error: HTTP %d: %s", e.StatusCode, e.Body)
}
