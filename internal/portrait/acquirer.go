package portrait

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/abyss/abyss-agent/internal/logging"
	"github.com/abyss/abyss-agent/internal/script"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	promptTemplate = "A cinematic portrait of %s, %s, professional movie character design, high quality, detailed"

	PlaceholderPath   = "/placeholder.svg"
	PlaceholderWidth  = 300
	PlaceholderHeight = 300

	DefaultConcurrency = 4
)

type Config struct {
	Provider Provider
	// Concurrency bounds in-flight provider requests per batch.
	Concurrency int
	// Interval paces provider requests; zero disables pacing.
	Interval time.Duration
	Logger   *slog.Logger
}

// Acquirer resolves portraits for characters. It never reports failure to
// its callers; failed requests resolve to a placeholder URL.
type Acquirer struct {
	provider    Provider
	concurrency int
	limiter     *rate.Limiter
	logger      *slog.Logger
}

func NewAcquirer(cfg Config) *Acquirer {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	var limiter *rate.Limiter
	if cfg.Interval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.Interval), 2)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Acquirer{
		provider:    cfg.Provider,
		concurrency: concurrency,
		limiter:     limiter,
		logger:      logger,
	}
}

func BuildPrompt(name, description string) string {
	return fmt.Sprintf(promptTemplate, name, description)
}

// PlaceholderURL returns the local fallback image for name.
func PlaceholderURL(name string) string {
	return fmt.Sprintf("%s?height=%d&width=%d&query=%s",
		PlaceholderPath, PlaceholderHeight, PlaceholderWidth,
		queryEscape(name+" character portrait"))
}

// queryEscape escapes spaces as %20 rather than '+'.
func queryEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func Caption(c script.Character) string {
	return c.Name + " - " + c.Description
}

func (a *Acquirer) Acquire(ctx context.Context, name, description string) string {
	if a.provider == nil {
		return a.fallback(name, ErrMissingCredential)
	}

	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return a.fallback(name, err)
		}
	}

	imageURL, err := a.provider.RequestPortrait(ctx, BuildPrompt(name, description))
	if err != nil {
		return a.fallback(name, err)
	}
	return imageURL
}

func (a *Acquirer) fallback(name string, err error) string {
	logging.WithCharacter(a.logger, name).Warn("portrait generation failed, using placeholder", "error", err)
	return PlaceholderURL(name)
}

// AcquireBatch acquires portraits for all characters concurrently and
// returns enriched copies in input order once every request has settled.
func (a *Acquirer) AcquireBatch(ctx context.Context, characters []script.Character) []script.Character {
	out := make([]script.Character, len(characters))

	var eg errgroup.Group
	eg.SetLimit(a.concurrency)

	for i, c := range characters {
		i, c := i, c
		eg.Go(func() error {
			c.ImageURL = a.Acquire(ctx, c.Name, c.Description)
			c.Caption = Caption(c)
			c.IsGenerating = false
			out[i] = c
			return nil
		})
	}

	// Acquire never fails, so Wait only synchronizes.
	_ = eg.Wait()

	return out
}
