// Package casting turns submitted script text into batches of detected
// characters with portraits, and tracks which batch is current.
package casting

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/abyss/abyss-agent/internal/logging"
	"github.com/abyss/abyss-agent/internal/script"
)

const (
	DefaultBatchTTL      = 30 * time.Minute
	batchCleanupInterval = 1 * time.Hour
)

// PortraitAcquirer fills in ImageURL and Caption for each character.
type PortraitAcquirer interface {
	AcquireBatch(ctx context.Context, characters []script.Character) []script.Character
}

type Batch struct {
	ID         int64              `json:"batch_id"`
	Characters []script.Character `json:"characters"`
	Superseded bool               `json:"superseded"`
	CreatedAt  time.Time          `json:"created_at"`
}

type CastingService interface {
	Submit(ctx context.Context, text string) (*Batch, error)
	Current() []script.Character
	Batch(id int64) (*Batch, bool)
	Lookup(characterID string) (script.Character, bool)
}

type Service struct {
	acquirer PortraitAcquirer
	maxBytes int
	batches  *cache.Cache
	logger   *slog.Logger

	seq     atomic.Int64
	mu      sync.RWMutex
	current *Batch
}

// NewService creates a Service. maxBytes <= 0 disables the size limit and
// ttl <= 0 uses DefaultBatchTTL.
func NewService(acquirer PortraitAcquirer, maxBytes int, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultBatchTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		acquirer: acquirer,
		maxBytes: maxBytes,
		batches:  cache.New(ttl, batchCleanupInterval),
		logger:   logger,
	}
}

// Submit detects characters in text and acquires their portraits. The
// result becomes current unless a newer submission started meanwhile or
// ctx was cancelled before it finished.
func (s *Service) Submit(ctx context.Context, text string) (*Batch, error) {
	if err := script.Validate(text, s.maxBytes); err != nil {
		return nil, err
	}

	id := s.seq.Add(1)
	logger := logging.WithBatchID(s.logger, id)

	characters := script.Classify(text)
	logger.Info("characters detected", "count", len(characters))

	if len(characters) > 0 && s.acquirer != nil {
		characters = s.acquirer.AcquireBatch(ctx, characters)
	}

	batch := &Batch{
		ID:         id,
		Characters: characters,
		CreatedAt:  time.Now(),
	}

	// A cancelled context means portraits may have fallen back to
	// placeholders, so the batch must not replace the current set.
	cancelled := ctx.Err() != nil

	s.mu.Lock()
	if cancelled || id != s.seq.Load() {
		batch.Superseded = true
	} else {
		s.current = batch
	}
	s.mu.Unlock()

	s.batches.Set(batchKey(id), batch, cache.DefaultExpiration)

	switch {
	case cancelled:
		logger.Warn("batch not published, submission cancelled", "error", ctx.Err())
	case batch.Superseded:
		logger.Info("batch superseded by newer submission", "latest_batch_id", s.seq.Load())
	default:
		logger.Info("batch published", "count", len(characters))
	}

	return copyBatch(batch), nil
}

// Current returns the characters of the latest published batch.
func (s *Service) Current() []script.Character {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return []script.Character{}
	}
	return copyCharacters(s.current.Characters)
}

func (s *Service) Batch(id int64) (*Batch, bool) {
	v, ok := s.batches.Get(batchKey(id))
	if !ok {
		return nil, false
	}
	return copyBatch(v.(*Batch)), true
}

// Lookup finds a character in the current batch by id.
func (s *Service) Lookup(characterID string) (script.Character, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return script.Character{}, false
	}
	for _, c := range s.current.Characters {
		if c.ID == characterID {
			return c, true
		}
	}
	return script.Character{}, false
}

func batchKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

func copyBatch(b *Batch) *Batch {
	out := *b
	out.Characters = copyCharacters(b.Characters)
	return &out
}

func copyCharacters(characters []script.Character) []script.Character {
	out := make([]script.Character, len(characters))
	copy(out, characters)
	return out
}
