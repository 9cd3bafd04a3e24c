// Package scene holds the ordered list of characters placed in the scene.
// Every successful mutation persists the full list.
package scene

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/abyss/abyss-agent/internal/script"
)

var ErrIndexOutOfRange = errors.New("scene index out of range")

// DuplicateError is returned when adding a character whose id is already
// in the scene.
type DuplicateError struct {
	ID   string
	Name string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s is already part of the scene", e.Name)
}

type Scene struct {
	mu         sync.Mutex
	store      Store
	characters []script.Character
	onChange   func(count int)
	logger     *slog.Logger
}

// New loads the persisted scene, starting empty if nothing was saved.
func New(ctx context.Context, store Store, logger *slog.Logger) (*Scene, error) {
	characters, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load scene: %w", err)
	}
	if characters == nil {
		characters = []script.Character{}
	}

	if logger != nil {
		logger.Info("scene loaded", "count", len(characters))
	}
	return &Scene{store: store, characters: characters, logger: logger}, nil
}

// OnChange registers fn to be called with the new length after each
// persisted mutation.
func (s *Scene) OnChange(fn func(count int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

func (s *Scene) List() []script.Character {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.characters)
}

func (s *Scene) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.characters)
}

func (s *Scene) Add(ctx context.Context, c script.Character) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(c.ID) >= 0 {
		return &DuplicateError{ID: c.ID, Name: c.Name}
	}

	next := append(clone(s.characters), c)
	if err := s.commit(ctx, next); err != nil {
		return err
	}

	s.log("character added to scene", "character_id", c.ID, "name", c.Name)
	return nil
}

// Remove deletes the character with id. Removing an absent id is a no-op.
func (s *Scene) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil
	}

	next := make([]script.Character, 0, len(s.characters)-1)
	next = append(next, s.characters[:i]...)
	next = append(next, s.characters[i+1:]...)
	if err := s.commit(ctx, next); err != nil {
		return err
	}

	s.log("character removed from scene", "character_id", id)
	return nil
}

// Reorder moves the element at from so that it ends up at index to. Both
// indices must be within the current list; otherwise ErrIndexOutOfRange is
// returned and the list is left as is.
func (s *Scene) Reorder(ctx context.Context, from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.characters)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("%w: move %d -> %d with %d characters", ErrIndexOutOfRange, from, to, n)
	}
	if from == to {
		return nil
	}

	next := clone(s.characters)
	moved := next[from]
	next = append(next[:from], next[from+1:]...)
	next = append(next[:to], append([]script.Character{moved}, next[to:]...)...)

	if err := s.commit(ctx, next); err != nil {
		return err
	}

	s.log("scene reordered", "from", from, "to", to)
	return nil
}

func (s *Scene) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.commit(ctx, []script.Character{}); err != nil {
		return err
	}

	s.log("scene reset")
	return nil
}

// commit persists next and only then makes it current, so a failed save
// leaves the in-memory list untouched.
func (s *Scene) commit(ctx context.Context, next []script.Character) error {
	if err := s.store.Save(ctx, next); err != nil {
		return fmt.Errorf("persist scene: %w", err)
	}
	s.characters = next
	if s.onChange != nil {
		s.onChange(len(next))
	}
	return nil
}

func (s *Scene) indexOf(id string) int {
	for i, c := range s.characters {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (s *Scene) log(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func clone(characters []script.Character) []script.Character {
	out := make([]script.Character, len(characters))
	copy(out, characters)
	return out
}
