package scene

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/abyss/abyss-agent/internal/script"
	"github.com/abyss/abyss-agent/internal/store"
)

// SlotName is the fixed slot the scene list is persisted under.
const SlotName = "sceneCharacters"

// Store persists the whole scene list.
type Store interface {
	Load(ctx context.Context) ([]script.Character, error)
	Save(ctx context.Context, characters []script.Character) error
}

// SlotStore keeps the scene as a JSON array in a repository slot.
type SlotStore struct {
	repo store.Repository
	name string
}

func NewSlotStore(repo store.Repository) *SlotStore {
	return &SlotStore{repo: repo, name: SlotName}
}

func (s *SlotStore) Load(ctx context.Context) ([]script.Character, error) {
	raw, ok, err := s.repo.GetSlot(ctx, s.name)
	if err != nil {
		return nil, fmt.Errorf("read slot %s: %w", s.name, err)
	}
	if !ok {
		return []script.Character{}, nil
	}

	var characters []script.Character
	if err := json.Unmarshal(raw, &characters); err != nil {
		return nil, fmt.Errorf("decode slot %s: %w", s.name, err)
	}
	if characters == nil {
		characters = []script.Character{}
	}
	return characters, nil
}

func (s *SlotStore) Save(ctx context.Context, characters []script.Character) error {
	if characters == nil {
		characters = []script.Character{}
	}
	raw, err := json.Marshal(characters)
	if err != nil {
		return fmt.Errorf("encode slot %s: %w", s.name, err)
	}
	if err := s.repo.PutSlot(ctx, s.name, raw); err != nil {
		return fmt.Errorf("write slot %s: %w", s.name, err)
	}
	return nil
}
