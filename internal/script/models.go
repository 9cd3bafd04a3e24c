// Package script detects screenplay character cues and synthesizes a short
// description for each detected character.
package script

import (
	"github.com/google/uuid"
)

// Character is a detected screenplay character. ImageURL and Caption are set
// once by portrait acquisition and never changed afterwards.
type Character struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	ImageURL     string `json:"imageUrl,omitempty"`
	Caption      string `json:"caption,omitempty"`
	IsGenerating bool   `json:"isGenerating,omitempty"`
}

const (
	LineTypeCharacter = "character"
	LineTypeDialogue  = "dialogue"
	LineTypeAction    = "action"
	LineTypeScene     = "scene"
)

// Line is one tagged, non-empty line of a screenplay. Character is only set
// for dialogue lines and names the cue that owns them.
type Line struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	Character string `json:"character,omitempty"`
}

func NewID() string {
	return "char-" + uuid.NewString()
}
