package api

import (
	"time"

	"github.com/abyss/abyss-agent/internal/casting"
	"github.com/abyss/abyss-agent/internal/script"
)

type HealthResponse struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	UptimeS      int64  `json:"uptime_s"`
	InstanceID   string `json:"instance_id"`
	PortraitMode string `json:"portrait_mode"`
	SceneCount   int    `json:"scene_count"`
}

type ScriptRequest struct {
	Script string `json:"script"`
}

type ParseResponse struct {
	BatchID    int64              `json:"batch_id"`
	Superseded bool               `json:"superseded"`
	Characters []script.Character `json:"characters"`
}

type LinesResponse struct {
	Lines []script.Line `json:"lines"`
}

type CharactersResponse struct {
	Characters []script.Character `json:"characters"`
}

type BatchResponse struct {
	BatchID    int64              `json:"batch_id"`
	Superseded bool               `json:"superseded"`
	CreatedAt  string             `json:"created_at"`
	Characters []script.Character `json:"characters"`
}

type SceneResponse struct {
	Characters []script.Character `json:"characters"`
	Count      int                `json:"count"`
}

// SceneMutationResponse carries the user-facing notice alongside the
// resulting scene.
type SceneMutationResponse struct {
	Notice     string             `json:"notice,omitempty"`
	Characters []script.Character `json:"characters"`
	Count      int                `json:"count"`
}

// AddCharacterRequest is either a full character (drag payload) or just
// the id of a character in the current detected set.
type AddCharacterRequest struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	ImageURL     string `json:"imageUrl"`
	Caption      string `json:"caption"`
	IsGenerating bool   `json:"isGenerating"`
}

func (r AddCharacterRequest) idOnly() bool {
	return r.Name == "" && r.Description == "" && r.ImageURL == "" && r.Caption == ""
}

func (r AddCharacterRequest) character() script.Character {
	return script.Character{
		ID:           r.ID,
		Name:         r.Name,
		Description:  r.Description,
		ImageURL:     r.ImageURL,
		Caption:      r.Caption,
		IsGenerating: r.IsGenerating,
	}
}

type ReorderRequest struct {
	FromIndex *int `json:"from_index"`
	ToIndex   *int `json:"to_index"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func BatchToResponse(b *casting.Batch) BatchResponse {
	return BatchResponse{
		BatchID:    b.ID,
		Superseded: b.Superseded,
		CreatedAt:  b.CreatedAt.Format(time.RFC3339),
		Characters: b.Characters,
	}
}

func sceneMutation(notice string, characters []script.Character) SceneMutationResponse {
	return SceneMutationResponse{Notice: notice, Characters: characters, Count: len(characters)}
}
