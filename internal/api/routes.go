package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abyss/abyss-agent/internal/scene"
	"github.com/abyss/abyss-agent/internal/script"
)

const (
	// jsonOverhead allows for escaping when a script is wrapped in a JSON body.
	jsonOverhead = 4096

	// submitTimeout bounds a detached parse; it matches the server's
	// write deadline.
	submitTimeout = 5 * time.Minute
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSAllowlist(cfg.AllowedOrigins...))

	r.Get("/health", healthHandler(cfg))
	if cfg.Placeholder != nil {
		r.Get("/placeholder.svg", cfg.Placeholder.ServePlaceholder)
		r.Head("/placeholder.svg", cfg.Placeholder.ServePlaceholder)
	}

	r.Post("/script/parse", parseScriptHandler(cfg))
	r.Post("/script/lines", scriptLinesHandler(cfg))
	r.Get("/characters", listCharactersHandler(cfg))
	r.Get("/batches/{id}", getBatchHandler(cfg))
	r.Get("/scene", getSceneHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(LoopbackGuard())

		r.Post("/scene/characters", addSceneCharacterHandler(cfg))
		r.Delete("/scene/characters/{id}", removeSceneCharacterHandler(cfg))
		r.Post("/scene/reorder", reorderSceneHandler(cfg))
		r.Delete("/scene", resetSceneHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		version := cfg.Version
		if version == "" {
			version = "dev"
		}
		count := 0
		if cfg.Scene != nil {
			count = len(cfg.Scene.List())
		}
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:       "ok",
			Version:      version,
			UptimeS:      int64(time.Since(cfg.StartTime).Seconds()),
			InstanceID:   cfg.InstanceID,
			PortraitMode: cfg.PortraitMode,
			SceneCount:   count,
		})
	}
}

func parseScriptHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeScript(w, r, cfg)
		if !ok {
			return
		}

		// Portrait requests run to completion even if the client goes away.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), submitTimeout)
		defer cancel()

		batch, err := cfg.Casting.Submit(ctx, req.Script)
		if err != nil {
			switch {
			case errors.Is(err, script.ErrEmptyScript):
				WriteError(w, http.StatusBadRequest, "script is empty", "EMPTY_SCRIPT")
			case errors.Is(err, script.ErrScriptTooLarge):
				WriteError(w, http.StatusBadRequest, err.Error(), "SCRIPT_TOO_LARGE")
			default:
				cfg.Logger.Error("script parse failed", "error", err)
				WriteError(w, http.StatusInternalServerError, "failed to parse script", "PARSE_FAILED")
			}
			return
		}

		WriteJSON(w, http.StatusOK, ParseResponse{
			BatchID:    batch.ID,
			Superseded: batch.Superseded,
			Characters: batch.Characters,
		})
	}
}

func scriptLinesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeScript(w, r, cfg)
		if !ok {
			return
		}

		if err := script.Validate(req.Script, cfg.MaxScriptBytes); err != nil {
			if errors.Is(err, script.ErrEmptyScript) {
				WriteError(w, http.StatusBadRequest, "script is empty", "EMPTY_SCRIPT")
			} else {
				WriteError(w, http.StatusBadRequest, err.Error(), "SCRIPT_TOO_LARGE")
			}
			return
		}

		WriteJSON(w, http.StatusOK, LinesResponse{Lines: script.Lines(req.Script)})
	}
}

func listCharactersHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, CharactersResponse{Characters: cfg.Casting.Current()})
	}
}

func getBatchHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id < 1 {
			WriteError(w, http.StatusBadRequest, "batch id must be a positive integer", "BAD_REQUEST")
			return
		}

		batch, ok := cfg.Casting.Batch(id)
		if !ok {
			WriteError(w, http.StatusNotFound, "batch not found", "NOT_FOUND")
			return
		}

		WriteJSON(w, http.StatusOK, BatchToResponse(batch))
	}
}

func getSceneHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		characters := cfg.Scene.List()
		WriteJSON(w, http.StatusOK, SceneResponse{Characters: characters, Count: len(characters)})
	}
}

func addSceneCharacterHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddCharacterRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, jsonOverhead*4)).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.ID == "" {
			WriteError(w, http.StatusBadRequest, "character id is required", "BAD_REQUEST")
			return
		}

		c := req.character()
		if req.idOnly() {
			found, ok := cfg.Casting.Lookup(req.ID)
			if !ok {
				WriteError(w, http.StatusNotFound, "character not found in detected set", "NOT_FOUND")
				return
			}
			c = found
		}
		if c.Name == "" {
			WriteError(w, http.StatusBadRequest, "character name is required", "BAD_REQUEST")
			return
		}

		if err := cfg.Scene.Add(r.Context(), c); err != nil {
			var dup *scene.DuplicateError
			if errors.As(err, &dup) {
				WriteError(w, http.StatusConflict, fmt.Sprintf("%s is already part of the scene.", dup.Name), "DUPLICATE")
				return
			}
			cfg.Logger.Error("failed to add character to scene", "character_id", c.ID, "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to save scene", "PERSIST_FAILED")
			return
		}

		WriteJSON(w, http.StatusCreated,
			sceneMutation(fmt.Sprintf("%s has been added to the scene.", c.Name), cfg.Scene.List()))
	}
}

func removeSceneCharacterHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "character id required", "BAD_REQUEST")
			return
		}

		name := ""
		for _, c := range cfg.Scene.List() {
			if c.ID == id {
				name = c.Name
				break
			}
		}

		if err := cfg.Scene.Remove(r.Context(), id); err != nil {
			cfg.Logger.Error("failed to remove character from scene", "character_id", id, "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to save scene", "PERSIST_FAILED")
			return
		}

		notice := ""
		if name != "" {
			notice = fmt.Sprintf("%s has been removed from the scene.", name)
		}
		WriteJSON(w, http.StatusOK, sceneMutation(notice, cfg.Scene.List()))
	}
}

func reorderSceneHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReorderRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, jsonOverhead)).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.FromIndex == nil || req.ToIndex == nil {
			WriteError(w, http.StatusBadRequest, "from_index and to_index are required", "BAD_REQUEST")
			return
		}

		if err := cfg.Scene.Reorder(r.Context(), *req.FromIndex, *req.ToIndex); err != nil {
			if errors.Is(err, scene.ErrIndexOutOfRange) {
				WriteError(w, http.StatusBadRequest, err.Error(), "INDEX_OUT_OF_RANGE")
				return
			}
			cfg.Logger.Error("failed to reorder scene", "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to save scene", "PERSIST_FAILED")
			return
		}

		WriteJSON(w, http.StatusOK, sceneMutation("", cfg.Scene.List()))
	}
}

func resetSceneHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Scene.Reset(r.Context()); err != nil {
			cfg.Logger.Error("failed to reset scene", "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to save scene", "PERSIST_FAILED")
			return
		}
		WriteJSON(w, http.StatusOK, sceneMutation("The scene has been cleared.", cfg.Scene.List()))
	}
}

// decodeScript reads a ScriptRequest, writing the error response itself
// when it returns false.
func decodeScript(w http.ResponseWriter, r *http.Request, cfg ServerConfig) (ScriptRequest, bool) {
	var req ScriptRequest

	body := r.Body
	if cfg.MaxScriptBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, int64(cfg.MaxScriptBytes)*2+jsonOverhead)
	}

	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusBadRequest, script.ErrScriptTooLarge.Error(), "SCRIPT_TOO_LARGE")
			return req, false
		}
		WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return req, false
	}
	return req, true
}
