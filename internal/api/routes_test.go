package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/abyss/abyss-agent/internal/casting"
	"github.com/abyss/abyss-agent/internal/placeholder"
	"github.com/abyss/abyss-agent/internal/portrait"
	"github.com/abyss/abyss-agent/internal/scene"
	"github.com/abyss/abyss-agent/internal/script"
)

const batmanScript = `INT. BATCAVE - NIGHT

BATMAN
The city needs me.

ALFRED
Then go, Master Wayne.

BATMAN
I will.
`

type fakeAcquirer struct{}

func (fakeAcquirer) AcquireBatch(ctx context.Context, characters []script.Character) []script.Character {
	out := make([]script.Character, len(characters))
	for i, c := range characters {
		c.ImageURL = "https://img.example/" + c.Name + ".png"
		if ctx.Err() != nil {
			c.ImageURL = portrait.PlaceholderURL(c.Name)
		}
		c.Caption = c.Name + " - " + c.Description
		out[i] = c
	}
	return out
}

type memoryStore struct {
	saved   []script.Character
	failErr error
}

func (m *memoryStore) Load(ctx context.Context) ([]script.Character, error) {
	return append([]script.Character(nil), m.saved...), nil
}

func (m *memoryStore) Save(ctx context.Context, characters []script.Character) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.saved = append([]script.Character(nil), characters...)
	return nil
}

type testEnv struct {
	cfg     ServerConfig
	router  http.Handler
	store   *memoryStore
	casting *casting.Service
	scene   *scene.Scene
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := &memoryStore{}
	sc, err := scene.New(context.Background(), st, logger)
	if err != nil {
		t.Fatalf("scene.New() error = %v", err)
	}
	svc := casting.NewService(fakeAcquirer{}, 1024, time.Minute, logger)

	cfg := ServerConfig{
		Casting:        svc,
		Scene:          sc,
		Placeholder:    placeholder.NewServer(logger),
		MaxScriptBytes: 1024,
		PortraitMode:   "replicate",
		Version:        "test",
		Logger:         logger,
		StartTime:      time.Now(),
		InstanceID:     "test-instance",
	}
	return &testEnv{cfg: cfg, router: NewRouter(cfg), store: st, casting: svc, scene: sc}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "127.0.0.1:50000"
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decodeJSONBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body %q: %v", rr.Body.String(), err)
	}
	return body
}

func decodeInto(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid JSON body %q: %v", rr.Body.String(), err)
	}
}

func assertError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) map[string]interface{} {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rr.Code, status, rr.Body.String())
	}
	body := decodeJSONBody(t, rr)
	if body["code"] != code {
		t.Errorf("code = %v, want %s", body["code"], code)
	}
	return body
}

func TestHealthHandler(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	body := decodeJSONBody(t, rr)
	if body["status"] != "ok" || body["instance_id"] != "test-instance" || body["portrait_mode"] != "replicate" {
		t.Errorf("health = %v", body)
	}
	if body["scene_count"] != float64(0) {
		t.Errorf("scene_count = %v, want 0", body["scene_count"])
	}
}

func TestParseScript(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/script/parse", ScriptRequest{Script: batmanScript})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	var resp ParseResponse
	decodeInto(t, rr, &resp)
	if resp.BatchID != 1 {
		t.Errorf("batch_id = %d, want 1", resp.BatchID)
	}
	if len(resp.Characters) != 2 {
		t.Fatalf("characters = %+v, want BATMAN and ALFRED", resp.Characters)
	}
	if resp.Characters[0].Name != "BATMAN" || resp.Characters[1].Name != "ALFRED" {
		t.Errorf("order = %s, %s", resp.Characters[0].Name, resp.Characters[1].Name)
	}
	if resp.Characters[0].ImageURL == "" || !strings.HasPrefix(resp.Characters[0].Caption, "BATMAN - ") {
		t.Errorf("portrait fields missing: %+v", resp.Characters[0])
	}

	rr = env.do(t, http.MethodGet, "/characters", nil)
	var current CharactersResponse
	decodeInto(t, rr, &current)
	if len(current.Characters) != 2 {
		t.Errorf("GET /characters = %+v", current.Characters)
	}

	rr = env.do(t, http.MethodGet, "/batches/1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /batches/1 status = %d", rr.Code)
	}
	var batch BatchResponse
	decodeInto(t, rr, &batch)
	if batch.BatchID != 1 || len(batch.Characters) != 2 || batch.CreatedAt == "" {
		t.Errorf("batch = %+v", batch)
	}
}

func TestParseScript_ClientDisconnect(t *testing.T) {
	env := newTestEnv(t)

	raw, _ := json.Marshal(ScriptRequest{Script: batmanScript})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/script/parse", bytes.NewReader(raw)).WithContext(ctx)
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	current := env.casting.Current()
	if len(current) != 2 {
		t.Fatalf("Current() = %+v, want published batch", current)
	}
	for _, c := range current {
		if strings.HasPrefix(c.ImageURL, portrait.PlaceholderPath) {
			t.Errorf("%s ImageURL = %q, portraits were cut short", c.Name, c.ImageURL)
		}
	}
}

func TestParseScript_Errors(t *testing.T) {
	env := newTestEnv(t)

	assertError(t, env.do(t, http.MethodPost, "/script/parse", ScriptRequest{Script: "  \n\t"}),
		http.StatusBadRequest, "EMPTY_SCRIPT")
	assertError(t, env.do(t, http.MethodPost, "/script/parse", ScriptRequest{Script: strings.Repeat("A", 1025)}),
		http.StatusBadRequest, "SCRIPT_TOO_LARGE")
	assertError(t, env.do(t, http.MethodPost, "/script/parse", `{"script":`),
		http.StatusBadRequest, "BAD_REQUEST")
	assertError(t, env.do(t, http.MethodPost, "/script/parse", `{"script":"`+strings.Repeat("x", 8000)+`"}`),
		http.StatusBadRequest, "SCRIPT_TOO_LARGE")

	rr := env.do(t, http.MethodGet, "/characters", nil)
	var current CharactersResponse
	decodeInto(t, rr, &current)
	if len(current.Characters) != 0 {
		t.Errorf("failed parse published characters: %+v", current.Characters)
	}
}

func TestScriptLines(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/script/lines", ScriptRequest{Script: batmanScript})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var resp LinesResponse
	decodeInto(t, rr, &resp)
	if len(resp.Lines) == 0 || resp.Lines[0].Type != script.LineTypeScene {
		t.Fatalf("lines = %+v", resp.Lines)
	}
	if resp.Lines[1].Type != script.LineTypeCharacter || resp.Lines[2].Type != script.LineTypeDialogue {
		t.Errorf("lines = %+v", resp.Lines[:3])
	}
	if resp.Lines[2].Character != "BATMAN" {
		t.Errorf("dialogue owner = %q, want BATMAN", resp.Lines[2].Character)
	}

	assertError(t, env.do(t, http.MethodPost, "/script/lines", ScriptRequest{}),
		http.StatusBadRequest, "EMPTY_SCRIPT")
}

func TestGetBatch_Errors(t *testing.T) {
	env := newTestEnv(t)

	assertError(t, env.do(t, http.MethodGet, "/batches/abc", nil), http.StatusBadRequest, "BAD_REQUEST")
	assertError(t, env.do(t, http.MethodGet, "/batches/0", nil), http.StatusBadRequest, "BAD_REQUEST")
	assertError(t, env.do(t, http.MethodGet, "/batches/99", nil), http.StatusNotFound, "NOT_FOUND")
}

func TestAddSceneCharacter_FullPayload(t *testing.T) {
	env := newTestEnv(t)
	joker := AddCharacterRequest{ID: "char-1", Name: "JOKER", Description: "Chaotic", ImageURL: "https://img/joker.png"}

	rr := env.do(t, http.MethodPost, "/scene/characters", joker)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	var resp SceneMutationResponse
	decodeInto(t, rr, &resp)
	if resp.Notice != "JOKER has been added to the scene." {
		t.Errorf("notice = %q", resp.Notice)
	}
	if resp.Count != 1 || resp.Characters[0].ImageURL != "https://img/joker.png" {
		t.Errorf("scene = %+v", resp)
	}

	body := assertError(t, env.do(t, http.MethodPost, "/scene/characters", joker), http.StatusConflict, "DUPLICATE")
	if body["error"] != "JOKER is already part of the scene." {
		t.Errorf("error = %v", body["error"])
	}
	if len(env.scene.List()) != 1 {
		t.Errorf("duplicate changed scene length to %d", len(env.scene.List()))
	}
	if len(env.store.saved) != 1 {
		t.Errorf("persisted %d characters, want 1", len(env.store.saved))
	}
}

func TestAddSceneCharacter_ByID(t *testing.T) {
	env := newTestEnv(t)

	batch, err := env.casting.Submit(context.Background(), batmanScript)
	if err != nil {
		t.Fatal(err)
	}
	alfred := batch.Characters[1]

	rr := env.do(t, http.MethodPost, "/scene/characters", map[string]string{"id": alfred.ID})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	got := env.scene.List()
	if len(got) != 1 || got[0].Name != "ALFRED" || got[0].ImageURL == "" {
		t.Errorf("scene = %+v", got)
	}

	assertError(t, env.do(t, http.MethodPost, "/scene/characters", map[string]string{"id": "char-unknown"}),
		http.StatusNotFound, "NOT_FOUND")
	assertError(t, env.do(t, http.MethodPost, "/scene/characters", map[string]string{}),
		http.StatusBadRequest, "BAD_REQUEST")
	assertError(t, env.do(t, http.MethodPost, "/scene/characters", "not json"),
		http.StatusBadRequest, "BAD_REQUEST")
}

func TestRemoveSceneCharacter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_ = env.scene.Add(ctx, script.Character{ID: "a", Name: "A"})
	_ = env.scene.Add(ctx, script.Character{ID: "b", Name: "B"})

	rr := env.do(t, http.MethodDelete, "/scene/characters/a", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp SceneMutationResponse
	decodeInto(t, rr, &resp)
	if resp.Notice != "A has been removed from the scene." || resp.Count != 1 {
		t.Errorf("resp = %+v", resp)
	}

	rr = env.do(t, http.MethodDelete, "/scene/characters/missing", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, removing absent id must succeed", rr.Code)
	}
	decodeInto(t, rr, &resp)
	if resp.Count != 1 || resp.Notice != "" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestReorderScene(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, id := range []string{"A", "B", "C"} {
		_ = env.scene.Add(ctx, script.Character{ID: id, Name: id})
	}

	rr := env.do(t, http.MethodPost, "/scene/reorder", map[string]int{"from_index": 0, "to_index": 2})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	var resp SceneMutationResponse
	decodeInto(t, rr, &resp)
	order := []string{resp.Characters[0].ID, resp.Characters[1].ID, resp.Characters[2].ID}
	if strings.Join(order, "") != "BCA" {
		t.Errorf("order = %v, want [B C A]", order)
	}

	assertError(t, env.do(t, http.MethodPost, "/scene/reorder", map[string]int{"from_index": 0, "to_index": 3}),
		http.StatusBadRequest, "INDEX_OUT_OF_RANGE")
	assertError(t, env.do(t, http.MethodPost, "/scene/reorder", map[string]int{"from_index": 0}),
		http.StatusBadRequest, "BAD_REQUEST")
}

func TestResetScene(t *testing.T) {
	env := newTestEnv(t)
	_ = env.scene.Add(context.Background(), script.Character{ID: "a", Name: "A"})

	rr := env.do(t, http.MethodDelete, "/scene", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	rr = env.do(t, http.MethodGet, "/scene", nil)
	var resp SceneResponse
	decodeInto(t, rr, &resp)
	if resp.Count != 0 || len(resp.Characters) != 0 {
		t.Errorf("scene = %+v, want empty", resp)
	}
}

func TestSceneMutation_PersistFailure(t *testing.T) {
	env := newTestEnv(t)
	env.store.failErr = errors.New("disk full")

	assertError(t, env.do(t, http.MethodPost, "/scene/characters", AddCharacterRequest{ID: "x", Name: "X"}),
		http.StatusInternalServerError, "PERSIST_FAILED")
	if len(env.scene.List()) != 0 {
		t.Error("failed save left character in scene")
	}
}

func TestSceneMutation_RejectsNonLoopback(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodDelete, "/scene", nil)
	req.RemoteAddr = "203.0.113.9:4000"
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	assertError(t, rr, http.StatusForbidden, "FORBIDDEN")
}

func TestPlaceholderRoute(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, portrait.PlaceholderURL("HARLEY QUINN"), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != placeholder.ContentType {
		t.Errorf("Content-Type = %q", got)
	}
	if !strings.Contains(rr.Body.String(), "HARLEY QUINN character portrait") {
		t.Errorf("body = %s", rr.Body.String())
	}
}
