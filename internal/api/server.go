package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/abyss/abyss-agent/internal/casting"
	"github.com/abyss/abyss-agent/internal/placeholder"
	"github.com/abyss/abyss-agent/internal/script"
)

// SceneManager is the scene state the API mutates.
type SceneManager interface {
	List() []script.Character
	Add(ctx context.Context, c script.Character) error
	Remove(ctx context.Context, id string) error
	Reorder(ctx context.Context, from, to int) error
	Reset(ctx context.Context) error
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Port           int
	Casting        casting.CastingService
	Scene          SceneManager
	Placeholder    placeholder.PlaceholderService
	AllowedOrigins []string
	MaxScriptBytes int
	PortraitMode   string
	Version        string
	Logger         *slog.Logger
	StartTime      time.Time
	InstanceID     string
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler: router,
			// Portrait acquisition runs inside /script/parse, so writes get
			// a generous deadline.
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 5 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
