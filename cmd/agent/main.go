package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/abyss/abyss-agent/internal/api"
	"github.com/abyss/abyss-agent/internal/casting"
	"github.com/abyss/abyss-agent/internal/config"
	"github.com/abyss/abyss-agent/internal/db"
	"github.com/abyss/abyss-agent/internal/logging"
	"github.com/abyss/abyss-agent/internal/placeholder"
	"github.com/abyss/abyss-agent/internal/portrait"
	"github.com/abyss/abyss-agent/internal/scene"
	"github.com/abyss/abyss-agent/internal/store"
	"github.com/abyss/abyss-agent/internal/ui"
)

const (
	portraitModeReplicate   = "replicate"
	portraitModePlaceholder = "placeholder"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	if err := config.LoadDotEnv(); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting abyss agent",
		"version", config.Version,
		"data_dir", logging.SanitizePath(cfg.DataDir()),
	)

	database, err := db.New(cfg.DBPath(), logging.WithComponent(logger, "db"))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := store.NewRepository(database.Conn())

	instanceID, err := ensureInstanceID(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure instance ID: %w", err)
	}

	var provider portrait.Provider
	mode := portraitModePlaceholder
	if key := cfg.ReplicateAPIKey(); key != "" {
		provider = portrait.NewReplicateClient(
			cfg.ReplicateBaseURL(),
			cfg.ReplicateModel(),
			key,
			cfg.PortraitTimeout(),
			logging.WithComponent(logger, "replicate"),
		)
		mode = portraitModeReplicate
		logger.Info("portrait provider configured",
			"model", cfg.ReplicateModel(),
			"api_key", logging.SanitizeToken(key),
		)
	} else {
		logger.Warn("REPLICATE_API_KEY not set, portraits will use placeholders")
	}

	acquirer := portrait.NewAcquirer(portrait.Config{
		Provider:    provider,
		Concurrency: cfg.PortraitConcurrency(),
		Interval:    cfg.PortraitInterval(),
		Logger:      logging.WithComponent(logger, "portrait"),
	})

	castingSvc := casting.NewService(acquirer, cfg.MaxScriptBytes(), cfg.BatchTTL(),
		logging.WithComponent(logger, "casting"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sceneState, err := scene.New(ctx, scene.NewSlotStore(repo), logging.WithComponent(logger, "scene"))
	if err != nil {
		return fmt.Errorf("failed to load scene: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║                       ABYSS AGENT                         ║")
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Portraits:  %-45s ║\n", mode)
	fmt.Printf("║  Scene:      %-45s ║\n", fmt.Sprintf("%d characters", sceneState.Len()))
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	apiServer := api.NewServer(api.ServerConfig{
		Port:           cfg.Port(),
		Casting:        castingSvc,
		Scene:          sceneState,
		Placeholder:    placeholder.NewServer(logging.WithComponent(logger, "placeholder")),
		AllowedOrigins: cfg.AllowedOrigins(),
		MaxScriptBytes: cfg.MaxScriptBytes(),
		PortraitMode:   mode,
		Version:        config.Version,
		Logger:         logging.WithComponent(logger, "api"),
		StartTime:      startTime,
		InstanceID:     instanceID,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quit := newQuitSignal()

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			quit.Close()
		case <-quit.Done():
		}
	}()

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		status := "Portraits via Replicate"
		if provider == nil {
			status = "Placeholder portraits"
		}
		tray := ui.NewTray(ui.TrayConfig{
			Status:       status,
			SceneCount:   sceneState.Len(),
			Logger:       logging.WithComponent(logger, "tray"),
			OnResetScene: sceneState.Reset,
			OnQuit:       quit.Close,
		})
		sceneState.OnChange(tray.UpdateSceneCount)
		go tray.Run()
	}

	<-quit.Done()

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// quitSignal is closed by whichever of the signal handler or the tray asks
// to quit first; later Close calls are no-ops.
type quitSignal struct {
	once sync.Once
	ch   chan struct{}
}

func newQuitSignal() *quitSignal {
	return &quitSignal{ch: make(chan struct{})}
}

func (q *quitSignal) Close() {
	q.once.Do(func() { close(q.ch) })
}

func (q *quitSignal) Done() <-chan struct{} {
	return q.ch
}

// ensureInstanceID returns the persisted instance id, creating it on first
// run.
func ensureInstanceID(repo store.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "instance_id")
	if err == nil && existing != "" {
		return existing, nil
	}

	instanceID := uuid.NewString()
	if err := repo.SetConfig(ctx, "instance_id", instanceID); err != nil {
		return "", err
	}

	return instanceID, nil
}
