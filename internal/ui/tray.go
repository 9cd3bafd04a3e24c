package ui

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/getlantern/systray"
)

type Tray struct {
	logger *slog.Logger

	statusItem *systray.MenuItem
	sceneItem  *systray.MenuItem

	mu         sync.Mutex
	status     string
	sceneCount int

	onResetScene func(ctx context.Context) error
	onQuit       func()
}

type TrayConfig struct {
	// Status is the initial status line, e.g. the portrait mode.
	Status       string
	SceneCount   int
	Logger       *slog.Logger
	OnResetScene func(ctx context.Context) error
	OnQuit       func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		logger:       cfg.Logger,
		status:       cfg.Status,
		sceneCount:   cfg.SceneCount,
		onResetScene: cfg.OnResetScene,
		onQuit:       cfg.OnQuit,
	}
}

func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Abyss")
	systray.SetTooltip("Abyss scene agent")

	t.mu.Lock()
	t.statusItem = systray.AddMenuItem(statusTitle(t.status), "Portrait provider status")
	t.statusItem.Disable()
	t.sceneItem = systray.AddMenuItem(sceneTitle(t.sceneCount), "Characters in the scene")
	t.sceneItem.Disable()
	t.mu.Unlock()

	systray.AddSeparator()

	resetItem := systray.AddMenuItem("Reset Scene", "Remove every character from the scene")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Abyss")

	go func() {
		for {
			select {
			case <-resetItem.ClickedCh:
				t.handleResetScene()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

func (t *Tray) handleResetScene() {
	if t.onResetScene == nil {
		return
	}
	if err := t.onResetScene(context.Background()); err != nil {
		t.logger.Error("failed to reset scene", "error", err)
	}
}

func (t *Tray) UpdateStatus(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status = status
	if t.statusItem != nil {
		t.statusItem.SetTitle(statusTitle(status))
	}
}

// UpdateSceneCount is safe to call before the tray is ready.
func (t *Tray) UpdateSceneCount(count int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sceneCount = count
	if t.sceneItem != nil {
		t.sceneItem.SetTitle(sceneTitle(count))
	}
}

func (t *Tray) Quit() {
	systray.Quit()
}

func statusTitle(status string) string {
	if status == "" {
		status = "Ready"
	}
	return "Status: " + status
}

func sceneTitle(count int) string {
	if count == 1 {
		return "Scene: 1 character"
	}
	return fmt.Sprintf("Scene: %d characters", count)
}
