package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/doge48/api"
	"github.com/wricardo/mcp-training/doge48/client"
	"github.com/wricardo/mcp-training/doge48/game/config"
	"github.com/wricardo/mcp-training/doge48/game/engine"
	"github.com/wricardo/mcp-training/doge48/game/session"
	"github.com/wricardo/mcp-training/doge48/transport/websocket"
)

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName != "Doge48" {
		t.Errorf("Expected app name Doge48, got %s", AppName)
	}
}

func writeTestConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	manager, err := config.NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}
	small := engine.DefaultConfig()
	small.Name = "small"
	small.GridSize = 3
	for name, c := range map[string]*engine.GameConfig{"classic": engine.DefaultConfig(), "small": small} {
		if err := manager.SaveConfig(name, c); err != nil {
			t.Fatalf("Failed to save %s: %v", name, err)
		}
	}
	return dir
}

func TestNewApp(t *testing.T) {
	app := newApp()

	want := []string{"server", "stdio-mcp", "play", "autoplay", "watch"}
	for _, name := range want {
		if app.Command(name) == nil {
			t.Errorf("Missing command %s", name)
		}
	}

	for _, name := range []string{"port", "host", "config-dir", "debug"} {
		found := false
		for _, f := range app.Flags {
			if f.Names()[0] == name {
				found = true
			}
		}
		if !found {
			t.Errorf("Missing global flag %s", name)
		}
	}
}

func TestInitializeServices(t *testing.T) {
	gameService, sessions, err := initializeServices(writeTestConfigDir(t))
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	if gameService == nil || sessions == nil {
		t.Fatal("Expected services to be initialized")
	}

	info, err := gameService.CreateSession(context.Background(), "small")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	if info.GameState.GridSize != 3 || sessions.Count() != 1 {
		t.Errorf("Expected a 3x3 session in the manager, got %+v", info.GameState)
	}
}

func TestInitializeServices_InvalidConfigDir(t *testing.T) {
	if _, _, err := initializeServices("/non/existent/path"); err == nil {
		t.Error("Expected error for non-existent config directory")
	}
}

func TestLoadGameConfig(t *testing.T) {
	dir := writeTestConfigDir(t)

	t.Run("named", func(t *testing.T) {
		c, err := loadGameConfig(dir, "small")
		if err != nil || c.GridSize != 3 {
			t.Errorf("Expected small config, got %+v (%v)", c, err)
		}
	})

	t.Run("default", func(t *testing.T) {
		c, err := loadGameConfig(dir, "")
		if err != nil || c.Name != "classic" {
			t.Errorf("Expected classic config, got %+v (%v)", c, err)
		}
	})

	t.Run("built-in without directory", func(t *testing.T) {
		c, err := loadGameConfig(filepath.Join(dir, "missing"), "")
		if err != nil || c.GridSize != engine.DefaultGridSize {
			t.Errorf("Expected built-in config, got %+v (%v)", c, err)
		}
	})

	t.Run("named without directory", func(t *testing.T) {
		if _, err := loadGameConfig(filepath.Join(dir, "missing"), "small"); err == nil {
			t.Error("Expected error")
		}
	})
}

func TestSeededConfigCopies(t *testing.T) {
	base := engine.DefaultConfig()
	c := seededConfig(base, 9)
	if c.Seed != 9 || base.Seed != 0 {
		t.Errorf("Expected a seeded copy, got base=%d copy=%d", base.Seed, c.Seed)
	}
}

func TestAutoplay(t *testing.T) {
	base := engine.DefaultConfig()
	base.GridSize = 3

	run := func() string {
		var out bytes.Buffer
		err := autoplay(context.Background(), &out, base, autoplayOptions{
			Strategy: "random",
			Games:    3,
			Seed:     10,
			Boards:   true,
		})
		if err != nil {
			t.Fatalf("autoplay failed: %v", err)
		}
		return out.String()
	}

	first := run()
	if first != run() {
		t.Error("Same seeds should produce the same output")
	}
	for _, want := range []string{"game 1 seed=10 strategy=random", "game 3 seed=12", "games=3 avg_moves="} {
		if !strings.Contains(first, want) {
			t.Errorf("Output missing %q:\n%s", want, first)
		}
	}

	var out bytes.Buffer
	if err := autoplay(context.Background(), &out, base, autoplayOptions{Strategy: "nope"}); err == nil {
		t.Error("Expected unknown strategy error")
	}
}

func TestAutoplayLuaScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "first.lua")
	script := `function next_move(board) return board.possible[1] end`
	if err := os.WriteFile(path, []byte(script), 0644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	err := autoplay(context.Background(), &out, engine.DefaultConfig(), autoplayOptions{
		Strategy: "lua:" + path,
		Seed:     1,
		MaxMoves: 20,
	})
	if err != nil {
		t.Fatalf("autoplay failed: %v", err)
	}
	if !strings.Contains(out.String(), "strategy=lua:first") {
		t.Errorf("Unexpected output: %s", out.String())
	}
}

func TestRunAutoplayCommand(t *testing.T) {
	dir := writeTestConfigDir(t)
	args := []string{"doge48", "--config-dir", dir, "autoplay", "--config", "small", "-n", "2", "--max-moves", "10"}
	if err := newApp().Run(context.Background(), args); err != nil {
		t.Fatalf("autoplay command failed: %v", err)
	}
}

func TestAutoplayRemote(t *testing.T) {
	gameService, sessions, err := initializeServices(writeTestConfigDir(t))
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	server := httptest.NewServer(api.NewServer(gameService, nil))
	defer server.Close()

	var out bytes.Buffer
	err = autoplayRemote(context.Background(), &out, client.New(server.URL), "small", autoplayOptions{
		Strategy: "corner",
		MaxMoves: 15,
		Boards:   true,
	})
	if err != nil {
		t.Fatalf("remote autoplay failed: %v", err)
	}

	if sessions.Count() != 1 {
		t.Errorf("Expected one server session, got %d", sessions.Count())
	}
	for _, want := range []string{"config=small", "strategy=corner", "watch --session"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Output missing %q:\n%s", want, out.String())
		}
	}

	out.Reset()
	if err := autoplayRemote(context.Background(), &out, client.New(server.URL), "missing", autoplayOptions{}); err == nil {
		t.Error("Expected error for unknown config")
	}
}

func TestWatchRequiresSession(t *testing.T) {
	if err := newApp().Run(context.Background(), []string{"doge48", "watch"}); err == nil {
		t.Error("Expected missing --session to fail")
	}
}

func TestPrintWatchMessage(t *testing.T) {
	var out bytes.Buffer
	printWatchMessage(&out, &websocket.Message{
		SessionID: "ab12",
		Event:     websocket.EventStateUpdate,
		GameState: &engine.GameState{
			TileCount:         2,
			MaxValue:          4,
			CurrentMovesCount: 3,
			Board:             []string{"4 .", ". 2"},
			Message:           "Tiles on board: 2",
		},
	})
	printWatchMessage(&out, &websocket.Message{SessionID: "ab12", Event: websocket.EventReset})

	want := "[ab12] tiles=2 max=4 moves=3\n  4 .\n  . 2\n  Tiles on board: 2\n[ab12] reset\n"
	if out.String() != want {
		t.Errorf("Unexpected output:\n%q\nwant\n%q", out.String(), want)
	}
}

func TestSessionCleanupRoutineStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sessionCleanupRoutine(ctx, session.NewManager(), time.Millisecond)
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup routine did not stop")
	}
}
