// Command doge48 runs the Doge48 sliding tile game.
//
// Commands:
//  1. "server" (default) – HTTP server exposing the REST API, WebSocket updates and an /mcp endpoint
//  2. "stdio-mcp" – MCP stdio server, reusing an external API or spinning up an internal one
//  3. "play" – interactive terminal game against a local engine
//  4. "autoplay" – plays games with a built-in or Lua strategy, locally or on a server
//  5. "watch" – follows a server session over WebSocket and prints each board
//
// Flags control host/port, config directory, debug logging and optional ngrok
// tunneling for easy external access during development.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/mcp-training/doge48/api"
	"github.com/wricardo/mcp-training/doge48/client"
	"github.com/wricardo/mcp-training/doge48/game/config"
	"github.com/wricardo/mcp-training/doge48/game/engine"
	"github.com/wricardo/mcp-training/doge48/game/service"
	"github.com/wricardo/mcp-training/doge48/game/session"
	"github.com/wricardo/mcp-training/doge48/game/strategy"
	"github.com/wricardo/mcp-training/doge48/transport/mcp"
	"github.com/wricardo/mcp-training/doge48/transport/websocket"
	"github.com/wricardo/mcp-training/doge48/tui"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Doge48"
)

const (
	sessionMaxAge          = 24 * time.Hour
	sessionCleanupInterval = time.Hour
)

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		log.Fatalf("%s: %v", AppName, err)
	}
}

// newApp builds the command tree. Global flags are accepted before or after the command name.
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "doge48",
		Usage:   "slide and merge power-of-two tiles",
		Version: Version,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "HTTP server port",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "host",
				Value:   "localhost",
				Usage:   "HTTP server host",
				Sources: cli.EnvVars("HOST"),
			},
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "directory containing game configurations",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("debug") {
				log.SetFlags(log.LstdFlags | log.Lshortfile)
			} else {
				log.SetFlags(log.LstdFlags)
			}
			return ctx, nil
		},
		Action: runServer,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "run the HTTP server with REST API, WebSocket and MCP endpoint",
				Flags:   ngrokFlags(),
				Action:  runServer,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "run an MCP stdio server backed by an external or internal HTTP API",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "api-url",
						Value:   "http://localhost:8080",
						Usage:   "external API to reuse when it is reachable",
						Sources: cli.EnvVars("DOGE48_API_URL"),
					},
				},
				Action: runStdioMCP,
			},
			{
				Name:  "play",
				Usage: "play in the terminal",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "configuration name (default: the config dir's default)"},
					&cli.Uint64Flag{Name: "seed", Usage: "spawn seed, 0 for random"},
					&cli.StringFlag{Name: "log-file", Usage: "write logs here instead of discarding them"},
				},
				Action: runPlay,
			},
			{
				Name:  "autoplay",
				Usage: "play games with a strategy and print a summary",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "configuration name"},
					&cli.StringFlag{
						Name:    "strategy",
						Aliases: []string{"s"},
						Value:   "corner",
						Usage:   fmt.Sprintf("%s or %s<file>", strings.Join(strategy.Names(), ", "), strategy.LuaPrefix),
					},
					&cli.IntFlag{Name: "games", Aliases: []string{"n"}, Value: 1, Usage: "number of games"},
					&cli.Uint64Flag{Name: "seed", Value: 1, Usage: "seed of the first game, incremented per game"},
					&cli.IntFlag{Name: "max-moves", Usage: "stop each game after this many moves, 0 for no limit"},
					&cli.BoolFlag{Name: "boards", Usage: "print the final board of every game"},
					&cli.StringFlag{Name: "url", Usage: "play one game on this server instead of locally, e.g. http://localhost:8080"},
					&cli.DurationFlag{Name: "delay", Usage: "pause between moves when playing on a server"},
				},
				Action: runAutoplay,
			},
			{
				Name:  "watch",
				Usage: "print the board of a server session on every update",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "session", Usage: "session ID to follow", Required: true},
					&cli.StringFlag{
						Name:    "url",
						Value:   "ws://localhost:8080/ws",
						Usage:   "WebSocket endpoint",
						Sources: cli.EnvVars("DOGE48_WS_URL"),
					},
				},
				Action: runWatch,
			},
		},
	}
}

func ngrokFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "ngrok",
			Usage:   "enable ngrok tunnel",
			Sources: cli.EnvVars("NGROK_ENABLED"),
		},
		&cli.StringFlag{
			Name:    "ngrok-auth",
			Usage:   "ngrok auth token",
			Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "ngrok-domain",
			Usage:   "custom ngrok domain (optional)",
			Sources: cli.EnvVars("NGROK_DOMAIN"),
		},
	}
}

func listenAddr(cmd *cli.Command) string {
	return fmt.Sprintf("%s:%d", cmd.String("host"), cmd.Int("port"))
}

// runServer starts the HTTP server with REST API, WebSocket hub and the /mcp endpoint.
// If ngrok is enabled it also provisions a public tunnel.
func runServer(ctx context.Context, cmd *cli.Command) error {
	log.Printf("Starting %s v%s (mode: server)", AppName, Version)

	gameService, sessions, err := initializeServices(cmd.String("config-dir"))
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	go sessionCleanupRoutine(ctx, sessions, sessionCleanupInterval)

	hub := websocket.NewHub()
	go hub.Run()

	addr := listenAddr(cmd)
	apiServer := api.NewServer(gameService, hub)
	apiServer.Handle("/mcp", mcp.NewClient(fmt.Sprintf("http://%s", addr)))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      apiServer,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serverErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Printf("HTTP server listening on %s", addr)
		log.Printf("REST API: http://%s/api", addr)
		log.Printf("WebSocket: ws://%s/ws?session=<session_id>", addr)
		log.Printf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	if cmd.Bool("ngrok") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, cmd, apiServer)
		}()
	}

	select {
	case <-ctx.Done():
		log.Println("Shutting down...")
	case err := <-serverErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("Server stopped")
	return nil
}

// runNgrokTunnel serves handler through an ngrok tunnel until ctx is done
func runNgrokTunnel(ctx context.Context, cmd *cli.Command, handler http.Handler) {
	authToken := cmd.String("ngrok-auth")
	if authToken == "" {
		log.Println("WARNING: Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Println("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if domain := cmd.String("ngrok-domain"); domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		log.Printf("Using custom ngrok domain: %s", domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}
	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	log.Printf("🚀 Ngrok tunnel established: %s", ngrokURL)
	log.Printf("  REST API (ngrok): %s/api", ngrokURL)
	log.Printf("  WebSocket (ngrok): %s/ws?session=<session_id>", ngrokURL)
	log.Printf("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}

// initializeServices wires the config and session managers into the game service
func initializeServices(configDir string) (service.GameService, *session.Manager, error) {
	configManager, err := config.NewManager(configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	sessionManager := session.NewManager()
	return service.NewGameService(sessionManager, configManager), sessionManager, nil
}

// sessionCleanupRoutine periodically removes sessions that have not been accessed
// within sessionMaxAge.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(sessionMaxAge); removed > 0 {
				log.Printf("Cleaned up %d expired sessions", removed)
			}
		}
	}
}

// runStdioMCP runs an MCP stdio server. It reuses the external API when reachable and
// otherwise starts an internal HTTP API on a random loopback port.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	// stdout carries the protocol
	log.SetOutput(os.Stderr)

	baseURL := strings.TrimSuffix(cmd.String("api-url"), "/")
	log.Printf("Checking for external API server at %s...", baseURL)

	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(baseURL + "/api/health")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		log.Printf("External API server found at %s, using it for MCP", baseURL)
	} else {
		log.Printf("No external API server found, starting internal HTTP server")

		gameService, sessions, err := initializeServices(cmd.String("config-dir"))
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		go sessionCleanupRoutine(ctx, sessions, sessionCleanupInterval)

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		baseURL = "http://" + listener.Addr().String()
		log.Printf("Starting internal HTTP server on %s for MCP stdio", listener.Addr())

		hub := websocket.NewHub()
		go hub.Run()

		httpServer := &http.Server{Handler: api.NewServer(gameService, hub)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.Printf("Internal HTTP server error: %v", err)
			}
		}()
		defer httpServer.Close()
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Println("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// loadGameConfig resolves name in configDir. Without a config directory the built-in
// classic configuration is used.
func loadGameConfig(configDir, name string) (*engine.GameConfig, error) {
	manager, err := config.NewManager(configDir)
	if err != nil {
		if name == "" || name == config.DefaultConfigName {
			return engine.DefaultConfig(), nil
		}
		return nil, err
	}
	if name == "" {
		return manager.GetDefault(), nil
	}
	return manager.LoadConfig(name)
}

// seededConfig returns a copy of base spawning from seed
func seededConfig(base *engine.GameConfig, seed uint64) *engine.GameConfig {
	c := *base
	c.Seed = seed
	return &c
}

func runPlay(ctx context.Context, cmd *cli.Command) error {
	base, err := loadGameConfig(cmd.String("config-dir"), cmd.String("config"))
	if err != nil {
		return err
	}
	e, err := engine.NewEngine(seededConfig(base, cmd.Uint64("seed")))
	if err != nil {
		return err
	}

	// The terminal belongs to the game
	if path := cmd.String("log-file"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		log.SetOutput(f)
	} else {
		log.SetOutput(io.Discard)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to init screen: %w", err)
	}
	defer screen.Fini()

	err = tui.New(screen, e).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runAutoplay(ctx context.Context, cmd *cli.Command) error {
	opts := autoplayOptions{
		Strategy: cmd.String("strategy"),
		Games:    cmd.Int("games"),
		Seed:     cmd.Uint64("seed"),
		MaxMoves: cmd.Int("max-moves"),
		Boards:   cmd.Bool("boards"),
		Delay:    cmd.Duration("delay"),
	}

	if serverURL := cmd.String("url"); serverURL != "" {
		return autoplayRemote(ctx, os.Stdout, client.New(serverURL), cmd.String("config"), opts)
	}

	base, err := loadGameConfig(cmd.String("config-dir"), cmd.String("config"))
	if err != nil {
		return err
	}
	return autoplay(ctx, os.Stdout, base, opts)
}

type autoplayOptions struct {
	Strategy string
	Games    int
	Seed     uint64
	MaxMoves int
	Boards   bool
	Delay    time.Duration
}

// remoteMaxStall bounds consecutive server moves that change nothing
const remoteMaxStall = 8

// autoplayRemote plays one game in a new server session so that it can be followed
// with the watch command
func autoplayRemote(ctx context.Context, w io.Writer, c *client.Client, configID string, opts autoplayOptions) error {
	info, err := c.CreateSession(ctx, configID)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "session %s config=%s (follow with: doge48 watch --session %s)\n", info.ID, info.ConfigName, info.ID)

	s, err := strategy.New(opts.Strategy, engine.NewRandomSource(opts.Seed))
	if err != nil {
		return err
	}
	if closer, ok := s.(interface{ Close() }); ok {
		defer closer.Close()
	}

	state := info.GameState
	moves, stall := 0, 0
	for !state.GameOver && (opts.MaxMoves <= 0 || moves < opts.MaxMoves) && stall < remoteMaxStall {
		board := strategy.BoardFromState(state)
		if len(board.Possible) == 0 {
			break
		}
		dir, err := s.Next(board)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", strategy.ErrStrategyFailed, s.Name(), err)
		}

		result, err := c.Move(ctx, info.ID, dir.String())
		if err != nil {
			return err
		}
		moves++
		state = result.GameState
		if result.Success {
			stall = 0
		} else {
			stall++
		}

		if opts.Delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(opts.Delay):
			}
		}
	}

	fmt.Fprintf(w, "session %s strategy=%s moves=%d max=%d tiles=%d game_over=%v\n",
		info.ID, s.Name(), moves, state.MaxValue, state.TileCount, state.GameOver)
	if opts.Boards {
		for _, row := range state.Board {
			fmt.Fprintf(w, "  %s\n", row)
		}
	}
	return nil
}

// autoplay plays opts.Games seeded games and writes one line per game plus averages
func autoplay(ctx context.Context, w io.Writer, base *engine.GameConfig, opts autoplayOptions) error {
	if opts.Games < 1 {
		opts.Games = 1
	}

	var totalMoves, totalMerges, bestValue int
	for i := 0; i < opts.Games; i++ {
		seed := opts.Seed + uint64(i)
		e, err := engine.NewEngine(seededConfig(base, seed))
		if err != nil {
			return err
		}
		s, err := strategy.New(opts.Strategy, engine.NewRandomSource(seed))
		if err != nil {
			return err
		}

		summary, err := strategy.Play(ctx, e, s, opts.MaxMoves)
		if closer, ok := s.(interface{ Close() }); ok {
			closer.Close()
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "game %d seed=%d strategy=%s moves=%d merges=%d max=%d tiles=%d reason=%s\n",
			i+1, seed, summary.Strategy, summary.Moves, summary.Merges, summary.MaxValue, summary.Tiles, summary.Reason)
		if opts.Boards {
			for _, row := range e.Grid().Board() {
				fmt.Fprintf(w, "  %s\n", row)
			}
		}

		totalMoves += summary.Moves
		totalMerges += summary.Merges
		bestValue = max(bestValue, summary.MaxValue)
	}

	if opts.Games > 1 {
		fmt.Fprintf(w, "games=%d avg_moves=%.1f avg_merges=%.1f best=%d\n",
			opts.Games, float64(totalMoves)/float64(opts.Games), float64(totalMerges)/float64(opts.Games), bestValue)
	}
	return nil
}

func runWatch(ctx context.Context, cmd *cli.Command) error {
	sessionID := cmd.String("session")
	log.Printf("Watching session %s at %s", sessionID, cmd.String("url"))

	err := websocket.Watch(ctx, cmd.String("url"), sessionID, func(m *websocket.Message) error {
		printWatchMessage(os.Stdout, m)
		return nil
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// printWatchMessage prints state updates as boards and other events as one line
func printWatchMessage(w io.Writer, m *websocket.Message) {
	if m.GameState == nil {
		fmt.Fprintf(w, "[%s] %s\n", m.SessionID, m.Event)
		return
	}

	state := m.GameState
	fmt.Fprintf(w, "[%s] tiles=%d max=%d moves=%d\n", m.SessionID, state.TileCount, state.MaxValue, state.CurrentMovesCount)
	for _, row := range state.Board {
		fmt.Fprintf(w, "  %s\n", row)
	}
	if state.GameOver {
		fmt.Fprintln(w, "  GAME OVER")
	} else if state.Message != "" {
		fmt.Fprintf(w, "  %s\n", state.Message)
	}
}
