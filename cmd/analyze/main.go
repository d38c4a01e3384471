// Command analyze plays batches of seeded games for every configuration in the
// configs directory and every requested strategy, then prints averages: moves
// per game, merges, final tile count, the best tile reached and how often each
// stop reason occurred.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/lmittmann/tint"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/doge48/game/config"
	"github.com/wricardo/mcp-training/doge48/game/engine"
	"github.com/wricardo/mcp-training/doge48/game/strategy"
)

// Result aggregates the games of one config and strategy
type Result struct {
	Config     string
	Strategy   string
	Games      int
	AvgMoves   float64
	AvgMerges  float64
	AvgTiles   float64
	BestValue  int
	BestLabel  string
	WinRate    float64
	Reasons    map[string]int
	Elapsed    time.Duration
	FailedRuns int
}

// Options control a batch run
type Options struct {
	Games    int
	Seed     uint64
	MaxMoves int
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	handler := tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Value.Kind() == slog.KindAny {
				if _, ok := a.Value.Any().(error); ok {
					return tint.Attr(9, a)
				}
			}
			return a
		},
	})
	return slog.New(handler)
}

// analyze plays opts.Games games of cfg with the strategy called name. Game i uses
// seed opts.Seed+i for both spawns and the strategy.
func analyze(ctx context.Context, logger *slog.Logger, cfg *engine.GameConfig, name string, opts Options) (*Result, error) {
	result := &Result{
		Config:   cfg.Name,
		Strategy: name,
		Reasons:  make(map[string]int),
	}
	start := time.Now()

	var moves, merges, tiles, wins int
	for i := 0; i < opts.Games; i++ {
		seed := opts.Seed + uint64(i)
		c := *cfg
		c.Seed = seed

		e, err := engine.NewEngine(&c)
		if err != nil {
			return nil, err
		}
		s, err := strategy.New(name, engine.NewRandomSource(seed))
		if err != nil {
			return nil, err
		}

		summary, err := strategy.Play(ctx, e, s, opts.MaxMoves)
		if closer, ok := s.(interface{ Close() }); ok {
			closer.Close()
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			logger.Warn("game failed", "config", cfg.Name, "strategy", name, "seed", seed, "err", err)
			result.FailedRuns++
			continue
		}
		logger.Debug("game finished", "config", cfg.Name, "strategy", name, "seed", seed,
			"moves", summary.Moves, "max", summary.MaxValue, "reason", summary.Reason)

		result.Games++
		moves += summary.Moves
		merges += summary.Merges
		tiles += summary.Tiles
		result.Reasons[summary.Reason]++
		if cfg.WinRank > 0 && summary.MaxRank >= cfg.WinRank {
			wins++
		}
		if summary.MaxValue > result.BestValue {
			result.BestValue = summary.MaxValue
			result.BestLabel = engine.Label(cfg, summary.MaxRank)
		}
	}

	result.Elapsed = time.Since(start)
	if result.Games > 0 {
		n := float64(result.Games)
		result.AvgMoves = float64(moves) / n
		result.AvgMerges = float64(merges) / n
		result.AvgTiles = float64(tiles) / n
		result.WinRate = float64(wins) / n
	}
	return result, nil
}

func formatReasons(reasons map[string]int) string {
	keys := make([]string, 0, len(reasons))
	for k := range reasons {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, reasons[k]))
	}
	return strings.Join(parts, " ")
}

// printResults writes one aligned row per result
func printResults(w io.Writer, results []*Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CONFIG\tSTRATEGY\tGAMES\tAVG MOVES\tAVG MERGES\tAVG TILES\tBEST\tWIN%\tREASONS")
	for _, r := range results {
		best := fmt.Sprint(r.BestValue)
		if r.BestLabel != best {
			best = fmt.Sprintf("%d (%s)", r.BestValue, r.BestLabel)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.1f\t%.1f\t%.1f\t%s\t%.0f\t%s\n",
			r.Config, r.Strategy, r.Games, r.AvgMoves, r.AvgMerges, r.AvgTiles, best, r.WinRate*100, formatReasons(r.Reasons))
	}
	return tw.Flush()
}

func run(ctx context.Context, cmd *cli.Command) error {
	level := slog.LevelInfo
	if cmd.Bool("debug") {
		level = slog.LevelDebug
	}
	logger := newLogger(os.Stderr, level)

	manager, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return err
	}

	names := cmd.StringSlice("config")
	if len(names) == 0 {
		infos, err := manager.ListConfigs()
		if err != nil {
			return err
		}
		for _, info := range infos {
			names = append(names, info.ConfigID)
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("no configurations found in %s", cmd.String("config-dir"))
	}

	opts := Options{
		Games:    max(1, cmd.Int("games")),
		Seed:     cmd.Uint64("seed"),
		MaxMoves: cmd.Int("max-moves"),
	}

	var results []*Result
	for _, name := range names {
		cfg, err := manager.LoadConfig(name)
		if err != nil {
			logger.Error("skipping config", "config", name, "err", err)
			continue
		}
		for _, s := range cmd.StringSlice("strategy") {
			logger.Info("analyzing", "config", name, "strategy", s, "games", opts.Games)
			result, err := analyze(ctx, logger, cfg, s, opts)
			if err != nil {
				return err
			}
			logger.Info("done", "config", name, "strategy", s, "elapsed", result.Elapsed.Round(time.Millisecond), "failed", result.FailedRuns)
			results = append(results, result)
		}
	}

	return printResults(os.Stdout, results)
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "simulate strategies over game configurations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "directory containing game configurations",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.StringSliceFlag{Name: "config", Aliases: []string{"c"}, Usage: "configurations to analyze (default: all)"},
			&cli.StringSliceFlag{
				Name:    "strategy",
				Aliases: []string{"s"},
				Value:   strategy.Names(),
				Usage:   fmt.Sprintf("strategies to compare: %s or %s<file>", strings.Join(strategy.Names(), ", "), strategy.LuaPrefix),
			},
			&cli.IntFlag{Name: "games", Aliases: []string{"n"}, Value: 100, Usage: "games per config and strategy"},
			&cli.Uint64Flag{Name: "seed", Value: 1, Usage: "seed of the first game"},
			&cli.IntFlag{Name: "max-moves", Value: 10000, Usage: "move limit per game, 0 for none"},
			&cli.BoolFlag{Name: "debug", Usage: "log every game"},
		},
		Action: run,
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		newLogger(os.Stderr, slog.LevelInfo).Error("analyze failed", "err", err)
		os.Exit(1)
	}
}
