// Command validate checks the game configuration JSON files of a directory. It checks:
//   - JSON structure, rejecting unknown fields
//   - the rules enforced by the engine (grid size, initial tiles, messages)
//   - message texts that the engine formats with the tile count
//   - labels within the ranks a board of that size can reach
//
// Valid configurations get a short sample game with the corner strategy.
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/doge48/game/engine"
	"github.com/wricardo/mcp-training/doge48/game/strategy"
)

// sampleMoves bounds the sample game played for valid configurations
const sampleMoves = 500

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...any) {
	r.Errors = append(r.Errors, "✓ "+fmt.Sprintf(format, args...))
}

// maxReachableRank is an upper bound on the ranks a board of size n can hold.
// Building rank k needs k-1 distinct smaller tiles alive at once.
func maxReachableRank(n int) int {
	return n * n
}

// validateConfig loads and validates a single configuration JSON file
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	config, err := engine.DecodeGameConfig(bytes.NewReader(data), true)
	if err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	if err := engine.ValidateGameConfig(config); err != nil {
		result.fail("%v", err)
	}

	if name := strings.TrimSuffix(result.File, ".json"); config.Name != "" && config.Name != name {
		result.fail("name %q does not match file name %q", config.Name, name)
	}

	for key, text := range map[string]string{
		"moved":     config.Messages.Moved,
		"game_over": config.Messages.GameOver,
	} {
		if n := strings.Count(text, "%"); n > 1 {
			result.fail("messages.%s must contain a single %%d verb, found %d verbs", key, n)
		}
	}
	if config.Messages.NoChange == "" {
		result.fail("Missing required message: no_change")
	}
	if config.Messages.InvalidDirection == "" {
		result.fail("Missing required message: invalid_direction")
	}

	if config.GridSize >= engine.MinGridSize && config.GridSize <= engine.MaxGridSize {
		limit := maxReachableRank(config.GridSize)
		for rank := range config.Labels {
			if rank > limit {
				result.fail("labels key %d can never appear on a %dx%d board (max rank %d)", rank, config.GridSize, config.GridSize, limit)
			}
		}
		if config.WinRank > limit {
			result.fail("win_rank %d can never be reached on a %dx%d board (max rank %d)", config.WinRank, config.GridSize, config.GridSize, limit)
		}
	}

	if !result.Valid {
		return result
	}

	result.info("Name: %s", config.Name)
	result.info("Grid: %dx%d", config.GridSize, config.GridSize)
	result.info("Initial tiles: %d", config.InitialTiles)
	if config.WinRank > 0 {
		result.info("Win tile: %s", engine.Label(config, config.WinRank))
	}
	if len(config.Labels) > 0 {
		result.info("Labels: %d", len(config.Labels))
	}

	summary, err := sampleGame(config)
	if err != nil {
		result.fail("Sample game failed: %v", err)
		return result
	}
	result.info("Sample corner game: max %d after %d moves (%s)", summary.MaxValue, summary.Moves, summary.Reason)

	return result
}

// sampleGame plays a seeded corner game on a copy of config
func sampleGame(config *engine.GameConfig) (*strategy.Summary, error) {
	c := *config
	c.Seed = 1
	e, err := engine.NewEngine(&c)
	if err != nil {
		return nil, err
	}
	return strategy.Play(context.Background(), e, strategy.Corner{}, sampleMoves)
}

// validateDir validates every *.json file in dir and writes the report to w.
// It returns false when any file is invalid.
func validateDir(w io.Writer, dir string) (bool, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return false, fmt.Errorf("error finding config files: %w", err)
	}
	if len(files) == 0 {
		return false, fmt.Errorf("no config files in %s", dir)
	}

	allValid := true
	for _, file := range files {
		result := validateConfig(file)

		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Errors {
				fmt.Fprintln(w, "  "+info)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Fprintln(w, "  ❌ "+err)
				}
			}
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "✅ All configurations are valid!")
	} else {
		fmt.Fprintln(w, "❌ Some configurations have errors")
	}
	return allValid, nil
}

func main() {
	cmd := &cli.Command{
		Name:      "validate",
		Usage:     "validate Doge48 configuration files",
		ArgsUsage: "[config-dir]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "directory containing game configurations",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := cmd.String("config-dir")
			if cmd.Args().Len() > 0 {
				dir = cmd.Args().First()
			}

			ok, err := validateDir(os.Stdout, dir)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			if !ok {
				return cli.Exit("", 1)
			}
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
