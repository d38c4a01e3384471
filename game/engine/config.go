package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ValidateGameConfig validates a game configuration for correctness and playability
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}

	// Validate required fields
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.Description == "" {
		return fmt.Errorf("config validation: description is required")
	}

	// Validate grid size
	if config.GridSize < MinGridSize || config.GridSize > MaxGridSize {
		return fmt.Errorf("config validation: %w: grid_size must be between %d and %d, got %d",
			ErrInvalidGridSize, MinGridSize, MaxGridSize, config.GridSize)
	}

	// Validate spawn policy
	cells := config.GridSize * config.GridSize
	if config.InitialTiles < 0 || config.InitialTiles > MaxInitialTiles || config.InitialTiles > cells-1 {
		return fmt.Errorf("config validation: initial_tiles must be between 0 and %d, got %d",
			min(MaxInitialTiles, cells-1), config.InitialTiles)
	}
	if config.WinRank < 0 {
		return fmt.Errorf("config validation: win_rank must not be negative, got %d", config.WinRank)
	}

	for rank := range config.Labels {
		if rank < 1 {
			return fmt.Errorf("config validation: labels key %d is not a valid rank", rank)
		}
	}

	// Validate messages
	if config.Messages.Welcome == "" {
		return fmt.Errorf("config validation: messages.welcome is required")
	}
	if config.Messages.GameOver == "" {
		return fmt.Errorf("config validation: messages.game_over is required")
	}

	// Validate format strings
	if !strings.Contains(config.Messages.GameOver, "%d") {
		return fmt.Errorf("config validation: messages.game_over must contain %%d for tile count")
	}
	if config.Messages.Moved != "" && !strings.Contains(config.Messages.Moved, "%d") {
		return fmt.Errorf("config validation: messages.moved must contain %%d for tile count")
	}

	return nil
}

// ErrInvalidConfig marks a configuration that decodes but fails validation
var ErrInvalidConfig = errors.New("invalid configuration")

// DecodeGameConfig reads one JSON configuration without validating it.
// Strict decoding rejects fields GameConfig does not know.
func DecodeGameConfig(r io.Reader, strict bool) (*GameConfig, error) {
	dec := json.NewDecoder(r)
	if strict {
		dec.DisallowUnknownFields()
	}
	var config GameConfig
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &config, nil
}

// LoadGameConfig reads, decodes and validates a configuration file.
// A missing file is reported with an error wrapping fs.ErrNotExist.
func LoadGameConfig(path string) (*GameConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	config, err := DecodeGameConfig(f, false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if err := ValidateGameConfig(config); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, filepath.Base(path), err)
	}
	return config, nil
}

// DefaultConfig returns the classic 4x4 configuration used when no config file is available
func DefaultConfig() *GameConfig {
	config := &GameConfig{
		Name:         "classic",
		Description:  "Classic 4x4 board, one tile at start",
		GridSize:     DefaultGridSize,
		InitialTiles: 1,
		WinRank:      11,
	}
	config.Messages.Welcome = "Welcome to Doge48! Slide the tiles and merge equal numbers."
	config.Messages.Moved = "Tiles on board: %d"
	config.Messages.NoChange = "Nothing moved, no tile spawned"
	config.Messages.InvalidDirection = "Unknown direction, use up, down, left or right"
	config.Messages.GameOver = "Game over! The board holds %d tiles"
	return config
}

// newGridFromConfig creates a grid and applies the initial spawn policy.
func newGridFromConfig(config *GameConfig, rng RandomSource) (*Grid, error) {
	grid, err := NewGrid(config.GridSize)
	if err != nil {
		return nil, err
	}
	for i := 0; i < config.InitialTiles; i++ {
		grid.TrySpawn(rng)
	}
	return grid, nil
}
