package engine

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Game state management
	GetState() *GameState
	Snapshot() *GameState
	Reset() *GameState
	IsGameOver() bool

	// Movement operations
	Move(direction string) bool
	CanMove(direction string) bool
	GetPossibleMoves() []string

	// Board access
	Tiles() []Tile
	TileAt(x, y int) (Tile, bool)

	// Configuration
	GetConfig() *GameConfig
	SetConfig(config *GameConfig) error

	// History
	GetMoveHistory() []MoveHistoryEntry
	GetLastMove() *MoveHistoryEntry
}

// GameEngine implements the Engine interface on top of a Grid
type GameEngine struct {
	grid   *Grid
	state  *GameState
	config *GameConfig
	rng    RandomSource
}

// NewEngine creates a new game engine with the provided configuration.
// The spawn source is seeded from config.Seed, or from the clock when the seed is zero.
func NewEngine(config *GameConfig) (*GameEngine, error) {
	if config == nil {
		return nil, fmt.Errorf("config validation: config is nil")
	}
	return NewEngineWithRand(config, NewRandomSource(config.Seed))
}

// NewEngineWithRand creates a game engine that spawns tiles from rng
func NewEngineWithRand(config *GameConfig, rng RandomSource) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = NewRandomSource(config.Seed)
	}

	engine := &GameEngine{
		config: config,
		rng:    rng,
	}
	if err := engine.initState(); err != nil {
		return nil, err
	}

	return engine, nil
}

// NewEngineWithDefaults creates a new game engine with the classic configuration
func NewEngineWithDefaults() *GameEngine {
	engine, err := NewEngine(DefaultConfig())
	if err != nil {
		// DefaultConfig is always valid
		panic(err)
	}
	return engine
}

// NewRandomSource returns a PCG source for seed, or a clock-seeded one when seed is zero
func NewRandomSource(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// GetState returns the engine's live state. It changes with every move; use Snapshot
// when the state leaves the goroutine that owns the engine.
func (e *GameEngine) GetState() *GameState {
	return e.state
}

// Snapshot returns a deep copy of the current state
func (e *GameEngine) Snapshot() *GameState {
	return e.state.Clone()
}

// Reset resets the game to initial state
func (e *GameEngine) Reset() *GameState {
	// Preserve cumulative history and totals across resets
	prevHistory := e.state.MoveHistory
	prevTotal := e.state.TotalMoves

	// The config was validated on construction, so this cannot fail
	_ = e.initState()

	e.state.MoveHistory = prevHistory
	e.state.TotalMoves = prevTotal

	return e.state
}

// IsGameOver returns whether the game is over
func (e *GameEngine) IsGameOver() bool {
	return e.state.GameOver
}

// Move slides the tiles in the specified direction and spawns a tile if anything changed,
// or if the grid was empty.
// It returns whether the grid changed. Every call is recorded in the move history.
func (e *GameEngine) Move(direction string) bool {
	entry := MoveHistoryEntry{Action: direction}

	dir, ok := ParseDirection(direction)
	switch {
	case e.state.GameOver:
		e.state.Message = e.gameOverMessage()
	case !ok:
		e.state.Message = e.config.Messages.InvalidDirection
		if e.state.Message == "" {
			e.state.Message = fmt.Sprintf("Unknown direction %q", direction)
		}
	default:
		entry.Action = dir.String()
		opening := e.grid.Len() == 0
		result := e.grid.Move(dir)
		// On an empty grid the first input spawns the first tile
		entry.Changed = result.Changed || opening
		entry.Moved = result.Moved
		entry.Merged = result.Merged

		if entry.Changed {
			if spawned, ok := e.grid.spawn(e.rng); ok {
				entry.Spawned = &spawned
			}
			e.state.Message = e.formatMessage(e.config.Messages.Moved)
		} else {
			e.state.Message = e.config.Messages.NoChange
		}

		if e.grid.IsTerminal() {
			e.state.GameOver = true
			e.state.Message = e.gameOverMessage()
		}
	}

	e.refreshState()
	entry.TileCount = e.grid.Len()
	e.state.AddMoveToHistory(entry)

	return entry.Changed
}

// CanMove checks if moving in the specified direction would change the grid
func (e *GameEngine) CanMove(direction string) bool {
	if e.state.GameOver {
		return false
	}
	dir, ok := ParseDirection(direction)
	if !ok {
		return false
	}
	return e.grid.Len() == 0 || e.grid.CanMove(dir)
}

// GetPossibleMoves returns all directions that would change the grid
func (e *GameEngine) GetPossibleMoves() []string {
	if e.state.GameOver {
		return nil
	}
	if e.grid.Len() == 0 {
		return DirectionNames(Directions)
	}
	return DirectionNames(e.grid.PossibleMoves())
}

// Tiles returns a snapshot of the tiles on the grid
func (e *GameEngine) Tiles() []Tile {
	return e.grid.Tiles()
}

// TileAt returns the tile at (x, y), if any
func (e *GameEngine) TileAt(x, y int) (Tile, bool) {
	return e.grid.At(x, y)
}

// Grid returns a copy of the underlying grid
func (e *GameEngine) Grid() *Grid {
	return e.grid.Clone()
}

// GridSize returns the side length of the grid
func (e *GameEngine) GridSize() int {
	return e.grid.Size()
}

// GetConfig returns the current game configuration
func (e *GameEngine) GetConfig() *GameConfig {
	return e.config
}

// SetConfig sets a new game configuration and starts a new game
func (e *GameEngine) SetConfig(config *GameConfig) error {
	if err := ValidateGameConfig(config); err != nil {
		return err
	}

	e.config = config
	return e.initState()
}

// GetMoveHistory returns a copy of the complete move history
func (e *GameEngine) GetMoveHistory() []MoveHistoryEntry {
	return cloneHistory(e.state.MoveHistory)
}

// GetLastMove returns the last move made, or nil if no moves
func (e *GameEngine) GetLastMove() *MoveHistoryEntry {
	if len(e.state.MoveHistory) == 0 {
		return nil
	}
	return &e.state.MoveHistory[len(e.state.MoveHistory)-1]
}

// BulkMove executes multiple moves in sequence, returning the changed flag for each
func (e *GameEngine) BulkMove(moves []string) []bool {
	results := make([]bool, 0, len(moves))

	for _, direction := range moves {
		// Stop if game is over
		if e.IsGameOver() {
			break
		}

		results = append(results, e.Move(direction))
	}

	return results
}

// AddMoveToHistory appends a move to the cumulative history and the current segment
func (gs *GameState) AddMoveToHistory(entry MoveHistoryEntry) {
	entry.Timestamp = time.Now().Unix()
	entry.MoveNumber = gs.TotalMoves + 1

	gs.MoveHistory = append(gs.MoveHistory, entry)
	gs.TotalMoves++

	gs.CurrentMoves = append(gs.CurrentMoves, entry)
	gs.CurrentMovesCount++
}

// initState builds a fresh grid and state from the current config
func (e *GameEngine) initState() error {
	grid, err := newGridFromConfig(e.config, e.rng)
	if err != nil {
		return err
	}
	e.grid = grid

	e.state = &GameState{
		GridSize:          e.config.GridSize,
		Message:           e.config.Messages.Welcome,
		ConfigName:        e.config.Name,
		MoveHistory:       []MoveHistoryEntry{},
		CurrentMoves:      []MoveHistoryEntry{},
		CurrentMovesCount: 0,
	}
	if grid.IsTerminal() {
		e.state.GameOver = true
		e.state.Message = e.gameOverMessage()
	}
	e.refreshState()
	return nil
}

// refreshState recomputes the derived views of the grid
func (e *GameEngine) refreshState() {
	tiles := e.grid.Tiles()
	e.state.Tiles = tiles
	e.state.TileCount = len(tiles)
	e.state.MaxRank = MaxRank(tiles)
	e.state.MaxValue = 0
	if len(tiles) > 0 {
		e.state.MaxValue = RankValue(e.state.MaxRank)
	}
	e.state.TotalValue = TotalValue(tiles)
	e.state.Board = e.grid.Board()
	e.state.PossibleMoves = e.GetPossibleMoves()
}

func (e *GameEngine) gameOverMessage() string {
	return e.formatMessage(e.config.Messages.GameOver)
}

func (e *GameEngine) formatMessage(format string) string {
	if format == "" {
		return ""
	}
	return fmt.Sprintf(format, e.grid.Len())
}
