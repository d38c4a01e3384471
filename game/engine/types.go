package engine

import "slices"

const (
	// Validation constants
	DefaultGridSize = 4
	MinGridSize     = 1
	MaxGridSize     = 16
	MaxInitialTiles = 8
	MaxBulkMoves    = 50

	// SpawnRank is the rank of every spawned tile (value 2).
	SpawnRank = 1
)

// Tile is a single occupied cell. Its displayed value is 2^Rank.
type Tile struct {
	X    int `json:"x"`
	Y    int `json:"y"`
	Rank int `json:"rank"`
}

// Value returns the displayed value of the tile
func (t Tile) Value() int {
	return RankValue(t.Rank)
}

// Position represents x,y coordinates
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Pos returns the tile coordinates
func (t Tile) Pos() Position {
	return Position{X: t.X, Y: t.Y}
}

// MoveResult reports what a single Move did to the grid.
type MoveResult struct {
	Changed bool `json:"changed"`
	Moved   int  `json:"moved"`  // tiles that changed position without merging
	Merged  int  `json:"merged"` // tiles removed by merging
}

// GameConfig represents the game configuration from JSON
type GameConfig struct {
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	GridSize     int            `json:"grid_size"`
	InitialTiles int            `json:"initial_tiles"`
	Seed         uint64         `json:"seed,omitempty"`
	WinRank      int            `json:"win_rank,omitempty"`
	Labels       map[int]string `json:"labels,omitempty"`
	Messages     GameMessages   `json:"messages"`
}

// GameMessages holds the texts shown to the player. Moved and GameOver take the tile count.
type GameMessages struct {
	Welcome          string `json:"welcome"`
	Moved            string `json:"moved"`
	NoChange         string `json:"no_change"`
	InvalidDirection string `json:"invalid_direction"`
	GameOver         string `json:"game_over"`
}

// GameState represents the complete game state
type GameState struct {
	GridSize    int                `json:"grid_size"`
	Tiles       []Tile             `json:"tiles"`
	TileCount   int                `json:"tile_count"`
	MaxRank     int                `json:"max_rank"`
	MaxValue    int                `json:"max_value"`
	TotalValue  int                `json:"total_value"`
	Message     string             `json:"message"`
	GameOver    bool               `json:"game_over"`
	ConfigName  string             `json:"config_name"`
	MoveHistory []MoveHistoryEntry `json:"move_history"`
	TotalMoves  int                `json:"total_moves"`

	// CurrentMoves tracks only the moves since the last reset. It mirrors MoveHistory entries
	// but gets cleared on reset while MoveHistory remains cumulative.
	CurrentMoves      []MoveHistoryEntry `json:"current_moves"`
	CurrentMovesCount int                `json:"current_moves_count"`

	// Computed helper views (not required for core game logic)
	Board         []string `json:"board,omitempty"`
	PossibleMoves []string `json:"possible_moves,omitempty"`
}

// Clone returns a deep copy of the state that shares nothing with gs
func (gs *GameState) Clone() *GameState {
	if gs == nil {
		return nil
	}
	c := *gs
	c.Tiles = slices.Clone(gs.Tiles)
	c.MoveHistory = cloneHistory(gs.MoveHistory)
	c.CurrentMoves = cloneHistory(gs.CurrentMoves)
	c.Board = slices.Clone(gs.Board)
	c.PossibleMoves = slices.Clone(gs.PossibleMoves)
	return &c
}

func cloneHistory(entries []MoveHistoryEntry) []MoveHistoryEntry {
	if entries == nil {
		return nil
	}
	out := make([]MoveHistoryEntry, len(entries))
	for i, entry := range entries {
		if entry.Spawned != nil {
			spawned := *entry.Spawned
			entry.Spawned = &spawned
		}
		out[i] = entry
	}
	return out
}

// MoveHistoryEntry represents a single move in the game history
type MoveHistoryEntry struct {
	Action     string `json:"action"`
	Changed    bool   `json:"changed"`
	Moved      int    `json:"moved"`
	Merged     int    `json:"merged"`
	Spawned    *Tile  `json:"spawned,omitempty"`
	TileCount  int    `json:"tile_count"`
	Timestamp  int64  `json:"timestamp"`
	MoveNumber int    `json:"move_number"`
}
