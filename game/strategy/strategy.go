package strategy

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/wricardo/mcp-training/doge48/game/engine"
)

var (
	// ErrNoMoves is returned when a strategy is asked to pick from a board with no possible move
	ErrNoMoves = errors.New("no possible moves")

	// ErrStrategyFailed wraps failures inside a strategy, e.g. a script error
	ErrStrategyFailed = errors.New("strategy failed")

	// ErrUnknownStrategy is returned by New for names it does not recognise
	ErrUnknownStrategy = errors.New("unknown strategy")
)

// LuaPrefix selects a scripted strategy, e.g. "lua:scripts/snake.lua"
const LuaPrefix = "lua:"

// Board is the read-only view a strategy decides on
type Board struct {
	Size     int
	Tiles    []engine.Tile
	Possible []engine.Direction
	MaxRank  int
}

// Strategy picks the next direction for a board
type Strategy interface {
	Name() string
	Next(board Board) (engine.Direction, error)
}

// BoardOf snapshots the engine's grid
func BoardOf(e *engine.GameEngine) Board {
	return BoardFromState(e.GetState())
}

// Names lists the built-in strategies
func Names() []string {
	return []string{"corner", "cycle", "random"}
}

// New returns the strategy called name. Names starting with "lua:" load a script.
func New(name string, rng engine.RandomSource) (Strategy, error) {
	if path, ok := strings.CutPrefix(name, LuaPrefix); ok {
		return NewLuaStrategy(path)
	}

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "corner", "":
		return Corner{}, nil
	case "cycle":
		return &Cycle{}, nil
	case "random":
		if rng == nil {
			rng = engine.NewRandomSource(0)
		}
		return &Random{rng: rng}, nil
	default:
		return nil, fmt.Errorf("%w: %q (use %s or %s<file>)", ErrUnknownStrategy, name, strings.Join(Names(), ", "), LuaPrefix)
	}
}

// firstPossible returns the first direction of order that is possible on board
func firstPossible(board Board, order []engine.Direction) (engine.Direction, int, bool) {
	for i, d := range order {
		if slices.Contains(board.Possible, d) {
			return d, i, true
		}
	}
	return engine.NoDirection, -1, false
}

// Corner keeps the largest tiles in the top-left corner
type Corner struct{}

var cornerOrder = []engine.Direction{engine.Up, engine.Left, engine.Right, engine.Down}

func (Corner) Name() string { return "corner" }

func (Corner) Next(board Board) (engine.Direction, error) {
	d, _, ok := firstPossible(board, cornerOrder)
	if !ok {
		return engine.NoDirection, ErrNoMoves
	}
	return d, nil
}

// Cycle rotates clockwise, skipping directions that change nothing
type Cycle struct {
	next int
}

var cycleOrder = []engine.Direction{engine.Up, engine.Right, engine.Down, engine.Left}

func (c *Cycle) Name() string { return "cycle" }

func (c *Cycle) Next(board Board) (engine.Direction, error) {
	n := len(cycleOrder)
	rotated := make([]engine.Direction, 0, n)
	for i := range n {
		rotated = append(rotated, cycleOrder[(c.next+i)%n])
	}

	d, i, ok := firstPossible(board, rotated)
	if !ok {
		return engine.NoDirection, ErrNoMoves
	}
	c.next = (c.next + i + 1) % n
	return d, nil
}

// Random picks uniformly among the possible moves
type Random struct {
	rng engine.RandomSource
}

// NewRandom returns a random strategy drawing from rng
func NewRandom(rng engine.RandomSource) *Random {
	return &Random{rng: rng}
}

func (r *Random) Name() string { return "random" }

func (r *Random) Next(board Board) (engine.Direction, error) {
	if len(board.Possible) == 0 {
		return engine.NoDirection, ErrNoMoves
	}
	return board.Possible[r.rng.IntN(len(board.Possible))], nil
}

// Stop reasons reported in Summary.Reason
const (
	ReasonGameOver  = "game_over"
	ReasonNoMoves   = "no_moves"
	ReasonMoveLimit = "move_limit"
	ReasonStalled   = "stalled"
	ReasonCanceled  = "canceled"
)

// maxStall bounds consecutive moves that change nothing
const maxStall = 8

// Summary describes a finished autoplay run
type Summary struct {
	Strategy     string `json:"strategy"`
	Moves        int    `json:"moves"`
	ChangedMoves int    `json:"changed_moves"`
	Merges       int    `json:"merges"`
	MaxRank      int    `json:"max_rank"`
	MaxValue     int    `json:"max_value"`
	Tiles        int    `json:"tiles"`
	TotalValue   int    `json:"total_value"`
	GameOver     bool   `json:"game_over"`
	Reason       string `json:"reason"`
}

// Play drives e with s until the game ends, no move is possible, maxMoves moves
// were made (0 means no limit) or ctx is done. The summary is returned even on error.
func Play(ctx context.Context, e *engine.GameEngine, s Strategy, maxMoves int) (*Summary, error) {
	summary := &Summary{Strategy: s.Name()}
	stall := 0

	var err error
	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			summary.Reason = ReasonCanceled
			err = ctxErr
			break
		}
		if e.IsGameOver() {
			summary.Reason = ReasonGameOver
			break
		}
		if maxMoves > 0 && summary.Moves >= maxMoves {
			summary.Reason = ReasonMoveLimit
			break
		}

		board := BoardOf(e)
		if len(board.Possible) == 0 {
			summary.Reason = ReasonNoMoves
			break
		}

		dir, nextErr := s.Next(board)
		if nextErr != nil {
			if errors.Is(nextErr, ErrNoMoves) {
				summary.Reason = ReasonNoMoves
				break
			}
			err = fmt.Errorf("%w: %s: %v", ErrStrategyFailed, s.Name(), nextErr)
			break
		}

		changed := e.Move(dir.String())
		summary.Moves++
		if last := e.GetLastMove(); last != nil {
			summary.Merges += last.Merged
		}
		if changed {
			summary.ChangedMoves++
			stall = 0
		} else if stall++; stall >= maxStall {
			summary.Reason = ReasonStalled
			break
		}
	}

	state := e.GetState()
	summary.MaxRank = state.MaxRank
	summary.MaxValue = state.MaxValue
	summary.Tiles = state.TileCount
	summary.TotalValue = state.TotalValue
	summary.GameOver = state.GameOver
	return summary, err
}

// BoardFromState builds a board from a game state received over the API
func BoardFromState(state *engine.GameState) Board {
	board := Board{
		Size:    state.GridSize,
		Tiles:   state.Tiles,
		MaxRank: state.MaxRank,
	}
	if state.GameOver {
		return board
	}
	for _, name := range state.PossibleMoves {
		if d, ok := engine.ParseDirection(name); ok {
			board.Possible = append(board.Possible, d)
		}
	}
	return board
}
