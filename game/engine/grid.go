package engine

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrInvalidGridSize = errors.New("invalid grid size")
	ErrTileOutOfBounds = errors.New("tile out of bounds")
	ErrDuplicateTile   = errors.New("duplicate tile coordinate")
	ErrInvalidRank     = errors.New("invalid tile rank")
)

// RandomSource is the only randomness the grid needs. *math/rand/v2.Rand satisfies it.
type RandomSource interface {
	IntN(n int) int
}

// Grid is the authoritative set of tiles on an N x N board.
//
// Tiles are kept in an unordered slice; no two tiles share a coordinate.
type Grid struct {
	size  int
	tiles []Tile
}

// NewGrid returns an empty grid with the given side length.
func NewGrid(size int) (*Grid, error) {
	if size < MinGridSize {
		return nil, fmt.Errorf("%w: side length must be at least %d, got %d", ErrInvalidGridSize, MinGridSize, size)
	}
	return &Grid{size: size, tiles: make([]Tile, 0, size*size)}, nil
}

// NewGridFromTiles builds a grid from an explicit tile list, checking every invariant.
func NewGridFromTiles(size int, tiles []Tile) (*Grid, error) {
	g, err := NewGrid(size)
	if err != nil {
		return nil, err
	}

	seen := make(map[Position]bool, len(tiles))
	for _, t := range tiles {
		if !g.inBounds(t.X, t.Y) {
			return nil, fmt.Errorf("%w: (%d,%d) on a %dx%d grid", ErrTileOutOfBounds, t.X, t.Y, size, size)
		}
		if t.Rank < 1 {
			return nil, fmt.Errorf("%w: rank %d at (%d,%d)", ErrInvalidRank, t.Rank, t.X, t.Y)
		}
		if seen[t.Pos()] {
			return nil, fmt.Errorf("%w: (%d,%d)", ErrDuplicateTile, t.X, t.Y)
		}
		seen[t.Pos()] = true
		g.tiles = append(g.tiles, t)
	}
	return g, nil
}

// Size returns the side length N
func (g *Grid) Size() int {
	return g.size
}

// Len returns the number of tiles on the grid
func (g *Grid) Len() int {
	return len(g.tiles)
}

// Full reports whether every cell is occupied
func (g *Grid) Full() bool {
	return len(g.tiles) >= g.size*g.size
}

// IsTerminal reports whether the game has ended: exactly N²-1 tiles are on the grid.
func (g *Grid) IsTerminal() bool {
	return len(g.tiles) == g.size*g.size-1
}

// Tiles returns a snapshot of the tiles ordered by row, then column.
func (g *Grid) Tiles() []Tile {
	out := make([]Tile, len(g.tiles))
	copy(out, g.tiles)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}

// At returns the tile at (x, y), if any.
func (g *Grid) At(x, y int) (Tile, bool) {
	for _, t := range g.tiles {
		if t.X == x && t.Y == y {
			return t, true
		}
	}
	return Tile{}, false
}

// Clone returns an independent copy of the grid
func (g *Grid) Clone() *Grid {
	tiles := make([]Tile, len(g.tiles), cap(g.tiles))
	copy(tiles, g.tiles)
	return &Grid{size: g.size, tiles: tiles}
}

// TrySpawn places a rank-1 tile on a uniformly chosen empty cell.
// It returns false without sampling when the grid is full.
func (g *Grid) TrySpawn(rng RandomSource) bool {
	_, ok := g.spawn(rng)
	return ok
}

// spawn is TrySpawn that also reports the placed tile.
func (g *Grid) spawn(rng RandomSource) (Tile, bool) {
	if g.Full() {
		return Tile{}, false
	}

	for {
		x, y := rng.IntN(g.size), rng.IntN(g.size)
		if _, occupied := g.At(x, y); occupied {
			continue
		}
		t := Tile{X: x, Y: y, Rank: SpawnRank}
		g.tiles = append(g.tiles, t)
		return t, true
	}
}

// Board renders the grid as text rows, one cell per column, "." for empty cells.
func (g *Grid) Board() []string {
	cells := make([][]string, g.size)
	width := 1
	for y := range cells {
		cells[y] = make([]string, g.size)
		for x := range cells[y] {
			cells[y][x] = "."
		}
	}
	for _, t := range g.tiles {
		v := strconv.Itoa(t.Value())
		cells[t.Y][t.X] = v
		if len(v) > width {
			width = len(v)
		}
	}

	rows := make([]string, g.size)
	for y, row := range cells {
		var b strings.Builder
		for x, c := range row {
			if x > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(strings.Repeat(" ", width-len(c)))
			b.WriteString(c)
		}
		rows[y] = b.String()
	}
	return rows
}

func (g *Grid) inBounds(x, y int) bool {
	return x >= 0 && x < g.size && y >= 0 && y < g.size
}
