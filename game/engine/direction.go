package engine

import (
	"errors"
	"strings"
)

// ErrUnknownDirection is returned by callers that treat unparseable input as an error
var ErrUnknownDirection = errors.New("unknown direction")

// Direction is the side of the grid the tiles slide toward.
type Direction int

const (
	NoDirection Direction = iota
	Up
	Down
	Left
	Right
)

// Directions lists every valid direction in the order used for possible-move queries.
var Directions = []Direction{Up, Down, Left, Right}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "unknown"
	}
}

// Valid reports whether d is one of the four sliding directions.
func (d Direction) Valid() bool {
	_, ok := d.sweep()
	return ok
}

// ParseDirection maps user input to a Direction. Single letters and compass names are accepted.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "u", "north":
		return Up, true
	case "down", "d", "south":
		return Down, true
	case "left", "l", "west":
		return Left, true
	case "right", "r", "east":
		return Right, true
	default:
		return NoDirection, false
	}
}

type axis int

const (
	horizontal axis = iota // x changes, y is the cross coordinate
	vertical               // y changes, x is the cross coordinate
)

// sweep holds the whole per-direction policy of a move.
type sweep struct {
	axis axis
	// toHigh is true when the wall is at coordinate size-1 (Down, Right).
	toHigh bool
}

func (d Direction) sweep() (sweep, bool) {
	switch d {
	case Up:
		return sweep{axis: vertical}, true
	case Down:
		return sweep{axis: vertical, toHigh: true}, true
	case Left:
		return sweep{axis: horizontal}, true
	case Right:
		return sweep{axis: horizontal, toHigh: true}, true
	default:
		return sweep{}, false
	}
}

// along returns the coordinate on the sweep axis.
func (s sweep) along(t Tile) int {
	if s.axis == vertical {
		return t.Y
	}
	return t.X
}

// across returns the coordinate that identifies the line the tile slides on.
func (s sweep) across(t Tile) int {
	if s.axis == vertical {
		return t.X
	}
	return t.Y
}

// key orders tiles so that the ones nearest the wall come first.
func (s sweep) key(t Tile) int {
	if s.toHigh {
		return -s.along(t)
	}
	return s.along(t)
}

// place returns t moved to the cell that leaves clearance cells between it and the wall.
func (s sweep) place(t Tile, clearance, size int) Tile {
	pos := clearance
	if s.toHigh {
		pos = size - 1 - clearance
	}
	if s.axis == vertical {
		t.Y = pos
	} else {
		t.X = pos
	}
	return t
}
