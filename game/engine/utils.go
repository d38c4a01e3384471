package engine

import "strconv"

// RankValue returns 2^rank, the value displayed for a tile of that rank
func RankValue(rank int) int {
	if rank < 0 {
		return 0
	}
	return 1 << rank
}

// TotalValue sums the displayed values of all tiles. Merges keep it constant; spawns add 2.
func TotalValue(tiles []Tile) int {
	total := 0
	for _, t := range tiles {
		total += t.Value()
	}
	return total
}

// MaxRank returns the highest rank among tiles, or 0 for an empty set
func MaxRank(tiles []Tile) int {
	highest := 0
	for _, t := range tiles {
		if t.Rank > highest {
			highest = t.Rank
		}
	}
	return highest
}

// CountRank counts tiles of a specific rank
func CountRank(tiles []Tile, rank int) int {
	count := 0
	for _, t := range tiles {
		if t.Rank == rank {
			count++
		}
	}
	return count
}

// EmptyCells returns the unoccupied coordinates of the grid in row-major order
func EmptyCells(g *Grid) []Position {
	occupied := make(map[Position]bool, g.Len())
	for _, t := range g.tiles {
		occupied[t.Pos()] = true
	}

	var empty []Position
	for y := 0; y < g.size; y++ {
		for x := 0; x < g.size; x++ {
			if !occupied[Position{X: x, Y: y}] {
				empty = append(empty, Position{X: x, Y: y})
			}
		}
	}
	return empty
}

// Label returns the display text for a rank, falling back to its numeric value
func Label(config *GameConfig, rank int) string {
	if config != nil {
		if label, ok := config.Labels[rank]; ok && label != "" {
			return label
		}
	}
	return strconv.Itoa(RankValue(rank))
}

// DirectionNames converts directions to their lowercase names
func DirectionNames(dirs []Direction) []string {
	names := make([]string, 0, len(dirs))
	for _, d := range dirs {
		names = append(names, d.String())
	}
	return names
}
