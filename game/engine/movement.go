package engine

import "sort"

// Move slides every tile toward dir, merging equal neighbours, and mutates the grid in place.
//
// Tiles are visited nearest-wall first, so each tile only ever meets tiles that are already
// final for this move. A tile is compared with the tile it would come to rest against; on
// equal rank it is removed and that tile's rank goes up by one. A tile that grew in this
// move accepts no second merge. Unknown directions leave the grid untouched.
func (g *Grid) Move(dir Direction) MoveResult {
	var result MoveResult

	sw, ok := dir.sweep()
	if !ok {
		return result
	}

	sort.SliceStable(g.tiles, func(i, j int) bool {
		return sw.key(g.tiles[i]) < sw.key(g.tiles[j])
	})

	placed := make([]Tile, 0, len(g.tiles))
	grown := make([]bool, 0, len(g.tiles))
	// per line: index in placed of the tile farthest from the wall, and how many tiles sit there
	last := make(map[int]int, g.size)
	count := make(map[int]int, g.size)

	for _, t := range g.tiles {
		line := sw.across(t)

		if i, blocked := last[line]; blocked && placed[i].Rank == t.Rank && !grown[i] {
			placed[i].Rank++
			grown[i] = true
			result.Merged++
			continue
		}

		moved := sw.place(t, count[line], g.size)
		if moved != t {
			result.Moved++
		}
		placed = append(placed, moved)
		grown = append(grown, false)
		last[line] = len(placed) - 1
		count[line]++
	}

	g.tiles = placed
	result.Changed = result.Moved > 0 || result.Merged > 0
	return result
}

// CanMove reports whether moving in dir would change the grid.
func (g *Grid) CanMove(dir Direction) bool {
	return g.Clone().Move(dir).Changed
}

// PossibleMoves returns the directions that would change the grid.
func (g *Grid) PossibleMoves() []Direction {
	var possible []Direction
	for _, dir := range Directions {
		if g.CanMove(dir) {
			possible = append(possible, dir)
		}
	}
	return possible
}
