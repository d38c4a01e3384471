package engine

import (
	"math/rand/v2"
	"slices"
	"testing"
)

func TestEmptyCells(t *testing.T) {
	g := mustGrid(t, 2, Tile{X: 1, Y: 0, Rank: 1}, Tile{X: 0, Y: 1, Rank: 2})

	want := []Position{{X: 0, Y: 0}, {X: 1, Y: 1}}
	if got := EmptyCells(g); !slices.Equal(got, want) {
		t.Errorf("EmptyCells() = %v, want %v", got, want)
	}

	full := mustGrid(t, 1, Tile{X: 0, Y: 0, Rank: 1})
	if got := EmptyCells(full); len(got) != 0 {
		t.Errorf("Expected no empty cells on a full grid, got %v", got)
	}
}

func TestTrySpawn_LandsOnEmptyCell(t *testing.T) {
	g, _ := NewGrid(4)
	rng := rand.New(rand.NewPCG(7, 8))

	for g.Len() < 16 {
		empty := EmptyCells(g)
		before := g.Tiles()
		if !g.TrySpawn(rng) {
			t.Fatalf("spawn failed with %d empty cells", len(empty))
		}

		var spawned *Tile
		for _, tile := range g.Tiles() {
			if !slices.Contains(before, tile) {
				spawned = &tile
			}
		}
		if spawned == nil || !slices.Contains(empty, spawned.Pos()) {
			t.Fatalf("spawned tile %+v is not on one of %v", spawned, empty)
		}
		if got := len(EmptyCells(g)); got != len(empty)-1 {
			t.Fatalf("Expected %d empty cells after spawn, got %d", len(empty)-1, got)
		}
	}
}

func TestCountRank(t *testing.T) {
	tiles := []Tile{{X: 0, Y: 0, Rank: 3}, {X: 1, Y: 0, Rank: 1}, {X: 2, Y: 0, Rank: 3}}

	tests := []struct {
		rank, want int
	}{
		{3, 2},
		{1, 1},
		{2, 0},
	}
	for _, tt := range tests {
		if got := CountRank(tiles, tt.rank); got != tt.want {
			t.Errorf("CountRank(%d) = %d, want %d", tt.rank, got, tt.want)
		}
	}
	if got := CountRank(nil, 1); got != 0 {
		t.Errorf("CountRank(nil) = %d, want 0", got)
	}
}
