// Package engine provides the core game logic for Doge48.
//
// The engine package implements the game mechanics including:
//   - Grid ownership with the one-tile-per-cell invariant
//   - Directional sliding and merging of equal-rank tiles
//   - Uniform rank-1 spawning from a caller-supplied random source
//   - Terminal detection (N²-1 tiles on an N x N grid)
//   - Configuration loading and validation
//
// Core Types:
//
// Grid is the tile set itself and exposes Move, TrySpawn and IsTerminal.
// The Engine interface wraps a Grid with a GameConfig, a random source and
// a GameState view, and is implemented by GameEngine.
//
// Usage:
//
//	gameEngine, err := engine.NewEngine(engine.DefaultConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	changed := gameEngine.Move("left")
//	state := gameEngine.GetState()
//
// Game Rules:
//
// Every tile has a rank; its displayed value is 2^rank. A move slides all
// tiles toward one wall. When a tile comes to rest against a tile of equal
// rank the two merge into one tile of the next rank. A tile that already grew
// during a move does not merge again in the same move. If anything changed a
// rank-1 tile spawns on a random empty cell. The game ends when N²-1 cells
// are occupied.
package engine
