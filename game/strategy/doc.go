// Package strategy plays Doge48 games automatically.
//
// Built-in strategies:
//   - corner: prefers up, left, right, down, in that order
//   - cycle: rotates up, right, down, left, skipping moves that change nothing
//   - random: uniform over the possible moves
//
// Scripted strategies are Lua files defining next_move(board) and are selected
// with the "lua:" prefix, e.g. "lua:scripts/snake.lua". See LuaStrategy for the
// board table layout.
//
// Play runs one strategy against an engine and returns a Summary:
//
//	e, _ := engine.NewEngine(cfg)
//	s, _ := strategy.New("corner", nil)
//	summary, err := strategy.Play(ctx, e, s, 0)
package strategy
