package strategy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/wricardo/mcp-training/doge48/game/engine"
)

// luaCallTimeout bounds a single next_move call
const luaCallTimeout = 2 * time.Second

// LuaStrategy asks a script for each move. The script defines
//
//	function next_move(board) ... return "left" end
//
// where board has size, max_rank, tiles (list of {x, y, rank, value}, 0-based
// coordinates), grid (grid[y+1][x+1] is the rank or 0) and possible (direction
// names). A LuaStrategy is not safe for concurrent use.
type LuaStrategy struct {
	name string
	L    *lua.LState
	fn   lua.LValue
}

// NewLuaStrategy loads a script from path
func NewLuaStrategy(path string) (*LuaStrategy, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return NewLuaStrategyFromSource(LuaPrefix+name, string(src))
}

// NewLuaStrategyFromSource compiles src, which must define next_move
func NewLuaStrategyFromSource(name, src string) (*LuaStrategy, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	// Scripts get pure libraries only: no io, os or module loading.
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, fmt.Errorf("%w: open %s library: %v", ErrStrategyFailed, lib.name, err)
		}
	}
	for _, unsafe := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		L.SetGlobal(unsafe, lua.LNil)
	}

	if err := L.DoString(src); err != nil {
		L.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrStrategyFailed, name, err)
	}

	fn := L.GetGlobal("next_move")
	if fn.Type() != lua.LTFunction {
		L.Close()
		return nil, fmt.Errorf("%w: %s does not define function next_move(board)", ErrStrategyFailed, name)
	}

	return &LuaStrategy{name: name, L: L, fn: fn}, nil
}

func (s *LuaStrategy) Name() string { return s.name }

// Close releases the interpreter
func (s *LuaStrategy) Close() {
	s.L.Close()
}

func (s *LuaStrategy) Next(board Board) (engine.Direction, error) {
	if len(board.Possible) == 0 {
		return engine.NoDirection, ErrNoMoves
	}

	ctx, cancel := context.WithTimeout(context.Background(), luaCallTimeout)
	defer cancel()
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	if err := s.L.CallByParam(lua.P{
		Fn:      s.fn,
		NRet:    1,
		Protect: true,
	}, s.boardTable(board)); err != nil {
		return engine.NoDirection, fmt.Errorf("next_move: %w", err)
	}

	ret := s.L.Get(-1)
	s.L.Pop(1)

	name, ok := ret.(lua.LString)
	if !ok {
		return engine.NoDirection, fmt.Errorf("next_move returned %s, want a direction string", ret.Type())
	}
	dir, ok := engine.ParseDirection(string(name))
	if !ok {
		return engine.NoDirection, fmt.Errorf("next_move returned %w %q", engine.ErrUnknownDirection, string(name))
	}
	return dir, nil
}

func (s *LuaStrategy) boardTable(board Board) *lua.LTable {
	L := s.L
	t := L.NewTable()
	t.RawSetString("size", lua.LNumber(board.Size))
	t.RawSetString("max_rank", lua.LNumber(board.MaxRank))

	grid := L.NewTable()
	for y := 0; y < board.Size; y++ {
		row := L.NewTable()
		for x := 0; x < board.Size; x++ {
			row.Append(lua.LNumber(0))
		}
		grid.Append(row)
	}

	tiles := L.NewTable()
	for _, tile := range board.Tiles {
		tt := L.NewTable()
		tt.RawSetString("x", lua.LNumber(tile.X))
		tt.RawSetString("y", lua.LNumber(tile.Y))
		tt.RawSetString("rank", lua.LNumber(tile.Rank))
		tt.RawSetString("value", lua.LNumber(tile.Value()))
		tiles.Append(tt)

		if row, ok := grid.RawGetInt(tile.Y + 1).(*lua.LTable); ok {
			row.RawSetInt(tile.X+1, lua.LNumber(tile.Rank))
		}
	}
	t.RawSetString("tiles", tiles)
	t.RawSetString("grid", grid)

	possible := L.NewTable()
	for _, d := range board.Possible {
		possible.Append(lua.LString(d.String()))
	}
	t.RawSetString("possible", possible)

	return t
}
