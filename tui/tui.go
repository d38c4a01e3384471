package tui

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"

	"github.com/wricardo/mcp-training/doge48/game/engine"
)

const (
	cellWidth  = 6
	cellHeight = 1
	helpText   = "arrows/hjkl/wasd move • r reset • q quit"
)

// rankPalette colours tiles by rank; ranks past the end reuse the last entry
var rankPalette = []tcell.Color{
	tcell.ColorDefault,
	tcell.ColorWhite,
	tcell.ColorLightYellow,
	tcell.ColorYellow,
	tcell.ColorOrange,
	tcell.ColorDarkOrange,
	tcell.ColorRed,
	tcell.ColorFuchsia,
	tcell.ColorPurple,
	tcell.ColorBlue,
	tcell.ColorTeal,
	tcell.ColorGreen,
}

// RankStyle returns the style a tile of rank is drawn with
func RankStyle(rank int) tcell.Style {
	if rank <= 0 {
		return tcell.StyleDefault.Foreground(tcell.ColorGray)
	}
	if rank >= len(rankPalette) {
		rank = len(rankPalette) - 1
	}
	style := tcell.StyleDefault.Foreground(rankPalette[rank])
	if rank >= engine.SpawnRank+3 {
		style = style.Bold(true)
	}
	return style
}

// Game is an interactive terminal session over a local engine
type Game struct {
	screen tcell.Screen
	engine *engine.GameEngine
	status string
}

// New wraps an initialised screen. The caller owns screen.Fini.
func New(screen tcell.Screen, e *engine.GameEngine) *Game {
	return &Game{
		screen: screen,
		engine: e,
		status: e.GetState().Message,
	}
}

// Run draws the board and handles keys until the player quits or ctx is done
func (g *Game) Run(ctx context.Context) error {
	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := g.screen.PollEvent()
			if ev == nil {
				// screen finalised
				close(events)
				return
			}
			events <- ev
		}
	}()

	g.Draw()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if !g.HandleKey(ev.Key(), ev.Rune()) {
					return nil
				}
			case *tcell.EventResize:
				g.screen.Sync()
			}
			g.Draw()
		}
	}
}

// HandleKey applies one key press. It returns false when the player quits.
func (g *Game) HandleKey(key tcell.Key, r rune) bool {
	switch key {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyUp:
		g.move(engine.Up)
	case tcell.KeyDown:
		g.move(engine.Down)
	case tcell.KeyLeft:
		g.move(engine.Left)
	case tcell.KeyRight:
		g.move(engine.Right)
	case tcell.KeyRune:
		switch r {
		case 'q', 'Q':
			return false
		case 'r', 'R':
			g.status = g.engine.Reset().Message
		case 'k', 'w':
			g.move(engine.Up)
		case 'j', 's':
			g.move(engine.Down)
		case 'h', 'a':
			g.move(engine.Left)
		case 'l', 'd':
			g.move(engine.Right)
		}
	}
	return true
}

func (g *Game) move(dir engine.Direction) {
	if g.engine.IsGameOver() {
		g.status = "Game over, press r to play again"
		return
	}
	g.engine.Move(dir.String())
	g.status = g.engine.GetState().Message
}

// Draw renders the whole frame
func (g *Game) Draw() {
	g.screen.Clear()

	state := g.engine.GetState()
	config := g.engine.GetConfig()
	size := g.engine.GridSize()

	header := fmt.Sprintf("Doge48 • %s • tiles %d/%d • free %d • max %d (x%d) • moves %d",
		state.ConfigName, state.TileCount, size*size, len(engine.EmptyCells(g.engine.Grid())),
		state.MaxValue, engine.CountRank(state.Tiles, state.MaxRank), state.CurrentMovesCount)
	g.drawText(0, 0, tcell.StyleDefault.Bold(true), header)

	top := 2
	border := tcell.StyleDefault.Foreground(tcell.ColorGray)
	rule := "+" + strings.Repeat(strings.Repeat("-", cellWidth)+"+", size)
	for y := 0; y < size; y++ {
		row := top + y*(cellHeight+1)
		g.drawText(0, row, border, rule)
		for x := 0; x < size; x++ {
			col := x * (cellWidth + 1)
			g.drawText(col, row+1, border, "|")

			text, style := "·", RankStyle(0)
			if tile, ok := g.engine.TileAt(x, y); ok {
				text, style = engine.Label(config, tile.Rank), RankStyle(tile.Rank)
			}
			g.drawText(col+1, row+1, style, center(text, cellWidth))
		}
		g.drawText(size*(cellWidth+1), row+1, border, "|")
	}
	bottom := top + size*(cellHeight+1)
	g.drawText(0, bottom, border, rule)

	status := g.status
	statusStyle := tcell.StyleDefault
	if state.GameOver {
		statusStyle = statusStyle.Foreground(tcell.ColorRed).Bold(true)
	}
	g.drawText(0, bottom+2, statusStyle, status)
	g.drawText(0, bottom+3, tcell.StyleDefault.Foreground(tcell.ColorGray), helpText)

	g.screen.Show()
}

func (g *Game) drawText(x, y int, style tcell.Style, text string) {
	for _, r := range text {
		g.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

// center pads text to width, truncating from the left when it does not fit
func center(text string, width int) string {
	n := utf8.RuneCountInString(text)
	if n >= width {
		runes := []rune(text)
		return string(runes[n-width:])
	}
	left := (width - n) / 2
	return strings.Repeat(" ", left) + text + strings.Repeat(" ", width-n-left)
}
