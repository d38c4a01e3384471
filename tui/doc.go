// Package tui is the terminal client for Doge48, built on tcell.
//
// It plays against a local engine:
//
//	screen, _ := tcell.NewScreen()
//	_ = screen.Init()
//	defer screen.Fini()
//	err := tui.New(screen, e).Run(ctx)
//
// Tiles are coloured by rank through RankStyle; the engine itself knows nothing
// about presentation.
package tui
