// Package websocket pushes live Doge48 board updates to watchers.
//
// Hub groups connections by session ID. Frames are JSON-encoded when they are
// published and fanned out by the hub loop; each connection has its own read
// and write goroutine. Watch is the matching subscriber used by the CLI.
//
// Clients connect with ?session={id}. Pending frames may be batched into one
// text message, separated by newlines:
//
//	{"session_id": "ab12", "event": "state_update", "game_state": {...}}
//	{"session_id": "ab12", "event": "move", "data": {"dir": "left", ...}}
//
// Client input is ignored; the connection only answers ping/pong.
//
//	hub := websocket.NewHub()
//	go hub.Run()
//	hub.BroadcastToSession(sessionID, state)
package websocket
