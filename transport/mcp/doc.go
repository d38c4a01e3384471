// Package mcp exposes Doge48 to AI agents over the Model Context Protocol.
//
// Client is a thin proxy: every tool call becomes a request against the REST
// API, and the JSON response is rendered as text for the agent.
//
// Tools:
//   - create_session, list_sessions, get_session
//   - game_state: board, tile count, max value, possible moves
//   - move, bulk_move: slide tiles; both take an "intent" argument the agent
//     uses to explain its reasoning
//   - reset_game, move_history
//   - list_configs, game_instructions
//   - describe_cell: rank, value and label of the tile at (x, y)
//
// Transports:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())    // stdio
//	router.Handle("/mcp", client)               // JSON-RPC over HTTP POST
package mcp
