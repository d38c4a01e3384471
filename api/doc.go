// Package api provides the HTTP REST API for Doge48 game sessions.
//
// The api package implements:
//   - Session management endpoints
//   - Move and bulk-move endpoints with per-step traces
//   - Paginated move history
//   - Configuration listing, lookup and creation
//   - WebSocket upgrade for live board updates
//
// Endpoints:
//
// Sessions:
//   - POST   /api/sessions                 - Create session ({"config_id": "classic"})
//   - GET    /api/sessions                 - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET    /api/sessions/unified         - Multi-session view (?sessionIds=a,b or ?configName=classic)
//   - GET    /api/sessions/{id}            - Get session
//   - DELETE /api/sessions/{id}            - Delete session
//
// Game Operations:
//   - GET  /api/sessions/{id}/state      - Current game state
//   - POST /api/sessions/{id}/move       - {"direction": "left", "reset": false}
//   - POST /api/sessions/{id}/bulk-move  - {"moves": ["left", "up"], "reset": false}
//   - POST /api/sessions/{id}/reset      - Start a new game in the session
//   - GET  /api/sessions/{id}/history    - ?page=1&limit=20&order=desc
//
// Configuration:
//   - GET  /api/configs         - List available configurations
//   - POST /api/configs         - Save a configuration
//   - GET  /api/configs/{name}  - Get a configuration
//
// Other:
//   - GET /api/health
//   - GET /ws?session={id}
//
// Move responses carry a step record:
//
//	{ "idx": 1, "dir": "left", "changed": true, "moved": 2, "merged": 1,
//	  "spawned": {"x": 3, "y": 0, "rank": 1}, "tiles_before": 3, "tiles_after": 3, "max_rank": 2 }
//
// Bulk moves stop at game over or at the first unknown direction and report
// stop_reason_code (game_over|invalid_direction) and stopped_on_move (1-based).
// Requests longer than engine.MaxBulkMoves are truncated.
//
// Errors are returned as JSON:
//
//	{ "error": "session not found: ..." }
//
// Unknown directions map to 400, missing sessions and configs to 404.
package api
