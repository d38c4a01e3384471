package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/doge48/game/engine"
)

// gameServiceImpl implements the GameService interface. mu serializes every engine
// access and every LastAccessedAt write; states leave it as snapshots.
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	mu       sync.RWMutex
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "classic"
	}
	return configName
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
	}
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Load configuration
	var config *engine.GameConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				return nil, s.configNotFound(configName)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	// Let session manager generate a proper 4-character ID
	session, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	configID := configName
	if configID == "" {
		configID = s.getConfigID(config.Name)
	}

	return &SessionInfo{
		ID:             session.ID,
		ConfigName:     configID,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
		GameState:      session.Engine.Snapshot(),
		GameConfig:     session.Config,
	}, nil
}

// GetSession retrieves session information. Reading a session counts as an access.
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}
	return s.info(session), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))

	for _, sess := range sessions {
		result = append(result, s.info(sess))
	}

	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	return nil
}

// Move executes a single move for a session
func (s *gameServiceImpl) Move(ctx context.Context, sessionID, direction string, reset bool) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookup(sessionID); err != nil {
		return nil, err
	}
	if _, ok := engine.ParseDirection(direction); !ok {
		return nil, fmt.Errorf("%w: %q (use up, down, left or right)", engine.ErrUnknownDirection, direction)
	}

	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	// Collect events
	events := []GameEvent{}

	// Handle reset if requested
	if reset {
		sess.Engine.Reset()
		events = append(events, resetEvent())
	}

	step := s.applyMove(sess, 1, direction)
	state := sess.Engine.Snapshot()
	events = append(events, stepEvents(step, state)...)

	return &MoveResult{
		Success:   step.Changed,
		GameState: state,
		Message:   state.Message,
		Events:    events,
		Step:      &step,
	}, nil
}

// BulkMove executes multiple moves in sequence
func (s *gameServiceImpl) BulkMove(ctx context.Context, sessionID string, moves []string, reset bool) (*BulkMoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	result := &BulkMoveResult{
		RequestedMoves: len(moves),
		Events:         make([]GameEvent, 0),
		Success:        true,
	}

	// Handle reset
	if reset {
		sess.Engine.Reset()
		result.Events = append(result.Events, resetEvent())
	}

	// Capture start snapshot after an optional reset
	start := sess.Engine.GetState()
	result.StartTiles = start.TileCount
	result.StartMaxRank = start.MaxRank

	// Limit moves to prevent abuse
	if len(moves) > engine.MaxBulkMoves {
		result.Truncated = true
		result.Limit = engine.MaxBulkMoves
		moves = moves[:engine.MaxBulkMoves]
	}

	// Execute moves
	for i, move := range moves {
		if sess.Engine.IsGameOver() {
			result.StoppedReason = fmt.Sprintf("game over before move %d", i+1)
			result.StopReasonCode = StopGameOver
			result.StoppedOnMove = i + 1
			break
		}

		if _, ok := engine.ParseDirection(move); !ok {
			result.Success = false
			result.StoppedReason = fmt.Sprintf("move %d has unknown direction %q", i+1, move)
			result.StopReasonCode = StopInvalidDirection
			result.StoppedOnMove = i + 1
			result.Events = append(result.Events, GameEvent{
				Type:      EventInvalidDirection,
				Message:   fmt.Sprintf("Unknown direction %q", move),
				Timestamp: time.Now(),
			})
			break
		}

		step := s.applyMove(sess, i+1, move)
		result.MovesExecuted++
		if step.Changed {
			result.ChangedMoves++
		}
		result.TotalMerged += step.Merged
		result.Steps = append(result.Steps, step)
		result.Events = append(result.Events, stepEvents(step, sess.Engine.GetState())...)
	}

	endState := sess.Engine.Snapshot()
	result.GameState = endState
	result.EndTiles = endState.TileCount
	result.EndMaxRank = endState.MaxRank
	result.GameOver = endState.GameOver
	result.Message = endState.Message

	// The game may end on the last requested move without a further attempt
	if result.GameOver && result.StopReasonCode == "" {
		result.StopReasonCode = StopGameOver
	}

	// Decision aids
	result.PossibleMoves = sess.Engine.GetPossibleMoves()

	return result, nil
}

// Reset resets a game session to initial state
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}
	sess.Engine.Reset()
	return sess.Engine.Snapshot(), nil
}

// GetGameState retrieves a snapshot of the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.Snapshot(), nil
}

// GetMoveHistory returns paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.Engine.GetMoveHistory()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	// Calculate pagination
	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	// Get the slice of moves
	var moves []engine.MoveHistoryEntry
	if opts.Order == "desc" {
		// Reverse order (most recent first)
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			moves = append(moves, history[i])
		}
	} else {
		// Normal chronological order
		if start < total {
			moves = history[start:end]
		}
	}

	// Ensure moves is not nil
	if moves == nil {
		moves = []engine.MoveHistoryEntry{}
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListConfigs returns available game configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific game configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a game configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	if err := engine.ValidateGameConfig(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return s.configs.SaveConfig(configName, config)
}

// lookup resolves a session, normalizing backend misses to ErrSessionNotFound
func (s *gameServiceImpl) lookup(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", sessionID, err)
	}
	return sess, nil
}

// touch resolves a session and records the access. Callers hold the write lock.
func (s *gameServiceImpl) touch(sessionID string) (*Session, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.UpdateLastAccessed(sessionID); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return nil, fmt.Errorf("failed to touch session %s: %w", sessionID, err)
	}
	return sess, nil
}

// info builds the outward view of a session
func (s *gameServiceImpl) info(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     s.getConfigID(sess.Config.Name),
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Engine.Snapshot(),
		GameConfig:     sess.Config,
	}
}

// configNotFound lists the known config IDs so the caller can pick one
func (s *gameServiceImpl) configNotFound(configName string) error {
	configs, err := s.configs.ListConfigs()
	if err != nil || len(configs) == 0 {
		return fmt.Errorf("%w: %q, use /api/configs to list available configurations", ErrConfigNotFound, configName)
	}
	ids := make([]string, 0, len(configs))
	for _, cfg := range configs {
		ids = append(ids, cfg.ConfigID)
	}
	slices.Sort(ids)
	return fmt.Errorf("%w: %q. Available configs: %v", ErrConfigNotFound, configName, ids)
}

// applyMove runs one already-validated move and condenses the history entry into a step
func (s *gameServiceImpl) applyMove(sess *Session, idx int, direction string) StepInfo {
	tilesBefore := sess.Engine.GetState().TileCount
	sess.Engine.Move(direction)

	state := sess.Engine.GetState()
	step := StepInfo{
		Idx:         idx,
		Dir:         direction,
		TilesBefore: tilesBefore,
		TilesAfter:  state.TileCount,
		MaxRank:     state.MaxRank,
		GameOver:    state.GameOver,
	}
	if last := sess.Engine.GetLastMove(); last != nil {
		step.Dir = last.Action
		step.Changed = last.Changed
		step.Moved = last.Moved
		step.Merged = last.Merged
		step.Spawned = last.Spawned
	}
	return step
}

// stepEvents generates events from a step
func stepEvents(step StepInfo, state *engine.GameState) []GameEvent {
	now := time.Now()
	events := []GameEvent{}

	if !step.Changed {
		msg := fmt.Sprintf("Moving %s changed nothing", step.Dir)
		if state.GameOver {
			msg = "Game is over, move ignored"
		}
		return append(events, GameEvent{Type: EventNoChange, Message: msg, Timestamp: now})
	}

	events = append(events, GameEvent{
		Type:      EventMove,
		Message:   fmt.Sprintf("Moved %s: %d tiles slid", step.Dir, step.Moved),
		Timestamp: now,
	})
	if step.Merged > 0 {
		events = append(events, GameEvent{
			Type:      EventMerge,
			Message:   fmt.Sprintf("%d merges, highest tile %d", step.Merged, engine.RankValue(state.MaxRank)),
			Timestamp: now,
		})
	}
	if step.Spawned != nil {
		events = append(events, GameEvent{
			Type:      EventSpawn,
			Message:   fmt.Sprintf("New tile at (%d,%d)", step.Spawned.X, step.Spawned.Y),
			Timestamp: now,
			Tile:      step.Spawned,
		})
	}
	if step.GameOver {
		events = append(events, GameEvent{
			Type:      EventGameOver,
			Message:   state.Message,
			Timestamp: now,
		})
	}

	return events
}

func resetEvent() GameEvent {
	return GameEvent{
		Type:      EventReset,
		Message:   "Game reset to initial state",
		Timestamp: time.Now(),
	}
}
