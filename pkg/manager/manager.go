package manager

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tecu23/chess-clock/pkg/config"
	"github.com/tecu23/chess-clock/pkg/events"
	"github.com/tecu23/chess-clock/pkg/game"
	"github.com/tecu23/chess-clock/pkg/messages"
	"github.com/tecu23/chess-clock/pkg/repository"
	"github.com/tecu23/chess-clock/pkg/tick"
	"github.com/tecu23/chess-clock/pkg/timecontrol"
)

var (
	ErrGameNotFound  = repository.ErrGameNotFound
	ErrNotOwner      = errors.New("game belongs to another connection")
	ErrUnknownPreset = errors.New("unknown preset")
)

// Manager creates and tracks the clocks of all connections
type Manager struct {
	repo      repository.GameRepository
	presets   []config.Preset
	scheduler tick.Scheduler
	interval  time.Duration
	publisher *events.Publisher
	logger    *zap.Logger
}

// Option configures a Manager
type Option func(*Manager)

// WithScheduler drives every clock from s instead of the system timer
func WithScheduler(s tick.Scheduler) Option {
	return func(m *Manager) { m.scheduler = s }
}

// WithTickInterval sets the tick interval of every clock
func WithTickInterval(d time.Duration) Option {
	return func(m *Manager) { m.interval = d }
}

// NewManager creates a new manager on top of the given repository
func NewManager(
	repo repository.GameRepository,
	presets []config.Preset,
	logger *zap.Logger,
	publisher *events.Publisher,
	opts ...Option,
) *Manager {
	manager := &Manager{
		repo:      repo,
		presets:   presets,
		interval:  tick.DefaultInterval,
		logger:    logger,
		publisher: publisher,
	}
	for _, opt := range opts {
		opt(manager)
	}

	// Set up event handlers
	manager.setupEventHandlers()

	return manager
}

// setupEventHandlers sets up event handlers for the game manager
func (m *Manager) setupEventHandlers() {
	// Handle connection closed events
	m.publisher.Subscribe(events.EventConnectionClosed, func(event events.Event) {
		payload, ok := event.Payload.(map[string]string)
		if !ok {
			m.logger.Error("Invalid connection closed payload type")
			return
		}

		connectionID, err := uuid.Parse(payload["connection_id"])
		if err != nil {
			m.logger.Error("Invalid connection ID in connection closed event", zap.Error(err))
			return
		}

		m.terminateGamesByConnectionID(connectionID)
	})

	// Handle game terminated events
	m.publisher.Subscribe(events.EventGameTerminated, func(event events.Event) {
		gameID, err := uuid.Parse(event.GameID)
		if err != nil {
			m.logger.Error("Invalid game ID in game terminated event", zap.Error(err))
			return
		}

		if _, err := m.repo.DeleteGame(gameID); err == nil {
			m.logger.Info("removed game", zap.String("game_id", event.GameID))
		}
	})

	m.publisher.Subscribe(events.EventTimeUp, func(event events.Event) {
		payload, ok := event.Payload.(messages.FlagFallPayload)
		if !ok {
			return
		}

		m.logger.Info("flag fell",
			zap.String("game_id", event.GameID),
			zap.Stringer("color", payload.Color),
		)
	})
}

// terminateGamesByConnectionID terminates all games owned by a connection
func (m *Manager) terminateGamesByConnectionID(connectionID uuid.UUID) {
	games, err := m.repo.ListByConnection(connectionID)
	if err != nil {
		m.logger.Error("failed to list games", zap.Error(err))
		return
	}

	m.logger.Info("Terminating games for connection",
		zap.String("connection_id", connectionID.String()),
		zap.Int("games", len(games)),
	)

	for _, g := range games {
		m.remove(g)
	}
}

// CreateGame creates a clock for the given time control, owned by
// connectionID. Updates for the clock go to notifier.
func (m *Manager) CreateGame(
	connectionID uuid.UUID,
	tc timecontrol.TimeControl,
	notifier game.Notifier,
) (*game.Game, error) {
	g, err := game.CreateGame(game.CreateGameParams{
		GameID:       uuid.New(),
		TimeControl:  tc,
		Scheduler:    m.scheduler,
		TickInterval: m.interval,
	}, connectionID, notifier, m.publisher, m.logger)
	if err != nil {
		return nil, err
	}

	if err := m.repo.SaveGame(g); err != nil {
		return nil, err
	}

	m.logger.Info("created new game",
		zap.String("game_id", g.ID.String()),
		zap.String("method", string(tc.Method)),
	)

	m.publisher.Publish(events.Event{
		Type:    events.EventGameCreated,
		GameID:  g.ID.String(),
		Payload: g.State(),
	})

	return g, nil
}

// CreateGameFromPreset creates a clock from a named preset
func (m *Manager) CreateGameFromPreset(
	connectionID uuid.UUID,
	name string,
	notifier game.Notifier,
) (*game.Game, error) {
	preset, ok := config.FindPreset(m.presets, name)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownPreset, name)
	}

	tc, err := preset.TimeControl()
	if err != nil {
		return nil, err
	}

	return m.CreateGame(connectionID, tc, notifier)
}

// Presets returns the configured presets
func (m *Manager) Presets() []config.Preset {
	return m.presets
}

// GetGame returns a game owned by connectionID
func (m *Manager) GetGame(connectionID, gameID uuid.UUID) (*game.Game, error) {
	g, err := m.repo.GetGame(gameID)
	if err != nil {
		return nil, err
	}

	if g.ConnectionID != connectionID {
		return nil, ErrNotOwner
	}

	return g, nil
}

// RemoveGame terminates and forgets a game owned by connectionID
func (m *Manager) RemoveGame(connectionID, gameID uuid.UUID) error {
	g, err := m.GetGame(connectionID, gameID)
	if err != nil {
		return err
	}

	m.remove(g)
	return nil
}

// ActiveGames counts the clocks currently running
func (m *Manager) ActiveGames() int {
	games, err := m.repo.ListActiveGames()
	if err != nil {
		return 0
	}

	return len(games)
}

func (m *Manager) remove(g *game.Game) {
	if _, err := m.repo.DeleteGame(g.ID); err != nil && !errors.Is(err, ErrGameNotFound) {
		m.logger.Error("failed to delete game", zap.Error(err))
	}

	state := g.Clock.State()
	g.Terminate()

	m.logger.Info("removed game session",
		zap.String("game_id", g.ID.String()),
		zap.String("state", string(state)),
	)
}
