package repository

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tecu23/chess-clock/pkg/chess"
	"github.com/tecu23/chess-clock/pkg/game"
)

// ErrGameNotFound is returned when no game is stored under an ID
var ErrGameNotFound = errors.New("game not found")

// GameRepository stores the games of the running server
type GameRepository interface {
	SaveGame(g *game.Game) error
	GetGame(id uuid.UUID) (*game.Game, error)
	DeleteGame(id uuid.UUID) (*game.Game, error)
	ListGames() ([]*game.Game, error)
	ListActiveGames() ([]*game.Game, error)
	ListByConnection(connectionID uuid.UUID) ([]*game.Game, error)
}

// InMemoryGameRepository in an in-memory implementation of GameRepository
type InMemoryGameRepository struct {
	games  map[uuid.UUID]*game.Game
	mu     sync.RWMutex
	logger *zap.Logger
}

var _ GameRepository = (*InMemoryGameRepository)(nil)

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository(logger *zap.Logger) *InMemoryGameRepository {
	return &InMemoryGameRepository{
		games:  make(map[uuid.UUID]*game.Game),
		logger: logger,
	}
}

// SaveGame saves a game to the repository
func (r *InMemoryGameRepository) SaveGame(g *game.Game) error {
	if g == nil || g.ID == uuid.Nil {
		return errors.New("cannot save a game without an ID")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.games[g.ID] = g
	r.logger.Debug("saved game", zap.String("game_id", g.ID.String()))
	return nil
}

// GetGame retrieves a game by ID
func (r *InMemoryGameRepository) GetGame(id uuid.UUID) (*game.Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.games[id]
	if !ok {
		return nil, ErrGameNotFound
	}

	return g, nil
}

// DeleteGame removes a game and returns it
func (r *InMemoryGameRepository) DeleteGame(id uuid.UUID) (*game.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.games[id]
	if !ok {
		return nil, ErrGameNotFound
	}
	delete(r.games, id)

	r.logger.Debug("deleted game", zap.String("game_id", id.String()))
	return g, nil
}

// ListGames returns all games ordered by ID
func (r *InMemoryGameRepository) ListGames() ([]*game.Game, error) {
	return r.filter(func(*game.Game) bool { return true }), nil
}

// ListActiveGames returns all games whose clock is running
func (r *InMemoryGameRepository) ListActiveGames() ([]*game.Game, error) {
	return r.filter(func(g *game.Game) bool {
		return g.Clock.State() == chess.StateActive
	}), nil
}

// ListByConnection returns the games owned by a connection
func (r *InMemoryGameRepository) ListByConnection(connectionID uuid.UUID) ([]*game.Game, error) {
	return r.filter(func(g *game.Game) bool {
		return g.ConnectionID == connectionID
	}), nil
}

func (r *InMemoryGameRepository) filter(keep func(*game.Game) bool) []*game.Game {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var games []*game.Game
	for _, g := range r.games {
		if keep(g) {
			games = append(games, g)
		}
	}

	sort.Slice(games, func(i, j int) bool {
		return games[i].ID.String() < games[j].ID.String()
	})

	return games
}
