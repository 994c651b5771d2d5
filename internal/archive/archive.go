// Package archive persists finished games. PostgreSQL is used when DATABASE_URL is set,
// otherwise a local SQLite file can hold the same table.
package archive

import (
	"context"
	"errors"

	"github.com/park285/Cheese-Janggi/internal/domain"
)

var ErrInvalidGame = errors.New("archive: invalid game")

// Repository stores final results. SaveResult is an upsert keyed by game id.
type Repository interface {
	SaveResult(ctx context.Context, g *domain.JanggiGame) error
	RecentGames(ctx context.Context, userID string, limit int) ([]*domain.JanggiGame, error)
	Close() error
}

const defaultRecentLimit = 10

func validate(g *domain.JanggiGame) error {
	if g == nil || g.ID == "" || g.RoomID == "" {
		return ErrInvalidGame
	}
	return nil
}
