package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/park285/Cheese-Janggi/internal/domain"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS janggi_games (
    game_id TEXT PRIMARY KEY,
    room_id TEXT NOT NULL,
    room_code TEXT NOT NULL DEFAULT '',
    player1_id TEXT NOT NULL DEFAULT '',
    player1_name TEXT NOT NULL DEFAULT '',
    player2_id TEXT NOT NULL DEFAULT '',
    player2_name TEXT NOT NULL DEFAULT '',
    winner TEXT NOT NULL DEFAULT '',
    winner_id TEXT NOT NULL DEFAULT '',
    result_method TEXT NOT NULL DEFAULT '',
    move_count INTEGER NOT NULL DEFAULT 0,
    moves JSONB NOT NULL DEFAULT '[]'::jsonb,
    record TEXT NOT NULL DEFAULT '',
    started_at TIMESTAMPTZ NOT NULL,
    ended_at TIMESTAMPTZ NOT NULL,
    duration_ms BIGINT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_janggi_games_player1 ON janggi_games (player1_id, ended_at DESC);
CREATE INDEX IF NOT EXISTS idx_janggi_games_player2 ON janggi_games (player2_id, ended_at DESC);`

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(databaseURL string) (*PostgresRepository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveResult upserts a finished game.
func (r *PostgresRepository) SaveResult(ctx context.Context, g *domain.JanggiGame) error {
	if err := validate(g); err != nil {
		return err
	}
	moves, err := json.Marshal(g.Moves)
	if err != nil {
		return fmt.Errorf("marshal moves: %w", err)
	}
	q := `INSERT INTO janggi_games (
        game_id, room_id, room_code,
        player1_id, player1_name, player2_id, player2_name,
        winner, winner_id, result_method, move_count, moves, record,
        started_at, ended_at, duration_ms
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12::jsonb,$13,$14,$15,$16
      ) ON CONFLICT (game_id) DO UPDATE SET
        room_code=EXCLUDED.room_code,
        player1_id=EXCLUDED.player1_id,
        player1_name=EXCLUDED.player1_name,
        player2_id=EXCLUDED.player2_id,
        player2_name=EXCLUDED.player2_name,
        winner=EXCLUDED.winner,
        winner_id=EXCLUDED.winner_id,
        result_method=EXCLUDED.result_method,
        move_count=EXCLUDED.move_count,
        moves=EXCLUDED.moves,
        record=EXCLUDED.record,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`
	_, err = r.db.ExecContext(ctx, q,
		g.ID, g.RoomID, g.RoomCode,
		g.Player1ID, g.Player1Name, g.Player2ID, g.Player2Name,
		g.Winner, g.WinnerID, g.Method, g.MoveCount, string(moves), g.Record,
		g.StartedAt, g.EndedAt, g.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("upsert janggi game: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RecentGames(ctx context.Context, userID string, limit int) ([]*domain.JanggiGame, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	const q = `
		SELECT
			game_id, room_id, room_code,
			player1_id, player1_name, player2_id, player2_name,
			winner, winner_id, result_method, move_count, moves, record,
			started_at, ended_at, duration_ms
		FROM janggi_games
		WHERE player1_id = $1 OR player2_id = $1
		ORDER BY ended_at DESC
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("select janggi games: %w", err)
	}
	defer rows.Close()

	games := make([]*domain.JanggiGame, 0, limit)
	for rows.Next() {
		var (
			g          domain.JanggiGame
			movesJSON  []byte
			durationMS sql.NullInt64
		)
		if err := rows.Scan(
			&g.ID, &g.RoomID, &g.RoomCode,
			&g.Player1ID, &g.Player1Name, &g.Player2ID, &g.Player2Name,
			&g.Winner, &g.WinnerID, &g.Method, &g.MoveCount, &movesJSON, &g.Record,
			&g.StartedAt, &g.EndedAt, &durationMS,
		); err != nil {
			return nil, fmt.Errorf("scan janggi game: %w", err)
		}
		if durationMS.Valid {
			g.Duration = time.Duration(durationMS.Int64) * time.Millisecond
		}
		if err := json.Unmarshal(movesJSON, &g.Moves); err != nil {
			return nil, fmt.Errorf("unmarshal moves: %w", err)
		}
		games = append(games, &g)
	}
	return games, rows.Err()
}

var (
	_ Repository = (*PostgresRepository)(nil)
	_ Repository = (*SQLiteRepository)(nil)
)
