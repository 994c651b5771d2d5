package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/park285/Cheese-Janggi/internal/archive/migrations"
	"github.com/park285/Cheese-Janggi/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteRepository keeps the archive in a local file. Times are stored as unix millis.
type SQLiteRepository struct {
	db *sql.DB
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

// OpenSQLite opens path and applies embedded migrations.
func OpenSQLite(path string) (*SQLiteRepository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// 단일 커넥션으로 쓰기 경합 회피
	db.SetMaxOpenConns(1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *SQLiteRepository) SaveResult(ctx context.Context, g *domain.JanggiGame) error {
	if err := validate(g); err != nil {
		return err
	}
	moves, err := json.Marshal(g.Moves)
	if err != nil {
		return fmt.Errorf("marshal moves: %w", err)
	}
	const q = `INSERT INTO janggi_games (
        game_id, room_id, room_code,
        player1_id, player1_name, player2_id, player2_name,
        winner, winner_id, result_method, move_count, moves, record,
        started_at, ended_at, duration_ms
      ) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
      ON CONFLICT (game_id) DO UPDATE SET
        room_code=excluded.room_code,
        player1_id=excluded.player1_id,
        player1_name=excluded.player1_name,
        player2_id=excluded.player2_id,
        player2_name=excluded.player2_name,
        winner=excluded.winner,
        winner_id=excluded.winner_id,
        result_method=excluded.result_method,
        move_count=excluded.move_count,
        moves=excluded.moves,
        record=excluded.record,
        ended_at=excluded.ended_at,
        duration_ms=excluded.duration_ms`
	_, err = r.db.ExecContext(ctx, q,
		g.ID, g.RoomID, g.RoomCode,
		g.Player1ID, g.Player1Name, g.Player2ID, g.Player2Name,
		g.Winner, g.WinnerID, g.Method, g.MoveCount, string(moves), g.Record,
		toMillis(g.StartedAt), toMillis(g.EndedAt), g.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("upsert janggi game: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) RecentGames(ctx context.Context, userID string, limit int) ([]*domain.JanggiGame, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	const q = `SELECT
        game_id, room_id, room_code,
        player1_id, player1_name, player2_id, player2_name,
        winner, winner_id, result_method, move_count, moves, record,
        started_at, ended_at, duration_ms
      FROM janggi_games
      WHERE player1_id = ? OR player2_id = ?
      ORDER BY ended_at DESC
      LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, userID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("select janggi games: %w", err)
	}
	defer rows.Close()

	games := make([]*domain.JanggiGame, 0, limit)
	for rows.Next() {
		var (
			g                  domain.JanggiGame
			moves              string
			started, ended, ms int64
		)
		if err := rows.Scan(
			&g.ID, &g.RoomID, &g.RoomCode,
			&g.Player1ID, &g.Player1Name, &g.Player2ID, &g.Player2Name,
			&g.Winner, &g.WinnerID, &g.Method, &g.MoveCount, &moves, &g.Record,
			&started, &ended, &ms,
		); err != nil {
			return nil, fmt.Errorf("scan janggi game: %w", err)
		}
		if err := json.Unmarshal([]byte(moves), &g.Moves); err != nil {
			return nil, fmt.Errorf("unmarshal moves: %w", err)
		}
		g.StartedAt, g.EndedAt = fromMillis(started), fromMillis(ended)
		g.Duration = time.Duration(ms) * time.Millisecond
		games = append(games, &g)
	}
	return games, rows.Err()
}
