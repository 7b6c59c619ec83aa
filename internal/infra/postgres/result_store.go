package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/magnusohlin/numba/internal/domain"
)

// ResultStore archives finished games as JSONB rows.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

func (s *ResultStore) RecordResult(ctx context.Context, result domain.GameResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO game_results (id, room_code, owner_id, finished_at, data) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		result.ID, result.RoomCode, result.OwnerID, result.FinishedAt, string(raw))
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (s *ResultStore) RecentResults(ctx context.Context, limit int) ([]domain.GameResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `SELECT data FROM game_results ORDER BY finished_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	results := make([]domain.GameResult, 0, limit)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		var result domain.GameResult
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

func (s *ResultStore) Result(ctx context.Context, id string) (domain.GameResult, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM game_results WHERE id=$1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.GameResult{}, domain.ErrResultNotFound
	}
	if err != nil {
		return domain.GameResult{}, fmt.Errorf("load result: %w", err)
	}
	var result domain.GameResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return domain.GameResult{}, fmt.Errorf("unmarshal result: %w", err)
	}
	return result, nil
}
