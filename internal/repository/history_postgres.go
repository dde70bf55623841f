package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"pi-assistant/internal/models"
)

// PostgresHistoryLog stores exchanges in the chat_history table. Ids keep
// the max+1 rule of the file log so both backends number records alike.
type PostgresHistoryLog struct {
	mu   sync.Mutex
	pool *pgxpool.Pool
}

func NewPostgresHistoryLog(pool *pgxpool.Pool) *PostgresHistoryLog {
	return &PostgresHistoryLog{pool: pool}
}

func (r *PostgresHistoryLog) Append(ctx context.Context, ex models.Exchange) (models.Exchange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	createdAt := time.Now().UTC()
	if ex.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339Nano, ex.Timestamp); err == nil {
			createdAt = ts
		}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return ex, fmt.Errorf("failed to begin history transaction: %w", err)
	}
	defer tx.Rollback(ctx) // no-op after commit

	// The table lock keeps max(id)+1 safe against other processes too.
	if _, err := tx.Exec(ctx, "LOCK TABLE chat_history IN SHARE ROW EXCLUSIVE MODE"); err != nil {
		return ex, fmt.Errorf("failed to lock chat_history: %w", err)
	}

	query := `INSERT INTO chat_history (id, prompt, response, created_at)
		SELECT COALESCE(MAX(id), 0) + 1, $1, $2, $3 FROM chat_history
		RETURNING id`

	if err := tx.QueryRow(ctx, query, ex.Prompt, ex.Response, createdAt).Scan(&ex.ID); err != nil {
		return ex, fmt.Errorf("failed to insert exchange: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return ex, fmt.Errorf("failed to commit exchange: %w", err)
	}
	return ex, nil
}

func (r *PostgresHistoryLog) List(ctx context.Context) ([]models.Exchange, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, prompt, response, created_at FROM chat_history ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	records := []models.Exchange{}
	for rows.Next() {
		var ex models.Exchange
		var createdAt time.Time
		if err := rows.Scan(&ex.ID, &ex.Prompt, &ex.Response, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan exchange: %w", err)
		}
		ex.Timestamp = createdAt.UTC().Format(time.RFC3339)
		records = append(records, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history rows: %w", err)
	}
	return records, nil
}

func (r *PostgresHistoryLog) Close() error {
	r.pool.Close()
	return nil
}
