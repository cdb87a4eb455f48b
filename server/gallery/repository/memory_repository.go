package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"eventgallery/server/gallery/domain"
)

type MemoryRepository struct {
	db *pgxpool.Pool
}

func NewMemoryRepository(db *pgxpool.Pool) *MemoryRepository {
	return &MemoryRepository{db: db}
}

func (r *MemoryRepository) CreateMemory(ctx context.Context, item domain.Memory) (domain.Memory, error) {
	err := r.db.QueryRow(ctx, `
		INSERT INTO memories(memory_id, event_id, sender_name, memory_text, visibility)
		VALUES($1, $2, $3, $4, $5)
		RETURNING created_at
	`, item.ID, item.EventID, item.SenderName, item.Text, string(item.Visibility)).Scan(&item.CreatedAt)
	if err != nil {
		return item, mapWriteErr(err)
	}
	return item, nil
}

func (r *MemoryRepository) ListMemories(ctx context.Context, eventID string, publicOnly bool, limit int) ([]domain.Memory, error) {
	rows, err := r.db.Query(ctx, `
		SELECT memory_id, event_id, sender_name, memory_text, visibility, created_at
		FROM memories
		WHERE event_id = $1 AND (NOT $2 OR visibility = 'public')
		ORDER BY created_at DESC, memory_id DESC
		LIMIT $3
	`, eventID, publicOnly, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Memory, 0)
	for rows.Next() {
		item, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *MemoryRepository) GetMemory(ctx context.Context, eventID, memoryID string) (domain.Memory, error) {
	item, err := scanMemory(r.db.QueryRow(ctx, `
		SELECT memory_id, event_id, sender_name, memory_text, visibility, created_at
		FROM memories
		WHERE event_id = $1 AND memory_id = $2
	`, eventID, memoryID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Memory{}, ErrNotFound
	}
	return item, err
}

func (r *MemoryRepository) SetMemoryVisibility(ctx context.Context, eventID, memoryID string, v domain.Visibility) error {
	tag, err := r.db.Exec(ctx, `UPDATE memories SET visibility = $3 WHERE event_id = $1 AND memory_id = $2`, eventID, memoryID, string(v))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MemoryRepository) DeleteMemory(ctx context.Context, eventID, memoryID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM memories WHERE event_id = $1 AND memory_id = $2`, eventID, memoryID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanMemory(row pgx.Row) (domain.Memory, error) {
	var (
		item       domain.Memory
		visibility string
	)
	err := row.Scan(&item.ID, &item.EventID, &item.SenderName, &item.Text, &visibility, &item.CreatedAt)
	item.Visibility = domain.Visibility(visibility)
	return item, err
}
