package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"eventgallery/server/gallery/domain"
)

type EventRepository struct {
	db *pgxpool.Pool
}

func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) CreateEvent(ctx context.Context, ev domain.Event) (domain.Event, error) {
	err := r.db.QueryRow(ctx, `
		INSERT INTO events(event_id, name, admin_id, password_hash)
		VALUES($1, $2, $3, $4)
		RETURNING created_at
	`, ev.ID, ev.Name, ev.AdminID, ev.PasswordHash).Scan(&ev.CreatedAt)
	if err != nil {
		return ev, mapWriteErr(err)
	}
	return ev, nil
}

func (r *EventRepository) GetEvent(ctx context.Context, eventID string) (domain.Event, error) {
	var ev domain.Event
	err := r.db.QueryRow(ctx, `
		SELECT event_id, name, admin_id, password_hash, created_at
		FROM events
		WHERE event_id = $1
	`, eventID).Scan(&ev.ID, &ev.Name, &ev.AdminID, &ev.PasswordHash, &ev.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Event{}, ErrNotFound
	}
	return ev, err
}
