package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"eventgallery/server/gallery/domain"
)

type VoiceRepository struct {
	db *pgxpool.Pool
}

func NewVoiceRepository(db *pgxpool.Pool) *VoiceRepository {
	return &VoiceRepository{db: db}
}

func (r *VoiceRepository) CreateVoice(ctx context.Context, item domain.Voice) (domain.Voice, error) {
	err := r.db.QueryRow(ctx, `
		INSERT INTO voices(voice_id, event_id, url, sender_name, visibility)
		VALUES($1, $2, $3, $4, $5)
		RETURNING created_at
	`, item.ID, item.EventID, item.URL, item.SenderName, string(item.Visibility)).Scan(&item.CreatedAt)
	if err != nil {
		return item, mapWriteErr(err)
	}
	return item, nil
}

func (r *VoiceRepository) ListVoices(ctx context.Context, eventID string, publicOnly bool, limit int) ([]domain.Voice, error) {
	rows, err := r.db.Query(ctx, `
		SELECT voice_id, event_id, url, sender_name, visibility, created_at
		FROM voices
		WHERE event_id = $1 AND (NOT $2 OR visibility = 'public')
		ORDER BY created_at DESC, voice_id DESC
		LIMIT $3
	`, eventID, publicOnly, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Voice, 0)
	for rows.Next() {
		item, err := scanVoice(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *VoiceRepository) GetVoice(ctx context.Context, eventID, voiceID string) (domain.Voice, error) {
	item, err := scanVoice(r.db.QueryRow(ctx, `
		SELECT voice_id, event_id, url, sender_name, visibility, created_at
		FROM voices
		WHERE event_id = $1 AND voice_id = $2
	`, eventID, voiceID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Voice{}, ErrNotFound
	}
	return item, err
}

func (r *VoiceRepository) SetVoiceVisibility(ctx context.Context, eventID, voiceID string, v domain.Visibility) error {
	tag, err := r.db.Exec(ctx, `UPDATE voices SET visibility = $3 WHERE event_id = $1 AND voice_id = $2`, eventID, voiceID, string(v))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *VoiceRepository) DeleteVoice(ctx context.Context, eventID, voiceID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM voices WHERE event_id = $1 AND voice_id = $2`, eventID, voiceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanVoice(row pgx.Row) (domain.Voice, error) {
	var (
		item       domain.Voice
		visibility string
	)
	err := row.Scan(&item.ID, &item.EventID, &item.URL, &item.SenderName, &visibility, &item.CreatedAt)
	item.Visibility = domain.Visibility(visibility)
	return item, err
}
