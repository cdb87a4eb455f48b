package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"eventgallery/server/gallery/domain"
	"eventgallery/server/gallery/feed"
)

const mediaColumns = `media_id, event_id, url, media_type, thumbnail, sender_name, visibility, created_at`

type MediaRepository struct {
	db *pgxpool.Pool
}

func NewMediaRepository(db *pgxpool.Pool) *MediaRepository {
	return &MediaRepository{db: db}
}

func (r *MediaRepository) QueryMedia(ctx context.Context, q feed.MediaQuery) ([]domain.MediaRecord, error) {
	query, args := buildMediaQuery(q)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.MediaRecord, 0, q.Limit)
	for rows.Next() {
		item, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// buildMediaQuery renders the keyset page query: newest first, ties broken by
// media_id so the cursor position is total.
func buildMediaQuery(q feed.MediaQuery) (string, []any) {
	query := `
		SELECT ` + mediaColumns + `
		FROM media
		WHERE event_id = $1`
	args := []any{q.EventID}
	if q.PublicOnly {
		args = append(args, string(domain.VisibilityPublic))
		query += fmt.Sprintf(`
		  AND visibility = $%d`, len(args))
	}
	if q.After != nil {
		args = append(args, q.After.CreatedAt, q.After.ID)
		query += fmt.Sprintf(`
		  AND (created_at < $%d OR (created_at = $%d AND media_id < $%d))`, len(args)-1, len(args)-1, len(args))
	}
	args = append(args, q.Limit)
	query += fmt.Sprintf(`
		ORDER BY created_at DESC, media_id DESC
		LIMIT $%d`, len(args))
	return query, args
}

func (r *MediaRepository) CreateMedia(ctx context.Context, item domain.MediaRecord) (domain.MediaRecord, error) {
	err := r.db.QueryRow(ctx, `
		INSERT INTO media(media_id, event_id, url, media_type, thumbnail, sender_name, visibility)
		VALUES($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, item.ID, item.EventID, item.URL, item.Type, item.Thumbnail, item.SenderName, string(item.Visibility)).Scan(&item.CreatedAt)
	if err != nil {
		return item, mapWriteErr(err)
	}
	return item, nil
}

func (r *MediaRepository) GetMedia(ctx context.Context, eventID, mediaID string) (domain.MediaRecord, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+mediaColumns+`
		FROM media
		WHERE event_id = $1 AND media_id = $2
	`, eventID, mediaID)
	item, err := scanMedia(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.MediaRecord{}, ErrNotFound
	}
	return item, err
}

func (r *MediaRepository) SetMediaVisibility(ctx context.Context, eventID, mediaID string, v domain.Visibility) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE media SET visibility = $3
		WHERE event_id = $1 AND media_id = $2
	`, eventID, mediaID, string(v))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MediaRepository) DeleteMedia(ctx context.Context, eventID, mediaID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM media WHERE event_id = $1 AND media_id = $2`, eventID, mediaID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanMedia(row pgx.Row) (domain.MediaRecord, error) {
	var (
		item       domain.MediaRecord
		visibility string
	)
	err := row.Scan(&item.ID, &item.EventID, &item.URL, &item.Type, &item.Thumbnail, &item.SenderName, &visibility, &item.CreatedAt)
	item.Visibility = domain.Visibility(visibility)
	return item, err
}

func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrConflict
		case "23503":
			return ErrNotFound
		}
	}
	return err
}
