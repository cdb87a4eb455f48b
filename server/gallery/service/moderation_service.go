package service

import (
	"context"
	"fmt"

	commonlog "eventgallery/server/common/log"
	"eventgallery/server/gallery/domain"
)

type VisibilityChange struct {
	ID         string            `json:"id"`
	Visibility domain.Visibility `json:"visibility"`
}

type ModerationService struct {
	media     MediaStore
	blobs     BlobStore
	publisher EventPublisher
}

func NewModerationService(media MediaStore, blobs BlobStore, publisher EventPublisher) *ModerationService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &ModerationService{media: media, blobs: blobs, publisher: publisher}
}

func (s *ModerationService) ToggleMediaVisibility(ctx context.Context, eventID, mediaID string) (domain.Visibility, error) {
	rec, err := s.media.GetMedia(ctx, eventID, mediaID)
	if err != nil {
		return "", err
	}
	next := rec.Visibility.Toggle()
	if err := s.media.SetMediaVisibility(ctx, eventID, mediaID, next); err != nil {
		return "", err
	}
	s.publish(ctx, eventID, "media.visibility_changed", VisibilityChange{ID: mediaID, Visibility: next})
	commonlog.Infof("event=moderation action=toggle_visibility status=ok event_id=%s media_id=%s visibility=%s", eventID, mediaID, next)
	return next, nil
}

// DeleteMedia removes the stored objects first and the record last, so a
// failed object removal leaves the record in place for a retry.
func (s *ModerationService) DeleteMedia(ctx context.Context, eventID, mediaID string) error {
	rec, err := s.media.GetMedia(ctx, eventID, mediaID)
	if err != nil {
		return err
	}
	for _, u := range []string{rec.URL, rec.Thumbnail} {
		if u == "" {
			continue
		}
		key, ok := s.blobs.KeyFromURL(u)
		if !ok {
			commonlog.Warnf("event=moderation action=delete_object status=skipped event_id=%s media_id=%s url=%s", eventID, mediaID, u)
			continue
		}
		if err := s.blobs.Remove(ctx, key); err != nil {
			return fmt.Errorf("remove object %s: %w", key, err)
		}
	}
	if err := s.media.DeleteMedia(ctx, eventID, mediaID); err != nil {
		return err
	}
	s.publish(ctx, eventID, "media.deleted", MediaDeleted{ID: mediaID})
	commonlog.Infof("event=moderation action=delete status=ok event_id=%s media_id=%s", eventID, mediaID)
	return nil
}

func (s *ModerationService) publish(ctx context.Context, eventID, key string, payload any) {
	if err := s.publisher.Publish(ctx, eventID, key, payload); err != nil {
		commonlog.Warnf("event=moderation action=publish status=failed event_id=%s key=%s err=%v", eventID, key, err)
	}
}
