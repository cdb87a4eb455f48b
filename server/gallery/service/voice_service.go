package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	commonlog "eventgallery/server/common/log"
	"eventgallery/server/common/metrics"
	"eventgallery/server/gallery/domain"
)

const MaxVoiceBytes = 20 << 20

type VoiceService struct {
	events    EventStore
	voices    VoiceStore
	blobs     BlobStore
	publisher EventPublisher
	now       func() time.Time
}

func NewVoiceService(events EventStore, voices VoiceStore, blobs BlobStore, publisher EventPublisher) *VoiceService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &VoiceService{events: events, voices: voices, blobs: blobs, publisher: publisher, now: time.Now}
}

func VoiceKey(eventID string, at time.Time) string {
	return "voices/" + eventID + "/" + strconv.FormatInt(at.UnixMilli(), 10) + ".wav"
}

func (s *VoiceService) Upload(ctx context.Context, eventID, senderName string, visibility domain.Visibility, f UploadFile) (domain.Voice, error) {
	if _, err := s.events.GetEvent(ctx, eventID); err != nil {
		return domain.Voice{}, err
	}
	if f.Size <= 0 || f.Size > MaxVoiceBytes {
		metrics.Uploads.WithLabelValues("voice", "failed").Inc()
		return domain.Voice{}, ErrFileTooLarge
	}
	mtype, body, err := sniff(f.Body)
	if err != nil {
		return domain.Voice{}, fmt.Errorf("read upload: %w", err)
	}
	if !strings.HasPrefix(mtype.String(), "audio/") {
		metrics.Uploads.WithLabelValues("voice", "failed").Inc()
		return domain.Voice{}, fmt.Errorf("%w: %s", ErrUnsupportedMedia, mtype.String())
	}

	key := VoiceKey(eventID, s.now())
	if err := s.blobs.Put(ctx, key, body, f.Size, mtype.String()); err != nil {
		metrics.Uploads.WithLabelValues("voice", "failed").Inc()
		return domain.Voice{}, fmt.Errorf("store voice: %w", err)
	}
	if visibility == "" {
		visibility = domain.VisibilityPublic
	}
	item, err := s.voices.CreateVoice(ctx, domain.Voice{
		ID:         uuid.NewString(),
		EventID:    eventID,
		URL:        s.blobs.URL(key),
		SenderName: senderOrDefault(senderName),
		Visibility: visibility,
	})
	if err != nil {
		return domain.Voice{}, err
	}
	metrics.Uploads.WithLabelValues("voice", "ok").Inc()
	if err := s.publisher.Publish(ctx, eventID, "voice.created", item); err != nil {
		commonlog.Warnf("event=voice action=publish status=failed event_id=%s voice_id=%s err=%v", eventID, item.ID, err)
	}
	return item, nil
}

func (s *VoiceService) List(ctx context.Context, eventID string, includePrivate bool) ([]domain.Voice, error) {
	return s.voices.ListVoices(ctx, eventID, !includePrivate, DefaultListLimit)
}

func (s *VoiceService) ToggleVisibility(ctx context.Context, eventID, voiceID string) (domain.Visibility, error) {
	item, err := s.voices.GetVoice(ctx, eventID, voiceID)
	if err != nil {
		return "", err
	}
	next := item.Visibility.Toggle()
	if err := s.voices.SetVoiceVisibility(ctx, eventID, voiceID, next); err != nil {
		return "", err
	}
	return next, nil
}

func (s *VoiceService) Delete(ctx context.Context, eventID, voiceID string) error {
	item, err := s.voices.GetVoice(ctx, eventID, voiceID)
	if err != nil {
		return err
	}
	if key, ok := s.blobs.KeyFromURL(item.URL); ok {
		if err := s.blobs.Remove(ctx, key); err != nil {
			return fmt.Errorf("remove object %s: %w", key, err)
		}
	}
	return s.voices.DeleteVoice(ctx, eventID, voiceID)
}
