package service

import (
	"context"
	"errors"
	"io"

	"eventgallery/server/gallery/domain"
	"eventgallery/server/gallery/feed"
)

type MediaStore interface {
	feed.Store
	CreateMedia(ctx context.Context, item domain.MediaRecord) (domain.MediaRecord, error)
	GetMedia(ctx context.Context, eventID, mediaID string) (domain.MediaRecord, error)
	SetMediaVisibility(ctx context.Context, eventID, mediaID string, v domain.Visibility) error
	DeleteMedia(ctx context.Context, eventID, mediaID string) error
}

type EventStore interface {
	CreateEvent(ctx context.Context, ev domain.Event) (domain.Event, error)
	GetEvent(ctx context.Context, eventID string) (domain.Event, error)
}

type MemoryStore interface {
	CreateMemory(ctx context.Context, item domain.Memory) (domain.Memory, error)
	ListMemories(ctx context.Context, eventID string, publicOnly bool, limit int) ([]domain.Memory, error)
	GetMemory(ctx context.Context, eventID, memoryID string) (domain.Memory, error)
	SetMemoryVisibility(ctx context.Context, eventID, memoryID string, v domain.Visibility) error
	DeleteMemory(ctx context.Context, eventID, memoryID string) error
}

type VoiceStore interface {
	CreateVoice(ctx context.Context, item domain.Voice) (domain.Voice, error)
	ListVoices(ctx context.Context, eventID string, publicOnly bool, limit int) ([]domain.Voice, error)
	GetVoice(ctx context.Context, eventID, voiceID string) (domain.Voice, error)
	SetVoiceVisibility(ctx context.Context, eventID, voiceID string, v domain.Visibility) error
	DeleteVoice(ctx context.Context, eventID, voiceID string) error
}

type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, key string) error
	URL(key string) string
	KeyFromURL(rawURL string) (string, bool)
}

type EventPublisher interface {
	Publish(ctx context.Context, eventID, key string, payload any) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, any) error { return nil }

// Publishers sends every event to each publisher in turn.
type Publishers []EventPublisher

func (ps Publishers) Publish(ctx context.Context, eventID, key string, payload any) error {
	var errs []error
	for _, p := range ps {
		if err := p.Publish(ctx, eventID, key, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
