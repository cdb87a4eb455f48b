package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	commonlog "eventgallery/server/common/log"
	"eventgallery/server/gallery/domain"
)

const (
	DefaultListLimit = 200
	MaxMemoryRunes   = 4000
)

type MemoryService struct {
	events    EventStore
	memories  MemoryStore
	publisher EventPublisher
	policy    *bluemonday.Policy
}

func NewMemoryService(events EventStore, memories MemoryStore, publisher EventPublisher) *MemoryService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &MemoryService{events: events, memories: memories, publisher: publisher, policy: bluemonday.StrictPolicy()}
}

func (s *MemoryService) Create(ctx context.Context, eventID, senderName, text string, visibility domain.Visibility) (domain.Memory, error) {
	clean := strings.TrimSpace(s.policy.Sanitize(text))
	if clean == "" || len([]rune(clean)) > MaxMemoryRunes {
		return domain.Memory{}, ErrInvalidInput
	}
	if _, err := s.events.GetEvent(ctx, eventID); err != nil {
		return domain.Memory{}, err
	}
	if visibility == "" {
		visibility = domain.VisibilityPublic
	}
	item, err := s.memories.CreateMemory(ctx, domain.Memory{
		ID:         uuid.NewString(),
		EventID:    eventID,
		SenderName: senderOrDefault(s.policy.Sanitize(senderName)),
		Text:       clean,
		Visibility: visibility,
	})
	if err != nil {
		return domain.Memory{}, err
	}
	if err := s.publisher.Publish(ctx, eventID, "memory.created", item); err != nil {
		commonlog.Warnf("event=memory action=publish status=failed event_id=%s memory_id=%s err=%v", eventID, item.ID, err)
	}
	return item, nil
}

func (s *MemoryService) List(ctx context.Context, eventID string, includePrivate bool) ([]domain.Memory, error) {
	return s.memories.ListMemories(ctx, eventID, !includePrivate, DefaultListLimit)
}

func (s *MemoryService) ToggleVisibility(ctx context.Context, eventID, memoryID string) (domain.Visibility, error) {
	item, err := s.memories.GetMemory(ctx, eventID, memoryID)
	if err != nil {
		return "", err
	}
	next := item.Visibility.Toggle()
	if err := s.memories.SetMemoryVisibility(ctx, eventID, memoryID, next); err != nil {
		return "", err
	}
	return next, nil
}

func (s *MemoryService) Delete(ctx context.Context, eventID, memoryID string) error {
	return s.memories.DeleteMemory(ctx, eventID, memoryID)
}
