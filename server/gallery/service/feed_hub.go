package service

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"

	commonlog "eventgallery/server/common/log"
	"eventgallery/server/gallery/domain"
)

const (
	NoticeVisibility = "visibility"
	NoticeDeleted    = "deleted"

	noticeBuffer = 16
)

type MediaDeleted struct {
	ID string `json:"id"`
}

// ModerationNotice is what live feed sessions receive after an admin changes
// or deletes a media item.
type ModerationNotice struct {
	Type       string            `json:"type"`
	EventID    string            `json:"event_id"`
	MediaID    string            `json:"media_id"`
	Visibility domain.Visibility `json:"visibility,omitempty"`
}

// FeedHub fans moderation notices out to subscribed feed sessions. With a
// redis client the notices travel over pub/sub so sessions on other replicas
// see them; without one delivery stays in process.
type FeedHub struct {
	redis *redis.Client

	mu    sync.RWMutex
	rooms map[string]*hubRoom
}

type hubRoom struct {
	subs   map[*Subscription]struct{}
	cancel context.CancelFunc
}

type Subscription struct {
	C <-chan ModerationNotice

	ch      chan ModerationNotice
	hub     *FeedHub
	eventID string
	once    sync.Once
}

func NewFeedHub(redisClient *redis.Client) *FeedHub {
	return &FeedHub{redis: redisClient, rooms: map[string]*hubRoom{}}
}

func moderationChannel(eventID string) string {
	return "gallery:event:" + eventID + ":moderation"
}

// Publish implements EventPublisher. Payloads other than moderation changes
// are ignored.
func (h *FeedHub) Publish(ctx context.Context, eventID, _ string, payload any) error {
	notice := ModerationNotice{EventID: eventID}
	switch p := payload.(type) {
	case VisibilityChange:
		notice.Type, notice.MediaID, notice.Visibility = NoticeVisibility, p.ID, p.Visibility
	case MediaDeleted:
		notice.Type, notice.MediaID = NoticeDeleted, p.ID
	default:
		return nil
	}
	if h.redis == nil {
		h.deliver(notice)
		return nil
	}
	b, err := json.Marshal(notice)
	if err != nil {
		return err
	}
	return h.redis.Publish(ctx, moderationChannel(eventID), b).Err()
}

func (h *FeedHub) Subscribe(eventID string) *Subscription {
	ch := make(chan ModerationNotice, noticeBuffer)
	sub := &Subscription{C: ch, ch: ch, hub: h, eventID: eventID}

	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[eventID]
	if !ok {
		room = &hubRoom{subs: map[*Subscription]struct{}{}}
		if h.redis != nil {
			ctx, cancel := context.WithCancel(context.Background())
			room.cancel = cancel
			go h.consume(ctx, eventID)
		}
		h.rooms[eventID] = room
	}
	room.subs[sub] = struct{}{}
	return sub
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.leave(s)
	})
}

func (h *FeedHub) leave(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[sub.eventID]; ok {
		delete(room.subs, sub)
		if len(room.subs) == 0 {
			if room.cancel != nil {
				room.cancel()
			}
			delete(h.rooms, sub.eventID)
		}
	}
	close(sub.ch)
}

func (h *FeedHub) consume(ctx context.Context, eventID string) {
	pubsub := h.redis.Subscribe(ctx, moderationChannel(eventID))
	defer pubsub.Close()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			return
		}
		var notice ModerationNotice
		if err := json.Unmarshal([]byte(msg.Payload), &notice); err != nil {
			commonlog.Warnf("event=feed_hub action=decode status=failed event_id=%s err=%v", eventID, err)
			continue
		}
		h.deliver(notice)
	}
}

func (h *FeedHub) deliver(notice ModerationNotice) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.rooms[notice.EventID]
	if !ok {
		return
	}
	for sub := range room.subs {
		select {
		case sub.ch <- notice:
		default:
			commonlog.Warnf("event=feed_hub action=deliver status=dropped event_id=%s media_id=%s", notice.EventID, notice.MediaID)
		}
	}
}

// Close stops every redis subscription. Open subscriptions stay valid but
// receive nothing further.
func (h *FeedHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, room := range h.rooms {
		if room.cancel != nil {
			room.cancel()
			room.cancel = nil
		}
	}
}
