package domain

import (
	"strings"
	"time"
)

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

func ParseVisibility(raw string) (Visibility, bool) {
	switch Visibility(strings.ToLower(strings.TrimSpace(raw))) {
	case VisibilityPublic:
		return VisibilityPublic, true
	case VisibilityPrivate:
		return VisibilityPrivate, true
	default:
		return "", false
	}
}

func (v Visibility) Toggle() Visibility {
	if v == VisibilityPublic {
		return VisibilityPrivate
	}
	return VisibilityPublic
}

type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
)

const DefaultSenderName = "Anonim"

// MediaRecord is a stored media document as returned by a media store. Any
// of its string fields may be empty; the feed decides what is displayable.
type MediaRecord struct {
	ID         string     `json:"id"`
	EventID    string     `json:"event_id"`
	URL        string     `json:"url"`
	Type       string     `json:"type"`
	Thumbnail  string     `json:"thumbnail,omitempty"`
	SenderName string     `json:"sender_name"`
	Visibility Visibility `json:"visibility"`
	CreatedAt  time.Time  `json:"created_at"`
}

// MediaItem is a displayable entry of the feed.
type MediaItem struct {
	ID         string     `json:"id"`
	Kind       MediaKind  `json:"kind"`
	Src        string     `json:"src"`
	Thumbnail  string     `json:"thumbnail,omitempty"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	SenderName string     `json:"sender_name,omitempty"`
	Visibility Visibility `json:"visibility,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

type SkipReason string

const (
	SkipMissingField     SkipReason = "missing_field"
	SkipUnknownType      SkipReason = "unknown_type"
	SkipProbeFailed      SkipReason = "probe_failed"
	SkipMissingThumbnail SkipReason = "missing_thumbnail"
	SkipDuplicate        SkipReason = "duplicate"
)

type Skip struct {
	ID     string     `json:"id"`
	Reason SkipReason `json:"reason"`
}

type Event struct {
	ID           string    `json:"event_id"`
	Name         string    `json:"name"`
	AdminID      string    `json:"-"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Memory struct {
	ID         string     `json:"id"`
	EventID    string     `json:"event_id"`
	SenderName string     `json:"sender_name"`
	Text       string     `json:"memory_text"`
	Visibility Visibility `json:"visibility"`
	CreatedAt  time.Time  `json:"created_at"`
}

type Voice struct {
	ID         string     `json:"id"`
	EventID    string     `json:"event_id"`
	URL        string     `json:"url"`
	SenderName string     `json:"sender_name"`
	Visibility Visibility `json:"visibility"`
	CreatedAt  time.Time  `json:"created_at"`
}
