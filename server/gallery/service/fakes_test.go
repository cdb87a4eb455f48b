package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"eventgallery/server/gallery/domain"
	"eventgallery/server/gallery/feed"
)

const testBaseURL = "http://objects.test/gallery"

type memEvents struct {
	events map[string]domain.Event
}

func newMemEvents(ids ...string) *memEvents {
	m := &memEvents{events: map[string]domain.Event{}}
	for _, id := range ids {
		m.events[id] = domain.Event{ID: id, Name: "Event " + id}
	}
	return m
}

func (m *memEvents) CreateEvent(_ context.Context, ev domain.Event) (domain.Event, error) {
	if _, ok := m.events[ev.ID]; ok {
		return domain.Event{}, ErrConflict
	}
	ev.CreatedAt = time.Now()
	m.events[ev.ID] = ev
	return ev, nil
}

func (m *memEvents) GetEvent(_ context.Context, id string) (domain.Event, error) {
	ev, ok := m.events[id]
	if !ok {
		return domain.Event{}, ErrNotFound
	}
	return ev, nil
}

type memMedia struct {
	mu      sync.Mutex
	records map[string]domain.MediaRecord
	failOn  string
}

func newMemMedia() *memMedia {
	return &memMedia{records: map[string]domain.MediaRecord{}}
}

func (m *memMedia) QueryMedia(context.Context, feed.MediaQuery) ([]domain.MediaRecord, error) {
	return nil, nil
}

func (m *memMedia) CreateMedia(_ context.Context, rec domain.MediaRecord) (domain.MediaRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != "" && rec.Type == m.failOn {
		return rec, errors.New("store down")
	}
	rec.CreatedAt = time.Now()
	m.records[rec.ID] = rec
	return rec, nil
}

func (m *memMedia) GetMedia(_ context.Context, eventID, id string) (domain.MediaRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok || rec.EventID != eventID {
		return domain.MediaRecord{}, ErrNotFound
	}
	return rec, nil
}

func (m *memMedia) SetMediaVisibility(ctx context.Context, eventID, id string, v domain.Visibility) error {
	rec, err := m.GetMedia(ctx, eventID, id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.Visibility = v
	m.records[id] = rec
	return nil
}

func (m *memMedia) DeleteMedia(ctx context.Context, eventID, id string) error {
	if _, err := m.GetMedia(ctx, eventID, id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

type storedBlob struct {
	data        []byte
	contentType string
}

type memBlobs struct {
	mu        sync.Mutex
	objects   map[string]storedBlob
	removed   []string
	removeErr error
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: map[string]storedBlob{}}
}

func (b *memBlobs) Put(_ context.Context, key string, body io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = storedBlob{data: data, contentType: contentType}
	return nil
}

func (b *memBlobs) Remove(_ context.Context, key string) error {
	if b.removeErr != nil {
		return b.removeErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	b.removed = append(b.removed, key)
	return nil
}

func (b *memBlobs) URL(key string) string {
	return publicObjectURL(testBaseURL, key)
}

func (b *memBlobs) KeyFromURL(rawURL string) (string, bool) {
	return objectKeyFromURL(testBaseURL, rawURL)
}

type published struct {
	eventID string
	key     string
	payload any
}

type recPublisher struct {
	mu   sync.Mutex
	sent []published
}

func (p *recPublisher) Publish(_ context.Context, eventID, key string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, published{eventID: eventID, key: key, payload: payload})
	return nil
}

func (p *recPublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.sent))
	for _, s := range p.sent {
		out = append(out, s.key)
	}
	return out
}

func fileOf(name string, data []byte) UploadFile {
	return UploadFile{Name: name, Size: int64(len(data)), Body: bytes.NewReader(data)}
}
