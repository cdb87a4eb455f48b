package service

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"eventgallery/server/common/auth"
	"eventgallery/server/gallery/domain"
)

func TestModerationToggleAndDelete(t *testing.T) {
	ctx := context.Background()
	media, blobs, pub := newMemMedia(), newMemBlobs(), &recPublisher{}
	svc := NewModerationService(media, blobs, pub)

	videoKey, thumbKey := "wedding/v1_clip.mp4", ThumbnailKey("wedding", "v1")
	require.NoError(t, blobs.Put(ctx, videoKey, bytes.NewReader([]byte("v")), 1, "video/mp4"))
	require.NoError(t, blobs.Put(ctx, thumbKey, bytes.NewReader([]byte("t")), 1, "image/jpeg"))
	_, err := media.CreateMedia(ctx, domain.MediaRecord{
		ID: "v1", EventID: "wedding", Type: "video",
		URL: blobs.URL(videoKey), Thumbnail: blobs.URL(thumbKey),
		Visibility: domain.VisibilityPublic,
	})
	require.NoError(t, err)

	v, err := svc.ToggleMediaVisibility(ctx, "wedding", "v1")
	require.NoError(t, err)
	assert.Equal(t, domain.VisibilityPrivate, v)
	v, err = svc.ToggleMediaVisibility(ctx, "wedding", "v1")
	require.NoError(t, err)
	assert.Equal(t, domain.VisibilityPublic, v)

	require.NoError(t, svc.DeleteMedia(ctx, "wedding", "v1"))
	assert.ElementsMatch(t, []string{videoKey, thumbKey}, blobs.removed)
	assert.Empty(t, media.records)
	assert.Equal(t, []string{"media.visibility_changed", "media.visibility_changed", "media.deleted"}, pub.keys())

	_, err = svc.ToggleMediaVisibility(ctx, "wedding", "v1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.DeleteMedia(ctx, "other", "v1"), ErrNotFound)
}

func TestModerationKeepsRecordWhenObjectRemovalFails(t *testing.T) {
	ctx := context.Background()
	media, blobs := newMemMedia(), newMemBlobs()
	blobs.removeErr = errors.New("bucket offline")
	_, err := media.CreateMedia(ctx, domain.MediaRecord{ID: "i1", EventID: "wedding", Type: "image", URL: blobs.URL("wedding/i1_a.jpg")})
	require.NoError(t, err)

	err = NewModerationService(media, blobs, nil).DeleteMedia(ctx, "wedding", "i1")
	require.Error(t, err)
	assert.Contains(t, media.records, "i1")
}

type memMemories struct {
	items map[string]domain.Memory
	seq   int
}

func (m *memMemories) CreateMemory(_ context.Context, item domain.Memory) (domain.Memory, error) {
	m.seq++
	item.CreatedAt = time.Unix(int64(m.seq), 0)
	m.items[item.ID] = item
	return item, nil
}

func (m *memMemories) ListMemories(_ context.Context, eventID string, publicOnly bool, limit int) ([]domain.Memory, error) {
	out := []domain.Memory{}
	for _, it := range m.items {
		if it.EventID == eventID && (!publicOnly || it.Visibility == domain.VisibilityPublic) {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memMemories) GetMemory(_ context.Context, eventID, id string) (domain.Memory, error) {
	it, ok := m.items[id]
	if !ok || it.EventID != eventID {
		return domain.Memory{}, ErrNotFound
	}
	return it, nil
}

func (m *memMemories) SetMemoryVisibility(ctx context.Context, eventID, id string, v domain.Visibility) error {
	it, err := m.GetMemory(ctx, eventID, id)
	if err != nil {
		return err
	}
	it.Visibility = v
	m.items[id] = it
	return nil
}

func (m *memMemories) DeleteMemory(ctx context.Context, eventID, id string) error {
	if _, err := m.GetMemory(ctx, eventID, id); err != nil {
		return err
	}
	delete(m.items, id)
	return nil
}

func TestMemoryServiceSanitizesAndFilters(t *testing.T) {
	ctx := context.Background()
	store := &memMemories{items: map[string]domain.Memory{}}
	svc := NewMemoryService(newMemEvents("wedding"), store, nil)

	first, err := svc.Create(ctx, "wedding", "", "<b>Mutlu</b> yillar", "")
	require.NoError(t, err)
	assert.Equal(t, "Mutlu yillar", first.Text)
	assert.Equal(t, domain.DefaultSenderName, first.SenderName)
	assert.Equal(t, domain.VisibilityPublic, first.Visibility)

	second, err := svc.Create(ctx, "wedding", "Ali", "Harika bir gece", domain.VisibilityPrivate)
	require.NoError(t, err)

	_, err = svc.Create(ctx, "wedding", "Ali", "  <i></i> ", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Create(ctx, "missing", "Ali", "text", "")
	assert.ErrorIs(t, err, ErrNotFound)

	public, err := svc.List(ctx, "wedding", false)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, first.ID, public[0].ID)

	all, err := svc.List(ctx, "wedding", true)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)

	v, err := svc.ToggleVisibility(ctx, "wedding", second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VisibilityPublic, v)

	require.NoError(t, svc.Delete(ctx, "wedding", first.ID))
	assert.ErrorIs(t, svc.Delete(ctx, "wedding", first.ID), ErrNotFound)
}

type memVoices struct {
	items map[string]domain.Voice
}

func (m *memVoices) CreateVoice(_ context.Context, item domain.Voice) (domain.Voice, error) {
	m.items[item.ID] = item
	return item, nil
}

func (m *memVoices) ListVoices(_ context.Context, eventID string, publicOnly bool, _ int) ([]domain.Voice, error) {
	out := []domain.Voice{}
	for _, it := range m.items {
		if it.EventID == eventID && (!publicOnly || it.Visibility == domain.VisibilityPublic) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memVoices) GetVoice(_ context.Context, eventID, id string) (domain.Voice, error) {
	it, ok := m.items[id]
	if !ok || it.EventID != eventID {
		return domain.Voice{}, ErrNotFound
	}
	return it, nil
}

func (m *memVoices) SetVoiceVisibility(ctx context.Context, eventID, id string, v domain.Visibility) error {
	it, err := m.GetVoice(ctx, eventID, id)
	if err != nil {
		return err
	}
	it.Visibility = v
	m.items[id] = it
	return nil
}

func (m *memVoices) DeleteVoice(_ context.Context, _ string, id string) error {
	delete(m.items, id)
	return nil
}

func wavBytes() []byte {
	data := []byte("RIFF\x24\x00\x00\x00WAVEfmt \x10\x00\x00\x00\x01\x00\x01\x00\x44\xac\x00\x00\x88\x58\x01\x00\x02\x00\x10\x00data\x00\x00\x00\x00")
	return append(data, make([]byte, 64)...)
}

func TestVoiceServiceStoresUnderTimestampKey(t *testing.T) {
	ctx := context.Background()
	blobs, store := newMemBlobs(), &memVoices{items: map[string]domain.Voice{}}
	svc := NewVoiceService(newMemEvents("wedding"), store, blobs, nil)
	svc.now = func() time.Time { return time.UnixMilli(1718380800123) }

	voice, err := svc.Upload(ctx, "wedding", "", "", fileOf("note.wav", wavBytes()))
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSenderName, voice.SenderName)

	key, ok := blobs.KeyFromURL(voice.URL)
	require.True(t, ok)
	assert.Equal(t, "voices/wedding/1718380800123.wav", key)

	_, err = svc.Upload(ctx, "wedding", "", "", fileOf("x.png", []byte("not audio at all")))
	assert.ErrorIs(t, err, ErrUnsupportedMedia)

	v, err := svc.ToggleVisibility(ctx, "wedding", voice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VisibilityPrivate, v)
	public, err := svc.List(ctx, "wedding", false)
	require.NoError(t, err)
	assert.Empty(t, public)

	require.NoError(t, svc.Delete(ctx, "wedding", voice.ID))
	assert.Equal(t, []string{key}, blobs.removed)
}

func TestEventServiceLogin(t *testing.T) {
	ctx := context.Background()
	authSvc := auth.NewService("secret", 30)
	svc := NewEventService(newMemEvents(), authSvc)
	svc.bcryptCost = bcrypt.MinCost

	ev, err := svc.Create(ctx, "wedding-2025", "Ayse & Ali", "admin", "s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", ev.PasswordHash)

	_, err = svc.Create(ctx, "wedding-2025", "again", "admin", "s3cret-pass")
	assert.ErrorIs(t, err, ErrConflict)
	_, err = svc.Create(ctx, "bad id!", "x", "admin", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Create(ctx, "short", "x", "admin", "123")
	assert.ErrorIs(t, err, ErrInvalidInput)

	token, err := svc.Login(ctx, "wedding-2025", "admin", "s3cret-pass")
	require.NoError(t, err)
	adminID, eventID, role, err := authSvc.ParseAuthContext(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", adminID)
	assert.Equal(t, "wedding-2025", eventID)
	assert.Equal(t, auth.RoleAdmin, role)

	_, err = svc.Login(ctx, "wedding-2025", "admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "wedding-2025", "someone", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nope", "admin", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
