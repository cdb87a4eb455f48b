package repository

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"eventgallery/server/gallery/domain"
	"eventgallery/server/gallery/feed"
)

// firestoreMedia mirrors documents under events/{eventId}/media.
type firestoreMedia struct {
	URL        string    `firestore:"url"`
	Type       string    `firestore:"type"`
	Thumbnail  string    `firestore:"thumbnail,omitempty"`
	SenderName string    `firestore:"senderName,omitempty"`
	Visibility string    `firestore:"visibility,omitempty"`
	CreatedAt  time.Time `firestore:"createdAt"`
}

type FirestoreMediaStore struct {
	client *firestore.Client
}

func NewFirestoreMediaStore(client *firestore.Client) *FirestoreMediaStore {
	return &FirestoreMediaStore{client: client}
}

func (s *FirestoreMediaStore) media(eventID string) *firestore.CollectionRef {
	return s.client.Collection("events").Doc(eventID).Collection("media")
}

func (s *FirestoreMediaStore) QueryMedia(ctx context.Context, q feed.MediaQuery) ([]domain.MediaRecord, error) {
	query := s.media(q.EventID).Query
	if q.PublicOnly {
		query = query.Where("visibility", "==", string(domain.VisibilityPublic))
	}
	query = query.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
	if q.After != nil {
		query = query.StartAfter(q.After.CreatedAt, q.After.ID)
	}
	iter := query.Limit(q.Limit).Documents(ctx)
	defer iter.Stop()

	items := make([]domain.MediaRecord, 0, q.Limit)
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		var m firestoreMedia
		if err := doc.DataTo(&m); err != nil {
			return nil, err
		}
		items = append(items, m.record(doc.Ref.ID, q.EventID))
	}
	return items, nil
}

func (m firestoreMedia) record(id, eventID string) domain.MediaRecord {
	visibility := domain.Visibility(m.Visibility)
	if visibility == "" {
		visibility = domain.VisibilityPublic
	}
	return domain.MediaRecord{
		ID:         id,
		EventID:    eventID,
		URL:        m.URL,
		Type:       m.Type,
		Thumbnail:  m.Thumbnail,
		SenderName: m.SenderName,
		Visibility: visibility,
		CreatedAt:  m.CreatedAt,
	}
}

func (s *FirestoreMediaStore) CreateMedia(ctx context.Context, item domain.MediaRecord) (domain.MediaRecord, error) {
	data := map[string]any{
		"url":        item.URL,
		"type":       item.Type,
		"senderName": item.SenderName,
		"visibility": string(item.Visibility),
		"createdAt":  firestore.ServerTimestamp,
	}
	if item.Thumbnail != "" {
		data["thumbnail"] = item.Thumbnail
	}
	wr, err := s.media(item.EventID).Doc(item.ID).Create(ctx, data)
	if err != nil {
		return item, mapFirestoreErr(err)
	}
	item.CreatedAt = wr.UpdateTime
	return item, nil
}

func (s *FirestoreMediaStore) GetMedia(ctx context.Context, eventID, mediaID string) (domain.MediaRecord, error) {
	doc, err := s.media(eventID).Doc(mediaID).Get(ctx)
	if err != nil {
		return domain.MediaRecord{}, mapFirestoreErr(err)
	}
	var m firestoreMedia
	if err := doc.DataTo(&m); err != nil {
		return domain.MediaRecord{}, err
	}
	return m.record(doc.Ref.ID, eventID), nil
}

func (s *FirestoreMediaStore) SetMediaVisibility(ctx context.Context, eventID, mediaID string, v domain.Visibility) error {
	_, err := s.media(eventID).Doc(mediaID).Update(ctx, []firestore.Update{{Path: "visibility", Value: string(v)}})
	return mapFirestoreErr(err)
}

func (s *FirestoreMediaStore) DeleteMedia(ctx context.Context, eventID, mediaID string) error {
	_, err := s.media(eventID).Doc(mediaID).Delete(ctx, firestore.Exists)
	return mapFirestoreErr(err)
}

func mapFirestoreErr(err error) error {
	switch status.Code(err) {
	case codes.OK:
		return err
	case codes.NotFound:
		return ErrNotFound
	case codes.AlreadyExists:
		return ErrConflict
	default:
		return err
	}
}
