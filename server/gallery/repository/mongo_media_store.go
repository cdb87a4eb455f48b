package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"eventgallery/server/gallery/domain"
	"eventgallery/server/gallery/feed"
)

const mongoMediaCollection = "media"

type mongoMedia struct {
	ID         string    `bson:"_id"`
	EventID    string    `bson:"event_id"`
	URL        string    `bson:"url"`
	Type       string    `bson:"type"`
	Thumbnail  string    `bson:"thumbnail,omitempty"`
	SenderName string    `bson:"sender_name,omitempty"`
	Visibility string    `bson:"visibility"`
	CreatedAt  time.Time `bson:"created_at"`
}

func (m mongoMedia) record() domain.MediaRecord {
	return domain.MediaRecord{
		ID:         m.ID,
		EventID:    m.EventID,
		URL:        m.URL,
		Type:       m.Type,
		Thumbnail:  m.Thumbnail,
		SenderName: m.SenderName,
		Visibility: domain.Visibility(m.Visibility),
		CreatedAt:  m.CreatedAt.UTC(),
	}
}

type MongoMediaStore struct {
	coll *mongo.Collection
}

func NewMongoMediaStore(db *mongo.Database) *MongoMediaStore {
	return &MongoMediaStore{coll: db.Collection(mongoMediaCollection)}
}

// EnsureIndexes creates the compound index backing the page query.
func (s *MongoMediaStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "visibility", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
	})
	return err
}

func mongoMediaFilter(q feed.MediaQuery) bson.M {
	filter := bson.M{"event_id": q.EventID}
	if q.PublicOnly {
		filter["visibility"] = string(domain.VisibilityPublic)
	}
	if q.After != nil {
		filter["$or"] = bson.A{
			bson.M{"created_at": bson.M{"$lt": q.After.CreatedAt}},
			bson.M{"created_at": q.After.CreatedAt, "_id": bson.M{"$lt": q.After.ID}},
		}
	}
	return filter
}

func (s *MongoMediaStore) QueryMedia(ctx context.Context, q feed.MediaQuery) ([]domain.MediaRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(q.Limit))
	cur, err := s.coll.Find(ctx, mongoMediaFilter(q), opts)
	if err != nil {
		return nil, err
	}
	var docs []mongoMedia
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	items := make([]domain.MediaRecord, 0, len(docs))
	for _, d := range docs {
		items = append(items, d.record())
	}
	return items, nil
}

func (s *MongoMediaStore) CreateMedia(ctx context.Context, item domain.MediaRecord) (domain.MediaRecord, error) {
	// BSON datetimes carry millisecond precision; truncate so cursors built
	// from the returned record match the stored value.
	item.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	_, err := s.coll.InsertOne(ctx, mongoMedia{
		ID:         item.ID,
		EventID:    item.EventID,
		URL:        item.URL,
		Type:       item.Type,
		Thumbnail:  item.Thumbnail,
		SenderName: item.SenderName,
		Visibility: string(item.Visibility),
		CreatedAt:  item.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return item, ErrConflict
	}
	return item, err
}

func (s *MongoMediaStore) GetMedia(ctx context.Context, eventID, mediaID string) (domain.MediaRecord, error) {
	var doc mongoMedia
	err := s.coll.FindOne(ctx, bson.M{"_id": mediaID, "event_id": eventID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.MediaRecord{}, ErrNotFound
	}
	if err != nil {
		return domain.MediaRecord{}, err
	}
	return doc.record(), nil
}

func (s *MongoMediaStore) SetMediaVisibility(ctx context.Context, eventID, mediaID string, v domain.Visibility) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": mediaID, "event_id": eventID},
		bson.M{"$set": bson.M{"visibility": string(v)}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoMediaStore) DeleteMedia(ctx context.Context, eventID, mediaID string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": mediaID, "event_id": eventID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
