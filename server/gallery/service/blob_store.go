package service

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
)

// MinioBlobStore keeps media objects in one bucket and exposes them under
// publicBaseURL, e.g. http://localhost:9000/gallery.
type MinioBlobStore struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
}

func NewMinioBlobStore(client *minio.Client, bucket, publicBaseURL string) *MinioBlobStore {
	return &MinioBlobStore{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"),
	}
}

func (s *MinioBlobStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{ContentType: contentType})
	return err
}

func (s *MinioBlobStore) Remove(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

func (s *MinioBlobStore) URL(key string) string {
	return publicObjectURL(s.publicBaseURL, key)
}

func (s *MinioBlobStore) KeyFromURL(rawURL string) (string, bool) {
	return objectKeyFromURL(s.publicBaseURL, rawURL)
}

func publicObjectURL(base, key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return base + "/" + strings.Join(segments, "/")
}

func objectKeyFromURL(base, rawURL string) (string, bool) {
	prefix := base + "/"
	if !strings.HasPrefix(rawURL, prefix) {
		return "", false
	}
	escaped := strings.TrimPrefix(rawURL, prefix)
	if i := strings.IndexAny(escaped, "?#"); i >= 0 {
		escaped = escaped[:i]
	}
	key, err := url.PathUnescape(escaped)
	if err != nil || key == "" {
		return "", false
	}
	return key, true
}
