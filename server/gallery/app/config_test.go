package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("GALLERY_CONFIG", "")
	t.Setenv("MINIO_ENDPOINT", "objects.local:9000")
	t.Setenv("MINIO_BUCKET", "wedding-media")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, MediaStorePostgres, cfg.MediaStore)
	assert.Equal(t, 4, cfg.FeedPageSize)
	assert.Equal(t, "http://objects.local:9000/wedding-media", cfg.MediaPublicBaseURL)
	assert.Empty(t, cfg.BootstrapToken)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("GALLERY_CONFIG", "")
	t.Setenv("MEDIA_STORE", "Mongo")
	t.Setenv("FEED_PAGE_SIZE", "12")
	t.Setenv("GALLERY_USE_MQ", "false")
	t.Setenv("MEDIA_PUBLIC_BASE_URL", "https://cdn.example.com/gallery")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, MediaStoreMongo, cfg.MediaStore)
	assert.Equal(t, 12, cfg.FeedPageSize)
	assert.False(t, cfg.UseMQ)
	assert.Equal(t, "https://cdn.example.com/gallery", cfg.MediaPublicBaseURL)
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv("GALLERY_CONFIG", "/nonexistent/gallery.yaml")
	_, err := LoadConfig()
	assert.Error(t, err)
}
