package service

import (
	"bytes"
	"context"
	"image/color"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventgallery/server/gallery/domain"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(w, h, color.NRGBA{R: 200, A: 255}), imaging.PNG))
	return buf.Bytes()
}

// mp4Header is the start of an ISO base media file with the isom brand.
var mp4Header = []byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm', 0, 0, 2, 0, 'i', 's', 'o', 'm', 'm', 'p', '4', '1'}

var heicHeader = []byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p', 'h', 'e', 'i', 'c', 0, 0, 0, 0, 'm', 'i', 'f', '1', 'h', 'e', 'i', 'c'}

func newUploadService() (*UploadService, *memMedia, *memBlobs, *recPublisher) {
	media, blobs, pub := newMemMedia(), newMemBlobs(), &recPublisher{}
	return NewUploadService(newMemEvents("wedding"), media, blobs, pub), media, blobs, pub
}

func TestUploadImageIsNormalized(t *testing.T) {
	svc, media, blobs, pub := newUploadService()

	results, err := svc.Upload(context.Background(), "wedding", UploadRequest{
		Files: []UploadFile{fileOf("Beach Photo.png", pngBytes(t, 200, 100))},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Empty(t, results[0].Error)

	rec := results[0].Media
	require.NotNil(t, rec)
	assert.Equal(t, "image", rec.Type)
	assert.Equal(t, domain.DefaultSenderName, rec.SenderName)
	assert.Equal(t, domain.VisibilityPublic, rec.Visibility)
	assert.Contains(t, media.records, rec.ID)

	key, ok := blobs.KeyFromURL(rec.URL)
	require.True(t, ok)
	assert.Equal(t, "wedding/"+rec.ID+"_Beach Photo.jpg", key)
	stored := blobs.objects[key]
	assert.Equal(t, "image/jpeg", stored.contentType)

	img, err := imaging.Decode(bytes.NewReader(stored.data))
	require.NoError(t, err)
	assert.Equal(t, 150, img.Bounds().Dx())
	assert.Equal(t, 75, img.Bounds().Dy())

	assert.Equal(t, []string{"media.created"}, pub.keys())
}

func TestUploadVideoWithThumbnail(t *testing.T) {
	svc, _, blobs, _ := newUploadService()
	video := append(append([]byte{}, mp4Header...), bytes.Repeat([]byte{1}, 512)...)
	thumb := fileOf("thumb.png", pngBytes(t, 1280, 720))

	results, err := svc.Upload(context.Background(), "wedding", UploadRequest{
		SenderName: "Zeynep",
		Visibility: domain.VisibilityPrivate,
		Files:      []UploadFile{fileOf("clip.mp4", video)},
		Thumbnails: []*UploadFile{&thumb},
	})
	require.NoError(t, err)
	rec := results[0].Media
	require.NotNil(t, rec, results[0].Error)

	assert.Equal(t, "video", rec.Type)
	assert.Equal(t, "Zeynep", rec.SenderName)
	assert.Equal(t, domain.VisibilityPrivate, rec.Visibility)

	videoKey, _ := blobs.KeyFromURL(rec.URL)
	assert.Equal(t, "wedding/"+rec.ID+"_clip.mp4", videoKey)
	assert.Equal(t, video, blobs.objects[videoKey].data)

	thumbKey, ok := blobs.KeyFromURL(rec.Thumbnail)
	require.True(t, ok)
	assert.Equal(t, ThumbnailKey("wedding", rec.ID), thumbKey)
	thumbImg, err := imaging.Decode(bytes.NewReader(blobs.objects[thumbKey].data))
	require.NoError(t, err)
	assert.LessOrEqual(t, thumbImg.Bounds().Dx(), thumbnailMaxSide)
}

func TestUploadReportsPerFileFailures(t *testing.T) {
	svc, media, _, pub := newUploadService()
	tooBig := UploadFile{Name: "long.mp4", Size: MaxVideoBytes + 1, Body: bytes.NewReader(mp4Header)}

	results, err := svc.Upload(context.Background(), "wedding", UploadRequest{
		Files: []UploadFile{
			fileOf("phone.heic", heicHeader),
			tooBig,
			fileOf("notes.txt", []byte("hello there")),
			fileOf("ok.png", pngBytes(t, 8, 8)),
		},
	})
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, ErrUnsupportedMedia.Error(), results[0].Error)
	assert.Equal(t, ErrFileTooLarge.Error(), results[1].Error)
	assert.Equal(t, ErrUnsupportedMedia.Error(), results[2].Error)
	assert.Empty(t, results[3].Error)
	assert.Len(t, media.records, 1)
	assert.Equal(t, []string{"media.created"}, pub.keys())
}

func TestUploadRequiresKnownEventAndFiles(t *testing.T) {
	svc, _, _, _ := newUploadService()

	_, err := svc.Upload(context.Background(), "missing", UploadRequest{Files: []UploadFile{fileOf("a.png", nil)}})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Upload(context.Background(), "wedding", UploadRequest{})
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestObjectKeys(t *testing.T) {
	assert.Equal(t, "e1/abc_photo.jpg", ObjectKey("e1", "abc", "../../photo.jpg"))
	assert.Equal(t, "e1/abc_file", ObjectKey("e1", "abc", ""))
	assert.Equal(t, "e1/thumbnails/abc_thumb.jpg", ThumbnailKey("e1", "abc"))
	assert.Equal(t, "pic.jpg", replaceExt("pic.HEIC", ".jpg"))
}

func TestObjectURLRoundTrip(t *testing.T) {
	key := "wedding/abc_My Photo #1.jpg"
	u := publicObjectURL(testBaseURL, key)
	assert.False(t, strings.Contains(u, " "))

	got, ok := objectKeyFromURL(testBaseURL, u)
	require.True(t, ok)
	assert.Equal(t, key, got)

	_, ok = objectKeyFromURL(testBaseURL, "https://elsewhere.test/x.jpg")
	assert.False(t, ok)
}
