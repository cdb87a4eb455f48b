package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	commonlog "eventgallery/server/common/log"
	"eventgallery/server/common/metrics"
	"eventgallery/server/gallery/domain"
)

const (
	MaxVideoBytes     = 100 << 20
	MaxImageBytes     = 40 << 20
	imageScale        = 0.75
	imageJPEGQuality  = 85
	thumbnailMaxSide  = 640
	sniffHeaderLength = 3072
)

// UploadFile is one part of a multipart upload. Size is the declared size
// and is checked before the body is read.
type UploadFile struct {
	Name string
	Size int64
	Body io.Reader
}

type UploadRequest struct {
	SenderName string
	Visibility domain.Visibility
	Files      []UploadFile
	// Thumbnails are matched to Files by index; nil entries mean none.
	Thumbnails []*UploadFile
}

type UploadResult struct {
	Name  string              `json:"name"`
	Media *domain.MediaRecord `json:"media,omitempty"`
	Error string              `json:"error,omitempty"`
}

type UploadService struct {
	events    EventStore
	media     MediaStore
	blobs     BlobStore
	publisher EventPublisher
}

func NewUploadService(events EventStore, media MediaStore, blobs BlobStore, publisher EventPublisher) *UploadService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &UploadService{events: events, media: media, blobs: blobs, publisher: publisher}
}

// Upload stores every file independently; a failing file is reported in its
// result and does not stop the others.
func (s *UploadService) Upload(ctx context.Context, eventID string, req UploadRequest) ([]UploadResult, error) {
	if len(req.Files) == 0 {
		return nil, ErrNoFiles
	}
	if _, err := s.events.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	sender := senderOrDefault(req.SenderName)
	visibility := req.Visibility
	if visibility == "" {
		visibility = domain.VisibilityPublic
	}

	results := make([]UploadResult, 0, len(req.Files))
	for i, f := range req.Files {
		var thumb *UploadFile
		if i < len(req.Thumbnails) {
			thumb = req.Thumbnails[i]
		}
		rec, kind, err := s.uploadOne(ctx, eventID, sender, visibility, f, thumb)
		if err != nil {
			commonlog.Warnf("event=media_upload action=store status=failed event_id=%s name=%q err=%v", eventID, f.Name, err)
			metrics.Uploads.WithLabelValues(string(kind), "failed").Inc()
			results = append(results, UploadResult{Name: f.Name, Error: uploadErrorMessage(err)})
			continue
		}
		metrics.Uploads.WithLabelValues(string(kind), "ok").Inc()
		if err := s.publisher.Publish(ctx, eventID, "media.created", rec); err != nil {
			commonlog.Warnf("event=media_upload action=publish status=failed event_id=%s media_id=%s err=%v", eventID, rec.ID, err)
		}
		commonlog.Infof("event=media_upload action=store status=ok event_id=%s media_id=%s type=%s", eventID, rec.ID, rec.Type)
		results = append(results, UploadResult{Name: f.Name, Media: &rec})
	}
	return results, nil
}

func (s *UploadService) uploadOne(ctx context.Context, eventID, sender string, visibility domain.Visibility, f UploadFile, thumb *UploadFile) (domain.MediaRecord, domain.MediaKind, error) {
	mtype, body, err := sniff(f.Body)
	if err != nil {
		return domain.MediaRecord{}, "", fmt.Errorf("read upload: %w", err)
	}
	id := uuid.NewString()
	rec := domain.MediaRecord{
		ID:         id,
		EventID:    eventID,
		SenderName: sender,
		Visibility: visibility,
	}

	switch {
	case mtype.Is("image/heic") || mtype.Is("image/heif"):
		return rec, domain.KindImage, fmt.Errorf("%w: %s", ErrUnsupportedMedia, mtype.String())
	case strings.HasPrefix(mtype.String(), "image/"):
		if f.Size > MaxImageBytes {
			return rec, domain.KindImage, ErrFileTooLarge
		}
		data, err := processImage(io.LimitReader(body, MaxImageBytes+1))
		if err != nil {
			return rec, domain.KindImage, err
		}
		key := ObjectKey(eventID, id, replaceExt(f.Name, ".jpg"))
		if err := s.blobs.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "image/jpeg"); err != nil {
			return rec, domain.KindImage, fmt.Errorf("store image: %w", err)
		}
		rec.Type, rec.URL = string(domain.KindImage), s.blobs.URL(key)
	case strings.HasPrefix(mtype.String(), "video/"):
		if f.Size <= 0 || f.Size > MaxVideoBytes {
			return rec, domain.KindVideo, ErrFileTooLarge
		}
		key := ObjectKey(eventID, id, f.Name)
		if err := s.blobs.Put(ctx, key, body, f.Size, mtype.String()); err != nil {
			return rec, domain.KindVideo, fmt.Errorf("store video: %w", err)
		}
		rec.Type, rec.URL = string(domain.KindVideo), s.blobs.URL(key)
		if thumb != nil {
			thumbURL, err := s.storeThumbnail(ctx, eventID, id, *thumb)
			if err != nil {
				commonlog.Warnf("event=media_upload action=thumbnail status=failed event_id=%s media_id=%s err=%v", eventID, id, err)
			} else {
				rec.Thumbnail = thumbURL
			}
		}
	default:
		return rec, "", fmt.Errorf("%w: %s", ErrUnsupportedMedia, mtype.String())
	}

	created, err := s.media.CreateMedia(ctx, rec)
	if err != nil {
		return rec, domain.MediaKind(rec.Type), fmt.Errorf("create media record: %w", err)
	}
	return created, domain.MediaKind(rec.Type), nil
}

func (s *UploadService) storeThumbnail(ctx context.Context, eventID, mediaID string, f UploadFile) (string, error) {
	img, err := imaging.Decode(io.LimitReader(f.Body, MaxImageBytes), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%w: thumbnail is not an image", ErrUnsupportedMedia)
	}
	img = imaging.Fit(img, thumbnailMaxSide, thumbnailMaxSide, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(imageJPEGQuality)); err != nil {
		return "", err
	}
	key := ThumbnailKey(eventID, mediaID)
	if err := s.blobs.Put(ctx, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), "image/jpeg"); err != nil {
		return "", err
	}
	return s.blobs.URL(key), nil
}

// processImage applies the stored-image normalization: EXIF orientation,
// 75% downscale, JPEG quality 85.
func processImage(r io.Reader) ([]byte, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedMedia, err)
	}
	img = scale(img, imageScale)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(imageJPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func scale(img image.Image, factor float64) image.Image {
	b := img.Bounds()
	w := int(float64(b.Dx()) * factor)
	h := int(float64(b.Dy()) * factor)
	if w < 1 || h < 1 {
		return img
	}
	return imaging.Resize(img, w, h, imaging.Lanczos)
}

func sniff(r io.Reader) (*mimetype.MIME, io.Reader, error) {
	head := make([]byte, sniffHeaderLength)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, nil, err
	}
	head = head[:n]
	return mimetype.Detect(head), io.MultiReader(bytes.NewReader(head), r), nil
}

func ObjectKey(eventID, id, name string) string {
	return eventID + "/" + id + "_" + sanitizeName(name)
}

func ThumbnailKey(eventID, id string) string {
	return eventID + "/thumbnails/" + id + "_thumb.jpg"
}

func sanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	return name
}

func replaceExt(name, ext string) string {
	name = sanitizeName(name)
	return strings.TrimSuffix(name, filepath.Ext(name)) + ext
}

func senderOrDefault(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.DefaultSenderName
	}
	return name
}

func uploadErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedMedia):
		return ErrUnsupportedMedia.Error()
	case errors.Is(err, ErrFileTooLarge):
		return ErrFileTooLarge.Error()
	default:
		return "upload failed"
	}
}
