package api

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"eventgallery/server/common/transport/httpresp"
	"eventgallery/server/gallery/domain"
	"eventgallery/server/gallery/feed"
	"eventgallery/server/gallery/service"
)

func (h *Handler) publicMediaPage(c *gin.Context) {
	h.mediaPage(c, false)
}

func (h *Handler) adminMediaPage(c *gin.Context) {
	h.mediaPage(c, true)
}

// mediaPage serves one page without server-side session state; the client
// carries its position in the opaque cursor.
func (h *Handler) mediaPage(c *gin.Context, admin bool) {
	cfg := h.feedCfg
	cfg.Admin = admin
	f := feed.New(h.media, h.prober, cfg)
	defer f.Close()
	f.Reset(c.Param("eventId"))

	if raw := strings.TrimSpace(c.Query("cursor")); raw != "" {
		cursor, err := feed.DecodeCursor(raw, admin)
		if err != nil {
			c.JSON(http.StatusBadRequest, NewErrorResponse(httpresp.ErrInvalidCursor))
			return
		}
		f.Seek(cursor)
	}

	res, err := f.FetchNextPage(c.Request.Context())
	if err != nil {
		writeServiceError(c, "media_page", err)
		return
	}
	next := ""
	if res.HasMore {
		if cursor, ok := f.Cursor(); ok {
			next = feed.EncodeCursor(cursor, admin)
		}
	}
	c.JSON(http.StatusOK, NewPageResponse(res, next))
}

func (h *Handler) uploadMedia(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(httpresp.ErrInvalidRequest))
		return
	}
	visibility, ok := parseOptionalVisibility(c.PostForm("visibility"))
	if !ok {
		c.JSON(http.StatusBadRequest, NewErrorResponse(httpresp.ErrInvalidVisibility))
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, NewErrorResponse(httpresp.ErrNoFiles))
		return
	}

	var opened []multipart.File
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()
	open := func(fh *multipart.FileHeader) (service.UploadFile, error) {
		f, err := fh.Open()
		if err != nil {
			return service.UploadFile{}, err
		}
		opened = append(opened, f)
		return service.UploadFile{Name: fh.Filename, Size: fh.Size, Body: f}, nil
	}

	req := service.UploadRequest{
		SenderName: c.PostForm("sender_name"),
		Visibility: visibility,
		Files:      make([]service.UploadFile, 0, len(headers)),
		Thumbnails: make([]*service.UploadFile, len(headers)),
	}
	for i, fh := range headers {
		file, err := open(fh)
		if err != nil {
			c.JSON(http.StatusBadRequest, NewErrorResponse(httpresp.ErrInvalidRequest))
			return
		}
		req.Files = append(req.Files, file)
		if thumbs := form.File[fmt.Sprintf("thumbnail_%d", i)]; len(thumbs) > 0 {
			thumb, err := open(thumbs[0])
			if err != nil {
				c.JSON(http.StatusBadRequest, NewErrorResponse(httpresp.ErrInvalidRequest))
				return
			}
			req.Thumbnails[i] = &thumb
		}
	}

	results, err := h.uploads.Upload(c.Request.Context(), c.Param("eventId"), req)
	if err != nil {
		writeServiceError(c, "upload_media", err)
		return
	}
	status := http.StatusUnprocessableEntity
	for _, r := range results {
		if r.Media != nil {
			status = http.StatusCreated
			break
		}
	}
	c.JSON(status, UploadResponse{Results: results})
}

func (h *Handler) toggleMediaVisibility(c *gin.Context) {
	mediaID := c.Param("mediaId")
	v, err := h.moderation.ToggleMediaVisibility(c.Request.Context(), c.Param("eventId"), mediaID)
	if err != nil {
		writeServiceError(c, "toggle_media_visibility", err)
		return
	}
	c.JSON(http.StatusOK, httpresp.NewVisibilityResponse(mediaID, string(v)))
}

func (h *Handler) deleteMedia(c *gin.Context) {
	if err := h.moderation.DeleteMedia(c.Request.Context(), c.Param("eventId"), c.Param("mediaId")); err != nil {
		writeServiceError(c, "delete_media", err)
		return
	}
	c.JSON(http.StatusOK, httpresp.NewOKResponse())
}

func parseOptionalVisibility(raw string) (domain.Visibility, bool) {
	if strings.TrimSpace(raw) == "" {
		return "", true
	}
	return domain.ParseVisibility(raw)
}
