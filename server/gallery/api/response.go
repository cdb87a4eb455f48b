package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	commonlog "eventgallery/server/common/log"
	"eventgallery/server/common/transport/httpresp"
	"eventgallery/server/gallery/domain"
	"eventgallery/server/gallery/feed"
	"eventgallery/server/gallery/service"
)

type ErrorResponse = httpresp.ErrorResponse
type OKResponse = httpresp.OKResponse
type TokenResponse = httpresp.TokenResponse
type VisibilityResponse = httpresp.VisibilityResponse

type HealthResponse struct {
	Status string `json:"status"`
}

type PageResponse struct {
	Items      []domain.MediaItem `json:"items"`
	Skipped    []domain.Skip      `json:"skipped"`
	HasMore    bool               `json:"has_more"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

type ItemsResponse[T any] struct {
	Items []T `json:"items"`
}

type EventResponse struct {
	EventID string `json:"event_id"`
	Name    string `json:"name"`
}

type UploadResponse struct {
	Results []service.UploadResult `json:"results"`
}

func NewHealthResponse(status string) HealthResponse {
	return HealthResponse{Status: status}
}

func NewPageResponse(res feed.PageResult, nextCursor string) PageResponse {
	return PageResponse{Items: res.Appended, Skipped: res.Skipped, HasMore: res.HasMore, NextCursor: nextCursor}
}

func NewItemsResponse[T any](items []T) ItemsResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ItemsResponse[T]{Items: items}
}

func NewEventResponse(ev domain.Event) EventResponse {
	return EventResponse{EventID: ev.ID, Name: ev.Name}
}

func NewErrorResponse(message string) ErrorResponse {
	return httpresp.NewErrorResponse(message)
}

// writeServiceError maps service sentinels onto HTTP statuses.
func writeServiceError(c *gin.Context, action string, err error) {
	status, message := http.StatusInternalServerError, httpresp.ErrInternal
	switch {
	case errors.Is(err, service.ErrNotFound):
		status, message = http.StatusNotFound, httpresp.ErrNotFound
	case errors.Is(err, service.ErrConflict):
		status, message = http.StatusConflict, httpresp.ErrConflict
	case errors.Is(err, service.ErrInvalidInput):
		status, message = http.StatusBadRequest, httpresp.ErrInvalidRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		status, message = http.StatusUnauthorized, httpresp.ErrInvalidCredentials
	case errors.Is(err, service.ErrUnsupportedMedia):
		status, message = http.StatusUnsupportedMediaType, httpresp.ErrUnsupportedMedia
	case errors.Is(err, service.ErrFileTooLarge):
		status, message = http.StatusRequestEntityTooLarge, httpresp.ErrFileTooLarge
	case errors.Is(err, service.ErrNoFiles):
		status, message = http.StatusBadRequest, httpresp.ErrNoFiles
	case errors.Is(err, feed.ErrInvalidCursor), errors.Is(err, feed.ErrCursorMismatch):
		status, message = http.StatusBadRequest, httpresp.ErrInvalidCursor
	default:
		commonlog.Errorf("event=http_request action=%s status=failed path=%s err=%v", action, c.FullPath(), err)
	}
	c.JSON(status, NewErrorResponse(message))
}
