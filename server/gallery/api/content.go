package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"eventgallery/server/common/transport/httpresp"
	"eventgallery/server/gallery/service"
)

func (h *Handler) createMemory(c *gin.Context) {
	var req struct {
		SenderName string `json:"sender_name" form:"sender_name"`
		MemoryText string `json:"memory_text" form:"memory_text"`
		Visibility string `json:"visibility" form:"visibility"`
	}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
		return
	}
	visibility, ok := parseOptionalVisibility(req.Visibility)
	if !ok {
		c.JSON(http.StatusBadRequest, NewErrorResponse(httpresp.ErrInvalidVisibility))
		return
	}
	item, err := h.memories.Create(c.Request.Context(), c.Param("eventId"), req.SenderName, req.MemoryText, visibility)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(httpresp.ErrMemoryTextRequired))
			return
		}
		writeServiceError(c, "create_memory", err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *Handler) listPublicMemories(c *gin.Context) {
	h.listMemories(c, false)
}

func (h *Handler) listAllMemories(c *gin.Context) {
	h.listMemories(c, true)
}

func (h *Handler) listMemories(c *gin.Context, includePrivate bool) {
	items, err := h.memories.List(c.Request.Context(), c.Param("eventId"), includePrivate)
	if err != nil {
		writeServiceError(c, "list_memories", err)
		return
	}
	c.JSON(http.StatusOK, NewItemsResponse(items))
}

func (h *Handler) toggleMemoryVisibility(c *gin.Context) {
	memoryID := c.Param("memoryId")
	v, err := h.memories.ToggleVisibility(c.Request.Context(), c.Param("eventId"), memoryID)
	if err != nil {
		writeServiceError(c, "toggle_memory_visibility", err)
		return
	}
	c.JSON(http.StatusOK, httpresp.NewVisibilityResponse(memoryID, string(v)))
}

func (h *Handler) deleteMemory(c *gin.Context) {
	if err := h.memories.Delete(c.Request.Context(), c.Param("eventId"), c.Param("memoryId")); err != nil {
		writeServiceError(c, "delete_memory", err)
		return
	}
	c.JSON(http.StatusOK, httpresp.NewOKResponse())
}

func (h *Handler) uploadVoice(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, service.MaxVoiceBytes+1<<20)
	fh, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(httpresp.ErrNoFiles))
		return
	}
	visibility, ok := parseOptionalVisibility(c.PostForm("visibility"))
	if !ok {
		c.JSON(http.StatusBadRequest, NewErrorResponse(httpresp.ErrInvalidVisibility))
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(httpresp.ErrInvalidRequest))
		return
	}
	defer f.Close()

	item, err := h.voices.Upload(c.Request.Context(), c.Param("eventId"), c.PostForm("sender_name"), visibility,
		service.UploadFile{Name: fh.Filename, Size: fh.Size, Body: f})
	if err != nil {
		writeServiceError(c, "upload_voice", err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *Handler) listPublicVoices(c *gin.Context) {
	h.listVoices(c, false)
}

func (h *Handler) listAllVoices(c *gin.Context) {
	h.listVoices(c, true)
}

func (h *Handler) listVoices(c *gin.Context, includePrivate bool) {
	items, err := h.voices.List(c.Request.Context(), c.Param("eventId"), includePrivate)
	if err != nil {
		writeServiceError(c, "list_voices", err)
		return
	}
	c.JSON(http.StatusOK, NewItemsResponse(items))
}

func (h *Handler) toggleVoiceVisibility(c *gin.Context) {
	voiceID := c.Param("voiceId")
	v, err := h.voices.ToggleVisibility(c.Request.Context(), c.Param("eventId"), voiceID)
	if err != nil {
		writeServiceError(c, "toggle_voice_visibility", err)
		return
	}
	c.JSON(http.StatusOK, httpresp.NewVisibilityResponse(voiceID, string(v)))
}

func (h *Handler) deleteVoice(c *gin.Context) {
	if err := h.voices.Delete(c.Request.Context(), c.Param("eventId"), c.Param("voiceId")); err != nil {
		writeServiceError(c, "delete_voice", err)
		return
	}
	c.JSON(http.StatusOK, httpresp.NewOKResponse())
}
