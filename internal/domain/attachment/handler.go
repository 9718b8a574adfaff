package attachment

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"linuxos/internal/pkg/response"
)

// ContentTypeLookup resolves content type table names sent by clients.
// Only registered content types are accepted.
type ContentTypeLookup interface {
	LookupID(ctx context.Context, table string) (int64, error)
}

type Handler struct {
	service *Service
	types   ContentTypeLookup
}

func NewHandler(service *Service, types ContentTypeLookup) *Handler {
	return &Handler{service: service, types: types}
}

type temporaryView struct {
	ID                  int64     `json:"id"`
	Name                string    `json:"name"`
	Basename            string    `json:"basename"`
	URL                 string    `json:"url"`
	Size                int64     `json:"size"`
	TargetContentTypeID int64     `json:"target_content_type_id"`
	CreatedAt           time.Time `json:"created_at"`
}

type attachmentView struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Basename      string    `json:"basename"`
	URL           string    `json:"url"`
	Size          int64     `json:"size"`
	ContentTypeID int64     `json:"content_type_id"`
	ObjectID      int64     `json:"object_id"`
	CreatedAt     time.Time `json:"created_at"`
}

func (h *Handler) temporaryView(a TemporaryAttachment) temporaryView {
	return temporaryView{
		ID:                  a.ID,
		Name:                a.OriginalName,
		Basename:            a.Basename(),
		URL:                 a.URL(h.service.Files()),
		Size:                a.Size,
		TargetContentTypeID: a.TargetContentTypeID,
		CreatedAt:           a.CreatedAt,
	}
}

func (h *Handler) attachmentView(a Attachment) attachmentView {
	return attachmentView{
		ID:            a.ID,
		Name:          a.OriginalName,
		Basename:      a.Basename(),
		URL:           a.URL(h.service.Files()),
		Size:          a.Size,
		ContentTypeID: a.ContentTypeID,
		ObjectID:      a.ObjectID,
		CreatedAt:     a.CreatedAt,
	}
}

// CreateSession POST /upload-sessions
func (h *Handler) CreateSession(c *gin.Context) {
	session, err := h.service.CreateSession(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{
		"token":      session.UUID,
		"created_at": session.CreatedAt,
	})
}

// DiscardSession DELETE /upload-sessions/:token
func (h *Handler) DiscardSession(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	if err := h.service.Discard(c.Request.Context(), session); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "discarded"})
}

// ListTemporary GET /upload-sessions/:token/attachments
func (h *Handler) ListTemporary(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	list, err := h.service.ListTemporary(c.Request.Context(), session)
	if err != nil {
		h.fail(c, err)
		return
	}
	items := make([]temporaryView, 0, len(list))
	for _, a := range list {
		items = append(items, h.temporaryView(a))
	}
	response.Success(c, http.StatusOK, items)
}

// Attach POST /upload-sessions/:token/attachments?content_type=<table>
func (h *Handler) Attach(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	target, ok := h.contentType(c, c.Query("content_type"))
	if !ok {
		return
	}
	fileHeader, err := c.FormFile(FieldAttachment)
	if err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "no file provided",
			map[string]string{FieldAttachment: "this field is required"})
		return
	}

	a, err := h.service.Attach(c.Request.Context(), session, FromFileHeader(fileHeader), target)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, h.temporaryView(*a))
}

// ReplaceTemporary PUT /upload-sessions/:token/attachments/:id
func (h *Handler) ReplaceTemporary(c *gin.Context) {
	a, ok := h.temporary(c)
	if !ok {
		return
	}
	fileHeader, err := c.FormFile(FieldAttachment)
	if err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "no file provided",
			map[string]string{FieldAttachment: "this field is required"})
		return
	}

	updated, err := h.service.ReplaceFile(c.Request.Context(), a, FromFileHeader(fileHeader))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, h.temporaryView(*updated))
}

// DeleteTemporary DELETE /upload-sessions/:token/attachments/:id
func (h *Handler) DeleteTemporary(c *gin.Context) {
	a, ok := h.temporary(c)
	if !ok {
		return
	}
	if err := h.service.DeleteTemporary(c.Request.Context(), a); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "deleted"})
}

// ListAttachments GET /attachments?content_type=<table>&object_id=<id>
func (h *Handler) ListAttachments(c *gin.Context) {
	ct, ok := h.contentType(c, c.Query("content_type"))
	if !ok {
		return
	}
	objectID, err := strconv.ParseInt(c.Query("object_id"), 10, 64)
	if err != nil || objectID <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "object_id must be a positive integer")
		return
	}

	list, err := h.service.ListAttachments(c.Request.Context(), Owner{ContentTypeID: ct, ObjectID: objectID})
	if err != nil {
		h.fail(c, err)
		return
	}
	items := make([]attachmentView, 0, len(list))
	for _, a := range list {
		items = append(items, h.attachmentView(a))
	}
	response.Success(c, http.StatusOK, items)
}

// GetAttachment GET /attachments/:id
func (h *Handler) GetAttachment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	a, err := h.service.GetAttachment(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, h.attachmentView(*a))
}

// Download GET /attachments/:id/download
func (h *Handler) Download(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	a, rc, err := h.service.OpenAttachment(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Basename()}))
	c.DataFromReader(http.StatusOK, a.Size, "application/octet-stream", rc, nil)
}

// AddAttachment POST /attachments?content_type=<table>&object_id=<id>
func (h *Handler) AddAttachment(c *gin.Context) {
	ct, ok := h.contentType(c, c.Query("content_type"))
	if !ok {
		return
	}
	objectID, err := strconv.ParseInt(c.Query("object_id"), 10, 64)
	if err != nil || objectID <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "object_id must be a positive integer")
		return
	}
	fileHeader, err := c.FormFile(FieldAttachment)
	if err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "no file provided",
			map[string]string{FieldAttachment: "this field is required"})
		return
	}

	a, err := h.service.AddAttachment(c.Request.Context(), Owner{ContentTypeID: ct, ObjectID: objectID}, FromFileHeader(fileHeader))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, h.attachmentView(*a))
}

// DeleteAttachment DELETE /attachments/:id
func (h *Handler) DeleteAttachment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.service.DeleteAttachment(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "deleted"})
}

func (h *Handler) session(c *gin.Context) (*UploadSession, bool) {
	session, err := h.service.GetSession(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	return session, true
}

func (h *Handler) temporary(c *gin.Context) (*TemporaryAttachment, bool) {
	session, ok := h.session(c)
	if !ok {
		return nil, false
	}
	id, ok := pathID(c)
	if !ok {
		return nil, false
	}
	a, err := h.service.GetTemporary(c.Request.Context(), session, id)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	return a, true
}

func (h *Handler) contentType(c *gin.Context, table string) (int64, bool) {
	if table == "" {
		response.Error(c, http.StatusBadRequest, "INVALID_CONTENT_TYPE", "content_type is required")
		return 0, false
	}
	id, err := h.types.LookupID(c.Request.Context(), table)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_CONTENT_TYPE", "unknown content type")
		return 0, false
	}
	return id, true
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "invalid attachment id")
		return 0, false
	}
	return id, true
}

func (h *Handler) fail(c *gin.Context, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		response.ErrorWithDetails(c, http.StatusRequestEntityTooLarge, "VALIDATION_ERROR", verr.Error(),
			map[string]string{verr.Field: verr.Error()})
	case errors.Is(err, ErrSessionNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "upload session not found")
	case errors.Is(err, ErrAttachmentNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "attachment not found")
	case errors.Is(err, ErrUnknownContentType):
		response.Error(c, http.StatusBadRequest, "INVALID_CONTENT_TYPE", "unknown content type")
	case errors.Is(err, ErrOwnerNotPersisted):
		response.Error(c, http.StatusBadRequest, "INVALID_OWNER", err.Error())
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "attachment operation failed")
	}
}
