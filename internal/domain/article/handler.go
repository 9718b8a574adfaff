package article

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"linuxos/internal/domain/attachment"
	"linuxos/internal/pkg/response"
)

type Handler struct {
	service     *Service
	attachments *attachment.Service
	maxMemory   int64
}

func NewHandler(service *Service, attachments *attachment.Service, maxMemory int64) *Handler {
	return &Handler{service: service, attachments: attachments, maxMemory: maxMemory}
}

type attachmentItem struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Basename string `json:"basename"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
}

// ListArticles GET /articles?page=&limit=
func (h *Handler) ListArticles(c *gin.Context) {
	f := pagination(c)
	articles, total, err := h.service.ListPublished(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondList(c, articles, total, f, nil)
}

// ListCategoryArticles GET /categories/:slug/articles
func (h *Handler) ListCategoryArticles(c *gin.Context) {
	f := pagination(c)
	category, articles, total, err := h.service.ListByCategory(c.Request.Context(), c.Param("slug"), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondList(c, articles, total, f, category)
}

// GetArticle GET /articles/:slug
func (h *Handler) GetArticle(c *gin.Context) {
	ctx := c.Request.Context()
	a, err := h.service.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.service.Hit(ctx, a); err != nil {
		log.Printf("article_hit_failed article_id=%d error=%v", a.ID, err)
	}
	response.Success(c, http.StatusOK, h.service.Response(ctx, a))
}

// ListArticleAttachments GET /articles/:slug/attachments
func (h *Handler) ListArticleAttachments(c *gin.Context) {
	ctx := c.Request.Context()
	a, err := h.service.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		h.fail(c, err)
		return
	}
	list, err := h.service.Attachments(ctx, a)
	if err != nil {
		h.fail(c, err)
		return
	}
	items := make([]attachmentItem, 0, len(list))
	for _, att := range list {
		items = append(items, attachmentItem{
			ID:       att.ID,
			Name:     att.OriginalName,
			Basename: att.Basename(),
			URL:      att.URL(h.attachments.Files()),
			Size:     att.Size,
		})
	}
	response.Success(c, http.StatusOK, items)
}

// ListCategories GET /categories
func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.service.ListCategories(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, categories)
}

// CreateCategory POST /admin/categories
func (h *Handler) CreateCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_JSON", "invalid JSON body")
		return
	}
	category, err := h.service.CreateCategory(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, category)
}

// CreateArticle POST /admin/articles
//
// The request is a multipart form carrying the article fields, an optional
// image and the attachment fields (upload_session, attachment, delete_attachment).
// A rejected submission answers the upload session token so that a resubmission
// keeps the files uploaded so far.
func (h *Handler) CreateArticle(c *gin.Context) {
	ctx := c.Request.Context()

	data, err := attachment.ParseRequest(c.Request, h.maxMemory)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_FORM", "invalid multipart form")
		return
	}
	form := h.attachments.NewForm(h.service.ContentType(), data)
	if err := form.ProcessAttachments(ctx); err != nil {
		h.fail(c, err)
		return
	}

	var req CreateArticleRequest
	if err := c.ShouldBindWith(&req, binding.Form); err != nil {
		h.rejectForm(c, form, FieldErrors{"_": err.Error()})
		return
	}

	var image attachment.Upload
	if fh, err := c.FormFile("image"); err == nil {
		image = attachment.FromFileHeader(fh)
	} else if !errors.Is(err, http.ErrMissingFile) {
		response.Error(c, http.StatusBadRequest, "INVALID_FORM", "invalid image upload")
		return
	}

	a, moved, err := h.service.Create(ctx, &req, authorID(c), image, form)
	var ferrs FieldErrors
	if errors.As(err, &ferrs) {
		h.rejectForm(c, form, ferrs)
		return
	}
	if err != nil && a == nil {
		h.fail(c, err)
		return
	}

	resp := gin.H{"article": h.service.Response(ctx, a), "attachments": len(moved)}
	if err != nil {
		resp["attachments_error"] = "attachments could not be moved"
	}
	response.Success(c, http.StatusCreated, resp)
}

func (h *Handler) rejectForm(c *gin.Context, form *attachment.Form, errs FieldErrors) {
	fields := FieldErrors{}
	for k, v := range errs {
		fields[k] = v
	}
	for k, v := range form.Errors() {
		fields[k] = v
	}

	uploads := []attachmentItem{}
	if list, err := form.GetAttachments(c.Request.Context()); err == nil {
		for _, t := range list {
			uploads = append(uploads, attachmentItem{
				ID:       t.ID,
				Name:     t.OriginalName,
				Basename: t.Basename(),
				URL:      t.URL(h.attachments.Files()),
				Size:     t.Size,
			})
		}
	}

	response.ErrorWithDetails(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid article", gin.H{
		"fields":                       fields,
		attachment.FieldUploadSession: form.SessionToken(),
		"uploads":                      uploads,
	})
}

func (h *Handler) respondList(c *gin.Context, articles []Article, total int64, f ListFilter, category *Category) {
	items := make([]ArticleResponse, 0, len(articles))
	for i := range articles {
		items = append(items, ArticleResponse{Article: articles[i]})
	}
	data := gin.H{
		"articles": items,
		"pagination": gin.H{
			"page":        f.Offset/f.Limit + 1,
			"limit":       f.Limit,
			"total":       total,
			"total_pages": (int(total) + f.Limit - 1) / f.Limit,
		},
	}
	if category != nil {
		data["category"] = category
	}
	response.Success(c, http.StatusOK, data)
}

func pagination(c *gin.Context) ListFilter {
	f := ListFilter{Limit: 20}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 && limit <= 100 {
		f.Limit = limit
	}
	if page, err := strconv.Atoi(c.Query("page")); err == nil && page > 0 {
		f.Offset = (page - 1) * f.Limit
	}
	return f
}

func authorID(c *gin.Context) *int64 {
	v, ok := c.Get("user_id")
	if !ok {
		return nil
	}
	id, ok := v.(int64)
	if !ok {
		return nil
	}
	return &id
}

func (h *Handler) fail(c *gin.Context, err error) {
	var ferrs FieldErrors
	switch {
	case errors.As(err, &ferrs):
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid input", ferrs)
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "article not found")
	case errors.Is(err, ErrCategoryNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "category not found")
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "article operation failed")
	}
}
