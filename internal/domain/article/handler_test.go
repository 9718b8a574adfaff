package article

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linuxos/internal/domain/attachment"
)

func setupTestRouter(t *testing.T) (*gin.Engine, *fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := setup(t)

	h := NewHandler(f.service, f.attachments, 1<<20)
	r := gin.New()
	v1 := r.Group("/api/v1")
	h.RegisterRoutes(v1)
	admin := v1.Group("/admin")
	admin.Use(func(c *gin.Context) {
		c.Set("user_id", int64(42))
		c.Next()
	})
	h.RegisterAdminRoutes(admin)
	return r, f
}

func articleForm(t *testing.T, fields map[string]string, files map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for name, content := range files {
		part, err := w.CreateFormFile(attachment.FieldAttachment, name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/articles", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestHandler_CreateArticleResubmit(t *testing.T) {
	r, f := setupTestRouter(t)
	fields := map[string]string{
		"title":        "Kernel 6.0",
		"slug":         "123",
		"category_id":  strconv.FormatInt(f.category.ID, 10),
		"perex":        "perex",
		"annotation":   "annotation",
		"content":      "content",
		"authors_name": "author",
		"published":    "true",
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, articleForm(t, fields, map[string]string{"notes.txt": "notes"}))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())

	details := decode(t, rr)["error"].(map[string]any)["details"].(map[string]any)
	assert.Contains(t, details["fields"], "slug")
	token, _ := details[attachment.FieldUploadSession].(string)
	require.NotEmpty(t, token)
	assert.Len(t, details["uploads"], 1)

	fields["slug"] = "kernel-6"
	fields[attachment.FieldUploadSession] = token
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, articleForm(t, fields, nil))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	data := decode(t, rr)["data"].(map[string]any)
	assert.Equal(t, float64(1), data["attachments"])

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/articles/kernel-6/attachments", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode(t, rr)["data"], 1)

	var a Article
	require.NoError(t, f.db.Where("slug = ?", "kernel-6").First(&a).Error)
	require.NotNil(t, a.AuthorID)
	assert.Equal(t, int64(42), *a.AuthorID)
}

func TestHandler_GetArticleCountsHits(t *testing.T) {
	r, f := setupTestRouter(t)
	f.insert(t, "news", true, time.Now().Add(-time.Hour))

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/articles/news", nil))
		require.Equal(t, http.StatusOK, rr.Code)
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/articles/news", nil))
	data := decode(t, rr)["data"].(map[string]any)
	assert.Equal(t, float64(3), data["hits"])
	assert.Equal(t, "content", data["display_content"])

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/articles/missing", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandler_Listings(t *testing.T) {
	r, f := setupTestRouter(t)
	f.insert(t, "one", true, time.Now().Add(-time.Hour))
	f.insert(t, "two", true, time.Now().Add(-time.Hour))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/articles?limit=1", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	data := decode(t, rr)["data"].(map[string]any)
	assert.Len(t, data["articles"], 1)
	pagination := data["pagination"].(map[string]any)
	assert.Equal(t, float64(2), pagination["total"])
	assert.Equal(t, float64(2), pagination["total_pages"])

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode(t, rr)["data"], 1)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/categories/linux/articles", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode(t, rr)["data"].(map[string]any)["articles"], 2)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/categories/none/articles", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
