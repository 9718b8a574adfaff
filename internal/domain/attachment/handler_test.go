package attachment

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func setupTestRouter(t *testing.T, quota Quota) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc, _, _ := setupService(t, quota)
	h := NewHandler(svc, fakeTables{"article_article": testArticleType, "photos": testPhotoType})

	r := gin.New()
	v1 := r.Group("/api/v1")
	RegisterRoutes(v1, h)
	RegisterAdminRoutes(v1.Group("/admin"), h)
	return r, svc
}

func serve(r http.Handler, req *http.Request) (*httptest.ResponseRecorder, apiResponse) {
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	var body apiResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &body)
	return rr, body
}

func createSession(t *testing.T, r http.Handler) string {
	t.Helper()
	rr, body := serve(r, httptest.NewRequest(http.MethodPost, "/api/v1/upload-sessions", nil))
	require.Equal(t, http.StatusCreated, rr.Code)
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

func upload(t *testing.T, r http.Handler, token, contentType string, f formFile) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	target := "/api/v1/upload-sessions/" + token + "/attachments?content_type=" + contentType
	return serve(r, multipartRequest(t, http.MethodPost, target, nil, []formFile{f}))
}

func TestHandler_UploadListDelete(t *testing.T) {
	r, _ := setupTestRouter(t, Quota{Default: 10})
	token := createSession(t, r)

	rr, body := upload(t, r, token, "article_article", formFile{"test.txt", "test"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created temporaryView
	require.NoError(t, json.Unmarshal(body.Data, &created))
	assert.Equal(t, "test.txt", created.Basename)
	assert.Equal(t, int64(4), created.Size)
	assert.Equal(t, testArticleType, created.TargetContentTypeID)

	rr, body = serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/upload-sessions/"+token+"/attachments", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var list []temporaryView
	require.NoError(t, json.Unmarshal(body.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	path := "/api/v1/upload-sessions/" + token + "/attachments/" + strconv.FormatInt(created.ID, 10)
	rr, _ = serve(r, httptest.NewRequest(http.MethodDelete, path, nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr, _ = serve(r, httptest.NewRequest(http.MethodDelete, path, nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandler_UploadOverQuota(t *testing.T) {
	r, _ := setupTestRouter(t, Quota{Default: Unlimited, PerContent: map[int64]int64{testPhotoType: 5}})
	token := createSession(t, r)

	rr, body := upload(t, r, token, "photos", formFile{"big.jpg", "123456"})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	assert.Contains(t, body.Error.Details, FieldAttachment)

	rr, _ = upload(t, r, token, "article_article", formFile{"big.txt", "123456"})
	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestHandler_UploadBadRequests(t *testing.T) {
	r, _ := setupTestRouter(t, Quota{Default: Unlimited})
	token := createSession(t, r)

	rr, body := upload(t, r, token, "unknown_table", formFile{"a.txt", "a"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "INVALID_CONTENT_TYPE", body.Error.Code)

	rr, body = upload(t, r, "not-a-token", "article_article", formFile{"a.txt", "a"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)

	req := multipartRequest(t, http.MethodPost, "/api/v1/upload-sessions/"+token+"/attachments?content_type=article_article", nil, nil)
	rr, body = serve(r, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
}

func TestHandler_ReplaceTemporary(t *testing.T) {
	r, _ := setupTestRouter(t, Quota{Default: Unlimited})
	token := createSession(t, r)

	_, body := upload(t, r, token, "article_article", formFile{"test.txt", "test"})
	var created temporaryView
	require.NoError(t, json.Unmarshal(body.Data, &created))

	path := "/api/v1/upload-sessions/" + token + "/attachments/" + strconv.FormatInt(created.ID, 10)
	rr, body := serve(r, multipartRequest(t, http.MethodPut, path, nil, []formFile{{"test2.txt", "test2"}}))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var updated temporaryView
	require.NoError(t, json.Unmarshal(body.Data, &updated))
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "test2.txt", updated.Basename)
	assert.Equal(t, int64(5), updated.Size)
}

func TestHandler_DiscardSession(t *testing.T) {
	r, _ := setupTestRouter(t, Quota{Default: Unlimited})
	token := createSession(t, r)
	upload(t, r, token, "article_article", formFile{"a.txt", "a"})

	rr, _ := serve(r, httptest.NewRequest(http.MethodDelete, "/api/v1/upload-sessions/"+token, nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr, _ = serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/upload-sessions/"+token+"/attachments", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandler_PermanentAttachments(t *testing.T) {
	r, svc := setupTestRouter(t, Quota{Default: Unlimited})

	req := multipartRequest(t, http.MethodPost, "/api/v1/admin/attachments?content_type=article_article&object_id=3", nil,
		[]formFile{{"doc.txt", "document"}})
	rr, body := serve(r, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created attachmentView
	require.NoError(t, json.Unmarshal(body.Data, &created))
	assert.Equal(t, int64(3), created.ObjectID)
	assert.Equal(t, svc.Files().URL("attachment/2/3/doc.txt"), created.URL)

	rr, body = serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/attachments?content_type=article_article&object_id=3", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var list []attachmentView
	require.NoError(t, json.Unmarshal(body.Data, &list))
	require.Len(t, list, 1)

	id := strconv.FormatInt(created.ID, 10)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/attachments/"+id+"/download", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "document", rr.Body.String())
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "doc.txt")

	rr, _ = serve(r, httptest.NewRequest(http.MethodDelete, "/api/v1/admin/attachments/"+id, nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr, _ = serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/attachments/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr, body = serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/attachments/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "INVALID_ID", body.Error.Code)
}

func TestHandler_DownloadQuotedFilename(t *testing.T) {
	r, svc := setupTestRouter(t, Quota{Default: Unlimited})
	a, err := svc.AddAttachment(context.Background(), Owner{ContentTypeID: testArticleType, ObjectID: 4},
		FromBytes(`say "hi".txt`, []byte("hi")))
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/attachments/"+strconv.FormatInt(a.ID, 10)+"/download", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	disposition, params, err := mime.ParseMediaType(rr.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "attachment", disposition)
	assert.Equal(t, `say "hi".txt`, params["filename"])
}
