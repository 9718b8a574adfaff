package staticpage

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r)
	return r
}

func TestPages_Descriptor(t *testing.T) {
	r := setupRouter()

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/veda/screenshoty/", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Data Page `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "static/veda/screenshoty.html", body.Data.Template)
	assert.Equal(t, "page_veda/screenshoty", body.Data.Name)
}

func TestPages_LegacyRedirects(t *testing.T) {
	r := setupRouter()
	cases := map[string]string{
		"/co_je_linux/index.html":         "/co-je-linux/",
		"/portal_podporte_nas/index.html": "/portal-podporte-nas/",
		"/vedascreens/index.html":         "/veda/screenshoty/",
		"/team/index.html":                "/team/",
	}
	for from, to := range cases {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, from, nil))
		assert.Equal(t, http.StatusMovedPermanently, rr.Code, from)
		assert.Equal(t, to, rr.Header().Get("Location"), from)

		target, ok := LegacyTarget(from)
		assert.True(t, ok)
		assert.Equal(t, to, target)
	}
}

func TestPages_Unknown(t *testing.T) {
	r := setupRouter()
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nothing/", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	_, ok := LegacyTarget("/nothing/index.html")
	assert.False(t, ok)
	_, ok = Find("/nothing/")
	assert.False(t, ok)

	p, ok := Find("/hry/")
	assert.True(t, ok)
	assert.Equal(t, "hry", p.Legacy)
}
