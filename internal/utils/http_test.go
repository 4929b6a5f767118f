package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(target string, header map[string]string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		c.Request.Header.Set(k, v)
	}
	return c
}

func TestUrlFor(t *testing.T) {
	c := testContext("http://partner.example/members", nil)
	assert.Equal(t, "http://partner.example/card-print-requests", UrlFor(c, "card-print-requests"))
	assert.Equal(t, "http://partner.example/partner/x", UrlFor(c, "/partner/x"))
	assert.Equal(t, "https://shollu.example/x", UrlFor(c, "https://shollu.example/x"))

	c = testContext("http://partner.example/", map[string]string{"X-Forwarded-Proto": "https"})
	assert.Equal(t, "https://partner.example/x", UrlFor(c, "x"))
}

func TestGetBaseURL(t *testing.T) {
	c := testContext("http://partner.example/", nil)
	assert.Equal(t, "/partner/", GetBaseURL(c, "/partner/"))
	assert.Equal(t, "http://partner.example", GetBaseURL(c, ""))
}

func TestRenderTemplate(t *testing.T) {
	fsys := fstest.MapFS{
		"mail.html.tmpl": {Data: []byte(`<p>#{{.ID}} {{.Name}}</p>`)},
	}
	out, err := RenderTemplate(fsys, "mail.html.tmpl", map[string]any{"ID": 7, "Name": "<Ahmad>"})
	require.NoError(t, err)
	assert.Equal(t, "<p>#7 &lt;Ahmad&gt;</p>", out)

	_, err = RenderTemplate(fsys, "missing.html.tmpl", nil)
	assert.Error(t, err)
}
