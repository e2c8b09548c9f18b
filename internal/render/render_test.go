package render

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	JSON(rec, http.StatusCreated, map[string]int{"n": 1})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"n":1}`, rec.Body.String())
}

func TestErrorf(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	Errorf(rec, http.StatusBadGateway, "upstream %d", 502)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"upstream 502"}`, rec.Body.String())
}

func TestDecode(t *testing.T) {
	t.Parallel()

	var dst struct {
		URL string `json:"url"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"url":"example.com"}`))
	require.NoError(t, Decode(req, &dst))
	assert.Equal(t, "example.com", dst.URL)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"url":"a"} {"url":"b"}`))
	require.Error(t, Decode(req, &dst))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`not json`))
	require.Error(t, Decode(req, &dst))
}
