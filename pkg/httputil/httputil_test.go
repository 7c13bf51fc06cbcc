package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cvintake/cvintake-backend/pkg/errors"
	"github.com/cvintake/cvintake-backend/pkg/i18n"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	Created(rec, map[string]string{"id": "abc"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	resp := decode(t, rec)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
}

func TestError(t *testing.T) {
	t.Run("app error keeps status and code", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Error(rec, errors.UnsupportedMediaType())

		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
		resp := decode(t, rec)
		assert.False(t, resp.Success)
		assert.Equal(t, "UNSUPPORTED_MEDIA_TYPE", resp.Error.Code)
	})

	t.Run("plain error is internal", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Error(rec, fmt.Errorf("boom"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "INTERNAL_ERROR", decode(t, rec).Error.Code)
	})
}

func TestErrorLocalized(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(i18n.WithLocale(req.Context(), i18n.LocaleGerman))
	rec := httptest.NewRecorder()

	ErrorLocalized(rec, req, errors.UnsupportedMediaType())

	resp := decode(t, rec)
	assert.Equal(t, i18n.TWithLocale(i18n.LocaleGerman, "errors.file_type"), resp.Error.Message)
	assert.NotEqual(t, i18n.T("errors.file_type"), resp.Error.Message)
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	t.Run("generates", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
	})

	t.Run("propagates", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "upstream-id")
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, "upstream-id", seen)
	})
}
