package category_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libranexus/internal/auth"
	"libranexus/internal/category"
)

func newRouter(svc category.Service, role auth.Role) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := auth.WithPrincipal(req.Context(), auth.Principal{UserID: 1, Username: "tester", Role: role})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/category", category.NewHandler(svc).Routes)
	return r
}

func send(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCategoryScenario(t *testing.T) {
	svc, _ := newService()
	h := newRouter(svc, auth.RoleAdmin)

	rec := send(h, http.MethodPost, "/category", `{"category":{"name":"Fiction"}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"id":1,"name":"Fiction","parentId":null}`, rec.Body.String())

	rec = send(h, http.MethodPost, "/category", `{"category":{"name":"Sci-Fi"},"parentId":1}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var scifi struct {
		ID       int64  `json:"id"`
		ParentID *int64 `json:"parentId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scifi))
	require.NotNil(t, scifi.ParentID)
	assert.Equal(t, int64(1), *scifi.ParentID)

	rec = send(h, http.MethodPut, "/category/1", `{"category":{"name":"Fiction"},"parentId":2}`)
	assert.Equal(t, http.StatusLoopDetected, rec.Code)

	rec = send(h, http.MethodDelete, "/category/1", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = send(h, http.MethodGet, "/category", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 2)
}

func TestHandlerCategoryValidation(t *testing.T) {
	svc, _ := newService()
	h := newRouter(svc, auth.RoleLibrarian)

	rec := send(h, http.MethodPost, "/category", `{"category":{"name":"ab"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"fields"`)

	rec = send(h, http.MethodPost, "/category", `{"category":{"name":"Fiction"},"parentId":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = send(h, http.MethodDelete, "/category/1", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
