package catalog_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libranexus/internal/auth"
	"libranexus/internal/catalog"
)

func newRouter(svc catalog.Service, role auth.Role) http.Handler {
	h := catalog.NewHandler(svc)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := auth.WithPrincipal(req.Context(), auth.Principal{UserID: 1, Username: "tester", Role: role})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/books", h.BookRoutes)
	r.Route("/author", h.AuthorRoutes)
	r.Route("/publisher", h.PublisherRoutes)
	return r
}

func send(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerBookLifecycle(t *testing.T) {
	f := newFixture(t)
	h := newRouter(f.svc, auth.RoleAdmin)

	body := fmt.Sprintf(`{
		"bookDetails": {"isbn": "9780441172719", "title": "Dune", "publicationYear": 1965, "edition": "1st", "language": "en"},
		"categoryIds": [%d],
		"publisherId": %d,
		"authorIds": [%d]
	}`, f.categories[0], f.publisher, f.author)
	rec := send(h, http.MethodPost, "/books", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		ID             int64    `json:"id"`
		CategoriesName []string `json:"categoriesName"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, []string{"Sci-Fi"}, created.CategoriesName)

	rec = send(h, http.MethodGet, "/books/isbn/9780441172719", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = send(h, http.MethodGet, fmt.Sprintf("/books/%d/availability", created.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"bookId":%d,"available":true}`, created.ID), rec.Body.String())

	rec = send(h, http.MethodPut, fmt.Sprintf("/books/%d", created.ID), `{"bookDetails":{"title":"Dune Messiah"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"title":"Dune Messiah"`)

	rec = send(h, http.MethodGet, "/books", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"isbn":"9780441172719"`)

	rec = send(h, http.MethodDelete, fmt.Sprintf("/author/%d", f.author), "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = send(h, http.MethodDelete, fmt.Sprintf("/books/%d", created.ID), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandlerBookValidation(t *testing.T) {
	f := newFixture(t)
	h := newRouter(f.svc, auth.RoleLibrarian)

	future := fmt.Sprintf(`{
		"bookDetails": {"isbn": "1", "title": "Later", "publicationYear": 9999, "edition": "1", "language": "en"},
		"categoryIds": [%d], "publisherId": %d, "authorIds": [%d]
	}`, f.categories[0], f.publisher, f.author)
	rec := send(h, http.MethodPost, "/books", future)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "publicationYear")

	rec = send(h, http.MethodPost, "/books", `{"bookDetails":{"title":"x"},"categoryIds":[],"publisherId":1,"authorIds":[1]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = send(h, http.MethodPost, "/books", `{"unknown": true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = send(h, http.MethodDelete, "/books/1", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandlerContributors(t *testing.T) {
	f := newFixture(t)
	h := newRouter(f.svc, auth.RoleAdmin)

	rec := send(h, http.MethodPost, "/author", `{"name":"Ursula K. Le Guin","biography":"Earthsea"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = send(h, http.MethodPost, "/publisher", `{"name":"Ace Books","address":"New York"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = send(h, http.MethodPost, "/publisher", `{"name":"Ace Books","address":"Elsewhere"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = send(h, http.MethodGet, "/author", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var authors []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &authors))
	assert.Len(t, authors, 2)

	rec = send(h, http.MethodGet, "/publisher/999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
