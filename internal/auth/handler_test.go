package auth_test

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
)

func newRouter(svc auth.Service) http.Handler {
	h := auth.NewHandler(svc)
	r := chi.NewRouter()
	r.Route("/authentication", h.AuthenticationRoutes)
	r.With(auth.Authenticate(svc)).Route("/user", h.UserRoutes)
	return r
}

func send(h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, h http.Handler, username, password string) string {
	t.Helper()
	rec := send(h, http.MethodPost, "/authentication/login", "", `{"username":"`+username+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func TestHandlerLoginAndRegister(t *testing.T) {
	svc, _ := newService(t, auth.Options{})
	_, err := svc.EnsureAdmin(t.Context(), "admin", "admin@example.com", "s3cret-pass")
	require.NoError(t, err)
	h := newRouter(svc)

	rec := send(h, http.MethodPost, "/authentication/login", "", `{"username":"admin","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = send(h, http.MethodPost, "/authentication/login", "", `{"username":"admin"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	adminToken := login(t, h, "admin", "s3cret-pass")

	body := `{"username":"jamis","email":"jamis@example.com","password":"crysknife","role":"STAFF"}`
	rec = send(h, http.MethodPost, "/authentication/register", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = send(h, http.MethodPost, "/authentication/register", adminToken, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	staffToken := login(t, h, "jamis", "crysknife")
	rec = send(h, http.MethodPost, "/authentication/register", staffToken,
		`{"username":"other","email":"other@example.com","password":"crysknife","role":"STAFF"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = send(h, http.MethodPost, "/authentication/register", adminToken,
		`{"username":"no spaces!","email":"x@example.com","password":"crysknife","role":"STAFF"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerUsers(t *testing.T) {
	svc, _ := newService(t, auth.Options{})
	_, err := svc.EnsureAdmin(t.Context(), "admin", "admin@example.com", "s3cret-pass")
	require.NoError(t, err)
	h := newRouter(svc)
	adminToken := login(t, h, "admin", "s3cret-pass")

	rec := send(h, http.MethodPost, "/user", adminToken, `{"username":"liet","email":"liet@example.com","password":"kynes-123","role":"LIBRARIAN"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID   int64     `json:"id"`
		Role auth.Role `json:"role"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, auth.RoleLibrarian, created.Role)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = send(h, http.MethodGet, "/user", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	librarianToken := login(t, h, "liet", "kynes-123")
	rec = send(h, http.MethodGet, "/user", librarianToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var users []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	assert.Len(t, users, 2)

	rec = send(h, http.MethodPut, "/user/1", librarianToken, `{"email":"hijack@example.com"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = send(h, http.MethodDelete, "/user/1", adminToken, "")
	assert.Equal(t, http.StatusForbidden, rec.Code, "admins cannot delete themselves")

	rec = send(h, http.MethodDelete, "/user/0", adminToken, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
