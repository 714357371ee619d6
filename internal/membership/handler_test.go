package membership_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libranexus/internal/auth"
	"libranexus/internal/membership"
	"libranexus/internal/storage/memory"
)

func newRouter(role auth.Role) http.Handler {
	h := membership.NewHandler(membership.NewService(memory.New().Membership(), zerolog.Nop()))
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := auth.WithPrincipal(req.Context(), auth.Principal{UserID: 1, Username: "tester", Role: role})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/member", h.Routes)
	return r
}

func send(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerMemberLifecycle(t *testing.T) {
	h := newRouter(auth.RoleAdmin)

	rec := send(h, http.MethodPost, "/member", `{"name":"Duncan Idaho","email":"duncan@example.com","phone":"555","membershipDate":"2021-06-01"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID             int64  `json:"id"`
		MembershipDate string `json:"membershipDate"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "2021-06-01", created.MembershipDate)

	rec = send(h, http.MethodPut, fmt.Sprintf("/member/%d", created.ID), `{"phone":"556"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"phone":"556"`)

	rec = send(h, http.MethodPost, "/member", `{"name":"Another","email":"duncan@example.com","phone":"1"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = send(h, http.MethodGet, fmt.Sprintf("/member/%d", created.ID), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = send(h, http.MethodDelete, fmt.Sprintf("/member/%d", created.ID), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = send(h, http.MethodGet, fmt.Sprintf("/member/%d", created.ID), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerMemberValidation(t *testing.T) {
	h := newRouter(auth.RoleLibrarian)

	rec := send(h, http.MethodPost, "/member", `{"name":"Duncan","email":"not-an-email","phone":"1"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "email")

	rec = send(h, http.MethodPost, "/member", `{"name":"Duncan","email":"d@example.com","phone":"1","membershipDate":"01/06/2021"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = send(h, http.MethodGet, "/member/0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = send(h, http.MethodDelete, "/member/1", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
