// internal/auth/handler.go
package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"libranexus/internal/httpx"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// AuthenticationRoutes mounts login (public) and register (ADMIN).
func (h *Handler) AuthenticationRoutes(r chi.Router) {
	r.Post("/login", h.HandleLogin)
	r.With(Authenticate(h.service), RequireRole(RoleAdmin)).Post("/register", h.HandleRegister)
}

// UserRoutes mounts user management. Callers must already be authenticated.
func (h *Handler) UserRoutes(r chi.Router) {
	admin := RequireRole(RoleAdmin)

	r.With(admin).Post("/", h.HandleCreateUser)
	r.With(RequireRole(RoleAdmin, RoleLibrarian)).Get("/", h.HandleListUsers)
	r.Get("/{id}", h.HandleGetUser)
	r.Put("/{id}", h.HandleUpdateUser)
	r.With(admin).Delete("/{id}", h.HandleDeleteUser)
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type userRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50,username"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8"`
	Role     Role   `json:"role" validate:"required,oneof=ADMIN LIBRARIAN STAFF"`
}

type updateUserRequest struct {
	Username string `json:"username" validate:"omitempty,min=3,max=50,username"`
	Email    string `json:"email" validate:"omitempty,email,max=255"`
	Password string `json:"password" validate:"omitempty,min=8"`
	Role     Role   `json:"role" validate:"omitempty,oneof=ADMIN LIBRARIAN STAFF"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

func toUserResponse(u User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	tok, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResponse{Token: tok.AccessToken, ExpiresAt: tok.ExpiresAt})
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	tok, err := h.service.Register(r.Context(), UserInput(req))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResponse{Token: tok.AccessToken, ExpiresAt: tok.ExpiresAt})
}

func (h *Handler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	u, err := h.service.CreateUser(r.Context(), UserInput(req))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toUserResponse(*u))
}

func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	u, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(*u))
}

func (h *Handler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	var req updateUserRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	u, err := h.service.UpdateUser(r.Context(), id, UserInput(req))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(*u))
}

func (h *Handler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
