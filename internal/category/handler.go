// internal/category/handler.go
package category

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"libranexus/internal/auth"
	"libranexus/internal/httpx"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the category endpoints. Callers must already be authenticated.
func (h *Handler) Routes(r chi.Router) {
	read := auth.RequireRole(auth.RoleAdmin, auth.RoleLibrarian, auth.RoleStaff)
	write := auth.RequireRole(auth.RoleAdmin, auth.RoleLibrarian)

	r.With(write).Post("/", h.HandleCreate)
	r.With(read).Get("/", h.HandleList)
	r.With(read).Get("/{id}", h.HandleGet)
	r.With(write).Put("/{id}", h.HandleUpdate)
	r.With(auth.RequireRole(auth.RoleAdmin)).Delete("/{id}", h.HandleDelete)
}

type categoryFields struct {
	Name string `json:"name" validate:"required,min=3,max=50"`
}

// categoryRequest carries an optional parent; a missing parentId makes the
// category a root.
type categoryRequest struct {
	Category categoryFields `json:"category" validate:"required"`
	ParentID *int64         `json:"parentId" validate:"omitempty,gt=0"`
}

type categoryResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID *int64 `json:"parentId"`
}

func toResponse(c Category) categoryResponse {
	return categoryResponse{ID: c.ID, Name: c.Name, ParentID: c.ParentID}
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	c, err := h.service.Create(r.Context(), req.Category.Name, req.ParentID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toResponse(*c))
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	out := make([]categoryResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toResponse(c))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResponse(*c))
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	var req categoryRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	c, err := h.service.Update(r.Context(), id, req.Category.Name, req.ParentID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResponse(*c))
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
