// internal/membership/handler.go
package membership

import (
	"net/http"
	"time"

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

// Routes mounts /member. Callers must already be authenticated.
func (h *Handler) Routes(r chi.Router) {
	read := auth.RequireRole(auth.RoleAdmin, auth.RoleLibrarian, auth.RoleStaff)
	write := auth.RequireRole(auth.RoleAdmin, auth.RoleLibrarian)

	r.With(write).Post("/", h.HandleCreate)
	r.With(read).Get("/", h.HandleList)
	r.With(read).Get("/{id}", h.HandleGet)
	r.With(write).Put("/{id}", h.HandleUpdate)
	r.With(auth.RequireRole(auth.RoleAdmin)).Delete("/{id}", h.HandleDelete)
}

type memberRequest struct {
	Name           string `json:"name" validate:"required,min=3,max=50"`
	Email          string `json:"email" validate:"required,email,max=255"`
	Phone          string `json:"phone" validate:"required"`
	MembershipDate string `json:"membershipDate" validate:"omitempty,datetime=2006-01-02"`
}

type memberPatch struct {
	Name           *string `json:"name" validate:"omitempty,min=3,max=50"`
	Email          *string `json:"email" validate:"omitempty,email,max=255"`
	Phone          *string `json:"phone"`
	MembershipDate *string `json:"membershipDate" validate:"omitempty,datetime=2006-01-02"`
}

type memberResponse struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	MembershipDate string `json:"membershipDate"`
}

func toResponse(m Member) memberResponse {
	return memberResponse{
		ID:             m.ID,
		Name:           m.Name,
		Email:          m.Email,
		Phone:          m.Phone,
		MembershipDate: m.MembershipDate.Format(time.DateOnly),
	}
}

// parseDate parses a validated YYYY-MM-DD string.
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil
	}
	return &t
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	m, err := h.service.CreateMember(r.Context(), MemberInput{
		Name:           &req.Name,
		Email:          &req.Email,
		Phone:          &req.Phone,
		MembershipDate: parseDate(req.MembershipDate),
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toResponse(*m))
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListMembers(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	out := make([]memberResponse, 0, len(list))
	for _, m := range list {
		out = append(out, toResponse(m))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	m, err := h.service.GetMember(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResponse(*m))
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	var req memberPatch
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	in := MemberInput{Name: req.Name, Email: req.Email, Phone: req.Phone}
	if req.MembershipDate != nil {
		in.MembershipDate = parseDate(*req.MembershipDate)
	}
	m, err := h.service.UpdateMember(r.Context(), id, in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResponse(*m))
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.service.DeleteMember(r.Context(), id); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
