// internal/catalog/handler.go
package catalog

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

var (
	readRoles  = auth.RequireRole(auth.RoleAdmin, auth.RoleLibrarian, auth.RoleStaff)
	writeRoles = auth.RequireRole(auth.RoleAdmin, auth.RoleLibrarian)
	adminRole  = auth.RequireRole(auth.RoleAdmin)
)

// BookRoutes mounts /books. Callers must already be authenticated.
func (h *Handler) BookRoutes(r chi.Router) {
	r.With(writeRoles).Post("/", h.HandleCreateBook)
	r.With(readRoles).Get("/", h.HandleListBooks)
	r.With(readRoles).Get("/isbn/{isbn}", h.HandleGetBookByISBN)
	r.With(readRoles).Get("/{id}", h.HandleGetBook)
	r.With(readRoles).Get("/{id}/availability", h.HandleAvailability)
	r.With(writeRoles).Put("/{id}", h.HandleUpdateBook)
	r.With(adminRole).Delete("/{id}", h.HandleDeleteBook)
}

func (h *Handler) AuthorRoutes(r chi.Router) {
	r.With(writeRoles).Post("/", h.HandleCreateAuthor)
	r.With(readRoles).Get("/", h.HandleListAuthors)
	r.With(readRoles).Get("/{id}", h.HandleGetAuthor)
	r.With(writeRoles).Put("/{id}", h.HandleUpdateAuthor)
	r.With(adminRole).Delete("/{id}", h.HandleDeleteAuthor)
}

func (h *Handler) PublisherRoutes(r chi.Router) {
	r.With(writeRoles).Post("/", h.HandleCreatePublisher)
	r.With(readRoles).Get("/", h.HandleListPublishers)
	r.With(readRoles).Get("/{id}", h.HandleGetPublisher)
	r.With(writeRoles).Put("/{id}", h.HandleUpdatePublisher)
	r.With(adminRole).Delete("/{id}", h.HandleDeletePublisher)
}

type bookDetails struct {
	ISBN            string `json:"isbn" validate:"required"`
	Title           string `json:"title" validate:"required,min=1,max=500"`
	PublicationYear int    `json:"publicationYear" validate:"required,min=1900"`
	Edition         string `json:"edition" validate:"required"`
	Summary         string `json:"summary" validate:"max=2000"`
	Language        string `json:"language" validate:"required,min=2,max=50"`
	CoverURL        string `json:"coverUrl" validate:"omitempty,url"`
}

type createBookRequest struct {
	BookDetails bookDetails `json:"bookDetails" validate:"required"`
	CategoryIDs []int64     `json:"categoryIds" validate:"required,min=1,dive,gt=0"`
	PublisherID int64       `json:"publisherId" validate:"required,gt=0"`
	AuthorIDs   []int64     `json:"authorIds" validate:"required,min=1,dive,gt=0"`
}

type bookPatch struct {
	ISBN            *string `json:"isbn" validate:"omitempty,min=1"`
	Title           *string `json:"title" validate:"omitempty,min=1,max=500"`
	PublicationYear *int    `json:"publicationYear" validate:"omitempty,min=1900"`
	Edition         *string `json:"edition" validate:"omitempty,min=1"`
	Summary         *string `json:"summary" validate:"omitempty,max=2000"`
	Language        *string `json:"language" validate:"omitempty,min=2,max=50"`
	CoverURL        *string `json:"coverUrl" validate:"omitempty,url"`
}

type updateBookRequest struct {
	BookDetails bookPatch `json:"bookDetails"`
	CategoryIDs []int64   `json:"categoryIds" validate:"omitempty,min=1,dive,gt=0"`
	PublisherID *int64    `json:"publisherId" validate:"omitempty,gt=0"`
	AuthorIDs   []int64   `json:"authorIds" validate:"omitempty,min=1,dive,gt=0"`
}

type bookResponse struct {
	ID              int64    `json:"id"`
	ISBN            string   `json:"isbn"`
	Title           string   `json:"title"`
	PublicationYear int      `json:"publicationYear"`
	Edition         string   `json:"edition"`
	Summary         string   `json:"summary"`
	Language        string   `json:"language"`
	CoverURL        string   `json:"coverUrl"`
	PublisherID     int64    `json:"publisherId"`
	AuthorIDs       []int64  `json:"authorIds"`
	CategoriesName  []string `json:"categoriesName"`
}

type bookOverviewResponse struct {
	ID    int64  `json:"id"`
	ISBN  string `json:"isbn"`
	Title string `json:"title"`
}

type availabilityResponse struct {
	BookID    int64 `json:"bookId"`
	Available bool  `json:"available"`
}

func toBookResponse(b Book) bookResponse {
	resp := bookResponse{
		ID:              b.ID,
		ISBN:            b.ISBN,
		Title:           b.Title,
		PublicationYear: b.PublicationYear,
		Edition:         b.Edition,
		Summary:         b.Summary,
		Language:        b.Language,
		CoverURL:        b.CoverURL,
		PublisherID:     b.PublisherID,
		AuthorIDs:       b.AuthorIDs,
		CategoriesName:  b.CategoryNames,
	}
	if resp.AuthorIDs == nil {
		resp.AuthorIDs = []int64{}
	}
	if resp.CategoriesName == nil {
		resp.CategoriesName = []string{}
	}
	return resp
}

func checkPublicationYear(year int) error {
	if year > time.Now().Year() {
		return &httpx.ValidationError{Fields: map[string]string{"publicationYear": "cannot be in the future"}}
	}
	return nil
}

func (h *Handler) HandleCreateBook(w http.ResponseWriter, r *http.Request) {
	var req createBookRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := checkPublicationYear(req.BookDetails.PublicationYear); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	d := req.BookDetails
	b, err := h.service.CreateBook(r.Context(), BookInput{
		ISBN:            &d.ISBN,
		Title:           &d.Title,
		PublicationYear: &d.PublicationYear,
		Edition:         &d.Edition,
		Summary:         &d.Summary,
		Language:        &d.Language,
		CoverURL:        &d.CoverURL,
		PublisherID:     &req.PublisherID,
		AuthorIDs:       req.AuthorIDs,
		CategoryIDs:     req.CategoryIDs,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toBookResponse(*b))
}

func (h *Handler) HandleListBooks(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListBooks(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	out := make([]bookOverviewResponse, 0, len(list))
	for _, b := range list {
		out = append(out, bookOverviewResponse(b))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleGetBook(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	b, err := h.service.GetBook(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toBookResponse(*b))
}

func (h *Handler) HandleGetBookByISBN(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.GetBookByISBN(r.Context(), chi.URLParam(r, "isbn"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toBookResponse(*b))
}

func (h *Handler) HandleAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	available, err := h.service.IsBookAvailable(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, availabilityResponse{BookID: id, Available: available})
}

func (h *Handler) HandleUpdateBook(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	var req updateBookRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	d := req.BookDetails
	if d.PublicationYear != nil {
		if err := checkPublicationYear(*d.PublicationYear); err != nil {
			httpx.WriteError(w, r, err)
			return
		}
	}

	b, err := h.service.UpdateBook(r.Context(), id, BookInput{
		ISBN:            d.ISBN,
		Title:           d.Title,
		PublicationYear: d.PublicationYear,
		Edition:         d.Edition,
		Summary:         d.Summary,
		Language:        d.Language,
		CoverURL:        d.CoverURL,
		PublisherID:     req.PublisherID,
		AuthorIDs:       req.AuthorIDs,
		CategoryIDs:     req.CategoryIDs,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toBookResponse(*b))
}

func (h *Handler) HandleDeleteBook(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.service.DeleteBook(r.Context(), id); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type authorRequest struct {
	Name      string `json:"name" validate:"required,min=3,max=30"`
	Biography string `json:"biography" validate:"required,min=1,max=200"`
}

type authorPatch struct {
	Name      string `json:"name" validate:"omitempty,min=3,max=30"`
	Biography string `json:"biography" validate:"omitempty,max=200"`
}

type authorResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Biography string `json:"biography"`
}

func (h *Handler) HandleCreateAuthor(w http.ResponseWriter, r *http.Request) {
	var req authorRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	a, err := h.service.CreateAuthor(r.Context(), req.Name, req.Biography)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, authorResponse(*a))
}

func (h *Handler) HandleListAuthors(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListAuthors(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	out := make([]authorResponse, 0, len(list))
	for _, a := range list {
		out = append(out, authorResponse(a))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleGetAuthor(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	a, err := h.service.GetAuthor(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authorResponse(*a))
}

func (h *Handler) HandleUpdateAuthor(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	var req authorPatch
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	a, err := h.service.UpdateAuthor(r.Context(), id, req.Name, req.Biography)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authorResponse(*a))
}

func (h *Handler) HandleDeleteAuthor(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.service.DeleteAuthor(r.Context(), id); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type publisherRequest struct {
	Name    string `json:"name" validate:"required,min=3,max=50"`
	Address string `json:"address" validate:"required,max=255"`
}

type publisherPatch struct {
	Name    string `json:"name" validate:"omitempty,min=3,max=50"`
	Address string `json:"address" validate:"omitempty,max=255"`
}

type publisherResponse struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

func (h *Handler) HandleCreatePublisher(w http.ResponseWriter, r *http.Request) {
	var req publisherRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	p, err := h.service.CreatePublisher(r.Context(), req.Name, req.Address)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, publisherResponse(*p))
}

func (h *Handler) HandleListPublishers(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListPublishers(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	out := make([]publisherResponse, 0, len(list))
	for _, p := range list {
		out = append(out, publisherResponse(p))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleGetPublisher(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	p, err := h.service.GetPublisher(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, publisherResponse(*p))
}

func (h *Handler) HandleUpdatePublisher(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	var req publisherPatch
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	p, err := h.service.UpdatePublisher(r.Context(), id, req.Name, req.Address)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, publisherResponse(*p))
}

func (h *Handler) HandleDeletePublisher(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.service.DeletePublisher(r.Context(), id); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
