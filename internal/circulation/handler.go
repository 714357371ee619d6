// internal/circulation/handler.go
package circulation

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"libranexus/internal/auth"
	"libranexus/internal/eventlog"
	"libranexus/internal/httpx"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the lending endpoints. Callers must already be authenticated.
func (h *Handler) Routes(r chi.Router) {
	staff := auth.RequireRole(auth.RoleAdmin, auth.RoleLibrarian, auth.RoleStaff)
	librarian := auth.RequireRole(auth.RoleAdmin, auth.RoleLibrarian)

	r.With(librarian).Post("/member/{memberId}/book/{bookId}", h.HandleBorrow)
	r.With(staff).Put("/{id}", h.HandleReturn)
	r.With(staff).Get("/{id}", h.HandleGet)
	r.With(staff).Get("/{id}/history", h.HandleHistory)
	r.With(staff).Get("/book/{bookId}/open", h.HandleOpenForBook)
	r.With(staff).Get("/member/{memberId}", h.HandleListByMember)
}

type borrowResponse struct {
	TransactionID int64  `json:"transactionId"`
	BookTitle     string `json:"bookTitle"`
	MemberName    string `json:"memberName"`
	BorrowDate    string `json:"borrowDate"`
	DueDate       string `json:"dueDate"`
	Message       string `json:"message"`
}

type returnResponse struct {
	TransactionID int64  `json:"transactionId"`
	BookTitle     string `json:"bookTitle"`
	MemberName    string `json:"memberName"`
	BorrowDate    string `json:"borrowDate"`
	ReturnDate    string `json:"returnDate"`
	DueDate       string `json:"dueDate"`
	Status        Status `json:"status"`
}

type transactionResponse struct {
	ID         int64   `json:"id"`
	BookID     int64   `json:"bookId"`
	MemberID   int64   `json:"memberId"`
	BorrowDate string  `json:"borrowDate"`
	DueDate    string  `json:"dueDate"`
	ReturnDate *string `json:"returnDate"`
	Status     Status  `json:"status"`
}

type eventResponse struct {
	Version   int             `json:"version"`
	EventType string          `json:"eventType"`
	Data      json.RawMessage `json:"data"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

func toTransactionResponse(t Transaction) transactionResponse {
	resp := transactionResponse{
		ID:         t.ID,
		BookID:     t.BookID,
		MemberID:   t.MemberID,
		BorrowDate: t.BorrowDate.Format(time.DateOnly),
		DueDate:    t.DueDate.Format(time.DateOnly),
		Status:     t.Status,
	}
	if t.ReturnDate != nil {
		s := t.ReturnDate.Format(time.DateOnly)
		resp.ReturnDate = &s
	}
	return resp
}

func toTransactionResponses(list []Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(list))
	for _, t := range list {
		out = append(out, toTransactionResponse(t))
	}
	return out
}

func (h *Handler) HandleBorrow(w http.ResponseWriter, r *http.Request) {
	memberID, err := httpx.PathID(r, "memberId")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	bookID, err := httpx.PathID(r, "bookId")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	res, err := h.service.Borrow(r.Context(), memberID, bookID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, borrowResponse{
		TransactionID: res.TransactionID,
		BookTitle:     res.BookTitle,
		MemberName:    res.MemberName,
		BorrowDate:    res.BorrowDate.Format(time.DateOnly),
		DueDate:       res.DueDate.Format(time.DateOnly),
		Message:       res.Message,
	})
}

func (h *Handler) HandleReturn(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	res, err := h.service.Return(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, returnResponse{
		TransactionID: res.TransactionID,
		BookTitle:     res.BookTitle,
		MemberName:    res.MemberName,
		BorrowDate:    res.BorrowDate.Format(time.DateOnly),
		ReturnDate:    res.ReturnDate.Format(time.DateOnly),
		DueDate:       res.DueDate.Format(time.DateOnly),
		Status:        res.Status,
	})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	t, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTransactionResponse(*t))
}

func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	events, err := h.service.History(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toEventResponses(events))
}

func (h *Handler) HandleOpenForBook(w http.ResponseWriter, r *http.Request) {
	bookID, err := httpx.PathID(r, "bookId")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	open, err := h.service.FindOpenTransactionsForBook(r.Context(), bookID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTransactionResponses(open))
}

func (h *Handler) HandleListByMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := httpx.PathID(r, "memberId")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	list, err := h.service.ListByMember(r.Context(), memberID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTransactionResponses(list))
}

func toEventResponses(events []eventlog.Event) []eventResponse {
	out := make([]eventResponse, 0, len(events))
	for _, ev := range events {
		resp := eventResponse{
			Version:   ev.Version,
			EventType: ev.EventType,
			Data:      ev.EventData,
			CreatedAt: ev.CreatedAt,
		}
		if len(ev.Metadata) > 0 && string(ev.Metadata) != "null" {
			resp.Metadata = ev.Metadata
		}
		out = append(out, resp)
	}
	return out
}
