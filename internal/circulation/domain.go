// internal/circulation/domain.go
package circulation

import (
	"time"
)

// Status is the lifecycle state of a borrowing transaction.
type Status string

const (
	StatusBorrowed Status = "BORROWED"
	StatusReturned Status = "RETURNED"
	StatusOverdue  Status = "OVERDUE"
)

// DefaultLoanPeriodDays is the number of days between borrow date and due date.
const DefaultLoanPeriodDays = 14

// Transaction records one loan of a book to a member. ReturnDate is nil
// exactly while Status is BORROWED; DueDate never changes after creation.
type Transaction struct {
	ID         int64      `json:"id" db:"id"`
	BookID     int64      `json:"book_id" db:"book_id"`
	MemberID   int64      `json:"member_id" db:"member_id"`
	BorrowDate time.Time  `json:"borrow_date" db:"borrow_date"`
	DueDate    time.Time  `json:"due_date" db:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty" db:"return_date"`
	Status     Status     `json:"status" db:"status"`
}

// IsOpen reports whether the book is still on loan.
func (t *Transaction) IsOpen() bool {
	return t.ReturnDate == nil
}

// BookRef is the part of a book the lending workflow reads.
type BookRef struct {
	ID    int64  `db:"id"`
	Title string `db:"title"`
}

// MemberRef is the part of a member the lending workflow reads.
type MemberRef struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

// BorrowingResult is returned by Borrow.
type BorrowingResult struct {
	TransactionID int64
	BookTitle     string
	MemberName    string
	BorrowDate    time.Time
	DueDate       time.Time
	Message       string
}

// ReturnResult is returned by Return.
type ReturnResult struct {
	TransactionID int64
	BookTitle     string
	MemberName    string
	BorrowDate    time.Time
	ReturnDate    time.Time
	DueDate       time.Time
	Status        Status
}

// Lending events stored in the event log, keyed by transaction id.
const (
	AggregateType     = "borrowing"
	EventBookBorrowed = "BookBorrowed"
	EventBookReturned = "BookReturned"
)

// BookBorrowedEvent is appended when a loan is opened.
type BookBorrowedEvent struct {
	TransactionID int64  `json:"transaction_id"`
	MemberID      int64  `json:"member_id"`
	BookID        int64  `json:"book_id"`
	BorrowDate    string `json:"borrow_date"`
	DueDate       string `json:"due_date"`
}

// BookReturnedEvent is appended when a loan is closed.
type BookReturnedEvent struct {
	TransactionID int64  `json:"transaction_id"`
	MemberID      int64  `json:"member_id"`
	BookID        int64  `json:"book_id"`
	ReturnDate    string `json:"return_date"`
	Status        Status `json:"status"`
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Classify returns the final status of a loan closed on returnDate: only a
// return strictly after the due date is overdue.
func Classify(returnDate, dueDate time.Time) Status {
	if DateOf(returnDate).After(DateOf(dueDate)) {
		return StatusOverdue
	}
	return StatusReturned
}
