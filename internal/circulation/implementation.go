// internal/circulation/implementation.go
package circulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"libranexus/internal/apperror"
	"libranexus/internal/eventlog"
	"libranexus/internal/telemetry"
)

// Option configures the circulation service.
type Option func(*service)

// WithClock replaces time.Now as the source of "today".
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// WithLoanPeriod sets the number of days until a loan is due.
func WithLoanPeriod(days int) Option {
	return func(s *service) {
		if days > 0 {
			s.loanDays = days
		}
	}
}

// service implements the Service interface.
type service struct {
	store    Store
	log      zerolog.Logger
	tracer   trace.Tracer
	now      func() time.Time
	loanDays int

	borrows metric.Int64Counter
	returns metric.Int64Counter
}

// NewService creates a new circulation service instance.
func NewService(store Store, log zerolog.Logger, opts ...Option) Service {
	meter := otel.Meter("libranexus/circulation")
	borrows, _ := meter.Int64Counter("circulation.borrows",
		metric.WithDescription("Loans opened."))
	returns, _ := meter.Int64Counter("circulation.returns",
		metric.WithDescription("Loans closed, by final status."))

	s := &service{
		store:    store,
		log:      log.With().Str("component", "circulation").Logger(),
		tracer:   otel.Tracer("libranexus/circulation"),
		now:      time.Now,
		loanDays: DefaultLoanPeriodDays,
		borrows:  borrows,
		returns:  returns,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Borrow opens a loan of bookID to memberID if the book has no open loan.
func (s *service) Borrow(ctx context.Context, memberID, bookID int64) (*BorrowingResult, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.borrow",
		trace.WithAttributes(
			attribute.Int64("member.id", memberID),
			attribute.Int64("book.id", bookID),
		),
	)
	defer span.End()

	log := s.log.With().Int64("member_id", memberID).Int64("book_id", bookID).Logger()
	log.Info().Msg("processing borrow request")

	var result *BorrowingResult
	err := s.store.InTx(ctx, func(repo Repository) error {
		member, err := repo.GetMember(ctx, memberID)
		if err != nil {
			return fmt.Errorf("get member: %w", err)
		}
		if member == nil {
			return apperror.NotFound("member", memberID)
		}

		book, err := repo.LockBook(ctx, bookID)
		if err != nil {
			return fmt.Errorf("lock book: %w", err)
		}
		if book == nil {
			return apperror.NotFound("book", bookID)
		}

		open, err := repo.OpenTransactionsForBook(ctx, bookID)
		if err != nil {
			return fmt.Errorf("find open transactions: %w", err)
		}
		if len(open) > 0 {
			return apperror.Conflict("book", bookID,
				fmt.Sprintf("book not available: %q is currently borrowed", book.Title))
		}

		today := DateOf(s.now())
		t := &Transaction{
			BookID:     bookID,
			MemberID:   memberID,
			BorrowDate: today,
			DueDate:    today.AddDate(0, 0, s.loanDays),
			Status:     StatusBorrowed,
		}
		if err := repo.Insert(ctx, t); err != nil {
			return err
		}

		ev, err := eventlog.New(AggregateType, EventBookBorrowed, t.ID, BookBorrowedEvent{
			TransactionID: t.ID,
			MemberID:      memberID,
			BookID:        bookID,
			BorrowDate:    t.BorrowDate.Format(time.DateOnly),
			DueDate:       t.DueDate.Format(time.DateOnly),
		}, eventMetadata(ctx))
		if err != nil {
			return err
		}
		if err := repo.AppendEvent(ctx, 0, ev); err != nil {
			return fmt.Errorf("append %s event: %w", EventBookBorrowed, err)
		}

		result = &BorrowingResult{
			TransactionID: t.ID,
			BookTitle:     book.Title,
			MemberName:    member.Name,
			BorrowDate:    t.BorrowDate,
			DueDate:       t.DueDate,
			Message:       "Book borrowed successfully. Due date: " + t.DueDate.Format(time.DateOnly),
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		if apperror.KindOf(err) == apperror.KindConflict {
			log.Warn().Err(err).Msg("borrow rejected")
		}
		return nil, err
	}

	s.borrows.Add(ctx, 1)
	span.SetAttributes(attribute.Int64("transaction.id", result.TransactionID))
	log.Info().Int64("transaction_id", result.TransactionID).Msg("borrowing transaction done")
	return result, nil
}

// Return closes an open loan. The final status compares the return date with
// the due date; returning on the due date is on time.
func (s *service) Return(ctx context.Context, transactionID int64) (*ReturnResult, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.return",
		trace.WithAttributes(attribute.Int64("transaction.id", transactionID)),
	)
	defer span.End()

	log := s.log.With().Int64("transaction_id", transactionID).Logger()

	var result *ReturnResult
	err := s.store.InTx(ctx, func(repo Repository) error {
		t, err := repo.LockTransaction(ctx, transactionID)
		if err != nil {
			return fmt.Errorf("lock transaction: %w", err)
		}
		if t == nil {
			return apperror.NotFound("borrowing transaction", transactionID)
		}
		if t.Status != StatusBorrowed {
			return apperror.AlreadyReturned(transactionID)
		}

		book, err := repo.LockBook(ctx, t.BookID)
		if err != nil {
			return fmt.Errorf("lock book: %w", err)
		}
		if book == nil {
			return apperror.NotFound("book", t.BookID)
		}
		member, err := repo.GetMember(ctx, t.MemberID)
		if err != nil {
			return fmt.Errorf("get member: %w", err)
		}
		if member == nil {
			return apperror.NotFound("member", t.MemberID)
		}

		today := DateOf(s.now())
		t.ReturnDate = &today
		t.Status = Classify(today, t.DueDate)
		if err := repo.Update(ctx, t); err != nil {
			return err
		}

		ev, err := eventlog.New(AggregateType, EventBookReturned, t.ID, BookReturnedEvent{
			TransactionID: t.ID,
			MemberID:      t.MemberID,
			BookID:        t.BookID,
			ReturnDate:    today.Format(time.DateOnly),
			Status:        t.Status,
		}, eventMetadata(ctx))
		if err != nil {
			return err
		}
		if err := repo.AppendEvent(ctx, 1, ev); err != nil {
			if errors.Is(err, eventlog.ErrConcurrencyConflict) {
				return apperror.AlreadyReturned(transactionID)
			}
			return fmt.Errorf("append %s event: %w", EventBookReturned, err)
		}

		result = &ReturnResult{
			TransactionID: t.ID,
			BookTitle:     book.Title,
			MemberName:    member.Name,
			BorrowDate:    t.BorrowDate,
			ReturnDate:    today,
			DueDate:       t.DueDate,
			Status:        t.Status,
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.returns.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(result.Status))))
	if result.Status == StatusOverdue {
		log.Warn().Str("due_date", result.DueDate.Format(time.DateOnly)).Msg("overdue return detected")
	} else {
		log.Info().Msg("book returned")
	}
	return result, nil
}

// IsCurrentlyBorrowed reports whether the book has a transaction without a return date.
func (s *service) IsCurrentlyBorrowed(ctx context.Context, bookID int64) (bool, error) {
	open, err := s.FindOpenTransactionsForBook(ctx, bookID)
	if err != nil {
		return false, err
	}
	return len(open) > 0, nil
}

// FindOpenTransactionsForBook returns the book's transactions without a return date.
func (s *service) FindOpenTransactionsForBook(ctx context.Context, bookID int64) ([]Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.find_open",
		trace.WithAttributes(attribute.Int64("book.id", bookID)),
	)
	defer span.End()

	s.log.Debug().Int64("book_id", bookID).Msg("finding open transactions")

	var open []Transaction
	err := s.store.ReadOnly(ctx, func(repo Repository) error {
		var err error
		open, err = repo.OpenTransactionsForBook(ctx, bookID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("find open transactions: %w", err)
	}
	return open, nil
}

func (s *service) Get(ctx context.Context, transactionID int64) (*Transaction, error) {
	var t *Transaction
	err := s.store.ReadOnly(ctx, func(repo Repository) error {
		var err error
		t, err = repo.Get(ctx, transactionID)
		if err != nil {
			return fmt.Errorf("get transaction: %w", err)
		}
		if t == nil {
			return apperror.NotFound("borrowing transaction", transactionID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *service) ListByMember(ctx context.Context, memberID int64) ([]Transaction, error) {
	var list []Transaction
	err := s.store.ReadOnly(ctx, func(repo Repository) error {
		member, err := repo.GetMember(ctx, memberID)
		if err != nil {
			return fmt.Errorf("get member: %w", err)
		}
		if member == nil {
			return apperror.NotFound("member", memberID)
		}
		list, err = repo.ListByMember(ctx, memberID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// History returns the lending events recorded for a transaction.
func (s *service) History(ctx context.Context, transactionID int64) ([]eventlog.Event, error) {
	var events []eventlog.Event
	err := s.store.ReadOnly(ctx, func(repo Repository) error {
		t, err := repo.Get(ctx, transactionID)
		if err != nil {
			return fmt.Errorf("get transaction: %w", err)
		}
		if t == nil {
			return apperror.NotFound("borrowing transaction", transactionID)
		}
		events, err = repo.LoadEvents(ctx, transactionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func eventMetadata(ctx context.Context) map[string]string {
	if id := telemetry.RequestID(ctx); id != "" {
		return map[string]string{"request_id": id}
	}
	return nil
}
