// internal/integrity/integrity.go
package integrity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Measurer counts invariant violations in the stored data.
type Measurer interface {
	// BooksWithMultipleOpenLoans counts books with more than one transaction
	// lacking a return date.
	BooksWithMultipleOpenLoans(ctx context.Context) (int, error)
	// InconsistentLoans counts transactions whose status disagrees with their
	// return date: open but not BORROWED, closed but BORROWED, or a closed
	// status that does not match the return/due date comparison.
	InconsistentLoans(ctx context.Context) (int, error)
	// CategoryCycles counts categories that are their own ancestor.
	CategoryCycles(ctx context.Context) (int, error)
	// MisdatedLoans counts transactions whose due date is not borrow date
	// plus loanDays.
	MisdatedLoans(ctx context.Context, loanDays int) (int, error)
	// OverdueOpenLoans counts open transactions due before today.
	OverdueOpenLoans(ctx context.Context, today time.Time) (int, error)
}

// Metric is a measurable property of the stored data.
type Metric struct {
	Name        string
	Description string
	Query       func(context.Context) (float64, error)
	// Threshold is nil for informational metrics that never fail the audit.
	Threshold *Threshold
}

type Threshold struct {
	Operator string  `json:"operator"` // >, <, >=, <=, ==
	Value    float64 `json:"value"`
}

// Result is the outcome of one metric in a Report.
type Result struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Value       float64    `json:"value"`
	Threshold   *Threshold `json:"threshold,omitempty"`
	Passed      bool       `json:"passed"`
	Error       string     `json:"error,omitempty"`
}

// Report captures one audit run.
type Report struct {
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"durationNs"`
	Healthy   bool          `json:"healthy"`
	Results   []Result      `json:"results"`
}

// Violations returns the results that failed.
func (r *Report) Violations() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.Passed {
			out = append(out, res)
		}
	}
	return out
}

// DefaultMetrics returns the lending and category invariants checked by the auditor.
func DefaultMetrics(m Measurer, loanDays int, now func() time.Time) []Metric {
	count := func(fn func(context.Context) (int, error)) func(context.Context) (float64, error) {
		return func(ctx context.Context) (float64, error) {
			n, err := fn(ctx)
			return float64(n), err
		}
	}
	zero := &Threshold{Operator: "==", Value: 0}

	return []Metric{
		{
			Name:        "books_with_multiple_open_loans",
			Description: "A book has at most one transaction without a return date.",
			Query:       count(m.BooksWithMultipleOpenLoans),
			Threshold:   zero,
		},
		{
			Name:        "loans_with_inconsistent_status",
			Description: "Return date is empty exactly while the status is BORROWED; OVERDUE only when returned after the due date.",
			Query:       count(m.InconsistentLoans),
			Threshold:   zero,
		},
		{
			Name:        "category_cycles",
			Description: "No category is its own ancestor.",
			Query:       count(m.CategoryCycles),
			Threshold:   zero,
		},
		{
			Name:        "loans_with_wrong_due_date",
			Description: fmt.Sprintf("Due date is the borrow date plus %d days.", loanDays),
			Query: func(ctx context.Context) (float64, error) {
				n, err := m.MisdatedLoans(ctx, loanDays)
				return float64(n), err
			},
			Threshold: zero,
		},
		{
			Name:        "overdue_open_loans",
			Description: "Open loans past their due date.",
			Query: func(ctx context.Context) (float64, error) {
				y, mo, d := now().UTC().Date()
				n, err := m.OverdueOpenLoans(ctx, time.Date(y, mo, d, 0, 0, 0, 0, time.UTC))
				return float64(n), err
			},
		},
	}
}

// Auditor evaluates metrics against their thresholds and keeps the last report.
type Auditor struct {
	tracer  trace.Tracer
	log     zerolog.Logger
	metrics []Metric
	now     func() time.Time

	mu   sync.Mutex
	last *Report
}

func NewAuditor(log zerolog.Logger, metrics []Metric) *Auditor {
	return &Auditor{
		tracer:  otel.Tracer("libranexus/integrity"),
		log:     log.With().Str("component", "integrity").Logger(),
		metrics: metrics,
		now:     time.Now,
	}
}

// Run evaluates every metric once. A failing query marks its metric as not
// passed; Run itself only fails when ctx is done.
func (a *Auditor) Run(ctx context.Context) (*Report, error) {
	ctx, span := a.tracer.Start(ctx, "integrity.run",
		trace.WithAttributes(attribute.Int("metrics", len(a.metrics))),
	)
	defer span.End()

	report := &Report{StartedAt: a.now(), Healthy: true, Results: make([]Result, 0, len(a.metrics))}
	for _, m := range a.metrics {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res := Result{Name: m.Name, Description: m.Description, Threshold: m.Threshold, Passed: true}
		value, err := m.Query(ctx)
		switch {
		case err != nil:
			res.Passed = false
			res.Value = -1
			res.Error = err.Error()
			span.RecordError(err)
		case m.Threshold != nil:
			res.Value = value
			res.Passed = evaluateThreshold(value, *m.Threshold)
		default:
			res.Value = value
		}
		if !res.Passed {
			report.Healthy = false
		}
		report.Results = append(report.Results, res)
	}
	report.Duration = a.now().Sub(report.StartedAt)

	a.mu.Lock()
	a.last = report
	a.mu.Unlock()

	span.SetAttributes(
		attribute.Bool("healthy", report.Healthy),
		attribute.Int("violations", len(report.Violations())),
	)
	if report.Healthy {
		a.log.Info().Dur("duration", report.Duration).Msg("integrity audit passed")
	} else {
		for _, v := range report.Violations() {
			a.log.Error().Str("metric", v.Name).Float64("value", v.Value).Str("error", v.Error).Msg("integrity violation")
		}
	}
	return report, nil
}

// Last returns the most recent report, or nil before the first run.
func (a *Auditor) Last() *Report {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

func evaluateThreshold(value float64, threshold Threshold) bool {
	switch threshold.Operator {
	case ">":
		return value > threshold.Value
	case "<":
		return value < threshold.Value
	case ">=":
		return value >= threshold.Value
	case "<=":
		return value <= threshold.Value
	case "==":
		return value == threshold.Value
	default:
		return false
	}
}
