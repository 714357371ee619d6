// internal/membership/implementation.go
package membership

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"libranexus/internal/apperror"
)

// service implements the Service interface.
type service struct {
	store  Store
	log    zerolog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// NewService creates a new membership service instance.
func NewService(store Store, log zerolog.Logger) Service {
	return &service{
		store:  store,
		log:    log.With().Str("component", "membership").Logger(),
		tracer: otel.Tracer("libranexus/membership"),
		now:    time.Now,
	}
}

// CreateMember registers a new member. Email addresses are unique.
func (s *service) CreateMember(ctx context.Context, in MemberInput) (*Member, error) {
	ctx, span := s.tracer.Start(ctx, "membership.create")
	defer span.End()

	if in.Name == nil || in.Email == nil {
		return nil, apperror.InvalidInput("name and email are required")
	}

	m := &Member{MembershipDate: dateOf(s.now())}
	in.apply(m)
	err := s.store.InTx(ctx, func(repo Repository) error {
		existing, err := repo.GetByEmail(ctx, m.Email)
		if err != nil {
			return fmt.Errorf("find member by email: %w", err)
		}
		if existing != nil {
			s.log.Warn().Str("email", m.Email).Msg("member already exists")
			return apperror.AlreadyExists("member", "email", m.Email)
		}
		return repo.Insert(ctx, m)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int64("member.id", m.ID))
	s.log.Info().Int64("member_id", m.ID).Msg("member saved")
	return m, nil
}

// GetMember retrieves a member by their ID.
func (s *service) GetMember(ctx context.Context, id int64) (*Member, error) {
	var m *Member
	err := s.store.ReadOnly(ctx, func(repo Repository) error {
		var err error
		m, err = repo.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	if m == nil {
		return nil, apperror.NotFound("member", id)
	}
	return m, nil
}

func (s *service) ListMembers(ctx context.Context) ([]Member, error) {
	var list []Member
	err := s.store.ReadOnly(ctx, func(repo Repository) error {
		var err error
		list, err = repo.List(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return list, nil
}

func (s *service) UpdateMember(ctx context.Context, id int64, in MemberInput) (*Member, error) {
	ctx, span := s.tracer.Start(ctx, "membership.update", trace.WithAttributes(attribute.Int64("member.id", id)))
	defer span.End()

	var m *Member
	err := s.store.InTx(ctx, func(repo Repository) error {
		var err error
		m, err = repo.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("get member: %w", err)
		}
		if m == nil {
			return apperror.NotFound("member", id)
		}
		if in.Email != nil && *in.Email != m.Email {
			other, err := repo.GetByEmail(ctx, *in.Email)
			if err != nil {
				return fmt.Errorf("find member by email: %w", err)
			}
			if other != nil && other.ID != id {
				s.log.Warn().Str("email", *in.Email).Msg("email already used by another member")
				return apperror.AlreadyExists("member", "email", *in.Email)
			}
		}
		in.apply(m)
		return repo.Update(ctx, m)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.log.Info().Int64("member_id", id).Msg("member updated")
	return m, nil
}

func (s *service) DeleteMember(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "membership.delete", trace.WithAttributes(attribute.Int64("member.id", id)))
	defer span.End()

	err := s.store.InTx(ctx, func(repo Repository) error {
		m, err := repo.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("get member: %w", err)
		}
		if m == nil {
			return apperror.NotFound("member", id)
		}
		has, err := repo.HasTransactions(ctx, id)
		if err != nil {
			return fmt.Errorf("check member transactions: %w", err)
		}
		if has {
			msg := fmt.Sprintf("member %q (id: %d) has one or more borrowing transactions", m.Name, id)
			s.log.Warn().Msg(msg)
			return apperror.Conflict("member", id, msg)
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	s.log.Info().Int64("member_id", id).Msg("member deleted")
	return nil
}
