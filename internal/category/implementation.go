// internal/category/implementation.go
package category

import (
	"context"
	"fmt"

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
}

// NewService creates a new category service instance.
func NewService(store Store, log zerolog.Logger) Service {
	return &service{
		store:  store,
		log:    log.With().Str("component", "category").Logger(),
		tracer: otel.Tracer("libranexus/category"),
	}
}

func (s *service) Create(ctx context.Context, name string, parentID *int64) (*Category, error) {
	ctx, span := s.tracer.Start(ctx, "category.create", trace.WithAttributes(attribute.String("category.name", name)))
	defer span.End()

	c := &Category{Name: name}
	err := s.store.InTx(ctx, func(repo Repository) error {
		if err := repo.LockHierarchy(ctx); err != nil {
			return fmt.Errorf("lock hierarchy: %w", err)
		}
		existing, err := repo.GetByName(ctx, name)
		if err != nil {
			return fmt.Errorf("find category by name: %w", err)
		}
		if existing != nil {
			return apperror.AlreadyExists("category", "name", name)
		}
		if err := s.assignParent(ctx, repo, c, parentID); err != nil {
			return err
		}
		return repo.Insert(ctx, c)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.log.Info().Int64("category_id", c.ID).Str("name", c.Name).Msg("category created")
	return c, nil
}

func (s *service) Update(ctx context.Context, id int64, name string, parentID *int64) (*Category, error) {
	ctx, span := s.tracer.Start(ctx, "category.update", trace.WithAttributes(attribute.Int64("category.id", id)))
	defer span.End()

	var c *Category
	err := s.store.InTx(ctx, func(repo Repository) error {
		if err := repo.LockHierarchy(ctx); err != nil {
			return fmt.Errorf("lock hierarchy: %w", err)
		}
		var err error
		c, err = repo.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("get category: %w", err)
		}
		if c == nil {
			return apperror.NotFound("category", id)
		}

		if name != c.Name {
			existing, err := repo.GetByName(ctx, name)
			if err != nil {
				return fmt.Errorf("find category by name: %w", err)
			}
			if existing != nil {
				return apperror.AlreadyExists("category", "name", name)
			}
			c.Name = name
		}

		if err := s.assignParent(ctx, repo, c, parentID); err != nil {
			return err
		}
		return repo.Update(ctx, c)
	})
	if err != nil {
		span.RecordError(err)
		if apperror.KindOf(err) == apperror.KindHierarchyCycle {
			s.log.Warn().Int64("category_id", id).Err(err).Msg("parent assignment rejected")
		}
		return nil, err
	}

	s.log.Info().Int64("category_id", id).Msg("category updated")
	return c, nil
}

// assignParent resolves parentID and runs the cycle check against the stored tree.
func (s *service) assignParent(ctx context.Context, repo Repository, c *Category, parentID *int64) error {
	if parentID == nil {
		c.ParentID = nil
		return nil
	}
	parent, err := repo.Get(ctx, *parentID)
	if err != nil {
		return fmt.Errorf("get parent category: %w", err)
	}
	if parent == nil {
		return apperror.NotFound("category", *parentID)
	}

	pid := parent.ID
	return AssignParent(c, &pid, func(id int64) (*int64, error) {
		if id == parent.ID {
			return parent.ParentID, nil
		}
		node, err := repo.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("walk ancestors: %w", err)
		}
		if node == nil {
			return nil, nil
		}
		return node.ParentID, nil
	})
}

// Delete removes a category that has neither children nor books.
func (s *service) Delete(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "category.delete", trace.WithAttributes(attribute.Int64("category.id", id)))
	defer span.End()

	err := s.store.InTx(ctx, func(repo Repository) error {
		if err := repo.LockHierarchy(ctx); err != nil {
			return fmt.Errorf("lock hierarchy: %w", err)
		}
		c, err := repo.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("get category: %w", err)
		}
		if c == nil {
			return apperror.NotFound("category", id)
		}

		hasChildren, err := repo.HasChildren(ctx, id)
		if err != nil {
			return fmt.Errorf("check children: %w", err)
		}
		if hasChildren {
			return apperror.HasChildren("category", id)
		}

		hasBooks, err := repo.HasBooks(ctx, id)
		if err != nil {
			return fmt.Errorf("check books: %w", err)
		}
		if hasBooks {
			return apperror.HasAssociatedBooks("category", id)
		}

		return repo.Delete(ctx, id)
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	s.log.Info().Int64("category_id", id).Msg("category deleted")
	return nil
}

func (s *service) Get(ctx context.Context, id int64) (*Category, error) {
	var c *Category
	err := s.store.ReadOnly(ctx, func(repo Repository) error {
		var err error
		c, err = repo.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	if c == nil {
		return nil, apperror.NotFound("category", id)
	}
	return c, nil
}

func (s *service) List(ctx context.Context) ([]Category, error) {
	var list []Category
	err := s.store.ReadOnly(ctx, func(repo Repository) error {
		var err error
		list, err = repo.List(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return list, nil
}
