// internal/catalog/contributors.go
package catalog

import (
	"context"
	"fmt"

	"libranexus/internal/apperror"
)

func (s *service) CreateAuthor(ctx context.Context, name, biography string) (*Author, error) {
	a := &Author{Name: name, Biography: biography}
	err := s.store.InTx(ctx, func(repo Repository) error {
		existing, err := repo.GetAuthorByName(ctx, name)
		if err != nil {
			return fmt.Errorf("find author by name: %w", err)
		}
		if existing != nil {
			return apperror.AlreadyExists("author", "name", name)
		}
		return repo.InsertAuthor(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("author_id", a.ID).Msg("author created")
	return a, nil
}

func (s *service) GetAuthor(ctx context.Context, id int64) (*Author, error) {
	var a *Author
	err := s.store.ReadOnly(ctx, func(repo Repository) error {
		var err error
		a, err = repo.GetAuthor(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get author: %w", err)
	}
	if a == nil {
		return nil, apperror.NotFound("author", id)
	}
	return a, nil
}

func (s *service) ListAuthors(ctx context.Context) ([]Author, error) {
	var list []Author
	err := s.store.ReadOnly(ctx, func(repo Repository) error {
		var err error
		list, err = repo.ListAuthors(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}
	return list, nil
}

// UpdateAuthor sets the non-empty fields; the name stays unique.
func (s *service) UpdateAuthor(ctx context.Context, id int64, name, biography string) (*Author, error) {
	var a *Author
	err := s.store.InTx(ctx, func(repo Repository) error {
		var err error
		a, err = repo.GetAuthor(ctx, id)
		if err != nil {
			return fmt.Errorf("get author: %w", err)
		}
		if a == nil {
			return apperror.NotFound("author", id)
		}
		if name != "" && name != a.Name {
			other, err := repo.GetAuthorByName(ctx, name)
			if err != nil {
				return fmt.Errorf("find author by name: %w", err)
			}
			if other != nil {
				return apperror.AlreadyExists("author", "name", name)
			}
			a.Name = name
		}
		if biography != "" {
			a.Biography = biography
		}
		return repo.UpdateAuthor(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("author_id", id).Msg("author updated")
	return a, nil
}

func (s *service) DeleteAuthor(ctx context.Context, id int64) error {
	err := s.store.InTx(ctx, func(repo Repository) error {
		a, err := repo.GetAuthor(ctx, id)
		if err != nil {
			return fmt.Errorf("get author: %w", err)
		}
		if a == nil {
			return apperror.NotFound("author", id)
		}
		hasBooks, err := repo.AuthorHasBooks(ctx, id)
		if err != nil {
			return fmt.Errorf("check author books: %w", err)
		}
		if hasBooks {
			s.log.Warn().Int64("author_id", id).Str("name", a.Name).Msg("author has associated books")
			return apperror.HasAssociatedBooks("author", id)
		}
		return repo.DeleteAuthor(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log.Info().Int64("author_id", id).Msg("author deleted")
	return nil
}

func (s *service) CreatePublisher(ctx context.Context, name, address string) (*Publisher, error) {
	p := &Publisher{Name: name, Address: address}
	err := s.store.InTx(ctx, func(repo Repository) error {
		existing, err := repo.GetPublisherByName(ctx, name)
		if err != nil {
			return fmt.Errorf("find publisher by name: %w", err)
		}
		if existing != nil {
			return apperror.AlreadyExists("publisher", "name", name)
		}
		return repo.InsertPublisher(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("publisher_id", p.ID).Msg("publisher saved")
	return p, nil
}

func (s *service) GetPublisher(ctx context.Context, id int64) (*Publisher, error) {
	var p *Publisher
	err := s.store.ReadOnly(ctx, func(repo Repository) error {
		var err error
		p, err = repo.GetPublisher(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get publisher: %w", err)
	}
	if p == nil {
		return nil, apperror.NotFound("publisher", id)
	}
	return p, nil
}

func (s *service) ListPublishers(ctx context.Context) ([]Publisher, error) {
	var list []Publisher
	err := s.store.ReadOnly(ctx, func(repo Repository) error {
		var err error
		list, err = repo.ListPublishers(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list publishers: %w", err)
	}
	return list, nil
}

func (s *service) UpdatePublisher(ctx context.Context, id int64, name, address string) (*Publisher, error) {
	var p *Publisher
	err := s.store.InTx(ctx, func(repo Repository) error {
		var err error
		p, err = repo.GetPublisher(ctx, id)
		if err != nil {
			return fmt.Errorf("get publisher: %w", err)
		}
		if p == nil {
			return apperror.NotFound("publisher", id)
		}
		if name != "" && name != p.Name {
			other, err := repo.GetPublisherByName(ctx, name)
			if err != nil {
				return fmt.Errorf("find publisher by name: %w", err)
			}
			if other != nil {
				return apperror.AlreadyExists("publisher", "name", name)
			}
			p.Name = name
		}
		if address != "" {
			p.Address = address
		}
		return repo.UpdatePublisher(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("publisher_id", id).Msg("publisher updated")
	return p, nil
}

func (s *service) DeletePublisher(ctx context.Context, id int64) error {
	err := s.store.InTx(ctx, func(repo Repository) error {
		p, err := repo.GetPublisher(ctx, id)
		if err != nil {
			return fmt.Errorf("get publisher: %w", err)
		}
		if p == nil {
			return apperror.NotFound("publisher", id)
		}
		hasBooks, err := repo.PublisherHasBooks(ctx, id)
		if err != nil {
			return fmt.Errorf("check publisher books: %w", err)
		}
		if hasBooks {
			s.log.Warn().Int64("publisher_id", id).Str("name", p.Name).Msg("publisher has associated books")
			return apperror.HasAssociatedBooks("publisher", id)
		}
		return repo.DeletePublisher(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log.Info().Int64("publisher_id", id).Msg("publisher deleted")
	return nil
}
