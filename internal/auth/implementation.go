// internal/auth/implementation.go
package auth

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

// Options tunes the login rate limit.
type Options struct {
	LoginRatePerMinute int
	LoginBurst         int
}

// service implements the Service interface.
type service struct {
	store   Store
	tokens  *TokenIssuer
	limiter *loginLimiter
	log     zerolog.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

// NewService creates a new auth service instance.
func NewService(store Store, tokens *TokenIssuer, log zerolog.Logger, opts Options) Service {
	return &service{
		store:   store,
		tokens:  tokens,
		limiter: newLoginLimiter(opts.LoginRatePerMinute, opts.LoginBurst),
		log:     log.With().Str("component", "auth").Logger(),
		tracer:  otel.Tracer("libranexus/auth"),
		now:     time.Now,
	}
}

func (s *service) Register(ctx context.Context, in UserInput) (*Token, error) {
	ctx, span := s.tracer.Start(ctx, "auth.register", trace.WithAttributes(attribute.String("user.name", in.Username)))
	defer span.End()

	if err := requireRole(ctx, RoleAdmin); err != nil {
		return nil, err
	}
	u, err := s.insertUser(ctx, in, "user is registered before")
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("username", u.Username).Msg("user registered")
	return s.tokens.Issue(u)
}

func (s *service) Login(ctx context.Context, username, password string) (*Token, error) {
	ctx, span := s.tracer.Start(ctx, "auth.login", trace.WithAttributes(attribute.String("user.name", username)))
	defer span.End()

	if !s.limiter.Allow(username) {
		s.log.Warn().Str("username", username).Msg("login rate limit exceeded")
		return nil, apperror.TooManyRequests("too many login attempts, try again later")
	}

	var u *User
	err := s.store.ReadOnly(ctx, func(repo Repository) error {
		var err error
		u, err = repo.GetByUsername(ctx, username)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		return nil, apperror.Unauthorized("invalid username or password")
	}

	ok, err := verifyPassword(password, u.Salt, u.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.log.Warn().Str("username", username).Msg("login failed")
		return nil, apperror.Unauthorized("invalid username or password")
	}

	return s.tokens.Issue(u)
}

func (s *service) Authenticate(ctx context.Context, accessToken string) (*Principal, error) {
	p, err := s.tokens.Parse(accessToken)
	if err != nil {
		s.log.Debug().Err(err).Msg("token rejected")
		return nil, apperror.Unauthorized("invalid or expired token")
	}
	return p, nil
}

func (s *service) CreateUser(ctx context.Context, in UserInput) (*User, error) {
	ctx, span := s.tracer.Start(ctx, "auth.create_user")
	defer span.End()

	if err := requireRole(ctx, RoleAdmin); err != nil {
		return nil, err
	}
	u, err := s.insertUser(ctx, in, "")
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("user_id", u.ID).Str("username", u.Username).Msg("user created")
	return u, nil
}

func (s *service) insertUser(ctx context.Context, in UserInput, usernameTaken string) (*User, error) {
	if !in.Role.Valid() {
		return nil, apperror.InvalidInput(fmt.Sprintf("unknown role %q", in.Role))
	}
	hash, salt, err := hashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Salt:         salt,
		Role:         in.Role,
		CreatedAt:    s.now().UTC(),
	}
	err = s.store.InTx(ctx, func(repo Repository) error {
		existing, err := repo.GetByUsername(ctx, in.Username)
		if err != nil {
			return err
		}
		if existing != nil {
			if usernameTaken != "" {
				return &apperror.Error{Kind: apperror.KindAlreadyExists, Entity: "user", ID: in.Username, Message: usernameTaken}
			}
			return apperror.AlreadyExists("user", "username", in.Username)
		}
		existing, err = repo.GetByEmail(ctx, in.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperror.AlreadyExists("user", "email", in.Email)
		}
		return repo.Insert(ctx, u)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) ListUsers(ctx context.Context) ([]User, error) {
	if err := requireRole(ctx, RoleAdmin, RoleLibrarian); err != nil {
		return nil, err
	}
	var users []User
	err := s.store.ReadOnly(ctx, func(repo Repository) error {
		var err error
		users, err = repo.List(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// GetUser returns a user to ADMIN and LIBRARIAN callers, or to the user itself.
func (s *service) GetUser(ctx context.Context, id int64) (*User, error) {
	p, ok := PrincipalFrom(ctx)
	if !ok {
		return nil, apperror.Unauthorized("authentication required")
	}
	if !p.HasRole(RoleAdmin, RoleLibrarian) && p.UserID != id {
		return nil, apperror.Forbidden("access denied")
	}

	var u *User
	err := s.store.ReadOnly(ctx, func(repo Repository) error {
		var err error
		u, err = repo.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return nil, apperror.NotFound("user", id)
	}
	return u, nil
}

// UpdateUser applies in to user id. ADMIN may update anyone; other users may
// update themselves but not change their role. An empty password keeps the
// current one.
func (s *service) UpdateUser(ctx context.Context, id int64, in UserInput) (*User, error) {
	ctx, span := s.tracer.Start(ctx, "auth.update_user", trace.WithAttributes(attribute.Int64("user.id", id)))
	defer span.End()

	p, ok := PrincipalFrom(ctx)
	if !ok {
		return nil, apperror.Unauthorized("authentication required")
	}
	isAdmin := p.HasRole(RoleAdmin)
	if !isAdmin && p.UserID != id {
		return nil, apperror.Forbidden("access denied")
	}
	if in.Role != "" && !in.Role.Valid() {
		return nil, apperror.InvalidInput(fmt.Sprintf("unknown role %q", in.Role))
	}

	var u *User
	err := s.store.InTx(ctx, func(repo Repository) error {
		var err error
		u, err = repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if u == nil {
			return apperror.NotFound("user", id)
		}
		if !isAdmin && in.Role != "" && in.Role != u.Role {
			s.log.Warn().Str("username", p.Username).Msg("non-admin attempted to change role")
			return apperror.Forbidden("only admins can change roles")
		}

		if in.Username != "" && in.Username != u.Username {
			other, err := repo.GetByUsername(ctx, in.Username)
			if err != nil {
				return err
			}
			if other != nil {
				return apperror.AlreadyExists("user", "username", in.Username)
			}
			u.Username = in.Username
		}
		if in.Email != "" && in.Email != u.Email {
			other, err := repo.GetByEmail(ctx, in.Email)
			if err != nil {
				return err
			}
			if other != nil {
				return apperror.AlreadyExists("user", "email", in.Email)
			}
			u.Email = in.Email
		}
		if in.Password != "" {
			if u.PasswordHash, u.Salt, err = hashPassword(in.Password); err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
		}
		if in.Role != "" {
			u.Role = in.Role
		}
		return repo.Update(ctx, u)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("user_id", id).Msg("user updated")
	return u, nil
}

// DeleteUser removes a user. Admins cannot delete their own account.
func (s *service) DeleteUser(ctx context.Context, id int64) error {
	p, ok := PrincipalFrom(ctx)
	if !ok {
		return apperror.Unauthorized("authentication required")
	}
	if !p.HasRole(RoleAdmin) {
		return apperror.Forbidden("access denied")
	}

	err := s.store.InTx(ctx, func(repo Repository) error {
		u, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if u == nil {
			return apperror.NotFound("user", id)
		}
		if p.UserID == id {
			s.log.Warn().Str("username", p.Username).Msg("admin attempted to delete own account")
			return apperror.Forbidden("cannot delete your own account")
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.log.Info().Int64("user_id", id).Msg("user deleted")
	return nil
}

func (s *service) EnsureAdmin(ctx context.Context, username, email, password string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}

	hash, salt, err := hashPassword(password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}

	created := false
	err = s.store.InTx(ctx, func(repo Repository) error {
		n, err := repo.Count(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		created = true
		return repo.Insert(ctx, &User{
			Username:     username,
			Email:        email,
			PasswordHash: hash,
			Salt:         salt,
			Role:         RoleAdmin,
			CreatedAt:    s.now().UTC(),
		})
	})
	if err != nil {
		return false, fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		s.log.Info().Str("username", username).Msg("bootstrap admin created")
	}
	return created, nil
}

func requireRole(ctx context.Context, roles ...Role) error {
	p, ok := PrincipalFrom(ctx)
	if !ok {
		return apperror.Unauthorized("authentication required")
	}
	if !p.HasRole(roles...) {
		return apperror.Forbidden("access denied")
	}
	return nil
}
