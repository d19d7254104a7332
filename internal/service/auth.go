// Package service holds the login/registration logic and the domain event
// publisher. It sits between the HTTP handlers and the repositories.
package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/helenjin/databases-proj-group27/internal/apperrors"
	"github.com/helenjin/databases-proj-group27/internal/database"
	"github.com/helenjin/databases-proj-group27/internal/model"
	"github.com/helenjin/databases-proj-group27/internal/queue"
	"github.com/helenjin/databases-proj-group27/internal/repository"
	"github.com/helenjin/databases-proj-group27/internal/session"
)

// RegisterInput is the registration form.
type RegisterInput struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
	Email    string `form:"email" validate:"required"`
}

// LoginInput is the login form.
type LoginInput struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

var requiredMessages = map[string]string{
	"Username": "Username is required.",
	"Password": "Password is required.",
	"Email":    "Email is required.",
}

// AuthService resolves identities and performs register, login and logout.
// Every method works on the connection leased for the current request, and
// each statement it runs is bounded by queryTimeout.
type AuthService struct {
	sessions     *session.Manager
	events       Publisher
	validate     *validator.Validate
	bcryptCost   int
	queryTimeout time.Duration
	logger       *zap.Logger
}

func NewAuthService(sessions *session.Manager, events Publisher, bcryptCost int, queryTimeout time.Duration, logger *zap.Logger) *AuthService {
	if events == nil {
		events = NopPublisher{}
	}
	return &AuthService{
		sessions:     sessions,
		events:       events,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		bcryptCost:   bcryptCost,
		queryTimeout: queryTimeout,
		logger:       logger,
	}
}

// normalizeUsername is applied on every path that takes a username from a
// form, so what Register stores is what Login looks up.
func normalizeUsername(s string) string {
	return strings.TrimSpace(s)
}

// withQueryTimeout bounds the repository calls made under ctx. A
// non-positive timeout leaves ctx as is.
func (s *AuthService) withQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

// Identify resolves the caller behind r. It never fails: a missing or
// forged cookie, an expired session, a user that no longer exists and any
// lookup error all resolve to model.Anonymous.
func (s *AuthService) Identify(r *http.Request) model.Identity {
	username, err := s.sessions.Username(r)
	if err != nil {
		s.logger.Debug("session rejected", zap.Error(err))
		return model.Anonymous
	}
	if username == "" {
		return model.Anonymous
	}

	conn, err := database.ConnFrom(r.Context())
	if err != nil {
		return model.Anonymous
	}
	qctx, cancel := s.withQueryTimeout(r.Context())
	defer cancel()
	u, err := repository.NewUserRepo(conn).GetByUsername(qctx, username)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Warn("identify lookup failed", zap.String("username", username), zap.Error(err))
		}
		return model.Anonymous
	}
	return model.Identity{Username: u.Username}
}

// Register creates the user. It does not log them in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) error {
	in.Username = normalizeUsername(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			msg, ok := requiredMessages[verrs[0].Field()]
			if !ok {
				msg = verrs[0].Field() + " is invalid."
			}
			return apperrors.Validation(msg)
		}
		return fmt.Errorf("validate registration: %w", err)
	}

	conn, err := database.ConnFrom(ctx)
	if err != nil {
		return err
	}

	hash, err := hashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return err
	}
	qctx, cancel := s.withQueryTimeout(ctx)
	defer cancel()
	err = repository.NewUserRepo(conn).Create(qctx, model.User{
		Username:     in.Username,
		PasswordHash: hash,
		Email:        in.Email,
	})
	if errors.Is(err, apperrors.ErrDuplicateUser) {
		return apperrors.DuplicateUser(fmt.Sprintf("User %s is already registered.", in.Username))
	}
	if err != nil {
		return err
	}

	s.logger.Info("user registered", zap.String("username", in.Username))
	s.publish(ctx, queue.UserRegisteredQueue, queue.UserRegisteredEvent{
		Username:     in.Username,
		Email:        in.Email,
		RegisteredAt: time.Now().UTC().Format(time.RFC3339),
	})
	return nil
}

// Login checks the credentials and, on success, replaces whatever session
// the caller had with a new one bound to the username. On failure no
// session is written.
//
// The two failure messages differ on purpose; this reveals whether a
// username exists.
func (s *AuthService) Login(w http.ResponseWriter, r *http.Request, in LoginInput) (model.Identity, error) {
	ctx := r.Context()
	conn, err := database.ConnFrom(ctx)
	if err != nil {
		return model.Anonymous, err
	}

	qctx, cancel := s.withQueryTimeout(ctx)
	u, err := repository.NewUserRepo(conn).GetByUsername(qctx, normalizeUsername(in.Username))
	cancel()
	if errors.Is(err, apperrors.ErrNotFound) {
		return model.Anonymous, apperrors.Authentication("Incorrect username.")
	}
	if err != nil {
		return model.Anonymous, err
	}

	ok, err := passwordMatches(u.PasswordHash, in.Password)
	if err != nil {
		return model.Anonymous, err
	}
	if !ok {
		return model.Anonymous, apperrors.Authentication("Incorrect password.")
	}

	if err := s.sessions.Begin(w, r, u.Username); err != nil {
		return model.Anonymous, fmt.Errorf("begin session: %w", err)
	}

	s.logger.Info("user logged in", zap.String("username", u.Username))
	s.publish(ctx, queue.UserLoggedInQueue, queue.UserLoggedInEvent{
		Username:   u.Username,
		RemoteIP:   remoteIP(r),
		LoggedInAt: time.Now().UTC().Format(time.RFC3339),
	})
	return model.Identity{Username: u.Username}, nil
}

// Logout ends the caller's session. Idempotent.
func (s *AuthService) Logout(w http.ResponseWriter, r *http.Request) error {
	if err := s.sessions.End(w, r); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

func (s *AuthService) publish(ctx context.Context, routingKey string, event any) {
	if err := s.events.Publish(ctx, routingKey, event); err != nil {
		s.logger.Warn("publish event failed", zap.String("routing_key", routingKey), zap.Error(err))
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
