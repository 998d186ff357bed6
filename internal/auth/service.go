// Package auth signs users in and out against the external auth and
// account services and records the result in the session.
package auth

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mmcdole/librovault/internal/domain"
)

// SessionWriter records the signed-in user. Satisfied by *session.Session.
type SessionWriter interface {
	SetUser(userID, username string)
	Clear()
}

// Service exchanges credentials for a user identity
type Service struct {
	repo    domain.AuthRepository
	session SessionWriter
	logger  *slog.Logger
}

// NewService creates an auth service
func NewService(repo domain.AuthRepository, session SessionWriter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, session: session, logger: logger}
}

// SignIn authenticates and, on success, sets the session user.
func (s *Service) SignIn(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}

	user, err := s.repo.Authenticate(ctx, username, password)
	if err != nil {
		s.logger.Error("failed to sign in", "error", err, "username", username)
		return nil, err
	}

	s.session.SetUser(user.ID, user.Username)
	s.logger.Info("signed in", "userID", user.ID, "username", user.Username)
	return user, nil
}

// CreateAccount registers a new user and signs them in.
// password and confirm must match.
func (s *Service) CreateAccount(ctx context.Context, username, password, confirm string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}
	if password != confirm {
		return nil, &domain.ValidationError{
			Fields:  []string{"confirm"},
			Message: "passwords do not match",
		}
	}

	user, err := s.repo.CreateAccount(ctx, username, password)
	if err != nil {
		s.logger.Error("failed to create account", "error", err, "username", username)
		return nil, err
	}

	s.session.SetUser(user.ID, user.Username)
	s.logger.Info("created account", "userID", user.ID, "username", user.Username)
	return user, nil
}

// SignOut clears the session
func (s *Service) SignOut() {
	s.session.Clear()
	s.logger.Info("signed out")
}

func validateCredentials(username, password string) error {
	var missing []string
	if username == "" {
		missing = append(missing, "username")
	}
	if password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return &domain.ValidationError{
			Fields:  missing,
			Message: "username and password are required",
		}
	}
	return nil
}
