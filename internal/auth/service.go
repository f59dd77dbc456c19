package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/bnb-reservations/backend/internal/storage"
	"github.com/bnb-reservations/backend/internal/storage/models"
)

// ErrPasswordTooShort is returned for passwords under MinPasswordLength.
var ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)

// Service manages accounts and sessions.
type Service struct {
	users  *storage.UserRepository
	tokens *TokenIssuer
	logger logrus.FieldLogger
}

// NewService creates a new account service.
func NewService(users *storage.UserRepository, tokens *TokenIssuer, logger logrus.FieldLogger) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		logger: logger.WithField("component", "auth"),
	}
}

// Session is the result of a successful sign-in.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt int64        `json:"expires_at"`
	User      *models.User `json:"user"`
}

// SignUpInput are the fields of the sign-up form.
type SignUpInput struct {
	Name     string
	Mail     string
	Phone    string
	Password string
}

// SignUp creates a guest account and signs it in.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*Session, error) {
	if len(in.Password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         strings.TrimSpace(in.Name),
		Mail:         in.Mail,
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: hash,
		Role:         models.RoleGuest,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.WithField("user_id", user.ID).Info("guest signed up")
	return s.newSession(user)
}

// SignIn checks credentials and issues a session token.
func (s *Service) SignIn(ctx context.Context, mail, password string) (*Session, error) {
	user, err := s.users.GetByMail(ctx, mail)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, err
	}

	return s.newSession(user)
}

// Authenticate resolves a session token to a principal. The user must still
// exist; the role is re-read from storage so demotions take effect at once.
func (s *Service) Authenticate(ctx context.Context, token string) (Principal, error) {
	p, err := s.tokens.Verify(token)
	if err != nil {
		return Anonymous(), err
	}

	user, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		return Anonymous(), err
	}
	if user == nil {
		return Anonymous(), ErrInvalidToken
	}

	return Principal{UserID: user.ID, Role: user.Role}, nil
}

// ProfileInput are the editable profile fields. Empty fields are left unchanged.
type ProfileInput struct {
	Name     string
	Mail     string
	Phone    string
	Password string
}

// UpdateProfile edits the caller's own account.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, storage.ErrNotFound
	}

	if name := strings.TrimSpace(in.Name); name != "" {
		user.Name = name
	}
	if in.Mail != "" {
		user.Mail = in.Mail
	}
	if in.Phone != "" {
		user.Phone = strings.TrimSpace(in.Phone)
	}
	if in.Password != "" {
		if len(in.Password) < MinPasswordLength {
			return nil, ErrPasswordTooShort
		}
		hash, err := HashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// User returns an account by ID.
func (s *Service) User(ctx context.Context, id string) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// EnsureHost creates the host account, or promotes and resets the password
// of an existing account with that mail.
func (s *Service) EnsureHost(ctx context.Context, name, mail, password string) error {
	if mail == "" || password == "" {
		return errors.New("host mail and password are required")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	user, err := s.users.GetByMail(ctx, mail)
	if err != nil {
		return err
	}
	if user == nil {
		user = &models.User{Name: name, Mail: mail, PasswordHash: hash, Role: models.RoleHost}
		if err := s.users.Create(ctx, user); err != nil {
			return fmt.Errorf("creating host account: %w", err)
		}
		s.logger.WithField("user_id", user.ID).Info("host account created")
		return nil
	}

	user.Role = models.RoleHost
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("updating host account: %w", err)
	}
	return nil
}

func (s *Service) newSession(user *models.User) (*Session, error) {
	token, expires, err := s.tokens.Issue(Principal{UserID: user.ID, Role: user.Role})
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expires.Unix(), User: user}, nil
}
