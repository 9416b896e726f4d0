package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/phillip/crowdfunding-go/errors"
	"github.com/phillip/crowdfunding-go/models"
	"github.com/phillip/crowdfunding-go/repository"
	"github.com/phillip/crowdfunding-go/utils"
)

// LoginResult is returned to the client on successful login.
type LoginResult struct {
	Token string `json:"token"`
	Name  string `json:"name"`
}

type AuthService struct {
	users  repository.UserRepository
	hasher utils.PasswordHasher
	tokens *utils.TokenIssuer
	log    *zap.Logger
	now    func() time.Time
}

func NewAuthService(users repository.UserRepository, hasher utils.PasswordHasher, tokens *utils.TokenIssuer, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{users: users, hasher: hasher, tokens: tokens, log: log, now: time.Now}
}

// Register creates a non-admin user.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	name, email = strings.TrimSpace(name), normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, apperrors.New(apperrors.ErrMissingFields, "Name, email, and password are required.")
	}

	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, apperrors.New(apperrors.ErrConflict, "User already exists.")
	case !errors.Is(err, repository.ErrNotFound):
		return nil, storageError("could not look up user", err)
	}

	hash, err := s.hasher.Hash(password)
	switch {
	case errors.Is(err, utils.ErrPasswordTooLong):
		return nil, apperrors.Newf(apperrors.ErrValidation,
			"Password must be at most %d bytes.", utils.MaxPasswordBytes)
	case err != nil:
		return nil, apperrors.Wrap(apperrors.ErrInternal, "could not hash password", err)
	}

	u := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		// The unique index catches a registration racing the lookup above.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.New(apperrors.ErrConflict, "User already exists.")
		}
		return nil, storageError("could not create user", err)
	}

	s.log.Info("user registered", zap.String("user_id", u.ID.Hex()))
	return u, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.New(apperrors.ErrMissingFields, "Email and password are required.")
	}

	u, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.New(apperrors.ErrInvalidCredentials, "Invalid credentials.")
	}
	if err != nil {
		return nil, storageError("could not look up user", err)
	}
	if !s.hasher.Check(u.PasswordHash, password) {
		return nil, apperrors.New(apperrors.ErrInvalidCredentials, "Invalid credentials.")
	}

	token, err := s.tokens.Issue(u)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, "could not issue token", err)
	}

	s.log.Info("user logged in", zap.String("user_id", u.ID.Hex()))
	return &LoginResult{Token: token, Name: u.Name}, nil
}
