package users

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rayyanshah04/flexpay/internal/common"
	"github.com/rayyanshah04/flexpay/internal/devbackend/auth"
	"github.com/rayyanshah04/flexpay/internal/devbackend/config"
	"github.com/rayyanshah04/flexpay/internal/shared"
)

type Service struct {
	repo                 Repository
	jwtSecret            []byte
	authTokenValidity    time.Duration
	sessionTokenValidity time.Duration
}

func NewService(repo Repository, cfg *config.Config) *Service {
	return &Service{
		repo:                 repo,
		jwtSecret:            []byte(cfg.SecretKey),
		authTokenValidity:    cfg.AuthTokenValidity,
		sessionTokenValidity: cfg.SessionTokenValidity,
	}
}

// Register creates an account with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, phone, name, email, password string) (*User, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" || password == "" {
		return nil, shared.ErrorValidation
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user, err := s.repo.Create(ctx, &User{Name: name, Phone: phone, Email: email, PasswordHash: hash})
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return user, nil
}

// Login checks the password and issues an auth token.
func (s *Service) Login(ctx context.Context, phone, password string) (string, *User, error) {
	if strings.TrimSpace(phone) == "" || password == "" {
		return "", nil, shared.ErrorValidation
	}

	user, err := s.repo.GetUserByPhone(ctx, strings.TrimSpace(phone))
	if err != nil {
		if errors.Is(err, shared.ErrorNotFound) {
			return "", nil, shared.ErrorInvalidLoginPassword
		}
		return "", nil, err
	}

	if err := auth.VerifyPassword(user.PasswordHash, password); err != nil {
		return "", nil, shared.ErrorInvalidLoginPassword
	}

	token, err := auth.GenerateToken(userID(user), auth.TypeAuth, s.jwtSecret, s.authTokenValidity)
	if err != nil {
		return "", nil, fmt.Errorf("error generating token: %w", err)
	}
	return token, user, nil
}

// Authenticate resolves an auth token to its user.
func (s *Service) Authenticate(ctx context.Context, authToken string) (*User, error) {
	id, err := auth.GetUserIDFromToken(authToken, auth.TypeAuth, s.jwtSecret)
	if err != nil {
		return nil, err
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, shared.ErrorInvalidToken
	}
	user, err := s.repo.GetUserByID(ctx, n)
	if err != nil {
		if errors.Is(err, shared.ErrorNotFound) {
			return nil, shared.ErrorInvalidToken
		}
		return nil, err
	}
	return user, nil
}

// SetPin stores a bcrypt hash of a 4-digit PIN, replacing any previous one.
func (s *Service) SetPin(ctx context.Context, user *User, pin string) error {
	if !common.IsPin(pin) {
		return shared.ErrorInvalidPinFormat
	}
	hash, err := auth.HashPassword(pin)
	if err != nil {
		return fmt.Errorf("error hashing pin: %w", err)
	}
	_, err = s.repo.Update(ctx, user.ID, func(u *User) error {
		u.PinHash = hash
		return nil
	})
	return err
}

// IssueSessionToken returns a fresh short-lived session token.
func (s *Service) IssueSessionToken(ctx context.Context, user *User) (string, error) {
	token, err := auth.GenerateToken(userID(user), auth.TypeSession, s.jwtSecret, s.sessionTokenValidity)
	if err != nil {
		return "", fmt.Errorf("error generating session token: %w", err)
	}
	return token, nil
}

// AuthenticateSession resolves a session token to its user.
func (s *Service) AuthenticateSession(ctx context.Context, sessionToken string) (*User, error) {
	id, err := auth.GetUserIDFromToken(sessionToken, auth.TypeSession, s.jwtSecret)
	if err != nil {
		return nil, err
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, shared.ErrorInvalidToken
	}
	return s.repo.GetUserByID(ctx, n)
}

// RegisterDeviceToken records the push token for the user.
func (s *Service) RegisterDeviceToken(ctx context.Context, user *User, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return shared.ErrorValidation
	}
	_, err := s.repo.Update(ctx, user.ID, func(u *User) error {
		u.DeviceToken = token
		return nil
	})
	return err
}

func userID(u *User) string {
	return strconv.FormatInt(u.ID, 10)
}
