package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/comunidad-app/backend/internal/models"
	"github.com/comunidad-app/backend/internal/session"
	"github.com/comunidad-app/backend/pkg/utils"
)

var (
	ErrNameRequired = errors.New("name is required")
	ErrInvalidRole  = errors.New("role must be admin or user")
	ErrNotAdmin     = errors.New("this name is not allowed to sign in as admin")
	ErrBadPasscode  = errors.New("invalid admin passcode")
)

// Policy decides who may sign in as admin.
type Policy struct {
	AdminNames   []string // compared case-insensitively
	PasscodeHash string   // bcrypt; empty disables the passcode check
}

func (p Policy) isAdminName(name string) bool {
	for _, n := range p.AdminNames {
		if strings.EqualFold(strings.TrimSpace(n), name) {
			return true
		}
	}
	return false
}

// Service signs users in and out. Every login mints a fresh user id.
type Service struct {
	sessions *session.Store
	jwt      *JWTService
	policy   Policy
	logger   *zap.Logger
	newID    func() string
}

// NewService creates an auth service.
func NewService(sessions *session.Store, jwt *JWTService, policy Policy, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		sessions: sessions,
		jwt:      jwt,
		policy:   policy,
		logger:   logger,
		newID:    uuid.NewString,
	}
}

// Login validates the requested identity, stores it as the current user and issues a token.
func (s *Service) Login(ctx context.Context, name string, role models.Role, passcode string) (*models.User, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, "", ErrNameRequired
	}
	if role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		return nil, "", ErrInvalidRole
	}
	if role == models.RoleAdmin {
		if !s.policy.isAdminName(name) {
			s.logger.Warn("admin login refused", zap.String("name", name))
			return nil, "", ErrNotAdmin
		}
		if s.policy.PasscodeHash != "" && !utils.CheckPasscode(passcode, s.policy.PasscodeHash) {
			s.logger.Warn("admin passcode mismatch", zap.String("name", name))
			return nil, "", ErrBadPasscode
		}
	}

	user := models.User{ID: s.newID(), Name: name, Role: role}
	if err := s.sessions.SetCurrent(ctx, user); err != nil {
		return nil, "", err
	}
	token, err := s.jwt.Generate(user)
	if err != nil {
		return nil, "", err
	}
	return &user, token, nil
}

// Logout clears the current user.
func (s *Service) Logout(ctx context.Context) error {
	return s.sessions.Clear(ctx)
}

// Current returns the stored current user, or nil.
func (s *Service) Current(ctx context.Context) (*models.User, error) {
	return s.sessions.Current(ctx)
}
