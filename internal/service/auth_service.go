package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/corvid-labs/auth-service/internal/auth"
	"github.com/corvid-labs/auth-service/internal/domain"
	"github.com/corvid-labs/auth-service/internal/events"
	"github.com/corvid-labs/auth-service/internal/observability"
	"github.com/corvid-labs/auth-service/internal/repository"
	apperrors "github.com/corvid-labs/auth-service/pkg/util/errorutil"
)

const (
	msgInvalidCredentials = "invalid email or password"
	msgAccountDeactivated = "account is deactivated, please contact administrator"
	msgEmailTaken         = "user with this email already exists"

	flowRegister = "register"
	flowLogin    = "login"
)

// RegisterInput is the raw registration payload.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	// Role is nil when the client did not send one.
	Role *string
}

// LoginInput is the raw login payload.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult carries issued tokens and the public profile.
type LoginResult struct {
	Tokens domain.TokenPair
	User   domain.PublicUser
}

// PasswordHasher hashes new credentials and verifies candidates against stored hashes.
// Verify must do a full comparison even when the stored hash is empty.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password, hashed string) bool
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	users         repository.UserRepository
	refreshTokens repository.RefreshTokenRepository
	hasher        PasswordHasher
	tokenMgr      *auth.TokenManager
	defaultRole   domain.Role
	dispatcher    events.Dispatcher
	metrics       *observability.Metrics
	logger        *zap.Logger
	validate      *validator.Validate
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo         repository.UserRepository
	RefreshTokenRepo repository.RefreshTokenRepository
	Hasher           PasswordHasher
	TokenManager     *auth.TokenManager
	DefaultRole      domain.Role
	Dispatcher       events.Dispatcher
	Metrics          *observability.Metrics
	Logger           *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	role := deps.DefaultRole
	if role == "" {
		role = domain.DefaultRole
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = events.NewInMemoryDispatcher()
	}
	return &AuthService{
		users:         deps.UserRepo,
		refreshTokens: deps.RefreshTokenRepo,
		hasher:        deps.Hasher,
		tokenMgr:      deps.TokenManager,
		defaultRole:   role,
		dispatcher:    dispatcher,
		metrics:       deps.Metrics,
		logger:        logger,
		validate:      newValidator(),
	}
}

// Register creates a new account and returns its public projection.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.PublicUser, error) {
	payload, role, err := s.validateRegister(in)
	if err != nil {
		s.metrics.RecordAuthAttempt(flowRegister, "validation_failed")
		return nil, err
	}

	// The email is already public knowledge to this endpoint, so the
	// pre-check skips hashing instead of equalizing timing.
	_, err = s.users.FindByEmail(ctx, payload.Email)
	switch {
	case err == nil:
		s.metrics.RecordAuthAttempt(flowRegister, "conflict")
		return nil, apperrors.NewConflict(msgEmailTaken)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, s.internal(flowRegister, "lookup user", err)
	}

	hash, err := s.hasher.Hash(ctx, payload.Password)
	if err != nil {
		return nil, s.internal(flowRegister, "hash password", err)
	}

	user := &domain.User{
		Name:         payload.Name,
		Email:        payload.Email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			s.metrics.RecordAuthAttempt(flowRegister, "conflict")
			return nil, apperrors.NewConflict(msgEmailTaken)
		}
		return nil, s.internal(flowRegister, "create user", err)
	}

	s.metrics.RecordAuthAttempt(flowRegister, "success")
	s.publish(ctx, events.NewEvent(events.EventUserRegistered, user.ID, s.tokenMgr.Now(),
		events.UserRegisteredPayload{Role: user.Role}))

	public := user.Public()
	return &public, nil
}

// Login authenticates an account and issues an access/refresh token pair.
// Unknown email and wrong password produce the same error.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	payload, err := s.validateLogin(in)
	if err != nil {
		s.metrics.RecordAuthAttempt(flowLogin, "validation_failed")
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, payload.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Burn a comparison against the dummy hash so timing matches a wrong password.
			s.hasher.Verify(ctx, payload.Password, "")
			return nil, s.rejectLogin(ctx, "", "unknown_email")
		}
		return nil, s.internal(flowLogin, "lookup user", err)
	}

	if !user.Active {
		s.metrics.RecordAuthAttempt(flowLogin, "forbidden")
		s.publish(ctx, events.NewEvent(events.EventLoginFailed, user.ID, s.tokenMgr.Now(),
			events.LoginFailedPayload{Reason: "deactivated"}))
		return nil, apperrors.NewForbidden(msgAccountDeactivated)
	}

	if !s.hasher.Verify(ctx, payload.Password, user.PasswordHash) {
		return nil, s.rejectLogin(ctx, user.ID, "wrong_password")
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, s.internal(flowLogin, "issue tokens", err)
	}

	s.metrics.RecordAuthAttempt(flowLogin, "success")
	s.publish(ctx, events.NewEvent(events.EventUserLoggedIn, user.ID, s.tokenMgr.Now(),
		events.UserLoggedInPayload{RefreshExpiresAt: tokens.RefreshExpiresAt}))

	return &LoginResult{Tokens: *tokens, User: user.Public()}, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issueTokens(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	access, accessExp, err := s.tokenMgr.IssueAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}

	refresh, err := s.tokenMgr.IssueRefreshToken()
	if err != nil {
		return nil, err
	}

	record := &domain.RefreshToken{
		Token:     refresh,
		UserID:    user.ID,
		ExpiresAt: s.tokenMgr.RefreshTokenExpiration(s.tokenMgr.Now()),
	}
	if err := s.refreshTokens.Create(ctx, record); err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:          access,
		AccessTokenExpiresAt: accessExp,
		RefreshToken:         refresh,
		RefreshExpiresAt:     record.ExpiresAt,
	}, nil
}

func (s *AuthService) rejectLogin(ctx context.Context, userID, reason string) error {
	s.metrics.RecordAuthAttempt(flowLogin, "unauthorized")
	s.publish(ctx, events.NewEvent(events.EventLoginFailed, userID, s.tokenMgr.Now(),
		events.LoginFailedPayload{Reason: reason}))
	return apperrors.NewUnauthorized(msgInvalidCredentials)
}

func (s *AuthService) internal(flow, step string, err error) error {
	s.metrics.RecordAuthAttempt(flow, "error")
	s.logger.Error("auth flow failed",
		zap.String("flow", flow),
		zap.String("step", step),
		zap.Error(err))
	return apperrors.NewInternalError(err)
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
}
