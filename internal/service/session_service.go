package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tutorfinder/tutorfinder-api/internal/access"
	"github.com/tutorfinder/tutorfinder-api/internal/models"
)

type sessionUserLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

type identityCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// SessionConfig tunes session resolution.
type SessionConfig struct {
	RoleCacheTTL  time.Duration
	LookupTimeout time.Duration
}

type cachedIdentity struct {
	Role   models.UserRole `json:"role"`
	Active bool            `json:"active"`
}

// SessionService turns a bearer token into an access.Session. The role is
// always read from the user store (through the cache), never trusted from
// the token, so a role chosen after sign-in takes effect immediately.
type SessionService struct {
	tokens tokenValidator
	users  sessionUserLookup
	cache  identityCache
	cfg    SessionConfig
	logger *zap.Logger
}

// NewSessionService constructs a SessionService.
func NewSessionService(tokens tokenValidator, users sessionUserLookup, cache identityCache, cfg SessionConfig, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RoleCacheTTL <= 0 {
		cfg.RoleCacheTTL = 30 * time.Second
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = 2 * time.Second
	}
	return &SessionService{tokens: tokens, users: users, cache: cache, cfg: cfg, logger: logger}
}

// Resolve returns the session for token. A missing, invalid or expired token
// and a deleted or inactive user give an anonymous session; a store failure
// gives a pending one.
func (s *SessionService) Resolve(ctx context.Context, token string) access.Session {
	token = strings.TrimSpace(token)
	if token == "" {
		return access.Anonymous()
	}
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return access.Anonymous()
	}

	identity, err := s.identity(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return access.Anonymous()
		}
		s.logger.Warn("session lookup failed", zap.String("user_id", claims.UserID), zap.Error(err))
		return access.Pending()
	}
	if !identity.Active {
		return access.Anonymous()
	}
	return access.Session{
		Authenticated: true,
		Role:          access.ParseRole(string(identity.Role)),
		UserID:        claims.UserID,
	}
}

// Forget drops the cached identity of userID.
func (s *SessionService) Forget(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, userCacheKey(userID)); err != nil {
		s.logger.Warn("failed to drop cached session identity", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *SessionService) identity(ctx context.Context, userID string) (cachedIdentity, error) {
	key := userCacheKey(userID)
	if s.cache != nil {
		var cached cachedIdentity
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.cfg.LookupTimeout)
	defer cancel()
	user, err := s.users.FindByID(lookupCtx, userID)
	if err != nil {
		return cachedIdentity{}, err
	}
	identity := cachedIdentity{Role: user.Role, Active: user.Active}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, identity, s.cfg.RoleCacheTTL); err != nil {
			s.logger.Warn("failed to cache session identity", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return identity, nil
}
