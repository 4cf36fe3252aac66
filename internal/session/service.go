package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"hfl-auth/internal/client"
	"hfl-auth/internal/config"
	"hfl-auth/internal/model"
	"hfl-auth/internal/util"
)

var ErrInvalidToken = errors.New("invalid session token")

// Claims carry the player identity inside the signed token.
type Claims struct {
	Phone     string `json:"phone"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Service issues player sessions after successful verification. Sessions are
// signed JWTs; a redis copy keyed by session id allows server-side lookup and
// revocation.
type Service struct {
	signingKey []byte
	ttl        time.Duration
	redis      *client.RedisClient
	now        func() time.Time
}

func NewService(cfg *config.Config, redis *client.RedisClient) (*Service, error) {
	signingKey := []byte(cfg.Session.SigningKey)
	if cfg.IsProduction() && len(signingKey) < 32 {
		return nil, fmt.Errorf("session signing key must be at least 32 bytes")
	}
	if len(signingKey) == 0 {
		// Dev-only fallback; production is rejected above.
		signingKey = []byte("hfl-dev-session-signing-key-0000")
	}

	return &Service{
		signingKey: signingKey,
		ttl:        cfg.Session.TTL,
		redis:      redis,
		now:        time.Now,
	}, nil
}

// Issue creates a session for the player valid for the configured lifetime.
func (s *Service) Issue(ctx context.Context, player *model.Player) (*model.Session, error) {
	now := s.now().UTC()
	sessionID := uuid.NewString()

	claims := &Claims{
		Phone:     player.Phone,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   player.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        sessionID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.signingKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	session := &model.Session{
		PlayerID:  player.ID,
		Phone:     player.Phone,
		SessionID: sessionID,
		Token:     tokenString,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.cache(ctx, session)

	util.Info("Session issued",
		zap.String("player_id", player.ID),
		zap.String("session_id", sessionID))

	return session, nil
}

// Verify parses and validates a session token.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Revoke drops the server-side session copy.
func (s *Service) Revoke(ctx context.Context, sessionID string) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Del(ctx, sessionKey(sessionID))
}

// cache is best-effort: a redis fault downgrades revocation, not login.
func (s *Service) cache(ctx context.Context, session *model.Session) {
	if s.redis == nil {
		return
	}

	payload, err := json.Marshal(session)
	if err != nil {
		util.Error("Failed to encode session for cache", zap.Error(err))
		return
	}

	if err := s.redis.Set(ctx, sessionKey(session.SessionID), payload, s.ttl); err != nil {
		util.Warn("Failed to cache session",
			zap.String("session_id", session.SessionID),
			zap.Error(err))
	}
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID
}
