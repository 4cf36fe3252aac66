package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hfl-auth/internal/config"
	"hfl-auth/internal/model"
)

func testService(t *testing.T) *Service {
	t.Helper()
	cfg := &config.Config{
		Environment: "development",
		Session: config.SessionConfig{
			SigningKey: "0123456789abcdef0123456789abcdef",
			TTL:        24 * time.Hour,
		},
	}
	svc, err := NewService(cfg, nil)
	require.NoError(t, err)
	return svc
}

func testPlayer() *model.Player {
	return &model.Player{
		ID:     "player-42",
		Phone:  "+998901234567",
		Status: model.PlayerStatusActive,
	}
}

func TestIssueProducesDayLongSession(t *testing.T) {
	svc := testService(t)
	issued := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }

	session, err := svc.Issue(context.Background(), testPlayer())
	require.NoError(t, err)

	assert.Equal(t, "player-42", session.PlayerID)
	assert.Equal(t, "+998901234567", session.Phone)
	assert.NotEmpty(t, session.SessionID)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, issued, session.CreatedAt)
	assert.Equal(t, issued.Add(24*time.Hour), session.ExpiresAt)
}

func TestIssuedTokenRoundTrips(t *testing.T) {
	svc := testService(t)

	session, err := svc.Issue(context.Background(), testPlayer())
	require.NoError(t, err)

	claims, err := svc.Verify(session.Token)
	require.NoError(t, err)
	assert.Equal(t, "player-42", claims.Subject)
	assert.Equal(t, "+998901234567", claims.Phone)
	assert.Equal(t, session.SessionID, claims.SessionID)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	svc := testService(t)

	session, err := svc.Issue(context.Background(), testPlayer())
	require.NoError(t, err)

	_, err = svc.Verify(session.Token + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	svc := testService(t)

	other := testService(t)
	other.signingKey = []byte("ffffffffffffffffffffffffffffffff")

	session, err := other.Issue(context.Background(), testPlayer())
	require.NoError(t, err)

	_, err = svc.Verify(session.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestProductionRequiresSigningKey(t *testing.T) {
	cfg := &config.Config{
		Environment: "production",
		Session:     config.SessionConfig{SigningKey: "short", TTL: 24 * time.Hour},
	}
	_, err := NewService(cfg, nil)
	assert.Error(t, err)
}
