package model

import (
	"context"
	"time"
)

// -------------------- OTP RECORD --------------------

// OTPRecord is one outstanding verification challenge for a phone number.
// There is at most one live record per phone; a new request overwrites it.
type OTPRecord struct {
	Phone     string    `json:"phone" db:"phone"` // canonical E.164 (+998XXXXXXXXX)
	Code      string    `json:"-" db:"code"`      // 4 digits, never serialized to clients
	Attempts  int       `json:"attempts" db:"attempts"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}

// Expired reports whether the record is no longer valid at the given instant.
// A record expires exactly at ExpiresAt (fail closed on the boundary).
func (r *OTPRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Exhausted reports whether the attempt ceiling has been reached.
func (r *OTPRecord) Exhausted(maxAttempts int) bool {
	return r.Attempts >= maxAttempts
}

// -------------------- PLAYER --------------------

const PlayerStatusActive = "active"

// Player is read-only from the auth core's perspective; the league backend
// owns the rest of its schema.
type Player struct {
	ID        string    `json:"id" db:"player_id"`
	Phone     string    `json:"phone" db:"phone"`
	FirstName string    `json:"first_name" db:"first_name"`
	LastName  string    `json:"last_name" db:"last_name"`
	TeamID    string    `json:"team_id,omitempty" db:"team_id"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Application is a pending registration request for a phone that has no
// player record yet.
type Application struct {
	Phone       string    `json:"phone" db:"phone"`
	FullName    string    `json:"full_name" db:"full_name"`
	Status      string    `json:"status" db:"status"`
	SubmittedAt time.Time `json:"submitted_at" db:"submitted_at"`
}

// -------------------- SESSION --------------------

// Session is the bearer-style token structure returned on successful login.
type Session struct {
	PlayerID  string    `json:"playerId"`
	Phone     string    `json:"phone"`
	SessionID string    `json:"sessionId"`
	Token     string    `json:"token,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// -------------------- STORE INTERFACES --------------------

// OTPCache is the fast, TTL-based side of the record store. It is an
// optimization only: it may lose entries at any time and is never
// authoritative.
type OTPCache interface {
	Put(ctx context.Context, record *OTPRecord) error
	// Get returns (nil, nil) when no record exists.
	Get(ctx context.Context, phone string) (*OTPRecord, error)
	Delete(ctx context.Context, phone string) error
}

// OTPStore is the durable side of the record store. Failures must surface as
// errors, never as absence.
type OTPStore interface {
	Put(ctx context.Context, record *OTPRecord) error
	// Get returns (nil, nil) when no record exists.
	Get(ctx context.Context, phone string) (*OTPRecord, error)
	Delete(ctx context.Context, phone string) error
	// DeleteExpired reclaims records whose ExpiresAt precedes the given
	// instant and returns how many were removed.
	DeleteExpired(ctx context.Context, before time.Time) (int, error)
}

// -------------------- PLAYER RESOLUTION --------------------

// Resolution is the four-way answer of the player lookup: an active player,
// an inactive player, no player with a pending application, or nothing at all.
type Resolution struct {
	Player                *Player
	HasPendingApplication bool
}

func (r Resolution) Found() bool {
	return r.Player != nil
}

func (r Resolution) Active() bool {
	return r.Player != nil && r.Player.Status == PlayerStatusActive
}

// PlayerGateway resolves a verified phone number to a player.
type PlayerGateway interface {
	Resolve(ctx context.Context, phone string) (Resolution, error)
}
