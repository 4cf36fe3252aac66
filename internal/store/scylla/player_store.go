package scylla

import (
	"context"
	"fmt"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"hfl-auth/internal/bucketing"
	"hfl-auth/internal/model"
	"hfl-auth/internal/util"
)

// PlayerStore resolves verified phone numbers against the league's players
// and applications tables. Both tables are keyed by (phone_bucket, phone).
type PlayerStore struct {
	client  *Client
	buckets *bucketing.Manager
}

func NewPlayerStore(client *Client, buckets *bucketing.Manager) *PlayerStore {
	return &PlayerStore{
		client:  client,
		buckets: buckets,
	}
}

// Resolve answers the four-way lookup: active player, inactive player,
// pending application, or nothing known for the phone.
func (s *PlayerStore) Resolve(ctx context.Context, phone string) (model.Resolution, error) {
	bucket := s.buckets.PhoneBucket(phone)

	var player model.Player
	err := s.client.Query(ctx, stmtGetPlayer, bucket, phone).Scan(
		&player.ID,
		&player.Phone,
		&player.FirstName,
		&player.LastName,
		&player.TeamID,
		&player.Status,
		&player.CreatedAt,
	)
	if err == nil {
		return model.Resolution{Player: &player}, nil
	}
	if err != gocql.ErrNotFound {
		util.Error("Failed to look up player",
			zap.String("phone", phone),
			zap.Error(err))
		return model.Resolution{}, fmt.Errorf("failed to look up player: %w", err)
	}

	var application model.Application
	err = s.client.Query(ctx, stmtGetApplication, bucket, phone).Scan(
		&application.Phone,
		&application.FullName,
		&application.Status,
		&application.SubmittedAt,
	)
	if err == nil {
		return model.Resolution{HasPendingApplication: true}, nil
	}
	if err != gocql.ErrNotFound {
		util.Error("Failed to look up application",
			zap.String("phone", phone),
			zap.Error(err))
		return model.Resolution{}, fmt.Errorf("failed to look up application: %w", err)
	}

	return model.Resolution{}, nil
}
