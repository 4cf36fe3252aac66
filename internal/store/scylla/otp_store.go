package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"hfl-auth/internal/bucketing"
	"hfl-auth/internal/model"
	"hfl-auth/internal/util"
)

const maxQueryRetries = 3

// OTPStore is the durable side of the record store, keyed by
// (phone_bucket, phone) so lookups stay single-partition.
type OTPStore struct {
	client  *Client
	buckets *bucketing.Manager
}

func NewOTPStore(client *Client, buckets *bucketing.Manager) *OTPStore {
	return &OTPStore{
		client:  client,
		buckets: buckets,
	}
}

func (s *OTPStore) Put(ctx context.Context, record *model.OTPRecord) error {
	bucket := s.buckets.PhoneBucket(record.Phone)

	query := s.client.Query(ctx, stmtPutOTP,
		bucket,
		record.Phone,
		record.Code,
		record.Attempts,
		record.CreatedAt,
		record.ExpiresAt,
	)

	if err := s.client.ExecuteWithRetry(query, maxQueryRetries); err != nil {
		util.Error("Failed to persist OTP record",
			zap.String("phone", record.Phone),
			zap.Error(err))
		return fmt.Errorf("failed to persist otp record: %w", err)
	}

	return nil
}

func (s *OTPStore) Get(ctx context.Context, phone string) (*model.OTPRecord, error) {
	bucket := s.buckets.PhoneBucket(phone)

	var record model.OTPRecord
	err := s.client.Query(ctx, stmtGetOTPByPhone, bucket, phone).Scan(
		&record.Phone,
		&record.Code,
		&record.Attempts,
		&record.CreatedAt,
		&record.ExpiresAt,
	)
	if err == gocql.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		util.Error("Failed to read OTP record",
			zap.String("phone", phone),
			zap.Error(err))
		return nil, fmt.Errorf("failed to read otp record: %w", err)
	}

	return &record, nil
}

func (s *OTPStore) Delete(ctx context.Context, phone string) error {
	bucket := s.buckets.PhoneBucket(phone)

	query := s.client.Query(ctx, stmtDeleteOTP, bucket, phone)
	if err := s.client.ExecuteWithRetry(query, maxQueryRetries); err != nil {
		util.Error("Failed to delete OTP record",
			zap.String("phone", phone),
			zap.Error(err))
		return fmt.Errorf("failed to delete otp record: %w", err)
	}

	return nil
}

// DeleteExpired sweeps records whose expires_at precedes the cutoff. The scan
// is a full-table filter, so it runs from a background sweeper, never on the
// request path.
func (s *OTPStore) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	iter := s.client.Session.Query(`
        SELECT phone_bucket, phone FROM otp_records
        WHERE expires_at < ? ALLOW FILTERING`, before.UTC()).WithContext(ctx).Iter()

	var bucket int
	var phone string
	deletedCount := 0

	batch := s.client.Session.NewBatch(gocql.UnloggedBatch)
	batchSize := 0

	for iter.Scan(&bucket, &phone) {
		batch.Query(`DELETE FROM otp_records WHERE phone_bucket = ? AND phone = ?`, bucket, phone)
		batchSize++

		if batchSize >= 100 {
			if err := s.client.ExecuteBatch(batch); err != nil {
				util.Error("Failed to execute batch delete for expired OTP records", zap.Error(err))
				iter.Close()
				return deletedCount, fmt.Errorf("failed to delete expired otp records: %w", err)
			}
			deletedCount += batchSize
			batch = s.client.Session.NewBatch(gocql.UnloggedBatch)
			batchSize = 0
		}
	}

	if batchSize > 0 {
		if err := s.client.ExecuteBatch(batch); err != nil {
			util.Error("Failed to execute final batch delete for expired OTP records", zap.Error(err))
			iter.Close()
			return deletedCount, fmt.Errorf("failed to delete expired otp records: %w", err)
		}
		deletedCount += batchSize
	}

	if err := iter.Close(); err != nil {
		util.Error("Failed to close iterator for expired OTP sweep", zap.Error(err))
		return deletedCount, fmt.Errorf("failed to sweep expired otp records: %w", err)
	}

	if deletedCount > 0 {
		util.Info("Expired OTP records deleted", zap.Int("deleted_count", deletedCount))
	}
	return deletedCount, nil
}
