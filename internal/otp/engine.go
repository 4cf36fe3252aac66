package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"hfl-auth/internal/config"
	"hfl-auth/internal/events"
	"hfl-auth/internal/model"
	"hfl-auth/internal/sms"
	"hfl-auth/internal/store"
	"hfl-auth/internal/util"
)

// Sentinel errors double as client-facing rejection reasons.
var (
	ErrCodeNotFound    = errors.New("not found or expired")
	ErrCodeExpired     = errors.New("expired")
	ErrTooManyAttempts = errors.New("too many attempts, request a new code")
	ErrIncorrectCode   = errors.New("incorrect code")
	ErrDeliveryFailed  = errors.New("failed to send verification code")
)

// Locker is an optional cross-instance lock around record mutations. The
// release func is nil-safe to call when acquisition failed.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), acquired bool, err error)
}

// Engine drives the code lifecycle: a phone goes from no record to an issued
// record, and from there to verified, expired, or exhausted. All three
// terminal outcomes end with the record deleted from both stores.
type Engine struct {
	records     *store.RecordStore
	sender      sms.Sender
	publisher   *events.Publisher
	audit       *events.AuditSink
	locker      Locker
	ttl         time.Duration
	maxAttempts int
	locks       *keyedMutex
	now         func() time.Time
}

func NewEngine(cfg *config.Config, records *store.RecordStore, sender sms.Sender, publisher *events.Publisher, audit *events.AuditSink, locker Locker) *Engine {
	return &Engine{
		records:     records,
		sender:      sender,
		publisher:   publisher,
		audit:       audit,
		locker:      locker,
		ttl:         cfg.OTPTTL(),
		maxAttempts: cfg.OTP.MaxAttempts,
		locks:       newKeyedMutex(),
		now:         time.Now,
	}
}

// RequestOTP issues a fresh code for the phone, overwriting any live record,
// and dispatches it over SMS. Returns the code lifetime in whole minutes.
// On delivery failure the record stays persisted so a retried request still
// overwrites it.
func (e *Engine) RequestOTP(ctx context.Context, phone string) (int, error) {
	code, err := generateCode()
	if err != nil {
		return 0, fmt.Errorf("failed to generate code: %w", err)
	}

	now := e.now().UTC()
	record := &model.OTPRecord{
		Phone:     phone,
		Code:      code,
		Attempts:  0,
		CreatedAt: now,
		ExpiresAt: now.Add(e.ttl),
	}

	unlock := e.lockPhone(ctx, phone)
	err = e.records.Put(ctx, record)
	unlock()
	if err != nil {
		return 0, err
	}

	logIssuedCode(phone, code)

	expiresIn := int(e.ttl.Minutes())

	result, err := e.sender.SendOTP(ctx, phone, code)
	if err != nil || !result.Delivered {
		util.Error("OTP delivery failed", zap.String("phone", phone), zap.Error(err))
		e.publisher.Publish(ctx, events.TypeOTPRequested, phone, map[string]string{"delivered": "false"})
		e.audit.Record(events.TypeOTPRequested, phone, "delivery_failed")
		if err != nil {
			return expiresIn, fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
		}
		return expiresIn, ErrDeliveryFailed
	}

	util.Info("OTP issued",
		zap.String("phone", phone),
		zap.Int("expires_in_minutes", expiresIn),
		zap.String("message_id", result.MessageID))
	e.publisher.Publish(ctx, events.TypeOTPRequested, phone, map[string]string{"delivered": "true"})
	e.audit.Record(events.TypeOTPRequested, phone, "sent")

	return expiresIn, nil
}

// VerifyOTP checks a submitted code. Attempts are consumed and persisted
// before the comparison, so a crash or race between increment and compare can
// only under-count in the caller's disfavor, never grant extra tries.
func (e *Engine) VerifyOTP(ctx context.Context, phone, code string) error {
	unlock := e.lockPhone(ctx, phone)
	defer unlock()

	record, err := e.records.Get(ctx, phone)
	if err != nil {
		return err
	}
	if record == nil {
		e.audit.Record(events.TypeOTPRejected, phone, "not_found")
		return ErrCodeNotFound
	}

	now := e.now().UTC()
	if record.Expired(now) {
		if err := e.records.Delete(ctx, phone); err != nil {
			return err
		}
		e.audit.Record(events.TypeOTPRejected, phone, "expired")
		return ErrCodeExpired
	}

	if record.Exhausted(e.maxAttempts) {
		if err := e.records.Delete(ctx, phone); err != nil {
			return err
		}
		e.publisher.Publish(ctx, events.TypeOTPRejected, phone, map[string]string{"reason": "exhausted"})
		e.audit.Record(events.TypeOTPRejected, phone, "exhausted")
		return ErrTooManyAttempts
	}

	record.Attempts++
	if err := e.records.Put(ctx, record); err != nil {
		return err
	}

	if record.Code != code {
		util.Info("OTP verification failed",
			zap.String("phone", phone),
			zap.Int("attempts", record.Attempts))
		e.audit.Record(events.TypeOTPRejected, phone, "incorrect")
		return ErrIncorrectCode
	}

	if err := e.records.Delete(ctx, phone); err != nil {
		return err
	}

	util.Info("OTP verified", zap.String("phone", phone))
	e.publisher.Publish(ctx, events.TypeOTPVerified, phone, nil)
	e.audit.Record(events.TypeOTPVerified, phone, "verified")

	return nil
}

// lockPhone serializes record mutations for a phone. Request and verify take
// the same lock, so a re-request cannot interleave with a verification's
// read-increment-write cycle and resurrect the record it read. The
// distributed lock extends the exclusion across instances, best effort: when
// it cannot be acquired the local lock still holds.
func (e *Engine) lockPhone(ctx context.Context, phone string) func() {
	unlock := e.locks.Lock(phone)
	if e.locker == nil {
		return unlock
	}
	release, acquired, err := e.locker.Acquire(ctx, "otp_lock:"+phone, 5*time.Second)
	if err != nil {
		util.Warn("Distributed phone lock unavailable, proceeding with local lock only",
			zap.String("phone", phone), zap.Error(err))
		return unlock
	}
	if !acquired {
		return unlock
	}
	return func() {
		release()
		unlock()
	}
}

// StartSweeper reclaims expired durable records on an interval until the
// context is canceled. Expiry-at-read already keeps correctness; the sweep
// only bounds storage growth.
func (e *Engine) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deleted, err := e.records.DeleteExpired(ctx, e.now().UTC())
				if err != nil {
					util.Error("Expired OTP sweep failed", zap.Error(err))
					continue
				}
				if deleted > 0 {
					util.Debug("Expired OTP sweep completed", zap.Int("deleted", deleted))
				}
			}
		}
	}()
}

// generateCode draws uniformly from [1000, 9999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()+1000), nil
}
