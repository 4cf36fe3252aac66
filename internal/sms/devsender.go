package sms

import (
	"context"

	"go.uber.org/zap"

	"hfl-auth/internal/util"
)

// DevSender is the development stand-in for the provider. It reports every
// dispatch as delivered without making a network call. It does not log the
// code; code visibility in development is handled separately.
type DevSender struct{}

func NewDevSender() *DevSender {
	return &DevSender{}
}

func (s *DevSender) SendOTP(ctx context.Context, phone, code string) (*Result, error) {
	util.Info("Dev SMS sender: skipping provider dispatch", zap.String("phone", phone))
	return &Result{Delivered: true, MessageID: "dev"}, nil
}
