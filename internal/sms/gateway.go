package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"hfl-auth/internal/config"
	"hfl-auth/internal/util"
)

// Sender dispatches a verification code to a phone number. Delivery failure
// never reveals provider internals to the caller.
type Sender interface {
	SendOTP(ctx context.Context, phone, code string) (*Result, error)
}

// Result reports the provider outcome for one dispatch.
type Result struct {
	Delivered bool
	MessageID string
}

var (
	ErrMissingCredentials = errors.New("sms credentials not configured")
	ErrAuthFailed         = errors.New("sms provider authentication failed")
	ErrSendFailed         = errors.New("sms delivery failed")
)

// Gateway talks to the provider's HTTP API. Every send is two steps: obtain a
// bearer token, then dispatch the message with it. The token lives only for
// the duration of one send and is never logged.
type Gateway struct {
	config     *config.SMSConfig
	httpClient *http.Client
}

func NewGateway(cfg *config.Config) (*Gateway, error) {
	smsConfig := cfg.SMS

	if smsConfig.AccountID == "" || smsConfig.Secret == "" {
		return nil, ErrMissingCredentials
	}

	return &Gateway{
		config: &smsConfig,
		httpClient: &http.Client{
			Timeout: smsConfig.Timeout,
		},
	}, nil
}

type authResponse struct {
	Message string `json:"message"`
	Data    struct {
		Token string `json:"token"`
	} `json:"data"`
}

type sendResponse struct {
	ID     json.Number `json:"id"`
	Status string      `json:"status"`
}

// SendOTP dispatches the verification code. The returned error is sanitized:
// it carries the failure class but never the bearer token or the raw provider
// payload.
func (g *Gateway) SendOTP(ctx context.Context, phone, code string) (*Result, error) {
	token, err := g.authenticate(ctx)
	if err != nil {
		return &Result{Delivered: false}, err
	}

	message := fmt.Sprintf("HFL: sizning tasdiqlash kodingiz %s. Uni hech kimga bermang.", code)

	payload, err := json.Marshal(map[string]string{
		"mobile_phone": phone,
		"message":      message,
		"from":         g.config.Sender,
	})
	if err != nil {
		return &Result{Delivered: false}, fmt.Errorf("failed to encode sms payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.config.BaseURL+"/message/sms/send", bytes.NewReader(payload))
	if err != nil {
		return &Result{Delivered: false}, fmt.Errorf("failed to build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := g.httpClient.Do(req)
	if err != nil {
		util.Error("SMS send request failed", zap.String("phone", phone), zap.Error(err))
		return &Result{Delivered: false}, ErrSendFailed
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
	default:
		util.Error("SMS provider returned non-success status",
			zap.String("phone", phone),
			zap.Int("status", res.StatusCode))
		return &Result{Delivered: false}, ErrSendFailed
	}

	var sendRes sendResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<16)).Decode(&sendRes); err != nil {
		// Provider accepted the message but returned an unparseable body.
		util.Warn("SMS provider response could not be decoded", zap.Error(err))
		return &Result{Delivered: true}, nil
	}

	util.Info("OTP SMS dispatched",
		zap.String("phone", phone),
		zap.String("message_id", sendRes.ID.String()))

	return &Result{Delivered: true, MessageID: sendRes.ID.String()}, nil
}

func (g *Gateway) authenticate(ctx context.Context) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"email":    g.config.AccountID,
		"password": g.config.Secret,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode auth payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.config.BaseURL+"/auth/login", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := g.httpClient.Do(req)
	if err != nil {
		util.Error("SMS provider auth request failed", zap.Error(err))
		return "", ErrAuthFailed
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		util.Error("SMS provider auth rejected", zap.Int("status", res.StatusCode))
		return "", ErrAuthFailed
	}

	var authRes authResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<16)).Decode(&authRes); err != nil {
		util.Error("SMS provider auth response could not be decoded", zap.Error(err))
		return "", ErrAuthFailed
	}
	if authRes.Data.Token == "" {
		util.Error("SMS provider auth response missing token")
		return "", ErrAuthFailed
	}

	return authRes.Data.Token, nil
}
