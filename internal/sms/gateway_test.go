package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hfl-auth/internal/config"
)

func testGateway(t *testing.T, baseURL string) *Gateway {
	t.Helper()
	cfg := &config.Config{
		SMS: config.SMSConfig{
			BaseURL:   baseURL,
			AccountID: "league@example.com",
			Secret:    "secret",
			Sender:    "HFL",
			Timeout:   2 * time.Second,
		},
	}
	gw, err := NewGateway(cfg)
	require.NoError(t, err)
	return gw
}

func TestGatewayRequiresCredentials(t *testing.T) {
	cfg := &config.Config{SMS: config.SMSConfig{BaseURL: "http://localhost"}}
	_, err := NewGateway(cfg)
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestGatewaySendsAfterAuth(t *testing.T) {
	var authCalls, sendCalls int
	var gotAuth string
	var gotBody map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			authCalls++
			json.NewEncoder(w).Encode(map[string]any{
				"message": "token_generated",
				"data":    map[string]string{"token": "tok-123"},
			})
		case "/message/sms/send":
			sendCalls++
			gotAuth = r.Header.Get("Authorization")
			json.NewDecoder(r.Body).Decode(&gotBody)
			json.NewEncoder(w).Encode(map[string]any{"id": 4103, "status": "waiting"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	gw := testGateway(t, server.URL)

	result, err := gw.SendOTP(context.Background(), "+998901234567", "4821")
	require.NoError(t, err)
	assert.True(t, result.Delivered)
	assert.Equal(t, "4103", result.MessageID)

	assert.Equal(t, 1, authCalls)
	assert.Equal(t, 1, sendCalls)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "+998901234567", gotBody["mobile_phone"])
	assert.Contains(t, gotBody["message"], "4821")
	assert.Equal(t, "HFL", gotBody["from"])
}

func TestGatewayAuthenticatesEverySend(t *testing.T) {
	var authCalls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			authCalls++
			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]string{"token": "tok-123"},
			})
		case "/message/sms/send":
			json.NewEncoder(w).Encode(map[string]any{"id": 1, "status": "waiting"})
		}
	}))
	defer server.Close()

	gw := testGateway(t, server.URL)

	_, err := gw.SendOTP(context.Background(), "+998901234567", "1111")
	require.NoError(t, err)
	_, err = gw.SendOTP(context.Background(), "+998901234567", "2222")
	require.NoError(t, err)

	assert.Equal(t, 2, authCalls)
}

func TestGatewayAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	gw := testGateway(t, server.URL)

	result, err := gw.SendOTP(context.Background(), "+998901234567", "1234")
	assert.ErrorIs(t, err, ErrAuthFailed)
	assert.False(t, result.Delivered)
}

func TestGatewayAuthWithoutToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"message": "invalid credentials"})
	}))
	defer server.Close()

	gw := testGateway(t, server.URL)

	_, err := gw.SendOTP(context.Background(), "+998901234567", "1234")
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestGatewaySendFailureIsSanitized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]string{"token": "secret-token"},
			})
		default:
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"balance too low, account secret-token"}`))
		}
	}))
	defer server.Close()

	gw := testGateway(t, server.URL)

	result, err := gw.SendOTP(context.Background(), "+998901234567", "1234")
	assert.ErrorIs(t, err, ErrSendFailed)
	assert.False(t, result.Delivered)
	assert.NotContains(t, err.Error(), "secret-token")
	assert.NotContains(t, err.Error(), "balance")
}

func TestGatewayTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	cfg := &config.Config{
		SMS: config.SMSConfig{
			BaseURL:   server.URL,
			AccountID: "league@example.com",
			Secret:    "secret",
			Sender:    "HFL",
			Timeout:   20 * time.Millisecond,
		},
	}
	gw, err := NewGateway(cfg)
	require.NoError(t, err)

	_, err = gw.SendOTP(context.Background(), "+998901234567", "1234")
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestDevSenderAlwaysDelivers(t *testing.T) {
	sender := NewDevSender()
	result, err := sender.SendOTP(context.Background(), "+998901234567", "9999")
	require.NoError(t, err)
	assert.True(t, result.Delivered)
	assert.False(t, strings.Contains(result.MessageID, "9999"))
}
