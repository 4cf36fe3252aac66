package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"hfl-auth/internal/model"
	"hfl-auth/internal/otp"
	"hfl-auth/internal/ratelimit"
	"hfl-auth/internal/session"
	"hfl-auth/internal/util"
)

// AuthHandler exposes the OTP login flow over HTTP.
type AuthHandler struct {
	engine       *otp.Engine
	players      model.PlayerGateway
	sessions     *session.Service
	limiter      *ratelimit.Limiter
	isProduction bool
	logger       *zap.Logger
}

func NewAuthHandler(engine *otp.Engine, players model.PlayerGateway, sessions *session.Service, limiter *ratelimit.Limiter, isProduction bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		engine:       engine,
		players:      players,
		sessions:     sessions,
		limiter:      limiter,
		isProduction: isProduction,
		logger:       logger,
	}
}

type requestOTPRequest struct {
	Phone string `json:"phone"`
}

type verifyOTPRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

type requestOTPResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Phone     string `json:"phone"`
	ExpiresIn int    `json:"expiresIn"`
}

type verifyOTPResponse struct {
	Success bool           `json:"success"`
	Player  *model.Player  `json:"player,omitempty"`
	Session *model.Session `json:"session,omitempty"`
}

type rejectionResponse struct {
	Success          bool   `json:"success"`
	Reason           string `json:"reason"`
	NeedsApplication bool   `json:"needsApplication,omitempty"`
}

type failureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (h *AuthHandler) RegisterRoutes(router chi.Router) {
	router.Post("/request-otp", h.RequestOTP)
	router.Post("/verify-otp", h.VerifyOTP)
}

// RequestOTP issues and delivers a verification code for the submitted phone.
func (h *AuthHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	if !h.limiter.Allow(ctx, r.RemoteAddr) {
		h.respondWithJSON(w, http.StatusTooManyRequests, rejectionResponse{
			Reason: "too many requests, try again later",
		})
		return
	}

	var req requestOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithJSON(w, http.StatusBadRequest, rejectionResponse{
			Reason: "invalid request body",
		})
		return
	}

	phone, err := util.NormalizePhone(req.Phone)
	if err != nil {
		h.respondWithJSON(w, http.StatusBadRequest, rejectionResponse{
			Reason: "phone number must be an Uzbek number: 998 followed by 9 digits",
		})
		return
	}

	expiresIn, err := h.engine.RequestOTP(ctx, phone)
	if err != nil {
		h.logger.Error("OTP request failed",
			util.String("phone", phone),
			util.ErrorField(err))
		h.respondWithJSON(w, http.StatusInternalServerError, h.failure("failed to send verification code", err))
		return
	}

	h.respondWithJSON(w, http.StatusOK, requestOTPResponse{
		Success:   true,
		Message:   "verification code sent",
		Phone:     phone,
		ExpiresIn: expiresIn,
	})
	h.logger.Info("OTP requested via HTTP",
		util.String("phone", phone),
		util.Duration("duration", time.Since(startTime)))
}

// VerifyOTP checks a submitted code and, on success, resolves the player and
// opens a session.
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	if !h.limiter.Allow(ctx, r.RemoteAddr) {
		h.respondWithJSON(w, http.StatusTooManyRequests, rejectionResponse{
			Reason: "too many requests, try again later",
		})
		return
	}

	var req verifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithJSON(w, http.StatusBadRequest, rejectionResponse{
			Reason: "invalid request body",
		})
		return
	}

	phone, err := util.NormalizePhone(req.Phone)
	if err != nil {
		h.respondWithJSON(w, http.StatusBadRequest, rejectionResponse{
			Reason: "phone number must be an Uzbek number: 998 followed by 9 digits",
		})
		return
	}

	if !util.IsOTPCode(req.Code) {
		h.respondWithJSON(w, http.StatusBadRequest, rejectionResponse{
			Reason: "code must be exactly 4 digits",
		})
		return
	}

	if err := h.engine.VerifyOTP(ctx, phone, req.Code); err != nil {
		if isRejection(err) {
			// The engine's reason goes out verbatim so clients can tell
			// expired from exhausted from incorrect.
			h.respondWithJSON(w, http.StatusBadRequest, rejectionResponse{Reason: err.Error()})
			return
		}
		h.logger.Error("OTP verification failed with internal error",
			util.String("phone", phone),
			util.ErrorField(err))
		h.respondWithJSON(w, http.StatusInternalServerError, h.failure("verification temporarily unavailable", err))
		return
	}

	resolution, err := h.players.Resolve(ctx, phone)
	if err != nil {
		h.logger.Error("Player resolution failed",
			util.String("phone", phone),
			util.ErrorField(err))
		h.respondWithJSON(w, http.StatusInternalServerError, h.failure("login temporarily unavailable", err))
		return
	}

	switch {
	case resolution.Active():
		sess, err := h.sessions.Issue(ctx, resolution.Player)
		if err != nil {
			h.logger.Error("Session issuance failed",
				util.String("player_id", resolution.Player.ID),
				util.ErrorField(err))
			h.respondWithJSON(w, http.StatusInternalServerError, h.failure("login temporarily unavailable", err))
			return
		}
		h.respondWithJSON(w, http.StatusOK, verifyOTPResponse{
			Success: true,
			Player:  resolution.Player,
			Session: sess,
		})
		h.logger.Info("Player logged in via HTTP",
			util.String("player_id", resolution.Player.ID),
			util.Duration("duration", time.Since(startTime)))

	case resolution.Found():
		h.respondWithJSON(w, http.StatusBadRequest, rejectionResponse{
			Reason: "account is not active",
		})

	case resolution.HasPendingApplication:
		h.respondWithJSON(w, http.StatusBadRequest, rejectionResponse{
			Reason: "application is pending review",
		})

	default:
		h.respondWithJSON(w, http.StatusNotFound, rejectionResponse{
			Reason:           "no player registered for this phone",
			NeedsApplication: true,
		})
	}
}

// isRejection separates domain-level verification outcomes from faults.
func isRejection(err error) bool {
	return errors.Is(err, otp.ErrCodeNotFound) ||
		errors.Is(err, otp.ErrCodeExpired) ||
		errors.Is(err, otp.ErrTooManyAttempts) ||
		errors.Is(err, otp.ErrIncorrectCode)
}

// failure builds a 500-class body. Internals are attached only outside
// production.
func (h *AuthHandler) failure(message string, err error) failureResponse {
	resp := failureResponse{Error: message}
	if !h.isProduction && err != nil {
		resp.Details = err.Error()
	}
	return resp
}

func (h *AuthHandler) respondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", util.ErrorField(err))
	}
}
