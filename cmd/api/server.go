package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"signbridge/esign"
	"signbridge/metrics"
)

const maxWebhookBody = 1 << 20

// signatureService is the slice of the orchestrator the handlers need.
type signatureService interface {
	CreateAndSend(ctx context.Context, req esign.SigningRequest) (string, error)
	Cancel(ctx context.Context, designationID string) error
	HandleCompletion(ctx context.Context, packageID, documentID string) (string, error)
}

type server struct {
	logger      *zap.Logger
	signatures  signatureService
	callbackKey string
	jwtSecret   []byte
	dbPing      func(ctx context.Context) error
	legacyPing  func(ctx context.Context) error
}

func newServer(logger *zap.Logger, signatures signatureService, callbackKey, jwtSecret string, dbPing, legacyPing func(ctx context.Context) error) *server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &server{
		logger:      logger,
		signatures:  signatures,
		callbackKey: callbackKey,
		jwtSecret:   []byte(jwtSecret),
		dbPing:      dbPing,
		legacyPing:  legacyPing,
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /signature", s.requireAuth(s.handleCreateSignature))
	mux.HandleFunc("POST /signature/cancel/{designationId}", s.requireAuth(s.handleCancel))
	mux.HandleFunc("POST /api/webhook/onespan/sendsigneddoc", s.handleWebhook)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	return s.withRequestID(mux)
}

// withRequestID tags every request with an id carried in logs and the
// response header.
func (s *server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		w.Header().Set("X-Request-Id", reqID)

		start := time.Now()
		next.ServeHTTP(w, r)

		s.logger.Info("request",
			zap.String("request_id", reqID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// requireAuth validates the bearer token on caller-facing endpoints.
func (s *server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if err := s.verifyToken(token); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r)
	}
}

func (s *server) verifyToken(tokenString string) error {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return errors.New("invalid token")
	}
	return nil
}

func (s *server) handleCreateSignature(w http.ResponseWriter, r *http.Request) {
	var req esign.SigningRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	packageID, err := s.signatures.CreateAndSend(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, esign.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, esign.ErrProvider):
			writeError(w, http.StatusBadGateway, "signing provider unavailable")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"package_id": packageID})
}

func (s *server) handleCancel(w http.ResponseWriter, r *http.Request) {
	designationID := r.PathValue("designationId")
	if designationID == "" {
		writeError(w, http.StatusBadRequest, "missing designation id")
		return
	}

	if err := s.signatures.Cancel(r.Context(), designationID); err != nil {
		switch {
		case errors.Is(err, esign.ErrNoActivePackage):
			writeError(w, http.StatusNotFound, "no active package for designation")
		case errors.Is(err, esign.ErrProvider):
			writeError(w, http.StatusBadGateway, "signing provider unavailable")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "package canceled"})
}

// handleWebhook is the completion receiver. Validation order: shared secret,
// parseable payload, then the event gate. Non-qualifying events are accepted
// without side effects; other event types exist but are not processed here.
func (s *server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	provided := r.Header.Get("Authorization")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(s.callbackKey)) != 1 {
		metrics.WebhookEvents.WithLabelValues("unauthorized").Inc()
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("bad_request").Inc()
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	event, err := esign.ParseCompletionEvent(body)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("bad_request").Inc()
		writeError(w, http.StatusBadRequest, "empty or malformed payload")
		return
	}

	if !event.Qualifies() {
		metrics.WebhookEvents.WithLabelValues("noop").Inc()
		s.logger.Info("webhook event ignored",
			zap.String("event", event.Name),
			zap.String("package_id", event.PackageID),
			zap.String("document_id", event.DocumentID),
		)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	path, err := s.signatures.HandleCompletion(r.Context(), event.PackageID, event.DocumentID)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("error").Inc()
		s.logger.Error("completion handling failed",
			zap.String("package_id", event.PackageID),
			zap.String("document_id", event.DocumentID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	metrics.WebhookEvents.WithLabelValues("processed").Inc()
	s.logger.Info("signed document stored",
		zap.String("package_id", event.PackageID),
		zap.String("stored_path", path),
	)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := map[string]string{"database": "ok", "legacy_gateway": "ok"}
	healthy := true

	if s.dbPing != nil {
		if err := s.dbPing(ctx); err != nil {
			status["database"] = "unreachable"
			healthy = false
		}
	}
	if s.legacyPing != nil {
		if err := s.legacyPing(ctx); err != nil {
			status["legacy_gateway"] = "unreachable"
			healthy = false
		}
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}
