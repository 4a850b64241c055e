package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ticketrush/admission/internal/domain"
	"github.com/ticketrush/admission/internal/dto"
	"github.com/ticketrush/admission/internal/metrics"
	"github.com/ticketrush/admission/internal/repository"
	"github.com/ticketrush/admission/pkg/telemetry"
)

// SessionService manages purchase session lifecycle
type SessionService interface {
	// TryAdmit attempts to open one purchase session for the event's queue
	// head. A refusal (cap full, sold out, empty queue) is not an error.
	TryAdmit(ctx context.Context, event *domain.Event, ticketTypes []string) (*repository.AdmitResult, error)

	// ExpireSession moves a session past its deadline to expired
	ExpireSession(ctx context.Context, eventID, sessionID string) error

	// ExtendSession pushes an active session's deadline out (admin operation)
	ExtendSession(ctx context.Context, sessionID string, req *dto.ExtendSessionRequest) (*dto.SessionResultResponse, error)

	// ValidateSessionToken verifies a signed session token and loads the
	// live session behind it
	ValidateSessionToken(ctx context.Context, token string) (*domain.Session, error)

	// GetSession loads a session by ID
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
}

// sessionService implements SessionService
type sessionService struct {
	sessions  repository.SessionRepository
	publisher EventPublisher
	jwtSecret string
	issuer    string
}

// SessionServiceConfig contains configuration for the session service
type SessionServiceConfig struct {
	JWTSecret string
	Issuer    string
}

// NewSessionService creates a new session service
func NewSessionService(
	sessions repository.SessionRepository,
	publisher EventPublisher,
	cfg *SessionServiceConfig,
) SessionService {
	if cfg == nil || cfg.JWTSecret == "" {
		panic("SessionServiceConfig.JWTSecret is required")
	}

	issuer := cfg.Issuer
	if issuer == "" {
		issuer = "admission-service"
	}

	return &sessionService{
		sessions:  sessions,
		publisher: publisher,
		jwtSecret: cfg.JWTSecret,
		issuer:    issuer,
	}
}

// TryAdmit attempts to open one purchase session for the event's queue head
func (s *sessionService) TryAdmit(ctx context.Context, event *domain.Event, ticketTypes []string) (*repository.AdmitResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.session.try_admit")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", event.ID))

	sessionID := uuid.New().String()
	result, err := s.sessions.AdmitNext(ctx, repository.AdmitParams{
		EventID:         event.ID,
		SessionID:       sessionID,
		ConcurrencyCap:  event.GetConcurrencyCap(),
		SessionDuration: event.GetSessionDuration(),
		TicketTypes:     ticketTypes,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if !result.Success {
		span.SetAttributes(attribute.String("refusal", result.ErrorCode))
		span.SetStatus(codes.Ok, "")
		return result, nil
	}

	token, err := s.signSessionToken(sessionID, result.UserID, event.ID, result.ExpiresAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if err := s.sessions.StoreToken(ctx, sessionID, token); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	metrics.RecordAdmission(event.ID)

	if pubErr := s.publisher.Publish(ctx, &domain.AdmissionEvent{
		Type:      domain.AdmissionEventSessionStarted,
		EventID:   event.ID,
		UserID:    result.UserID,
		EntryID:   result.EntryID,
		SessionID: sessionID,
	}); pubErr != nil {
		span.RecordError(pubErr)
	}

	span.SetAttributes(attribute.String("session_id", sessionID))
	span.SetStatus(codes.Ok, "")
	return result, nil
}

// ExpireSession moves a session past its deadline to expired
func (s *sessionService) ExpireSession(ctx context.Context, eventID, sessionID string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.session.expire")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.String("session_id", sessionID),
	)

	status, _, err := s.sessions.Finish(ctx, eventID, sessionID, domain.SessionStatusExpired)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	// The session may have finished some other way between the sweep's
	// read and this call; only count actual expirations
	if status == domain.SessionStatusExpired {
		metrics.RecordSessionOutcome(eventID, string(status))
		if pubErr := s.publisher.Publish(ctx, &domain.AdmissionEvent{
			Type:      domain.AdmissionEventSessionExpired,
			EventID:   eventID,
			SessionID: sessionID,
		}); pubErr != nil {
			span.RecordError(pubErr)
		}
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// ExtendSession pushes an active session's deadline out
func (s *sessionService) ExtendSession(ctx context.Context, sessionID string, req *dto.ExtendSessionRequest) (*dto.SessionResultResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.session.extend")
	defer span.End()

	if sessionID == "" {
		span.SetStatus(codes.Error, "invalid session_id")
		return nil, domain.ErrInvalidSessionID
	}
	if req == nil || req.ExtendSeconds <= 0 {
		span.SetStatus(codes.Error, "invalid extension")
		return nil, domain.ErrInvalidSessionID
	}

	span.SetAttributes(
		attribute.String("session_id", sessionID),
		attribute.Int("extend_seconds", req.ExtendSeconds),
	)

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	newExpiry, err := s.sessions.Extend(ctx, session.EventID, sessionID, time.Duration(req.ExtendSeconds)*time.Second)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return &dto.SessionResultResponse{
		SessionID: sessionID,
		Status:    string(domain.SessionStatusActive),
		Message:   fmt.Sprintf("Session extended until %s", newExpiry.UTC().Format(time.RFC3339)),
	}, nil
}

// SessionClaims represents the claims carried by a session token
type SessionClaims struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	EventID   string `json:"event_id"`
	Purpose   string `json:"purpose"`
	jwt.RegisteredClaims
}

// signSessionToken creates a signed JWT bound to one purchase session
func (s *sessionService) signSessionToken(sessionID, userID, eventID string, expiresAt time.Time) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		SessionID: sessionID,
		UserID:    userID,
		EventID:   eventID,
		Purpose:   "purchase_session",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Subject:   userID,
			ID:        randomTokenID(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// ValidateSessionToken verifies a signed session token and loads the
// live session behind it
func (s *sessionService) ValidateSessionToken(ctx context.Context, tokenString string) (*domain.Session, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.session.validate_token")
	defer span.End()

	if tokenString == "" {
		span.SetStatus(codes.Error, "token required")
		return nil, domain.ErrInvalidSessionToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid session token")
		return nil, domain.ErrInvalidSessionToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.Purpose != "purchase_session" {
		span.SetStatus(codes.Error, "invalid session token claims")
		return nil, domain.ErrInvalidSessionToken
	}

	span.SetAttributes(attribute.String("session_id", claims.SessionID))

	// The token is necessary but not sufficient: the session must still
	// be live in the ledger
	session, err := s.sessions.GetSession(ctx, claims.SessionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if session.UserID != claims.UserID || session.EventID != claims.EventID {
		span.SetStatus(codes.Error, "session token mismatch")
		return nil, domain.ErrInvalidSessionToken
	}

	if session.Status != domain.SessionStatusActive {
		span.SetStatus(codes.Error, "session not active")
		return nil, domain.ErrSessionNotActive
	}
	if !session.IsActive() {
		span.SetStatus(codes.Error, "session expired")
		return nil, domain.ErrSessionExpired
	}

	span.SetStatus(codes.Ok, "")
	return session, nil
}

// GetSession loads a session by ID
func (s *sessionService) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	return s.sessions.GetSession(ctx, sessionID)
}

// randomTokenID generates a random JWT ID
func randomTokenID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(bytes)
}
