package repository

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ticketrush/admission/internal/domain"
	pkgredis "github.com/ticketrush/admission/pkg/redis"
	"github.com/ticketrush/admission/pkg/telemetry"
)

//go:embed scripts/admit_next.lua
var admitNextScript string

//go:embed scripts/finish_session.lua
var finishSessionScript string

//go:embed scripts/extend_session.lua
var extendSessionScript string

const (
	scriptAdmitNext     = "admit_next"
	scriptFinishSession = "finish_session"
	scriptExtendSession = "extend_session"
)

// RedisSessionRepository implements SessionRepository using Redis
type RedisSessionRepository struct {
	client *pkgredis.Client
}

// NewRedisSessionRepository creates a new RedisSessionRepository
func NewRedisSessionRepository(client *pkgredis.Client) *RedisSessionRepository {
	return &RedisSessionRepository{client: client}
}

// LoadScripts loads all session Lua scripts into Redis
func (r *RedisSessionRepository) LoadScripts(ctx context.Context) error {
	scripts := map[string]string{
		scriptAdmitNext:     admitNextScript,
		scriptFinishSession: finishSessionScript,
		scriptExtendSession: extendSessionScript,
	}

	for name, script := range scripts {
		if _, err := r.client.LoadScript(ctx, name, script); err != nil {
			return fmt.Errorf("failed to load script %s: %w", name, err)
		}
	}

	return nil
}

// AdmitNext pops the head of the waiting queue into a new session
func (r *RedisSessionRepository) AdmitNext(ctx context.Context, params AdmitParams) (*AdmitResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.session.admit_next")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_id", params.EventID),
		attribute.Int("concurrency_cap", params.ConcurrencyCap),
	)

	now := time.Now()
	expiresAt := now.Add(params.SessionDuration)

	keys := []string{
		waitingKey(params.EventID),
		activeSessionsKey(params.EventID),
	}
	for _, ticketType := range params.TicketTypes {
		keys = append(keys, inventoryKey(params.EventID, ticketType))
	}

	args := []interface{}{
		params.ConcurrencyCap, // ARGV[1]: cap
		params.SessionID,      // ARGV[2]: session_id
		now.Unix(),            // ARGV[3]: now
		expiresAt.Unix(),      // ARGV[4]: expires_at
		params.EventID,        // ARGV[5]: event_id
		entryKeyPrefix,        // ARGV[6]
		sessionKeyPrefix,      // ARGV[7]
	}

	result := r.client.EvalWithFallback(ctx, scriptAdmitNext, admitNextScript, keys, args...)
	if result.Err() != nil {
		span.RecordError(result.Err())
		span.SetStatus(codes.Error, result.Err().Error())
		return nil, fmt.Errorf("failed to execute admit_next script: %w", result.Err())
	}

	values, err := result.Slice()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to parse script result: %w", err)
	}

	if len(values) < 3 {
		span.SetStatus(codes.Error, "unexpected result length")
		return nil, fmt.Errorf("unexpected script result length: %d", len(values))
	}

	success, _ := toInt64(values[0])
	if success == 1 {
		entryID, _ := values[1].(string)
		userID, _ := values[2].(string)
		span.SetAttributes(attribute.String("entry_id", entryID))
		span.SetStatus(codes.Ok, "")
		return &AdmitResult{
			Success:   true,
			EntryID:   entryID,
			UserID:    userID,
			ExpiresAt: expiresAt,
		}, nil
	}

	errorCode, _ := values[1].(string)
	detail, _ := values[2].(string)
	span.SetAttributes(attribute.String("error_code", errorCode))
	span.SetStatus(codes.Ok, "") // not admitting is a normal outcome for the scheduler

	return &AdmitResult{
		Success:      false,
		ErrorCode:    errorCode,
		ErrorMessage: detail,
	}, nil
}

// GetSession loads a session by ID
func (r *RedisSessionRepository) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.session.get")
	defer span.End()

	span.SetAttributes(attribute.String("session_id", sessionID))

	data, err := r.client.HGetAll(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if len(data) == 0 {
		span.SetStatus(codes.Error, "not found")
		return nil, domain.ErrSessionNotFound
	}

	span.SetStatus(codes.Ok, "")
	return sessionFromHash(data), nil
}

// Finish moves an active session to a terminal state
func (r *RedisSessionRepository) Finish(ctx context.Context, eventID, sessionID string, target domain.SessionStatus) (domain.SessionStatus, int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.session.finish")
	defer span.End()

	span.SetAttributes(
		attribute.String("session_id", sessionID),
		attribute.String("target_status", string(target)),
	)

	keys := []string{
		sessionKey(sessionID),
		activeSessionsKey(eventID),
		sessionReservationsKey(sessionID),
	}
	args := []interface{}{
		sessionID,                            // ARGV[1]
		string(target),                       // ARGV[2]
		time.Now().Unix(),                    // ARGV[3]
		entryKeyPrefix,                       // ARGV[4]
		string(domain.EntryStatusFor(target)), // ARGV[5]
		userIndexKeyPrefix,                   // ARGV[6]
		reservationKeyPrefix,                 // ARGV[7]
		inventoryKeyPrefix,                   // ARGV[8]
		allowanceKeyPrefix,                   // ARGV[9]
	}

	result := r.client.EvalWithFallback(ctx, scriptFinishSession, finishSessionScript, keys, args...)
	if result.Err() != nil {
		span.RecordError(result.Err())
		span.SetStatus(codes.Error, result.Err().Error())
		return "", 0, fmt.Errorf("failed to execute finish_session script: %w", result.Err())
	}

	values, err := result.Slice()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", 0, fmt.Errorf("failed to parse script result: %w", err)
	}

	if len(values) < 3 {
		span.SetStatus(codes.Error, "unexpected result length")
		return "", 0, fmt.Errorf("unexpected script result length: %d", len(values))
	}

	success, _ := toInt64(values[0])
	if success == 0 {
		span.SetStatus(codes.Error, "not found")
		return "", 0, domain.ErrSessionNotFound
	}

	finalStatus, _ := values[1].(string)
	settled, _ := toInt64(values[2])
	span.SetAttributes(
		attribute.String("final_status", finalStatus),
		attribute.Int64("settled_reservations", settled),
	)
	span.SetStatus(codes.Ok, "")
	return domain.SessionStatus(finalStatus), settled, nil
}

// Extend pushes an active session's deadline out by extendBy
func (r *RedisSessionRepository) Extend(ctx context.Context, eventID, sessionID string, extendBy time.Duration) (time.Time, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.session.extend")
	defer span.End()

	span.SetAttributes(
		attribute.String("session_id", sessionID),
		attribute.Float64("extend_seconds", extendBy.Seconds()),
	)

	keys := []string{
		sessionKey(sessionID),
		activeSessionsKey(eventID),
	}
	args := []interface{}{sessionID, int64(extendBy.Seconds())}

	result := r.client.EvalWithFallback(ctx, scriptExtendSession, extendSessionScript, keys, args...)
	if result.Err() != nil {
		span.RecordError(result.Err())
		span.SetStatus(codes.Error, result.Err().Error())
		return time.Time{}, fmt.Errorf("failed to execute extend_session script: %w", result.Err())
	}

	values, err := result.Slice()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return time.Time{}, fmt.Errorf("failed to parse script result: %w", err)
	}

	if len(values) < 3 {
		span.SetStatus(codes.Error, "unexpected result length")
		return time.Time{}, fmt.Errorf("unexpected script result length: %d", len(values))
	}

	success, _ := toInt64(values[0])
	if success == 0 {
		errorCode, _ := values[1].(string)
		span.SetStatus(codes.Error, errorCode)
		switch errorCode {
		case "NOT_FOUND":
			return time.Time{}, domain.ErrSessionNotFound
		case "SESSION_NOT_ACTIVE":
			return time.Time{}, domain.ErrSessionNotActive
		default:
			return time.Time{}, fmt.Errorf("extend_session failed: %s", errorCode)
		}
	}

	newExpiry, _ := toInt64(values[1])
	span.SetStatus(codes.Ok, "")
	return time.Unix(newExpiry, 0), nil
}

// ExpiredSessions lists active sessions whose deadline passed
func (r *RedisSessionRepository) ExpiredSessions(ctx context.Context, eventID string, now time.Time) ([]string, error) {
	ids, err := r.client.ZRangeByScore(ctx, activeSessionsKey(eventID), &goredis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list expired sessions: %w", err)
	}
	return ids, nil
}

// ActiveCount returns the number of active sessions for an event
func (r *RedisSessionRepository) ActiveCount(ctx context.Context, eventID string) (int64, error) {
	count, err := r.client.ZCard(ctx, activeSessionsKey(eventID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get active session count: %w", err)
	}
	return count, nil
}

// StoreToken attaches the signed session token to the session hash
func (r *RedisSessionRepository) StoreToken(ctx context.Context, sessionID, token string) error {
	if err := r.client.HSet(ctx, sessionKey(sessionID), "token", token).Err(); err != nil {
		return fmt.Errorf("failed to store session token: %w", err)
	}
	return nil
}

// sessionFromHash maps a Redis session hash to the domain type
func sessionFromHash(data map[string]string) *domain.Session {
	session := &domain.Session{
		ID:      data["id"],
		EntryID: data["entry_id"],
		EventID: data["event_id"],
		UserID:  data["user_id"],
		Status:  domain.SessionStatus(data["status"]),
		Token:   data["token"],
	}

	if t, ok := unixTime(data["started_at"]); ok {
		session.StartedAt = t
	}
	if t, ok := unixTime(data["expires_at"]); ok {
		session.ExpiresAt = t
	}
	if t, ok := unixTime(data["ended_at"]); ok {
		session.EndedAt = &t
	}

	return session
}

// Ensure RedisSessionRepository implements SessionRepository
var _ SessionRepository = (*RedisSessionRepository)(nil)
