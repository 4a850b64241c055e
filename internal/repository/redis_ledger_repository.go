package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ticketrush/admission/internal/domain"
	pkgredis "github.com/ticketrush/admission/pkg/redis"
	"github.com/ticketrush/admission/pkg/telemetry"
)

//go:embed scripts/enqueue_entry.lua
var enqueueEntryScript string

//go:embed scripts/cancel_waiting.lua
var cancelWaitingScript string

// Script names for caching
const (
	scriptEnqueueEntry  = "enqueue_entry"
	scriptCancelWaiting = "cancel_waiting"
)

// RedisLedgerRepository implements LedgerRepository using Redis
type RedisLedgerRepository struct {
	client *pkgredis.Client
}

// NewRedisLedgerRepository creates a new RedisLedgerRepository
func NewRedisLedgerRepository(client *pkgredis.Client) *RedisLedgerRepository {
	return &RedisLedgerRepository{client: client}
}

// LoadScripts loads all ledger Lua scripts into Redis
func (r *RedisLedgerRepository) LoadScripts(ctx context.Context) error {
	scripts := map[string]string{
		scriptEnqueueEntry:  enqueueEntryScript,
		scriptCancelWaiting: cancelWaitingScript,
	}

	for name, script := range scripts {
		if _, err := r.client.LoadScript(ctx, name, script); err != nil {
			return fmt.Errorf("failed to load script %s: %w", name, err)
		}
	}

	return nil
}

// Enqueue atomically registers a waiting entry with a monotonic position
func (r *RedisLedgerRepository) Enqueue(ctx context.Context, params EnqueueParams) (*EnqueueResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.ledger.enqueue")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_id", params.EventID),
		attribute.String("user_id", params.UserID),
	)

	keys := []string{
		userIndexKey(params.EventID, params.UserID),
		positionCounterKey(params.EventID),
		waitingKey(params.EventID),
		entryKey(params.EntryID),
		queueEventsKey,
	}
	args := []interface{}{
		params.EntryID,           // ARGV[1]: entry_id
		params.EventID,           // ARGV[2]: event_id
		params.UserID,            // ARGV[3]: user_id
		time.Now().Unix(),        // ARGV[4]: entered_at
	}

	result := r.client.EvalWithFallback(ctx, scriptEnqueueEntry, enqueueEntryScript, keys, args...)
	if result.Err() != nil {
		span.RecordError(result.Err())
		span.SetStatus(codes.Error, result.Err().Error())
		return nil, fmt.Errorf("failed to execute enqueue_entry script: %w", result.Err())
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
		position, _ := toInt64(values[1])
		waiting, _ := toInt64(values[2])
		span.SetAttributes(
			attribute.Int64("position", position),
			attribute.Int64("waiting_count", waiting),
		)
		span.SetStatus(codes.Ok, "")
		return &EnqueueResult{
			Success:      true,
			Position:     position,
			WaitingCount: waiting,
		}, nil
	}

	errorCode, _ := values[1].(string)
	detail, _ := values[2].(string)
	span.SetAttributes(attribute.String("error_code", errorCode))
	span.SetStatus(codes.Error, errorCode)

	res := &EnqueueResult{
		Success:      false,
		ErrorCode:    errorCode,
		ErrorMessage: detail,
	}
	if errorCode == "ALREADY_QUEUED" {
		// detail carries the existing entry id
		res.ExistingEntryID = detail
	}
	return res, nil
}

// GetEntry loads a queue entry by ID
func (r *RedisLedgerRepository) GetEntry(ctx context.Context, entryID string) (*domain.QueueEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.ledger.get_entry")
	defer span.End()

	span.SetAttributes(attribute.String("entry_id", entryID))

	data, err := r.client.HGetAll(ctx, entryKey(entryID)).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}

	if len(data) == 0 {
		span.SetStatus(codes.Error, "not found")
		return nil, domain.ErrEntryNotFound
	}

	span.SetStatus(codes.Ok, "")
	return entryFromHash(data), nil
}

// ListWaiting returns the head of the waiting queue in FIFO order
func (r *RedisLedgerRepository) ListWaiting(ctx context.Context, eventID string, limit int64) ([]*domain.QueueEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.ledger.list_waiting")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.Int64("limit", limit),
	)

	if limit <= 0 {
		limit = 100
	}

	members, err := r.client.ZRangeWithScores(ctx, waitingKey(eventID), 0, limit-1).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to range waiting queue: %w", err)
	}

	entries := make([]*domain.QueueEntry, 0, len(members))
	for _, member := range members {
		entryID, ok := member.Member.(string)
		if !ok {
			continue
		}
		data, err := r.client.HGetAll(ctx, entryKey(entryID)).Result()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to get entry %s: %w", entryID, err)
		}
		// The entry can be admitted between the range and the hash read
		if len(data) == 0 {
			continue
		}
		entries = append(entries, entryFromHash(data))
	}

	span.SetAttributes(attribute.Int("entries", len(entries)))
	span.SetStatus(codes.Ok, "")
	return entries, nil
}

// GetRank returns the entry's 1-based rank among waiting entries
func (r *RedisLedgerRepository) GetRank(ctx context.Context, eventID, entryID string) (*RankResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.ledger.get_rank")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.String("entry_id", entryID),
	)

	key := waitingKey(eventID)

	rank, err := r.client.ZRank(ctx, key, entryID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			span.SetStatus(codes.Ok, "not waiting")
			return &RankResult{IsWaiting: false}, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get entry rank: %w", err)
	}

	total, err := r.client.ZCard(ctx, key).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get waiting count: %w", err)
	}

	span.SetAttributes(
		attribute.Int64("rank", rank+1),
		attribute.Int64("waiting_count", total),
	)
	span.SetStatus(codes.Ok, "")
	return &RankResult{
		Rank:         rank + 1, // ZRank is 0-indexed
		WaitingCount: total,
		IsWaiting:    true,
	}, nil
}

// CancelWaiting cancels an entry that is still waiting
func (r *RedisLedgerRepository) CancelWaiting(ctx context.Context, eventID, userID, entryID string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.ledger.cancel_waiting")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.String("entry_id", entryID),
	)

	keys := []string{
		entryKey(entryID),
		waitingKey(eventID),
		userIndexKey(eventID, userID),
	}
	args := []interface{}{entryID, time.Now().Unix()}

	result := r.client.EvalWithFallback(ctx, scriptCancelWaiting, cancelWaitingScript, keys, args...)
	if result.Err() != nil {
		span.RecordError(result.Err())
		span.SetStatus(codes.Error, result.Err().Error())
		return fmt.Errorf("failed to execute cancel_waiting script: %w", result.Err())
	}

	values, err := result.Slice()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to parse script result: %w", err)
	}

	if len(values) < 3 {
		span.SetStatus(codes.Error, "unexpected result length")
		return fmt.Errorf("unexpected script result length: %d", len(values))
	}

	success, _ := toInt64(values[0])
	if success == 1 {
		span.SetStatus(codes.Ok, "")
		return nil
	}

	errorCode, _ := values[1].(string)
	span.SetAttributes(attribute.String("error_code", errorCode))
	span.SetStatus(codes.Error, errorCode)

	switch errorCode {
	case "NOT_FOUND":
		return domain.ErrEntryNotFound
	case "NOT_WAITING":
		return domain.ErrEntryNotActive
	default:
		return fmt.Errorf("cancel_waiting failed: %s", errorCode)
	}
}

// WaitingCount returns the number of waiting entries for an event
func (r *RedisLedgerRepository) WaitingCount(ctx context.Context, eventID string) (int64, error) {
	count, err := r.client.ZCard(ctx, waitingKey(eventID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get waiting count: %w", err)
	}
	return count, nil
}

// ListQueueEventIDs returns all events that have seen queue activity
func (r *RedisLedgerRepository) ListQueueEventIDs(ctx context.Context) ([]string, error) {
	ids, err := r.client.SMembers(ctx, queueEventsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list queue events: %w", err)
	}
	return ids, nil
}

// entryFromHash maps a Redis entry hash to the domain type
func entryFromHash(data map[string]string) *domain.QueueEntry {
	entry := &domain.QueueEntry{
		ID:        data["id"],
		EventID:   data["event_id"],
		UserID:    data["user_id"],
		Status:    domain.EntryStatus(data["status"]),
		SessionID: data["session_id"],
	}

	if v, err := strconv.ParseInt(data["position"], 10, 64); err == nil {
		entry.Position = v
	}
	if t, ok := unixTime(data["entered_at"]); ok {
		entry.EnteredAt = t
	}
	if t, ok := unixTime(data["activated_at"]); ok {
		entry.ActivatedAt = &t
	}
	if t, ok := unixTime(data["completed_at"]); ok {
		entry.CompletedAt = &t
	}

	return entry
}

// toInt64 converts a Lua script result value to int64
func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// unixTime parses a unix-seconds string into a time.Time
func unixTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(v, 0), true
}

// Ensure RedisLedgerRepository implements LedgerRepository
var _ LedgerRepository = (*RedisLedgerRepository)(nil)
