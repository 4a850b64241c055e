package repository

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ticketrush/admission/internal/domain"
	pkgredis "github.com/ticketrush/admission/pkg/redis"
	"github.com/ticketrush/admission/pkg/telemetry"
)

//go:embed scripts/reserve_tickets.lua
var reserveTicketsScript string

const scriptReserveTickets = "reserve_tickets"

// RedisInventoryRepository implements InventoryRepository using Redis
type RedisInventoryRepository struct {
	client *pkgredis.Client
}

// NewRedisInventoryRepository creates a new RedisInventoryRepository
func NewRedisInventoryRepository(client *pkgredis.Client) *RedisInventoryRepository {
	return &RedisInventoryRepository{client: client}
}

// LoadScripts loads all inventory Lua scripts into Redis
func (r *RedisInventoryRepository) LoadScripts(ctx context.Context) error {
	if _, err := r.client.LoadScript(ctx, scriptReserveTickets, reserveTicketsScript); err != nil {
		return fmt.Errorf("failed to load script %s: %w", scriptReserveTickets, err)
	}
	return nil
}

// Reserve atomically holds tickets for an active session
func (r *RedisInventoryRepository) Reserve(ctx context.Context, params ReserveParams) (*ReserveResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.inventory.reserve")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_id", params.EventID),
		attribute.String("ticket_type", params.TicketType),
		attribute.Int("quantity", params.Quantity),
	)

	keys := []string{
		sessionKey(params.SessionID),
		inventoryKey(params.EventID, params.TicketType),
		allowanceKey(params.EventID, params.TicketType, params.UserID),
		reservationKey(params.ReservationID),
		sessionReservationsKey(params.SessionID),
	}
	args := []interface{}{
		params.ReservationID, // ARGV[1]
		params.SessionID,     // ARGV[2]
		params.EventID,       // ARGV[3]
		params.UserID,        // ARGV[4]
		params.TicketType,    // ARGV[5]
		params.Quantity,      // ARGV[6]
		time.Now().Unix(),    // ARGV[7]
	}

	result := r.client.EvalWithFallback(ctx, scriptReserveTickets, reserveTicketsScript, keys, args...)
	if result.Err() != nil {
		span.RecordError(result.Err())
		span.SetStatus(codes.Error, result.Err().Error())
		return nil, fmt.Errorf("failed to execute reserve_tickets script: %w", result.Err())
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
		reservationID, _ := values[1].(string)
		remaining, _ := toInt64(values[2])
		span.SetAttributes(attribute.String("reservation_id", reservationID))
		span.SetStatus(codes.Ok, "")
		return &ReserveResult{
			Success:            true,
			ReservationID:      reservationID,
			RemainingAllowance: remaining,
		}, nil
	}

	errorCode, _ := values[1].(string)
	detail, _ := values[2].(string)
	span.SetAttributes(attribute.String("error_code", errorCode))
	span.SetStatus(codes.Error, errorCode)

	return &ReserveResult{
		Success:      false,
		ErrorCode:    errorCode,
		ErrorMessage: detail,
	}, nil
}

// GetAvailability returns the counters for one ticket type
func (r *RedisInventoryRepository) GetAvailability(ctx context.Context, eventID, ticketType string) (*domain.TicketAvailability, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.inventory.get_availability")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.String("ticket_type", ticketType),
	)

	data, err := r.client.HGetAll(ctx, inventoryKey(eventID, ticketType)).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get inventory: %w", err)
	}

	if len(data) == 0 {
		span.SetStatus(codes.Error, "not found")
		return nil, domain.ErrInventoryNotFound
	}

	availability := &domain.TicketAvailability{
		EventID:    eventID,
		TicketType: ticketType,
	}
	if v, err := strconv.ParseInt(data["total"], 10, 64); err == nil {
		availability.Total = v
	}
	if v, err := strconv.ParseInt(data["reserved"], 10, 64); err == nil {
		availability.Reserved = v
	}
	if v, err := strconv.ParseInt(data["sold"], 10, 64); err == nil {
		availability.Sold = v
	}
	if v, err := strconv.ParseInt(data["max_per_user"], 10, 64); err == nil {
		availability.MaxPerUser = v
	}

	span.SetStatus(codes.Ok, "")
	return availability, nil
}

// GetAllowance returns how many tickets the user holds (reserved + sold)
func (r *RedisInventoryRepository) GetAllowance(ctx context.Context, eventID, ticketType, userID string) (int64, error) {
	data, err := r.client.HGetAll(ctx, allowanceKey(eventID, ticketType, userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get allowance: %w", err)
	}

	var held int64
	if v, err := strconv.ParseInt(data["reserved"], 10, 64); err == nil {
		held += v
	}
	if v, err := strconv.ParseInt(data["sold"], 10, 64); err == nil {
		held += v
	}
	return held, nil
}

// GetReservation loads a reservation by ID
func (r *RedisInventoryRepository) GetReservation(ctx context.Context, reservationID string) (*domain.Reservation, error) {
	data, err := r.client.HGetAll(ctx, reservationKey(reservationID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}

	if len(data) == 0 {
		return nil, domain.ErrReservationNotFound
	}

	return reservationFromHash(data), nil
}

// SessionReservations lists reservations held by a session
func (r *RedisInventoryRepository) SessionReservations(ctx context.Context, sessionID string) ([]*domain.Reservation, error) {
	ids, err := r.client.SMembers(ctx, sessionReservationsKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list session reservations: %w", err)
	}

	reservations := make([]*domain.Reservation, 0, len(ids))
	for _, id := range ids {
		reservation, err := r.GetReservation(ctx, id)
		if err != nil {
			if err == domain.ErrReservationNotFound {
				continue
			}
			return nil, err
		}
		reservations = append(reservations, reservation)
	}
	return reservations, nil
}

// InitInventory writes the counters for a ticket type. Total and the
// per-user cap always win; reserved and sold are only seeded when the
// hash is new so a re-sync never erases live holds.
func (r *RedisInventoryRepository) InitInventory(ctx context.Context, eventID, ticketType string, total, maxPerUser int64) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.inventory.init")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.String("ticket_type", ticketType),
		attribute.Int64("total", total),
	)

	key := inventoryKey(eventID, ticketType)

	if err := r.client.HSet(ctx, key, "total", total, "max_per_user", maxPerUser).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to init inventory: %w", err)
	}

	rdb := r.client.Client()
	if err := rdb.HSetNX(ctx, key, "reserved", 0).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to init inventory counters: %w", err)
	}
	if err := rdb.HSetNX(ctx, key, "sold", 0).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to init inventory counters: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// reservationFromHash maps a Redis reservation hash to the domain type
func reservationFromHash(data map[string]string) *domain.Reservation {
	reservation := &domain.Reservation{
		ID:         data["id"],
		SessionID:  data["session_id"],
		EventID:    data["event_id"],
		UserID:     data["user_id"],
		TicketType: data["ticket_type"],
		Status:     domain.ReservationStatus(data["status"]),
	}

	if v, err := strconv.Atoi(data["quantity"]); err == nil {
		reservation.Quantity = v
	}
	if t, ok := unixTime(data["created_at"]); ok {
		reservation.CreatedAt = t
	}

	return reservation
}

// Ensure RedisInventoryRepository implements InventoryRepository
var _ InventoryRepository = (*RedisInventoryRepository)(nil)
