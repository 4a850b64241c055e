package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ticketrush/admission/internal/domain"
	"github.com/ticketrush/admission/pkg/telemetry"
)

// PostgresEventRepository implements EventRepository using PostgreSQL with pgxpool
type PostgresEventRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresEventRepository creates a new PostgresEventRepository
func NewPostgresEventRepository(pool *pgxpool.Pool) *PostgresEventRepository {
	return &PostgresEventRepository{pool: pool}
}

// GetEvent loads an event with its admission settings
func (r *PostgresEventRepository) GetEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.get")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	query := `
		SELECT
			id, name, status, start_time, end_time,
			concurrency_cap, session_duration_seconds,
			created_at, updated_at
		FROM events
		WHERE id = $1
	`

	event := &domain.Event{}
	var (
		concurrencyCap  *int
		sessionDuration *int
	)

	err := r.pool.QueryRow(ctx, query, eventID).Scan(
		&event.ID,
		&event.Name,
		&event.Status,
		&event.StartTime,
		&event.EndTime,
		&concurrencyCap,
		&sessionDuration,
		&event.CreatedAt,
		&event.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrEventNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	if concurrencyCap != nil {
		event.ConcurrencyCap = *concurrencyCap
	}
	if sessionDuration != nil {
		event.SessionDurationSeconds = *sessionDuration
	}

	span.SetStatus(codes.Ok, "")
	return event, nil
}

// ListTicketTypes lists the sellable ticket types for an event
func (r *PostgresEventRepository) ListTicketTypes(ctx context.Context, eventID string) ([]*domain.TicketType, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.list_ticket_types")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	query := `
		SELECT id, event_id, name, total, max_per_user, price
		FROM ticket_types
		WHERE event_id = $1
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list ticket types: %w", err)
	}
	defer rows.Close()

	var types []*domain.TicketType
	for rows.Next() {
		tt := &domain.TicketType{}
		if err := rows.Scan(&tt.ID, &tt.EventID, &tt.Name, &tt.Total, &tt.MaxPerUser, &tt.Price); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan ticket type: %w", err)
		}
		types = append(types, tt)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating ticket types: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(types)))
	span.SetStatus(codes.Ok, "")
	return types, nil
}

// Ensure PostgresEventRepository implements EventRepository
var _ EventRepository = (*PostgresEventRepository)(nil)
