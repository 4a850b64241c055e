package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ticketrush/admission/internal/domain"
	"github.com/ticketrush/admission/internal/dto"
	"github.com/ticketrush/admission/internal/metrics"
	"github.com/ticketrush/admission/internal/repository"
	"github.com/ticketrush/admission/pkg/logger"
	"github.com/ticketrush/admission/pkg/telemetry"
)

// QueueService defines the interface for queue business logic
type QueueService interface {
	// JoinQueue adds a user to the waiting queue for an event
	JoinQueue(ctx context.Context, userID string, req *dto.JoinQueueRequest) (*dto.JoinQueueResponse, error)

	// GetEntryStatus reports an entry's current state, rank and wait estimate
	GetEntryStatus(ctx context.Context, entryID string) (*dto.EntryStatusResponse, error)

	// LeaveQueue removes the user's entry; a waiting entry is cancelled in
	// place, an admitted one has its session cancelled
	LeaveQueue(ctx context.Context, userID string, req *dto.LeaveQueueRequest) (*dto.LeaveQueueResponse, error)

	// GetQueueSnapshot summarizes one event's queue for admin views,
	// listing at most limit waiting entries from the head
	GetQueueSnapshot(ctx context.Context, eventID string, limit int64) (*dto.QueueSnapshotResponse, error)
}

// queueService implements QueueService
type queueService struct {
	ledger    repository.LedgerRepository
	sessions  repository.SessionRepository
	events    repository.EventRepository
	publisher EventPublisher
}

// NewQueueService creates a new queue service
func NewQueueService(
	ledger repository.LedgerRepository,
	sessions repository.SessionRepository,
	events repository.EventRepository,
	publisher EventPublisher,
) QueueService {
	return &queueService{
		ledger:    ledger,
		sessions:  sessions,
		events:    events,
		publisher: publisher,
	}
}

// JoinQueue adds a user to the waiting queue for an event
func (s *queueService) JoinQueue(ctx context.Context, userID string, req *dto.JoinQueueRequest) (*dto.JoinQueueResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.queue.join")
	defer span.End()

	if req == nil || req.EventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}
	if userID == "" {
		span.SetStatus(codes.Error, "invalid user_id")
		return nil, domain.ErrInvalidUserID
	}

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.String("event_id", req.EventID),
	)

	event, err := s.events.GetEvent(ctx, req.EventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	entryID := uuid.New().String()
	result, err := s.ledger.Enqueue(ctx, repository.EnqueueParams{
		EntryID: entryID,
		EventID: req.EventID,
		UserID:  userID,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if !result.Success {
		metrics.RecordEnqueue(req.EventID, "rejected")
		span.SetStatus(codes.Error, result.ErrorCode)
		switch result.ErrorCode {
		case "ALREADY_QUEUED":
			// The script reports the entry the user already holds
			return nil, &domain.AlreadyQueuedError{EntryID: result.ExistingEntryID}
		default:
			return nil, domain.ErrEntryNotFound
		}
	}

	metrics.RecordEnqueue(req.EventID, "accepted")
	metrics.SetQueueDepth(req.EventID, result.WaitingCount)

	// A fresh entry always joins at the tail, so its rank is the queue length
	rank := result.WaitingCount
	estimatedWait := int64(event.EstimatedWait(rank).Seconds())

	s.publishAsync(&domain.AdmissionEvent{
		Type:    domain.AdmissionEventEntryEnqueued,
		EventID: req.EventID,
		UserID:  userID,
		EntryID: entryID,
	})

	span.SetAttributes(attribute.Int64("position", result.Position))
	span.SetStatus(codes.Ok, "")
	return &dto.JoinQueueResponse{
		EntryID:       entryID,
		Position:      result.Position,
		Rank:          rank,
		EstimatedWait: estimatedWait,
		EnteredAt:     time.Now(),
		Message:       "Successfully joined the queue",
	}, nil
}

// GetEntryStatus reports an entry's current state, rank and wait estimate
func (s *queueService) GetEntryStatus(ctx context.Context, entryID string) (*dto.EntryStatusResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.queue.get_entry_status")
	defer span.End()

	if entryID == "" {
		span.SetStatus(codes.Error, "invalid entry_id")
		return nil, domain.ErrInvalidEntryID
	}

	span.SetAttributes(attribute.String("entry_id", entryID))

	entry, err := s.ledger.GetEntry(ctx, entryID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	resp := &dto.EntryStatusResponse{
		EntryID:  entry.ID,
		EventID:  entry.EventID,
		Status:   string(entry.Status),
		Position: entry.Position,
	}

	switch entry.Status {
	case domain.EntryStatusWaiting:
		rank, err := s.ledger.GetRank(ctx, entry.EventID, entry.ID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if rank.IsWaiting {
			resp.Rank = rank.Rank
			resp.WaitingCount = rank.WaitingCount

			// Wait estimate is computed fresh on every read
			event, err := s.events.GetEvent(ctx, entry.EventID)
			if err == nil {
				resp.EstimatedWait = int64(event.EstimatedWait(rank.Rank).Seconds())
			}
		}

	case domain.EntryStatusActive:
		session, err := s.sessions.GetSession(ctx, entry.SessionID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		resp.SessionID = session.ID
		resp.SessionToken = session.Token
		expiry := session.ExpiresAt
		resp.SessionExpiry = &expiry

		// The sweep hasn't run yet; report the session as it stands
		if !session.IsActive() {
			resp.Status = string(domain.EntryStatusExpired)
		}
	}

	span.SetStatus(codes.Ok, "")
	return resp, nil
}

// LeaveQueue removes the user's entry from the queue
func (s *queueService) LeaveQueue(ctx context.Context, userID string, req *dto.LeaveQueueRequest) (*dto.LeaveQueueResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.queue.leave")
	defer span.End()

	if req == nil || req.EntryID == "" {
		span.SetStatus(codes.Error, "invalid entry_id")
		return nil, domain.ErrInvalidEntryID
	}
	if userID == "" {
		span.SetStatus(codes.Error, "invalid user_id")
		return nil, domain.ErrInvalidUserID
	}

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.String("entry_id", req.EntryID),
	)

	entry, err := s.ledger.GetEntry(ctx, req.EntryID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// Entries are only visible to their owner
	if entry.UserID != userID {
		span.SetStatus(codes.Error, "entry owner mismatch")
		return nil, domain.ErrEntryNotFound
	}

	err = s.ledger.CancelWaiting(ctx, entry.EventID, entry.UserID, entry.ID)
	if errors.Is(err, domain.ErrEntryNotActive) {
		// Already admitted; leaving means giving the session up
		if entry.SessionID == "" {
			span.SetStatus(codes.Error, "entry not cancellable")
			return nil, domain.ErrEntryNotActive
		}
		if _, _, err := s.sessions.Finish(ctx, entry.EventID, entry.SessionID, domain.SessionStatusCancelled); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		metrics.RecordSessionOutcome(entry.EventID, string(domain.SessionStatusCancelled))
	} else if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.publishAsync(&domain.AdmissionEvent{
		Type:    domain.AdmissionEventEntryCancelled,
		EventID: entry.EventID,
		UserID:  userID,
		EntryID: entry.ID,
	})

	span.SetStatus(codes.Ok, "")
	return &dto.LeaveQueueResponse{
		Success: true,
		Message: "Successfully left the queue",
	}, nil
}

// GetQueueSnapshot summarizes one event's queue for admin views
func (s *queueService) GetQueueSnapshot(ctx context.Context, eventID string, limit int64) (*dto.QueueSnapshotResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.queue.snapshot")
	defer span.End()

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}

	span.SetAttributes(attribute.String("event_id", eventID))

	waiting, err := s.ledger.WaitingCount(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	active, err := s.sessions.ActiveCount(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	entries, err := s.ledger.ListWaiting(ctx, eventID, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	summaries := make([]dto.QueueEntrySummary, 0, len(entries))
	for i, entry := range entries {
		summaries = append(summaries, dto.QueueEntrySummary{
			EntryID:   entry.ID,
			UserID:    entry.UserID,
			Position:  entry.Position,
			Rank:      int64(i) + 1,
			EnteredAt: entry.EnteredAt,
		})
	}

	cap := domain.DefaultConcurrencyCap
	if event, err := s.events.GetEvent(ctx, eventID); err == nil {
		cap = event.GetConcurrencyCap()
	}

	span.SetAttributes(
		attribute.Int64("waiting_count", waiting),
		attribute.Int64("active_sessions", active),
	)
	span.SetStatus(codes.Ok, "")
	return &dto.QueueSnapshotResponse{
		EventID:        eventID,
		WaitingCount:   waiting,
		ActiveSessions: active,
		ConcurrencyCap: cap,
		Entries:        summaries,
	}, nil
}

// publishAsync publishes an admission event without blocking the request
func (s *queueService) publishAsync(event *domain.AdmissionEvent) {
	go func() {
		if err := s.publisher.Publish(context.Background(), event); err != nil {
			logger.Get().Warn("failed to publish admission event",
				"type", event.Type, "event_id", event.EventID, "error", err)
		}
	}()
}
