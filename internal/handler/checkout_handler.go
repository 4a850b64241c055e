package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ticketrush/admission/internal/domain"
	"github.com/ticketrush/admission/internal/dto"
	"github.com/ticketrush/admission/internal/service"
	"github.com/ticketrush/admission/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// sessionContextKey is the gin context key the auth middleware stores the
// validated session under
const sessionContextKey = "purchase_session"

// CheckoutHandler handles purchase session HTTP requests. Every checkout
// route runs behind SessionAuth, which swaps the bearer token for the
// live session
type CheckoutHandler struct {
	checkoutService service.CheckoutService
	sessionService  service.SessionService
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkoutService service.CheckoutService, sessionService service.SessionService) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		sessionService:  sessionService,
	}
}

// SessionAuth validates the session token and stores the live session in
// the request context. The token proves admission; the live Redis state
// decides whether the session is still usable.
func (h *CheckoutHandler) SessionAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.checkout.auth")
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		token := extractSessionToken(c)
		if token == "" {
			span.SetStatus(codes.Error, "missing session token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error: "session token required",
				Code:  "UNAUTHORIZED",
			})
			return
		}

		session, err := h.sessionService.ValidateSessionToken(ctx, token)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			h.handleError(c, err)
			c.Abort()
			return
		}

		span.SetAttributes(
			attribute.String("session_id", session.ID),
			attribute.String("event_id", session.EventID),
		)
		span.SetStatus(codes.Ok, "")
		c.Set(sessionContextKey, session)
		c.Next()
	}
}

// extractSessionToken reads the token from the Authorization bearer
// header, falling back to X-Session-Token
func extractSessionToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return c.GetHeader("X-Session-Token")
}

// sessionFromContext pulls the validated session set by SessionAuth
func sessionFromContext(c *gin.Context) *domain.Session {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return nil
	}
	session, _ := v.(*domain.Session)
	return session
}

// Reserve handles POST /checkout/reserve
func (h *CheckoutHandler) Reserve(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.checkout.reserve")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	session := sessionFromContext(c)
	if session == nil {
		span.SetStatus(codes.Error, "unauthorized")
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error: "unauthorized",
			Code:  "UNAUTHORIZED",
		})
		return
	}

	var req dto.ReserveTicketsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid request",
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		})
		return
	}

	span.SetAttributes(
		attribute.String("session_id", session.ID),
		attribute.String("ticket_type", req.TicketType),
		attribute.Int("quantity", req.Quantity),
	)

	result, err := h.checkoutService.Reserve(ctx, session, &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusCreated, result)
}

// Complete handles POST /checkout/complete
func (h *CheckoutHandler) Complete(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.checkout.complete")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	session := sessionFromContext(c)
	if session == nil {
		span.SetStatus(codes.Error, "unauthorized")
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error: "unauthorized",
			Code:  "UNAUTHORIZED",
		})
		return
	}

	// Body is optional; an empty complete still commits the session
	var req dto.CompleteSessionRequest
	_ = c.ShouldBindJSON(&req)

	span.SetAttributes(attribute.String("session_id", session.ID))

	result, err := h.checkoutService.Complete(ctx, session, &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// Cancel handles POST /checkout/cancel
func (h *CheckoutHandler) Cancel(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.checkout.cancel")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	session := sessionFromContext(c)
	if session == nil {
		span.SetStatus(codes.Error, "unauthorized")
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error: "unauthorized",
			Code:  "UNAUTHORIZED",
		})
		return
	}

	span.SetAttributes(attribute.String("session_id", session.ID))

	result, err := h.checkoutService.Cancel(ctx, session)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// ListReservations handles GET /checkout/reservations
func (h *CheckoutHandler) ListReservations(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.checkout.reservations")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	session := sessionFromContext(c)
	if session == nil {
		span.SetStatus(codes.Error, "unauthorized")
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error: "unauthorized",
			Code:  "UNAUTHORIZED",
		})
		return
	}

	span.SetAttributes(attribute.String("session_id", session.ID))

	result, err := h.checkoutService.ListReservations(ctx, session.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, gin.H{"reservations": result})
}

// GetAvailability handles GET /events/:event_id/availability/:ticket_type.
// Public route; counters are approximate the moment they are read.
func (h *CheckoutHandler) GetAvailability(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.checkout.availability")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	eventID := c.Param("event_id")
	ticketType := c.Param("ticket_type")
	if eventID == "" || ticketType == "" {
		span.SetStatus(codes.Error, "event_id and ticket_type required")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "event_id and ticket_type required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.String("ticket_type", ticketType),
	)

	result, err := h.checkoutService.GetAvailability(ctx, eventID, ticketType)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// handleError converts domain errors to HTTP responses
func (h *CheckoutHandler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidSessionToken):
		c.JSON(http.StatusForbidden, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_SESSION_TOKEN",
		})
	case errors.Is(err, domain.ErrSessionExpired):
		c.JSON(http.StatusGone, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "SESSION_EXPIRED",
		})
	case errors.Is(err, domain.ErrSessionNotActive):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "SESSION_NOT_ACTIVE",
		})
	case errors.Is(err, domain.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "SESSION_NOT_FOUND",
		})
	case errors.Is(err, domain.ErrSoldOut):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "SOLD_OUT",
		})
	case errors.Is(err, domain.ErrInsufficientInventory):
		resp := dto.ErrorResponse{
			Error: err.Error(),
			Code:  "INSUFFICIENT_INVENTORY",
		}
		var insufficient *domain.InsufficientInventoryError
		if errors.As(err, &insufficient) {
			resp.Available = &insufficient.Available
		}
		c.JSON(http.StatusConflict, resp)
	case errors.Is(err, domain.ErrLimitExceeded):
		resp := dto.ErrorResponse{
			Error: err.Error(),
			Code:  "LIMIT_EXCEEDED",
		}
		var limit *domain.LimitExceededError
		if errors.As(err, &limit) {
			resp.Remaining = &limit.Remaining
		}
		c.JSON(http.StatusConflict, resp)
	case errors.Is(err, domain.ErrInventoryNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "INVENTORY_NOT_FOUND",
		})
	case errors.Is(err, domain.ErrReservationNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "RESERVATION_NOT_FOUND",
		})
	case domain.IsValidationError(err):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_REQUEST",
		})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "internal server error",
			Code:  "INTERNAL_ERROR",
		})
	}
}
