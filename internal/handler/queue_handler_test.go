package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/ticketrush/admission/internal/domain"
	"github.com/ticketrush/admission/internal/dto"
)

// MockQueueService is a mock implementation of QueueService
type MockQueueService struct {
	mock.Mock
}

func (m *MockQueueService) JoinQueue(ctx context.Context, userID string, req *dto.JoinQueueRequest) (*dto.JoinQueueResponse, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.JoinQueueResponse), args.Error(1)
}

func (m *MockQueueService) GetEntryStatus(ctx context.Context, entryID string) (*dto.EntryStatusResponse, error) {
	args := m.Called(ctx, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.EntryStatusResponse), args.Error(1)
}

func (m *MockQueueService) LeaveQueue(ctx context.Context, userID string, req *dto.LeaveQueueRequest) (*dto.LeaveQueueResponse, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.LeaveQueueResponse), args.Error(1)
}

func (m *MockQueueService) GetQueueSnapshot(ctx context.Context, eventID string, limit int64) (*dto.QueueSnapshotResponse, error) {
	args := m.Called(ctx, eventID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.QueueSnapshotResponse), args.Error(1)
}

func setupQueueTestRouter(handler *QueueHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	// Add middleware to set user_id
	router.Use(func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID != "" {
			c.Set("user_id", userID)
		}
		c.Next()
	})

	queue := router.Group("/api/v1/queue")
	{
		queue.POST("/join", handler.JoinQueue)
		queue.GET("/status/:entry_id", handler.GetEntryStatus)
		queue.DELETE("/leave", handler.LeaveQueue)
	}

	return router
}

func TestQueueHandler_JoinQueue_Success(t *testing.T) {
	mockService := new(MockQueueService)
	handler := NewQueueHandler(mockService)
	router := setupQueueTestRouter(handler)

	expectedResponse := &dto.JoinQueueResponse{
		EntryID:       "entry-123",
		Position:      42,
		Rank:          42,
		EstimatedWait: 252,
		EnteredAt:     time.Now(),
		Message:       "Joined the queue",
	}

	mockService.On("JoinQueue", mock.Anything, "user-123", mock.AnythingOfType("*dto.JoinQueueRequest")).
		Return(expectedResponse, nil)

	body, _ := json.Marshal(dto.JoinQueueRequest{EventID: "event-123"})
	req, _ := http.NewRequest("POST", "/api/v1/queue/join", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-123")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp dto.JoinQueueResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err)
	assert.Equal(t, "entry-123", resp.EntryID)
	assert.Equal(t, int64(42), resp.Position)

	mockService.AssertExpectations(t)
}

func TestQueueHandler_JoinQueue_Unauthorized(t *testing.T) {
	mockService := new(MockQueueService)
	handler := NewQueueHandler(mockService)
	router := setupQueueTestRouter(handler)

	body, _ := json.Marshal(dto.JoinQueueRequest{EventID: "event-123"})
	req, _ := http.NewRequest("POST", "/api/v1/queue/join", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	mockService.AssertNotCalled(t, "JoinQueue")
}

func TestQueueHandler_JoinQueue_InvalidBody(t *testing.T) {
	mockService := new(MockQueueService)
	handler := NewQueueHandler(mockService)
	router := setupQueueTestRouter(handler)

	req, _ := http.NewRequest("POST", "/api/v1/queue/join", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-123")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "JoinQueue")
}

func TestQueueHandler_JoinQueue_AlreadyQueued(t *testing.T) {
	mockService := new(MockQueueService)
	handler := NewQueueHandler(mockService)
	router := setupQueueTestRouter(handler)

	mockService.On("JoinQueue", mock.Anything, "user-123", mock.AnythingOfType("*dto.JoinQueueRequest")).
		Return(nil, &domain.AlreadyQueuedError{EntryID: "entry-1"})

	body, _ := json.Marshal(dto.JoinQueueRequest{EventID: "event-123"})
	req, _ := http.NewRequest("POST", "/api/v1/queue/join", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-123")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)

	var resp dto.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err)
	assert.Equal(t, "ALREADY_QUEUED", resp.Code)
	assert.Equal(t, "entry-1", resp.EntryID)
}

func TestQueueHandler_GetEntryStatus_Success(t *testing.T) {
	mockService := new(MockQueueService)
	handler := NewQueueHandler(mockService)
	router := setupQueueTestRouter(handler)

	expectedResponse := &dto.EntryStatusResponse{
		EntryID:       "entry-123",
		EventID:       "event-123",
		Status:        "waiting",
		Position:      42,
		Rank:          5,
		WaitingCount:  120,
		EstimatedWait: 30,
	}

	mockService.On("GetEntryStatus", mock.Anything, "entry-123").Return(expectedResponse, nil)

	req, _ := http.NewRequest("GET", "/api/v1/queue/status/entry-123", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.EntryStatusResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err)
	assert.Equal(t, "waiting", resp.Status)
	assert.Equal(t, int64(5), resp.Rank)

	mockService.AssertExpectations(t)
}

func TestQueueHandler_GetEntryStatus_NotFound(t *testing.T) {
	mockService := new(MockQueueService)
	handler := NewQueueHandler(mockService)
	router := setupQueueTestRouter(handler)

	mockService.On("GetEntryStatus", mock.Anything, "entry-missing").
		Return(nil, domain.ErrEntryNotFound)

	req, _ := http.NewRequest("GET", "/api/v1/queue/status/entry-missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp dto.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err)
	assert.Equal(t, "ENTRY_NOT_FOUND", resp.Code)
}

func TestQueueHandler_LeaveQueue_Success(t *testing.T) {
	mockService := new(MockQueueService)
	handler := NewQueueHandler(mockService)
	router := setupQueueTestRouter(handler)

	mockService.On("LeaveQueue", mock.Anything, "user-123", mock.AnythingOfType("*dto.LeaveQueueRequest")).
		Return(&dto.LeaveQueueResponse{Success: true, Message: "Left the queue"}, nil)

	body, _ := json.Marshal(dto.LeaveQueueRequest{EntryID: "entry-123"})
	req, _ := http.NewRequest("DELETE", "/api/v1/queue/leave", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-123")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.LeaveQueueResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err)
	assert.True(t, resp.Success)

	mockService.AssertExpectations(t)
}

func TestQueueHandler_LeaveQueue_NotOwner(t *testing.T) {
	mockService := new(MockQueueService)
	handler := NewQueueHandler(mockService)
	router := setupQueueTestRouter(handler)

	mockService.On("LeaveQueue", mock.Anything, "user-other", mock.AnythingOfType("*dto.LeaveQueueRequest")).
		Return(nil, domain.ErrEntryNotFound)

	body, _ := json.Marshal(dto.LeaveQueueRequest{EntryID: "entry-123"})
	req, _ := http.NewRequest("DELETE", "/api/v1/queue/leave", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-other")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
