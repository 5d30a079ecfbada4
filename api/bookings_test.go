package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gopawz/booking/internal/domain"
	"github.com/gopawz/booking/internal/service/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockLifecycleUseCase is a mock implementation of lifecycle.LifecycleUseCase
type MockLifecycleUseCase struct {
	mock.Mock
}

func (m *MockLifecycleUseCase) CreateBooking(ctx context.Context, input lifecycle.CreateBookingInput) (*domain.Booking, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockLifecycleUseCase) GetBooking(ctx context.Context, id string) (*lifecycle.BookingDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lifecycle.BookingDetail), args.Error(1)
}

func (m *MockLifecycleUseCase) Cancel(ctx context.Context, id string) (*lifecycle.CancelResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lifecycle.CancelResult), args.Error(1)
}

func (m *MockLifecycleUseCase) Reschedule(ctx context.Context, id string, date time.Time, timeSlot string) (*domain.Booking, error) {
	args := m.Called(ctx, id, date, timeSlot)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockLifecycleUseCase) Complete(ctx context.Context, id, mediaURL string) (*domain.Booking, error) {
	args := m.Called(ctx, id, mediaURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockLifecycleUseCase) CheckinHistory(ctx context.Context, id string) ([]domain.CheckinAudit, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CheckinAudit), args.Error(1)
}

func (m *MockLifecycleUseCase) SendReminders(ctx context.Context) ([]domain.Booking, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func setupBookingRouter(service lifecycle.LifecycleUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewBookingHandler(service).Register(router.Group("/api/bookings"))
	return router
}

func TestCancelHandler_Success(t *testing.T) {
	service := &MockLifecycleUseCase{}
	service.On("Cancel", mock.Anything, "booking-1").Return(&lifecycle.CancelResult{
		Booking: &domain.Booking{ID: "booking-1", Status: domain.BookingStatusCancelled, Date: time.Now()},
	}, nil)

	router := setupBookingRouter(service)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/bookings/booking-1/cancel", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp cancelResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "cancelled", resp.Booking.Status)
	assert.Nil(t, resp.Refund)
}

func TestCancelHandler_WindowTooClose(t *testing.T) {
	service := &MockLifecycleUseCase{}
	service.On("Cancel", mock.Anything, "booking-1").
		Return(nil, &domain.Rejection{Code: domain.CodeWindowTooClose, HoursRemaining: 22.0})

	router := setupBookingRouter(service)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/bookings/booking-1/cancel", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)

	var resp rejectionResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "WINDOW_TOO_CLOSE", resp.Code)
	assert.InDelta(t, 22.0, resp.HoursRemaining, 0.01)
}

func TestCancelHandler_RefundFailed(t *testing.T) {
	service := &MockLifecycleUseCase{}
	service.On("Cancel", mock.Anything, "booking-1").
		Return(nil, &domain.Rejection{Code: domain.CodeRefundFailed, Detail: "provider outage"})

	router := setupBookingRouter(service)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/bookings/booking-1/cancel", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestGetHandler_NotFound(t *testing.T) {
	service := &MockLifecycleUseCase{}
	service.On("GetBooking", mock.Anything, "missing").Return(nil, domain.ErrNotFound)

	router := setupBookingRouter(service)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/bookings/missing", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRescheduleHandler(t *testing.T) {
	newDate := time.Date(2025, 1, 14, 14, 0, 0, 0, time.UTC)

	service := &MockLifecycleUseCase{}
	service.On("Reschedule", mock.Anything, "booking-1", newDate, "2:00 PM").
		Return(&domain.Booking{ID: "booking-1", Status: domain.BookingStatusScheduled, Date: newDate, TimeSlot: "2:00 PM"}, nil)

	router := setupBookingRouter(service)
	body, _ := json.Marshal(rescheduleRequest{Date: newDate.Format(time.RFC3339), TimeSlot: "2:00 PM"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/bookings/booking-1/reschedule", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp bookingResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "scheduled", resp.Status)
	assert.Equal(t, newDate.Format(time.RFC3339), resp.Date)
}

func TestRescheduleHandler_BadDate(t *testing.T) {
	service := &MockLifecycleUseCase{}

	router := setupBookingRouter(service)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/bookings/booking-1/reschedule",
		bytes.NewReader([]byte(`{"date":"tomorrow","time_slot":"2:00 PM"}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	service.AssertNotCalled(t, "Reschedule", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckinsHandler(t *testing.T) {
	scannedAt := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

	service := &MockLifecycleUseCase{}
	service.On("CheckinHistory", mock.Anything, "booking-1").Return([]domain.CheckinAudit{
		{Outcome: domain.ScanOutcomeValidated, ScannedBy: "staff-7", Location: "van-2", CreatedAt: scannedAt},
		{Outcome: domain.ScanOutcomeDuplicate, ScannedBy: "staff-7", Location: "van-2", CreatedAt: scannedAt.Add(10 * time.Minute)},
	}, nil)

	router := setupBookingRouter(service)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/bookings/booking-1/checkins", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Checkins []auditEntryResponse `json:"checkins"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Checkins, 2)
	assert.Equal(t, "validated", resp.Checkins[0].Outcome)
	assert.Equal(t, "duplicate", resp.Checkins[1].Outcome)
}
