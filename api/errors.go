package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gopawz/booking/internal/domain"
)

type rejectionResponse struct {
	Code           string  `json:"code"`
	Message        string  `json:"message"`
	State          string  `json:"state,omitempty"`
	HoursRemaining float64 `json:"hours_remaining,omitempty"`
	ValidFrom      string  `json:"valid_from,omitempty"`
	IssuedAt       string  `json:"issued_at,omitempty"`
	ExpiresAt      string  `json:"expires_at,omitempty"`
	CheckedInAt    string  `json:"checked_in_at,omitempty"`
}

// writeError maps typed rejections to specific statuses and payloads;
// anything unexpected becomes a generic 500.
func writeError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"code": "NOT_FOUND", "message": "booking not found"})
		return
	}

	rejection, ok := domain.AsRejection(err)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "service unavailable"})
		return
	}

	c.JSON(statusFor(rejection.Code), rejectionResponse{
		Code:           string(rejection.Code),
		Message:        rejection.Error(),
		State:          string(rejection.State),
		HoursRemaining: rejection.HoursRemaining,
		ValidFrom:      formatTime(rejection.ValidFrom),
		IssuedAt:       formatTime(rejection.IssuedAt),
		ExpiresAt:      formatTime(rejection.ExpiresAt),
		CheckedInAt:    formatTime(rejection.CheckedInAt),
	})
}

func statusFor(code domain.RejectionCode) int {
	switch code {
	case domain.CodeValidationFailed:
		return http.StatusBadRequest
	case domain.CodeInvalidToken:
		return http.StatusNotFound
	case domain.CodeTokenExpired:
		return http.StatusGone
	case domain.CodeRefundFailed:
		return http.StatusBadGateway
	default:
		return http.StatusConflict
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
