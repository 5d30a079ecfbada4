package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gopawz/booking/internal/domain"
	"github.com/gopawz/booking/internal/service/checkin"
)

type CheckinHandler struct {
	service checkin.CheckinUseCase
}

type scanRequest struct {
	Token     string `json:"token" binding:"required"`
	ScannedBy string `json:"scanned_by" binding:"required"`
	Location  string `json:"location"`
}

type issueTokenResponse struct {
	Token     string `json:"token"`
	QRCode    string `json:"qr_code"`
	IssuedAt  string `json:"issued_at"`
	ExpiresAt string `json:"expires_at"`
}

type tokenStatusResponse struct {
	BookingStatus  string `json:"booking_status"`
	CanIssue       bool   `json:"can_issue"`
	IssueOpensAt   string `json:"issue_opens_at"`
	HasActiveToken bool   `json:"has_active_token"`
	IssuedAt       string `json:"issued_at,omitempty"`
	ExpiresAt      string `json:"expires_at,omitempty"`
	CheckedInAt    string `json:"checked_in_at,omitempty"`
}

func NewCheckinHandler(service checkin.CheckinUseCase) *CheckinHandler {
	return &CheckinHandler{service: service}
}

func (h *CheckinHandler) Register(router *gin.RouterGroup) {
	router.POST("/bookings/:id/qr", h.issue)
	router.GET("/bookings/:id/qr", h.status)
	router.POST("/checkin", h.scan)
}

func (h *CheckinHandler) issue(c *gin.Context) {
	force := c.Query("force") == "true"

	result, err := h.service.IssueToken(c.Request.Context(), c.Param("id"), force)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, issueTokenResponse{
		Token:     result.Token,
		QRCode:    result.QRCode,
		IssuedAt:  result.IssuedAt.Format(time.RFC3339),
		ExpiresAt: result.ExpiresAt.Format(time.RFC3339),
	})
}

func (h *CheckinHandler) status(c *gin.Context) {
	status, err := h.service.TokenStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenStatusResponse{
		BookingStatus:  string(status.BookingStatus),
		CanIssue:       status.CanIssue,
		IssueOpensAt:   status.IssueOpensAt.Format(time.RFC3339),
		HasActiveToken: status.HasActiveToken,
		IssuedAt:       formatTime(status.IssuedAt),
		ExpiresAt:      formatTime(status.ExpiresAt),
		CheckedInAt:    formatTime(status.CheckedInAt),
	})
}

func (h *CheckinHandler) scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, &domain.Rejection{Code: domain.CodeValidationFailed, Detail: err.Error()})
		return
	}

	result, err := h.service.Scan(c.Request.Context(), checkin.ScanInput{
		Token:     req.Token,
		ScannedBy: req.ScannedBy,
		Location:  req.Location,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	resp := gin.H{"booking": toBookingResponse(result.Booking)}
	if result.Pet != nil {
		resp["pet"] = gin.H{"id": result.Pet.ID, "name": result.Pet.Name, "breed": result.Pet.Breed}
	}
	c.JSON(http.StatusOK, resp)
}
