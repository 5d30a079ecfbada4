package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gopawz/booking/internal/domain"
	"github.com/gopawz/booking/internal/service/lifecycle"
)

type BookingHandler struct {
	service lifecycle.LifecycleUseCase
}

type createBookingRequest struct {
	UserID      string `json:"user_id" binding:"required"`
	PetID       string `json:"pet_id" binding:"required"`
	ServiceType string `json:"service_type" binding:"required"`
	Date        string `json:"date" binding:"required"`
	TimeSlot    string `json:"time_slot" binding:"required"`
	PriceCents  int64  `json:"price_cents"`
	PaymentID   string `json:"payment_id"`
}

type rescheduleRequest struct {
	Date     string `json:"date" binding:"required"`
	TimeSlot string `json:"time_slot" binding:"required"`
}

type completeRequest struct {
	MediaURL string `json:"media_url"`
}

type bookingResponse struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	PetID       string `json:"pet_id"`
	ServiceType string `json:"service_type"`
	Date        string `json:"date"`
	TimeSlot    string `json:"time_slot"`
	Status      string `json:"status"`
	PriceCents  int64  `json:"price_cents"`
	CheckedInAt string `json:"checked_in_at,omitempty"`
}

type cancelResponse struct {
	Booking bookingResponse `json:"booking"`
	Refund  *refundResponse `json:"refund,omitempty"`
}

type refundResponse struct {
	ID          string `json:"id"`
	AmountCents int64  `json:"amount_cents"`
	Status      string `json:"status"`
}

type auditEntryResponse struct {
	Outcome   string `json:"outcome"`
	ScannedBy string `json:"scanned_by"`
	Location  string `json:"location"`
	ScannedAt string `json:"scanned_at"`
}

func NewBookingHandler(service lifecycle.LifecycleUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.create)
	router.GET("/:id", h.get)
	router.POST("/:id/cancel", h.cancel)
	router.POST("/:id/reschedule", h.reschedule)
	router.POST("/:id/complete", h.complete)
	router.GET("/:id/checkins", h.checkins)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, &domain.Rejection{Code: domain.CodeValidationFailed, Detail: err.Error()})
		return
	}
	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		writeError(c, &domain.Rejection{Code: domain.CodeValidationFailed, Detail: "date must be RFC3339"})
		return
	}

	booking, err := h.service.CreateBooking(c.Request.Context(), lifecycle.CreateBookingInput{
		UserID:      req.UserID,
		PetID:       req.PetID,
		ServiceType: req.ServiceType,
		Date:        date,
		TimeSlot:    req.TimeSlot,
		PriceCents:  req.PriceCents,
		PaymentID:   req.PaymentID,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toBookingResponse(booking))
}

func (h *BookingHandler) get(c *gin.Context) {
	detail, err := h.service.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	resp := gin.H{"booking": toBookingResponse(detail.Booking)}
	if detail.Pet != nil {
		resp["pet"] = gin.H{"id": detail.Pet.ID, "name": detail.Pet.Name, "breed": detail.Pet.Breed}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) cancel(c *gin.Context) {
	result, err := h.service.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	resp := cancelResponse{Booking: toBookingResponse(result.Booking)}
	if result.Refund != nil {
		resp.Refund = &refundResponse{ID: result.Refund.ID, AmountCents: result.Refund.AmountCents, Status: result.Refund.Status}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) reschedule(c *gin.Context) {
	var req rescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, &domain.Rejection{Code: domain.CodeValidationFailed, Detail: err.Error()})
		return
	}
	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		writeError(c, &domain.Rejection{Code: domain.CodeValidationFailed, Detail: "date must be RFC3339"})
		return
	}

	booking, err := h.service.Reschedule(c.Request.Context(), c.Param("id"), date, req.TimeSlot)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toBookingResponse(booking))
}

func (h *BookingHandler) complete(c *gin.Context) {
	var req completeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, &domain.Rejection{Code: domain.CodeValidationFailed, Detail: err.Error()})
			return
		}
	}

	booking, err := h.service.Complete(c.Request.Context(), c.Param("id"), req.MediaURL)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toBookingResponse(booking))
}

func (h *BookingHandler) checkins(c *gin.Context) {
	entries, err := h.service.CheckinHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, auditEntryResponse{
			Outcome:   string(e.Outcome),
			ScannedBy: e.ScannedBy,
			Location:  e.Location,
			ScannedAt: e.CreatedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"checkins": resp})
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	resp := bookingResponse{
		ID:          b.ID,
		UserID:      b.UserID,
		PetID:       b.PetID,
		ServiceType: b.ServiceType,
		Date:        b.Date.Format(time.RFC3339),
		TimeSlot:    b.TimeSlot,
		Status:      string(b.Status),
		PriceCents:  b.PriceCents,
	}
	if !b.CheckedInAt.IsZero() {
		resp.CheckedInAt = b.CheckedInAt.Format(time.RFC3339)
	}
	return resp
}
