package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hoangnv-dev/hotelhold/internal/domain"
	"github.com/hoangnv-dev/hotelhold/internal/service/booking"
	"github.com/hoangnv-dev/hotelhold/internal/service/checkout"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.create)
	router.GET("/:id", h.get)
	router.POST("/:id/confirm", h.confirm)
	router.POST("/:id/check-in", h.checkIn)
	router.POST("/:id/services", h.addService)
	router.POST("/:id/checkout", h.checkout)
	router.DELETE("/:id", h.cancel)
}

type createBookingRequest struct {
	RoomTypeID string `json:"room_type_id" validate:"required,uuid"`
	Quantity   int    `json:"quantity" validate:"required,gt=0"`
	CheckIn    string `json:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOut   string `json:"check_out" validate:"required,datetime=2006-01-02"`
	CustomerID string `json:"customer_id" validate:"omitempty,uuid"`
	GuestEmail string `json:"guest_email" validate:"omitempty,email"`
	GuestName  string `json:"guest_name"`
	GuestPhone string `json:"guest_phone"`
}

type bookingResponse struct {
	ID            string            `json:"id"`
	Status        string            `json:"status"`
	CheckIn       string            `json:"check_in"`
	CheckOut      string            `json:"check_out"`
	TotalAmount   int64             `json:"total_amount"`
	DepositAmount int64             `json:"deposit_amount"`
	ExpiresAt     string            `json:"expires_at,omitempty"`
	Rooms         []string          `json:"rooms"`
	Invoice       *checkout.Invoice `json:"invoice,omitempty"`
}

func toBookingResponse(b *domain.Booking, inv *checkout.Invoice) bookingResponse {
	resp := bookingResponse{
		ID:            b.ID.String(),
		Status:        string(b.Status),
		CheckIn:       b.CheckIn.Format("2006-01-02"),
		CheckOut:      b.CheckOut.Format("2006-01-02"),
		TotalAmount:   b.TotalAmount,
		DepositAmount: b.DepositAmount,
		Rooms:         make([]string, 0, len(b.Rooms)),
		Invoice:       inv,
	}
	if b.Status == domain.BookingStatusPending {
		resp.ExpiresAt = b.ExpiresAt.Format(time.RFC3339)
	}
	for _, room := range b.Rooms {
		resp.Rooms = append(resp.Rooms, room.RoomID.String())
	}
	return resp
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	roomTypeID, _ := uuid.Parse(req.RoomTypeID)
	checkIn, _ := time.Parse("2006-01-02", req.CheckIn)
	checkOut, _ := time.Parse("2006-01-02", req.CheckOut)

	input := booking.CreateBookingInput{
		RoomTypeID: roomTypeID,
		Quantity:   req.Quantity,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		GuestEmail: req.GuestEmail,
		GuestName:  req.GuestName,
		GuestPhone: req.GuestPhone,
	}
	if req.CustomerID != "" {
		input.CustomerID, _ = uuid.Parse(req.CustomerID)
	}

	created, err := h.service.CreateBooking(c.Request.Context(), input)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, toBookingResponse(created, nil))
}

func (h *BookingHandler) get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	b, err := h.service.GetBooking(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b, nil))
}

func (h *BookingHandler) confirm(c *gin.Context) {
	h.mutate(c, h.service.ConfirmBooking)
}

func (h *BookingHandler) checkIn(c *gin.Context) {
	h.mutate(c, h.service.CheckInBooking)
}

func (h *BookingHandler) cancel(c *gin.Context) {
	h.mutate(c, h.service.CancelBooking)
}

type addServiceRequest struct {
	ServiceID string `json:"service_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

func (h *BookingHandler) addService(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	var req addServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	serviceID, _ := uuid.Parse(req.ServiceID)
	b, err := h.service.AddServiceCharge(c.Request.Context(), id, serviceID, req.Quantity)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b, nil))
}

func (h *BookingHandler) checkout(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	b, invoice, err := h.service.CheckoutBooking(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b, invoice))
}

func (h *BookingHandler) mutate(c *gin.Context, op func(ctx context.Context, id uuid.UUID) (*domain.Booking, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	b, err := op(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b, nil))
}
