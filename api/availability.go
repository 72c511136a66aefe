package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hoangnv-dev/hotelhold/internal/domain"
	"github.com/hoangnv-dev/hotelhold/internal/inventory"
)

type AvailabilityHandler struct {
	ledger *inventory.Ledger
}

func NewAvailabilityHandler(ledger *inventory.Ledger) *AvailabilityHandler {
	return &AvailabilityHandler{ledger: ledger}
}

func (h *AvailabilityHandler) Register(router *gin.RouterGroup) {
	router.GET("/", h.get)
}

type availabilityQuery struct {
	RoomTypeID string `form:"room_type_id" validate:"required,uuid"`
	CheckIn    string `form:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOut   string `form:"check_out" validate:"required,datetime=2006-01-02"`
}

func (h *AvailabilityHandler) get(c *gin.Context) {
	var q availabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validate.Struct(q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	roomTypeID, _ := uuid.Parse(q.RoomTypeID)
	checkIn, _ := time.Parse("2006-01-02", q.CheckIn)
	checkOut, _ := time.Parse("2006-01-02", q.CheckOut)
	if !checkOut.After(checkIn) {
		fail(c, domain.ErrInvalidDateRange)
		return
	}

	available, err := h.ledger.GetAvailable(c.Request.Context(), roomTypeID, checkIn, checkOut)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"room_type_id": q.RoomTypeID,
		"check_in":     q.CheckIn,
		"check_out":    q.CheckOut,
		"available":    available,
	})
}
