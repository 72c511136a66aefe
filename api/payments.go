package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hoangnv-dev/hotelhold/internal/service/payment"
)

type PaymentHandler struct {
	service payment.PaymentUseCase
}

func NewPaymentHandler(service payment.PaymentUseCase) *PaymentHandler {
	return &PaymentHandler{service: service}
}

func (h *PaymentHandler) Register(router *gin.RouterGroup) {
	router.POST("/links", h.createLink)
	router.POST("/deposits", h.recordDeposit)
	router.POST("/webhook", h.webhook)
	router.POST("/refunds/:transaction_id", h.refund)
	router.POST("/refunds/:transaction_id/process", h.processRefund)
}

type createLinkRequest struct {
	BookingID string `json:"booking_id" validate:"required,uuid"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
}

func (h *PaymentHandler) createLink(c *gin.Context) {
	var req createLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bookingID, _ := uuid.Parse(req.BookingID)
	url, err := h.service.CreatePaymentLink(c.Request.Context(), bookingID, req.Amount)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"checkout_url": url})
}

type recordDepositRequest struct {
	BookingID string `json:"booking_id" validate:"required,uuid"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	Method    string `json:"method" validate:"required"`
	Reference string `json:"reference" validate:"required"`
}

func (h *PaymentHandler) recordDeposit(c *gin.Context) {
	var req recordDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bookingID, _ := uuid.Parse(req.BookingID)
	txn, err := h.service.RecordDeposit(c.Request.Context(), bookingID, req.Amount, req.Method, req.Reference)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"transaction_id": txn.ID.String(),
		"status":         string(txn.Status),
		"amount":         txn.Amount,
	})
}

func (h *PaymentHandler) webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	signature := c.GetHeader("x-signature")
	if err := h.service.HandleGatewayWebhook(c.Request.Context(), body, signature); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

type refundRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

func (h *PaymentHandler) refund(c *gin.Context) {
	txnID, err := uuid.Parse(c.Param("transaction_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction id"})
		return
	}

	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	txn, err := h.service.RefundDeposit(c.Request.Context(), txnID, req.Amount)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction_id": txn.ID.String(), "status": string(txn.Status)})
}

func (h *PaymentHandler) processRefund(c *gin.Context) {
	txnID, err := uuid.Parse(c.Param("transaction_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction id"})
		return
	}

	txn, err := h.service.ProcessRefund(c.Request.Context(), txnID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction_id": txn.ID.String(), "status": string(txn.Status)})
}
