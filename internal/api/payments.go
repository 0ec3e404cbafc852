package api

import (
	"errors"
	"net/http"

	"github.com/manyeka-petros/malonda-web-app/internal/models"
	"github.com/manyeka-petros/malonda-web-app/internal/service"
	"github.com/manyeka-petros/malonda-web-app/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// initiatePayment handles POST /payments/initiate
func (h *Handler) initiatePayment(c *gin.Context) {
	var req service.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount and email are required", "details": err.Error()})
		return
	}

	session, tx, err := h.payments.InitiatePayment(c.Request.Context(), currentUser(c), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	// Provider accepted the request but declined the session; surface its
	// payload to the caller.
	if tx == nil {
		c.JSON(http.StatusBadRequest, session)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":  session.Status,
		"message": session.Message,
		"data":    session.Data,
		"tx_ref":  tx.TxRef,
	})
}

// verifyPayment handles GET /payments/verify/:tx_ref
func (h *Handler) verifyPayment(c *gin.Context) {
	txRef := c.Param("tx_ref")

	tx, err := h.payments.VerifyPayment(c.Request.Context(), txRef)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if tx.Status != models.TxStatusSuccessful {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":       "transaction not successful",
			"transaction": tx,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

// listTransactions handles GET /payments/transactions
func (h *Handler) listTransactions(c *gin.Context) {
	txs, err := h.payments.ListTransactions(c.Request.Context(), currentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

// paymentWebhook handles POST /payments/webhook. The provider delivers
// at-least-once with no user credentials; authenticity comes from the body
// signature. Internal failures degrade to a logged acknowledgement so the
// provider does not retry forever against a broken dependency.
func (h *Handler) paymentWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	signature := c.GetHeader("Signature")

	err = h.payments.HandleWebhook(c.Request.Context(), body, signature)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "received"})
	case errors.Is(err, util.ErrSignature), errors.Is(err, util.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, util.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Webhook processing failed", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"status": "received"})
	}
}
