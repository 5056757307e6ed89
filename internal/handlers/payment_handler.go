package handlers

import (
	"net/http"

	"github.com/estatedesk/estatedesk-api/internal/middleware"
	"github.com/estatedesk/estatedesk-api/internal/models"
	"github.com/estatedesk/estatedesk-api/internal/services"
	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	ledgerSvc *services.LedgerService
}

func NewPaymentHandler(ledgerSvc *services.LedgerService) *PaymentHandler {
	return &PaymentHandler{ledgerSvc: ledgerSvc}
}

// Index returns a paginated list of payment records
func (h *PaymentHandler) Index(c *gin.Context) {
	query := listQueryFromContext(c)
	query.Filters["status"] = c.Query("status")
	query.Filters["method"] = c.Query("method")
	query.Filters["kind"] = c.Query("kind")
	query.Filters["contract_file_id"] = c.Query("file_id")

	records, total, err := h.ledgerSvc.ListPayments(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]models.PaymentRecordResponse, 0, len(records))
	for _, r := range records {
		responses = append(responses, r.ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"payments":   responses,
		"pagination": paginationMeta(query, total),
	})
}

// Show returns a payment record by id
func (h *PaymentHandler) Show(c *gin.Context) {
	recordID, ok := idParam(c, "payment_id")
	if !ok {
		return
	}

	record, err := h.ledgerSvc.FindPayment(c.Request.Context(), recordID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, record.ToResponse())
}

// Clear marks a received payment as cleared by the bank. Clearing an
// already cleared record is a no-op success.
func (h *PaymentHandler) Clear(c *gin.Context) {
	recordID, ok := idParam(c, "payment_id")
	if !ok {
		return
	}

	result, err := h.ledgerSvc.ClearPayment(c.Request.Context(), recordID, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment":         result.Record.ToResponse(),
		"already_cleared": result.AlreadyCleared,
	})
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// Bounce reverses a payment the bank returned
func (h *PaymentHandler) Bounce(c *gin.Context) {
	recordID, ok := idParam(c, "payment_id")
	if !ok {
		return
	}

	var req reasonRequest
	_ = c.ShouldBindJSON(&req)

	record, err := h.ledgerSvc.BouncePayment(c.Request.Context(), recordID, req.Reason, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, record.ToResponse())
}

// Cancel voids a pending or received payment before it clears
func (h *PaymentHandler) Cancel(c *gin.Context) {
	recordID, ok := idParam(c, "payment_id")
	if !ok {
		return
	}

	var req reasonRequest
	_ = c.ShouldBindJSON(&req)

	record, err := h.ledgerSvc.CancelPayment(c.Request.Context(), recordID, req.Reason, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, record.ToResponse())
}
