package handlers

import (
	"net/http"
	"time"

	"github.com/estatedesk/estatedesk-api/internal/middleware"
	"github.com/estatedesk/estatedesk-api/internal/models"
	"github.com/estatedesk/estatedesk-api/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type FileHandler struct {
	ledgerSvc   *services.LedgerService
	scheduleSvc *services.ScheduleService
	transferSvc *services.TransferService
	payableSvc  *services.PayableResolver
}

func NewFileHandler(ledgerSvc *services.LedgerService, scheduleSvc *services.ScheduleService, transferSvc *services.TransferService, payableSvc *services.PayableResolver) *FileHandler {
	return &FileHandler{
		ledgerSvc:   ledgerSvc,
		scheduleSvc: scheduleSvc,
		transferSvc: transferSvc,
		payableSvc:  payableSvc,
	}
}

// Index returns a paginated list of contract files
func (h *FileHandler) Index(c *gin.Context) {
	query := listQueryFromContext(c)
	query.Filters["status"] = c.Query("status")
	query.Filters["payment_plan"] = c.Query("payment_plan")
	query.Filters["client_id"] = c.Query("client_id")

	files, total, err := h.ledgerSvc.ListFiles(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]models.ContractFileResponse, 0, len(files))
	for _, f := range files {
		responses = append(responses, f.ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"files":      responses,
		"pagination": paginationMeta(query, total),
	})
}

// Show returns a contract file with its schedule and payment history
func (h *FileHandler) Show(c *gin.Context) {
	fileID, ok := idParam(c, "file_id")
	if !ok {
		return
	}

	file, err := h.ledgerSvc.GetFile(c.Request.Context(), fileID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, file.ToResponse())
}

// Summary returns the file's financial position read model
func (h *FileHandler) Summary(c *gin.Context) {
	fileID, ok := idParam(c, "file_id")
	if !ok {
		return
	}

	summary, err := h.ledgerSvc.GetLedgerSummary(c.Request.Context(), fileID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// Schedule returns the installment schedule for a file
func (h *FileHandler) Schedule(c *gin.Context) {
	fileID, ok := idParam(c, "file_id")
	if !ok {
		return
	}

	installments, err := h.scheduleSvc.FindByFile(c.Request.Context(), fileID)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]models.InstallmentResponse, 0, len(installments))
	for _, inst := range installments {
		responses = append(responses, inst.ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{"installments": responses})
}

type postPaymentRequest struct {
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	PenaltyAmount  decimal.Decimal `json:"penalty_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Method         string          `json:"method" binding:"required"`
	Kind           string          `json:"kind"`
	PaymentDate    string          `json:"payment_date"`
	InstallmentSeq *int            `json:"installment_seq"`
	Remarks        *string         `json:"remarks"`
}

// PostPayment records a money movement against the file
func (h *FileHandler) PostPayment(c *gin.Context) {
	fileID, ok := idParam(c, "file_id")
	if !ok {
		return
	}

	var req postPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	paymentDate := time.Now().UTC()
	if req.PaymentDate != "" {
		parsed, err := time.Parse("2006-01-02", req.PaymentDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "payment_date must be YYYY-MM-DD"})
			return
		}
		paymentDate = parsed
	}

	record, err := h.ledgerSvc.PostPayment(c.Request.Context(), services.PostPaymentInput{
		FileID:         fileID,
		Amount:         req.Amount,
		PenaltyAmount:  req.PenaltyAmount,
		DiscountAmount: req.DiscountAmount,
		Method:         req.Method,
		Kind:           req.Kind,
		PaymentDate:    paymentDate,
		InstallmentSeq: req.InstallmentSeq,
		Remarks:        req.Remarks,
		ActorID:        middleware.GetUserID(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, record.ToResponse())
}

// Sync reconciles the file's paid_amount with its settled payment records
func (h *FileHandler) Sync(c *gin.Context) {
	fileID, ok := idParam(c, "file_id")
	if !ok {
		return
	}

	result, err := h.ledgerSvc.SyncPaidAmount(c.Request.Context(), fileID, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type transferRequest struct {
	NewClientID uint            `json:"new_client_id" binding:"required"`
	TransferFee decimal.Decimal `json:"transfer_fee"`
	Remarks     string          `json:"remarks"`
}

// Transfer reassigns a file to a new owner and closes it out
func (h *FileHandler) Transfer(c *gin.Context) {
	fileID, ok := idParam(c, "file_id")
	if !ok {
		return
	}

	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	file, err := h.transferSvc.Transfer(c.Request.Context(), fileID, req.NewClientID, req.TransferFee, req.Remarks, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, file.ToResponse())
}

// QuotePayable resolves a tagged payable reference into an amount owed
func (h *FileHandler) QuotePayable(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	quote, err := h.payableSvc.Resolve(c.Request.Context(), models.PayableRef{
		Kind: models.PayableKind(c.Param("kind")),
		ID:   id,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}
