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

type DealHandler struct {
	dealSvc       *services.DealService
	commissionSvc *services.CommissionService
}

func NewDealHandler(dealSvc *services.DealService, commissionSvc *services.CommissionService) *DealHandler {
	return &DealHandler{dealSvc: dealSvc, commissionSvc: commissionSvc}
}

// Index returns a paginated list of deals
func (h *DealHandler) Index(c *gin.Context) {
	query := listQueryFromContext(c)
	query.Filters["status"] = c.Query("status")
	query.Filters["dealer_id"] = c.Query("dealer_id")

	deals, total, err := h.dealSvc.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]models.DealResponse, 0, len(deals))
	for _, d := range deals {
		responses = append(responses, d.ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"deals":      responses,
		"pagination": paginationMeta(query, total),
	})
}

// Show returns a deal by id
func (h *DealHandler) Show(c *gin.Context) {
	dealID, ok := idParam(c, "deal_id")
	if !ok {
		return
	}

	deal, err := h.dealSvc.FindByID(c.Request.Context(), dealID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, deal.ToResponse())
}

type createDealRequest struct {
	ClientID             uint            `json:"client_id" binding:"required"`
	PlotID               uint            `json:"plot_id" binding:"required"`
	DealerID             uint            `json:"dealer_id" binding:"required"`
	Amount               decimal.Decimal `json:"amount" binding:"required"`
	CommissionPercentage decimal.Decimal `json:"commission_percentage"`
	CommissionAmount     decimal.Decimal `json:"commission_amount"`
	Notes                *string         `json:"notes"`
}

// Create records a new pending deal
func (h *DealHandler) Create(c *gin.Context) {
	var req createDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deal, err := h.dealSvc.Create(c.Request.Context(), services.CreateDealInput{
		ClientID:             req.ClientID,
		PlotID:               req.PlotID,
		DealerID:             req.DealerID,
		Amount:               req.Amount,
		CommissionPercentage: req.CommissionPercentage,
		CommissionAmount:     req.CommissionAmount,
		Notes:                req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, deal.ToResponse())
}

type confirmDealRequest struct {
	PaymentPlan          string          `json:"payment_plan" binding:"required"`
	TotalInstallments    int             `json:"total_installments"`
	InstallmentAmount    decimal.Decimal `json:"installment_amount"`
	InstallmentFrequency string          `json:"installment_frequency"`
	FirstInstallmentDate string          `json:"first_installment_date"`
	Remarks              *string         `json:"remarks"`
}

// Confirm confirms the deal and opens its contract file
func (h *DealHandler) Confirm(c *gin.Context) {
	dealID, ok := idParam(c, "deal_id")
	if !ok {
		return
	}

	var req confirmDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var firstDue time.Time
	if req.FirstInstallmentDate != "" {
		parsed, err := time.Parse("2006-01-02", req.FirstInstallmentDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "first_installment_date must be YYYY-MM-DD"})
			return
		}
		firstDue = parsed
	}

	file, err := h.dealSvc.Confirm(c.Request.Context(), services.ConfirmDealInput{
		DealID:               dealID,
		PaymentPlan:          req.PaymentPlan,
		TotalInstallments:    req.TotalInstallments,
		InstallmentAmount:    req.InstallmentAmount,
		InstallmentFrequency: req.InstallmentFrequency,
		FirstInstallmentDate: firstDue,
		Remarks:              req.Remarks,
		ActorID:              middleware.GetUserID(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, file.ToResponse())
}

// Complete marks a confirmed deal as completed and earns the commission
func (h *DealHandler) Complete(c *gin.Context) {
	dealID, ok := idParam(c, "deal_id")
	if !ok {
		return
	}

	deal, err := h.dealSvc.Complete(c.Request.Context(), dealID, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, deal.ToResponse())
}

// Cancel voids a pending or confirmed deal
func (h *DealHandler) Cancel(c *gin.Context) {
	dealID, ok := idParam(c, "deal_id")
	if !ok {
		return
	}

	var req reasonRequest
	_ = c.ShouldBindJSON(&req)

	deal, err := h.dealSvc.Cancel(c.Request.Context(), dealID, req.Reason, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, deal.ToResponse())
}

// RefreshDealerStats recomputes one dealer's cached deal totals
func (h *DealHandler) RefreshDealerStats(c *gin.Context) {
	dealerID, ok := idParam(c, "dealer_id")
	if !ok {
		return
	}

	if err := h.commissionSvc.RefreshDealerStats(c.Request.Context(), dealerID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "dealer stats refreshed"})
}
