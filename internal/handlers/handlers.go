package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/estatedesk/estatedesk-api/internal/jobs"
	"github.com/estatedesk/estatedesk-api/internal/repository"
	"github.com/estatedesk/estatedesk-api/internal/services"
	"github.com/gin-gonic/gin"
)

// Handlers holds all handler instances
type Handlers struct {
	Health   *HealthHandler
	File     *FileHandler
	Payment  *PaymentHandler
	Deal     *DealHandler
	Property *PropertyHandler
	Audit    *AuditHandler
	Job      *JobHandler
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services, worker *jobs.Worker) *Handlers {
	return &Handlers{
		Health:   NewHealthHandler(),
		File:     NewFileHandler(svcs.Ledger, svcs.Schedule, svcs.Transfer, svcs.Payable),
		Payment:  NewPaymentHandler(svcs.Ledger),
		Deal:     NewDealHandler(svcs.Deal, svcs.Commission),
		Property: NewPropertyHandler(svcs.Property),
		Audit:    NewAuditHandler(svcs.Audit),
		Job:      NewJobHandler(worker),
	}
}

// respondError maps service errors onto HTTP statuses: validation failures
// are 400, unknown entities 404, state machine rejections 409.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidState), errors.Is(err, services.ErrHasChildren):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// sortableColumns lists the columns a client may sort by. SortBy is
// interpolated into the ORDER BY clause, so anything outside this set is
// dropped and the repository default applies.
var sortableColumns = map[string]bool{
	"id":               true,
	"created_at":       true,
	"updated_at":       true,
	"status":           true,
	"payment_date":     true,
	"due_date":         true,
	"amount":           true,
	"net_amount":       true,
	"total_amount":     true,
	"paid_amount":      true,
	"remaining_amount": true,
	"file_number":      true,
	"receipt_number":   true,
	"start_date":       true,
}

// listQueryFromContext builds a ListQuery from the common query params.
// Sort arrives as "field-direction", e.g. "created_at-desc".
func listQueryFromContext(c *gin.Context) *repository.ListQuery {
	query := repository.NewListQuery()
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	query.Search = c.Query("search")

	if sort := c.Query("sort"); sort != "" {
		parts := strings.Split(sort, "-")
		if sortableColumns[parts[0]] {
			query.SortBy = parts[0]
			if len(parts) > 1 {
				query.SortDir = parts[1]
			}
		}
	}

	return query
}

// paginationMeta is the standard pagination envelope for index responses
func paginationMeta(query *repository.ListQuery, total int64) gin.H {
	return gin.H{
		"page":        query.Page,
		"per_page":    query.PerPage,
		"total":       total,
		"total_pages": (total + int64(query.PerPage) - 1) / int64(query.PerPage),
	}
}

// idParam parses a numeric path parameter
func idParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}
