package handlers

import (
	"net/http"
	"strconv"

	"github.com/estatedesk/estatedesk-api/internal/services"
	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditSvc *services.AuditService
}

func NewAuditHandler(auditSvc *services.AuditService) *AuditHandler {
	return &AuditHandler{auditSvc: auditSvc}
}

// Index returns audit entries, newest first
func (h *AuditHandler) Index(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("per_page", "50"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if limit < 1 || limit > 200 {
		limit = 50
	}
	if page < 1 {
		page = 1
	}

	logs, total, err := h.auditSvc.List(c.Request.Context(), c.Query("entity"), c.Query("action"), limit, (page-1)*limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"audit_logs": logs,
		"total":      total,
	})
}

// ForEntity returns the full trail for one entity row, oldest first
func (h *AuditHandler) ForEntity(c *gin.Context) {
	entityID, ok := idParam(c, "entity_id")
	if !ok {
		return
	}

	logs, err := h.auditSvc.ForEntity(c.Request.Context(), c.Param("entity"), entityID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"audit_logs": logs})
}
