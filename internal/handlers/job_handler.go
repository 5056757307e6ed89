package handlers

import (
	"net/http"

	"github.com/estatedesk/estatedesk-api/internal/jobs"
	"github.com/gin-gonic/gin"
)

type JobHandler struct {
	worker *jobs.Worker
}

func NewJobHandler(worker *jobs.Worker) *JobHandler {
	return &JobHandler{worker: worker}
}

// Status returns the background worker statistics
func (h *JobHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.worker.GetStats())
}
