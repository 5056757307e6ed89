package handlers

import (
	"net/http"

	"github.com/estatedesk/estatedesk-api/internal/services"
	"github.com/gin-gonic/gin"
)

type PropertyHandler struct {
	propertySvc *services.PropertyService
}

func NewPropertyHandler(propertySvc *services.PropertyService) *PropertyHandler {
	return &PropertyHandler{propertySvc: propertySvc}
}

// StreetAvailability returns recomputed plot counts for a street
func (h *PropertyHandler) StreetAvailability(c *gin.Context) {
	streetID, ok := idParam(c, "street_id")
	if !ok {
		return
	}

	counts, err := h.propertySvc.StreetAvailability(c.Request.Context(), streetID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, counts)
}

// SocietyAvailability returns recomputed plot counts across a society
func (h *PropertyHandler) SocietyAvailability(c *gin.Context) {
	societyID, ok := idParam(c, "society_id")
	if !ok {
		return
	}

	counts, err := h.propertySvc.SocietyAvailability(c.Request.Context(), societyID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, counts)
}

// DeleteSociety removes a society with no blocks
func (h *PropertyHandler) DeleteSociety(c *gin.Context) {
	societyID, ok := idParam(c, "society_id")
	if !ok {
		return
	}

	if err := h.propertySvc.DeleteSociety(c.Request.Context(), societyID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "society deleted"})
}

// DeleteBlock removes a block with no streets
func (h *PropertyHandler) DeleteBlock(c *gin.Context) {
	blockID, ok := idParam(c, "block_id")
	if !ok {
		return
	}

	if err := h.propertySvc.DeleteBlock(c.Request.Context(), blockID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "block deleted"})
}

// DeleteStreet removes a street with no plots
func (h *PropertyHandler) DeleteStreet(c *gin.Context) {
	streetID, ok := idParam(c, "street_id")
	if !ok {
		return
	}

	if err := h.propertySvc.DeleteStreet(c.Request.Context(), streetID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "street deleted"})
}

// DeletePlot removes an available plot
func (h *PropertyHandler) DeletePlot(c *gin.Context) {
	plotID, ok := idParam(c, "plot_id")
	if !ok {
		return
	}

	if err := h.propertySvc.DeletePlot(c.Request.Context(), plotID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "plot deleted"})
}
