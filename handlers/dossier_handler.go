package handlers

import (
	"net/http"

	"jurigen-backend/service"

	"github.com/gin-gonic/gin"
)

// DossierHandler handles HTTP requests for stored dossiers
type DossierHandler struct {
	caseService *service.CaseService
}

// NewDossierHandler creates a new dossier handler
func NewDossierHandler(caseService *service.CaseService) *DossierHandler {
	return &DossierHandler{caseService: caseService}
}

// GetLatest handles GET /api/dossiers/latest
func (h *DossierHandler) GetLatest(c *gin.Context) {
	dossier, found, err := h.caseService.LatestDossier(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "RETRIEVAL_FAILED",
				"message": err.Error(),
			},
		})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "No dossier has been saved yet",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    dossier,
	})
}
