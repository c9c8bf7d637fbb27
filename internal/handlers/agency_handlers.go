package handlers

import (
	"net/http"

	"pharmacy_pos_backend/internal/models"
	"pharmacy_pos_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// AgencyHandler holds the supplier agency service.
type AgencyHandler struct {
	agencyService services.AgencyService
}

// NewAgencyHandler creates a new AgencyHandler.
func NewAgencyHandler(as services.AgencyService) *AgencyHandler {
	return &AgencyHandler{agencyService: as}
}

func (h *AgencyHandler) CreateAgency(c *gin.Context) {
	ownerID, ok := currentTenantID(c)
	if !ok {
		return
	}
	var req services.AgencyRequest
	if !bindJSON(c, &req, "CreateAgency") {
		return
	}

	agency, err := h.agencyService.CreateAgency(c.Request.Context(), ownerID, req)
	if err != nil {
		respondServiceError(c, err, "CreateAgency", "Failed to create agency.")
		return
	}
	c.JSON(http.StatusCreated, agency)
}

func (h *AgencyHandler) GetAgencies(c *gin.Context) {
	ownerID, ok := currentTenantID(c)
	if !ok {
		return
	}

	agencies, err := h.agencyService.GetAgencies(c.Request.Context(), ownerID)
	if err != nil {
		respondServiceError(c, err, "GetAgencies", "Failed to fetch agencies.")
		return
	}
	if agencies == nil {
		agencies = []models.Agency{}
	}
	c.JSON(http.StatusOK, gin.H{"data": agencies})
}

func (h *AgencyHandler) GetAgencyByID(c *gin.Context) {
	ownerID, ok := currentTenantID(c)
	if !ok {
		return
	}
	agencyID, ok := parseIDParam(c, "id", "agency")
	if !ok {
		return
	}

	agency, err := h.agencyService.GetAgencyByID(c.Request.Context(), ownerID, agencyID)
	if err != nil {
		respondServiceError(c, err, "GetAgencyByID", "Failed to fetch agency.")
		return
	}
	c.JSON(http.StatusOK, agency)
}

func (h *AgencyHandler) UpdateAgency(c *gin.Context) {
	ownerID, ok := currentTenantID(c)
	if !ok {
		return
	}
	agencyID, ok := parseIDParam(c, "id", "agency")
	if !ok {
		return
	}
	var req services.AgencyRequest
	if !bindJSON(c, &req, "UpdateAgency") {
		return
	}

	agency, err := h.agencyService.UpdateAgency(c.Request.Context(), ownerID, agencyID, req)
	if err != nil {
		respondServiceError(c, err, "UpdateAgency", "Failed to update agency.")
		return
	}
	c.JSON(http.StatusOK, agency)
}

func (h *AgencyHandler) DeleteAgency(c *gin.Context) {
	ownerID, ok := currentTenantID(c)
	if !ok {
		return
	}
	agencyID, ok := parseIDParam(c, "id", "agency")
	if !ok {
		return
	}

	if err := h.agencyService.DeleteAgency(c.Request.Context(), ownerID, agencyID); err != nil {
		respondServiceError(c, err, "DeleteAgency", "Failed to delete agency.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Agency deleted successfully"})
}
