package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "dmts/internal/errors"
	"dmts/internal/models"
	"dmts/internal/pagination"
	"dmts/internal/services"
)

// MaintenanceHandler handles maintenance scheduling requests.
type MaintenanceHandler struct {
	maintenanceService services.MaintenanceServicer
}

// NewMaintenanceHandler creates a new MaintenanceHandler.
func NewMaintenanceHandler(maintenanceService services.MaintenanceServicer) *MaintenanceHandler {
	return &MaintenanceHandler{maintenanceService: maintenanceService}
}

// CreateMaintenanceRequest represents the request payload for scheduling maintenance.
type CreateMaintenanceRequest struct {
	DeviceID        uint                     `json:"device_id" binding:"required"`
	MaintenanceDate string                   `json:"maintenance_date" binding:"required"`
	Status          models.MaintenanceStatus `json:"status" binding:"omitempty,maintenance_status"`
	Notes           string                   `json:"notes" binding:"max=2000"`
}

// UpdateMaintenanceRequest represents the partial update payload.
type UpdateMaintenanceRequest struct {
	MaintenanceDate *string                   `json:"maintenance_date"`
	Status          *models.MaintenanceStatus `json:"status" binding:"omitempty,maintenance_status"`
	Notes           *string                   `json:"notes" binding:"omitempty,max=2000"`
}

func parseMaintenanceDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid maintenance_date; use YYYY-MM-DD")
	}
	return t, nil
}

// CreateMaintenance schedules maintenance for a device.
func (h *MaintenanceHandler) CreateMaintenance(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	date, err := parseMaintenanceDate(req.MaintenanceDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	record, err := h.maintenanceService.CreateMaintenance(actor, services.MaintenanceInput{
		DeviceID:        req.DeviceID,
		MaintenanceDate: date,
		Status:          req.Status,
		Notes:           req.Notes,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"maintenance": record})
}

// ListMaintenances returns maintenance records, paginated.
func (h *MaintenanceHandler) ListMaintenances(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	records, err := h.maintenanceService.ListMaintenances(page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// GetMaintenance returns a single maintenance record by ID.
func (h *MaintenanceHandler) GetMaintenance(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	record, err := h.maintenanceService.GetMaintenance(id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"maintenance": record})
}

// UpdateMaintenance applies a partial update to a maintenance record.
func (h *MaintenanceHandler) UpdateMaintenance(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	update := services.MaintenanceUpdate{Status: req.Status, Notes: req.Notes}
	if req.MaintenanceDate != nil {
		date, err := parseMaintenanceDate(*req.MaintenanceDate)
		if err != nil {
			respondWithError(c, err)
			return
		}
		update.MaintenanceDate = &date
	}

	record, err := h.maintenanceService.UpdateMaintenance(actor, id, update)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"maintenance": record})
}

// DeleteMaintenance removes a maintenance record.
func (h *MaintenanceHandler) DeleteMaintenance(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.maintenanceService.DeleteMaintenance(actor, id); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Maintenance record deleted successfully"})
}
