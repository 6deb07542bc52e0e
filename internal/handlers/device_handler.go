package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "dmts/internal/errors"
	"dmts/internal/models"
	"dmts/internal/pagination"
	"dmts/internal/services"
)

// DeviceHandler handles device-related requests.
type DeviceHandler struct {
	deviceService services.DeviceServicer
}

// NewDeviceHandler creates a new DeviceHandler.
func NewDeviceHandler(deviceService services.DeviceServicer) *DeviceHandler {
	return &DeviceHandler{deviceService: deviceService}
}

// CreateDeviceRequest represents the request payload for registering a device.
type CreateDeviceRequest struct {
	Name         string              `json:"name" binding:"required,max=255"`
	SerialNumber string              `json:"serial_number" binding:"required,max=100"`
	Type         string              `json:"type" binding:"required,max=100"`
	Status       models.DeviceStatus `json:"status" binding:"omitempty,device_status"`
	Location     string              `json:"location" binding:"max=255"`
	AssignedToID *uint               `json:"assigned_to_id"`
}

// UpdateDeviceRequest represents the partial update payload for a device.
type UpdateDeviceRequest struct {
	Name         *string              `json:"name" binding:"omitempty,max=255"`
	Type         *string              `json:"type" binding:"omitempty,max=100"`
	Status       *models.DeviceStatus `json:"status" binding:"omitempty,device_status"`
	Location     *string              `json:"location" binding:"omitempty,max=255"`
	AssignedToID *uint                `json:"assigned_to_id"`
	Unassign     bool                 `json:"unassign"`
}

// ClearDeviceRequest carries the reason for a clearance.
type ClearDeviceRequest struct {
	Reason string `json:"clearance_reason" binding:"max=500"`
}

// deviceListQuery holds the device list filter parameters.
type deviceListQuery struct {
	pagination.PageRequest
	Status         models.DeviceStatus `form:"status" binding:"omitempty,device_status"`
	Type           string              `form:"type"`
	IncludeCleared bool                `form:"include_cleared"`
}

// CreateDevice registers a new device.
func (h *DeviceHandler) CreateDevice(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	device, err := h.deviceService.CreateDevice(actor, services.DeviceInput{
		Name:         req.Name,
		SerialNumber: req.SerialNumber,
		Type:         req.Type,
		Status:       req.Status,
		Location:     req.Location,
		AssignedToID: req.AssignedToID,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"device": device})
}

// ListDevices returns a paginated device list. Employees only see their own
// assigned devices.
func (h *DeviceHandler) ListDevices(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var q deviceListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	page, err := h.deviceService.ListDevices(actor, services.DeviceFilter{
		Status:         q.Status,
		Type:           q.Type,
		IncludeCleared: q.IncludeCleared,
	}, q.PageRequest)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetDevice returns a single device by serial number.
func (h *DeviceHandler) GetDevice(c *gin.Context) {
	device, err := h.deviceService.GetDeviceBySerial(c.Param("serial"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"device": device})
}

// UpdateDevice applies a partial update to a device.
func (h *DeviceHandler) UpdateDevice(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	device, err := h.deviceService.UpdateDevice(actor, c.Param("serial"), services.DeviceUpdate{
		Name:         req.Name,
		Type:         req.Type,
		Status:       req.Status,
		Location:     req.Location,
		AssignedToID: req.AssignedToID,
		Unassign:     req.Unassign,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"device": device})
}

// DeleteDevice removes a device and its dependent records.
func (h *DeviceHandler) DeleteDevice(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.deviceService.DeleteDevice(actor, c.Param("serial")); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Device deleted successfully"})
}

// AssignedDevices lists the devices assigned to a user.
func (h *DeviceHandler) AssignedDevices(c *gin.Context) {
	userID, err := parsePathID(c, "user_id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	devices, err := h.deviceService.AssignedDevices(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"devices": devices})
}

// ClearDevice runs the clearance workflow on a device.
func (h *DeviceHandler) ClearDevice(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ClearDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	device, err := h.deviceService.ClearDevice(actor, c.Param("serial"), req.Reason)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Device cleared successfully",
		"device":  device,
	})
}

// Distribution returns device counts grouped by status.
func (h *DeviceHandler) Distribution(c *gin.Context) {
	dist, err := h.deviceService.Distribution()
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"distribution": dist})
}

// ListClearanceLogs returns the clearance history.
func (h *DeviceHandler) ListClearanceLogs(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	logs, err := h.deviceService.ListClearanceLogs(page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}
