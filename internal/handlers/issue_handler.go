package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "dmts/internal/errors"
	"dmts/internal/models"
	"dmts/internal/pagination"
	"dmts/internal/services"
)

// IssueHandler handles issue-related requests.
type IssueHandler struct {
	issueService services.IssueServicer
}

// NewIssueHandler creates a new IssueHandler.
func NewIssueHandler(issueService services.IssueServicer) *IssueHandler {
	return &IssueHandler{issueService: issueService}
}

// CreateIssueRequest represents the request payload for reporting an issue.
type CreateIssueRequest struct {
	DeviceSerial string               `json:"device_serial" binding:"required,max=100"`
	Description  string               `json:"description" binding:"required,max=2000"`
	Priority     models.IssuePriority `json:"priority" binding:"omitempty,issue_priority"`
}

// UpdateIssueRequest represents the partial update payload for an issue.
type UpdateIssueRequest struct {
	Status   *models.IssueStatus `json:"status"`
	Response *string             `json:"response" binding:"omitempty,max=2000"`
}

// ResolveIssueRequest carries the staff response that resolves an issue.
type ResolveIssueRequest struct {
	Response string `json:"response" binding:"max=2000"`
}

// CreateIssue reports a new issue against a device the caller holds.
func (h *IssueHandler) CreateIssue(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}

	issue, err := h.issueService.CreateIssue(actor, req.DeviceSerial, req.Description, priority)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"issue": issue})
}

// ListIssues returns all issues, paginated.
func (h *IssueHandler) ListIssues(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	issues, err := h.issueService.ListIssues(page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, issues)
}

// GetIssue returns a single issue by ID.
func (h *IssueHandler) GetIssue(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	issue, err := h.issueService.GetIssue(id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"issue": issue})
}

// UpdateIssue applies a status or response change to an issue.
func (h *IssueHandler) UpdateIssue(c *gin.Context) {
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

	var req UpdateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	issue, err := h.issueService.UpdateIssue(actor, id, req.Status, req.Response)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"issue": issue})
}

// ResolveIssue marks an issue resolved with a staff response.
func (h *IssueHandler) ResolveIssue(c *gin.Context) {
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

	var req ResolveIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	issue, err := h.issueService.ResolveIssue(actor, id, req.Response)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"issue": issue})
}

// MyIssues lists the caller's reported issues.
func (h *IssueHandler) MyIssues(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	issues, err := h.issueService.UserIssues(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"issues": issues})
}

// UserIssues lists the issues reported by a given user.
func (h *IssueHandler) UserIssues(c *gin.Context) {
	userID, err := parsePathID(c, "user_id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	issues, err := h.issueService.UserIssues(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"issues": issues})
}

// DeleteIssue removes an issue.
func (h *IssueHandler) DeleteIssue(c *gin.Context) {
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

	if err := h.issueService.DeleteIssue(actor, id); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Issue deleted successfully"})
}
