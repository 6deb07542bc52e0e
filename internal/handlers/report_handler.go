package handlers

import (
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"dmts/internal/services"
)

// ReportHandler streams CSV report downloads.
type ReportHandler struct {
	reportService services.ReportServicer
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService services.ReportServicer) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func (h *ReportHandler) streamCSV(c *gin.Context, name string, write func(io.Writer) error) {
	filename := fmt.Sprintf("%s_report_%s.csv", name, time.Now().Format("20060102"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := write(c.Writer); err != nil {
		respondWithError(c, err)
		return
	}
}

// DeviceReport downloads the device inventory as CSV.
func (h *ReportHandler) DeviceReport(c *gin.Context) {
	h.streamCSV(c, "devices", h.reportService.DeviceReport)
}

// IssueReport downloads all issues as CSV.
func (h *ReportHandler) IssueReport(c *gin.Context) {
	h.streamCSV(c, "issues", h.reportService.IssueReport)
}

// MaintenanceReport downloads all maintenance records as CSV.
func (h *ReportHandler) MaintenanceReport(c *gin.Context) {
	h.streamCSV(c, "maintenance", h.reportService.MaintenanceReport)
}
