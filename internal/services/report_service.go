package services

import (
	"encoding/csv"
	"io"
	"strconv"

	"gorm.io/gorm"

	apperrors "dmts/internal/errors"
	"dmts/internal/models"
)

// reportService streams CSV exports of the core inventory tables.
type reportService struct {
	db *gorm.DB
}

// NewReportService creates a new ReportServicer.
func NewReportService(db *gorm.DB) ReportServicer {
	return &reportService{db: db}
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// DeviceReport writes every device as a CSV row.
func (s *reportService) DeviceReport(w io.Writer) error {
	var devices []models.Device
	if err := s.db.Order("id").Find(&devices).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	rows := make([][]string, 0, len(devices))
	for _, d := range devices {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(d.ID), 10),
			d.Name,
			d.SerialNumber,
			d.Type,
			string(d.Status),
			d.Location,
		})
	}
	return writeCSV(w, []string{"ID", "Name", "Serial Number", "Type", "Status", "Location"}, rows)
}

// IssueReport writes every issue as a CSV row, with device serials and
// reporter usernames resolved.
func (s *reportService) IssueReport(w io.Writer) error {
	var issues []models.Issue
	if err := s.db.Preload("Device").Preload("User").Order("id").Find(&issues).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	rows := make([][]string, 0, len(issues))
	for _, i := range issues {
		device := ""
		if i.Device != nil {
			device = i.Device.SerialNumber
		}
		user := ""
		if i.User != nil {
			user = i.User.Username
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(i.ID), 10),
			device,
			user,
			i.Description,
			string(i.Status),
			i.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return writeCSV(w, []string{"ID", "Device", "User", "Description", "Status", "Created At"}, rows)
}

// MaintenanceReport writes every maintenance record as a CSV row.
func (s *reportService) MaintenanceReport(w io.Writer) error {
	var records []models.Maintenance
	if err := s.db.Preload("Device").Order("id").Find(&records).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	rows := make([][]string, 0, len(records))
	for _, m := range records {
		device := ""
		if m.Device != nil {
			device = m.Device.SerialNumber
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(m.ID), 10),
			device,
			m.MaintenanceDate.Format("2006-01-02"),
			m.Notes,
		})
	}
	return writeCSV(w, []string{"ID", "Device", "Maintenance Date", "Notes"}, rows)
}
