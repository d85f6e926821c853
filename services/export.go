package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"tutorbook_go/models"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

const (
	ExportSheet       = "Schedules"
	ExportContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ErrArchiveDisabled is returned when no export bucket is configured.
var ErrArchiveDisabled = errors.New("schedule archive is not configured")

var exportHeader = []interface{}{
	"ID", "Scheduled At", "Teacher", "Student", "Subject", "Status", "Completed Date",
}

// ArchiveUploader persists a finished export and returns where it went.
type ArchiveUploader interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// BuildScheduleWorkbook renders schedules as a single-sheet xlsx file, one
// row per schedule after the header.
func BuildScheduleWorkbook(schedules []models.Schedule) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close export workbook")
		}
	}()

	if err := f.SetSheetName("Sheet1", ExportSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(ExportSheet, "A1", &exportHeader); err != nil {
		return nil, err
	}

	for i, s := range schedules {
		completed := ""
		if s.CompletedDate != nil {
			completed = s.CompletedDate.String()
		}
		row := []interface{}{
			s.ID,
			s.ScheduledAt.String(),
			s.Teacher.HumanName,
			s.Student.HumanName,
			s.Subject.EnglishName,
			s.Status(),
			completed,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(ExportSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportService lists a teacher's schedules and renders or archives them.
type ExportService struct {
	query    *ScheduleQuery
	uploader ArchiveUploader
	keyFor   func(teacherID uint, at time.Time) string
	now      func() time.Time
}

// NewExportService wires the export. uploader may be nil, in which case
// Archive fails with ErrArchiveDisabled.
func NewExportService(query *ScheduleQuery, uploader ArchiveUploader, keyFor func(teacherID uint, at time.Time) string) *ExportService {
	return &ExportService{query: query, uploader: uploader, keyFor: keyFor, now: time.Now}
}

// Workbook renders the caller's schedules matching f. The filter's teacher is
// always replaced with the caller.
func (e *ExportService) Workbook(ctx context.Context, teacherID uint, f ScheduleFilter) ([]byte, error) {
	f.TeacherID = &teacherID
	schedules, err := e.query.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return BuildScheduleWorkbook(schedules)
}

// Archive renders the workbook and uploads it, returning the location.
func (e *ExportService) Archive(ctx context.Context, teacherID uint, f ScheduleFilter) (string, error) {
	if e.uploader == nil {
		return "", ErrArchiveDisabled
	}
	data, err := e.Workbook(ctx, teacherID, f)
	if err != nil {
		return "", err
	}
	key := e.keyFor(teacherID, e.now())
	location, err := e.uploader.Upload(ctx, key, ExportContentType, data)
	if err != nil {
		return "", err
	}
	logrus.WithFields(logrus.Fields{
		"teacher_id": teacherID,
		"location":   location,
		"bytes":      len(data),
	}).Info("Schedule export archived")
	return location, nil
}
