package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tutorbook_go/models"

	"github.com/sirupsen/logrus"
)

// Repeating bookings may not end more than MaxBookingHorizonDays after today.
const MaxBookingHorizonDays = 365

// AllowedFrequencies are the supported repeat intervals, in weeks.
var AllowedFrequencies = []int{2, 4}

// SingleBooking asks for one lesson on one day.
type SingleBooking struct {
	TeacherID uint
	StudentID uint
	SubjectID uint
	Date      string
}

// RepeatingBooking asks for one lesson every FrequencyWeeks weeks from
// StartDate through EndDate, both inclusive.
type RepeatingBooking struct {
	TeacherID      uint
	StudentID      uint
	SubjectID      uint
	StartDate      string
	EndDate        string
	FrequencyWeeks int
}

// BookingService enforces the booking, completion and deletion rules.
type BookingService struct {
	store ScheduleStore
	cache DashboardCache
	now   func() time.Time
}

func NewBookingService(store ScheduleStore, cache DashboardCache) *BookingService {
	if cache == nil {
		cache = NoDashboardCache{}
	}
	return &BookingService{store: store, cache: cache, now: time.Now}
}

// WithClock replaces the clock used for "today". Tests pin it.
func (b *BookingService) WithClock(now func() time.Time) *BookingService {
	b.now = now
	return b
}

func (b *BookingService) today() models.Date {
	return models.DateOf(b.now())
}

// CreateSingle books one day for the pair and returns it.
func (b *BookingService) CreateSingle(ctx context.Context, req SingleBooking) (models.Date, error) {
	date, err := parseBookingDate(req.Date)
	if err != nil {
		return models.Date{}, err
	}
	if req.TeacherID == 0 || req.StudentID == 0 {
		return models.Date{}, fmt.Errorf("%w: teacher and student are required", ErrInvalidInput)
	}

	schedule := &models.Schedule{
		TeacherID:   req.TeacherID,
		StudentID:   req.StudentID,
		SubjectID:   req.SubjectID,
		ScheduledAt: date,
	}
	if err := b.store.InsertIfAbsent(ctx, schedule); err != nil {
		return models.Date{}, err
	}

	b.cache.Invalidate(ctx, req.TeacherID, date.Year(), date.Month())
	logrus.WithFields(logrus.Fields{
		"schedule_id":  schedule.ID,
		"teacher_id":   req.TeacherID,
		"student_id":   req.StudentID,
		"scheduled_at": date.String(),
	}).Info("Schedule created")
	return date, nil
}

// CreateRepeating books every matching day in the range that is still free
// and returns the newly booked days, ascending. Days already booked for the
// pair are skipped, so the result may be empty.
func (b *BookingService) CreateRepeating(ctx context.Context, req RepeatingBooking) ([]models.Date, error) {
	start, err := parseBookingDate(req.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseBookingDate(req.EndDate)
	if err != nil {
		return nil, err
	}
	if req.TeacherID == 0 || req.StudentID == 0 {
		return nil, fmt.Errorf("%w: teacher and student are required", ErrInvalidInput)
	}
	if start.After(end) {
		return nil, ErrInvalidRange
	}
	if end.After(b.today().AddDays(MaxBookingHorizonDays)) {
		return nil, ErrRangeTooLong
	}
	if !validFrequency(req.FrequencyWeeks) {
		return nil, ErrInvalidFrequency
	}

	candidates := RepeatingDates(start, end, req.FrequencyWeeks)
	booked, err := b.store.FindDatesInRange(ctx, req.TeacherID, req.StudentID, start, end)
	if err != nil {
		return nil, err
	}
	taken := make(map[string]struct{}, len(booked))
	for _, d := range booked {
		taken[d.String()] = struct{}{}
	}

	rows := make([]models.Schedule, 0, len(candidates))
	for _, d := range candidates {
		if _, ok := taken[d.String()]; ok {
			continue
		}
		rows = append(rows, models.Schedule{
			TeacherID:   req.TeacherID,
			StudentID:   req.StudentID,
			SubjectID:   req.SubjectID,
			ScheduledAt: d,
		})
	}

	created, err := b.store.BulkInsert(ctx, rows)
	if err != nil {
		return nil, err
	}

	dates := make([]models.Date, 0, len(created))
	months := map[string]models.Date{}
	for _, s := range created {
		dates = append(dates, s.ScheduledAt)
		months[s.ScheduledAt.String()[:7]] = s.ScheduledAt
	}
	for _, d := range months {
		b.cache.Invalidate(ctx, req.TeacherID, d.Year(), d.Month())
	}

	logrus.WithFields(logrus.Fields{
		"teacher_id":      req.TeacherID,
		"student_id":      req.StudentID,
		"start_date":      start.String(),
		"end_date":        end.String(),
		"frequency_weeks": req.FrequencyWeeks,
		"candidates":      len(candidates),
		"created":         len(dates),
	}).Info("Repeating schedules created")
	return dates, nil
}

// MarkComplete completes the schedule with today's date. A second call fails
// with ErrAlreadyComplete and leaves the first completion date in place.
func (b *BookingService) MarkComplete(ctx context.Context, scheduleID uint) (*models.Schedule, error) {
	updated, err := b.store.UpdateCompletion(ctx, scheduleID, b.today())
	if err != nil {
		return nil, err
	}
	schedule, err := b.store.FindByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if !updated {
		return schedule, ErrAlreadyComplete
	}

	b.cache.Invalidate(ctx, schedule.TeacherID, schedule.ScheduledAt.Year(), schedule.ScheduledAt.Month())
	logrus.WithFields(logrus.Fields{
		"schedule_id":    scheduleID,
		"teacher_id":     schedule.TeacherID,
		"completed_date": schedule.CompletedDate.String(),
	}).Info("Schedule completed")
	return schedule, nil
}

// DeleteSchedule removes a schedule that has not been completed.
func (b *BookingService) DeleteSchedule(ctx context.Context, scheduleID uint) error {
	schedule, err := b.store.FindByID(ctx, scheduleID)
	if err != nil {
		return err
	}
	if schedule.IsComplete {
		return ErrCannotDeleteCompleted
	}

	deleted, err := b.store.Delete(ctx, scheduleID)
	if err != nil {
		return err
	}
	if !deleted {
		// Completed or removed by another request since the read above.
		current, err := b.store.FindByID(ctx, scheduleID)
		if err != nil {
			return err
		}
		if current.IsComplete {
			return ErrCannotDeleteCompleted
		}
		return fmt.Errorf("schedule %d was not deleted", scheduleID)
	}

	b.cache.Invalidate(ctx, schedule.TeacherID, schedule.ScheduledAt.Year(), schedule.ScheduledAt.Month())
	logrus.WithFields(logrus.Fields{
		"schedule_id":  scheduleID,
		"teacher_id":   schedule.TeacherID,
		"scheduled_at": schedule.ScheduledAt.String(),
	}).Info("Schedule deleted")
	return nil
}

// RepeatingDates lists start, start+7f, start+14f, ... up to and including end.
func RepeatingDates(start, end models.Date, frequencyWeeks int) []models.Date {
	if frequencyWeeks <= 0 || start.After(end) {
		return nil
	}
	step := 7 * frequencyWeeks
	var dates []models.Date
	for d := start; !d.After(end); d = d.AddDays(step) {
		dates = append(dates, d)
	}
	return dates
}

func validFrequency(weeks int) bool {
	for _, f := range AllowedFrequencies {
		if weeks == f {
			return true
		}
	}
	return false
}

func parseBookingDate(value string) (models.Date, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return models.Date{}, fmt.Errorf("%w: date is required", ErrInvalidInput)
	}
	d, err := models.ParseDate(value)
	if err != nil {
		return models.Date{}, fmt.Errorf("%w: %q is not a valid date", ErrInvalidInput, value)
	}
	return d, nil
}

// IsRuleViolation reports whether err is one of the client-facing rule errors.
func IsRuleViolation(err error) bool {
	for _, target := range []error{
		ErrConflict, ErrInvalidInput, ErrInvalidRange, ErrRangeTooLong,
		ErrInvalidFrequency, ErrAlreadyComplete, ErrCannotDeleteCompleted,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
