package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tutorbook_go/models"
	"tutorbook_go/utils"

	"gorm.io/gorm"
)

// ScheduleFilter narrows a schedule listing. Nil fields are not applied.
type ScheduleFilter struct {
	TeacherID  *uint
	DateFrom   *models.Date
	DateTo     *models.Date
	IsComplete *bool
}

// ParseScheduleFilter reads the raw query parameters of a listing request.
// Empty values mean "not given".
func ParseScheduleFilter(teacherID, dateFrom, dateTo, isComplete string) (ScheduleFilter, error) {
	var f ScheduleFilter

	if v := strings.TrimSpace(teacherID); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return f, fmt.Errorf("%w: teacher_id must be a number", ErrInvalidInput)
		}
		tid := uint(id)
		f.TeacherID = &tid
	}
	if v := strings.TrimSpace(dateFrom); v != "" {
		d, err := models.ParseDate(v)
		if err != nil {
			return f, fmt.Errorf("%w: date_from %q is not a valid date", ErrInvalidInput, v)
		}
		f.DateFrom = &d
	}
	if v := strings.TrimSpace(dateTo); v != "" {
		d, err := models.ParseDate(v)
		if err != nil {
			return f, fmt.Errorf("%w: date_to %q is not a valid date", ErrInvalidInput, v)
		}
		f.DateTo = &d
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateFrom.After(*f.DateTo) {
		return f, ErrInvalidRange
	}
	if v := strings.TrimSpace(isComplete); v != "" {
		// Anything other than "true" filters for incomplete schedules.
		flag := utils.ParseBoolParam(v)
		f.IsComplete = &flag
	}
	return f, nil
}

// Scopes turns the filter into gorm scopes.
func (f ScheduleFilter) Scopes() []func(*gorm.DB) *gorm.DB {
	scopes := []func(*gorm.DB) *gorm.DB{}
	if f.TeacherID != nil {
		scopes = append(scopes, ByTeacher(*f.TeacherID))
	}
	if f.DateFrom != nil || f.DateTo != nil {
		scopes = append(scopes, ByDateRange(f.DateFrom, f.DateTo))
	}
	if f.IsComplete != nil {
		scopes = append(scopes, ByCompletion(*f.IsComplete))
	}
	return scopes
}

func ByTeacher(teacherID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("schedules.teacher_id = ?", teacherID)
	}
}

// ByDateRange keeps schedules on or between the given days. Either bound may
// be nil. An inverted range adds ErrInvalidRange to the statement.
func ByDateRange(from, to *models.Date) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if from != nil && to != nil && from.After(*to) {
			_ = db.AddError(ErrInvalidRange)
			return db
		}
		if from != nil {
			db = db.Where("schedules.scheduled_at >= ?", *from)
		}
		if to != nil {
			db = db.Where("schedules.scheduled_at <= ?", *to)
		}
		return db
	}
}

func ByCompletion(complete bool) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("schedules.is_complete = ?", complete)
	}
}

// ScheduleQuery serves the read side: listings, single lookups and the
// monthly dashboard.
type ScheduleQuery struct {
	db    *gorm.DB
	cache DashboardCache
	now   func() time.Time
}

func NewScheduleQuery(db *gorm.DB, cache DashboardCache) *ScheduleQuery {
	if cache == nil {
		cache = NoDashboardCache{}
	}
	return &ScheduleQuery{db: db, cache: cache, now: time.Now}
}

// WithClock replaces the clock used for the default dashboard month.
func (q *ScheduleQuery) WithClock(now func() time.Time) *ScheduleQuery {
	q.now = now
	return q
}

// List returns the filtered schedules ordered by day, then id.
func (q *ScheduleQuery) List(ctx context.Context, f ScheduleFilter) ([]models.Schedule, error) {
	var schedules []models.Schedule
	err := q.db.WithContext(ctx).
		Preload("Teacher.Subject").Preload("Student").Preload("Subject").
		Scopes(f.Scopes()...).
		Order("schedules.scheduled_at ASC").Order("schedules.id ASC").
		Find(&schedules).Error
	if err != nil {
		return nil, err
	}
	return schedules, nil
}

func (q *ScheduleQuery) Get(ctx context.Context, id uint) (*models.Schedule, error) {
	var schedule models.Schedule
	err := q.db.WithContext(ctx).
		Preload("Teacher.Subject").Preload("Student").Preload("Subject").
		First(&schedule, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

// DashboardMonth resolves the raw year/month parameters, defaulting each to
// the current one.
func (q *ScheduleQuery) DashboardMonth(rawYear, rawMonth string) (int, time.Month, error) {
	now := q.now()
	year, month := now.Year(), now.Month()

	if v := strings.TrimSpace(rawYear); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			return 0, 0, fmt.Errorf("%w: year must be a number between 1 and 9999", ErrInvalidInput)
		}
		year = y
	}
	if v := strings.TrimSpace(rawMonth); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return 0, 0, fmt.Errorf("%w: month must be a number between 1 and 12", ErrInvalidInput)
		}
		month = time.Month(m)
	}
	return year, month, nil
}

type dashboardRow struct {
	ScheduledAt models.Date
	Count       int64
}

// Dashboard counts the teacher's schedules per day of the month. Days with no
// schedules are absent from the result.
func (q *ScheduleQuery) Dashboard(ctx context.Context, teacherID uint, year int, month time.Month) (map[string]int64, error) {
	counts, generation, ok := q.cache.Get(ctx, teacherID, year, month)
	if ok {
		return counts, nil
	}

	first, last := models.FirstOfMonth(year, month), models.LastOfMonth(year, month)
	var rows []dashboardRow
	err := q.db.WithContext(ctx).Model(&models.Schedule{}).
		Select("schedules.scheduled_at AS scheduled_at, COUNT(schedules.id) AS count").
		Scopes(ByTeacher(teacherID), ByDateRange(&first, &last)).
		Group("schedules.scheduled_at").
		Order("schedules.scheduled_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts = make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.ScheduledAt.String()] = r.Count
	}
	q.cache.Set(ctx, teacherID, year, month, generation, counts)
	return counts, nil
}
