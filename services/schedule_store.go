package services

import (
	"context"
	"errors"

	"tutorbook_go/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ScheduleStore is the persistence boundary of the booking engine.
// Every method is a single atomic call against the store.
type ScheduleStore interface {
	FindByID(ctx context.Context, id uint) (*models.Schedule, error)
	FindByTeacherStudentDate(ctx context.Context, teacherID, studentID uint, date models.Date) (*models.Schedule, error)
	FindDatesInRange(ctx context.Context, teacherID, studentID uint, from, to models.Date) ([]models.Date, error)
	InsertIfAbsent(ctx context.Context, schedule *models.Schedule) error
	BulkInsert(ctx context.Context, schedules []models.Schedule) ([]models.Schedule, error)
	UpdateCompletion(ctx context.Context, id uint, completedOn models.Date) (bool, error)
	Delete(ctx context.Context, id uint) (bool, error)
}

// GormScheduleStore implements ScheduleStore on a gorm handle. The unique
// index idx_schedule_booking is what guarantees one booking per day.
type GormScheduleStore struct {
	db *gorm.DB
}

func NewGormScheduleStore(db *gorm.DB) *GormScheduleStore {
	return &GormScheduleStore{db: db}
}

func (s *GormScheduleStore) FindByID(ctx context.Context, id uint) (*models.Schedule, error) {
	var schedule models.Schedule
	err := s.db.WithContext(ctx).
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

func (s *GormScheduleStore) FindByTeacherStudentDate(ctx context.Context, teacherID, studentID uint, date models.Date) (*models.Schedule, error) {
	return findBooking(s.db.WithContext(ctx), teacherID, studentID, date)
}

func findBooking(db *gorm.DB, teacherID, studentID uint, date models.Date) (*models.Schedule, error) {
	var schedule models.Schedule
	err := db.Where("teacher_id = ? AND student_id = ? AND scheduled_at = ?", teacherID, studentID, date).
		Take(&schedule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

// FindDatesInRange returns the booked days of a teacher/student pair within
// [from, to], ascending.
func (s *GormScheduleStore) FindDatesInRange(ctx context.Context, teacherID, studentID uint, from, to models.Date) ([]models.Date, error) {
	var dates []models.Date
	err := s.db.WithContext(ctx).Model(&models.Schedule{}).
		Where("teacher_id = ? AND student_id = ?", teacherID, studentID).
		Scopes(ByDateRange(&from, &to)).
		Order("scheduled_at ASC").
		Pluck("scheduled_at", &dates).Error
	return dates, err
}

// InsertIfAbsent checks and inserts in one transaction. A unique index hit
// from a concurrent request is reported as ErrConflict as well.
func (s *GormScheduleStore) InsertIfAbsent(ctx context.Context, schedule *models.Schedule) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := findBooking(tx, schedule.TeacherID, schedule.StudentID, schedule.ScheduledAt)
		switch {
		case err == nil:
			return ErrConflict
		case !errors.Is(err, ErrNotFound):
			return err
		}
		if err := tx.Omit(clause.Associations).Create(schedule).Error; err != nil {
			if IsDuplicateKey(err) {
				return ErrConflict
			}
			return err
		}
		return nil
	})
}

// BulkInsert writes all rows with one INSERT. If another request booked one
// of the days in the meantime, the rows are retried one by one and only the
// conflicting ones are dropped. The persisted rows are returned.
func (s *GormScheduleStore) BulkInsert(ctx context.Context, schedules []models.Schedule) ([]models.Schedule, error) {
	if len(schedules) == 0 {
		return nil, nil
	}
	db := s.db.WithContext(ctx)

	batch := make([]models.Schedule, len(schedules))
	copy(batch, schedules)
	err := db.Omit(clause.Associations).Create(&batch).Error
	if err == nil {
		return batch, nil
	}
	if !IsDuplicateKey(err) {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"teacher_id": schedules[0].TeacherID,
		"student_id": schedules[0].StudentID,
		"rows":       len(schedules),
	}).Warn("Bulk schedule insert hit a concurrent booking, retrying row by row")

	created := make([]models.Schedule, 0, len(schedules))
	for _, candidate := range schedules {
		row := candidate
		row.ID = 0
		if err := db.Omit(clause.Associations).Create(&row).Error; err != nil {
			if IsDuplicateKey(err) {
				logrus.WithField("scheduled_at", row.ScheduledAt.String()).Info("Skipping day booked concurrently")
				continue
			}
			return created, err
		}
		created = append(created, row)
	}
	return created, nil
}

// UpdateCompletion flips an incomplete schedule to complete. It reports false
// when no incomplete row with that id exists.
func (s *GormScheduleStore) UpdateCompletion(ctx context.Context, id uint, completedOn models.Date) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Schedule{}).
		Where("id = ? AND is_complete = ?", id, false).
		Updates(map[string]interface{}{
			"is_complete":    true,
			"completed_date": completedOn,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Delete removes an incomplete schedule. It reports false when no incomplete
// row with that id exists.
func (s *GormScheduleStore) Delete(ctx context.Context, id uint) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("is_complete = ?", false).
		Delete(&models.Schedule{}, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
