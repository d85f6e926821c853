package models

import (
	"time"

	"gorm.io/datatypes"
)

// Base model with common fields
type BaseModel struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at" gorm:"autoUpdateTime"`
}

// UserProfile is the field set shared by teachers and students.
type UserProfile struct {
	UserName  string `json:"user_name" gorm:"size:255;not null;uniqueIndex"`
	HumanName string `json:"human_name" gorm:"size:255;not null"`
	Password  string `json:"-" gorm:"size:255;not null"` // bcrypt hash
}

// Subject model
type Subject struct {
	BaseModel
	KoreanName  string `json:"korean_name" gorm:"size:100;not null;uniqueIndex"`
	EnglishName string `json:"english_name" gorm:"size:100;not null;uniqueIndex"`
}

// Teacher model
type Teacher struct {
	BaseModel
	UserProfile
	SubjectID uint `json:"subject_id" gorm:"not null;index"`

	// Relationships
	Subject Subject `json:"subject" gorm:"foreignKey:SubjectID"`
}

// Student model
type Student struct {
	BaseModel
	UserProfile
}

// Schedule is one dated lesson between a teacher and a student.
// At most one schedule exists per (teacher, student, day).
type Schedule struct {
	BaseModel
	TeacherID     uint  `json:"teacher_id" gorm:"not null;uniqueIndex:idx_schedule_booking,priority:1;index"`
	StudentID     uint  `json:"student_id" gorm:"not null;uniqueIndex:idx_schedule_booking,priority:2"`
	SubjectID     uint  `json:"subject_id" gorm:"not null"`
	ScheduledAt   Date  `json:"scheduled_at" gorm:"type:date;not null;uniqueIndex:idx_schedule_booking,priority:3;index"`
	IsComplete    bool  `json:"is_complete" gorm:"not null;default:false"`
	CompletedDate *Date `json:"completed_date" gorm:"type:date"` // set only when complete

	// Relationships
	Teacher Teacher `json:"teacher" gorm:"foreignKey:TeacherID"`
	Student Student `json:"student" gorm:"foreignKey:StudentID"`
	Subject Subject `json:"subject" gorm:"foreignKey:SubjectID"`
}

const (
	ScheduleStatusScheduled = "scheduled"
	ScheduleStatusCompleted = "completed"
)

// Status names the lifecycle state of the schedule.
func (s *Schedule) Status() string {
	if s.IsComplete {
		return ScheduleStatusCompleted
	}
	return ScheduleStatusScheduled
}

// ActivityLog records successful mutating requests for auditing.
type ActivityLog struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	TeacherID  *uint          `json:"teacher_id" gorm:"index"`
	Action     string         `json:"action" gorm:"size:100;not null"`
	Resource   string         `json:"resource" gorm:"size:100;not null"`
	ResourceID uint           `json:"resource_id"`
	Details    datatypes.JSON `json:"details"`
	IPAddress  string         `json:"ip_address" gorm:"size:45"`
	UserAgent  string         `json:"user_agent" gorm:"size:500"`
	CreatedAt  time.Time      `json:"created_at"`
}
