package utils

import (
	"time"

	"tutorbook_go/models"
)

// Compact representations used across APIs
type SubjectDTO struct {
	ID          uint   `json:"id"`
	KoreanName  string `json:"korean_name"`
	EnglishName string `json:"english_name"`
}

type TeacherDTO struct {
	ID        uint       `json:"id"`
	UserName  string     `json:"user_name"`
	HumanName string     `json:"human_name"`
	Subject   SubjectDTO `json:"subject"`
}

type StudentDTO struct {
	ID        uint   `json:"id"`
	UserName  string `json:"user_name"`
	HumanName string `json:"human_name"`
}

type ScheduleDTO struct {
	ID            uint         `json:"id"`
	Teacher       TeacherDTO   `json:"teacher"`
	Student       StudentDTO   `json:"student"`
	Subject       SubjectDTO   `json:"subject"`
	IsComplete    bool         `json:"is_complete"`
	Status        string       `json:"status"`
	CompletedDate *models.Date `json:"completed_date"`
	ScheduledAt   models.Date  `json:"scheduled_at"`
	CreatedAt     time.Time    `json:"created_at"`
	ModifiedAt    time.Time    `json:"modified_at"`
}

func ToSubjectDTO(s models.Subject) SubjectDTO {
	return SubjectDTO{ID: s.ID, KoreanName: s.KoreanName, EnglishName: s.EnglishName}
}

// ToTeacherDTO expects Subject to be preloaded; otherwise only its id is set.
func ToTeacherDTO(t models.Teacher) TeacherDTO {
	subject := ToSubjectDTO(t.Subject)
	if subject.ID == 0 {
		subject.ID = t.SubjectID
	}
	return TeacherDTO{ID: t.ID, UserName: t.UserName, HumanName: t.HumanName, Subject: subject}
}

func ToStudentDTO(s models.Student) StudentDTO {
	return StudentDTO{ID: s.ID, UserName: s.UserName, HumanName: s.HumanName}
}

// ToScheduleDTO maps a schedule with Teacher.Subject, Student and Subject
// preloaded. Missing relations fall back to their ids.
func ToScheduleDTO(s models.Schedule) ScheduleDTO {
	teacher := ToTeacherDTO(s.Teacher)
	if teacher.ID == 0 {
		teacher.ID = s.TeacherID
	}
	student := ToStudentDTO(s.Student)
	if student.ID == 0 {
		student.ID = s.StudentID
	}
	subject := ToSubjectDTO(s.Subject)
	if subject.ID == 0 {
		subject.ID = s.SubjectID
	}
	return ScheduleDTO{
		ID:            s.ID,
		Teacher:       teacher,
		Student:       student,
		Subject:       subject,
		IsComplete:    s.IsComplete,
		Status:        s.Status(),
		CompletedDate: s.CompletedDate,
		ScheduledAt:   s.ScheduledAt,
		CreatedAt:     s.CreatedAt,
		ModifiedAt:    s.ModifiedAt,
	}
}

func ToScheduleDTOs(schedules []models.Schedule) []ScheduleDTO {
	out := make([]ScheduleDTO, 0, len(schedules))
	for _, s := range schedules {
		out = append(out, ToScheduleDTO(s))
	}
	return out
}

func ToTeacherDTOs(teachers []models.Teacher) []TeacherDTO {
	out := make([]TeacherDTO, 0, len(teachers))
	for _, t := range teachers {
		out = append(out, ToTeacherDTO(t))
	}
	return out
}

func ToStudentDTOs(students []models.Student) []StudentDTO {
	out := make([]StudentDTO, 0, len(students))
	for _, s := range students {
		out = append(out, ToStudentDTO(s))
	}
	return out
}

func ToSubjectDTOs(subjects []models.Subject) []SubjectDTO {
	out := make([]SubjectDTO, 0, len(subjects))
	for _, s := range subjects {
		out = append(out, ToSubjectDTO(s))
	}
	return out
}
