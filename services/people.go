package services

import (
	"context"
	"errors"
	"fmt"

	"tutorbook_go/models"
	"tutorbook_go/utils"

	"gorm.io/gorm"
)

// ErrDuplicateRecord is returned when a user name or subject name is taken.
var ErrDuplicateRecord = errors.New("a record with the same name already exists")

// ProfileInput is the payload for creating a teacher or a student.
type ProfileInput struct {
	UserName  string
	HumanName string
	Password  string
	SubjectID uint // teachers only
}

// SubjectInput is the payload for creating a subject.
type SubjectInput struct {
	KoreanName  string
	EnglishName string
}

// Directory manages teachers, students and subjects.
type Directory struct {
	db *gorm.DB
}

func NewDirectory(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

func (d *Directory) FindTeacher(ctx context.Context, id uint) (*models.Teacher, error) {
	var teacher models.Teacher
	err := d.db.WithContext(ctx).Preload("Subject").First(&teacher, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &teacher, nil
}

func (d *Directory) ListTeachers(ctx context.Context) ([]models.Teacher, error) {
	var teachers []models.Teacher
	err := d.db.WithContext(ctx).Preload("Subject").Order("id ASC").Find(&teachers).Error
	return teachers, err
}

func (d *Directory) CreateTeacher(ctx context.Context, in ProfileInput) (*models.Teacher, error) {
	profile, err := newProfile(in)
	if err != nil {
		return nil, err
	}
	if in.SubjectID == 0 {
		return nil, fmt.Errorf("%w: subject_id is required", ErrInvalidInput)
	}
	if _, err := d.FindSubject(ctx, in.SubjectID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: subject %d does not exist", ErrInvalidInput, in.SubjectID)
		}
		return nil, err
	}

	teacher := &models.Teacher{UserProfile: profile, SubjectID: in.SubjectID}
	if err := d.db.WithContext(ctx).Omit("Subject").Create(teacher).Error; err != nil {
		return nil, translateCreateError(err)
	}
	return d.FindTeacher(ctx, teacher.ID)
}

func (d *Directory) FindStudent(ctx context.Context, id uint) (*models.Student, error) {
	var student models.Student
	err := d.db.WithContext(ctx).First(&student, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func (d *Directory) ListStudents(ctx context.Context) ([]models.Student, error) {
	var students []models.Student
	err := d.db.WithContext(ctx).Order("id ASC").Find(&students).Error
	return students, err
}

func (d *Directory) CreateStudent(ctx context.Context, in ProfileInput) (*models.Student, error) {
	profile, err := newProfile(in)
	if err != nil {
		return nil, err
	}
	student := &models.Student{UserProfile: profile}
	if err := d.db.WithContext(ctx).Create(student).Error; err != nil {
		return nil, translateCreateError(err)
	}
	return student, nil
}

func (d *Directory) FindSubject(ctx context.Context, id uint) (*models.Subject, error) {
	var subject models.Subject
	err := d.db.WithContext(ctx).First(&subject, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

func (d *Directory) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	var subjects []models.Subject
	err := d.db.WithContext(ctx).Order("id ASC").Find(&subjects).Error
	return subjects, err
}

func (d *Directory) CreateSubject(ctx context.Context, in SubjectInput) (*models.Subject, error) {
	subject := &models.Subject{
		KoreanName:  utils.SanitizeString(in.KoreanName),
		EnglishName: utils.SanitizeString(in.EnglishName),
	}
	if subject.KoreanName == "" || subject.EnglishName == "" {
		return nil, fmt.Errorf("%w: korean_name and english_name are required", ErrInvalidInput)
	}
	if err := d.db.WithContext(ctx).Create(subject).Error; err != nil {
		return nil, translateCreateError(err)
	}
	return subject, nil
}

func newProfile(in ProfileInput) (models.UserProfile, error) {
	userName := utils.NormalizeUserName(in.UserName)
	humanName := utils.SanitizeString(in.HumanName)
	if userName == "" || humanName == "" {
		return models.UserProfile{}, fmt.Errorf("%w: user_name and human_name are required", ErrInvalidInput)
	}
	if len(in.Password) < utils.MinPasswordLength {
		return models.UserProfile{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, utils.MinPasswordLength)
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return models.UserProfile{}, err
	}
	return models.UserProfile{UserName: userName, HumanName: humanName, Password: hash}, nil
}

func translateCreateError(err error) error {
	if IsDuplicateKey(err) {
		return ErrDuplicateRecord
	}
	return err
}
