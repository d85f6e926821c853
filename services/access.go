package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"tutorbook_go/models"
)

// TeacherHeader carries the caller's teacher id on schedule requests.
const TeacherHeader = "Teacher-ID"

// TeacherFinder looks up teachers by id, returning ErrNotFound when absent.
type TeacherFinder interface {
	FindTeacher(ctx context.Context, id uint) (*models.Teacher, error)
}

// AccessGuard resolves who is calling and whether they own a schedule.
// Handlers call it explicitly before doing any work.
type AccessGuard struct {
	teachers TeacherFinder
}

func NewAccessGuard(teachers TeacherFinder) *AccessGuard {
	return &AccessGuard{teachers: teachers}
}

// ResolveCaller maps the Teacher-ID header value to a teacher with its
// subject loaded.
func (g *AccessGuard) ResolveCaller(ctx context.Context, header string) (*models.Teacher, error) {
	raw := strings.TrimSpace(header)
	if raw == "" {
		return nil, ErrMissingIdentity
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return nil, ErrUnknownIdentity
	}
	teacher, err := g.teachers.FindTeacher(ctx, uint(id))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrUnknownIdentity
	}
	if err != nil {
		return nil, err
	}
	return teacher, nil
}

// AuthorizeOwnership allows only the teacher the schedule belongs to.
func (g *AccessGuard) AuthorizeOwnership(caller *models.Teacher, schedule *models.Schedule) error {
	if caller == nil || schedule == nil || caller.ID != schedule.TeacherID {
		return ErrForbidden
	}
	return nil
}

// AuthorizeTeacher allows a caller to act only on their own teacher id.
func (g *AccessGuard) AuthorizeTeacher(caller *models.Teacher, teacherID uint) error {
	if caller == nil || caller.ID != teacherID {
		return ErrForbidden
	}
	return nil
}
