package controllers

import (
	"errors"
	"fmt"
	"time"

	"tutorbook_go/models"
	"tutorbook_go/services"
	"tutorbook_go/utils"

	"github.com/gofiber/fiber/v2"
)

type ScheduleController struct {
	booking   *services.BookingService
	query     *services.ScheduleQuery
	guard     *services.AccessGuard
	directory *services.Directory
	export    *services.ExportService
}

func NewScheduleController(booking *services.BookingService, query *services.ScheduleQuery, guard *services.AccessGuard, directory *services.Directory, export *services.ExportService) *ScheduleController {
	return &ScheduleController{booking: booking, query: query, guard: guard, directory: directory, export: export}
}

// CreateScheduleRequest is the body of POST /schedules. subject_id is
// accepted for compatibility; the caller's subject is always used.
type CreateScheduleRequest struct {
	TeacherID   flexInt `json:"teacher_id"`
	StudentID   flexInt `json:"student_id"`
	SubjectID   flexInt `json:"subject_id"`
	ScheduledAt string  `json:"scheduled_at"`
}

type CreateRepeatingRequest struct {
	TeacherID flexInt `json:"teacher_id"`
	StudentID flexInt `json:"student_id"`
	SubjectID flexInt `json:"subject_id"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	Frequency flexInt `json:"frequency"`
}

// CreateSchedule books a single lesson
func (sc *ScheduleController) CreateSchedule(c *fiber.Ctx) error {
	var req CreateScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	caller, err := sc.authorizeCreate(c, req.TeacherID.ID(), req.StudentID.ID())
	if err != nil {
		return respondError(c, err)
	}

	date, err := sc.booking.CreateSingle(c.UserContext(), services.SingleBooking{
		TeacherID: caller.ID,
		StudentID: req.StudentID.ID(),
		SubjectID: caller.SubjectID,
		Date:      req.ScheduledAt,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status": "Schedule created",
		"date":   date,
	})
}

// CreateRepeatingSchedules books a lesson every two or four weeks
func (sc *ScheduleController) CreateRepeatingSchedules(c *fiber.Ctx) error {
	var req CreateRepeatingRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	caller, err := sc.authorizeCreate(c, req.TeacherID.ID(), req.StudentID.ID())
	if err != nil {
		return respondError(c, err)
	}

	dates, err := sc.booking.CreateRepeating(c.UserContext(), services.RepeatingBooking{
		TeacherID:      caller.ID,
		StudentID:      req.StudentID.ID(),
		SubjectID:      caller.SubjectID,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		FrequencyWeeks: int(req.Frequency),
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status": "Schedules created",
		"dates":  dates,
	})
}

// authorizeCreate resolves the caller, checks they book for themselves and
// that the student exists.
func (sc *ScheduleController) authorizeCreate(c *fiber.Ctx, teacherID, studentID uint) (*models.Teacher, error) {
	caller, err := sc.guard.ResolveCaller(c.UserContext(), c.Get(services.TeacherHeader))
	if err != nil {
		return nil, err
	}
	if err := sc.guard.AuthorizeTeacher(caller, teacherID); err != nil {
		return nil, err
	}
	if studentID == 0 {
		return nil, fmt.Errorf("%w: student_id is required", services.ErrInvalidInput)
	}
	if _, err := sc.directory.FindStudent(c.UserContext(), studentID); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return nil, fmt.Errorf("%w: student %d does not exist", services.ErrInvalidInput, studentID)
		}
		return nil, err
	}
	return caller, nil
}

// GetSchedules lists schedules matching the query filters
func (sc *ScheduleController) GetSchedules(c *fiber.Ctx) error {
	filter, err := filterFromQuery(c)
	if err != nil {
		return respondError(c, err)
	}

	schedules, err := sc.query.List(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"schedules": utils.ToScheduleDTOs(schedules),
		"total":     len(schedules),
	})
}

// GetSchedule returns a specific schedule by ID
func (sc *ScheduleController) GetSchedule(c *fiber.Ctx) error {
	id, err := parseID(c, "schedule")
	if err != nil {
		return respondError(c, err)
	}

	schedule, err := sc.query.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"schedule": utils.ToScheduleDTO(*schedule),
	})
}

// GetDashboard returns the caller's per-day schedule counts for a month
func (sc *ScheduleController) GetDashboard(c *fiber.Ctx) error {
	caller, err := sc.guard.ResolveCaller(c.UserContext(), c.Get(services.TeacherHeader))
	if err != nil {
		return respondError(c, err)
	}

	year, month, err := sc.query.DashboardMonth(c.Query("year"), c.Query("month"))
	if err != nil {
		return respondError(c, err)
	}

	counts, err := sc.query.Dashboard(c.UserContext(), caller.ID, year, month)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(counts)
}

// CompleteSchedule marks the caller's schedule as done today
func (sc *ScheduleController) CompleteSchedule(c *fiber.Ctx) error {
	id, err := parseID(c, "schedule")
	if err != nil {
		return respondError(c, err)
	}
	if _, err := sc.ownedSchedule(c, id); err != nil {
		return respondError(c, err)
	}

	schedule, err := sc.booking.MarkComplete(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"status":   "Schedule marked as complete",
		"schedule": utils.ToScheduleDTO(*schedule),
	})
}

// DeleteSchedule removes the caller's schedule if it is not completed
func (sc *ScheduleController) DeleteSchedule(c *fiber.Ctx) error {
	id, err := parseID(c, "schedule")
	if err != nil {
		return respondError(c, err)
	}
	if _, err := sc.ownedSchedule(c, id); err != nil {
		return respondError(c, err)
	}

	if err := sc.booking.DeleteSchedule(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ExportSchedules streams the caller's filtered schedules as an xlsx file
func (sc *ScheduleController) ExportSchedules(c *fiber.Ctx) error {
	caller, err := sc.guard.ResolveCaller(c.UserContext(), c.Get(services.TeacherHeader))
	if err != nil {
		return respondError(c, err)
	}
	filter, err := filterFromQuery(c)
	if err != nil {
		return respondError(c, err)
	}

	data, err := sc.export.Workbook(c.UserContext(), caller.ID, filter)
	if err != nil {
		return respondError(c, err)
	}

	filename := fmt.Sprintf("schedules-%d-%s.xlsx", caller.ID, time.Now().Format("20060102"))
	c.Set(fiber.HeaderContentType, services.ExportContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Send(data)
}

// ArchiveSchedules uploads the caller's filtered schedules to S3
func (sc *ScheduleController) ArchiveSchedules(c *fiber.Ctx) error {
	caller, err := sc.guard.ResolveCaller(c.UserContext(), c.Get(services.TeacherHeader))
	if err != nil {
		return respondError(c, err)
	}
	filter, err := filterFromQuery(c)
	if err != nil {
		return respondError(c, err)
	}

	location, err := sc.export.Archive(c.UserContext(), caller.ID, filter)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status":   "Export archived",
		"location": location,
	})
}

// ownedSchedule runs identity, existence and ownership checks in that order.
func (sc *ScheduleController) ownedSchedule(c *fiber.Ctx, id uint) (*models.Schedule, error) {
	caller, err := sc.guard.ResolveCaller(c.UserContext(), c.Get(services.TeacherHeader))
	if err != nil {
		return nil, err
	}
	schedule, err := sc.query.Get(c.UserContext(), id)
	if err != nil {
		return nil, err
	}
	if err := sc.guard.AuthorizeOwnership(caller, schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}

func filterFromQuery(c *fiber.Ctx) (services.ScheduleFilter, error) {
	return services.ParseScheduleFilter(
		c.Query("teacher_id"),
		c.Query("date_from"),
		c.Query("date_to"),
		c.Query("is_complete"),
	)
}
