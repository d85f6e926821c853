package controllers

import (
	"tutorbook_go/services"
	"tutorbook_go/utils"

	"github.com/gofiber/fiber/v2"
)

type TeacherController struct {
	directory *services.Directory
}

func NewTeacherController(directory *services.Directory) *TeacherController {
	return &TeacherController{directory: directory}
}

type CreateTeacherRequest struct {
	UserName  string `json:"user_name"`
	HumanName string `json:"human_name"`
	Password  string `json:"password"`
	SubjectID uint   `json:"subject_id"`
}

// GetTeachers returns all teachers
func (tc *TeacherController) GetTeachers(c *fiber.Ctx) error {
	teachers, err := tc.directory.ListTeachers(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"teachers": utils.ToTeacherDTOs(teachers),
		"total":    len(teachers),
	})
}

// GetTeacher returns a specific teacher by ID
func (tc *TeacherController) GetTeacher(c *fiber.Ctx) error {
	id, err := parseID(c, "teacher")
	if err != nil {
		return respondError(c, err)
	}
	teacher, err := tc.directory.FindTeacher(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"teacher": utils.ToTeacherDTO(*teacher)})
}

// CreateTeacher registers a teacher with a subject
func (tc *TeacherController) CreateTeacher(c *fiber.Ctx) error {
	var req CreateTeacherRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	teacher, err := tc.directory.CreateTeacher(c.UserContext(), services.ProfileInput{
		UserName:  req.UserName,
		HumanName: req.HumanName,
		Password:  req.Password,
		SubjectID: req.SubjectID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Teacher created successfully",
		"teacher": utils.ToTeacherDTO(*teacher),
	})
}
