package controllers

import (
	"tutorbook_go/services"
	"tutorbook_go/utils"

	"github.com/gofiber/fiber/v2"
)

type StudentController struct {
	directory *services.Directory
}

func NewStudentController(directory *services.Directory) *StudentController {
	return &StudentController{directory: directory}
}

type CreateStudentRequest struct {
	UserName  string `json:"user_name"`
	HumanName string `json:"human_name"`
	Password  string `json:"password"`
}

// GetStudents returns all students
func (sc *StudentController) GetStudents(c *fiber.Ctx) error {
	students, err := sc.directory.ListStudents(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"students": utils.ToStudentDTOs(students),
		"total":    len(students),
	})
}

// GetStudent returns a specific student by ID
func (sc *StudentController) GetStudent(c *fiber.Ctx) error {
	id, err := parseID(c, "student")
	if err != nil {
		return respondError(c, err)
	}
	student, err := sc.directory.FindStudent(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"student": utils.ToStudentDTO(*student)})
}

// CreateStudent registers a student
func (sc *StudentController) CreateStudent(c *fiber.Ctx) error {
	var req CreateStudentRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	student, err := sc.directory.CreateStudent(c.UserContext(), services.ProfileInput{
		UserName:  req.UserName,
		HumanName: req.HumanName,
		Password:  req.Password,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Student created successfully",
		"student": utils.ToStudentDTO(*student),
	})
}
