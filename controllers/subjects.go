package controllers

import (
	"tutorbook_go/services"
	"tutorbook_go/utils"

	"github.com/gofiber/fiber/v2"
)

type SubjectController struct {
	directory *services.Directory
}

func NewSubjectController(directory *services.Directory) *SubjectController {
	return &SubjectController{directory: directory}
}

type CreateSubjectRequest struct {
	KoreanName  string `json:"korean_name"`
	EnglishName string `json:"english_name"`
}

// GetSubjects returns all subjects
func (sc *SubjectController) GetSubjects(c *fiber.Ctx) error {
	subjects, err := sc.directory.ListSubjects(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"subjects": utils.ToSubjectDTOs(subjects)})
}

func (sc *SubjectController) CreateSubject(c *fiber.Ctx) error {
	var req CreateSubjectRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	subject, err := sc.directory.CreateSubject(c.UserContext(), services.SubjectInput{
		KoreanName:  req.KoreanName,
		EnglishName: req.EnglishName,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"subject": utils.ToSubjectDTO(*subject)})
}
