package routes

import (
	"time"

	"tutorbook_go/controllers"
	"tutorbook_go/middleware"
	"tutorbook_go/services"
	"tutorbook_go/storage"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Dependencies are the live handles the HTTP layer is built from. Redis and
// Archive are optional.
type Dependencies struct {
	DB                *gorm.DB
	Redis             *redis.Client
	DashboardCacheTTL time.Duration
	Archive           services.ArchiveUploader
	Environment       string
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// NewApp builds the fiber app with global middleware, all routes and the 404
// handler.
func NewApp(deps Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Teacher-ID,X-Request-ID",
	}))
	app.Use(middleware.RequestID())
	app.Use(middleware.LoggerMiddleware())
	app.Use(middleware.LogActivityMiddleware(deps.DB))

	SetupRoutes(app, deps)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":  "Route not found",
			"path":   c.Path(),
			"method": c.Method(),
		})
	})
	return app
}

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App, deps Dependencies) {
	var cache services.DashboardCache = services.NoDashboardCache{}
	if deps.Redis != nil {
		cache = services.NewRedisDashboardCache(deps.Redis, deps.DashboardCacheTTL)
	}

	directory := services.NewDirectory(deps.DB)
	guard := services.NewAccessGuard(directory)
	query := services.NewScheduleQuery(deps.DB, cache)
	booking := services.NewBookingService(services.NewGormScheduleStore(deps.DB), cache)
	if deps.Now != nil {
		query.WithClock(deps.Now)
		booking.WithClock(deps.Now)
	}
	export := services.NewExportService(query, deps.Archive, func(teacherID uint, at time.Time) string {
		return storage.ExportKey(teacherID, at, "xlsx")
	})
	health := services.NewHealthService(deps.DB, deps.Redis, deps.Environment, deps.Archive != nil)

	scheduleController := controllers.NewScheduleController(booking, query, guard, directory, export)
	teacherController := controllers.NewTeacherController(directory)
	studentController := controllers.NewStudentController(directory)
	subjectController := controllers.NewSubjectController(directory)
	healthController := controllers.NewHealthController(health)

	app.Get("/health", healthController.Health)

	api := app.Group("/api")

	// Schedules; static paths before /:id
	schedules := api.Group("/schedules")
	schedules.Get("/", scheduleController.GetSchedules)
	schedules.Post("/", scheduleController.CreateSchedule)
	schedules.Post("/create-repeating", scheduleController.CreateRepeatingSchedules)
	schedules.Get("/dashboard", scheduleController.GetDashboard)
	schedules.Get("/export", scheduleController.ExportSchedules)
	schedules.Post("/export/archive", scheduleController.ArchiveSchedules)
	schedules.Get("/:id", scheduleController.GetSchedule)
	schedules.Post("/:id/complete", scheduleController.CompleteSchedule)
	schedules.Delete("/:id", scheduleController.DeleteSchedule)

	teachers := api.Group("/teachers")
	teachers.Get("/", teacherController.GetTeachers)
	teachers.Post("/", teacherController.CreateTeacher)
	teachers.Get("/:id", teacherController.GetTeacher)

	students := api.Group("/students")
	students.Get("/", studentController.GetStudents)
	students.Post("/", studentController.CreateStudent)
	students.Get("/:id", studentController.GetStudent)

	subjects := api.Group("/subjects")
	subjects.Get("/", subjectController.GetSubjects)
	subjects.Post("/", subjectController.CreateSubject)
}

// ErrorHandler renders errors that escape handlers, such as panics caught by
// recover or fiber's own errors.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	logrus.WithFields(logrus.Fields{
		"request_id": middleware.GetRequestID(c),
		"error":      err.Error(),
		"path":       c.Path(),
		"method":     c.Method(),
		"status":     code,
	}).Error("Request error")

	return c.Status(code).JSON(fiber.Map{"error": message})
}
