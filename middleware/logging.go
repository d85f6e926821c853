package middleware

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"tutorbook_go/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// RequestID keeps the caller's X-Request-ID or assigns a new uuid, and echoes
// it on the response.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals(requestIDKey, id)
		c.Set(RequestIDHeader, id)
		return c.Next()
	}
}

// GetRequestID returns the id assigned by RequestID, or "" outside it.
func GetRequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDKey).(string)
	return id
}

// LoggerMiddleware logs HTTP requests
func LoggerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		entry := logrus.WithFields(logrus.Fields{
			"request_id": GetRequestID(c),
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     status,
			"duration":   time.Since(start).String(),
			"ip":         c.IP(),
			"user_agent": c.Get("User-Agent"),
		})
		if status >= fiber.StatusInternalServerError {
			entry.Error("HTTP Request")
		} else {
			entry.Info("HTTP Request")
		}
		return err
	}
}

// LogActivityMiddleware records successful mutating requests as ActivityLog
// rows. The Teacher-ID header, when numeric, is stored as the actor.
func LogActivityMiddleware(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodGet || c.Method() == fiber.MethodHead || c.Method() == fiber.MethodOptions {
			return c.Next()
		}

		err := c.Next()
		if err != nil || c.Response().StatusCode() >= 400 || db == nil {
			return err
		}

		resource, resourceID, verb := describePath(c.Path())
		action := activityAction(c.Method(), verb)
		if action == "" || resource == "" {
			return nil
		}

		details, _ := json.Marshal(map[string]interface{}{
			"request_id":  GetRequestID(c),
			"method":      c.Method(),
			"path":        c.Path(),
			"status_code": c.Response().StatusCode(),
		})
		entry := models.ActivityLog{
			TeacherID:  actorID(c.Get("Teacher-ID")),
			Action:     action,
			Resource:   resource,
			ResourceID: resourceID,
			Details:    datatypes.JSON(details),
			IPAddress:  c.IP(),
			UserAgent:  c.Get("User-Agent"),
		}
		if dbErr := db.WithContext(c.UserContext()).Create(&entry).Error; dbErr != nil {
			logrus.WithError(dbErr).WithField("request_id", GetRequestID(c)).Error("Failed to save activity log")
		}
		return nil
	}
}

// describePath splits /api/<resource>[/<id>[/<verb>]].
func describePath(path string) (resource string, id uint, verb string) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || parts[0] != "api" {
		return "", 0, ""
	}
	resource = parts[1]
	rest := parts[2:]
	if len(rest) > 0 {
		if n, err := strconv.ParseUint(rest[0], 10, 32); err == nil {
			id = uint(n)
			rest = rest[1:]
		}
	}
	if len(rest) > 0 {
		verb = rest[len(rest)-1]
	}
	return resource, id, verb
}

func activityAction(method, verb string) string {
	switch {
	case verb == "complete":
		return "COMPLETE"
	case verb == "create-repeating":
		return "CREATE_REPEATING"
	case verb == "archive":
		return "ARCHIVE"
	}
	switch method {
	case fiber.MethodPost:
		return "CREATE"
	case fiber.MethodPut, fiber.MethodPatch:
		return "UPDATE"
	case fiber.MethodDelete:
		return "DELETE"
	}
	return ""
}

func actorID(header string) *uint {
	n, err := strconv.ParseUint(strings.TrimSpace(header), 10, 32)
	if err != nil || n == 0 {
		return nil
	}
	id := uint(n)
	return &id
}
