package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tutorbook_go/database"
	"tutorbook_go/models"
	"tutorbook_go/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testServer struct {
	app *fiber.App
	db  *gorm.DB
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	db, err := database.OpenSQLite(":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	subject := models.Subject{KoreanName: "영어", EnglishName: "English"}
	require.NoError(t, db.Create(&subject).Error)
	for _, id := range []uint{5, 7} {
		teacher := models.Teacher{
			BaseModel:   models.BaseModel{ID: id},
			UserProfile: models.UserProfile{UserName: fmt.Sprintf("teacher%d", id), HumanName: fmt.Sprintf("Teacher %d", id), Password: "x"},
			SubjectID:   subject.ID,
		}
		require.NoError(t, db.Omit("Subject").Create(&teacher).Error)
	}
	student := models.Student{
		BaseModel:   models.BaseModel{ID: 3},
		UserProfile: models.UserProfile{UserName: "student3", HumanName: "Student 3", Password: "x"},
	}
	require.NoError(t, db.Create(&student).Error)

	app := NewApp(Dependencies{
		DB:          db,
		Environment: "test",
		Now: func() time.Time {
			return time.Date(2024, time.January, 1, 10, 0, 0, 0, time.Local)
		},
	})
	return testServer{app: app, db: db}
}

func (s testServer) do(t *testing.T, method, path, teacherID string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if teacherID != "" {
		req.Header.Set(services.TeacherHeader, teacherID)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	if len(raw) > 0 && bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (s testServer) book(t *testing.T, teacherID uint, day string) models.Schedule {
	t.Helper()
	d, err := models.ParseDate(day)
	require.NoError(t, err)
	schedule := models.Schedule{TeacherID: teacherID, StudentID: 3, SubjectID: 1, ScheduledAt: d}
	require.NoError(t, s.db.Omit("Teacher", "Student", "Subject").Create(&schedule).Error)
	return schedule
}

func TestCreateRepeatingEndpoint(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/api/schedules/create-repeating", "7", map[string]interface{}{
		"teacher_id": 7, "student_id": 3, "start_date": "2024-01-01", "end_date": "2024-02-26", "frequency": 2,
	})
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "Schedules created", body["status"])
	assert.Equal(t, []interface{}{"2024-01-01", "2024-01-15", "2024-01-29", "2024-02-12", "2024-02-26"}, body["dates"])

	var count int64
	require.NoError(t, s.db.Model(&models.Schedule{}).Count(&count).Error)
	assert.Equal(t, int64(5), count)

	status, body = s.do(t, http.MethodPost, "/api/schedules/create-repeating", "7", map[string]interface{}{
		"teacher_id": 7, "student_id": 3, "start_date": "2024-01-01", "end_date": "2024-02-26", "frequency": 3,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, services.ErrInvalidFrequency.Error(), body["error"])

	status, _ = s.do(t, http.MethodPost, "/api/schedules/create-repeating", "7", map[string]interface{}{
		"teacher_id": 7, "student_id": 3, "start_date": "2024-01-01", "end_date": "2025-01-02", "frequency": 2,
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCreateScheduleEndpoint(t *testing.T) {
	s := newTestServer(t)
	payload := map[string]interface{}{"teacher_id": 7, "student_id": 3, "subject_id": 99, "scheduled_at": "2024-03-05"}

	status, body := s.do(t, http.MethodPost, "/api/schedules", "", payload)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, services.ErrMissingIdentity.Error(), body["error"])

	status, _ = s.do(t, http.MethodPost, "/api/schedules", "42", payload)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodPost, "/api/schedules", "5", payload)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = s.do(t, http.MethodPost, "/api/schedules", "7", payload)
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "Schedule created", body["status"])
	assert.Equal(t, "2024-03-05", body["date"])

	var created models.Schedule
	require.NoError(t, s.db.First(&created).Error)
	assert.Equal(t, uint(1), created.SubjectID)

	status, body = s.do(t, http.MethodPost, "/api/schedules", "7", payload)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, services.ErrConflict.Error(), body["error"])

	status, _ = s.do(t, http.MethodPost, "/api/schedules", "7", map[string]interface{}{
		"teacher_id": 7, "student_id": 99, "scheduled_at": "2024-03-06",
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCompleteScheduleEndpoint(t *testing.T) {
	s := newTestServer(t)
	schedule := s.book(t, 7, "2024-03-05")
	path := fmt.Sprintf("/api/schedules/%d/complete", schedule.ID)

	status, body := s.do(t, http.MethodPost, path, "5", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, services.ErrForbidden.Error(), body["error"])

	status, _ = s.do(t, http.MethodPost, path, "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodPost, "/api/schedules/999/complete", "7", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = s.do(t, http.MethodPost, path, "7", nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Schedule marked as complete", body["status"])
	dto := body["schedule"].(map[string]interface{})
	assert.Equal(t, true, dto["is_complete"])
	assert.Equal(t, "2024-01-01", dto["completed_date"])

	status, body = s.do(t, http.MethodPost, path, "7", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, services.ErrAlreadyComplete.Error(), body["error"])

	var logs []models.ActivityLog
	require.NoError(t, s.db.Where("action = ?", "COMPLETE").Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "schedules", logs[0].Resource)
	assert.Equal(t, schedule.ID, logs[0].ResourceID)
	require.NotNil(t, logs[0].TeacherID)
	assert.Equal(t, uint(7), *logs[0].TeacherID)
}

func TestDeleteScheduleEndpoint(t *testing.T) {
	s := newTestServer(t)
	open := s.book(t, 7, "2024-03-05")
	done := s.book(t, 7, "2024-03-12")
	require.NoError(t, s.db.Model(&models.Schedule{}).Where("id = ?", done.ID).
		Updates(map[string]interface{}{"is_complete": true, "completed_date": models.NewDate(2024, 3, 12)}).Error)

	status, _ := s.do(t, http.MethodDelete, fmt.Sprintf("/api/schedules/%d", open.ID), "5", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body := s.do(t, http.MethodDelete, fmt.Sprintf("/api/schedules/%d", done.ID), "7", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, services.ErrCannotDeleteCompleted.Error(), body["error"])

	status, _ = s.do(t, http.MethodDelete, fmt.Sprintf("/api/schedules/%d", open.ID), "7", nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = s.do(t, http.MethodGet, fmt.Sprintf("/api/schedules/%d", open.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = s.do(t, http.MethodDelete, "/api/schedules/abc", "7", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestListSchedulesEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.book(t, 7, "2024-03-05")
	s.book(t, 7, "2024-03-20")
	s.book(t, 5, "2024-03-10")

	status, body := s.do(t, http.MethodGet, "/api/schedules", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(3), body["total"])

	status, body = s.do(t, http.MethodGet, "/api/schedules?teacher_id=7&date_from=2024-03-06", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["total"])
	first := body["schedules"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "2024-03-20", first["scheduled_at"])
	assert.Equal(t, "teacher7", first["teacher"].(map[string]interface{})["user_name"])
	assert.Equal(t, "English", first["subject"].(map[string]interface{})["english_name"])

	status, body = s.do(t, http.MethodGet, "/api/schedules?date_from=2024-03-20&date_to=2024-03-01", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, services.ErrInvalidRange.Error(), body["error"])
}

func TestDashboardEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.book(t, 7, "2024-03-05")
	s.book(t, 7, "2024-03-10")
	s.book(t, 5, "2024-03-05")

	status, body := s.do(t, http.MethodGet, "/api/schedules/dashboard?year=2024&month=3", "7", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]interface{}{"2024-03-05": float64(1), "2024-03-10": float64(1)}, body)

	status, body = s.do(t, http.MethodGet, "/api/schedules/dashboard", "7", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body)

	status, _ = s.do(t, http.MethodGet, "/api/schedules/dashboard?month=13", "7", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodGet, "/api/schedules/dashboard", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestExportEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.book(t, 7, "2024-03-05")

	req := httptest.NewRequest(http.MethodGet, "/api/schedules/export", nil)
	req.Header.Set(services.TeacherHeader, "7")
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, services.ExportContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "schedules-7-")
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("PK")))

	status, body := s.do(t, http.MethodPost, "/api/schedules/export/archive", "7", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, services.ErrArchiveDisabled.Error(), body["error"])
}

func TestDirectoryEndpoints(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/api/teachers", "", map[string]interface{}{
		"user_name": "newbie", "human_name": "New Teacher", "password": "longenough", "subject_id": 1,
	})
	require.Equal(t, http.StatusCreated, status, body)
	teacher := body["teacher"].(map[string]interface{})
	assert.Equal(t, "newbie", teacher["user_name"])
	_, hasPassword := teacher["password"]
	assert.False(t, hasPassword)

	status, _ = s.do(t, http.MethodPost, "/api/teachers", "", map[string]interface{}{
		"user_name": "newbie", "human_name": "Again", "password": "longenough", "subject_id": 1,
	})
	assert.Equal(t, http.StatusConflict, status)

	status, body = s.do(t, http.MethodGet, "/api/teachers", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(3), body["total"])

	status, _ = s.do(t, http.MethodGet, "/api/teachers/7", "", nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = s.do(t, http.MethodGet, "/api/students/404", "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = s.do(t, http.MethodPost, "/api/students", "", map[string]interface{}{
		"user_name": "kid", "human_name": "Kid", "password": "longenough",
	})
	assert.Equal(t, http.StatusCreated, status)

	status, _ = s.do(t, http.MethodPost, "/api/subjects", "", map[string]interface{}{
		"korean_name": "수학", "english_name": "Mathematics",
	})
	assert.Equal(t, http.StatusCreated, status)
	status, body = s.do(t, http.MethodGet, "/api/subjects", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["subjects"], 2)
}

func TestHealthAndNotFound(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, services.HealthOK, body["status"])

	status, body = s.do(t, http.MethodGet, "/api/nothing-here", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Route not found", body["error"])
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get("X-Request-ID"))

	resp2, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Len(t, resp2.Header.Get("X-Request-ID"), 36)
}

func TestScheduleWritesAreAudited(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/api/schedules", "7", map[string]interface{}{
		"teacher_id": 7, "student_id": 3, "scheduled_at": "2024-01-03",
	})
	require.Equal(t, http.StatusCreated, status, body)

	status, body = s.do(t, http.MethodPost, "/api/schedules/create-repeating", "7", map[string]interface{}{
		"teacher_id": 7, "student_id": 3, "start_date": "2024-01-01", "end_date": "2024-01-29", "frequency": 2,
	})
	require.Equal(t, http.StatusCreated, status, body)

	target := s.book(t, 7, "2024-01-10")
	status, body = s.do(t, http.MethodPost, fmt.Sprintf("/api/schedules/%d/complete", target.ID), "7", nil)
	require.Equal(t, http.StatusOK, status, body)

	removable := s.book(t, 7, "2024-01-11")
	status, _ = s.do(t, http.MethodDelete, fmt.Sprintf("/api/schedules/%d", removable.ID), "7", nil)
	require.Equal(t, http.StatusNoContent, status)

	// Rejected requests leave no trace.
	status, _ = s.do(t, http.MethodDelete, fmt.Sprintf("/api/schedules/%d", target.ID), "7", nil)
	require.Equal(t, http.StatusBadRequest, status)

	var logs []models.ActivityLog
	require.NoError(t, s.db.Order("id ASC").Find(&logs).Error)
	require.Len(t, logs, 4)

	actions := make([]string, 0, len(logs))
	for _, entry := range logs {
		actions = append(actions, entry.Action)
		assert.Equal(t, "schedules", entry.Resource)
		require.NotNil(t, entry.TeacherID)
		assert.Equal(t, uint(7), *entry.TeacherID)
	}
	assert.Equal(t, []string{"CREATE", "CREATE_REPEATING", "COMPLETE", "DELETE"}, actions)
	assert.Equal(t, target.ID, logs[2].ResourceID)
	assert.Equal(t, removable.ID, logs[3].ResourceID)
}

func TestCreateAcceptsNumericStrings(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/api/schedules", "7", map[string]interface{}{
		"teacher_id": "7", "student_id": "3", "scheduled_at": "2024-03-05",
	})
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "2024-03-05", body["date"])

	status, body = s.do(t, http.MethodPost, "/api/schedules/create-repeating", "7", map[string]interface{}{
		"teacher_id": "7", "student_id": "3", "start_date": "2024-01-01", "end_date": "2024-01-29", "frequency": "4",
	})
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, []interface{}{"2024-01-01", "2024-01-29"}, body["dates"])

	status, body = s.do(t, http.MethodPost, "/api/schedules", "7", map[string]interface{}{
		"teacher_id": "seven", "student_id": 3, "scheduled_at": "2024-03-06",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid request body", body["error"])
}

func TestInvalidPathID(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/api/schedules/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid schedule ID", body["error"])

	status, body = s.do(t, http.MethodDelete, "/api/schedules/0", "7", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid schedule ID", body["error"])

	status, body = s.do(t, http.MethodGet, "/api/teachers/x", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid teacher ID", body["error"])
}
