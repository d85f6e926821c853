package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"tutorbook_go/database"
	"tutorbook_go/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	subject  models.Subject
	teacher  models.Teacher // id 7
	other    models.Teacher // id 5
	student  models.Student // id 3
	student2 models.Student // id 4
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := newTestDB(t)
	f := fixture{db: db}

	f.subject = models.Subject{KoreanName: "수학", EnglishName: "Mathematics"}
	require.NoError(t, db.Create(&f.subject).Error)

	f.teacher = models.Teacher{
		BaseModel:   models.BaseModel{ID: 7},
		UserProfile: models.UserProfile{UserName: "teacher7", HumanName: "Kim Minji", Password: "x"},
		SubjectID:   f.subject.ID,
	}
	f.other = models.Teacher{
		BaseModel:   models.BaseModel{ID: 5},
		UserProfile: models.UserProfile{UserName: "teacher5", HumanName: "Lee Jun", Password: "x"},
		SubjectID:   f.subject.ID,
	}
	require.NoError(t, db.Omit("Subject").Create(&f.teacher).Error)
	require.NoError(t, db.Omit("Subject").Create(&f.other).Error)

	f.student = models.Student{
		BaseModel:   models.BaseModel{ID: 3},
		UserProfile: models.UserProfile{UserName: "student3", HumanName: "Park Sora", Password: "x"},
	}
	f.student2 = models.Student{
		BaseModel:   models.BaseModel{ID: 4},
		UserProfile: models.UserProfile{UserName: "student4", HumanName: "Choi Hana", Password: "x"},
	}
	require.NoError(t, db.Create(&f.student).Error)
	require.NoError(t, db.Create(&f.student2).Error)
	return f
}

func (f fixture) book(t *testing.T, teacherID, studentID uint, day string) models.Schedule {
	t.Helper()
	d, err := models.ParseDate(day)
	require.NoError(t, err)
	s := models.Schedule{TeacherID: teacherID, StudentID: studentID, SubjectID: f.subject.ID, ScheduledAt: d}
	require.NoError(t, f.db.Omit("Teacher", "Student", "Subject").Create(&s).Error)
	return s
}

func (f fixture) countSchedules(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Schedule{}).Count(&n).Error)
	return n
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(year int, month time.Month, day int) *clock {
	return &clock{now: time.Date(year, month, day, 9, 30, 0, 0, time.Local)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type cacheKey struct {
	teacher uint
	year    int
	month   time.Month
}

type memoryCache struct {
	mu          sync.Mutex
	entries     map[cacheKey]map[string]int64
	generations map[cacheKey]int64
	invalidated []cacheKey
	hits        int
	// beforeSet runs ahead of every Set, outside the lock.
	beforeSet func()
}

func newMemoryCache() *memoryCache {
	return &memoryCache{
		entries:     map[cacheKey]map[string]int64{},
		generations: map[cacheKey]int64{},
	}
}

func (m *memoryCache) Get(_ context.Context, teacherID uint, year int, month time.Month) (map[string]int64, int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := cacheKey{teacherID, year, month}
	v, ok := m.entries[k]
	if ok {
		m.hits++
	}
	return v, m.generations[k], ok
}

func (m *memoryCache) Set(_ context.Context, teacherID uint, year int, month time.Month, generation int64, counts map[string]int64) {
	if m.beforeSet != nil {
		m.beforeSet()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := cacheKey{teacherID, year, month}
	if m.generations[k] != generation {
		return
	}
	m.entries[k] = counts
}

func (m *memoryCache) Invalidate(_ context.Context, teacherID uint, year int, month time.Month) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := cacheKey{teacherID, year, month}
	m.generations[k]++
	delete(m.entries, k)
	m.invalidated = append(m.invalidated, k)
}

func dateStrings(dates []models.Date) []string {
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.String())
	}
	return out
}
