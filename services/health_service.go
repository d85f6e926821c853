package services

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
	HealthCritical = "critical"

	dependencyUp       = "up"
	dependencyDown     = "down"
	dependencyDisabled = "disabled"
)

// HealthService checks the database and the dashboard cache.
type HealthService struct {
	db          *gorm.DB
	redis       *redis.Client
	environment string
	archive     bool
	startTime   time.Time
	timeout     time.Duration
}

type HealthReport struct {
	Status        string             `json:"status"`
	Service       string             `json:"service"`
	Environment   string             `json:"environment"`
	Time          time.Time          `json:"time"`
	UptimeSeconds float64            `json:"uptime_seconds"`
	Dependencies  []DependencyStatus `json:"dependencies"`
	Goroutines    int                `json:"goroutines"`
	GoVersion     string             `json:"go_version"`
}

type DependencyStatus struct {
	Name      string                 `json:"name"`
	Status    string                 `json:"status"`
	LatencyMs int64                  `json:"latency_ms"`
	Error     string                 `json:"error,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// NewHealthService takes the live handles; redisClient may be nil when the
// cache is disabled.
func NewHealthService(db *gorm.DB, redisClient *redis.Client, environment string, archiveEnabled bool) *HealthService {
	if environment == "" {
		environment = "unknown"
	}
	return &HealthService{
		db:          db,
		redis:       redisClient,
		environment: environment,
		archive:     archiveEnabled,
		startTime:   time.Now(),
		timeout:     1500 * time.Millisecond,
	}
}

func (s *HealthService) Report(ctx context.Context) HealthReport {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	report := HealthReport{
		Status:        HealthOK,
		Service:       "tutorbook",
		Environment:   s.environment,
		Time:          time.Now().UTC(),
		UptimeSeconds: time.Since(s.startTime).Seconds(),
		Goroutines:    runtime.NumGoroutine(),
		GoVersion:     runtime.Version(),
	}

	dbDep := s.checkDatabase(ctx)
	if dbDep.Status != dependencyUp {
		report.Status = HealthCritical
	}
	cacheDep := s.checkRedis(ctx)
	if cacheDep.Status == dependencyDown && report.Status == HealthOK {
		report.Status = HealthDegraded
	}
	archiveDep := DependencyStatus{Name: "s3_archive", Status: dependencyDisabled}
	if s.archive {
		archiveDep.Status = dependencyUp
	}

	report.Dependencies = []DependencyStatus{dbDep, cacheDep, archiveDep}
	return report
}

// HTTPStatus maps an overall status to the response code.
func (s *HealthService) HTTPStatus(status string) int {
	if status == HealthCritical {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

func (s *HealthService) checkDatabase(ctx context.Context) DependencyStatus {
	dep := DependencyStatus{Name: "database", Status: dependencyDown}
	if s.db == nil {
		dep.Error = "database connection not initialised"
		return dep
	}
	dep.Details = map[string]interface{}{"dialect": s.db.Dialector.Name()}

	sqlDB, err := s.db.DB()
	if err != nil {
		dep.Error = fmt.Sprintf("sql DB handle error: %v", err)
		return dep
	}

	start := time.Now()
	err = sqlDB.PingContext(ctx)
	dep.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		dep.Error = err.Error()
		return dep
	}

	stats := sqlDB.Stats()
	dep.Status = dependencyUp
	dep.Details["open_connections"] = stats.OpenConnections
	dep.Details["in_use"] = stats.InUse
	dep.Details["idle"] = stats.Idle
	return dep
}

func (s *HealthService) checkRedis(ctx context.Context) DependencyStatus {
	dep := DependencyStatus{Name: "dashboard_cache"}
	if s.redis == nil {
		dep.Status = dependencyDisabled
		return dep
	}

	start := time.Now()
	err := s.redis.Ping(ctx).Err()
	dep.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		dep.Status = dependencyDown
		dep.Error = err.Error()
		return dep
	}
	dep.Status = dependencyUp
	dep.Details = map[string]interface{}{"address": s.redis.Options().Addr}
	return dep
}
