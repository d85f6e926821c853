package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"tutorbook_go/config"
	"tutorbook_go/models"

	"github.com/go-redis/redis/v8"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB
var RedisClient *redis.Client

// Connect initializes the database and Redis connections
func Connect(cfg *config.Config) {
	connectDatabase(cfg)
	connectRedis(cfg)
}

// Open builds the gorm handle for the configured driver. TranslateError is
// enabled so unique index violations surface as gorm.ErrDuplicatedKey.
func Open(cfg *config.Config) (*gorm.DB, error) {
	gormLogger := logger.Default.LogMode(logger.Silent)
	if cfg.IsDevelopment() {
		gormLogger = logger.Default.LogMode(logger.Info)
	}
	gormConfig := &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	}

	switch cfg.DBDriver {
	case config.DriverSQLite:
		return OpenSQLite(cfg.SQLitePath, gormConfig)
	default:
		return gorm.Open(mysql.Open(cfg.GetDSN()), gormConfig)
	}
}

// OpenSQLite opens a SQLite database with foreign keys on. Use ":memory:" for
// a private in-memory database.
func OpenSQLite(path string, gormConfig *gorm.Config) (*gorm.DB, error) {
	if gormConfig == nil {
		gormConfig = &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true}
	}
	db, err := gorm.Open(sqlite.Open(path+"?_foreign_keys=on"), gormConfig)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer; one connection also keeps ":memory:" shared.
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// connectDatabase initializes the database connection
func connectDatabase(cfg *config.Config) {
	var err error

	// Retry logic for transient network issues
	var lastErr error
	for attempt := 1; attempt <= 8; attempt++ {
		DB, err = Open(cfg)
		if err == nil {
			lastErr = nil
			break
		}
		lastErr = err
		log.Printf("Database connect attempt %d failed: %v", attempt, err)
		time.Sleep(time.Duration(attempt*attempt) * 300 * time.Millisecond)
	}
	if lastErr != nil {
		log.Fatal("Failed to connect to database after retries:", lastErr)
	}

	log.Printf("Database connected successfully (driver=%s)", cfg.DBDriver)

	if cfg.DBDriver == config.DriverMySQL {
		sqlDB, err := DB.DB()
		if err != nil {
			log.Fatal("Failed to get database instance:", err)
		}
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(50)
		sqlDB.SetConnMaxLifetime(55 * time.Minute)
	}

	if cfg.SkipMigrate {
		log.Println("SKIP_MIGRATE set, skipping auto migration")
		return
	}
	if err := AutoMigrate(DB); err != nil {
		log.Fatal("Auto migration failed:", err)
	}
	log.Println("Database migration completed successfully")
}

// AutoMigrate performs automatic database migration
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Subject{},
		&models.Teacher{},
		&models.Student{},
		&models.Schedule{},
		&models.ActivityLog{},
	)
}

// connectRedis initializes Redis connection
func connectRedis(cfg *config.Config) {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       0, // use default DB
	})

	// Test Redis connection
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := RedisClient.Ping(ctx).Result(); err != nil {
		log.Printf("Redis connection failed: %v", err)
		log.Println("Continuing without Redis - dashboard reads go straight to the database")
		_ = RedisClient.Close()
		RedisClient = nil
		return
	}

	log.Println("Redis connected successfully")
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}

// GetRedisClient returns the Redis client instance
func GetRedisClient() *redis.Client {
	return RedisClient
}

// Close closes the database and Redis connections
func Close() {
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			log.Println("Error closing redis connection:", err)
		}
	}
	if DB == nil {
		return
	}
	sqlDB, err := DB.DB()
	if err != nil {
		log.Println("Error getting database instance:", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Println("Error closing database connection:", err)
		return
	}
	log.Println("Database connection closed")
}
