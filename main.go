package main

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"

	"tutorbook_go/config"
	"tutorbook_go/database"
	"tutorbook_go/database/seeders"
	"tutorbook_go/routes"
	"tutorbook_go/storage"

	"github.com/sirupsen/logrus"
)

func main() {
	config.LoadConfig()
	cfg := config.AppConfig
	setupLogging(cfg)

	database.Connect(cfg)
	defer database.Close()

	if cfg.SeedSubjects {
		if err := seeders.SeedSubjects(database.GetDB()); err != nil {
			log.Fatal("Failed to seed subjects:", err)
		}
	}

	deps := routes.Dependencies{
		DB:                database.GetDB(),
		Redis:             database.GetRedisClient(),
		DashboardCacheTTL: cfg.DashboardCacheTTL,
		Environment:       cfg.AppEnv,
	}
	if cfg.S3ExportBucket != "" {
		archive, err := storage.NewArchiveStorage(context.Background(), cfg.AWSRegion, cfg.S3ExportBucket)
		if err != nil {
			logrus.WithError(err).Warn("Schedule archive disabled")
		} else {
			deps.Archive = archive
		}
	}

	app := routes.NewApp(deps)

	for _, r := range app.Stack() {
		for _, route := range r {
			logrus.WithFields(logrus.Fields{"method": route.Method, "path": route.Path}).Debug("Registered route")
		}
	}

	logrus.WithFields(logrus.Fields{
		"port":        cfg.Port,
		"environment": cfg.AppEnv,
		"db_driver":   cfg.DBDriver,
	}).Info("Server starting")

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

// setupLogging configures the logging system
func setupLogging(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.IsDevelopment() || cfg.LogFile == "" {
		logrus.SetOutput(os.Stdout)
		return
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0755); err != nil {
		log.Printf("Warning: Could not create log directory: %v", err)
	}
	file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Printf("Warning: Could not open log file, using stdout: %v", err)
		logrus.SetOutput(os.Stdout)
		return
	}
	logrus.SetOutput(io.MultiWriter(os.Stdout, file))
}
