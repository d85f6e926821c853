package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/joho/godotenv"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

type Config struct {
	// Database
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	SQLitePath string

	// Redis
	RedisHost         string
	RedisPort         string
	RedisPassword     string
	DashboardCacheTTL time.Duration

	// AWS
	AWSRegion      string
	S3ExportBucket string

	// Server
	Port   string
	AppEnv string

	// Logging
	LogLevel string
	LogFile  string

	// Feature Toggles
	SkipMigrate  bool
	SeedSubjects bool
}

func (c *Config) GetDSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?charset=utf8mb4&parseTime=True&loc=Local"
}

// IsDevelopment reports whether verbose logging should be used.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development")
}

var AppConfig *Config

// LoadConfig loads AppConfig and exits the process when it is unusable.
func LoadConfig() {
	cfg, err := Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}
	AppConfig = cfg
}

// Load reads configuration from the environment (.env is honoured) or from
// AWS SSM Parameter Store when USE_SSM=true.
func Load() (*Config, error) {
	useSSM := getEnv("USE_SSM", "false") == "true"

	var paramMap map[string]string

	// Stage & base path for SSM (allows multi-env without code changes)
	basePath := strings.TrimRight(getEnv("SSM_BASE_PATH", "/tutorbook"), "/")
	stage := getEnv("STAGE", getEnv("APP_ENV", "production"))
	prefix := basePath + "/" + stage

	if useSSM {
		sess, err := session.NewSession(&aws.Config{Region: aws.String(getEnv("AWS_REGION", "ap-northeast-2"))})
		if err != nil {
			return nil, fmt.Errorf("failed to create AWS session: %w", err)
		}
		log.Printf("Using AWS SSM Parameter Store (prefix=%s)", prefix)
		paramMap = fetchSSMParameters(ssm.New(sess), prefix)
	} else {
		if err := godotenv.Load(); err != nil {
			log.Println("Warning: .env file not found, using environment variables")
		}
	}

	getVal := func(key, def string) string {
		if v, ok := paramMap[strings.ToUpper(key)]; ok && v != "" {
			return v
		}
		return getEnv(strings.ToUpper(key), def)
	}

	cacheTTL, err := time.ParseDuration(getVal("DASHBOARD_CACHE_TTL", "10m"))
	if err != nil {
		return nil, fmt.Errorf("invalid DASHBOARD_CACHE_TTL: %w", err)
	}

	cfg := &Config{
		DBDriver:   strings.ToLower(getVal("DB_DRIVER", DriverMySQL)),
		DBHost:     getVal("DB_HOST", "localhost"),
		DBPort:     getVal("DB_PORT", "3306"),
		DBUser:     getVal("DB_USER", "root"),
		DBPassword: getVal("DB_PASSWORD", ""),
		DBName:     getVal("DB_NAME", "tutorbook"),
		SQLitePath: getVal("SQLITE_PATH", "tutorbook.db"),

		RedisHost:         getVal("REDIS_HOST", "localhost"),
		RedisPort:         getVal("REDIS_PORT", "6379"),
		RedisPassword:     getVal("REDIS_PASSWORD", ""),
		DashboardCacheTTL: cacheTTL,

		AWSRegion:      getVal("AWS_REGION", "ap-northeast-2"),
		S3ExportBucket: getVal("S3_EXPORT_BUCKET", ""),

		Port:   getVal("PORT", "8000"),
		AppEnv: getVal("APP_ENV", "development"),

		LogLevel: getVal("LOG_LEVEL", "info"),
		LogFile:  getVal("LOG_FILE", "logs/app.log"),

		SkipMigrate:  parseBool(getVal("SKIP_MIGRATE", "false")),
		SeedSubjects: parseBool(getVal("SEED_SUBJECTS", "false")),
	}

	if err := validateConfig(cfg, useSSM); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}

// fetchSSMParameters reads all parameters under prefix and returns map with UPPERCASE keys.
func fetchSSMParameters(client *ssm.SSM, prefix string) map[string]string {
	out := make(map[string]string)
	var next *string
	for {
		in := &ssm.GetParametersByPathInput{
			Path:           aws.String(prefix),
			WithDecryption: aws.Bool(true),
			Recursive:      aws.Bool(true),
			NextToken:      next,
		}
		resp, err := client.GetParametersByPath(in)
		if err != nil {
			log.Printf("Warning: unable to fetch SSM parameters for prefix %s: %v", prefix, err)
			break
		}
		for _, p := range resp.Parameters {
			if p.Name == nil || p.Value == nil {
				continue
			}
			// last segment after '/'
			key := *p.Name
			if idx := strings.LastIndex(key, "/"); idx >= 0 {
				key = key[idx+1:]
			}
			if key == "" {
				continue
			}
			out[strings.ToUpper(key)] = *p.Value
		}
		if resp.NextToken == nil || *resp.NextToken == "" {
			break
		}
		next = resp.NextToken
	}
	return out
}

func validateConfig(c *Config, usedSSM bool) error {
	switch c.DBDriver {
	case DriverMySQL, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (use mysql or sqlite)", c.DBDriver)
	}
	if c.DashboardCacheTTL < 0 {
		return fmt.Errorf("DASHBOARD_CACHE_TTL cannot be negative")
	}
	// Only enforce stricter rules in production
	if !strings.EqualFold(c.AppEnv, "production") {
		return nil
	}
	if c.DBDriver == DriverMySQL && strings.TrimSpace(c.DBPassword) == "" {
		return fmt.Errorf("missing required secret DB_PASSWORD in production (SSM=%v)", usedSSM)
	}
	return nil
}
