package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

var Cfg Config

type Config struct {
	// 服务配置
	ServerPort  string `env:"SERVER_PORT" envDefault:"8888"`
	ServerHost  string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // development, staging, production
	ServiceName string `env:"SERVICE_NAME" envDefault:"pointage"`
	Version     string `env:"SERVICE_VERSION" envDefault:"v1"`

	// 存储驱动：postgres 或 memory（本地调试，不持久化）
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`

	// PostgreSQL 配置
	PostgreSQLHost     string `env:"POSTGRESQL_HOST" envDefault:"localhost"`
	PostgreSQLPort     string `env:"POSTGRESQL_PORT" envDefault:"5432"`
	PostgreSQLUser     string `env:"POSTGRESQL_USER" envDefault:"postgres"`
	PostgreSQLPassword string `env:"POSTGRESQL_PASSWORD" envDefault:"postgres"`
	PostgreSQLDatabase string `env:"POSTGRESQL_DATABASE" envDefault:"pointage"`
	PostgreSQLSchema   string `env:"POSTGRESQL_SCHEMA" envDefault:"public"`
	PostgreSQLSSLMode  string `env:"POSTGRESQL_SSLMODE" envDefault:"disable"`
	PostgreSQLMaxIdle  int    `env:"POSTGRESQL_MAX_IDLE" envDefault:"10"`
	PostgreSQLMaxOpen  int    `env:"POSTGRESQL_MAX_OPEN" envDefault:"50"`

	// Redis 配置
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"ptg"`

	// RabbitMQ 配置
	RabbitMQAddr     string `env:"RABBITMQ_ADDR" envDefault:"localhost"`
	RabbitMQPort     string `env:"RABBITMQ_PORT" envDefault:"5672"`
	RabbitMQUsername string `env:"RABBITMQ_USERNAME" envDefault:"guest"`
	RabbitMQPassword string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
	RabbitMQVhost    string `env:"RABBITMQ_VHOST" envDefault:"/"`

	// JWT 配置
	JWTSecret        string `env:"JWT_SECRET"` // 必填，用于校验员工 token
	JWTExpireMinutes int    `env:"JWT_EXPIRE_MINUTES" envDefault:"720"`
	JWTRefreshDays   int    `env:"JWT_REFRESH_DAYS" envDefault:"7"`

	// Snowflake ID 生成器配置
	SnowflakeMachineID  int64 `env:"SNOWFLAKE_MACHINE_ID" envDefault:"1"`
	SnowflakeDataCenter int64 `env:"SNOWFLAKE_DATACENTER_ID" envDefault:"1"`

	// 日志配置
	LoggerLevel      string `env:"LOGGER_LEVEL" envDefault:"INFO"`
	LoggerFormat     string `env:"LOGGER_FORMAT" envDefault:"text"` // json, text
	LoggerOutputPath string `env:"LOGGER_OUTPUT_PATH" envDefault:"stdout"`

	// 链路追踪配置
	OTelEnabled     bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint    string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4317"`
	OTelSampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"0.1"`

	// 速率限制配置, 配置在中间件内
	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitRPS     int  `env:"RATE_LIMIT_RPS" envDefault:"20"` // 每个员工每秒请求数

	// 考勤配置
	AttendanceDailyCap         int    `env:"ATTENDANCE_DAILY_CAP" envDefault:"2"`
	AttendanceTimezone         string `env:"ATTENDANCE_TIMEZONE" envDefault:"Local"`
	AttendanceHistoryPageSize  int    `env:"ATTENDANCE_HISTORY_PAGE_SIZE" envDefault:"20"`
	AttendanceLockTTLSeconds   int    `env:"ATTENDANCE_LOCK_TTL_SECONDS" envDefault:"5"`
	AttendanceExportMaxRecords int    `env:"ATTENDANCE_EXPORT_MAX_RECORDS" envDefault:"1000"`
}

// Load 读取 .env 与环境变量，填充 Cfg
func Load() error {
	if err := godotenv.Load(); err != nil {
		log.Printf("WARN: Cannot load .env file: %v, using environment variables", err)
	}

	cfg, err := Parse()
	if err != nil {
		return err
	}

	Cfg = cfg
	return nil
}

// Parse 只解析环境变量并校验，不修改全局 Cfg
func Parse() (Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.AttendanceDailyCap <= 0 {
		return fmt.Errorf("ATTENDANCE_DAILY_CAP must be positive, got %d", c.AttendanceDailyCap)
	}

	if c.AttendanceHistoryPageSize <= 0 || c.AttendanceHistoryPageSize > 200 {
		return fmt.Errorf("ATTENDANCE_HISTORY_PAGE_SIZE must be in (0, 200], got %d", c.AttendanceHistoryPageSize)
	}

	if c.AttendanceLockTTLSeconds <= 0 {
		return fmt.Errorf("ATTENDANCE_LOCK_TTL_SECONDS must be positive, got %d", c.AttendanceLockTTLSeconds)
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid ATTENDANCE_TIMEZONE %q: %w", c.AttendanceTimezone, err)
	}

	switch c.StorageDriver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.StorageDriver)
	}

	if c.StorageDriver == "memory" && c.IsProduction() {
		log.Printf("WARN: STORAGE_DRIVER=memory in production, attendance records will not survive restarts")
	}

	return nil
}

// Location 考勤使用的本地时区
func (c *Config) Location() (*time.Location, error) {
	if c.AttendanceTimezone == "" || c.AttendanceTimezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.AttendanceTimezone)
}

func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.AttendanceLockTTLSeconds) * time.Second
}

func (c *Config) GetDSN() string {
	return "host=" + c.PostgreSQLHost +
		" port=" + c.PostgreSQLPort +
		" user=" + c.PostgreSQLUser +
		" password=" + c.PostgreSQLPassword +
		" dbname=" + c.PostgreSQLDatabase +
		" sslmode=" + c.PostgreSQLSSLMode +
		" search_path=" + c.PostgreSQLSchema
}

func (c *Config) GetRabbitMQURL() string {
	return "amqp://" + c.RabbitMQUsername + ":" + c.RabbitMQPassword + "@" + c.RabbitMQAddr + ":" + c.RabbitMQPort + c.RabbitMQVhost
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) UsesMemoryStorage() bool {
	return c.StorageDriver == "memory"
}
