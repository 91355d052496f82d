package config

import (
	"time"

	"github.com/minhvu/snapcal/internal/analysis/connectivity"
	"github.com/minhvu/snapcal/internal/analysis/photo"
	redisclient "github.com/minhvu/snapcal/internal/infra/redis"
	"github.com/minhvu/snapcal/internal/infra/scheduler"
	"github.com/minhvu/snapcal/internal/infra/storage/postgres"
	"github.com/minhvu/snapcal/internal/infra/vision"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server       ServerConfig        `yaml:"server"`
	Redis        redisclient.Config  `yaml:"redis"`
	Database     postgres.Config     `yaml:"database"`
	Vision       vision.Config       `yaml:"vision"`
	Connectivity connectivity.Config `yaml:"connectivity"`
	Scheduler    scheduler.Config    `yaml:"scheduler"`
	Photos       PhotoConfig         `yaml:"photos"`
	Audit        AuditConfig         `yaml:"audit"`
	Logging      LoggingConfig       `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// AuditConfig controls the failure audit trail.
type AuditConfig struct {
	Retention time.Duration `yaml:"retention"` // 0 = keep forever
}

// PhotoConfig selects where captured photos are read from.
type PhotoConfig struct {
	Backend string            `yaml:"backend"` // fs, minio
	Minio   photo.MinioConfig `yaml:"minio"`
}
