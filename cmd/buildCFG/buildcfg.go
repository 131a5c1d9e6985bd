package buildCFG

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"

	"ecotrack/internal/mailer"
)

type ServerConfig struct {
	Port string
}

type RabbitConfig struct {
	Url      string
	Exchange string
	Queue    string
}

type SchedulerConfig struct {
	Interval time.Duration
}

type UploadConfig struct {
	Dir      string
	MaxBytes int64
}

func BuildServerConfig(cfg *config.Config, log *zerolog.Logger) ServerConfig {
	port := cfg.GetString("server.port")
	if port == "" {
		port = "8080"
		log.Warn().Msg("server.port not set, defaulting to 8080")
	}
	return ServerConfig{Port: port}
}

func BuildDBConfig(cfg *config.Config, log *zerolog.Logger) (string, []string, *dbpg.Options, error) {
	masterDSN := cfg.GetString("db.master_dsn")
	if masterDSN == "" {
		return "", nil, nil, fmt.Errorf("db.master_dsn is required")
	}

	var slaveDSNs []string
	if slave := cfg.GetString("db.slave_dsn"); slave != "" {
		slaveDSNs = append(slaveDSNs, slave)
	}

	maxOpen := cfg.GetInt("db.max_open_conns")
	if maxOpen <= 0 {
		maxOpen = 10
	}
	maxIdle := cfg.GetInt("db.max_idle_conns")
	if maxIdle <= 0 {
		maxIdle = 5
	}

	opts := &dbpg.Options{
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: time.Hour,
	}

	log.Info().Int("max_open", maxOpen).Int("max_idle", maxIdle).Msg("DB pool configured")
	return masterDSN, slaveDSNs, opts, nil
}

func BuildRabbitConfig(cfg *config.Config, log *zerolog.Logger) (RabbitConfig, error) {
	rc := RabbitConfig{
		Url:      cfg.GetString("rabbit.url"),
		Exchange: cfg.GetString("rabbit.exchange"),
		Queue:    cfg.GetString("rabbit.queue"),
	}
	if rc.Url == "" {
		return rc, fmt.Errorf("rabbit.url is required")
	}
	if rc.Exchange == "" {
		rc.Exchange = "ecotrack.notifications"
	}
	if rc.Queue == "" {
		rc.Queue = "ecotrack.notifications.mail"
	}
	log.Info().Str("exchange", rc.Exchange).Str("queue", rc.Queue).Msg("RabbitMQ configured")
	return rc, nil
}

func BuildSchedulerConfig(cfg *config.Config, log *zerolog.Logger) SchedulerConfig {
	seconds := cfg.GetInt("scheduler.interval_seconds")
	if seconds <= 0 {
		seconds = 60
		log.Warn().Msg("scheduler.interval_seconds not set, defaulting to 60")
	}
	return SchedulerConfig{Interval: time.Duration(seconds) * time.Second}
}

func BuildUploadConfig(cfg *config.Config, log *zerolog.Logger) UploadConfig {
	dir := cfg.GetString("uploads.dir")
	if dir == "" {
		dir = "uploads"
	}
	maxBytes := int64(cfg.GetInt("uploads.max_bytes"))
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}
	log.Info().Str("dir", dir).Int64("max_bytes", maxBytes).Msg("upload store configured")
	return UploadConfig{Dir: dir, MaxBytes: maxBytes}
}

func BuildMailerConfig(cfg *config.Config, log *zerolog.Logger) mailer.Config {
	mc := mailer.Config{
		Host:     cfg.GetString("smtp.host"),
		Port:     cfg.GetString("smtp.port"),
		From:     cfg.GetString("smtp.from"),
		Password: cfg.GetString("smtp.password"),
	}
	if !mc.Enabled() {
		log.Warn().Msg("smtp.host not set, email delivery disabled")
	}
	if mc.Port == "" {
		mc.Port = "587"
	}
	return mc
}
