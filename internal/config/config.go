package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Event store backends.
const (
	EventStoreMemory = "memory"
	EventStoreSQLite = "sqlite"
)

// Config holds all runtime configuration for the exchange daemon.
type Config struct {
	Port     int
	LogLevel string

	// LogFile, when set, sends logs to a rotating file instead of stdout.
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	EventStore     string
	EventStorePath string

	// NATSURL is empty when event publishing to NATS is disabled.
	NATSURL            string
	NATSSubject        string
	NATSConnectTimeout time.Duration

	DispatchWorkers   int
	DispatchQueueSize int

	StatsWindow     time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	SeedFile string
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("invalid PORT: %d out of range", port)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	logMaxSize, err := getInt("LOG_MAX_SIZE_MB", 100)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_MAX_SIZE_MB: %w", err)
	}

	logMaxBackups, err := getInt("LOG_MAX_BACKUPS", 3)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_MAX_BACKUPS: %w", err)
	}

	logMaxAge, err := getInt("LOG_MAX_AGE_DAYS", 28)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_MAX_AGE_DAYS: %w", err)
	}

	eventStore := getStr("EVENT_STORE", EventStoreMemory)
	if eventStore != EventStoreMemory && eventStore != EventStoreSQLite {
		return nil, fmt.Errorf("invalid EVENT_STORE: %q, must be one of: memory, sqlite", eventStore)
	}

	natsConnectTimeout, err := getDuration("NATS_CONNECT_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid NATS_CONNECT_TIMEOUT: %w", err)
	}

	workers, err := getInt("DISPATCH_WORKERS", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid DISPATCH_WORKERS: %w", err)
	}
	if workers < 0 {
		return nil, fmt.Errorf("invalid DISPATCH_WORKERS: %d must not be negative", workers)
	}

	queueSize, err := getInt("DISPATCH_QUEUE_SIZE", 256)
	if err != nil {
		return nil, fmt.Errorf("invalid DISPATCH_QUEUE_SIZE: %w", err)
	}
	if queueSize < 0 {
		return nil, fmt.Errorf("invalid DISPATCH_QUEUE_SIZE: %d must not be negative", queueSize)
	}

	statsWindow, err := getDuration("STATS_WINDOW", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid STATS_WINDOW: %w", err)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		Port:               port,
		LogLevel:           logLevel,
		LogFile:            getStr("LOG_FILE", ""),
		LogMaxSizeMB:       logMaxSize,
		LogMaxBackups:      logMaxBackups,
		LogMaxAgeDays:      logMaxAge,
		EventStore:         eventStore,
		EventStorePath:     getStr("EVENT_STORE_PATH", "data/events.db"),
		NATSURL:            getStr("NATS_URL", ""),
		NATSSubject:        getStr("NATS_SUBJECT", "exchange.events"),
		NATSConnectTimeout: natsConnectTimeout,
		DispatchWorkers:    workers,
		DispatchQueueSize:  queueSize,
		StatsWindow:        statsWindow,
		ReadTimeout:        readTimeout,
		WriteTimeout:       writeTimeout,
		IdleTimeout:        idleTimeout,
		ShutdownTimeout:    shutdownTimeout,
		SeedFile:           getStr("SEED_FILE", ""),
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
