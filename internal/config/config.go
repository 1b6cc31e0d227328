package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sosodev/duration"

	"github.com/jengzang/proximity-backend-go/internal/apperr"
)

// IngestShape selects which request body the ingest endpoint accepts
type IngestShape string

const (
	ShapeEmployeeMachines IngestShape = "employee_machines"
	ShapeCoordinates      IngestShape = "coordinates"
	ShapeSingle           IngestShape = "single"
	ShapeRawArray         IngestShape = "raw_array"
)

// Valid reports whether s names a supported shape
func (s IngestShape) Valid() bool {
	switch s {
	case ShapeEmployeeMachines, ShapeCoordinates, ShapeSingle, ShapeRawArray:
		return true
	}
	return false
}

// DistanceUnit is the unit DistanceReports are stored in
type DistanceUnit string

const (
	UnitMeters      DistanceUnit = "m"
	UnitCentimeters DistanceUnit = "cm"
)

const (
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
)

// Config 应用配置
type Config struct {
	Port        string
	StoreDriver string
	StoreDSN    string

	Shape        IngestShape
	Unit         DistanceUnit
	StaleAfter   time.Duration
	FilterWindow time.Duration // 0 disables the filtered series
	RawKey       string
	Location     *time.Location

	RateLimit  int
	RateWindow time.Duration
	LogLevel   slog.Level

	KafkaBrokers []string
	KafkaTopic   string

	MQTTBroker   string
	MQTTTopic    string
	MQTTClientID string
}

// Load reads configuration from the environment, after loading .env when present.
// Missing or malformed required settings yield an apperr ConfigError.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary variable source
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	port := get("PORT", "")
	if port == "" {
		return nil, apperr.Config("PORT is required")
	}
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	dsn := get("STORE_DSN", "")
	if dsn == "" {
		return nil, apperr.Config("STORE_DSN is required")
	}

	driver := strings.ToLower(get("STORE_DRIVER", DriverSQLite))
	if driver != DriverSQLite && driver != DriverBadger {
		return nil, apperr.Config("STORE_DRIVER must be %q or %q, got %q", DriverSQLite, DriverBadger, driver)
	}

	shape := IngestShape(strings.ToLower(get("INGEST_SHAPE", "")))
	if shape == "" {
		return nil, apperr.Config("INGEST_SHAPE is required")
	}
	if !shape.Valid() {
		return nil, apperr.Config("unsupported INGEST_SHAPE %q", shape)
	}

	unit := DistanceUnit(strings.ToLower(get("DISTANCE_UNIT", string(UnitCentimeters))))
	if unit != UnitMeters && unit != UnitCentimeters {
		return nil, apperr.Config("DISTANCE_UNIT must be %q or %q", UnitMeters, UnitCentimeters)
	}

	staleAfter, err := ParseDuration(get("STALE_AFTER", "2m"))
	if err != nil || staleAfter <= 0 {
		return nil, apperr.Config("invalid STALE_AFTER %q", get("STALE_AFTER", ""))
	}

	window, err := ParseDuration(get("FILTER_WINDOW", "10s"))
	if err != nil || window < 0 {
		return nil, apperr.Config("invalid FILTER_WINDOW %q", get("FILTER_WINDOW", ""))
	}

	loc := time.Local
	if tz := get("TIMEZONE", ""); tz != "" && tz != "Local" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return nil, apperr.Config("invalid TIMEZONE %q: %v", tz, err)
		}
	}

	rateLimit, err := strconv.Atoi(get("RATE_LIMIT", "600"))
	if err != nil || rateLimit <= 0 {
		return nil, apperr.Config("RATE_LIMIT must be a positive integer")
	}
	rateWindow, err := ParseDuration(get("RATE_WINDOW", "1m"))
	if err != nil || rateWindow <= 0 {
		return nil, apperr.Config("invalid RATE_WINDOW")
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(get("LOG_LEVEL", "info"))); err != nil {
		return nil, apperr.Config("invalid LOG_LEVEL: %v", err)
	}

	var brokers []string
	for _, b := range strings.Split(get("KAFKA_BROKERS", ""), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}

	return &Config{
		Port:         port,
		StoreDriver:  driver,
		StoreDSN:     dsn,
		Shape:        shape,
		Unit:         unit,
		StaleAfter:   staleAfter,
		FilterWindow: window,
		RawKey:       get("RAW_KEY", "sensor"),
		Location:     loc,
		RateLimit:    rateLimit,
		RateWindow:   rateWindow,
		LogLevel:     level,
		KafkaBrokers: brokers,
		KafkaTopic:   get("KAFKA_TOPIC", "proximity.events"),
		MQTTBroker:   get("MQTT_BROKER", ""),
		MQTTTopic:    get("MQTT_TOPIC", "sensors/ingest"),
		MQTTClientID: get("MQTT_CLIENT_ID", "proximity-backend"),
	}, nil
}

// ParseDuration accepts Go durations ("10s") and ISO-8601 durations ("PT10S")
func ParseDuration(s string) (time.Duration, error) {
	if s == "0" {
		return 0, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	d, err := duration.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d.ToTimeDuration(), nil
}
