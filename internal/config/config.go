package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/LeonardoBeccarini/irrigation_audit/internal/fao56"
	"github.com/LeonardoBeccarini/irrigation_audit/internal/weather"
	"github.com/LeonardoBeccarini/irrigation_audit/pkg/rabbitmq"
)

type AppConfig struct {
	Port     string
	GRPCPort string
	Location *time.Location

	Params   fao56.Params
	PastDays int // observed days before today inside the window

	CropsPath  string // empty: embedded table
	FieldsPath string

	OpenMeteoURL string
	OWMAPIKey    string // optional fallback provider
	HTTPTimeout  time.Duration
	Schedule     string // HH:MM, daily audit of every registered field

	Rabbit    rabbitmq.RabbitMQConfig
	TopicTmpl string

	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string

	// audit recorder
	RecorderPort       string
	WriteBatchSize     int
	WriteFlushInterval time.Duration
}

// Load reads the environment, after an optional .env file.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("config: no .env file loaded: %v", err)
	}
	cfg := &AppConfig{
		Port:         getenv("PORT", "8080"),
		GRPCPort:     getenv("GRPC_PORT", "50051"),
		CropsPath:    os.Getenv("CROPS_CONFIG_PATH"),
		FieldsPath:   getenv("FIELDS_CONFIG_PATH", "/app/config/fields.json"),
		OpenMeteoURL: getenv("OPENMETEO_URL", weather.DefaultOpenMeteoURL),
		OWMAPIKey:    os.Getenv("OWM_API_KEY"),
		Schedule:     getenv("AUDIT_SCHEDULE", "06:00"),
		TopicTmpl:    getenv("AUDIT_TOPIC_TMPL", "event/irrigationAudit/{field}"),
		InfluxURL:    getenv("INFLUX_URL", "http://localhost:8086"),
		InfluxToken:  os.Getenv("INFLUX_TOKEN"),
		InfluxOrg:    getenv("INFLUX_ORG", "agri"),
		InfluxBucket: getenv("INFLUX_BUCKET", "audits"),
		RecorderPort: getenv("RECORDER_HTTP_PORT", "8081"),
		Rabbit: rabbitmq.RabbitMQConfig{
			Host:     getenv("RABBITMQ_HOST", "localhost"),
			Port:     getenvInt("RABBITMQ_PORT", 1883),
			User:     getenv("RABBITMQ_USER", "guest"),
			Password: getenv("RABBITMQ_PASSWORD", "guest"),
			ClientID: getenv("HOSTNAME", "irrigation-auditor"),
		},
	}

	tz := getenv("TZ", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TZ %q: %w", tz, err)
	}
	cfg.Location = loc

	timeout, err := getenvDuration("HTTP_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.HTTPTimeout = timeout

	p := fao56.DefaultParams()
	p.WindowDays = getenvInt("AUDIT_WINDOW_DAYS", p.WindowDays)
	p.RunoffCapMM = getenvFloat("RUNOFF_CAP_MM", p.RunoffCapMM)
	p.SoilHeatFlux = getenvFloat("SOIL_HEAT_FLUX", p.SoilHeatFlux)
	p.Albedo = getenvFloat("ALBEDO", p.Albedo)
	p.AngstromA = getenvFloat("ANGSTROM_AS", p.AngstromA)
	p.AngstromB = getenvFloat("ANGSTROM_BS", p.AngstromB)
	p.RainEfficiency = getenvFloat("RAIN_EFFICIENCY", p.RainEfficiency)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	cfg.Params = p

	cfg.PastDays = getenvInt("AUDIT_PAST_DAYS", 2)
	if cfg.PastDays < 0 || cfg.PastDays >= p.WindowDays {
		return nil, fmt.Errorf("AUDIT_PAST_DAYS=%d must be in [0,%d)", cfg.PastDays, p.WindowDays)
	}
	cfg.WriteBatchSize = getenvInt("WRITE_BATCH_SIZE", 50)
	cfg.WriteFlushInterval = time.Duration(getenvInt("WRITE_FLUSH_INTERVAL_MS", 500)) * time.Millisecond
	if cfg.WriteBatchSize <= 0 || cfg.WriteFlushInterval <= 0 {
		return nil, fmt.Errorf("WRITE_BATCH_SIZE=%d and WRITE_FLUSH_INTERVAL_MS=%d must be positive",
			cfg.WriteBatchSize, cfg.WriteFlushInterval.Milliseconds())
	}
	if _, err := time.Parse("15:04", cfg.Schedule); err != nil {
		return nil, fmt.Errorf("invalid AUDIT_SCHEDULE %q: want HH:MM", cfg.Schedule)
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("config: ignoring %s=%q (not an integer)", key, v)
	}
	return def
}

// getenvFloat accepts both "0,5" and "0.5".
func getenvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
	if err != nil {
		log.Printf("config: ignoring %s=%q (not a number)", key, v)
		return def
	}
	return f
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
