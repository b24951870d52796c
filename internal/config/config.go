package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/659954771/meal-app/internal/meals"
	"github.com/spf13/viper"
)

const (
	envPrefix             = "MEALS"
	defaultHTTPAddress    = "0.0.0.0:8080"
	defaultDatabasePath   = "meals.db"
	defaultLogLevel       = "info"
	defaultLogFormat      = "json"
	defaultCookieName     = "meal_session"
	defaultSessionTTL     = 720
	defaultUTCOffset      = 7
	defaultLunchDeadline  = "09:00"
	defaultDinnerDeadline = "15:00"
	defaultRolloverHour   = 15
)

var (
	defaultLunchLateSlots  = []string{"12:30", "13:00"}
	defaultDinnerLateSlots = []string{"19:00", "20:00"}
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress          string
	AllowedOrigins       []string
	DatabasePath         string
	LogLevel             string
	LogFormat            string
	AdminPIN             string
	SessionSigningSecret string
	SessionCookieName    string
	SessionTTL           time.Duration
	Schedule             meals.ScheduleConfig
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.format", defaultLogFormat)
	configViper.SetDefault("session.cookie_name", defaultCookieName)
	configViper.SetDefault("session.ttl_hours", defaultSessionTTL)
	configViper.SetDefault("schedule.utc_offset_hours", defaultUTCOffset)
	configViper.SetDefault("schedule.lunch_deadline", defaultLunchDeadline)
	configViper.SetDefault("schedule.dinner_deadline", defaultDinnerDeadline)
	configViper.SetDefault("schedule.rollover_hour", defaultRolloverHour)
	configViper.SetDefault("schedule.lunch_late_slots", defaultLunchLateSlots)
	configViper.SetDefault("schedule.dinner_late_slots", defaultDinnerLateSlots)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:          configViper.GetString("http.address"),
		AllowedOrigins:       splitList(configViper.GetStringSlice("http.allowed_origins")),
		DatabasePath:         configViper.GetString("database.path"),
		LogLevel:             configViper.GetString("log.level"),
		LogFormat:            configViper.GetString("log.format"),
		AdminPIN:             configViper.GetString("admin.pin"),
		SessionSigningSecret: configViper.GetString("session.signing_secret"),
		SessionCookieName:    configViper.GetString("session.cookie_name"),
		SessionTTL:           time.Duration(configViper.GetInt("session.ttl_hours")) * time.Hour,
		Schedule: meals.ScheduleConfig{
			UTCOffsetHours:  configViper.GetInt("schedule.utc_offset_hours"),
			LunchDeadline:   configViper.GetString("schedule.lunch_deadline"),
			DinnerDeadline:  configViper.GetString("schedule.dinner_deadline"),
			RolloverHour:    configViper.GetInt("schedule.rollover_hour"),
			LunchLateSlots:  splitList(configViper.GetStringSlice("schedule.lunch_late_slots")),
			DinnerLateSlots: splitList(configViper.GetStringSlice("schedule.dinner_late_slots")),
		},
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

// RequireServe checks the settings only the HTTP server needs.
func (c AppConfig) RequireServe() error {
	if strings.TrimSpace(c.SessionSigningSecret) == "" {
		return fmt.Errorf("session.signing_secret is required")
	}
	if strings.TrimSpace(c.AdminPIN) == "" {
		return fmt.Errorf("admin.pin is required")
	}
	return nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.SessionCookieName) == "" {
		return fmt.Errorf("session.cookie_name is required")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session.ttl_hours must be positive")
	}
	if _, err := meals.NewSchedule(c.Schedule); err != nil {
		return fmt.Errorf("schedule: %w", err)
	}
	return nil
}

// splitList accepts both list values and a single comma separated env string.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
