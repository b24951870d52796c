package config

import (
	"errors"
	"testing"
	"time"

	"github.com/659954771/meal-app/internal/meals"
)

func TestLoadAppliesDefaults(t *testing.T) {
	configViper := NewViper()

	cfg, err := Load(configViper)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if cfg.HTTPAddress != defaultHTTPAddress {
		t.Fatalf("unexpected address %s", cfg.HTTPAddress)
	}
	if cfg.SessionTTL != 720*time.Hour {
		t.Fatalf("unexpected ttl %v", cfg.SessionTTL)
	}
	if cfg.Schedule.UTCOffsetHours != 7 || cfg.Schedule.RolloverHour != 15 {
		t.Fatalf("unexpected schedule %+v", cfg.Schedule)
	}
	if len(cfg.Schedule.DinnerLateSlots) != 2 || cfg.Schedule.DinnerLateSlots[0] != "19:00" {
		t.Fatalf("unexpected dinner slots %v", cfg.Schedule.DinnerLateSlots)
	}
	if err := cfg.RequireServe(); err == nil {
		t.Fatalf("expected serve settings to be required")
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("MEALS_ADMIN_PIN", "8888")
	t.Setenv("MEALS_SESSION_SIGNING_SECRET", "secret")
	t.Setenv("MEALS_SCHEDULE_LUNCH_LATE_SLOTS", "12:15, 12:45")

	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if cfg.AdminPIN != "8888" {
		t.Fatalf("unexpected pin %q", cfg.AdminPIN)
	}
	if err := cfg.RequireServe(); err != nil {
		t.Fatalf("unexpected serve error: %v", err)
	}
	if len(cfg.Schedule.LunchLateSlots) != 2 || cfg.Schedule.LunchLateSlots[1] != "12:45" {
		t.Fatalf("unexpected lunch slots %v", cfg.Schedule.LunchLateSlots)
	}
}

func TestLoadRejectsInvalidSchedule(t *testing.T) {
	configViper := NewViper()
	configViper.Set("schedule.lunch_deadline", "nine")

	if _, err := Load(configViper); !errors.Is(err, meals.ErrInvalidSchedule) {
		t.Fatalf("expected invalid schedule error, got %v", err)
	}
}

func TestLoadRejectsEmptyDatabasePath(t *testing.T) {
	configViper := NewViper()
	configViper.Set("database.path", " ")

	if _, err := Load(configViper); err == nil {
		t.Fatalf("expected database path error")
	}
}
