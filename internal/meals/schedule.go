package meals

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrDeadlinePassed indicates the meal can no longer be changed for the date.
	ErrDeadlinePassed = errors.New("meals: deadline passed")
	// ErrSlotNotAllowed indicates the late slot is not configured for the meal.
	ErrSlotNotAllowed = errors.New("meals: late slot not allowed")
	// ErrInvalidSchedule indicates an unusable schedule configuration.
	ErrInvalidSchedule = errors.New("meals: invalid schedule")
)

// ScheduleConfig describes the wall-clock rules of the canteen.
type ScheduleConfig struct {
	UTCOffsetHours  int
	LunchDeadline   string
	DinnerDeadline  string
	RolloverHour    int
	LunchLateSlots  []string
	DinnerLateSlots []string
}

// Schedule answers deadline, default-date and late-slot questions in a fixed-offset zone.
type Schedule struct {
	location  *time.Location
	deadlines map[MealType]time.Duration
	rollover  int
	slots     map[MealType][]string
}

// NewSchedule validates the configuration and builds a Schedule.
func NewSchedule(cfg ScheduleConfig) (*Schedule, error) {
	if cfg.UTCOffsetHours < -12 || cfg.UTCOffsetHours > 14 {
		return nil, fmt.Errorf("%w: utc offset %d", ErrInvalidSchedule, cfg.UTCOffsetHours)
	}
	if cfg.RolloverHour < 0 || cfg.RolloverHour > 24 {
		return nil, fmt.Errorf("%w: rollover hour %d", ErrInvalidSchedule, cfg.RolloverHour)
	}
	lunch, err := parseClock(cfg.LunchDeadline)
	if err != nil {
		return nil, fmt.Errorf("%w: lunch deadline: %v", ErrInvalidSchedule, err)
	}
	dinner, err := parseClock(cfg.DinnerDeadline)
	if err != nil {
		return nil, fmt.Errorf("%w: dinner deadline: %v", ErrInvalidSchedule, err)
	}
	lunchSlots, err := normalizeSlots(cfg.LunchLateSlots)
	if err != nil {
		return nil, fmt.Errorf("%w: lunch slots: %v", ErrInvalidSchedule, err)
	}
	dinnerSlots, err := normalizeSlots(cfg.DinnerLateSlots)
	if err != nil {
		return nil, fmt.Errorf("%w: dinner slots: %v", ErrInvalidSchedule, err)
	}

	name := fmt.Sprintf("UTC%+d", cfg.UTCOffsetHours)
	return &Schedule{
		location:  time.FixedZone(name, cfg.UTCOffsetHours*3600),
		deadlines: map[MealType]time.Duration{MealLunch: lunch, MealDinner: dinner},
		rollover:  cfg.RolloverHour,
		slots:     map[MealType][]string{MealLunch: lunchSlots, MealDinner: dinnerSlots},
	}, nil
}

// Location returns the fixed-offset zone all dates are evaluated in.
func (s *Schedule) Location() *time.Location {
	return s.location
}

// Today returns midnight of the current local date.
func (s *Schedule) Today(now time.Time) time.Time {
	local := now.In(s.location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.location)
}

// DefaultDate is the date offered to a person: today, or tomorrow once the rollover hour passed.
func (s *Schedule) DefaultDate(now time.Time) time.Time {
	today := s.Today(now)
	if now.In(s.location).Hour() >= s.rollover {
		return today.AddDate(0, 0, 1)
	}
	return today
}

// Deadline returns the cutoff wall-clock time of the meal on the given date.
func (s *Schedule) Deadline(meal MealType, date time.Time) time.Time {
	local := date.In(s.location)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.location)
	return midnight.Add(s.deadlines[meal])
}

// Locked reports whether the meal on date no longer accepts changes.
// Past dates are locked, today locks after the deadline and future dates never lock.
func (s *Schedule) Locked(meal MealType, date time.Time, now time.Time) bool {
	today := s.Today(now)
	day := s.Today(date)
	switch {
	case day.Before(today):
		return true
	case day.After(today):
		return false
	default:
		return now.In(s.location).After(s.Deadline(meal, day))
	}
}

// LateSlots returns the configured late pickup slots of the meal.
func (s *Schedule) LateSlots(meal MealType) []string {
	return append([]string(nil), s.slots[meal]...)
}

// AllowsSlot reports whether slot is configured for the meal.
func (s *Schedule) AllowsSlot(meal MealType, slot string) bool {
	for _, allowed := range s.slots[meal] {
		if allowed == slot {
			return true
		}
	}
	return false
}

func parseClock(raw string) (time.Duration, error) {
	parsed, err := time.Parse(slotLayout, strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	return time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute, nil
}

func normalizeSlots(raw []string) ([]string, error) {
	slots := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, value := range raw {
		if strings.TrimSpace(value) == "" {
			continue
		}
		slot, err := normalizeSlot(value)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[slot]; ok {
			continue
		}
		seen[slot] = struct{}{}
		slots = append(slots, slot)
	}
	return slots, nil
}
