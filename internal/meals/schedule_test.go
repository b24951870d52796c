package meals

import (
	"errors"
	"testing"
	"time"
)

func newTestSchedule(t *testing.T) *Schedule {
	t.Helper()
	schedule, err := NewSchedule(ScheduleConfig{
		UTCOffsetHours:  7,
		LunchDeadline:   "09:00",
		DinnerDeadline:  "15:00",
		RolloverHour:    15,
		LunchLateSlots:  []string{"12:30", "13:00"},
		DinnerLateSlots: []string{"19:00", "20:00", "19:00"},
	})
	if err != nil {
		t.Fatalf("failed to build schedule: %v", err)
	}
	return schedule
}

func TestScheduleDefaultDateRollsOver(t *testing.T) {
	schedule := newTestSchedule(t)
	zone := schedule.Location()

	morning := time.Date(2026, 10, 19, 14, 59, 0, 0, zone)
	if got := FormatDate(schedule.DefaultDate(morning)); got != "2026-10-19" {
		t.Fatalf("expected today before rollover, got %s", got)
	}
	afternoon := time.Date(2026, 10, 19, 15, 0, 0, 0, zone)
	if got := FormatDate(schedule.DefaultDate(afternoon)); got != "2026-10-20" {
		t.Fatalf("expected tomorrow after rollover, got %s", got)
	}
	// 2026-10-18 20:00 UTC is already 03:00 on the 19th at UTC+7.
	utcEvening := time.Date(2026, 10, 18, 20, 0, 0, 0, time.UTC)
	if got := FormatDate(schedule.DefaultDate(utcEvening)); got != "2026-10-19" {
		t.Fatalf("expected local calendar date, got %s", got)
	}
}

func TestScheduleLocked(t *testing.T) {
	schedule := newTestSchedule(t)
	zone := schedule.Location()
	today := time.Date(2026, 10, 19, 0, 0, 0, 0, zone)

	testCases := []struct {
		name string
		meal MealType
		date time.Time
		now  time.Time
		want bool
	}{
		{name: "lunch before deadline", meal: MealLunch, date: today, now: today.Add(8*time.Hour + 59*time.Minute), want: false},
		{name: "lunch at deadline", meal: MealLunch, date: today, now: today.Add(9 * time.Hour), want: false},
		{name: "lunch after deadline", meal: MealLunch, date: today, now: today.Add(9*time.Hour + time.Second), want: true},
		{name: "dinner after lunch deadline", meal: MealDinner, date: today, now: today.Add(10 * time.Hour), want: false},
		{name: "dinner after deadline", meal: MealDinner, date: today, now: today.Add(16 * time.Hour), want: true},
		{name: "past date", meal: MealDinner, date: today.AddDate(0, 0, -1), now: today.Add(time.Hour), want: true},
		{name: "future date", meal: MealLunch, date: today.AddDate(0, 0, 1), now: today.Add(23 * time.Hour), want: false},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := schedule.Locked(testCase.meal, testCase.date, testCase.now); got != testCase.want {
				t.Fatalf("Locked = %v, want %v", got, testCase.want)
			}
		})
	}
}

func TestScheduleSlots(t *testing.T) {
	schedule := newTestSchedule(t)

	if slots := schedule.LateSlots(MealDinner); len(slots) != 2 {
		t.Fatalf("expected duplicate slot to collapse, got %v", slots)
	}
	if !schedule.AllowsSlot(MealLunch, "12:30") || schedule.AllowsSlot(MealLunch, "19:00") {
		t.Fatalf("unexpected slot membership")
	}
}

func TestNewScheduleRejectsInvalidConfig(t *testing.T) {
	_, err := NewSchedule(ScheduleConfig{UTCOffsetHours: 7, LunchDeadline: "9am", DinnerDeadline: "15:00"})
	if !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("expected invalid schedule, got %v", err)
	}
	_, err = NewSchedule(ScheduleConfig{UTCOffsetHours: 20, LunchDeadline: "09:00", DinnerDeadline: "15:00"})
	if !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("expected invalid offset, got %v", err)
	}
}
