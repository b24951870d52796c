package meals

import (
	"testing"
	"time"

	"github.com/659954771/meal-app/internal/people"
)

var (
	testMonday = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	testSunday = time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
)

func TestResolveCombinations(t *testing.T) {
	booked := Booked()
	canceled := Canceled()
	reset := Reset()
	late, err := Late("19:00")
	if err != nil {
		t.Fatalf("late failed: %v", err)
	}

	actions := []struct {
		name   string
		action *Action
	}{
		{name: "none", action: nil},
		{name: "booked", action: &booked},
		{name: "canceled", action: &canceled},
		{name: "late", action: &late},
		{name: "reset", action: &reset},
	}
	leaves := []people.LeaveState{people.LeaveStateActive, people.LeaveStateOnLeave}

	for _, entry := range actions {
		for _, sunday := range []bool{false, true} {
			for _, leave := range leaves {
				got := Resolve(entry.action, sunday, leave)

				var want Status
				switch {
				case entry.action != nil && entry.action.Kind == ActionCanceled:
					want = Status{Kind: StatusNo}
				case entry.action != nil && entry.action.Kind == ActionBooked:
					want = Status{Kind: StatusNormal}
				case entry.action != nil && entry.action.Kind == ActionLate:
					want = Status{Kind: StatusLate, Slot: "19:00"}
				case leave.OnLeave():
					want = Status{Kind: StatusNo}
				case sunday:
					want = Status{Kind: StatusNo}
				default:
					want = Status{Kind: StatusNormal}
				}
				if got != want {
					t.Fatalf("action=%s sunday=%v leave=%s: got %s want %s", entry.name, sunday, leave, got, want)
				}
			}
		}
	}
}

func TestResolveRecordsScenarios(t *testing.T) {
	testCases := []struct {
		name    string
		records []MealAction
		date    time.Time
		leave   people.LeaveState
		want    string
	}{
		{name: "weekday default", date: testMonday, leave: people.LeaveStateActive, want: "NORMAL"},
		{name: "sunday default", date: testSunday, leave: people.LeaveStateActive, want: "NO"},
		{name: "leave default", date: testMonday, leave: people.LeaveStateOnLeave, want: "NO"},
		{
			name:    "sunday opt in",
			records: []MealAction{{Action: "BOOKED", RecordedAt: 1}},
			date:    testSunday,
			leave:   people.LeaveStateActive,
			want:    "NORMAL",
		},
		{
			name:    "leave overridden by late",
			records: []MealAction{{Action: "LATE_20:00", RecordedAt: 1}},
			date:    testMonday,
			leave:   people.LeaveStateOnLeave,
			want:    "LATE(20:00)",
		},
		{
			name: "newest record wins",
			records: []MealAction{
				{Action: "CANCELED", RecordedAt: 5},
				{Action: "BOOKED", RecordedAt: 3},
			},
			date:  testMonday,
			leave: people.LeaveStateActive,
			want:  "NO",
		},
		{
			name: "tie goes to the last row",
			records: []MealAction{
				{Action: "CANCELED", RecordedAt: 5},
				{Action: "LATE_19:00", RecordedAt: 5},
			},
			date:  testMonday,
			leave: people.LeaveStateActive,
			want:  "LATE(19:00)",
		},
		{
			name: "invalidated and garbage ignored",
			records: []MealAction{
				{Action: "CANCELED", RecordedAt: 9, Invalidated: true},
				{Action: "EAT", RecordedAt: 10},
				{Action: "DELETE", RecordedAt: 11},
			},
			date:  testMonday,
			leave: people.LeaveStateActive,
			want:  "NORMAL",
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			got := ResolveRecords(testCase.records, testCase.date, testCase.leave)
			if got.String() != testCase.want {
				t.Fatalf("got %s want %s", got, testCase.want)
			}
		})
	}
}

func TestStatusEating(t *testing.T) {
	if (Status{Kind: StatusNo}).Eating() {
		t.Fatalf("NO must not count as eating")
	}
	if !(Status{Kind: StatusLate, Slot: "19:00"}).Eating() {
		t.Fatalf("LATE must count as eating")
	}
}
