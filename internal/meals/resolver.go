package meals

import (
	"time"

	"github.com/659954771/meal-app/internal/people"
)

// StatusKind is the resolved eat/no-eat decision for a person, date and meal.
type StatusKind int

const (
	// StatusNo means the person is not eating.
	StatusNo StatusKind = iota
	// StatusNormal means the person eats at the standard time.
	StatusNormal
	// StatusLate means the person eats at the late pickup slot.
	StatusLate
)

// Status is the resolved outcome. Slot is set only for StatusLate.
type Status struct {
	Kind StatusKind
	Slot string
}

// Eating reports whether the status counts towards meal totals.
func (s Status) Eating() bool {
	return s.Kind == StatusNormal || s.Kind == StatusLate
}

// String renders the status as NORMAL, NO or LATE(HH:MM).
func (s Status) String() string {
	switch s.Kind {
	case StatusNormal:
		return "NORMAL"
	case StatusLate:
		return "LATE(" + s.Slot + ")"
	default:
		return "NO"
	}
}

// Resolve applies manual-action precedence over the day-of-week default.
// A manual action always wins. Without one, on-leave people do not eat, Sunday is opt-in and
// every other day is opt-out.
func Resolve(latest *Action, isSunday bool, leave people.LeaveState) Status {
	if latest != nil {
		switch latest.Kind {
		case ActionCanceled:
			return Status{Kind: StatusNo}
		case ActionBooked:
			return Status{Kind: StatusNormal}
		case ActionLate:
			return Status{Kind: StatusLate, Slot: latest.Slot}
		}
	}
	if leave.OnLeave() {
		return Status{Kind: StatusNo}
	}
	if isSunday {
		return Status{Kind: StatusNo}
	}
	return Status{Kind: StatusNormal}
}

// IsSunday reports whether the calendar date falls on the opt-in day.
func IsSunday(date time.Time) bool {
	return date.Weekday() == time.Sunday
}

// LatestAction picks the authoritative row among records sharing a key.
// The greatest recorded_at wins; ties go to the row appearing last.
func LatestAction(records []MealAction) *MealAction {
	var latest *MealAction
	for index := range records {
		if latest == nil || records[index].RecordedAt >= latest.RecordedAt {
			latest = &records[index]
		}
	}
	return latest
}

// ResolveRecords resolves a status from raw rows for one key. Invalidated rows and rows with
// undecodable actions are ignored.
func ResolveRecords(records []MealAction, date time.Time, leave people.LeaveState) Status {
	live := make([]MealAction, 0, len(records))
	for _, record := range records {
		if record.Invalidated {
			continue
		}
		action, err := record.Decoded()
		if err != nil || !action.Stored() {
			continue
		}
		live = append(live, record)
	}
	latest := LatestAction(live)
	if latest == nil {
		return Resolve(nil, IsSunday(date), leave)
	}
	action, _ := latest.Decoded()
	return Resolve(&action, IsSunday(date), leave)
}
