package reports

import (
	"sort"
	"time"

	"github.com/659954771/meal-app/internal/meals"
	"github.com/659954771/meal-app/internal/people"
)

// RosterEntry is one row of the admin daily table.
type RosterEntry struct {
	Phone      string
	Name       string
	LeaveState people.LeaveState
	Lunch      meals.Status
	Dinner     meals.Status
}

// Roster is the admin view of everybody's resolved status on a date.
type Roster struct {
	Date    string
	Entries []RosterEntry
	Counts  DayCounts
}

// BuildRoster resolves both meals for every person on the roster.
func BuildRoster(snapshot Snapshot, date time.Time) Roster {
	r := newResolver(snapshot)
	dateKey := meals.FormatDate(date)
	roster := Roster{Date: dateKey, Entries: []RosterEntry{}, Counts: r.day(date)}
	for _, person := range r.people {
		roster.Entries = append(roster.Entries, RosterEntry{
			Phone:      person.Phone,
			Name:       person.Name,
			LeaveState: person.LeaveState(),
			Lunch:      r.status(person, date, meals.MealLunch),
			Dinner:     r.status(person, date, meals.MealDinner),
		})
	}
	sort.SliceStable(roster.Entries, func(i, j int) bool {
		return roster.Entries[i].Name < roster.Entries[j].Name
	})
	return roster
}

// Member identifies a person in a late pickup bucket.
type Member struct {
	Phone string
	Name  string
}

// LateBucket groups the people picking up a meal at the same slot.
type LateBucket struct {
	Slot    string
	Count   int
	Members []Member
}

// LateBoard is the chef's view of late pickups for one meal.
type LateBoard struct {
	Date    string
	Meal    meals.MealType
	Total   int
	Buckets []LateBucket
}

// BuildLateBoard buckets everybody resolved to a late status by slot. People eating at the
// standard time or not eating are excluded; an empty board has no buckets.
func BuildLateBoard(snapshot Snapshot, date time.Time, meal meals.MealType) LateBoard {
	r := newResolver(snapshot)
	dateKey := meals.FormatDate(date)
	board := LateBoard{Date: dateKey, Meal: meal, Buckets: []LateBucket{}}

	bySlot := make(map[string]*LateBucket)
	for _, person := range r.people {
		status := r.status(person, date, meal)
		if status.Kind != meals.StatusLate {
			continue
		}
		bucket, ok := bySlot[status.Slot]
		if !ok {
			bucket = &LateBucket{Slot: status.Slot}
			bySlot[status.Slot] = bucket
		}
		bucket.Members = append(bucket.Members, Member{Phone: person.Phone, Name: person.Name})
		bucket.Count++
		board.Total++
	}

	for _, bucket := range bySlot {
		sort.SliceStable(bucket.Members, func(i, j int) bool {
			return bucket.Members[i].Name < bucket.Members[j].Name
		})
		board.Buckets = append(board.Buckets, *bucket)
	}
	sort.Slice(board.Buckets, func(i, j int) bool {
		return board.Buckets[i].Slot < board.Buckets[j].Slot
	})
	return board
}
