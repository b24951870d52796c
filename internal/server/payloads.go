package server

import (
	"time"

	"github.com/659954771/meal-app/internal/meals"
	"github.com/659954771/meal-app/internal/people"
	"github.com/659954771/meal-app/internal/reports"
)

type personPayload struct {
	Phone        string `json:"phone"`
	Name         string `json:"name"`
	RegisteredOn string `json:"reg_date"`
	Status       string `json:"status"`
}

func newPersonPayload(person people.Person) personPayload {
	return personPayload{
		Phone:        person.Phone,
		Name:         person.Name,
		RegisteredOn: person.RegisteredOn,
		Status:       string(person.LeaveState()),
	}
}

type statusPayload struct {
	Status string `json:"status"`
	Slot   string `json:"slot,omitempty"`
	Eating bool   `json:"eating"`
}

func newStatusPayload(status meals.Status) statusPayload {
	payload := statusPayload{Eating: status.Eating(), Slot: status.Slot}
	switch status.Kind {
	case meals.StatusNormal:
		payload.Status = "NORMAL"
	case meals.StatusLate:
		payload.Status = "LATE"
	default:
		payload.Status = "NO"
	}
	return payload
}

type mealStatusPayload struct {
	Meal string `json:"meal"`
	statusPayload
	Locked    bool     `json:"locked"`
	Deadline  string   `json:"deadline"`
	LateSlots []string `json:"late_slots"`
}

type dayPayload struct {
	Person personPayload       `json:"person"`
	Date   string              `json:"date"`
	Meals  []mealStatusPayload `json:"meals"`
}

func newDayPayload(schedule *meals.Schedule, person personPayload, date, now time.Time, statuses map[meals.MealType]meals.Status) dayPayload {
	payload := dayPayload{Person: person, Date: meals.FormatDate(date), Meals: make([]mealStatusPayload, 0, len(meals.MealTypes))}
	for _, meal := range meals.MealTypes {
		payload.Meals = append(payload.Meals, mealStatusPayload{
			Meal:          meal.String(),
			statusPayload: newStatusPayload(statuses[meal]),
			Locked:        schedule.Locked(meal, date, now),
			Deadline:      schedule.Deadline(meal, date).Format(time.RFC3339),
			LateSlots:     schedule.LateSlots(meal),
		})
	}
	return payload
}

type dayCountsPayload struct {
	Date       string `json:"date"`
	Headcount  int    `json:"headcount"`
	Lunch      int    `json:"lunch"`
	Dinner     int    `json:"dinner"`
	LunchLate  int    `json:"lunch_late"`
	DinnerLate int    `json:"dinner_late"`
}

func newDayCountsPayload(counts reports.DayCounts) dayCountsPayload {
	return dayCountsPayload{
		Date:       counts.Date,
		Headcount:  counts.Headcount,
		Lunch:      counts.Lunch,
		Dinner:     counts.Dinner,
		LunchLate:  counts.LunchLate,
		DinnerLate: counts.DinnerLate,
	}
}

type rosterEntryPayload struct {
	Phone  string        `json:"phone"`
	Name   string        `json:"name"`
	Status string        `json:"status"`
	Lunch  statusPayload `json:"lunch"`
	Dinner statusPayload `json:"dinner"`
}

type rosterPayload struct {
	Date    string               `json:"date"`
	Entries []rosterEntryPayload `json:"entries"`
	Totals  dayCountsPayload     `json:"totals"`
}

func newRosterPayload(roster reports.Roster) rosterPayload {
	payload := rosterPayload{
		Date:    roster.Date,
		Entries: make([]rosterEntryPayload, 0, len(roster.Entries)),
		Totals:  newDayCountsPayload(roster.Counts),
	}
	for _, entry := range roster.Entries {
		payload.Entries = append(payload.Entries, rosterEntryPayload{
			Phone:  entry.Phone,
			Name:   entry.Name,
			Status: string(entry.LeaveState),
			Lunch:  newStatusPayload(entry.Lunch),
			Dinner: newStatusPayload(entry.Dinner),
		})
	}
	return payload
}

type memberPayload struct {
	Phone string `json:"phone"`
	Name  string `json:"name"`
}

type lateBucketPayload struct {
	Slot    string          `json:"slot"`
	Count   int             `json:"count"`
	Members []memberPayload `json:"members"`
}

type lateBoardPayload struct {
	Date    string              `json:"date"`
	Meal    string              `json:"meal"`
	Total   int                 `json:"total"`
	Buckets []lateBucketPayload `json:"buckets"`
}

func newLateBoardPayload(board reports.LateBoard) lateBoardPayload {
	payload := lateBoardPayload{
		Date:    board.Date,
		Meal:    board.Meal.String(),
		Total:   board.Total,
		Buckets: make([]lateBucketPayload, 0, len(board.Buckets)),
	}
	for _, bucket := range board.Buckets {
		members := make([]memberPayload, 0, len(bucket.Members))
		for _, member := range bucket.Members {
			members = append(members, memberPayload{Phone: member.Phone, Name: member.Name})
		}
		payload.Buckets = append(payload.Buckets, lateBucketPayload{Slot: bucket.Slot, Count: bucket.Count, Members: members})
	}
	return payload
}

type personTotalsPayload struct {
	Phone      string `json:"phone"`
	Name       string `json:"name"`
	LunchDays  int    `json:"lunch_days"`
	DinnerDays int    `json:"dinner_days"`
}

type monthlyPayload struct {
	Month       string                `json:"month"`
	Days        []dayCountsPayload    `json:"days"`
	People      []personTotalsPayload `json:"people"`
	TotalLunch  int                   `json:"total_lunch"`
	TotalDinner int                   `json:"total_dinner"`
}

func newMonthlyPayload(report reports.MonthlyReport) monthlyPayload {
	payload := monthlyPayload{
		Month:       time.Date(report.Year, report.Month, 1, 0, 0, 0, 0, time.UTC).Format(monthLayout),
		Days:        make([]dayCountsPayload, 0, len(report.Days)),
		People:      make([]personTotalsPayload, 0, len(report.People)),
		TotalLunch:  report.TotalLunch,
		TotalDinner: report.TotalDinner,
	}
	for _, day := range report.Days {
		payload.Days = append(payload.Days, newDayCountsPayload(day))
	}
	for _, person := range report.People {
		payload.People = append(payload.People, personTotalsPayload{
			Phone:      person.Phone,
			Name:       person.Name,
			LunchDays:  person.LunchDays,
			DinnerDays: person.DinnerDays,
		})
	}
	return payload
}

type actionPayload struct {
	ActionID    string `json:"action_id"`
	Date        string `json:"date"`
	Phone       string `json:"phone"`
	Name        string `json:"name"`
	Meal        string `json:"meal_type"`
	Action      string `json:"action"`
	Time        string `json:"time"`
	Invalidated bool   `json:"invalidated"`
}

func newActionPayload(row meals.MealAction) actionPayload {
	return actionPayload{
		ActionID:    row.ActionID,
		Date:        row.Date,
		Phone:       row.Phone,
		Name:        row.Name,
		Meal:        row.MealType,
		Action:      row.Action,
		Time:        row.Time,
		Invalidated: row.Invalidated,
	}
}
