package reports

import (
	"fmt"
	"testing"
	"time"

	"github.com/659954771/meal-app/internal/meals"
	"github.com/659954771/meal-app/internal/people"
)

var testZone = time.FixedZone("UTC+7", 7*3600)

func person(phone, name, status string) people.Person {
	return people.Person{Phone: phone, Name: name, RegisteredOn: "2026-01-01", Status: status}
}

func TestDailyCountsMixedRoster(t *testing.T) {
	monday := time.Date(2026, 10, 19, 0, 0, 0, 0, testZone)
	snapshot := Snapshot{
		People: []people.Person{
			person("0911111111", "An", "active"),
			person("0922222222", "Binh", "active"),
			person("0933333333", "Chi", "leave"),
		},
		Actions: []meals.MealAction{
			{Date: "2026-10-19", Phone: "0922222222", MealType: "Lunch", Action: "CANCELED", RecordedAt: 1},
		},
	}

	counts := DailyCounts(snapshot, monday)
	if counts.Lunch != 1 {
		t.Fatalf("expected lunch=1, got %+v", counts)
	}
	if counts.Dinner != 2 || counts.Headcount != 3 {
		t.Fatalf("unexpected counts %+v", counts)
	}
}

func TestDailyCountsIgnoresOrphansAndCountsLateRegistrations(t *testing.T) {
	monday := time.Date(2026, 10, 19, 0, 0, 0, 0, testZone)
	newcomer := person("0944444444", "Dung", "active")
	newcomer.RegisteredOn = "2026-10-20"
	snapshot := Snapshot{
		People: []people.Person{person("0911111111", "An", "active"), newcomer},
		Actions: []meals.MealAction{
			{Date: "2026-10-19", Phone: "0999999999", MealType: "Lunch", Action: "BOOKED", RecordedAt: 1},
			{Date: "2026-10-19", Phone: "911111111", MealType: "Dinner", Action: "LATE_19:00", RecordedAt: 1},
		},
	}

	counts := DailyCounts(snapshot, monday)
	if counts.Headcount != 2 || counts.Lunch != 2 || counts.Dinner != 2 || counts.DinnerLate != 1 {
		t.Fatalf("unexpected counts %+v", counts)
	}
}

func TestMonthlyReportIgnoresRegistrationDates(t *testing.T) {
	roster := []people.Person{
		person("0911111111", "An", "active"),
		person("0922222222", "Binh", "active"),
		person("0933333333", "Chi", "active"),
	}
	roster[0].RegisteredOn = "2026-09-15"
	roster[1].RegisteredOn = "2026-09-15"
	roster[2].RegisteredOn = "2026-10-18"

	report := BuildMonthlyReport(Snapshot{People: roster}, 2026, time.September, testZone)
	if report.TotalLunch != len(roster)*26 || report.TotalDinner != len(roster)*26 {
		t.Fatalf("expected %d person-days per meal, got lunch=%d dinner=%d", len(roster)*26, report.TotalLunch, report.TotalDinner)
	}
	if first := report.Days[0]; first.Headcount != len(roster) {
		t.Fatalf("expected everyone counted on the first day, got %+v", first)
	}
}

func TestMonthlyReportOnEmptyLog(t *testing.T) {
	const rosterSize = 4
	roster := make([]people.Person, 0, rosterSize)
	for index := 0; index < rosterSize; index++ {
		roster = append(roster, person(fmt.Sprintf("09%08d", index), fmt.Sprintf("Worker %d", index), "active"))
	}

	// September 2026 has 30 days, 4 of them Sundays.
	report := BuildMonthlyReport(Snapshot{People: roster}, 2026, time.September, testZone)
	if len(report.Days) != 30 {
		t.Fatalf("expected 30 days, got %d", len(report.Days))
	}
	if report.TotalLunch != rosterSize*26 || report.TotalDinner != rosterSize*26 {
		t.Fatalf("expected %d person-days per meal, got lunch=%d dinner=%d", rosterSize*26, report.TotalLunch, report.TotalDinner)
	}
	for _, totals := range report.People {
		if totals.LunchDays != 26 || totals.DinnerDays != 26 {
			t.Fatalf("unexpected person totals %+v", totals)
		}
	}
	if report.People[0].Name != "Worker 0" {
		t.Fatalf("expected people sorted by name, got %+v", report.People)
	}
}

func TestMonthlyReportAppliesActions(t *testing.T) {
	roster := []people.Person{person("0911111111", "An", "active")}
	actions := []meals.MealAction{
		{Date: "2026-09-06", Phone: "0911111111", MealType: "Lunch", Action: "BOOKED", RecordedAt: 1},
		{Date: "2026-09-07", Phone: "0911111111", MealType: "Dinner", Action: "CANCELED", RecordedAt: 1},
		{Date: "2026-09-08", Phone: "0911111111", MealType: "Dinner", Action: "CANCELED", RecordedAt: 1, Invalidated: true},
	}

	report := BuildMonthlyReport(Snapshot{People: roster, Actions: actions}, 2026, time.September, testZone)
	if report.TotalLunch != 27 || report.TotalDinner != 25 {
		t.Fatalf("unexpected totals lunch=%d dinner=%d", report.TotalLunch, report.TotalDinner)
	}
}

func TestDaysOfMonthHandlesLeapFebruary(t *testing.T) {
	if days := DaysOfMonth(2028, time.February, testZone); len(days) != 29 {
		t.Fatalf("expected 29 days, got %d", len(days))
	}
	if days := DaysOfMonth(2026, time.February, testZone); len(days) != 28 {
		t.Fatalf("expected 28 days, got %d", len(days))
	}
}
