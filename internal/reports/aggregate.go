package reports

import (
	"sort"
	"time"

	"github.com/659954771/meal-app/internal/meals"
	"github.com/659954771/meal-app/internal/people"
)

// Snapshot is the roster and action log content a report is computed from.
type Snapshot struct {
	People  []people.Person
	Actions []meals.MealAction
}

// DayCounts holds the eating totals of one date.
type DayCounts struct {
	Date       string
	Headcount  int
	Lunch      int
	Dinner     int
	LunchLate  int
	DinnerLate int
}

// PersonTotals counts the days in a month a person ate each meal.
type PersonTotals struct {
	Phone      string
	Name       string
	LunchDays  int
	DinnerDays int
}

// MonthlyReport holds the daily series and per-person totals of a calendar month.
type MonthlyReport struct {
	Year        int
	Month       time.Month
	Days        []DayCounts
	People      []PersonTotals
	TotalLunch  int
	TotalDinner int
}

type actionKey struct {
	date  string
	phone string
	meal  meals.MealType
}

// resolver answers status queries over a snapshot.
type resolver struct {
	people  []people.Person
	actions map[actionKey][]meals.MealAction
}

func newResolver(snapshot Snapshot) *resolver {
	roster := make([]people.Person, 0, len(snapshot.People))
	seen := make(map[string]struct{}, len(snapshot.People))
	for _, person := range snapshot.People {
		identity := people.NormalizeIdentity(person.Phone)
		if identity.IsZero() {
			continue
		}
		if _, ok := seen[identity.String()]; ok {
			continue
		}
		seen[identity.String()] = struct{}{}
		person.Phone = identity.String()
		roster = append(roster, person)
	}

	index := make(map[actionKey][]meals.MealAction)
	for _, row := range snapshot.Actions {
		if row.Invalidated {
			continue
		}
		identity := people.NormalizeIdentity(row.Phone)
		if _, ok := seen[identity.String()]; !ok {
			continue
		}
		meal, err := meals.ParseMealType(row.MealType)
		if err != nil {
			continue
		}
		key := actionKey{date: row.Date, phone: identity.String(), meal: meal}
		index[key] = append(index[key], row)
	}
	return &resolver{people: roster, actions: index}
}

func (r *resolver) status(person people.Person, date time.Time, meal meals.MealType) meals.Status {
	key := actionKey{date: meals.FormatDate(date), phone: person.Phone, meal: meal}
	return meals.ResolveRecords(r.actions[key], date, person.LeaveState())
}

func (r *resolver) day(date time.Time) DayCounts {
	counts := DayCounts{Date: meals.FormatDate(date)}
	for _, person := range r.people {
		counts.Headcount++
		lunch := r.status(person, date, meals.MealLunch)
		if lunch.Eating() {
			counts.Lunch++
		}
		if lunch.Kind == meals.StatusLate {
			counts.LunchLate++
		}
		dinner := r.status(person, date, meals.MealDinner)
		if dinner.Eating() {
			counts.Dinner++
		}
		if dinner.Kind == meals.StatusLate {
			counts.DinnerLate++
		}
	}
	return counts
}

// DailyCounts resolves every person on the roster for both meals of the date. Registration
// dates are informational and do not limit which dates a person is counted on.
func DailyCounts(snapshot Snapshot, date time.Time) DayCounts {
	return newResolver(snapshot).day(date)
}

// BuildMonthlyReport resolves every day of the month. The result depends only on the snapshot.
func BuildMonthlyReport(snapshot Snapshot, year int, month time.Month, location *time.Location) MonthlyReport {
	if location == nil {
		location = time.UTC
	}
	r := newResolver(snapshot)
	report := MonthlyReport{Year: year, Month: month}

	totals := make([]PersonTotals, len(r.people))
	for index, person := range r.people {
		totals[index] = PersonTotals{Phone: person.Phone, Name: person.Name}
	}

	for _, date := range DaysOfMonth(year, month, location) {
		report.Days = append(report.Days, r.day(date))
		for index, person := range r.people {
			if r.status(person, date, meals.MealLunch).Eating() {
				totals[index].LunchDays++
			}
			if r.status(person, date, meals.MealDinner).Eating() {
				totals[index].DinnerDays++
			}
		}
	}

	for _, day := range report.Days {
		report.TotalLunch += day.Lunch
		report.TotalDinner += day.Dinner
	}
	sort.SliceStable(totals, func(i, j int) bool {
		if totals[i].Name == totals[j].Name {
			return totals[i].Phone < totals[j].Phone
		}
		return totals[i].Name < totals[j].Name
	})
	report.People = totals
	return report
}

// DaysOfMonth lists midnight of every calendar day in the month.
func DaysOfMonth(year int, month time.Month, location *time.Location) []time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, location)
	length := first.AddDate(0, 1, -1).Day()
	days := make([]time.Time, 0, length)
	for offset := 0; offset < length; offset++ {
		days = append(days, first.AddDate(0, 0, offset))
	}
	return days
}
