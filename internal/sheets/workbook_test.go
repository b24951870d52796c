package sheets

import (
	"bytes"
	"errors"
	"testing"

	"github.com/659954771/meal-app/internal/meals"
	"github.com/659954771/meal-app/internal/people"
	"github.com/xuri/excelize/v2"
)

func TestWorkbookRoundTrip(t *testing.T) {
	roster := []people.Person{
		{Phone: "0911111111", Name: "An", RegisteredOn: "2026-09-01", Status: "active"},
		{Phone: "0922222222", Name: "Binh", RegisteredOn: "2026-09-15", Status: "leave"},
	}
	actions := []meals.MealAction{
		{Date: "2026-10-19", Phone: "0911111111", Name: "An", MealType: "Lunch", Action: "LATE_12:30", Time: "08:15:00"},
		{Date: "2026-10-19", Phone: "0922222222", Name: "Binh", MealType: "Dinner", Action: "BOOKED", Time: "10:00:00"},
		{Date: "2026-10-18", Phone: "0922222222", Name: "Binh", MealType: "Lunch", Action: "BOOKED", Invalidated: true},
	}

	var buffer bytes.Buffer
	if err := WriteWorkbook(&buffer, roster, actions); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	workbook, err := ReadWorkbook(&buffer, "export.xlsx")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(workbook.People) != 2 || workbook.People[1].Status != "leave" || workbook.People[0].RegisteredOn != "2026-09-01" {
		t.Fatalf("unexpected people %+v", workbook.People)
	}
	if len(workbook.Actions) != 2 {
		t.Fatalf("expected invalidated rows to be left out, got %+v", workbook.Actions)
	}
	if workbook.Actions[0].Action != "LATE_12:30" || workbook.Actions[1].MealType != "Dinner" {
		t.Fatalf("unexpected actions %+v", workbook.Actions)
	}
	if workbook.Skipped != 0 {
		t.Fatalf("expected no skipped rows, got %d", workbook.Skipped)
	}
}

func TestReadWorkbookNormalizesLegacyRows(t *testing.T) {
	file := excelize.NewFile()
	if err := file.SetSheetName(file.GetSheetName(0), "Users"); err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if _, err := file.NewSheet("Orders"); err != nil {
		t.Fatalf("new sheet failed: %v", err)
	}
	setRows(t, file, "Users", [][]interface{}{
		{"Phone", "Name", "Reg_Date", "Status"},
		{"912345678.0", "  An  ", "46296", ""},
		{"", "Nobody", "", ""},
		{"", "", "", ""},
	})
	setRows(t, file, "Orders", [][]interface{}{
		{"Date", "Phone", "Name", "Meal_Type", "Action", "Time"},
		{"2026/10/19", "912345678", "An", "lunch", "canceled", "07:10:00"},
		{"2026-10-19", "912345678", "An", "Dinner", "DELETE", ""},
		{"not a date", "912345678", "An", "Dinner", "BOOKED", ""},
	})
	var buffer bytes.Buffer
	if err := file.Write(&buffer); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	workbook, err := ReadWorkbook(&buffer, "legacy.xlsx")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(workbook.People) != 1 {
		t.Fatalf("expected one person, got %+v", workbook.People)
	}
	person := workbook.People[0]
	if person.Phone != "0912345678" || person.Name != "An" || person.Status != "active" || person.RegisteredOn != "2026-10-01" {
		t.Fatalf("unexpected person %+v", person)
	}
	if len(workbook.Actions) != 1 || workbook.Actions[0].Action != "CANCELED" || workbook.Actions[0].Date != "2026-10-19" {
		t.Fatalf("unexpected actions %+v", workbook.Actions)
	}
	// one nameless person, one DELETE row, one bad date
	if workbook.Skipped != 3 {
		t.Fatalf("expected 3 skipped rows, got %d", workbook.Skipped)
	}
}

func TestReadWorkbookRequiresPeopleSheet(t *testing.T) {
	file := excelize.NewFile()
	var buffer bytes.Buffer
	if err := file.Write(&buffer); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := ReadWorkbook(&buffer, "empty.xlsx"); !errors.Is(err, ErrNoPeopleSheet) {
		t.Fatalf("expected ErrNoPeopleSheet, got %v", err)
	}
}

func TestReadWorkbookRequiresColumns(t *testing.T) {
	file := excelize.NewFile()
	if err := file.SetSheetName(file.GetSheetName(0), "people"); err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	setRows(t, file, "people", [][]interface{}{{"phone", "status"}, {"0911111111", "active"}})
	var buffer bytes.Buffer
	if err := file.Write(&buffer); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := ReadWorkbook(&buffer, "people.xlsx"); !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
}

func TestNormalizeDate(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
		ok       bool
	}{
		{input: "2026-10-19", expected: "2026-10-19", ok: true},
		{input: "2026/10/19", expected: "2026-10-19", ok: true},
		{input: "10/19/2026", expected: "2026-10-19", ok: true},
		{input: "2026-10-19 08:30:00", expected: "2026-10-19", ok: true},
		{input: "46314", expected: "2026-10-19", ok: true},
		{input: "12", ok: false},
		{input: "", ok: false},
		{input: "yesterday", ok: false},
	}
	for _, testCase := range testCases {
		actual, ok := normalizeDate(testCase.input)
		if ok != testCase.ok || actual != testCase.expected {
			t.Fatalf("normalizeDate(%q) = %q, %v; expected %q, %v", testCase.input, actual, ok, testCase.expected, testCase.ok)
		}
	}
}

func setRows(t *testing.T, file *excelize.File, sheet string, rows [][]interface{}) {
	t.Helper()
	if err := writeRows(file, sheet, rows); err != nil {
		t.Fatalf("set rows failed: %v", err)
	}
}
