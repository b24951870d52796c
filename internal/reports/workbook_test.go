package reports

import (
	"bytes"
	"testing"
	"time"

	"github.com/659954771/meal-app/internal/people"
	"github.com/xuri/excelize/v2"
)

func TestWriteMonthlyWorkbook(t *testing.T) {
	report := BuildMonthlyReport(Snapshot{People: []people.Person{person("0911111111", "An", "active")}}, 2026, time.September, testZone)

	var buffer bytes.Buffer
	if err := WriteMonthlyWorkbook(&buffer, report); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	file, err := excelize.OpenReader(&buffer)
	if err != nil {
		t.Fatalf("failed to reopen workbook: %v", err)
	}
	defer func() { _ = file.Close() }()

	daily, err := file.GetRows(sheetDaily)
	if err != nil {
		t.Fatalf("failed to read daily sheet: %v", err)
	}
	// header, 30 days, totals
	if len(daily) != 32 {
		t.Fatalf("expected 32 rows, got %d", len(daily))
	}
	if daily[1][0] != "2026-09-01" || daily[1][1] != "Tuesday" {
		t.Fatalf("unexpected first day row %v", daily[1])
	}
	if daily[31][0] != "Total" || daily[31][3] != "26" {
		t.Fatalf("unexpected totals row %v", daily[31])
	}

	peopleRows, err := file.GetRows(sheetPeople)
	if err != nil {
		t.Fatalf("failed to read people sheet: %v", err)
	}
	if len(peopleRows) != 2 || peopleRows[1][1] != "An" || peopleRows[1][2] != "26" {
		t.Fatalf("unexpected people rows %v", peopleRows)
	}
}
