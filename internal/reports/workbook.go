package reports

import (
	"fmt"
	"io"

	"github.com/659954771/meal-app/internal/meals"
	"github.com/xuri/excelize/v2"
)

const (
	sheetDaily  = "Daily"
	sheetPeople = "People"
)

// WriteMonthlyWorkbook renders the monthly report as an .xlsx workbook with a daily sheet and
// a per-person sheet.
func WriteMonthlyWorkbook(w io.Writer, report MonthlyReport) error {
	file := excelize.NewFile()
	defer func() { _ = file.Close() }()

	if err := file.SetSheetName(file.GetSheetName(0), sheetDaily); err != nil {
		return err
	}
	if _, err := file.NewSheet(sheetPeople); err != nil {
		return err
	}

	dailyRows := [][]interface{}{{"Date", "Weekday", "Headcount", "Lunch", "Lunch late", "Dinner", "Dinner late"}}
	for _, day := range report.Days {
		weekday := ""
		if parsed, err := meals.ParseDate(day.Date, nil); err == nil {
			weekday = parsed.Weekday().String()
		}
		dailyRows = append(dailyRows, []interface{}{day.Date, weekday, day.Headcount, day.Lunch, day.LunchLate, day.Dinner, day.DinnerLate})
	}
	dailyRows = append(dailyRows, []interface{}{"Total", "", "", report.TotalLunch, "", report.TotalDinner, ""})
	if err := writeRows(file, sheetDaily, dailyRows); err != nil {
		return err
	}

	peopleRows := [][]interface{}{{"Phone", "Name", "Lunch days", "Dinner days"}}
	for _, person := range report.People {
		peopleRows = append(peopleRows, []interface{}{person.Phone, person.Name, person.LunchDays, person.DinnerDays})
	}
	if err := writeRows(file, sheetPeople, peopleRows); err != nil {
		return err
	}

	return file.Write(w)
}

func writeRows(file *excelize.File, sheet string, rows [][]interface{}) error {
	for index, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, index+1)
		if err != nil {
			return err
		}
		values := row
		if err := file.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("reports: write %s row %d: %w", sheet, index+1, err)
		}
	}
	return nil
}
