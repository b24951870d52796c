// Package sheets reads and writes the two-table workbook layout used by the hosted spreadsheet
// the roster and action log were originally kept in.
package sheets

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/659954771/meal-app/internal/meals"
	"github.com/659954771/meal-app/internal/people"
	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

const maxLegacyRows = 100000

var (
	// ErrNoPeopleSheet indicates the workbook has no roster sheet.
	ErrNoPeopleSheet = errors.New("sheets: people sheet not found")
	// ErrMissingColumn indicates a required header is absent.
	ErrMissingColumn = errors.New("sheets: required column missing")

	peopleSheetNames = []string{"users", "people"}
	actionSheetNames = []string{"orders", "meal_actions", "meals"}
	peopleColumns    = []string{"phone", "name", "reg_date", "status"}
	actionColumns    = []string{"date", "phone", "name", "meal_type", "action", "time"}
)

// Workbook is the decoded content of a legacy workbook.
type Workbook struct {
	People  []people.Person
	Actions []meals.MealAction
	Skipped int
}

// ReadWorkbook decodes a workbook. The extension of filename selects the .xls or .xlsx reader.
func ReadWorkbook(reader io.Reader, filename string) (Workbook, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return Workbook{}, err
	}
	tables, err := readTables(data, filename)
	if err != nil {
		return Workbook{}, err
	}

	peopleRows, ok := findTable(tables, peopleSheetNames)
	if !ok {
		return Workbook{}, ErrNoPeopleSheet
	}
	var workbook Workbook
	roster, skipped, err := decodePeople(peopleRows)
	if err != nil {
		return Workbook{}, err
	}
	workbook.People = roster
	workbook.Skipped += skipped

	if actionRows, ok := findTable(tables, actionSheetNames); ok {
		actions, skipped, err := decodeActions(actionRows)
		if err != nil {
			return Workbook{}, err
		}
		workbook.Actions = actions
		workbook.Skipped += skipped
	}
	return workbook, nil
}

func readTables(data []byte, filename string) (map[string][][]string, error) {
	tables := make(map[string][][]string)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xls":
		book, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
		if err != nil {
			return nil, err
		}
		for index := 0; index < book.NumSheets(); index++ {
			sheet := book.GetSheet(index)
			if sheet == nil {
				continue
			}
			rows := make([][]string, 0, int(sheet.MaxRow)+1)
			for rowIndex := 0; rowIndex <= int(sheet.MaxRow) && rowIndex < maxLegacyRows; rowIndex++ {
				row := sheet.Row(rowIndex)
				if row == nil {
					rows = append(rows, nil)
					continue
				}
				cells := make([]string, 0, row.LastCol())
				for col := 0; col < row.LastCol(); col++ {
					cells = append(cells, row.Col(col))
				}
				rows = append(rows, cells)
			}
			tables[normalizeHeader(sheet.Name)] = rows
		}
	default:
		file, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer func() { _ = file.Close() }()
		for _, name := range file.GetSheetList() {
			rows, err := file.GetRows(name)
			if err != nil {
				return nil, err
			}
			tables[normalizeHeader(name)] = rows
		}
	}
	return tables, nil
}

func findTable(tables map[string][][]string, names []string) ([][]string, bool) {
	for _, name := range names {
		if rows, ok := tables[name]; ok {
			return rows, true
		}
	}
	return nil, false
}

func headerIndex(header []string, required []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for position, value := range header {
		index[normalizeHeader(value)] = position
	}
	for _, column := range required {
		if _, ok := index[column]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, column)
		}
	}
	return index, nil
}

func decodePeople(rows [][]string) ([]people.Person, int, error) {
	if len(rows) == 0 {
		return nil, 0, nil
	}
	index, err := headerIndex(rows[0], []string{"phone", "name"})
	if err != nil {
		return nil, 0, err
	}
	roster := make([]people.Person, 0, len(rows)-1)
	skipped := 0
	for _, row := range rows[1:] {
		identity := people.NormalizeIdentity(cellValue(row, index, "phone"))
		name := cellValue(row, index, "name")
		if identity.IsZero() || name == "" {
			if !blankRow(row) {
				skipped++
			}
			continue
		}
		state, err := people.ParseLeaveState(cellValue(row, index, "status"))
		if err != nil {
			state = people.LeaveStateActive
		}
		regDate := ""
		if date, ok := normalizeDate(cellValue(row, index, "reg_date")); ok {
			regDate = date
		}
		roster = append(roster, people.Person{
			Phone:        identity.String(),
			Name:         name,
			RegisteredOn: regDate,
			Status:       string(state),
		})
	}
	return roster, skipped, nil
}

func decodeActions(rows [][]string) ([]meals.MealAction, int, error) {
	if len(rows) == 0 {
		return nil, 0, nil
	}
	index, err := headerIndex(rows[0], []string{"date", "phone", "meal_type", "action"})
	if err != nil {
		return nil, 0, err
	}
	actions := make([]meals.MealAction, 0, len(rows)-1)
	skipped := 0
	for _, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		identity := people.NormalizeIdentity(cellValue(row, index, "phone"))
		date, dateOK := normalizeDate(cellValue(row, index, "date"))
		meal, mealErr := meals.ParseMealType(cellValue(row, index, "meal_type"))
		action, actionErr := meals.ParseAction(cellValue(row, index, "action"))
		if identity.IsZero() || !dateOK || mealErr != nil || actionErr != nil || !action.Stored() {
			skipped++
			continue
		}
		actions = append(actions, meals.MealAction{
			Date:     date,
			Phone:    identity.String(),
			Name:     cellValue(row, index, "name"),
			MealType: meal.String(),
			Action:   action.Token(),
			Time:     cellValue(row, index, "time"),
		})
	}
	return actions, skipped, nil
}

// WriteWorkbook exports the roster and live action rows in the legacy column layout.
func WriteWorkbook(w io.Writer, roster []people.Person, actions []meals.MealAction) error {
	file := excelize.NewFile()
	defer func() { _ = file.Close() }()

	if err := file.SetSheetName(file.GetSheetName(0), peopleSheetNames[0]); err != nil {
		return err
	}
	if _, err := file.NewSheet(actionSheetNames[0]); err != nil {
		return err
	}

	peopleRows := [][]interface{}{toInterfaces(peopleColumns)}
	for _, person := range roster {
		peopleRows = append(peopleRows, []interface{}{person.Phone, person.Name, person.RegisteredOn, string(person.LeaveState())})
	}
	if err := writeRows(file, peopleSheetNames[0], peopleRows); err != nil {
		return err
	}

	actionRows := [][]interface{}{toInterfaces(actionColumns)}
	for _, action := range actions {
		if action.Invalidated {
			continue
		}
		actionRows = append(actionRows, []interface{}{action.Date, action.Phone, action.Name, action.MealType, action.Action, action.Time})
	}
	if err := writeRows(file, actionSheetNames[0], actionRows); err != nil {
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
			return err
		}
	}
	return nil
}

func toInterfaces(values []string) []interface{} {
	converted := make([]interface{}, len(values))
	for index, value := range values {
		converted[index] = value
	}
	return converted
}

func normalizeHeader(header string) string {
	return strings.ToLower(strings.TrimSpace(header))
}

func cellValue(row []string, index map[string]int, column string) string {
	position, ok := index[column]
	if !ok || position < 0 || position >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[position])
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

var dateFormats = []string{
	meals.DateLayout,
	"2006/01/02",
	"1/2/2006",
	"01/02/2006",
	"2006-01-02 15:04:05",
}

// normalizeDate accepts ISO dates, a few spreadsheet renderings and Excel serial numbers.
func normalizeDate(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		if serial < 20000 || serial > 80000 {
			return "", false
		}
		parsed, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return "", false
		}
		return parsed.Format(meals.DateLayout), true
	}
	for _, layout := range dateFormats {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.Format(meals.DateLayout), true
		}
	}
	return "", false
}
