package spreadsheet

import (
	"fmt"
	"io"
	"strings"

	domainerrors "github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/errors"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/ports"

	"github.com/xuri/excelize/v2"
)

// Header aliases accepted for each student column, compared case-insensitively.
var columnAliases = map[string][]string{
	"email":      {"email", "email address", "e-mail"},
	"student_id": {"studentid", "student id", "id"},
	"name":       {"name", "full name"},
	"department": {"department", "dept"},
}

// ExcelStudentParser reads students from the first sheet of an XLSX workbook.
// The first row is the header; blank rows are ignored.
type ExcelStudentParser struct{}

func (ExcelStudentParser) ParseStudents(r io.Reader) ([]ports.StudentRow, error) {
	workbook, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrInvalidSpreadsheet, err)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", domainerrors.ErrInvalidSpreadsheet)
	}
	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrInvalidSpreadsheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %q is empty", domainerrors.ErrInvalidSpreadsheet, sheets[0])
	}

	columns := resolveColumns(rows[0])
	if _, ok := columns["email"]; !ok {
		return nil, fmt.Errorf("%w: no email column in header", domainerrors.ErrInvalidSpreadsheet)
	}

	students := make([]ports.StudentRow, 0, len(rows)-1)
	for index, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		students = append(students, ports.StudentRow{
			Row:           index + 2,
			Email:         cell(row, columns, "email"),
			StudentNumber: cell(row, columns, "student_id"),
			Name:          cell(row, columns, "name"),
			Department:    cell(row, columns, "department"),
		})
	}
	return students, nil
}

func resolveColumns(header []string) map[string]int {
	columns := make(map[string]int)
	for index, title := range header {
		normalized := strings.ToLower(strings.TrimSpace(title))
		for field, aliases := range columnAliases {
			if _, taken := columns[field]; taken {
				continue
			}
			for _, alias := range aliases {
				if normalized == alias {
					columns[field] = index
					break
				}
			}
		}
	}
	return columns
}

func cell(row []string, columns map[string]int, field string) string {
	index, ok := columns[field]
	if !ok || index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}

func isBlank(row []string) bool {
	for _, value := range row {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}

var _ ports.StudentSheetParser = ExcelStudentParser{}
