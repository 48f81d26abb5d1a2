package spreadsheet

import (
	"bytes"
	"errors"
	"testing"

	domainerrors "github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/errors"

	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	file := excelize.NewFile()
	defer file.Close()
	sheet := file.GetSheetName(0)
	for index, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, index+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := file.SetSheetRow(sheet, cellName, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	buf, err := file.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf
}

func TestParseStudentsResolvesHeaderAliases(t *testing.T) {
	buf := workbook(t, [][]any{
		{"Full Name", "E-mail", "Student ID", "Dept"},
		{"Ada Lovelace", "ada@x.edu", "S-1", "Maths"},
		{"", "", "", ""},
		{"Alan Turing", " alan@x.edu ", "S-2", "CS"},
	})

	rows, err := ExcelStudentParser{}.ParseStudents(buf)
	if err != nil {
		t.Fatalf("parse students: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Email != "ada@x.edu" || rows[0].Name != "Ada Lovelace" || rows[0].StudentNumber != "S-1" || rows[0].Department != "Maths" {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	if rows[1].Email != "alan@x.edu" || rows[1].Row != 4 {
		t.Fatalf("unexpected second row: %+v", rows[1])
	}
}

func TestParseStudentsRequiresEmailColumn(t *testing.T) {
	buf := workbook(t, [][]any{
		{"Name", "Department"},
		{"Ada", "Maths"},
	})
	_, err := ExcelStudentParser{}.ParseStudents(buf)
	if !errors.Is(err, domainerrors.ErrInvalidSpreadsheet) || !errors.Is(err, domainerrors.ErrValidation) {
		t.Fatalf("expected invalid spreadsheet validation error, got %v", err)
	}
}

func TestParseStudentsRejectsNonWorkbook(t *testing.T) {
	_, err := ExcelStudentParser{}.ParseStudents(bytes.NewBufferString("email\nada@x.edu\n"))
	if !errors.Is(err, domainerrors.ErrInvalidSpreadsheet) {
		t.Fatalf("expected invalid spreadsheet error, got %v", err)
	}
}
