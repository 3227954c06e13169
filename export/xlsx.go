package export

import (
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet rows are written to.
const SheetName = "Data"

// WriteXLSX writes rows as a single-sheet Excel workbook.
func WriteXLSX(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return errors.Wrap(err, "name sheet")
	}

	cols := header(rows)
	if err := writeSheetRow(f, 1, cols); err != nil {
		return err
	}
	for i, row := range rows {
		if err := writeSheetRow(f, i+2, values(row, cols)); err != nil {
			return err
		}
	}
	return errors.Wrap(f.Write(w), "write workbook")
}

func writeSheetRow(f *excelize.File, n int, cells []string) error {
	start, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return errors.Wrapf(err, "row %d", n)
	}
	row := make([]any, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return errors.Wrapf(f.SetSheetRow(SheetName, start, &row), "write row %d", n)
}

// Format is an export encoding.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatTable Format = "table"
	FormatXLSX  Format = "xlsx"
)

// ParseFormat accepts csv, table and xlsx ("excel" is an alias of xlsx).
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatTable, FormatXLSX:
		return Format(s), nil
	case "excel":
		return FormatXLSX, nil
	}
	return "", errors.Errorf("unsupported export format: %s", s)
}

// ContentType is the HTTP media type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatTable:
		return "text/plain; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Extension is the file extension of f, without the dot.
func (f Format) Extension() string {
	if f == FormatTable {
		return "txt"
	}
	return string(f)
}

// Write encodes rows in format f.
func Write(w io.Writer, f Format, rows []Row) error {
	switch f {
	case FormatTable:
		return WriteTable(w, rows)
	case FormatXLSX:
		return WriteXLSX(w, rows)
	}
	return WriteCSV(w, rows)
}
