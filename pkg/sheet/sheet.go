// Package sheet loads and saves the operator checklist workbooks that the
// reconciliation results are written into. Only the first sheet of a
// workbook is used; its first row is the header row. Cell data is kept as
// strings, which is how the checklists are maintained.
package sheet

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// Table is the in-memory form of a checklist sheet. Rows can be ragged, as
// spreadsheet libraries trim trailing empty cells; the accessors pad.
type Table struct {
	Headers []string
	Rows    [][]string
	Columns Columns

	name string
}

// NewTable builds a table from raw header and data rows, resolving the key
// columns from the header names.
func NewTable(headers []string, rows [][]string) *Table {
	return &Table{
		Headers: headers,
		Rows:    rows,
		Columns: ResolveColumns(headers),
		name:    "Sheet1",
	}
}

// Load reads the first sheet of the workbook at path.
func Load(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	return fromFile(f)
}

// LoadReader reads the first sheet of a workbook from r, for uploads.
func LoadReader(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	return fromFile(f)
}

func fromFile(f *excelize.File) (*Table, error) {
	name := f.GetSheetName(0)
	if name == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q has no header row", name)
	}

	t := &Table{
		Headers: rows[0],
		Rows:    rows[1:],
		name:    name,
	}
	t.Columns = ResolveColumns(t.Headers)
	return t, nil
}

// SheetName returns the name of the sheet the table was loaded from.
func (t *Table) SheetName() string {
	return t.name
}

// RowCount returns the number of data rows.
func (t *Table) RowCount() int {
	return len(t.Rows)
}

// Cell returns the value at the given data row and column. Out-of-range
// positions read as empty, which is what a ragged sheet means there.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 {
		return ""
	}
	r := t.Rows[row]
	if col >= len(r) {
		return ""
	}
	return r[col]
}

// SetCell writes a value at the given data row and column, growing the row
// as needed. Out-of-range rows are ignored.
func (t *Table) SetCell(row, col int, value string) {
	if row < 0 || row >= len(t.Rows) || col < 0 {
		return
	}
	for len(t.Rows[row]) <= col {
		t.Rows[row] = append(t.Rows[row], "")
	}
	t.Rows[row][col] = value
}

// EnsureReceivedColumn makes sure the table has a received-quantity column,
// appending one after the last existing column when none was matched by
// name. It returns the column index.
func (t *Table) EnsureReceivedColumn() int {
	if t.Columns.receivedFound {
		return t.Columns.Received
	}

	t.Headers = append(t.Headers, HeaderReceived)
	idx := len(t.Headers) - 1
	for i := range t.Rows {
		for len(t.Rows[i]) < len(t.Headers) {
			t.Rows[i] = append(t.Rows[i], "")
		}
	}

	t.Columns.Received = idx
	t.Columns.receivedFound = true
	return idx
}

// Save writes the table to a new workbook at path.
func (t *Table) Save(path string) error {
	f, err := t.workbook()
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// Write writes the table as a workbook to w, for downloads.
func (t *Table) Write(w io.Writer) error {
	f, err := t.workbook()
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// workbook builds a fresh single-sheet workbook from the table contents.
func (t *Table) workbook() (*excelize.File, error) {
	f := excelize.NewFile()

	const defaultSheet = "Sheet1"
	if t.name != "" && t.name != defaultSheet {
		if err := f.SetSheetName(defaultSheet, t.name); err != nil {
			return nil, fmt.Errorf("rename sheet: %w", err)
		}
	}

	name := t.name
	if name == "" {
		name = defaultSheet
	}

	if err := f.SetSheetRow(name, "A1", &t.Headers); err != nil {
		return nil, fmt.Errorf("write header row: %w", err)
	}
	for i := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("address row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(name, cell, &t.Rows[i]); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	return f, nil
}
