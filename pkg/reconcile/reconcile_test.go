package reconcile

import (
	"testing"

	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/puts"
	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/sheet"
)

var checklistHeaders = []string{"Ordernr.", "Artikelnummer", "Kleurnummer", "PUT", "Received Quantity"}

// newChecklist builds a table in the standard layout.
func newChecklist(rows [][]string) *sheet.Table {
	return sheet.NewTable(checklistHeaders, rows)
}

func TestReconcileFillsBlankRow(t *testing.T) {
	table := newChecklist([][]string{
		{"450.0", "123", "5", "", ""},
	})
	lines := []puts.Line{
		{PutID: "P1", PoNumber: "450", ItemNumber: "123", ColorNumber: "5", Quantity: 4},
	}

	summary := Reconcile(table, lines)

	if got := table.Cell(0, table.Columns.Put); got != "P1" {
		t.Errorf("put cell = %q, want %q", got, "P1")
	}
	if got := table.Cell(0, table.Columns.Received); got != "4" {
		t.Errorf("received cell = %q, want %q", got, "4")
	}
	if got := table.Cell(0, table.Columns.Item); got != "123" {
		t.Errorf("item cell = %q, want %q", got, "123")
	}

	want := Summary{Rows: 1, Lines: 1, PutFilled: 1, QuantityFilled: 1}
	if summary != want {
		t.Errorf("Summary = %+v, want %+v", summary, want)
	}
}

func TestReconcileFirstLineWinsKeyConflicts(t *testing.T) {
	table := newChecklist([][]string{
		{"450", "123", "5", "", ""},
	})
	lines := []puts.Line{
		{PutID: "P1", PoNumber: "450", ItemNumber: "123", ColorNumber: "5", Quantity: 1},
		{PutID: "P2", PoNumber: "450", ItemNumber: "123", ColorNumber: "5", Quantity: 9},
	}

	Reconcile(table, lines)

	if got := table.Cell(0, table.Columns.Put); got != "P1" {
		t.Errorf("put cell = %q, want first-seen id %q", got, "P1")
	}
}

func TestReconcileAggregatesQuantitiesPerPut(t *testing.T) {
	table := newChecklist([][]string{
		{"450", "123", "5", "", ""},
	})
	lines := []puts.Line{
		{PutID: "P1", PoNumber: "450", ItemNumber: "123", ColorNumber: "5", Quantity: 5},
		{PutID: "P1", PoNumber: "450", ItemNumber: "124", ColorNumber: "5", Quantity: 3},
		{PutID: "P1", PoNumber: "451", ItemNumber: "125", ColorNumber: "7", Quantity: 2},
		{PutID: "P2", PoNumber: "460", ItemNumber: "200", ColorNumber: "1", Quantity: 50},
	}

	Reconcile(table, lines)

	if got := table.Cell(0, table.Columns.Received); got != "10" {
		t.Errorf("received cell = %q, want aggregated %q", got, "10")
	}
}

func TestReconcileKeepsOperatorData(t *testing.T) {
	table := newChecklist([][]string{
		{"450", "123", "5", "MANUAL", "7"},
	})
	lines := []puts.Line{
		{PutID: "P1", PoNumber: "450", ItemNumber: "123", ColorNumber: "5", Quantity: 4},
	}

	summary := Reconcile(table, lines)

	if got := table.Cell(0, table.Columns.Put); got != "MANUAL" {
		t.Errorf("put cell = %q, want untouched %q", got, "MANUAL")
	}
	if got := table.Cell(0, table.Columns.Received); got != "7" {
		t.Errorf("received cell = %q, want untouched %q", got, "7")
	}
	if summary.PutFilled != 0 || summary.QuantityFilled != 0 {
		t.Errorf("Summary = %+v, want no fills", summary)
	}
}

func TestReconcileZeroQuantityIsFillable(t *testing.T) {
	tests := []struct {
		name string
		cell string
		want string
	}{
		{name: "plain zero", cell: "0", want: "4"},
		{name: "decimal zero", cell: "0.0", want: "4"},
		{name: "padded zero", cell: " 0 ", want: "4"},
		{name: "non-zero kept", cell: "2", want: "2"},
		{name: "non-numeric kept", cell: "n/a", want: "n/a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := newChecklist([][]string{
				{"450", "123", "5", "P1", tt.cell},
			})
			lines := []puts.Line{
				{PutID: "P1", PoNumber: "450", ItemNumber: "123", ColorNumber: "5", Quantity: 4},
			}

			Reconcile(table, lines)

			if got := table.Cell(0, table.Columns.Received); got != tt.want {
				t.Errorf("received cell = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReconcileBlanksQuantityWithoutAggregate(t *testing.T) {
	table := newChecklist([][]string{
		// Operator entered a shipment id the collection never saw.
		{"450", "123", "5", "P9", "0"},
		// No match at all.
		{"999", "888", "7", "", "0"},
	})
	lines := []puts.Line{
		{PutID: "P1", PoNumber: "450", ItemNumber: "123", ColorNumber: "5", Quantity: 4},
	}

	summary := Reconcile(table, lines)

	if got := table.Cell(0, table.Columns.Received); got != "" {
		t.Errorf("row 0 received cell = %q, want blanked", got)
	}
	if got := table.Cell(1, table.Columns.Received); got != "" {
		t.Errorf("row 1 received cell = %q, want blanked", got)
	}
	if summary.Unmatched != 1 {
		t.Errorf("Unmatched = %d, want 1", summary.Unmatched)
	}
	if summary.QuantityFilled != 0 {
		t.Errorf("QuantityFilled = %d, want 0", summary.QuantityFilled)
	}
}

func TestReconcileSkipsBlankRows(t *testing.T) {
	table := newChecklist([][]string{
		{"", "", "", "", ""},
		{"450", "123", "5", "", ""},
	})
	lines := []puts.Line{
		{PutID: "P1", PoNumber: "450", ItemNumber: "123", ColorNumber: "5", Quantity: 4},
	}

	summary := Reconcile(table, lines)

	if got := table.Cell(0, table.Columns.Put); got != "" {
		t.Errorf("blank row put cell = %q, want empty", got)
	}
	if summary.Unmatched != 0 {
		t.Errorf("Unmatched = %d, want 0", summary.Unmatched)
	}
	if summary.PutFilled != 1 {
		t.Errorf("PutFilled = %d, want 1", summary.PutFilled)
	}
}

func TestReconcileIgnoresLinesWithoutPutID(t *testing.T) {
	table := newChecklist([][]string{
		{"450", "123", "5", "", ""},
	})
	lines := []puts.Line{
		{PutID: "", PoNumber: "450", ItemNumber: "123", ColorNumber: "5", Quantity: 4},
	}

	summary := Reconcile(table, lines)

	if got := table.Cell(0, table.Columns.Put); got != "" {
		t.Errorf("put cell = %q, want empty", got)
	}
	if summary.Unmatched != 1 {
		t.Errorf("Unmatched = %d, want 1", summary.Unmatched)
	}
}

func TestReconcileCanonicalizesRawInput(t *testing.T) {
	// Cells and line fields in the shapes exports actually produce:
	// floats serialized with a trailing .0, unpadded codes, stray spaces.
	table := newChecklist([][]string{
		{"450.0", " 123 ", "5.0", "", ""},
	})
	lines := []puts.Line{
		{PutID: "P1", PoNumber: "450", ItemNumber: "0000123", ColorNumber: "005", Quantity: 4},
	}

	summary := Reconcile(table, lines)

	if got := table.Cell(0, table.Columns.Put); got != "P1" {
		t.Errorf("put cell = %q, want %q", got, "P1")
	}
	if summary.PutFilled != 1 {
		t.Errorf("PutFilled = %d, want 1", summary.PutFilled)
	}
}

func TestReconcileItemDisplayForm(t *testing.T) {
	tests := []struct {
		name string
		cell string
		want string
	}{
		{name: "padded digits stripped", cell: "0000123", want: "123"},
		{name: "plain digits unchanged", cell: "123", want: "123"},
		{name: "float suffix dropped", cell: "123.0", want: "123"},
		{name: "non-numeric untouched", cell: "AB12", want: "AB12"},
		{name: "all zeroes collapse to zero", cell: "000", want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := newChecklist([][]string{
				{"450", tt.cell, "5", "P1", "1"},
			})

			Reconcile(table, nil)

			if got := table.Cell(0, table.Columns.Item); got != tt.want {
				t.Errorf("item cell = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReconcileAppendsReceivedColumn(t *testing.T) {
	table := sheet.NewTable(
		[]string{"Ordernr.", "Artikelnummer", "Kleurnummer", "PUT"},
		[][]string{{"450", "123", "5", ""}},
	)
	lines := []puts.Line{
		{PutID: "P1", PoNumber: "450", ItemNumber: "123", ColorNumber: "5", Quantity: 4},
	}

	Reconcile(table, lines)

	if got := len(table.Headers); got != 5 {
		t.Fatalf("header width = %d, want 5", got)
	}
	if got := table.Headers[4]; got != sheet.HeaderReceived {
		t.Errorf("Headers[4] = %q, want %q", got, sheet.HeaderReceived)
	}
	if got := table.Cell(0, 4); got != "4" {
		t.Errorf("received cell = %q, want %q", got, "4")
	}
}

func TestReconcileSecondRunChangesNothing(t *testing.T) {
	table := newChecklist([][]string{
		{"450", "123", "5", "", ""},
		{"451", "124", "7", "", ""},
	})
	lines := []puts.Line{
		{PutID: "P1", PoNumber: "450", ItemNumber: "123", ColorNumber: "5", Quantity: 4},
	}

	Reconcile(table, lines)

	var before [][]string
	for row := 0; row < table.RowCount(); row++ {
		var cells []string
		for col := range table.Headers {
			cells = append(cells, table.Cell(row, col))
		}
		before = append(before, cells)
	}

	summary := Reconcile(table, lines)

	for row := 0; row < table.RowCount(); row++ {
		for col := range table.Headers {
			if got := table.Cell(row, col); got != before[row][col] {
				t.Errorf("cell (%d,%d) changed from %q to %q", row, col, before[row][col], got)
			}
		}
	}
	if summary.PutFilled != 0 {
		t.Errorf("second run PutFilled = %d, want 0", summary.PutFilled)
	}
}
