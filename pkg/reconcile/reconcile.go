// Package reconcile matches collected PUT lines against an operator
// checklist and fills in the blanks: shipment ids for rows whose PUT cell
// is empty, and received quantities where the operator has not entered one.
//
// The engine is deterministic and side-effect free apart from mutating the
// table it is given: the same lines and the same table always produce the
// same result.
package reconcile

import (
	"strconv"
	"strings"

	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/canon"
	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/puts"
	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/sheet"
)

// Key identifies a checklist row and a PUT line for matching. All components
// are canonical strings.
type Key struct {
	Order string
	Item  string
	Color string
}

// Summary reports what a reconciliation run did.
type Summary struct {
	Rows           int
	Lines          int
	PutFilled      int
	QuantityFilled int
	Unmatched      int
}

// Reconcile fills the table's PUT and received-quantity cells from the
// given lines. Line fields and row cells are canonicalized as keys are
// built, so raw and pre-canonicalized input behave the same. The lines
// slice is never modified.
func Reconcile(t *sheet.Table, lines []puts.Line) Summary {
	summary := Summary{
		Rows:  t.RowCount(),
		Lines: len(lines),
	}

	// Lines that cannot name a shipment are useless for matching and
	// would pollute the quantity aggregates.
	putByKey := make(map[Key]string)
	qtyByPut := make(map[string]int)
	for _, line := range lines {
		if line.PutID == "" {
			continue
		}
		key := lineKey(line)
		if _, seen := putByKey[key]; !seen {
			putByKey[key] = line.PutID
		}
		qtyByPut[line.PutID] += line.Quantity
	}

	recvCol := t.EnsureReceivedColumn()

	for row := 0; row < t.RowCount(); row++ {
		key := rowKey(t, row)
		if key.blank() {
			continue
		}

		// Blank PUT cells are filled from the shipment key map.
		// Anything the operator wrote stays.
		if strings.TrimSpace(t.Cell(row, t.Columns.Put)) == "" {
			if putID, ok := putByKey[key]; ok {
				t.SetCell(row, t.Columns.Put, putID)
				summary.PutFilled++
			} else {
				summary.Unmatched++
			}
		}

		// Received quantities follow the resolved shipment id. Blank
		// cells and explicit zeroes count as unfilled; any other value
		// is operator data.
		if quantityFillable(t.Cell(row, recvCol)) {
			putID := strings.TrimSpace(t.Cell(row, t.Columns.Put))
			if qty, ok := qtyByPut[putID]; ok {
				t.SetCell(row, recvCol, strconv.Itoa(qty))
				summary.QuantityFilled++
			} else {
				t.SetCell(row, recvCol, "")
			}
		}

		// Display form of the item number. Matching already happened,
		// so stripping the padding here changes nothing downstream.
		if cell := strings.TrimSpace(t.Cell(row, t.Columns.Item)); cell != "" {
			t.SetCell(row, t.Columns.Item, canon.StripLeadingZeros(canon.ItemNumber(cell)))
		}
	}

	return summary
}

func lineKey(l puts.Line) Key {
	return Key{
		Order: canon.OrderNumber(l.PoNumber),
		Item:  canon.ItemNumber(l.ItemNumber),
		Color: canon.ColorNumber(l.ColorNumber),
	}
}

func rowKey(t *sheet.Table, row int) Key {
	return Key{
		Order: canon.OrderNumber(t.Cell(row, t.Columns.Order)),
		Item:  canon.ItemNumber(t.Cell(row, t.Columns.Item)),
		Color: canon.ColorNumber(t.Cell(row, t.Columns.Color)),
	}
}

// blank reports whether every key component is empty, which marks an unused
// spreadsheet row.
func (k Key) blank() bool {
	return k.Order == "" && k.Item == "" && k.Color == ""
}

// quantityFillable reports whether a received-quantity cell may be written.
func quantityFillable(cell string) bool {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return true
	}
	f, err := strconv.ParseFloat(cell, 64)
	return err == nil && f == 0
}
