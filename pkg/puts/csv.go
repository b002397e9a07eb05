package puts

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// csvHeader is the column order of the exchange format shared between the
// fetch and merge phases.
var csvHeader = []string{"put_id", "line_id", "po_number", "item_number", "color_number", "quantity"}

// WriteCSV writes lines in the exchange format, header row first.
func WriteCSV(w io.Writer, lines []Line) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, line := range lines {
		record := []string{
			line.PutID,
			line.LineID,
			line.PoNumber,
			line.ItemNumber,
			line.ColorNumber,
			strconv.Itoa(line.Quantity),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV reads lines from the exchange format. Columns are resolved by
// header name, so column order does not matter, but every column must be
// present. Quantity values tolerate the fractional serializations older
// exports used.
func ReadCSV(r io.Reader) ([]Line, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, name := range csvHeader {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("csv is missing column %q", name)
		}
	}

	field := func(record []string, name string) string {
		i := idx[name]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var lines []Line
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}

		lines = append(lines, Line{
			PutID:       field(record, "put_id"),
			LineID:      field(record, "line_id"),
			PoNumber:    field(record, "po_number"),
			ItemNumber:  field(record, "item_number"),
			ColorNumber: field(record, "color_number"),
			Quantity:    parseQuantity(field(record, "quantity")),
		})
	}
	return lines, nil
}
