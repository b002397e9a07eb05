// Package puts collects inbound shipment ("PUT") lines from the Itsperfect
// API and carries them between the fetch and merge phases. A PUT groups the
// lines of one inbound delivery; each line names an item, a color and a
// quantity. The collector walks the paginated open-PUT listing, pulls every
// PUT's lines in discovered order and flattens them into Line records ready
// for reconciliation.
package puts

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/canon"
)

// Line is one item/color/quantity entry of a PUT, with identifiers already
// canonicalized for joining.
type Line struct {
	PutID       string `json:"put_id"`
	LineID      string `json:"line_id"`
	PoNumber    string `json:"po_number"`
	ItemNumber  string `json:"item_number"`
	ColorNumber string `json:"color_number"`
	Quantity    int    `json:"quantity"`
}

// scalar tolerates the API's mixed string/number serialization of ids and
// codes, decoding both to a string. null decodes to the empty string.
type scalar string

// UnmarshalJSON implements tolerant decoding.
func (s *scalar) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = ""
		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = scalar(str)
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return err
	}
	*s = scalar(num.String())
	return nil
}

// putRecord is one entry of the paginated PUT listing.
type putRecord struct {
	ID scalar `json:"id"`
}

// lineRecord is one entry of a PUT's line listing.
type lineRecord struct {
	ID       scalar `json:"id"`
	OrderID  scalar `json:"order_id"`
	Quantity scalar `json:"quantity"`
	Item     *struct {
		ItemNumber scalar `json:"item_number"`
	} `json:"item"`
	Color *struct {
		ColorNumber scalar `json:"color_number"`
	} `json:"color"`
}

// toLine maps a wire record onto a Line for the given PUT. Missing nested
// objects degrade to empty strings; identifiers come out canonicalized.
func (r *lineRecord) toLine(putID string) Line {
	line := Line{
		PutID:    putID,
		LineID:   string(r.ID),
		PoNumber: canon.OrderNumber(string(r.OrderID)),
		Quantity: parseQuantity(string(r.Quantity)),
	}
	if r.Item != nil {
		line.ItemNumber = canon.ItemNumber(string(r.Item.ItemNumber))
	}
	if r.Color != nil {
		line.ColorNumber = canon.ColorNumber(string(r.Color.ColorNumber))
	}
	return line
}

// parseQuantity truncates any fractional suffix ("12.0" and "12.7" both
// become 12) and parses the rest as an integer. Unparsable quantities
// degrade to zero rather than failing the run.
func parseQuantity(s string) int {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return 0
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
