package sheet

import "strings"

// Recognized header names. Matching is case-insensitive and ignores
// surrounding whitespace, since the checklists are edited by hand.
const (
	HeaderOrder    = "Ordernr."
	HeaderItem     = "Artikelnummer"
	HeaderColor    = "Kleurnummer"
	HeaderPut      = "PUT"
	HeaderReceived = "Received Quantity"

	// headerReceivedAlt is the plural form some older checklists carry.
	headerReceivedAlt = "Received Quantities"
)

// Fallback column positions for checklists whose headers were renamed.
// Unrecognized layouts degrade to these instead of failing the run.
const (
	fallbackOrder    = 0
	fallbackItem     = 1
	fallbackColor    = 2
	fallbackPut      = 3
	fallbackReceived = 4
)

// Columns holds the resolved index of each key column.
type Columns struct {
	Order    int
	Item     int
	Color    int
	Put      int
	Received int

	// receivedFound records whether the received column was matched by
	// name. EnsureReceivedColumn appends a fresh column when it was not.
	receivedFound bool
}

// ResolveColumns locates the key columns in a header row. Each column that
// cannot be matched by name falls back to its fixed default position.
func ResolveColumns(headers []string) Columns {
	cols := Columns{
		Order:    fallbackOrder,
		Item:     fallbackItem,
		Color:    fallbackColor,
		Put:      fallbackPut,
		Received: fallbackReceived,
	}

	for i, raw := range headers {
		name := strings.TrimSpace(raw)
		switch {
		case strings.EqualFold(name, HeaderOrder):
			cols.Order = i
		case strings.EqualFold(name, HeaderItem):
			cols.Item = i
		case strings.EqualFold(name, HeaderColor):
			cols.Color = i
		case strings.EqualFold(name, HeaderPut):
			cols.Put = i
		case strings.EqualFold(name, HeaderReceived), strings.EqualFold(name, headerReceivedAlt):
			cols.Received = i
			cols.receivedFound = true
		}
	}
	return cols
}
