package bridge

import (
	"fmt"
	"strings"
)

const tableRule = "+-----+-----+-----+-----+\n"

// TableRows lays the calls out in N/E/S/W columns. Empty cells pad the
// first row up to the dealer and the last row out to four columns; an
// empty auction still yields one row.
func TableRows(seq BidSequence, dealer Seat) [][4]string {
	cells := make([]string, 0, int(dealer)+seq.Len()+4)
	for i := 0; i < int(dealer); i++ {
		cells = append(cells, "")
	}
	for _, b := range seq.bids {
		cells = append(cells, b.String())
	}
	for len(cells)%4 != 0 || len(cells) == 0 {
		cells = append(cells, "")
	}

	rows := make([][4]string, 0, len(cells)/4)
	for i := 0; i < len(cells); i += 4 {
		rows = append(rows, [4]string{cells[i], cells[i+1], cells[i+2], cells[i+3]})
	}
	return rows
}

// FormatTable renders the auction as a fixed-width text grid:
//
//	+-----+-----+-----+-----+
//	|  N  |  E  |  S  |  W  |
//	+-----+-----+-----+-----+
//	| 1NT | Pass|     |     |
//	+-----+-----+-----+-----+
func FormatTable(seq BidSequence, dealer Seat) string {
	var b strings.Builder
	b.WriteString(tableRule)
	b.WriteString("|  N  |  E  |  S  |  W  |\n")
	b.WriteString(tableRule)
	for _, row := range TableRows(seq, dealer) {
		fmt.Fprintf(&b, "| %-4s| %-4s| %-4s| %-4s|\n", row[0], row[1], row[2], row[3])
		b.WriteString(tableRule)
	}
	return b.String()
}
