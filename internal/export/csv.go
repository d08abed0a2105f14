// Package export renders the transaction log as CSV.
//
// The format is deliberately unquoted: commas inside text fields are
// replaced with spaces instead of being escaped, so every row has exactly
// seven fields. encoding/csv would quote instead and change the format.
package export

import (
	"fmt"
	"io"
	"strings"

	"soldi/internal/core"
)

const header = "id,date,type,category,description,mood,amount"

// WriteCSV writes one row per transaction in
// id,date,type,category,description,mood,amount order. The amount is the
// raw unsigned stored value; the income/expense sign never appears here.
func WriteCSV(w io.Writer, txs []core.Transaction) error {
	if _, err := fmt.Fprintln(w, header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, tx := range txs {
		row := strings.Join([]string{
			sanitize(tx.ID),
			tx.Date.String(),
			string(tx.Type),
			sanitize(tx.Category),
			sanitize(tx.Description),
			sanitize(tx.Mood),
			tx.Amount.String(),
		}, ",")
		if _, err := fmt.Fprintln(w, row); err != nil {
			return fmt.Errorf("write csv row %s: %w", tx.ID, err)
		}
	}
	return nil
}

// CSV renders the transactions to a string.
func CSV(txs []core.Transaction) string {
	var b strings.Builder
	// strings.Builder never fails to write.
	_ = WriteCSV(&b, txs)
	return b.String()
}

// sanitize keeps the field from breaking the row: commas become spaces and
// newlines collapse. Applied to every text field, including category and
// mood, not just description.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, ",", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
