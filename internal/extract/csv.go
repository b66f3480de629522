package extract

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"linedoc/internal/domain"
)

// Header is the column order shared by the CSV and XLSX exports.
var Header = []string{"type", "value", "confidence", "page"}

// row renders a record as export cells. A missing page is an empty cell.
func row(r domain.ExtractedRecord) []string {
	page := ""
	if r.Page != nil {
		page = strconv.Itoa(*r.Page)
	}
	return []string{r.Type, r.Value, formatConfidence(r.Confidence), page}
}

// formatConfidence writes the shortest exact decimal with at least one
// fractional digit, so table cells read 1.0 rather than 1.
func formatConfidence(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// WriteCSV writes records with a header row as UTF-8 CSV.
func WriteCSV(w io.Writer, records []domain.ExtractedRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(row(r)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// CSV returns the CSV export as bytes.
func CSV(records []domain.ExtractedRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
