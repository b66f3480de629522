package extract

import (
	"bytes"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"linedoc/internal/domain"
)

const (
	xlsxSheet = "Records"
	// XLSXContentType is the MIME type of the workbook export.
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// WriteXLSX writes records to a single-sheet workbook. Confidence and page
// are stored as numbers so the sheet can be sorted and filtered.
func WriteXLSX(w io.Writer, records []domain.ExtractedRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range records {
		cells := []any{r.Type, r.Value, r.Confidence, nil}
		if r.Page != nil {
			cells[3] = *r.Page
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &cells); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(xlsxSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// XLSX returns the workbook export as bytes.
func XLSX(records []domain.ExtractedRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
