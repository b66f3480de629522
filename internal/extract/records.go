// Package extract flattens recognised documents into records and writes
// them as CSV or XLSX.
package extract

import "linedoc/internal/domain"

const defaultEntityType = "entity"

// Records flattens doc into export rows: entities in document order, then
// table cells page by page, header rows before body rows. Table cells carry
// confidence 1.0 since the recogniser does not score them.
func Records(doc domain.Document) []domain.ExtractedRecord {
	var out []domain.ExtractedRecord

	for _, e := range doc.Entities {
		typ := e.Type
		if typ == "" {
			typ = defaultEntityType
		}
		var page *int
		if len(e.PageRefs) > 0 {
			p := e.PageRefs[0]
			page = &p
		}
		out = append(out, domain.ExtractedRecord{
			Type:       typ,
			Value:      e.MentionText,
			Confidence: e.Confidence,
			Page:       page,
		})
	}

	for _, pg := range doc.Pages {
		for _, table := range pg.Tables {
			out = appendCells(out, table.HeaderRows, domain.RecordTableHeader, pg.PageNumber)
			out = appendCells(out, table.BodyRows, domain.RecordTableBody, pg.PageNumber)
		}
	}
	return out
}

func appendCells(out []domain.ExtractedRecord, rows []domain.TableRow, typ domain.RecordType, pageNumber int) []domain.ExtractedRecord {
	for _, row := range rows {
		for _, cell := range row.Cells {
			p := pageNumber
			out = append(out, domain.ExtractedRecord{
				Type:       typ,
				Value:      cell.Text,
				Confidence: 1.0,
				Page:       &p,
			})
		}
	}
	return out
}
