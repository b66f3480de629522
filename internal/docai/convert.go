package docai

import (
	"strings"

	"cloud.google.com/go/documentai/apiv1/documentaipb"

	"linedoc/internal/domain"
)

// FromProto converts a Document AI document into the domain view.
func FromProto(doc *documentaipb.Document) domain.Document {
	out := domain.Document{Text: doc.GetText()}

	for _, e := range doc.GetEntities() {
		ent := domain.Entity{
			Type:        e.GetType(),
			MentionText: e.GetMentionText(),
			Confidence:  float64(e.GetConfidence()),
		}
		for _, ref := range e.GetPageAnchor().GetPageRefs() {
			ent.PageRefs = append(ent.PageRefs, int(ref.GetPage()))
		}
		out.Entities = append(out.Entities, ent)
	}

	for _, p := range doc.GetPages() {
		page := domain.Page{PageNumber: int(p.GetPageNumber())}
		for _, t := range p.GetTables() {
			page.Tables = append(page.Tables, domain.Table{
				HeaderRows: convertRows(doc.GetText(), t.GetHeaderRows()),
				BodyRows:   convertRows(doc.GetText(), t.GetBodyRows()),
			})
		}
		out.Pages = append(out.Pages, page)
	}
	return out
}

func convertRows(text string, rows []*documentaipb.Document_Page_Table_TableRow) []domain.TableRow {
	var out []domain.TableRow
	for _, r := range rows {
		row := domain.TableRow{}
		for _, c := range r.GetCells() {
			row.Cells = append(row.Cells, domain.TableCell{Text: anchorText(text, c.GetLayout().GetTextAnchor())})
		}
		out = append(out, row)
	}
	return out
}

// anchorText resolves a text anchor against the document text. Segment
// indexes are byte offsets; out-of-range segments are clipped.
func anchorText(text string, anchor *documentaipb.Document_TextAnchor) string {
	if anchor == nil {
		return ""
	}
	if anchor.GetContent() != "" {
		return strings.TrimSpace(anchor.GetContent())
	}
	var sb strings.Builder
	for _, seg := range anchor.GetTextSegments() {
		start, end := int(seg.GetStartIndex()), int(seg.GetEndIndex())
		if start < 0 {
			start = 0
		}
		if end > len(text) {
			end = len(text)
		}
		if start >= end {
			continue
		}
		sb.WriteString(text[start:end])
	}
	return strings.TrimSpace(sb.String())
}
