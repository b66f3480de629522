package domain

import "context"

// Document is a provider-neutral view of a recognised document.
type Document struct {
	Text     string   `json:"text,omitempty"`
	Entities []Entity `json:"entities,omitempty"`
	Pages    []Page   `json:"pages,omitempty"`
}

// Entity is a recognised field such as an invoice number or a total.
type Entity struct {
	Type        string  `json:"type"`
	MentionText string  `json:"mentionText"`
	Confidence  float64 `json:"confidence"`
	PageRefs    []int   `json:"pageRefs,omitempty"`
}

type Page struct {
	PageNumber int     `json:"pageNumber"`
	Tables     []Table `json:"tables,omitempty"`
}

type Table struct {
	HeaderRows []TableRow `json:"headerRows,omitempty"`
	BodyRows   []TableRow `json:"bodyRows,omitempty"`
}

type TableRow struct {
	Cells []TableCell `json:"cells"`
}

type TableCell struct {
	Text string `json:"text"`
}

// RecordType labels an extracted record.
type RecordType = string

const (
	RecordEntity      RecordType = "entity"
	RecordTableHeader RecordType = "table_header"
	RecordTableBody   RecordType = "table_body"
)

// ExtractedRecord is one row of the flat export derived from a Document.
type ExtractedRecord struct {
	Type       RecordType `json:"type"`
	Value      string     `json:"value"`
	Confidence float64    `json:"confidence"`
	Page       *int       `json:"page"`
}

// StorageEvent is the object-storage notification that starts extraction.
type StorageEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// Recognition is the outcome of a document extraction call: the parsed
// document plus the provider's raw serialized result.
type Recognition struct {
	Document Document
	Raw      []byte
}

// DocumentExtractor runs remote recognition on a stored document.
type DocumentExtractor interface {
	Process(ctx context.Context, location, mimeType string) (*Recognition, error)
}

// BlobStore persists named objects.
type BlobStore interface {
	Put(ctx context.Context, name string, data []byte, contentType string) error
}
