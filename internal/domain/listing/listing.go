// Package listing describes normalized vehicle listings read from the vector index.
package listing

// Document is a normalized listing chunk. Identity is SourceURL.
type Document struct {
	Brand          string
	Model          string
	Year           *int64
	Mileage        *int64
	Price          *int64
	Currency       string
	Fuel           string
	Color          string
	Region         string
	Condition      string
	PaintCondition string
	SourceName     string
	SourceURL      string
	RawText        string
	Embedding      []float32 // never exposed to clients
}

// Candidate is a document returned by vector retrieval, before scoring.
type Candidate struct {
	Document   Document
	Similarity float64 // 0..1, higher is closer
}
