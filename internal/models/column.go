package models

// Column describes one resolved report column. Key is the canonical
// normalized identifier, OriginalKey the key as stored in submission rows
// (which may differ in case, punctuation, or naming), and Label the
// human-readable header.
type Column struct {
	Key         string `json:"key"`
	OriginalKey string `json:"originalKey"`
	Label       string `json:"label"`
}

// Table is a rendered tabular view of aggregated report rows.
type Table struct {
	Title    string   `json:"title"`
	Columns  []Column `json:"columns"`
	Rows     []Row    `json:"rows"`
	Fallback bool     `json:"fallback"`
	Note     string   `json:"note,omitempty"`
}
