package model

import "time"

// PDFDocument is one row of the append-only upload audit trail.  The product
// record holds the canonical pdf pointer used for access control; this table
// only records who uploaded what and when.  OriginalFilename is metadata,
// never the storage key.
type PDFDocument struct {
    ID               uint64    `json:"id"`
    OriginalFilename string    `json:"original_filename"`
    StorageKey       string    `json:"storage_key"`
    URL              string    `json:"url"`
    UploadedBy       *uint64   `json:"uploaded_by"`
    UploadedAt       time.Time `json:"uploaded_at"`
}
