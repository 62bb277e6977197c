package models

import "time"

// DigestFormat enumerates supported digest export formats.
type DigestFormat string

const (
	DigestFormatCSV DigestFormat = "csv"
	DigestFormatPDF DigestFormat = "pdf"
)

// CreateDigestRequest asks for a message digest export.
type CreateDigestRequest struct {
	Format string `json:"format" validate:"required,oneof=csv pdf"`
	From   string `json:"from" validate:"required,datetime=2006-01-02"`
	To     string `json:"to" validate:"required,datetime=2006-01-02"`
}

// Digest describes a rendered export and its signed download link.
type Digest struct {
	ID        string       `json:"id"`
	FamilyID  string       `json:"family_id"`
	Format    DigestFormat `json:"format"`
	Filename  string       `json:"filename"`
	URL       string       `json:"url"`
	ExpiresAt time.Time    `json:"expires_at"`
	CreatedAt time.Time    `json:"created_at"`
}
