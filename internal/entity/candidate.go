package entity

import (
	"time"
)

// DuplicateCandidate is a catalog-resident document visible to the requesting user.
// It is read-only input to the duplicate detector.
type DuplicateCandidate struct {
	ID               string              `json:"id"`
	Filename         string              `json:"filename"`
	OriginalFilename string              `json:"original_filename"`
	UploadedBy       string              `json:"uploaded_by"`
	CompanyID        string              `json:"company_id"`
	CreatedAt        time.Time           `json:"created_at"`
	Category         string              `json:"category,omitempty"`
	Fingerprint      DocumentFingerprint `json:"fingerprint"`
	Entities         BusinessEntities    `json:"entities"`
	FileSize         int64               `json:"file_size"`
}

// Document is the persisted catalog row for an accepted upload.
type Document struct {
	ID               string              `json:"id"`
	CompanyID        string              `json:"company_id"`
	UploadedBy       string              `json:"uploaded_by"`
	Filename         string              `json:"filename"`
	OriginalFilename string              `json:"original_filename"`
	Category         string              `json:"category,omitempty"`
	Fingerprint      DocumentFingerprint `json:"fingerprint"`
	Entities         BusinessEntities    `json:"entities"`
	TextLength       int                 `json:"text_length"`
	FileSize         int64               `json:"file_size"`
	CreatedAt        time.Time           `json:"created_at"`
}

// ToCandidate projects a catalog row into detector input.
func (d *Document) ToCandidate() DuplicateCandidate {
	return DuplicateCandidate{
		ID:               d.ID,
		Filename:         d.Filename,
		OriginalFilename: d.OriginalFilename,
		UploadedBy:       d.UploadedBy,
		CompanyID:        d.CompanyID,
		CreatedAt:        d.CreatedAt,
		Category:         d.Category,
		Fingerprint:      d.Fingerprint,
		Entities:         d.Entities,
		FileSize:         d.FileSize,
	}
}
