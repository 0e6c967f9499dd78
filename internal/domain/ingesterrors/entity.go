package ingesterrors

import "time"

// Phase names where an inbound email can fail after it has been matched.
const (
	PhaseExtract      = "extract"
	PhaseRating       = "rating"
	PhaseConfirmation = "confirmation"
	PhaseArchive      = "archive"
	PhasePersist      = "persist"
)

// IngestError represents a persisted inbound processing failure
type IngestError struct {
	ID          string    `json:"id"`
	Phase       string    `json:"phase"`
	VendorEmail string    `json:"vendorEmail,omitempty"`
	RfpID       string    `json:"rfpId,omitempty"`
	Subject     string    `json:"subject,omitempty"`
	Message     string    `json:"message"`
	DetailsJSON string    `json:"detailsJson,omitempty"` // raw JSON string
	CreatedAt   time.Time `json:"createdAt"`
}
