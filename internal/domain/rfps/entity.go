package rfps

import (
	"encoding/json"
	"time"

	"github.com/bryanwahyu/rfp-manager/internal/domain/vendors"
)

// ID tipe untuk Rfp
type ID string

// ProposalID tipe untuk Proposal
type ProposalID string

// Status enum
type Status string

const (
	StatusPending Status = "Pending"
	StatusOpen    Status = "Open"
	StatusClosed  Status = "Closed"
)

// Valid reports whether s is one of the known RFP statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusOpen, StatusClosed:
		return true
	}
	return false
}

// ProposalStatus enum
type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "Pending"
	ProposalAccepted ProposalStatus = "Accepted"
	ProposalRejected ProposalStatus = "Rejected"
)

// PendingAnalysis is the aiAnalysis placeholder written before rating runs.
const PendingAnalysis = "Pending analysis..."

// Item value object
type Item struct {
	Name  string  `json:"name"`
	Qty   float64 `json:"qty"`
	Specs string  `json:"specs"`
}

// Aggregate Root: Rfp
type Rfp struct {
	ID           ID        `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Items        []Item    `json:"items"`
	Budget       *float64  `json:"budget"`
	DeliveryDays *int      `json:"deliveryDays"`
	PaymentTerms *string   `json:"paymentTerms"`
	Warranty     *string   `json:"warranty"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Summary is an Rfp annotated with how many proposals it has received.
type Summary struct {
	Rfp
	ProposalCount int `json:"proposalCount"`
}

// Proposal is a vendor's reply to an Rfp, extracted from an inbound email.
type Proposal struct {
	ID         ProposalID      `json:"id"`
	RfpID      ID              `json:"rfpId"`
	VendorID   vendors.ID      `json:"vendorId"`
	RawEmail   string          `json:"rawEmail"`
	ParsedData json.RawMessage `json:"parsedData"`
	TotalPrice *float64        `json:"totalPrice"`
	Status     ProposalStatus  `json:"status"`
	Score      float64         `json:"score"`
	AIAnalysis string          `json:"aiAnalysis"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`

	// Vendor is populated by listing queries that join the vendor row.
	Vendor *vendors.Vendor `json:"vendor,omitempty"`
}

// Detail is an Rfp with its proposals and their vendors.
type Detail struct {
	Rfp
	Proposals []*Proposal `json:"proposals"`
}
