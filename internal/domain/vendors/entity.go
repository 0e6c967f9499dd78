package vendors

import "time"

// ID tipe untuk Vendor
type ID string

// Vendor is a counterparty that receives RFPs and replies with proposals.
type Vendor struct {
	ID        ID        `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"createdAt"`
}
