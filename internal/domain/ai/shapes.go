package ai

import "github.com/bryanwahyu/rfp-manager/internal/domain/rfps"

func bound(v float64) *float64 { return &v }

// RfpShape is the structured RFP drafted from a description or a chat.
var RfpShape = Shape{
	Name:        "rfp",
	Description: "A structured request for proposal",
	Fields: []Field{
		{Name: "title", Kind: KindString, Required: true, Description: "Short descriptive title for the RFP"},
		{Name: "description", Kind: KindString, Required: true, Description: "Refined professional description of the request"},
		{Name: "items", Kind: KindArray, Required: true, Description: "Items to procure, empty when none are named", Items: &Field{
			Kind: KindObject,
			Fields: []Field{
				{Name: "name", Kind: KindString, Required: true, Description: "Name of the item"},
				{Name: "qty", Kind: KindNumber, Required: true, Description: "Quantity requested"},
				{Name: "specs", Kind: KindString, Required: true, Description: "Technical specifications"},
			},
		}},
		{Name: "budget", Kind: KindNumber, Description: "Total budget, only if mentioned"},
		{Name: "deliveryDays", Kind: KindInteger, Description: "Delivery deadline in days from today, only if mentioned"},
		{Name: "paymentTerms", Kind: KindString, Description: "Payment terms, only if mentioned"},
		{Name: "warranty", Kind: KindString, Description: "Warranty requirements, only if mentioned"},
	},
}

// RfpDraft is an RFP produced by the model, not yet persisted.
type RfpDraft struct {
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	Items        []rfps.Item `json:"items"`
	Budget       *float64    `json:"budget"`
	DeliveryDays *int        `json:"deliveryDays"`
	PaymentTerms *string     `json:"paymentTerms"`
	Warranty     *string     `json:"warranty"`
}

// ProposalShape is what gets extracted from a vendor reply.
var ProposalShape = Shape{
	Name:        "proposal",
	Description: "Commercial terms offered in a vendor proposal email",
	Fields: []Field{
		{Name: "totalPrice", Kind: KindNumber, Description: "Total price offered"},
		{Name: "deliveryDays", Kind: KindInteger, Description: "Delivery time in days"},
		{Name: "paymentTerms", Kind: KindString, Description: "Payment terms offered"},
		{Name: "warranty", Kind: KindString, Description: "Warranty offered"},
		{Name: "priceBreakdown", Kind: KindArray, Description: "Per item pricing", Items: &Field{
			Kind: KindObject,
			Fields: []Field{
				{Name: "item", Kind: KindString, Description: "Item name"},
				{Name: "unit", Kind: KindNumber, Description: "Unit price"},
				{Name: "qty", Kind: KindNumber, Description: "Quantity"},
			},
		}},
	},
}

// PriceLine is one row of a proposal's price breakdown.
type PriceLine struct {
	Item *string  `json:"item,omitempty"`
	Unit *float64 `json:"unit,omitempty"`
	Qty  *float64 `json:"qty,omitempty"`
}

// ProposalExtraction is the validated proposal record.
type ProposalExtraction struct {
	TotalPrice     *float64    `json:"totalPrice"`
	DeliveryDays   *int        `json:"deliveryDays"`
	PaymentTerms   *string     `json:"paymentTerms"`
	Warranty       *string     `json:"warranty"`
	PriceBreakdown []PriceLine `json:"priceBreakdown,omitempty"`
}

// RatingShape scores a proposal against its RFP.
var RatingShape = Shape{
	Name:        "rating",
	Description: "Fit of a proposal against its RFP",
	Fields: []Field{
		{Name: "score", Kind: KindNumber, Required: true, Min: bound(0), Max: bound(100), Description: "Overall fit from 0 (unusable) to 100 (perfect)"},
		{Name: "reason", Kind: KindString, Required: true, Description: "Short rationale covering price, delivery, terms and warranty"},
	},
}

// Rating is the validated rating record.
type Rating struct {
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// ChatShape is one assistant turn of the RFP drafting chat.
var ChatShape = Shape{
	Name:        "chat",
	Description: "Next assistant message of a procurement intake conversation",
	Fields: []Field{
		{Name: "reply", Kind: KindString, Required: true, Description: "Assistant message shown to the user"},
		{Name: "suggestions", Kind: KindArray, Required: true, Description: "Two to four short answers the user can click", Items: &Field{Kind: KindString}},
		{Name: "readyToGenerate", Kind: KindBoolean, Required: true, Description: "True once items, quantities and key terms are known"},
	},
}

// ChatReply is the validated chat turn.
type ChatReply struct {
	Reply           string   `json:"reply"`
	Suggestions     []string `json:"suggestions"`
	ReadyToGenerate bool     `json:"readyToGenerate"`
}
