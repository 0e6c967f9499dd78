package prompt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bryanwahyu/rfp-manager/internal/domain/ai"
	"github.com/bryanwahyu/rfp-manager/internal/domain/rfps"
)

// Rating scores an extracted proposal against the RFP it answers.
func Rating(now time.Time, rfp *rfps.Rfp, p ai.ProposalExtraction) string {
	var b strings.Builder
	b.WriteString(header(now, "You are a procurement analyst evaluating vendor proposals."))
	b.WriteString("Score how well the proposal satisfies the RFP. Weigh price against budget, delivery time against the requested deadline, coverage of the requested items, payment terms and warranty.\n")
	b.WriteString(quote("RFP", rfpFacts(rfp)))
	b.WriteString(quote("Proposal", proposalFacts(p)))
	b.WriteString(contract(ai.RatingShape))
	return b.String()
}

func rfpFacts(r *rfps.Rfp) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\nDescription: %s\nItems:\n", r.Title, r.Description)
	if len(r.Items) == 0 {
		b.WriteString("- (none listed)\n")
	}
	for _, it := range r.Items {
		fmt.Fprintf(&b, "- %s x%g: %s\n", it.Name, it.Qty, it.Specs)
	}
	if r.Budget != nil {
		fmt.Fprintf(&b, "Budget: %.2f\n", *r.Budget)
	}
	if r.DeliveryDays != nil {
		fmt.Fprintf(&b, "Delivery within: %d days\n", *r.DeliveryDays)
	}
	if r.PaymentTerms != nil {
		fmt.Fprintf(&b, "Payment terms: %s\n", *r.PaymentTerms)
	}
	if r.Warranty != nil {
		fmt.Fprintf(&b, "Warranty: %s\n", *r.Warranty)
	}
	return strings.TrimRight(b.String(), "\n")
}

func proposalFacts(p ai.ProposalExtraction) string {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", p)
	}
	return string(b)
}
