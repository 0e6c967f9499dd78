// Package prompt renders the instructions sent to the model. Builders are pure:
// the caller supplies the current time so relative dates ("within a month")
// can be resolved against the moment the prompt is built.
package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/bryanwahyu/rfp-manager/internal/domain/ai"
)

const dateLayout = "Monday, 02 January 2006 15:04 MST"

func header(now time.Time, role string) string {
	return fmt.Sprintf("%s\nCurrent date and time: %s. Convert relative dates (for example \"within 1 month\") into a number of days counted from now.\n",
		role, now.Format(dateLayout))
}

func contract(s ai.Shape) string {
	return "\nOutput contract:\n" + s.Describe() + "\n"
}

func quote(label, text string) string {
	return fmt.Sprintf("\n%s:\n\"\"\"\n%s\n\"\"\"\n", label, text)
}

// RfpFromDescription drafts an RFP from a free-text purchase request.
func RfpFromDescription(now time.Time, description string) string {
	var b strings.Builder
	b.WriteString(header(now, "You are an expert procurement assistant."))
	b.WriteString("Convert the natural language procurement request below into a structured RFP (Request for Proposal).\n")
	b.WriteString(quote("Request", description))
	b.WriteString(contract(ai.RfpShape))
	b.WriteString("Only include budget, deliveryDays, paymentTerms and warranty when the request mentions them.\n")
	return b.String()
}

// RfpFromChat drafts an RFP from a full intake conversation.
func RfpFromChat(now time.Time, history []ai.Turn) string {
	var b strings.Builder
	b.WriteString(header(now, "You are an expert procurement assistant."))
	b.WriteString("The conversation below collected a purchase request from a buyer. Turn everything the buyer asked for into a structured RFP (Request for Proposal). Later messages override earlier ones.\n")
	b.WriteString(quote("Conversation", Transcript(history)))
	b.WriteString(contract(ai.RfpShape))
	return b.String()
}

// Transcript renders turns as "role: content" lines.
func Transcript(history []ai.Turn) string {
	lines := make([]string, 0, len(history))
	for _, t := range history {
		role := "Buyer"
		if t.Role == ai.RoleModel {
			role = "Assistant"
		}
		lines = append(lines, role+": "+t.Content)
	}
	return strings.Join(lines, "\n")
}

// ProposalExtraction pulls commercial terms out of a vendor email.
func ProposalExtraction(now time.Time, emailText string) string {
	var b strings.Builder
	b.WriteString(header(now, "You extract structured data from vendor proposal emails."))
	b.WriteString("Read the vendor email below, including any attachment text, and extract the commercial terms it offers.\n")
	b.WriteString(quote("Email content", emailText))
	b.WriteString(contract(ai.ProposalShape))
	b.WriteString("All fields are optional. Never invent values that the email does not state.\n")
	return b.String()
}

// ChatSystem is the system instruction for the intake chat.
func ChatSystem(now time.Time) string {
	var b strings.Builder
	b.WriteString(header(now, "You are a friendly procurement assistant helping a buyer prepare a Request for Proposal."))
	b.WriteString("Ask one focused question at a time about what is missing: items, quantities, specifications, budget, delivery deadline, payment terms and warranty. ")
	b.WriteString("Keep replies under 80 words. Offer short suggested answers the buyer can click. ")
	b.WriteString("Set readyToGenerate to true once items with quantities are known and the buyer has had a chance to give terms.\n")
	b.WriteString(contract(ai.ChatShape))
	return b.String()
}
