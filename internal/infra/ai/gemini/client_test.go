package gemini_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/bryanwahyu/rfp-manager/internal/domain/ai"
	"github.com/bryanwahyu/rfp-manager/internal/infra/ai/gemini"
)

func TestSchemaFromRfpShape(t *testing.T) {
	s := gemini.Schema(ai.RfpShape)

	require.Equal(t, genai.TypeObject, s.Type)
	require.ElementsMatch(t, []string{"title", "description", "items"}, s.Required)
	require.Equal(t, []string{"title", "description", "items", "budget", "deliveryDays", "paymentTerms", "warranty"}, s.PropertyOrdering)

	items := s.Properties["items"]
	require.Equal(t, genai.TypeArray, items.Type)
	require.Equal(t, genai.TypeObject, items.Items.Type)
	require.Equal(t, genai.TypeNumber, items.Items.Properties["qty"].Type)

	budget := s.Properties["budget"]
	require.NotNil(t, budget.Nullable)
	require.True(t, *budget.Nullable)
	require.Equal(t, genai.TypeInteger, s.Properties["deliveryDays"].Type)
}

func TestSchemaCarriesScoreBounds(t *testing.T) {
	s := gemini.Schema(ai.RatingShape)
	score := s.Properties["score"]
	require.Equal(t, 0.0, *score.Minimum)
	require.Equal(t, 100.0, *score.Maximum)
}

func TestContentsKeepsRolesAndOrder(t *testing.T) {
	got := gemini.Contents(ai.Request{
		History: []ai.Turn{
			{Role: ai.RoleUser, Content: "I need laptops"},
			{Role: ai.RoleModel, Content: "How many?"},
		},
		Prompt: "20",
	})

	require.Len(t, got, 3)
	roles := make([]string, 0, len(got))
	texts := make([]string, 0, len(got))
	for _, c := range got {
		roles = append(roles, c.Role)
		require.Len(t, c.Parts, 1)
		texts = append(texts, c.Parts[0].Text)
	}
	require.Equal(t, []string{genai.RoleUser, genai.RoleModel, genai.RoleUser}, roles)
	require.Equal(t, []string{"I need laptops", "How many?", "20"}, texts)
}

func TestContentsWithoutHistory(t *testing.T) {
	got := gemini.Contents(ai.Request{Prompt: "Draft an RFP"})
	require.Len(t, got, 1)
	require.Equal(t, genai.RoleUser, got[0].Role)
}
