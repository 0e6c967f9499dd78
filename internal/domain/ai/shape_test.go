package ai_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/rfp-manager/internal/domain/ai"
)

func parse(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestProposalShapeRejectsStringTotalPrice(t *testing.T) {
	err := ai.ProposalShape.Validate(parse(t, `{"totalPrice":"5000","deliveryDays":10}`))

	var verr *ai.ValidationError
	require.True(t, errors.As(err, &verr))
	require.True(t, verr.Has("totalPrice"))
	require.Len(t, verr.Fields, 1)
	require.Equal(t, "number", verr.Fields[0].ExpectedType)
}

func TestValidateReportsEveryField(t *testing.T) {
	err := ai.RfpShape.Validate(parse(t, `{"title":1,"items":[{"name":"Laptop","qty":"ten","specs":"16GB"},null],"budget":"lots"}`))

	var verr *ai.ValidationError
	require.True(t, errors.As(err, &verr))
	require.True(t, verr.Has("title"))
	require.True(t, verr.Has("description"))
	require.True(t, verr.Has("items[0].qty"))
	require.True(t, verr.Has("items[1]"))
	require.True(t, verr.Has("budget"))
	require.Len(t, verr.Fields, 5)
}

func TestValidateAcceptsNullOptionals(t *testing.T) {
	v := parse(t, `{"totalPrice":null,"deliveryDays":14,"warranty":null,"priceBreakdown":[{"item":"Chair","unit":120.5}]}`)

	p, err := ai.Decode[ai.ProposalExtraction](ai.ProposalShape, v)
	require.NoError(t, err)
	require.Nil(t, p.TotalPrice)
	require.Equal(t, 14, *p.DeliveryDays)
	require.Len(t, p.PriceBreakdown, 1)
	require.Equal(t, 120.5, *p.PriceBreakdown[0].Unit)
	require.Nil(t, p.PriceBreakdown[0].Qty)
}

func TestValidateRejectsNonObject(t *testing.T) {
	err := ai.RatingShape.Validate(parse(t, `"great"`))

	var verr *ai.ValidationError
	require.True(t, errors.As(err, &verr))
	require.True(t, verr.Has("$"))
}

func TestRatingShapeBounds(t *testing.T) {
	_, err := ai.Decode[ai.Rating](ai.RatingShape, parse(t, `{"score":140,"reason":"too good"}`))
	var verr *ai.ValidationError
	require.True(t, errors.As(err, &verr))
	require.True(t, verr.Has("score"))

	r, err := ai.Decode[ai.Rating](ai.RatingShape, parse(t, `{"score":82,"reason":"cheapest, slower delivery"}`))
	require.NoError(t, err)
	require.Equal(t, 82.0, r.Score)
}

func TestIntegerKindRejectsFractions(t *testing.T) {
	err := ai.ProposalShape.Validate(parse(t, `{"deliveryDays":7.5}`))
	var verr *ai.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, "must be a whole number", verr.Fields[0].Reason)
}

func TestDescribeListsNestedFields(t *testing.T) {
	d := ai.RfpShape.Describe()
	require.Contains(t, d, `"title" (string, required)`)
	require.Contains(t, d, `"items" (array of object, required)`)
	require.Contains(t, d, `  - "qty" (number, required)`)
	require.Contains(t, d, `"warranty" (string, optional)`)
}
