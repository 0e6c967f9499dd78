package rfps

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	errs "github.com/bryanwahyu/rfp-manager/internal/domain"
)

// Number accepts a JSON number, a numeric string ("5,000", "$1200.50") or
// null. Anything else fails decoding with ErrInvalidInput.
type Number struct {
	Value *float64
}

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		n.Value = nil
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrInvalidInput, err)
		}
		v, err := ParseNumber(s)
		if err != nil {
			return err
		}
		n.Value = v
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("%w: %s is not a number", errs.ErrInvalidInput, string(b))
	}
	n.Value = &f
	return nil
}

// ParseNumber converts user text into a number. Blank text is nil.
func ParseNumber(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: %q is not a number", errs.ErrInvalidInput, s)
	}
	return &f, nil
}

// Int returns the value as a non-negative whole number that fits an int32.
func (n Number) Int(field string) (*int, error) {
	if n.Value == nil {
		return nil, nil
	}
	f := *n.Value
	if f < 0 || f != math.Trunc(f) {
		return nil, fmt.Errorf("%w: %s must be a non-negative whole number", errs.ErrInvalidInput, field)
	}
	if f > math.MaxInt32 {
		return nil, fmt.Errorf("%w: %s is too large", errs.ErrInvalidInput, field)
	}
	i := int(f)
	return &i, nil
}
