package ai

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Kind is the JSON type a field must carry.
type Kind string

const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindInteger Kind = "integer"
	KindBoolean Kind = "boolean"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
)

// Field declares one member of a shape.
type Field struct {
	Name        string
	Kind        Kind
	Required    bool
	Description string
	// Items describes array elements.
	Items *Field
	// Fields describes object members.
	Fields []Field
	Min    *float64
	Max    *float64
}

// Shape is the declared output of one LLM task. The same value renders the
// contract in prompts, becomes the provider response schema and validates
// the parsed completion.
type Shape struct {
	Name        string
	Description string
	Fields      []Field
}

// Validate checks v, the parsed completion, against the shape and returns a
// *ValidationError naming every violated field. Values are never coerced.
func (s Shape) Validate(v any) error {
	var errs []FieldError
	obj, ok := v.(map[string]any)
	if !ok {
		errs = append(errs, FieldError{Field: "$", ExpectedType: string(KindObject), Reason: "got " + jsonType(v)})
	} else {
		checkFields("", s.Fields, obj, &errs)
	}
	if len(errs) > 0 {
		return &ValidationError{Shape: s.Name, Fields: errs}
	}
	return nil
}

// Decode validates v against s and converts it into T.
func Decode[T any](s Shape, v any) (T, error) {
	var out T
	if err := s.Validate(v); err != nil {
		return out, err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return out, nil
}

func checkFields(prefix string, fields []Field, obj map[string]any, errs *[]FieldError) {
	for _, f := range fields {
		path := f.Name
		if prefix != "" {
			path = prefix + "." + f.Name
		}
		val, ok := obj[f.Name]
		if !ok || val == nil {
			if f.Required {
				*errs = append(*errs, FieldError{Field: path, ExpectedType: f.typeName(), Reason: "required"})
			}
			continue
		}
		checkValue(path, f, val, errs)
	}
}

func checkValue(path string, f Field, val any, errs *[]FieldError) {
	mismatch := func() {
		*errs = append(*errs, FieldError{Field: path, ExpectedType: f.typeName(), Reason: "got " + jsonType(val)})
	}
	switch f.Kind {
	case KindString:
		if _, ok := val.(string); !ok {
			mismatch()
		}
	case KindBoolean:
		if _, ok := val.(bool); !ok {
			mismatch()
		}
	case KindNumber, KindInteger:
		n, ok := val.(float64)
		if !ok {
			mismatch()
			return
		}
		if f.Kind == KindInteger && n != math.Trunc(n) {
			*errs = append(*errs, FieldError{Field: path, ExpectedType: f.typeName(), Reason: "must be a whole number"})
			return
		}
		if f.Min != nil && n < *f.Min {
			*errs = append(*errs, FieldError{Field: path, ExpectedType: f.typeName(), Reason: fmt.Sprintf("must be >= %g", *f.Min)})
		}
		if f.Max != nil && n > *f.Max {
			*errs = append(*errs, FieldError{Field: path, ExpectedType: f.typeName(), Reason: fmt.Sprintf("must be <= %g", *f.Max)})
		}
	case KindArray:
		arr, ok := val.([]any)
		if !ok {
			mismatch()
			return
		}
		if f.Items == nil {
			return
		}
		for i, el := range arr {
			elPath := fmt.Sprintf("%s[%d]", path, i)
			if el == nil {
				*errs = append(*errs, FieldError{Field: elPath, ExpectedType: f.Items.typeName(), Reason: "null element"})
				continue
			}
			checkValue(elPath, *f.Items, el, errs)
		}
	case KindObject:
		m, ok := val.(map[string]any)
		if !ok {
			mismatch()
			return
		}
		checkFields(path, f.Fields, m, errs)
	}
}

func (f Field) typeName() string {
	if f.Kind == KindArray && f.Items != nil {
		return "array of " + f.Items.typeName()
	}
	return string(f.Kind)
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64, json.Number:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Describe renders the output contract for a prompt.
func (s Shape) Describe() string {
	var b strings.Builder
	b.WriteString("Respond with a single JSON object (not an array, no markdown, no commentary) with these fields:\n")
	describeFields(&b, s.Fields, 0)
	b.WriteString("Optional fields may be omitted or set to null when the information is not available. ")
	b.WriteString("Numbers must be plain JSON numbers without currency symbols or units.")
	return b.String()
}

func describeFields(b *strings.Builder, fields []Field, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, f := range fields {
		req := "optional"
		if f.Required {
			req = "required"
		}
		fmt.Fprintf(b, "%s- %q (%s, %s)", indent, f.Name, f.typeName(), req)
		if f.Description != "" {
			b.WriteString(": " + f.Description)
		}
		b.WriteString("\n")
		switch {
		case f.Kind == KindObject:
			describeFields(b, f.Fields, depth+1)
		case f.Kind == KindArray && f.Items != nil && f.Items.Kind == KindObject:
			describeFields(b, f.Items.Fields, depth+1)
		}
	}
}
