package sqlstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	errs "github.com/bryanwahyu/rfp-manager/internal/domain"
)

// storeErr classifies a database error: no rows becomes ErrNotFound,
// anything else ErrPersistence.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", errs.ErrNotFound, op)
	}
	return fmt.Errorf("%w: %s: %w", errs.ErrPersistence, op, err)
}

// dashIfEmpty returns "-" when the input is empty/whitespace
func dashIfEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// jsonText makes sure a JSON column receives valid JSON. Invalid input is
// kept as {"raw": "..."}.
func jsonText(raw []byte, empty string) string {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return empty
	}
	if !json.Valid(raw) {
		b, _ := json.Marshal(map[string]string{"raw": string(raw)})
		return string(b)
	}
	return string(raw)
}
