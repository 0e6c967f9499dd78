package sqlstore

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	domain "github.com/bryanwahyu/rfp-manager/internal/domain/ingesterrors"
)

type IngestErrorRepository struct {
	db *sqlx.DB
}

func NewIngestErrorRepository(db *sqlx.DB) *IngestErrorRepository {
	return &IngestErrorRepository{db: db}
}

type ingestErrorRow struct {
	ID          string    `db:"id"`
	Phase       string    `db:"phase"`
	VendorEmail string    `db:"vendor_email"`
	RfpID       string    `db:"rfp_id"`
	Subject     string    `db:"subject"`
	Message     string    `db:"message"`
	DetailsJSON string    `db:"details_json"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r *IngestErrorRepository) Save(ctx context.Context, e *domain.IngestError) error {
	const q = `
INSERT INTO ingest_errors
  (id, phase, vendor_email, rfp_id, subject, message, details_json, created_at)
VALUES (?,?,?,?,?,?,?,?)`
	id := e.ID
	if id == "" {
		id = uuid.NewString()
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	msg := e.Message
	if strings.TrimSpace(msg) == "" {
		msg = "-"
	}
	_, err := r.db.ExecContext(ctx, r.db.Rebind(q),
		id, dashIfEmpty(e.Phase), dashIfEmpty(e.VendorEmail), dashIfEmpty(e.RfpID), dashIfEmpty(e.Subject),
		msg, jsonText([]byte(e.DetailsJSON), "{}"), created,
	)
	return storeErr("save ingest error", err)
}

// Latest ingest errors, newest first
func (r *IngestErrorRepository) Latest(ctx context.Context, limit int) ([]*domain.IngestError, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, phase, vendor_email, rfp_id, subject, message, details_json, created_at
FROM ingest_errors
ORDER BY created_at DESC, id DESC
LIMIT ?`
	var rows []ingestErrorRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), limit); err != nil {
		return nil, storeErr("list ingest errors", err)
	}
	out := make([]*domain.IngestError, 0, len(rows))
	for _, row := range rows {
		out = append(out, &domain.IngestError{
			ID:          row.ID,
			Phase:       row.Phase,
			VendorEmail: row.VendorEmail,
			RfpID:       row.RfpID,
			Subject:     row.Subject,
			Message:     row.Message,
			DetailsJSON: row.DetailsJSON,
			CreatedAt:   row.CreatedAt.UTC(),
		})
	}
	return out, nil
}
