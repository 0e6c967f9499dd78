package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	errs "github.com/bryanwahyu/rfp-manager/internal/domain"
	domain "github.com/bryanwahyu/rfp-manager/internal/domain/rfps"
	"github.com/bryanwahyu/rfp-manager/internal/domain/vendors"
)

type RfpRepository struct {
	db *sqlx.DB
}

func NewRfpRepository(db *sqlx.DB) *RfpRepository {
	return &RfpRepository{db: db}
}

type rfpRow struct {
	ID           string    `db:"id"`
	Title        string    `db:"title"`
	Description  string    `db:"description"`
	Items        string    `db:"items"`
	Budget       *float64  `db:"budget"`
	DeliveryDays *int64    `db:"delivery_days"`
	PaymentTerms *string   `db:"payment_terms"`
	Warranty     *string   `db:"warranty"`
	Status       string    `db:"status"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r rfpRow) toDomain() (*domain.Rfp, error) {
	out := &domain.Rfp{
		ID:           domain.ID(r.ID),
		Title:        r.Title,
		Description:  r.Description,
		Items:        []domain.Item{},
		Budget:       r.Budget,
		PaymentTerms: r.PaymentTerms,
		Warranty:     r.Warranty,
		Status:       domain.Status(r.Status),
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
	if r.DeliveryDays != nil {
		d := int(*r.DeliveryDays)
		out.DeliveryDays = &d
	}
	if r.Items != "" {
		if err := json.Unmarshal([]byte(r.Items), &out.Items); err != nil {
			return nil, fmt.Errorf("%w: decode items of rfp %s: %v", errs.ErrPersistence, r.ID, err)
		}
	}
	return out, nil
}

type summaryRow struct {
	rfpRow
	ProposalCount int `db:"proposal_count"`
}

type proposalRow struct {
	ID         string    `db:"id"`
	RfpID      string    `db:"rfp_id"`
	VendorID   string    `db:"vendor_id"`
	RawEmail   string    `db:"raw_email"`
	ParsedData string    `db:"parsed_data"`
	TotalPrice *float64  `db:"total_price"`
	Status     string    `db:"status"`
	Score      float64   `db:"score"`
	AIAnalysis string    `db:"ai_analysis"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r proposalRow) toDomain() *domain.Proposal {
	p := &domain.Proposal{
		ID:         domain.ProposalID(r.ID),
		RfpID:      domain.ID(r.RfpID),
		VendorID:   vendors.ID(r.VendorID),
		RawEmail:   r.RawEmail,
		TotalPrice: r.TotalPrice,
		Status:     domain.ProposalStatus(r.Status),
		Score:      r.Score,
		AIAnalysis: r.AIAnalysis,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
	if r.ParsedData != "" {
		p.ParsedData = json.RawMessage(r.ParsedData)
	}
	return p
}

// proposalVendorRow is a proposal joined with its vendor.
type proposalVendorRow struct {
	proposalRow
	VendorName      string    `db:"vendor_name"`
	VendorEmail     string    `db:"vendor_email"`
	VendorCategory  string    `db:"vendor_category"`
	VendorCreatedAt time.Time `db:"vendor_created_at"`
}

const (
	rfpColumns = `r.id, r.title, r.description, r.items, r.budget, r.delivery_days,
       r.payment_terms, r.warranty, r.status, r.created_at, r.updated_at`
	proposalColumns = `p.id, p.rfp_id, p.vendor_id, p.raw_email, p.parsed_data, p.total_price,
       p.status, p.score, p.ai_analysis, p.created_at, p.updated_at`
)

//
// ==== RFP ====
//

func (r *RfpRepository) Create(ctx context.Context, rfp *domain.Rfp) error {
	items, err := json.Marshal(rfp.Items)
	if err != nil {
		return fmt.Errorf("%w: encode items: %v", errs.ErrPersistence, err)
	}
	const q = `
INSERT INTO rfps
  (id, title, description, items, budget, delivery_days, payment_terms, warranty, status, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`
	var days *int64
	if rfp.DeliveryDays != nil {
		d := int64(*rfp.DeliveryDays)
		days = &d
	}
	_, err = r.db.ExecContext(ctx, r.db.Rebind(q),
		string(rfp.ID), rfp.Title, rfp.Description, jsonText(items, "[]"),
		rfp.Budget, days, rfp.PaymentTerms, rfp.Warranty,
		string(rfp.Status), rfp.CreatedAt, rfp.UpdatedAt,
	)
	return storeErr("create rfp", err)
}

func (r *RfpRepository) Get(ctx context.Context, id domain.ID) (*domain.Rfp, error) {
	var row rfpRow
	q := r.db.Rebind(`SELECT ` + rfpColumns + ` FROM rfps r WHERE r.id = ?`)
	if err := r.db.GetContext(ctx, &row, q, string(id)); err != nil {
		return nil, storeErr("get rfp "+string(id), err)
	}
	return row.toDomain()
}

// List RFPs newest first with their proposal counts
func (r *RfpRepository) List(ctx context.Context, status domain.Status) ([]*domain.Summary, error) {
	q := `SELECT ` + rfpColumns + `,
       (SELECT COUNT(*) FROM proposals p WHERE p.rfp_id = r.id) AS proposal_count
FROM rfps r`
	var args []any
	if status != "" {
		q += ` WHERE r.status = ?`
		args = append(args, string(status))
	}
	q += ` ORDER BY r.created_at DESC, r.id DESC`

	var rows []summaryRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), args...); err != nil {
		return nil, storeErr("list rfps", err)
	}
	out := make([]*domain.Summary, 0, len(rows))
	for _, row := range rows {
		rfp, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, &domain.Summary{Rfp: *rfp, ProposalCount: row.ProposalCount})
	}
	return out, nil
}

func (r *RfpRepository) MarkOpen(ctx context.Context, id domain.ID, at time.Time) error {
	q := r.db.Rebind(`UPDATE rfps SET status = ?, updated_at = ? WHERE id = ? AND status = ?`)
	_, err := r.db.ExecContext(ctx, q, string(domain.StatusOpen), at, string(id), string(domain.StatusPending))
	return storeErr("mark rfp open", err)
}

//
// ==== PROPOSALS ====
//

func (r *RfpRepository) CreateProposal(ctx context.Context, p *domain.Proposal) error {
	const q = `
INSERT INTO proposals
  (id, rfp_id, vendor_id, raw_email, parsed_data, total_price, status, score, ai_analysis, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(q),
		string(p.ID), string(p.RfpID), string(p.VendorID), p.RawEmail, jsonText(p.ParsedData, "{}"),
		p.TotalPrice, string(p.Status), p.Score, p.AIAnalysis, p.CreatedAt, p.UpdatedAt,
	)
	return storeErr("create proposal", err)
}

func (r *RfpRepository) GetProposal(ctx context.Context, id domain.ProposalID) (*domain.Proposal, error) {
	var row proposalRow
	q := r.db.Rebind(`SELECT ` + proposalColumns + ` FROM proposals p WHERE p.id = ?`)
	if err := r.db.GetContext(ctx, &row, q, string(id)); err != nil {
		return nil, storeErr("get proposal "+string(id), err)
	}
	return row.toDomain(), nil
}

// ListProposals in creation order, vendor joined
func (r *RfpRepository) ListProposals(ctx context.Context, rfpID domain.ID) ([]*domain.Proposal, error) {
	q := `SELECT ` + proposalColumns + `,
       v.name AS vendor_name, v.email AS vendor_email, v.category AS vendor_category, v.created_at AS vendor_created_at
FROM proposals p
JOIN vendors v ON v.id = p.vendor_id
WHERE p.rfp_id = ?
ORDER BY p.created_at ASC, p.id ASC`
	var rows []proposalVendorRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), string(rfpID)); err != nil {
		return nil, storeErr("list proposals", err)
	}
	out := make([]*domain.Proposal, 0, len(rows))
	for _, row := range rows {
		p := row.toDomain()
		p.Vendor = &vendors.Vendor{
			ID:        p.VendorID,
			Name:      row.VendorName,
			Email:     row.VendorEmail,
			Category:  row.VendorCategory,
			CreatedAt: row.VendorCreatedAt.UTC(),
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *RfpRepository) UpdateRating(ctx context.Context, id domain.ProposalID, score float64, analysis string, at time.Time) error {
	q := r.db.Rebind(`UPDATE proposals SET score = ?, ai_analysis = ?, updated_at = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, q, score, analysis, at, string(id))
	if err != nil {
		return storeErr("update rating", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: proposal %s", errs.ErrNotFound, id)
	}
	return nil
}

func (r *RfpRepository) RejectProposal(ctx context.Context, id domain.ProposalID, at time.Time) error {
	q := r.db.Rebind(`UPDATE proposals SET status = ?, updated_at = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, q, string(domain.ProposalRejected), at, string(id))
	if err != nil {
		return storeErr("reject proposal", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: proposal %s", errs.ErrNotFound, id)
	}
	return nil
}

// AcceptProposal closes the RFP, accepts the winner and rejects the rest in
// one transaction. The RFP is closed with a conditional update so a second
// concurrent accept fails with ErrConflict instead of overwriting the first.
func (r *RfpRepository) AcceptProposal(ctx context.Context, rfpID domain.ID, proposalID domain.ProposalID, at time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return storeErr("begin accept", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE rfps SET status = ?, updated_at = ? WHERE id = ? AND status <> ?`),
		string(domain.StatusClosed), at, string(rfpID), string(domain.StatusClosed))
	if err != nil {
		return storeErr("close rfp", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		var exists int
		if err := tx.GetContext(ctx, &exists, tx.Rebind(`SELECT COUNT(*) FROM rfps WHERE id = ?`), string(rfpID)); err != nil {
			return storeErr("check rfp", err)
		}
		if exists == 0 {
			return fmt.Errorf("%w: rfp %s", errs.ErrNotFound, rfpID)
		}
		return fmt.Errorf("%w: rfp %s is already closed", errs.ErrConflict, rfpID)
	}

	res, err = tx.ExecContext(ctx, tx.Rebind(`UPDATE proposals SET status = ?, updated_at = ? WHERE id = ? AND rfp_id = ? AND status = ?`),
		string(domain.ProposalAccepted), at, string(proposalID), string(rfpID), string(domain.ProposalPending))
	if err != nil {
		return storeErr("accept proposal", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		var row proposalRow
		err := tx.GetContext(ctx, &row, tx.Rebind(`SELECT `+proposalColumns+` FROM proposals p WHERE p.id = ?`), string(proposalID))
		if err != nil || row.RfpID != string(rfpID) {
			return fmt.Errorf("%w: proposal %s in rfp %s", errs.ErrNotFound, proposalID, rfpID)
		}
		return fmt.Errorf("%w: proposal %s is %s", errs.ErrConflict, proposalID, row.Status)
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(`UPDATE proposals SET status = ?, updated_at = ? WHERE rfp_id = ? AND id <> ?`),
		string(domain.ProposalRejected), at, string(rfpID), string(proposalID))
	if err != nil {
		return storeErr("reject other proposals", err)
	}

	return storeErr("commit accept", tx.Commit())
}
