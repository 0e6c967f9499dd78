package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	errs "github.com/bryanwahyu/rfp-manager/internal/domain"
	domain "github.com/bryanwahyu/rfp-manager/internal/domain/vendors"
)

type VendorRepository struct {
	db *sqlx.DB
}

func NewVendorRepository(db *sqlx.DB) *VendorRepository {
	return &VendorRepository{db: db}
}

type vendorRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Category  string    `db:"category"`
	CreatedAt time.Time `db:"created_at"`
}

func (r vendorRow) toDomain() *domain.Vendor {
	return &domain.Vendor{
		ID:        domain.ID(r.ID),
		Name:      r.Name,
		Email:     r.Email,
		Category:  r.Category,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

const vendorColumns = `id, name, email, category, created_at`

func (r *VendorRepository) Create(ctx context.Context, v *domain.Vendor) error {
	q := r.db.Rebind(`INSERT INTO vendors (` + vendorColumns + `) VALUES (?,?,?,?,?)`)
	_, err := r.db.ExecContext(ctx, q, string(v.ID), v.Name, v.Email, v.Category, v.CreatedAt)
	return storeErr("create vendor", err)
}

func (r *VendorRepository) Get(ctx context.Context, id domain.ID) (*domain.Vendor, error) {
	var row vendorRow
	q := r.db.Rebind(`SELECT ` + vendorColumns + ` FROM vendors WHERE id = ?`)
	if err := r.db.GetContext(ctx, &row, q, string(id)); err != nil {
		return nil, storeErr("get vendor "+string(id), err)
	}
	return row.toDomain(), nil
}

// List vendors alphabetically
func (r *VendorRepository) List(ctx context.Context) ([]*domain.Vendor, error) {
	return r.selectAll(ctx, `SELECT `+vendorColumns+` FROM vendors ORDER BY name ASC, id ASC`)
}

// FindByEmail scans vendors in creation order and returns the first whose
// email contains addr, ignoring case.
func (r *VendorRepository) FindByEmail(ctx context.Context, addr string) (*domain.Vendor, error) {
	addr = strings.ToLower(strings.TrimSpace(addr))
	if addr == "" {
		return nil, nil
	}
	all, err := r.selectAll(ctx, `SELECT `+vendorColumns+` FROM vendors ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	for _, v := range all {
		if strings.Contains(strings.ToLower(v.Email), addr) {
			return v, nil
		}
	}
	return nil, nil
}

// Delete removes a vendor. Vendors with proposals are kept.
func (r *VendorRepository) Delete(ctx context.Context, id domain.ID) error {
	var n int
	if err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(*) FROM proposals WHERE vendor_id = ?`), string(id)); err != nil {
		return storeErr("count vendor proposals", err)
	}
	if n > 0 {
		return fmt.Errorf("%w: vendor %s has %d proposal(s)", errs.ErrConflict, id, n)
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM vendors WHERE id = ?`), string(id))
	if err != nil {
		return storeErr("delete vendor", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("%w: vendor %s", errs.ErrNotFound, id)
	}
	return nil
}

func (r *VendorRepository) selectAll(ctx context.Context, q string) ([]*domain.Vendor, error) {
	var rows []vendorRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q)); err != nil {
		return nil, storeErr("list vendors", err)
	}
	out := make([]*domain.Vendor, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
