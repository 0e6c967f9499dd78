package vendors

import "context"

// Repository port (interface untuk persistence)
type Repository interface {
	Create(ctx context.Context, v *Vendor) error
	Get(ctx context.Context, id ID) (*Vendor, error)
	// List returns vendors ordered by name.
	List(ctx context.Context) ([]*Vendor, error)
	// FindByEmail returns the first vendor, in creation order, whose stored
	// email contains addr case-insensitively. Nil when nothing matches.
	FindByEmail(ctx context.Context, addr string) (*Vendor, error)
	Delete(ctx context.Context, id ID) error
}
