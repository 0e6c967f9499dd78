package ingesterrors

import "context"

// Repository defines persistence for inbound errors
type Repository interface {
	Save(ctx context.Context, e *IngestError) error
	Latest(ctx context.Context, limit int) ([]*IngestError, error)
}
