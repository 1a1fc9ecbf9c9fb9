package port

import (
	"context"

	"github.com/tadbeer/visaflow/internal/domain/residence"
)

// CaseRepository defines persistence operations for residence cases. It is
// the in-process realization of the case lifecycle boundary: the engine
// validates in memory and this port is the single serialization point.
type CaseRepository interface {
	// Create inserts a new case and assigns its ID.
	Create(ctx context.Context, c *residence.Case) error

	// GetByID returns the full case snapshot including all stage records,
	// or (nil, nil) when no such case exists.
	GetByID(ctx context.Context, id int64) (*residence.Case, error)

	// Save persists the full case state, replacing stage and custody records.
	Save(ctx context.Context, c *residence.Case) error

	// List returns cases ordered by id.
	List(ctx context.Context, limit, offset int) ([]*residence.Case, error)

	// ListByCustodyStatus returns custody-eligible cases with the given
	// card-custody status.
	ListByCustodyStatus(ctx context.Context, status residence.CustodyStatus) ([]*residence.Case, error)
}
