package plan

import (
	"context"

	"github.com/streamkey/streamkey/internal/types"
)

// Repository defines the interface for plan catalog lookups
type Repository interface {
	// List returns all plans in ascending tier order
	List(ctx context.Context) ([]*Plan, error)

	// Get retrieves a plan by its identifier
	Get(ctx context.Context, id types.PlanID) (*Plan, error)
}
