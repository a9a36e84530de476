package plan

import (
	"context"

	"github.com/xraph/escrow/types"
)

// Store persists plans. GetPlan returns escrow.ErrPlanNotFound when the id
// was never created.
type Store interface {
	CreatePlan(ctx context.Context, p *Plan) error
	GetPlan(ctx context.Context, planID uint64) (*Plan, error)
	ListPlans(ctx context.Context, opts ListOpts) ([]*Plan, error)
}

// ListOpts selects plans in ascending id order, strictly after AfterID.
// A zero Provider matches every provider. Limit <= 0 means no limit.
type ListOpts struct {
	AfterID  uint64
	Provider types.Address
	Limit    int
}
