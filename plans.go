package escrow

import (
	"context"
	"errors"

	"github.com/xraph/escrow/event"
	"github.com/xraph/escrow/host"
	"github.com/xraph/escrow/plan"
	"github.com/xraph/escrow/types"
)

// MarketplacePlanLimit is how many plan ids GetPlans returns at most.
const MarketplacePlanLimit = 10

// CreatePlan publishes a plan owned by the calling provider and returns its
// id. The metadata hash identifies off-chain plan details and is not stored.
func (e *Engine) CreatePlan(ctx context.Context, call host.Call, price types.Amount, interval uint64, metadataHash string) (uint64, error) {
	var planID uint64
	err := e.execute(ctx, "create_plan", call, func(c *callContext) error {
		registered, err := isRegistered(c.ctx, c.tx, call.Caller)
		if err != nil {
			return err
		}
		if !registered {
			return ErrProviderNotRegistered
		}
		if price.IsZero() {
			return ErrInvalidPrice
		}
		if interval == 0 {
			return ErrInvalidInterval
		}

		p := &plan.Plan{
			Entity:      types.NewEntity(),
			ID:          c.state.NextPlanID,
			Provider:    call.Caller,
			Price:       price,
			Interval:    interval,
			PublishedAt: c.now,
		}
		if err := c.tx.CreatePlan(c.ctx, p); err != nil {
			return storeErr("create plan", err)
		}
		c.state.NextPlanID++
		c.touchState()

		c.emit(&event.PlanCreated{
			PlanID:   p.ID,
			Provider: p.Provider,
			Price:    p.Price,
			Interval: p.Interval,
		})
		planID = p.ID

		e.logger.Debug("plan created",
			"plan_id", p.ID,
			"provider", p.Provider.Hex(),
			"price", p.Price.String(),
			"interval", p.Interval,
			"metadata_hash", metadataHash,
		)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return planID, nil
}

// GetPlans returns the ids of the first ten existing plans in ascending
// order, for marketplace listings. Use ListPlans to page further.
func (e *Engine) GetPlans(ctx context.Context) ([]uint64, error) {
	ids := make([]uint64, 0, MarketplacePlanLimit)
	err := e.read(func() error {
		opts := plan.ListOpts{Limit: MarketplacePlanLimit}
		for len(ids) < MarketplacePlanLimit {
			page, err := e.store.ListPlans(ctx, opts)
			if err != nil {
				return storeErr("list plans", err)
			}
			for _, p := range page {
				// A plan published by the zero address is indistinguishable
				// from no plan at all.
				if p.Exists() && len(ids) < MarketplacePlanLimit {
					ids = append(ids, p.ID)
				}
			}
			if len(page) < opts.Limit {
				break
			}
			opts.AfterID = page[len(page)-1].ID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// GetPlan returns a plan by id, or ErrPlanNotFound.
func (e *Engine) GetPlan(ctx context.Context, planID uint64) (*plan.Plan, error) {
	var p *plan.Plan
	err := e.read(func() error {
		var err error
		p, err = loadPlan(ctx, e.store, planID)
		return err
	})
	return p, err
}

// ListPlans pages through the catalog in ascending id order.
func (e *Engine) ListPlans(ctx context.Context, opts plan.ListOpts) ([]*plan.Plan, error) {
	var plans []*plan.Plan
	err := e.read(func() error {
		var err error
		plans, err = e.store.ListPlans(ctx, opts)
		if err != nil {
			return storeErr("list plans", err)
		}
		return nil
	})
	return plans, err
}

func loadPlan(ctx context.Context, s plan.Store, planID uint64) (*plan.Plan, error) {
	p, err := s.GetPlan(ctx, planID)
	if errors.Is(err, ErrPlanNotFound) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, storeErr("get plan", err)
	}
	if !p.Exists() {
		return nil, ErrPlanNotFound
	}
	return p, nil
}
