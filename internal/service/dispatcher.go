package service

import (
	"context"
	"fmt"

	"github.com/prperemyshlev/user-service/internal/domain"
)

// Dispatcher selects the first registered strategy that can handle a request.
// The strategy list is fixed at construction, so dispatch is safe for concurrent use.
type Dispatcher struct {
	strategies []Strategy
}

// NewDispatcher creates a dispatcher evaluating strategies in the given order
func NewDispatcher(strategies ...Strategy) *Dispatcher {
	return &Dispatcher{strategies: append([]Strategy(nil), strategies...)}
}

// Authenticate delegates req to the first matching strategy
func (d *Dispatcher) Authenticate(ctx context.Context, req AuthRequest) (*domain.AuthOutcome, error) {
	if req == nil {
		return nil, domain.ErrUnsupportedAuthMethod
	}

	for _, strategy := range d.strategies {
		if !strategy.CanHandle(req) {
			continue
		}

		outcome, err := strategy.Authenticate(ctx, req)
		if err != nil {
			return nil, err
		}
		if outcome == nil || outcome.User == nil {
			return nil, fmt.Errorf("strategy %s returned no account", strategy.Type())
		}
		if outcome.Strategy == "" {
			outcome.Strategy = strategy.Type()
		}
		return outcome, nil
	}

	return nil, domain.ErrUnsupportedAuthMethod
}

// AvailableStrategies lists the registered strategy types in evaluation order
func (d *Dispatcher) AvailableStrategies() []string {
	types := make([]string, 0, len(d.strategies))
	for _, strategy := range d.strategies {
		types = append(types, strategy.Type())
	}
	return types
}

// strategyFor returns the type of the strategy that would handle req
func (d *Dispatcher) strategyFor(req AuthRequest) string {
	for _, strategy := range d.strategies {
		if req != nil && strategy.CanHandle(req) {
			return strategy.Type()
		}
	}
	return "unknown"
}
