// Package allocation computes the per-currency USD allocation snapshot: free
// base-currency cash plus, for every active strategy, the prorated purchase
// cost still held in its position.
package allocation

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quantary/cryptobot/internal/position"
	"github.com/quantary/cryptobot/internal/retry"
	"github.com/quantary/cryptobot/internal/types"
	"github.com/quantary/cryptobot/pkg/errors"
)

// BalanceSource supplies the freely available amount of one currency.
type BalanceSource interface {
	FreeBalance(ctx context.Context, currency string) (decimal.Decimal, error)
}

// FillSource supplies the full fill history for one symbol, oldest first.
type FillSource interface {
	Fills(ctx context.Context, symbol string) ([]types.Fill, error)
}

// StrategySource lists the currently active strategy configurations.
type StrategySource interface {
	Active() []types.StrategyConfig
}

// Calculator assembles allocation snapshots from balances and fill history.
type Calculator struct {
	balances     BalanceSource
	history      FillSource
	strategies   StrategySource
	baseCurrency string
	policy       retry.Policy
	sleeper      retry.Sleeper
	log          *zap.Logger
}

// NewCalculator creates a Calculator with the default retry policy.
func NewCalculator(balances BalanceSource, history FillSource, strategies StrategySource, baseCurrency string, log *zap.Logger) *Calculator {
	return &Calculator{
		balances:     balances,
		history:      history,
		strategies:   strategies,
		baseCurrency: baseCurrency,
		policy:       retry.DefaultPolicy(),
		sleeper:      retry.RealSleeper{},
		log:          log,
	}
}

// newCalculatorWithPolicy is used by tests to inject a fake sleeper.
func newCalculatorWithPolicy(balances BalanceSource, history FillSource, strategies StrategySource, baseCurrency string, log *zap.Logger, policy retry.Policy, sleeper retry.Sleeper) *Calculator {
	return &Calculator{
		balances:     balances,
		history:      history,
		strategies:   strategies,
		baseCurrency: baseCurrency,
		policy:       policy,
		sleeper:      sleeper,
		log:          log,
	}
}

// AccountAllocation returns the USD value held per currency: the base
// currency maps to free cash, each active strategy's currency to the prorated
// cost of its matched trading cycle, zero when the symbol has no fills.
//
// The snapshot is computed inside one retry envelope. A transient failure on
// any leg re-runs the whole computation so the snapshot stays internally
// consistent; an exchange rejection aborts it.
func (c *Calculator) AccountAllocation(ctx context.Context) (types.Allocation, error) {
	if c.baseCurrency == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "base currency is required")
	}

	return retry.Do(ctx, c.policy, c.sleeper, c.log, "account_allocation", func(ctx context.Context) (types.Allocation, error) {
		free, err := c.balances.FreeBalance(ctx, c.baseCurrency)
		if err != nil {
			return nil, err
		}

		alloc := types.Allocation{c.baseCurrency: free}

		for _, strat := range c.strategies.Active() {
			fills, err := c.history.Fills(ctx, strat.Symbol)
			if err != nil {
				return nil, err
			}

			cycle := position.MatchRecentCycle(fills)
			alloc[strat.Currency] = position.CycleValueUSD(cycle)
		}

		c.log.Info("computed account allocation",
			zap.String("base_currency", c.baseCurrency),
			zap.Int("currencies", len(alloc)),
		)

		return alloc, nil
	})
}

// TotalUSD returns the sum of all allocation entries: the account's total
// USD-denominated exposure including free cash.
func (c *Calculator) TotalUSD(ctx context.Context) (decimal.Decimal, error) {
	alloc, err := c.AccountAllocation(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	return alloc.Total(), nil
}
