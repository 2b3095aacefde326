package exchange

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quantary/cryptobot/internal/retry"
	"github.com/quantary/cryptobot/pkg/errors"
)

// BalanceQuery fetches account balances through an established connection.
type BalanceQuery struct {
	conn    *Connection
	policy  retry.Policy
	sleeper retry.Sleeper
	log     *zap.Logger
}

// NewBalanceQuery creates a BalanceQuery bound to one connection.
func NewBalanceQuery(conn *Connection, log *zap.Logger) *BalanceQuery {
	return &BalanceQuery{
		conn:    conn,
		policy:  retry.DefaultPolicy(),
		sleeper: retry.RealSleeper{},
		log:     log,
	}
}

// newBalanceQueryWithPolicy is used by tests to inject a fake sleeper.
func newBalanceQueryWithPolicy(conn *Connection, log *zap.Logger, policy retry.Policy, sleeper retry.Sleeper) *BalanceQuery {
	return &BalanceQuery{
		conn:    conn,
		policy:  policy,
		sleeper: sleeper,
		log:     log,
	}
}

type balanceResult struct {
	amount decimal.Decimal
	found  bool
}

// TotalCurrency returns the total (free plus locked) amount of the currency
// held by the account. A currency absent from the balance payload is a
// legitimate unheld case: found is false and there is no error.
func (b *BalanceQuery) TotalCurrency(ctx context.Context, currency string) (decimal.Decimal, bool, error) {
	if err := b.validate(currency); err != nil {
		return decimal.Zero, false, err
	}

	res, err := retry.Do(ctx, b.policy, b.sleeper, b.log, "fetch_balance", func(ctx context.Context) (balanceResult, error) {
		account, err := b.conn.api.NewGetAccountService().Do(ctx)
		if err != nil {
			return balanceResult{}, translate("fetch_balance", err)
		}

		for _, bal := range account.Balances {
			if bal.Asset != currency {
				continue
			}

			free, err := decimal.NewFromString(bal.Free)
			if err != nil {
				return balanceResult{}, errors.Wrapf(errors.ErrCodeUnknown, err, "malformed free balance %q for %s", bal.Free, currency)
			}

			locked, err := decimal.NewFromString(bal.Locked)
			if err != nil {
				return balanceResult{}, errors.Wrapf(errors.ErrCodeUnknown, err, "malformed locked balance %q for %s", bal.Locked, currency)
			}

			return balanceResult{amount: free.Add(locked), found: true}, nil
		}

		b.log.Warn("currency not found in account balance", zap.String("currency", currency))

		return balanceResult{}, nil
	})
	if err != nil {
		return decimal.Zero, false, err
	}

	return res.amount, res.found, nil
}

// FreeBalance returns the freely available amount of the currency, zero when
// the currency is not held at all.
func (b *BalanceQuery) FreeBalance(ctx context.Context, currency string) (decimal.Decimal, error) {
	if err := b.validate(currency); err != nil {
		return decimal.Zero, err
	}

	return retry.Do(ctx, b.policy, b.sleeper, b.log, "fetch_free_balance", func(ctx context.Context) (decimal.Decimal, error) {
		account, err := b.conn.api.NewGetAccountService().Do(ctx)
		if err != nil {
			return decimal.Zero, translate("fetch_free_balance", err)
		}

		for _, bal := range account.Balances {
			if bal.Asset != currency {
				continue
			}

			free, err := decimal.NewFromString(bal.Free)
			if err != nil {
				return decimal.Zero, errors.Wrapf(errors.ErrCodeUnknown, err, "malformed free balance %q for %s", bal.Free, currency)
			}

			return free, nil
		}

		b.log.Warn("currency not found in account balance", zap.String("currency", currency))

		return decimal.Zero, nil
	})
}

func (b *BalanceQuery) validate(currency string) error {
	if b.conn == nil {
		return errors.New(errors.ErrCodeNotConnected, "balance query requires an established connection")
	}

	if currency == "" {
		return errors.New(errors.ErrCodeMissingParameter, "currency must be a non-empty string")
	}

	return nil
}
