package exchange

import (
	"context"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quantary/cryptobot/internal/retry"
	"github.com/quantary/cryptobot/internal/types"
	"github.com/quantary/cryptobot/pkg/errors"
)

// TradeHistory fetches the account's fill history for a symbol, oldest first,
// as the trade matcher consumes it.
type TradeHistory struct {
	conn    *Connection
	policy  retry.Policy
	sleeper retry.Sleeper
	log     *zap.Logger
}

// NewTradeHistory creates a TradeHistory query bound to one connection.
func NewTradeHistory(conn *Connection, log *zap.Logger) *TradeHistory {
	return &TradeHistory{
		conn:    conn,
		policy:  retry.DefaultPolicy(),
		sleeper: retry.RealSleeper{},
		log:     log,
	}
}

// newTradeHistoryWithPolicy is used by tests to inject a fake sleeper.
func newTradeHistoryWithPolicy(conn *Connection, log *zap.Logger, policy retry.Policy, sleeper retry.Sleeper) *TradeHistory {
	return &TradeHistory{
		conn:    conn,
		policy:  policy,
		sleeper: sleeper,
		log:     log,
	}
}

// Fills returns every fill for the symbol in the order the exchange reports
// them: oldest first.
func (h *TradeHistory) Fills(ctx context.Context, symbol string) ([]types.Fill, error) {
	if h.conn == nil {
		return nil, errors.New(errors.ErrCodeNotConnected, "trade history requires an established connection")
	}

	if symbol == "" {
		return nil, errors.New(errors.ErrCodeMissingParameter, "symbol must be a non-empty string")
	}

	return retry.Do(ctx, h.policy, h.sleeper, h.log, "fetch_my_trades", func(ctx context.Context) ([]types.Fill, error) {
		trades, err := h.conn.api.NewListTradesService().Symbol(symbol).Do(ctx)
		if err != nil {
			return nil, translate("fetch_my_trades", err)
		}

		fills := make([]types.Fill, 0, len(trades))

		for _, t := range trades {
			fill, err := fillFromTrade(t, symbol)
			if err != nil {
				return nil, err
			}

			fills = append(fills, fill)
		}

		return fills, nil
	})
}

// fillFromTrade converts one Binance trade record into a Fill. Amount is the
// base-currency quantity, Cost the quote-currency total.
func fillFromTrade(t *binance.TradeV3, symbol string) (types.Fill, error) {
	amount, err := decimal.NewFromString(t.Quantity)
	if err != nil {
		return types.Fill{}, errors.Wrapf(errors.ErrCodeUnknown, err, "malformed trade quantity %q for %s", t.Quantity, symbol)
	}

	cost, err := decimal.NewFromString(t.QuoteQuantity)
	if err != nil {
		return types.Fill{}, errors.Wrapf(errors.ErrCodeUnknown, err, "malformed trade cost %q for %s", t.QuoteQuantity, symbol)
	}

	price, err := decimal.NewFromString(t.Price)
	if err != nil {
		return types.Fill{}, errors.Wrapf(errors.ErrCodeUnknown, err, "malformed trade price %q for %s", t.Price, symbol)
	}

	side := types.SideSell
	if t.IsBuyer {
		side = types.SideBuy
	}

	return types.Fill{
		Symbol: symbol,
		Side:   side,
		Amount: amount,
		Cost:   cost,
		Price:  price,
		Time:   time.UnixMilli(t.Time).UTC(),
	}, nil
}
