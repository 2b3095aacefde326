package exchange

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quantary/cryptobot/internal/retry"
	"github.com/quantary/cryptobot/pkg/errors"
)

// MarketData fetches prices for a symbol through an established connection.
// Prices are parsed from the exchange's string responses straight into
// decimals; no float arithmetic touches them.
type MarketData struct {
	conn    *Connection
	policy  retry.Policy
	sleeper retry.Sleeper
	log     *zap.Logger
}

// NewMarketData creates a MarketData query bound to one connection.
func NewMarketData(conn *Connection, log *zap.Logger) *MarketData {
	return &MarketData{
		conn:    conn,
		policy:  retry.DefaultPolicy(),
		sleeper: retry.RealSleeper{},
		log:     log,
	}
}

// newMarketDataWithPolicy is used by tests to inject a fake sleeper.
func newMarketDataWithPolicy(conn *Connection, log *zap.Logger, policy retry.Policy, sleeper retry.Sleeper) *MarketData {
	return &MarketData{
		conn:    conn,
		policy:  policy,
		sleeper: sleeper,
		log:     log,
	}
}

type bidAsk struct {
	bid decimal.Decimal
	ask decimal.Decimal
}

// BidAsk returns the current best bid and ask for the symbol. An explicit
// exchange rejection (unknown symbol) is a terminal rejected error; transient
// failures retry with backoff.
func (m *MarketData) BidAsk(ctx context.Context, symbol string) (decimal.Decimal, decimal.Decimal, error) {
	if err := m.validate(symbol); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	res, err := retry.Do(ctx, m.policy, m.sleeper, m.log, "fetch_ticker", func(ctx context.Context) (bidAsk, error) {
		tickers, err := m.conn.api.NewListBookTickersService().Symbol(symbol).Do(ctx)
		if err != nil {
			return bidAsk{}, translate("fetch_ticker", err)
		}

		if len(tickers) == 0 {
			return bidAsk{}, errors.Newf(errors.ErrCodeExchangeRejected, "no ticker returned for %s", symbol)
		}

		bid, err := decimal.NewFromString(tickers[0].BidPrice)
		if err != nil {
			return bidAsk{}, errors.Wrapf(errors.ErrCodeUnknown, err, "malformed bid price %q for %s", tickers[0].BidPrice, symbol)
		}

		ask, err := decimal.NewFromString(tickers[0].AskPrice)
		if err != nil {
			return bidAsk{}, errors.Wrapf(errors.ErrCodeUnknown, err, "malformed ask price %q for %s", tickers[0].AskPrice, symbol)
		}

		m.log.Debug("fetched bid/ask",
			zap.String("symbol", symbol),
			zap.String("bid", bid.String()),
			zap.String("ask", ask.String()),
		)

		return bidAsk{bid: bid, ask: ask}, nil
	})
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	return res.bid, res.ask, nil
}

// LastPrice returns the last traded price for the symbol.
func (m *MarketData) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if err := m.validate(symbol); err != nil {
		return decimal.Zero, err
	}

	return retry.Do(ctx, m.policy, m.sleeper, m.log, "fetch_last_price", func(ctx context.Context) (decimal.Decimal, error) {
		prices, err := m.conn.api.NewListPricesService().Symbol(symbol).Do(ctx)
		if err != nil {
			return decimal.Zero, translate("fetch_last_price", err)
		}

		if len(prices) == 0 {
			return decimal.Zero, errors.Newf(errors.ErrCodeExchangeRejected, "no price returned for %s", symbol)
		}

		last, err := decimal.NewFromString(prices[0].Price)
		if err != nil {
			return decimal.Zero, errors.Wrapf(errors.ErrCodeUnknown, err, "malformed last price %q for %s", prices[0].Price, symbol)
		}

		m.log.Debug("fetched last price",
			zap.String("symbol", symbol),
			zap.String("last", last.String()),
		)

		return last, nil
	})
}

// validate guards against caller bugs before anything goes on the wire.
// These are programming errors, not exchange failures: never retried.
func (m *MarketData) validate(symbol string) error {
	if m.conn == nil {
		return errors.New(errors.ErrCodeNotConnected, "market data query requires an established connection")
	}

	if symbol == "" {
		return errors.New(errors.ErrCodeMissingParameter, "symbol must be a non-empty string")
	}

	return nil
}
