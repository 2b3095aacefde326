// Package execution is the operational layer above the exchange primitives:
// it routes incoming trade signals, executes long stops, and sizes buy orders
// from the account's total USD exposure.
package execution

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quantary/cryptobot/internal/types"
	"github.com/quantary/cryptobot/pkg/errors"
)

// DefaultIncrementPct nudges limit prices past the last trade so orders fill
// promptly: buys bid slightly above, sells offer slightly below.
var DefaultIncrementPct = decimal.NewFromFloat(0.001)

// MarketSource supplies the last traded price for a symbol.
type MarketSource interface {
	LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// OrderPlacer places limit orders.
type OrderPlacer interface {
	CreateLimitOrder(ctx context.Context, symbol string, side types.Side, amount, price decimal.Decimal) (types.Order, error)
}

// BalanceSource supplies the total held amount of a currency.
type BalanceSource interface {
	TotalCurrency(ctx context.Context, currency string) (decimal.Decimal, bool, error)
}

// AllocationSource supplies the account's total USD exposure.
type AllocationSource interface {
	TotalUSD(ctx context.Context) (decimal.Decimal, error)
}

// SignalStore persists signals deferred for the next scheduled run.
type SignalStore interface {
	Put(ctx context.Context, sig types.Signal) error
}

// StrategyBook resolves strategy attributes by trading symbol and arbitrates
// between symbols competing for the same funds.
type StrategyBook interface {
	CurrencyFromSymbol(symbol string) (string, error)
	PercentageFromSymbol(symbol string) (decimal.Decimal, error)
	TradePrecedence(symbols []string) (string, error)
}

// Directive is one allocation instruction: what to trade, which way, and for
// buys the share of total funds to commit.
type Directive struct {
	Symbol     string
	Currency   string
	Action     string
	Percentage decimal.Decimal
}

// Engine wires the exchange primitives into signal-driven trading.
type Engine struct {
	market       MarketSource
	orders       OrderPlacer
	balances     BalanceSource
	alloc        AllocationSource
	book         StrategyBook
	store        SignalStore
	incrementPct decimal.Decimal
	log          *zap.Logger
}

// NewEngine creates an Engine with the default price increment.
func NewEngine(market MarketSource, orders OrderPlacer, balances BalanceSource, alloc AllocationSource, book StrategyBook, store SignalStore, log *zap.Logger) *Engine {
	return &Engine{
		market:       market,
		orders:       orders,
		balances:     balances,
		alloc:        alloc,
		book:         book,
		store:        store,
		incrementPct: DefaultIncrementPct,
		log:          log,
	}
}

// WithIncrementPct overrides the limit-price increment.
func (e *Engine) WithIncrementPct(pct decimal.Decimal) *Engine {
	e.incrementPct = pct

	return e
}

// HandleSignal routes one incoming signal: a stop comment executes the long
// stop immediately, anything else is stored for the next scheduled run. The
// case-insensitive "stop" keyword is the entire routing contract.
func (e *Engine) HandleSignal(ctx context.Context, sig types.Signal) (*types.Order, error) {
	if sig.Ticker == "" {
		return nil, errors.New(errors.ErrCodeMissingParameter, "signal ticker must be a non-empty string")
	}

	if sig.IsStop() {
		order, err := e.ExecuteLongStop(ctx, sig.Ticker)
		if err != nil {
			return nil, err
		}

		return &order, nil
	}

	if err := e.store.Put(ctx, sig); err != nil {
		return nil, err
	}

	e.log.Info("deferred trade signal",
		zap.String("ticker", sig.Ticker),
		zap.Time("create_ts", sig.CreateTS),
	)

	return nil, nil
}

// ExecuteLongStop exits the symbol's full position: sells the entire held
// currency amount at the last price nudged down by the increment.
func (e *Engine) ExecuteLongStop(ctx context.Context, symbol string) (types.Order, error) {
	currency, err := e.book.CurrencyFromSymbol(symbol)
	if err != nil {
		return types.Order{}, err
	}

	amount, found, err := e.balances.TotalCurrency(ctx, currency)
	if err != nil {
		return types.Order{}, err
	}

	if !found || !amount.IsPositive() {
		return types.Order{}, errors.Newf(errors.ErrCodeInvalidParameter, "no %s held to stop out of", currency)
	}

	last, err := e.market.LastPrice(ctx, symbol)
	if err != nil {
		return types.Order{}, err
	}

	price := e.sellPrice(last)

	order, err := e.orders.CreateLimitOrder(ctx, symbol, types.SideSell, amount, price)
	if err != nil {
		return types.Order{}, err
	}

	e.log.Info("executed long stop",
		zap.String("symbol", symbol),
		zap.String("amount", amount.String()),
		zap.String("price", price.String()),
	)

	return order, nil
}

// ArbitrateSignals picks which deferred signals get to execute when more
// than one ticker has signals pending: only the highest-precedence ticker's
// signals survive. A single-ticker batch passes through untouched.
func (e *Engine) ArbitrateSignals(signals []types.Signal) ([]types.Signal, error) {
	seen := make(map[string]struct{}, len(signals))
	tickers := make([]string, 0, len(signals))

	for _, sig := range signals {
		if _, ok := seen[sig.Ticker]; ok {
			continue
		}

		seen[sig.Ticker] = struct{}{}
		tickers = append(tickers, sig.Ticker)
	}

	if len(tickers) <= 1 {
		return signals, nil
	}

	winner, err := e.book.TradePrecedence(tickers)
	if err != nil {
		return nil, err
	}

	kept := make([]types.Signal, 0, len(signals))

	for _, sig := range signals {
		if sig.Ticker == winner {
			kept = append(kept, sig)
		}
	}

	e.log.Info("arbitrated competing signals",
		zap.String("winner", winner),
		zap.Int("dropped", len(signals)-len(kept)),
	)

	return kept, nil
}

// BuySideBoost sizes and places one buy order per deferred signal: the
// account's total USD exposure times the ticker's strategy percentage, at
// the last price nudged up by the increment. Signals whose action is not a
// buy are skipped; a batch with no buys at all is an error.
func (e *Engine) BuySideBoost(ctx context.Context, signals []types.Signal) ([]types.Order, error) {
	if len(signals) == 0 {
		return nil, errors.New(errors.ErrCodeNoSignals, "no deferred signals to execute")
	}

	totalUSD, err := e.alloc.TotalUSD(ctx)
	if err != nil {
		return nil, err
	}

	orders := make([]types.Order, 0, len(signals))

	for _, sig := range signals {
		if !strings.EqualFold(sig.OrderAction, string(types.SideBuy)) {
			e.log.Warn("skipping non-buy signal in boost run",
				zap.String("ticker", sig.Ticker),
				zap.String("order_action", sig.OrderAction),
			)

			continue
		}

		pct, err := e.book.PercentageFromSymbol(sig.Ticker)
		if err != nil {
			return orders, err
		}

		last, err := e.market.LastPrice(ctx, sig.Ticker)
		if err != nil {
			return orders, err
		}

		price := e.buyPrice(last)
		amount := totalUSD.Mul(pct).Div(price)

		order, err := e.orders.CreateLimitOrder(ctx, sig.Ticker, types.SideBuy, amount, price)
		if err != nil {
			return orders, err
		}

		e.log.Info("placed boost order",
			zap.String("symbol", sig.Ticker),
			zap.String("amount", amount.String()),
			zap.String("price", price.String()),
		)

		orders = append(orders, order)
	}

	if len(orders) == 0 {
		return nil, errors.New(errors.ErrCodeNoSignals, "no buy-side signals to execute")
	}

	return orders, nil
}

// MultiStrategyAllocation executes a batch of directives against the current
// account state. Sells exit the directive's full currency holding; buys
// commit the directive's share of total USD exposure. Total exposure is
// snapshotted once for the whole batch.
func (e *Engine) MultiStrategyAllocation(ctx context.Context, directives []Directive) ([]types.Order, error) {
	if len(directives) == 0 {
		return nil, errors.New(errors.ErrCodeNoSignals, "directives list is empty")
	}

	totalUSD, err := e.alloc.TotalUSD(ctx)
	if err != nil {
		return nil, err
	}

	orders := make([]types.Order, 0, len(directives))

	for _, d := range directives {
		side, err := types.ParseSide(d.Action)
		if err != nil {
			return orders, err
		}

		last, err := e.market.LastPrice(ctx, d.Symbol)
		if err != nil {
			return orders, err
		}

		var (
			amount decimal.Decimal
			price  decimal.Decimal
		)

		if side == types.SideSell {
			held, found, err := e.balances.TotalCurrency(ctx, d.Currency)
			if err != nil {
				return orders, err
			}

			if !found || !held.IsPositive() {
				return orders, errors.Newf(errors.ErrCodeInvalidParameter, "no %s held to sell", d.Currency)
			}

			amount = held
			price = e.sellPrice(last)
		} else {
			price = e.buyPrice(last)
			amount = totalUSD.Mul(d.Percentage).Div(price)
		}

		order, err := e.orders.CreateLimitOrder(ctx, d.Symbol, side, amount, price)
		if err != nil {
			return orders, err
		}

		orders = append(orders, order)
	}

	return orders, nil
}

func (e *Engine) buyPrice(last decimal.Decimal) decimal.Decimal {
	return last.Mul(decimal.NewFromInt(1).Add(e.incrementPct))
}

func (e *Engine) sellPrice(last decimal.Decimal) decimal.Decimal {
	return last.Mul(decimal.NewFromInt(1).Sub(e.incrementPct))
}
