package types

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantary/cryptobot/pkg/errors"
)

// Side is the direction of an order or fill.
type Side string

// OrderStatus is the lifecycle state of an order as reported by the exchange.
type OrderStatus string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusFilled    OrderStatus = "FILLED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusRejected  OrderStatus = "REJECTED"
	OrderStatusFailed    OrderStatus = "FAILED"
)

// ParseSide normalizes a signal's order action ("buy"/"sell", any case) into a
// Side. Anything else is an invalid order action.
func ParseSide(action string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(action)) {
	case string(SideBuy):
		return SideBuy, nil
	case string(SideSell):
		return SideSell, nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidOrderAction, "invalid order action: %q", action)
	}
}

// Market is one tradable symbol's metadata, loaded once at connect time.
type Market struct {
	Symbol     string
	BaseAsset  string
	QuoteAsset string
	Status     string
}

// Tradable reports whether the market currently accepts orders.
func (m Market) Tradable() bool {
	return m.Status == "TRADING"
}

// Order is an exchange-accepted order. Immutable once returned; identity is
// the exchange-assigned ID.
type Order struct {
	ID            string          `json:"id"`
	ClientOrderID string          `json:"client_order_id"`
	Symbol        string          `json:"symbol"`
	Side          Side            `json:"side"`
	Amount        decimal.Decimal `json:"amount"`
	Price         decimal.Decimal `json:"price"`
	Status        OrderStatus     `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Fill is one executed trade leg as reported by the exchange's trade history.
// Amount is in the base currency, Cost in the quote (USD) currency.
type Fill struct {
	Symbol string          `json:"symbol"`
	Side   Side            `json:"side"`
	Amount decimal.Decimal `json:"amount"`
	Cost   decimal.Decimal `json:"cost"`
	Price  decimal.Decimal `json:"price"`
	Time   time.Time       `json:"time"`
}

// Credentials is a ready-to-use exchange API key pair.
type Credentials struct {
	APIKey    string
	APISecret string
}

// StrategyConfig identifies one active strategy: the symbol it trades, the
// currency it holds and the slice of total funds it may claim.
type StrategyConfig struct {
	Name       string
	Symbol     string
	Currency   string
	Percentage decimal.Decimal
}

// Signal is a canonical trade-signal record produced upstream. The core only
// inspects OrderComment for stop-loss routing; the remaining fields carry
// through to execution and storage.
type Signal struct {
	Ticker       string          `json:"ticker"`
	OrderComment string          `json:"order_comment"`
	OrderAction  string          `json:"order_action"`
	Percentage   decimal.Decimal `json:"percentage"`
	CreateTS     time.Time       `json:"create_ts"`
}

// IsStop reports whether the signal requests stop-loss execution. The
// case-insensitive "stop" keyword match is the entire routing contract with
// the upstream signal producer.
func (s Signal) IsStop() bool {
	return strings.Contains(strings.ToLower(s.OrderComment), "stop")
}

// Allocation maps a currency to the USD value attributed to it: free cash for
// the base currency, prorated original purchase cost for strategy currencies.
type Allocation map[string]decimal.Decimal

// Total sums all allocation entries.
func (a Allocation) Total() decimal.Decimal {
	total := decimal.Zero
	for _, v := range a {
		total = total.Add(v)
	}

	return total
}
