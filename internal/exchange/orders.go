package exchange

import (
	"context"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quantary/cryptobot/internal/retry"
	"github.com/quantary/cryptobot/internal/types"
	"github.com/quantary/cryptobot/pkg/errors"
)

// OrderExecutor places limit orders with idempotent timeout recovery: if the
// response to a submission is lost to a request timeout, the executor checks
// the symbol's open orders before retrying, so a landed order is adopted
// instead of submitted twice.
type OrderExecutor struct {
	conn    *Connection
	policy  retry.Policy
	sleeper retry.Sleeper
	log     *zap.Logger
}

// NewOrderExecutor creates an OrderExecutor bound to one connection.
func NewOrderExecutor(conn *Connection, log *zap.Logger) *OrderExecutor {
	return &OrderExecutor{
		conn:    conn,
		policy:  retry.DefaultPolicy(),
		sleeper: retry.RealSleeper{},
		log:     log,
	}
}

// newOrderExecutorWithPolicy is used by tests to inject a fake sleeper.
func newOrderExecutorWithPolicy(conn *Connection, log *zap.Logger, policy retry.Policy, sleeper retry.Sleeper) *OrderExecutor {
	return &OrderExecutor{
		conn:    conn,
		policy:  policy,
		sleeper: sleeper,
		log:     log,
	}
}

// CreateLimitOrder places a GTC limit order. Explicit exchange rejections
// (insufficient funds, invalid symbol) terminate immediately; transient
// failures retry; request timeouts reconcile against open orders first.
func (e *OrderExecutor) CreateLimitOrder(ctx context.Context, symbol string, side types.Side, amount, price decimal.Decimal) (types.Order, error) {
	if e.conn == nil {
		return types.Order{}, errors.New(errors.ErrCodeNotConnected, "order executor requires an established connection")
	}

	if symbol == "" {
		return types.Order{}, errors.New(errors.ErrCodeMissingParameter, "symbol must be a non-empty string")
	}

	if !amount.IsPositive() {
		return types.Order{}, errors.Newf(errors.ErrCodeInvalidParameter, "order amount must be positive, got %s", amount)
	}

	if !price.IsPositive() {
		return types.Order{}, errors.Newf(errors.ErrCodeInvalidParameter, "order price must be positive, got %s", price)
	}

	// One client order id across all attempts makes the timeout
	// reconciliation exact.
	clientOrderID := uuid.NewString()

	return retry.Do(ctx, e.policy, e.sleeper, e.log, "create_limit_order", func(ctx context.Context) (types.Order, error) {
		resp, err := e.conn.api.NewCreateOrderService().
			Symbol(symbol).
			Side(toBinanceSide(side)).
			Type(binance.OrderTypeLimit).
			TimeInForce(binance.TimeInForceTypeGTC).
			Quantity(amount.String()).
			Price(price.String()).
			NewClientOrderID(clientOrderID).
			Do(ctx)
		if err != nil {
			terr := translate("create_limit_order", err)
			if errors.HasCode(terr, errors.ErrCodeRequestTimeout) {
				if order, ok := e.findOpenOrder(ctx, symbol, clientOrderID); ok {
					e.log.Info("request timeout: confirmed order placement via open orders",
						zap.String("symbol", symbol),
						zap.String("order_id", order.ID),
					)

					return order, nil
				}
			}

			return types.Order{}, terr
		}

		order := orderFromResponse(resp)
		e.log.Info("created limit order",
			zap.String("symbol", symbol),
			zap.String("side", string(side)),
			zap.String("amount", amount.String()),
			zap.String("price", price.String()),
			zap.String("order_id", order.ID),
		)

		return order, nil
	})
}

// findOpenOrder looks for the submitted order among the symbol's open orders.
// It prefers an exact client-order-id match and falls back to the newest open
// order for the symbol. Lookup failures are swallowed here: the enclosing
// retry loop handles the original timeout.
func (e *OrderExecutor) findOpenOrder(ctx context.Context, symbol, clientOrderID string) (types.Order, bool) {
	open, err := e.conn.api.NewListOpenOrdersService().Symbol(symbol).Do(ctx)
	if err != nil || len(open) == 0 {
		return types.Order{}, false
	}

	for _, o := range open {
		if o.ClientOrderID == clientOrderID {
			return orderFromOpen(o), true
		}
	}

	return orderFromOpen(open[0]), true
}

// Helper functions

func toBinanceSide(side types.Side) binance.SideType {
	if side == types.SideSell {
		return binance.SideTypeSell
	}

	return binance.SideTypeBuy
}

func fromBinanceSide(side binance.SideType) types.Side {
	if side == binance.SideTypeSell {
		return types.SideSell
	}

	return types.SideBuy
}

// mapOrderStatus maps Binance order status onto our OrderStatus type.
func mapOrderStatus(status binance.OrderStatusType) types.OrderStatus {
	switch status {
	case binance.OrderStatusTypeNew, binance.OrderStatusTypePartiallyFilled:
		return types.OrderStatusPending
	case binance.OrderStatusTypeFilled:
		return types.OrderStatusFilled
	case binance.OrderStatusTypeCanceled:
		return types.OrderStatusCancelled
	case binance.OrderStatusTypeRejected:
		return types.OrderStatusRejected
	default:
		return types.OrderStatusFailed
	}
}

func orderFromResponse(resp *binance.CreateOrderResponse) types.Order {
	amount, _ := decimal.NewFromString(resp.OrigQuantity)
	price, _ := decimal.NewFromString(resp.Price)

	return types.Order{
		ID:            strconv.FormatInt(resp.OrderID, 10),
		ClientOrderID: resp.ClientOrderID,
		Symbol:        resp.Symbol,
		Side:          fromBinanceSide(resp.Side),
		Amount:        amount,
		Price:         price,
		Status:        mapOrderStatus(resp.Status),
		CreatedAt:     time.UnixMilli(resp.TransactTime).UTC(),
	}
}

func orderFromOpen(o *binance.Order) types.Order {
	amount, _ := decimal.NewFromString(o.OrigQuantity)
	price, _ := decimal.NewFromString(o.Price)

	return types.Order{
		ID:            strconv.FormatInt(o.OrderID, 10),
		ClientOrderID: o.ClientOrderID,
		Symbol:        o.Symbol,
		Side:          fromBinanceSide(o.Side),
		Amount:        amount,
		Price:         price,
		Status:        mapOrderStatus(o.Status),
		CreatedAt:     time.UnixMilli(o.Time).UTC(),
	}
}
