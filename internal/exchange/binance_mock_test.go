package exchange

import (
	"context"
	"time"

	"github.com/adshao/go-binance/v2"
)

// Mock implementations for testing

// mockBinanceClient implements BinanceClient interface for testing
type mockBinanceClient struct {
	exchangeInfoService    *mockExchangeInfoService
	listBookTickersService *mockListBookTickersService
	listPricesService      *mockListPricesService
	createOrderService     *mockCreateOrderService
	listOpenOrdersService  *mockListOpenOrdersService
	getAccountService      *mockGetAccountService
	listTradesService      *mockListTradesService
}

func newMockBinanceClient() *mockBinanceClient {
	return &mockBinanceClient{
		exchangeInfoService:    &mockExchangeInfoService{},
		listBookTickersService: &mockListBookTickersService{},
		listPricesService:      &mockListPricesService{},
		createOrderService:     &mockCreateOrderService{},
		listOpenOrdersService:  &mockListOpenOrdersService{},
		getAccountService:      &mockGetAccountService{},
		listTradesService:      &mockListTradesService{},
	}
}

func (m *mockBinanceClient) NewExchangeInfoService() ExchangeInfoService {
	return m.exchangeInfoService
}

func (m *mockBinanceClient) NewListBookTickersService() ListBookTickersService {
	return m.listBookTickersService
}

func (m *mockBinanceClient) NewListPricesService() ListPricesService {
	return m.listPricesService
}

func (m *mockBinanceClient) NewCreateOrderService() CreateOrderService {
	return m.createOrderService
}

func (m *mockBinanceClient) NewListOpenOrdersService() ListOpenOrdersService {
	return m.listOpenOrdersService
}

func (m *mockBinanceClient) NewGetAccountService() GetAccountService {
	return m.getAccountService
}

func (m *mockBinanceClient) NewListTradesService() ListTradesService {
	return m.listTradesService
}

// nextErr pops the next error from a per-call sequence, falling back to the
// sticky err once the sequence is exhausted.
func nextErr(calls int, errs []error, err error) error {
	if calls <= len(errs) {
		return errs[calls-1]
	}

	return err
}

// mockExchangeInfoService implements ExchangeInfoService
type mockExchangeInfoService struct {
	info  *binance.ExchangeInfo
	err   error
	errs  []error
	calls int
}

func (m *mockExchangeInfoService) Do(_ context.Context) (*binance.ExchangeInfo, error) {
	m.calls++
	if err := nextErr(m.calls, m.errs, m.err); err != nil {
		return nil, err
	}

	return m.info, nil
}

// mockListBookTickersService implements ListBookTickersService
type mockListBookTickersService struct {
	tickers []*binance.BookTicker
	err     error
	errs    []error
	calls   int
	symbol  string
}

func (m *mockListBookTickersService) Symbol(symbol string) ListBookTickersService {
	m.symbol = symbol
	return m
}

func (m *mockListBookTickersService) Do(_ context.Context) ([]*binance.BookTicker, error) {
	m.calls++
	if err := nextErr(m.calls, m.errs, m.err); err != nil {
		return nil, err
	}

	return m.tickers, nil
}

// mockListPricesService implements ListPricesService
type mockListPricesService struct {
	prices []*binance.SymbolPrice
	err    error
	errs   []error
	calls  int
	symbol string
}

func (m *mockListPricesService) Symbol(symbol string) ListPricesService {
	m.symbol = symbol
	return m
}

func (m *mockListPricesService) Do(_ context.Context) ([]*binance.SymbolPrice, error) {
	m.calls++
	if err := nextErr(m.calls, m.errs, m.err); err != nil {
		return nil, err
	}

	return m.prices, nil
}

// mockCreateOrderService implements CreateOrderService
type mockCreateOrderService struct {
	response *binance.CreateOrderResponse
	err      error
	errs     []error
	calls    int

	symbol         string
	side           binance.SideType
	orderTyp       binance.OrderType
	tif            binance.TimeInForceType
	quantity       string
	price          string
	clientOrderIDs []string
}

func (m *mockCreateOrderService) Symbol(symbol string) CreateOrderService {
	m.symbol = symbol
	return m
}

func (m *mockCreateOrderService) Side(side binance.SideType) CreateOrderService {
	m.side = side
	return m
}

func (m *mockCreateOrderService) Type(orderType binance.OrderType) CreateOrderService {
	m.orderTyp = orderType
	return m
}

func (m *mockCreateOrderService) TimeInForce(tif binance.TimeInForceType) CreateOrderService {
	m.tif = tif
	return m
}

func (m *mockCreateOrderService) Quantity(quantity string) CreateOrderService {
	m.quantity = quantity
	return m
}

func (m *mockCreateOrderService) Price(price string) CreateOrderService {
	m.price = price
	return m
}

func (m *mockCreateOrderService) NewClientOrderID(id string) CreateOrderService {
	m.clientOrderIDs = append(m.clientOrderIDs, id)
	return m
}

func (m *mockCreateOrderService) Do(_ context.Context) (*binance.CreateOrderResponse, error) {
	m.calls++
	if err := nextErr(m.calls, m.errs, m.err); err != nil {
		return nil, err
	}

	return m.response, nil
}

// mockListOpenOrdersService implements ListOpenOrdersService
type mockListOpenOrdersService struct {
	orders []*binance.Order
	// ordersFn, when set, builds the response at call time. Lets a test
	// echo values generated during the call under test.
	ordersFn func() []*binance.Order
	err      error
	calls    int
	symbol   string
}

func (m *mockListOpenOrdersService) Symbol(symbol string) ListOpenOrdersService {
	m.symbol = symbol
	return m
}

func (m *mockListOpenOrdersService) Do(_ context.Context) ([]*binance.Order, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}

	if m.ordersFn != nil {
		return m.ordersFn(), nil
	}

	return m.orders, nil
}

// mockGetAccountService implements GetAccountService
type mockGetAccountService struct {
	account *binance.Account
	err     error
	errs    []error
	calls   int
}

func (m *mockGetAccountService) Do(_ context.Context) (*binance.Account, error) {
	m.calls++
	if err := nextErr(m.calls, m.errs, m.err); err != nil {
		return nil, err
	}

	return m.account, nil
}

// mockListTradesService implements ListTradesService
type mockListTradesService struct {
	trades []*binance.TradeV3
	err    error
	errs   []error
	calls  int
	symbol string
}

func (m *mockListTradesService) Symbol(symbol string) ListTradesService {
	m.symbol = symbol
	return m
}

func (m *mockListTradesService) Do(_ context.Context) ([]*binance.TradeV3, error) {
	m.calls++
	if err := nextErr(m.calls, m.errs, m.err); err != nil {
		return nil, err
	}

	return m.trades, nil
}

// fakeSleeper records requested pauses without sleeping.
type fakeSleeper struct {
	slept []time.Duration
}

func (s *fakeSleeper) Sleep(d time.Duration) {
	s.slept = append(s.slept, d)
}

// timeoutError satisfies net.Error with Timeout() true, mimicking the HTTP
// client's deadline failure.
type timeoutError struct{}

func (timeoutError) Error() string   { return "request timed out" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// connRefusedError satisfies net.Error with Timeout() false.
type connRefusedError struct{}

func (connRefusedError) Error() string   { return "connection refused" }
func (connRefusedError) Timeout() bool   { return false }
func (connRefusedError) Temporary() bool { return true }
