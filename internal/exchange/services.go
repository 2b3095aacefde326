// Package exchange holds the one concrete exchange integration. A Connection
// wraps an authenticated go-binance session plus the market metadata loaded at
// connect time; MarketData, OrderExecutor, BalanceQuery and TradeHistory are
// independent peers built on top of it. The Connection is immutable after
// Connect succeeds — no component may reconnect or mutate it.
package exchange

import (
	"context"
	"net/http"
	"time"

	"github.com/adshao/go-binance/v2"
)

// Service interfaces for mocking the Binance API

// ExchangeInfoService interface for loading market metadata.
type ExchangeInfoService interface {
	Do(ctx context.Context) (*binance.ExchangeInfo, error)
}

// ListBookTickersService interface for fetching best bid/ask.
type ListBookTickersService interface {
	Symbol(symbol string) ListBookTickersService
	Do(ctx context.Context) ([]*binance.BookTicker, error)
}

// ListPricesService interface for fetching last traded prices.
type ListPricesService interface {
	Symbol(symbol string) ListPricesService
	Do(ctx context.Context) ([]*binance.SymbolPrice, error)
}

// CreateOrderService interface for creating orders.
type CreateOrderService interface {
	Symbol(symbol string) CreateOrderService
	Side(side binance.SideType) CreateOrderService
	Type(orderType binance.OrderType) CreateOrderService
	TimeInForce(tif binance.TimeInForceType) CreateOrderService
	Quantity(quantity string) CreateOrderService
	Price(price string) CreateOrderService
	NewClientOrderID(id string) CreateOrderService
	Do(ctx context.Context) (*binance.CreateOrderResponse, error)
}

// ListOpenOrdersService interface for listing open orders.
type ListOpenOrdersService interface {
	Symbol(symbol string) ListOpenOrdersService
	Do(ctx context.Context) ([]*binance.Order, error)
}

// GetAccountService interface for getting account info.
type GetAccountService interface {
	Do(ctx context.Context) (*binance.Account, error)
}

// ListTradesService interface for listing the account's fills.
type ListTradesService interface {
	Symbol(symbol string) ListTradesService
	Do(ctx context.Context) ([]*binance.TradeV3, error)
}

// BinanceClient interface abstracts the Binance client for testing.
type BinanceClient interface {
	NewExchangeInfoService() ExchangeInfoService
	NewListBookTickersService() ListBookTickersService
	NewListPricesService() ListPricesService
	NewCreateOrderService() CreateOrderService
	NewListOpenOrdersService() ListOpenOrdersService
	NewGetAccountService() GetAccountService
	NewListTradesService() ListTradesService
}

// realBinanceClient wraps the actual binance.Client.
type realBinanceClient struct {
	client *binance.Client
}

// newRealBinanceClient builds the production client with the bounded request
// timeout. Sandbox mode targets Binance's testnet environment.
func newRealBinanceClient(apiKey, apiSecret string, sandbox bool, timeout time.Duration) BinanceClient {
	binance.UseTestnet = sandbox
	client := binance.NewClient(apiKey, apiSecret)
	client.HTTPClient = &http.Client{Timeout: timeout}

	return &realBinanceClient{client: client}
}

func (r *realBinanceClient) NewExchangeInfoService() ExchangeInfoService {
	return &realExchangeInfoService{service: r.client.NewExchangeInfoService()}
}

func (r *realBinanceClient) NewListBookTickersService() ListBookTickersService {
	return &realListBookTickersService{service: r.client.NewListBookTickersService()}
}

func (r *realBinanceClient) NewListPricesService() ListPricesService {
	return &realListPricesService{service: r.client.NewListPricesService()}
}

func (r *realBinanceClient) NewCreateOrderService() CreateOrderService {
	return &realCreateOrderService{service: r.client.NewCreateOrderService()}
}

func (r *realBinanceClient) NewListOpenOrdersService() ListOpenOrdersService {
	return &realListOpenOrdersService{service: r.client.NewListOpenOrdersService()}
}

func (r *realBinanceClient) NewGetAccountService() GetAccountService {
	return &realGetAccountService{service: r.client.NewGetAccountService()}
}

func (r *realBinanceClient) NewListTradesService() ListTradesService {
	return &realListTradesService{service: r.client.NewListTradesService()}
}

// Real service wrappers

type realExchangeInfoService struct {
	service *binance.ExchangeInfoService
}

func (s *realExchangeInfoService) Do(ctx context.Context) (*binance.ExchangeInfo, error) {
	return s.service.Do(ctx)
}

type realListBookTickersService struct {
	service *binance.ListBookTickersService
}

func (s *realListBookTickersService) Symbol(symbol string) ListBookTickersService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realListBookTickersService) Do(ctx context.Context) ([]*binance.BookTicker, error) {
	return s.service.Do(ctx)
}

type realListPricesService struct {
	service *binance.ListPricesService
}

func (s *realListPricesService) Symbol(symbol string) ListPricesService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realListPricesService) Do(ctx context.Context) ([]*binance.SymbolPrice, error) {
	return s.service.Do(ctx)
}

type realCreateOrderService struct {
	service *binance.CreateOrderService
}

func (s *realCreateOrderService) Symbol(symbol string) CreateOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCreateOrderService) Side(side binance.SideType) CreateOrderService {
	s.service = s.service.Side(side)

	return s
}

func (s *realCreateOrderService) Type(orderType binance.OrderType) CreateOrderService {
	s.service = s.service.Type(orderType)

	return s
}

func (s *realCreateOrderService) TimeInForce(tif binance.TimeInForceType) CreateOrderService {
	s.service = s.service.TimeInForce(tif)

	return s
}

func (s *realCreateOrderService) Quantity(quantity string) CreateOrderService {
	s.service = s.service.Quantity(quantity)

	return s
}

func (s *realCreateOrderService) Price(price string) CreateOrderService {
	s.service = s.service.Price(price)

	return s
}

func (s *realCreateOrderService) NewClientOrderID(id string) CreateOrderService {
	s.service = s.service.NewClientOrderID(id)

	return s
}

func (s *realCreateOrderService) Do(ctx context.Context) (*binance.CreateOrderResponse, error) {
	return s.service.Do(ctx)
}

type realListOpenOrdersService struct {
	service *binance.ListOpenOrdersService
}

func (s *realListOpenOrdersService) Symbol(symbol string) ListOpenOrdersService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realListOpenOrdersService) Do(ctx context.Context) ([]*binance.Order, error) {
	return s.service.Do(ctx)
}

type realGetAccountService struct {
	service *binance.GetAccountService
}

func (s *realGetAccountService) Do(ctx context.Context) (*binance.Account, error) {
	return s.service.Do(ctx)
}

type realListTradesService struct {
	service *binance.ListTradesService
}

func (s *realListTradesService) Symbol(symbol string) ListTradesService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realListTradesService) Do(ctx context.Context) ([]*binance.TradeV3, error) {
	return s.service.Do(ctx)
}
