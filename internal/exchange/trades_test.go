package exchange

import (
	"context"
	"testing"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/stretchr/testify/suite"

	"github.com/quantary/cryptobot/internal/logger"
	"github.com/quantary/cryptobot/internal/retry"
	"github.com/quantary/cryptobot/internal/types"
	"github.com/quantary/cryptobot/pkg/errors"
)

type TradeHistoryTestSuite struct {
	suite.Suite
	client  *mockBinanceClient
	sleeper *fakeSleeper
	hist    *TradeHistory
}

func TestTradeHistorySuite(t *testing.T) {
	suite.Run(t, new(TradeHistoryTestSuite))
}

func (s *TradeHistoryTestSuite) SetupTest() {
	log := logger.NewNopLogger()
	s.client = newMockBinanceClient()
	s.sleeper = &fakeSleeper{}

	conn := newConnection(s.client, map[string]types.Market{
		"ETHUSDT": {Symbol: "ETHUSDT", BaseAsset: "ETH", QuoteAsset: "USDT", Status: "TRADING"},
	}, log.Logger)
	s.hist = newTradeHistoryWithPolicy(conn, log.Logger, retry.DefaultPolicy(), s.sleeper)
}

func (s *TradeHistoryTestSuite) TestFillsPreservesOrderAndParsesDecimals() {
	s.client.listTradesService.trades = []*binance.TradeV3{
		{Price: "2000", Quantity: "1.5", QuoteQuantity: "3000", IsBuyer: true, Time: 1700000000000},
		{Price: "2100", Quantity: "1.5", QuoteQuantity: "3150", IsBuyer: false, Time: 1700000100000},
	}

	fills, err := s.hist.Fills(context.Background(), "ETHUSDT")
	s.Require().NoError(err)
	s.Require().Len(fills, 2)

	s.Equal("ETHUSDT", s.client.listTradesService.symbol)

	s.Equal(types.SideBuy, fills[0].Side)
	s.Equal("1.5", fills[0].Amount.String())
	s.Equal("3000", fills[0].Cost.String())
	s.Equal("2000", fills[0].Price.String())
	s.Equal(time.UnixMilli(1700000000000).UTC(), fills[0].Time)

	s.Equal(types.SideSell, fills[1].Side)
	s.Equal("3150", fills[1].Cost.String())
	s.True(fills[1].Time.After(fills[0].Time))
}

func (s *TradeHistoryTestSuite) TestFillsEmptyHistory() {
	s.client.listTradesService.trades = nil

	fills, err := s.hist.Fills(context.Background(), "ETHUSDT")
	s.Require().NoError(err)
	s.Empty(fills)
}

func (s *TradeHistoryTestSuite) TestFillsRejectionIsTerminal() {
	s.client.listTradesService.err = &common.APIError{Code: -1121, Message: "Invalid symbol."}

	_, err := s.hist.Fills(context.Background(), "ETHUSDT")
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeExchangeRejected))
	s.Equal(1, s.client.listTradesService.calls)
	s.Empty(s.sleeper.slept)
}

func (s *TradeHistoryTestSuite) TestFillsRetriesTransientFailure() {
	s.client.listTradesService.errs = []error{connRefusedError{}, nil}
	s.client.listTradesService.trades = []*binance.TradeV3{
		{Price: "2000", Quantity: "1", QuoteQuantity: "2000", IsBuyer: true, Time: 1700000000000},
	}

	fills, err := s.hist.Fills(context.Background(), "ETHUSDT")
	s.Require().NoError(err)
	s.Len(fills, 1)
	s.Equal(2, s.client.listTradesService.calls)
	s.Len(s.sleeper.slept, 1)
}

func (s *TradeHistoryTestSuite) TestFillsMalformedQuantity() {
	s.client.listTradesService.trades = []*binance.TradeV3{
		{Price: "2000", Quantity: "oops", QuoteQuantity: "2000", IsBuyer: true},
	}

	_, err := s.hist.Fills(context.Background(), "ETHUSDT")
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeUnknown))
}

func (s *TradeHistoryTestSuite) TestValidation() {
	_, err := s.hist.Fills(context.Background(), "")
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeMissingParameter))

	detached := newTradeHistoryWithPolicy(nil, logger.NewNopLogger().Logger, retry.DefaultPolicy(), s.sleeper)
	_, err = detached.Fills(context.Background(), "ETHUSDT")
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeNotConnected))
}
