package config

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/quantary/cryptobot/pkg/errors"
)

const strategyYAML = `
strategies:
  - name: eth-momentum
    symbol: ETHUSDT
    currency: ETH
    percentage: "0.5"
    enabled: true
  - name: btc-swing
    symbol: BTCUSDT
    currency: BTC
    percentage: "0.3"
    enabled: true
  - name: doge-experiment
    symbol: DOGEUSDT
    currency: DOGE
    percentage: "0.1"
    enabled: false
`

type StrategyBookTestSuite struct {
	suite.Suite
	book *StrategyBook
}

func TestStrategyBookSuite(t *testing.T) {
	suite.Run(t, new(StrategyBookTestSuite))
}

func (s *StrategyBookTestSuite) SetupTest() {
	book, err := ParseStrategyBook([]byte(strategyYAML))
	s.Require().NoError(err)
	s.book = book
}

func (s *StrategyBookTestSuite) TestActiveSkipsDisabled() {
	active := s.book.Active()
	s.Require().Len(active, 2)
	s.Equal("eth-momentum", active[0].Name)
	s.Equal("btc-swing", active[1].Name)
}

func (s *StrategyBookTestSuite) TestLookups() {
	symbol, err := s.book.SymbolFromCurrency("ETH")
	s.Require().NoError(err)
	s.Equal("ETHUSDT", symbol)

	currency, err := s.book.CurrencyFromSymbol("BTCUSDT")
	s.Require().NoError(err)
	s.Equal("BTC", currency)

	pct, err := s.book.PercentageFromSymbol("ETHUSDT")
	s.Require().NoError(err)
	s.Equal("0.5", pct.String())
}

func (s *StrategyBookTestSuite) TestUnknownLookupsFail() {
	_, err := s.book.SymbolFromCurrency("DOGE")
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeStrategyNotFound))

	_, err = s.book.CurrencyFromSymbol("DOGEUSDT")
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeStrategyNotFound))
}

func (s *StrategyBookTestSuite) TestTradePrecedence() {
	best, err := s.book.TradePrecedence([]string{"BTCUSDT", "ETHUSDT"})
	s.Require().NoError(err)
	s.Equal("ETHUSDT", best)

	// Unknown symbols are skipped, not fatal.
	best, err = s.book.TradePrecedence([]string{"DOGEUSDT", "BTCUSDT"})
	s.Require().NoError(err)
	s.Equal("BTCUSDT", best)

	_, err = s.book.TradePrecedence([]string{"DOGEUSDT"})
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeStrategyNotFound))
}

func (s *StrategyBookTestSuite) TestMalformedYAML() {
	_, err := ParseStrategyBook([]byte("strategies: [not a mapping"))
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (s *StrategyBookTestSuite) TestMalformedPercentage() {
	bad := `
strategies:
  - name: broken
    symbol: ETHUSDT
    currency: ETH
    percentage: "half"
    enabled: true
`
	_, err := ParseStrategyBook([]byte(bad))
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (s *StrategyBookTestSuite) TestEmptyBookIsInvalid() {
	_, err := ParseStrategyBook([]byte("strategies: []"))
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}
