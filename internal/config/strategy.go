package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/quantary/cryptobot/internal/types"
	"github.com/quantary/cryptobot/pkg/errors"
)

// strategyEntry is the YAML shape of one strategy. Percentage stays a string
// in the file so it parses through decimal, never float64.
type strategyEntry struct {
	Name       string `yaml:"name" validate:"required"`
	Symbol     string `yaml:"symbol" validate:"required"`
	Currency   string `yaml:"currency" validate:"required"`
	Percentage string `yaml:"percentage" validate:"required"`
	Enabled    bool   `yaml:"enabled"`
}

type strategyFile struct {
	Strategies []strategyEntry `yaml:"strategies" validate:"required,min=1,dive"`
}

// StrategyBook is the parsed strategy book: every configured strategy plus
// lookup helpers keyed by symbol and currency. Immutable after load.
type StrategyBook struct {
	strategies []types.StrategyConfig
	bySymbol   map[string]types.StrategyConfig
	byCurrency map[string]types.StrategyConfig
}

// LoadStrategyBook reads and validates the YAML strategy book at path.
func LoadStrategyBook(path string) (*StrategyBook, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "cannot read strategy book %s", path)
	}

	return ParseStrategyBook(raw)
}

// ParseStrategyBook parses a strategy book from raw YAML.
func ParseStrategyBook(raw []byte) (*StrategyBook, error) {
	var file strategyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "malformed strategy book", err)
	}

	validate := validator.New()
	if err := validate.Struct(&file); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid strategy book", err)
	}

	book := &StrategyBook{
		strategies: make([]types.StrategyConfig, 0, len(file.Strategies)),
		bySymbol:   make(map[string]types.StrategyConfig, len(file.Strategies)),
		byCurrency: make(map[string]types.StrategyConfig, len(file.Strategies)),
	}

	for _, entry := range file.Strategies {
		if !entry.Enabled {
			continue
		}

		pct, err := decimal.NewFromString(entry.Percentage)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "strategy %s has a malformed percentage %q", entry.Name, entry.Percentage)
		}

		strat := types.StrategyConfig{
			Name:       entry.Name,
			Symbol:     entry.Symbol,
			Currency:   entry.Currency,
			Percentage: pct,
		}

		book.strategies = append(book.strategies, strat)
		book.bySymbol[strat.Symbol] = strat
		book.byCurrency[strat.Currency] = strat
	}

	return book, nil
}

// Active returns every enabled strategy in file order.
func (b *StrategyBook) Active() []types.StrategyConfig {
	return b.strategies
}

// SymbolFromCurrency returns the trading symbol of the strategy holding the
// currency.
func (b *StrategyBook) SymbolFromCurrency(currency string) (string, error) {
	strat, ok := b.byCurrency[currency]
	if !ok {
		return "", errors.Newf(errors.ErrCodeStrategyNotFound, "no active strategy holds %s", currency)
	}

	return strat.Symbol, nil
}

// CurrencyFromSymbol returns the held currency of the strategy trading the
// symbol.
func (b *StrategyBook) CurrencyFromSymbol(symbol string) (string, error) {
	strat, ok := b.bySymbol[symbol]
	if !ok {
		return "", errors.Newf(errors.ErrCodeStrategyNotFound, "no active strategy trades %s", symbol)
	}

	return strat.Currency, nil
}

// PercentageFromSymbol returns the fund share of the strategy trading the
// symbol.
func (b *StrategyBook) PercentageFromSymbol(symbol string) (decimal.Decimal, error) {
	strat, ok := b.bySymbol[symbol]
	if !ok {
		return decimal.Zero, errors.Newf(errors.ErrCodeStrategyNotFound, "no active strategy trades %s", symbol)
	}

	return strat.Percentage, nil
}

// TradePrecedence picks the symbol whose strategy claims the largest fund
// share. Symbols without an active strategy are skipped; ties keep the
// earlier symbol.
func (b *StrategyBook) TradePrecedence(symbols []string) (string, error) {
	best := ""
	bestPct := decimal.Zero

	for _, sym := range symbols {
		strat, ok := b.bySymbol[sym]
		if !ok {
			continue
		}

		if best == "" || strat.Percentage.GreaterThan(bestPct) {
			best = sym
			bestPct = strat.Percentage
		}
	}

	if best == "" {
		return "", errors.New(errors.ErrCodeStrategyNotFound, "no active strategy among the requested symbols")
	}

	return best, nil
}
