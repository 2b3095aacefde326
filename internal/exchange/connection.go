package exchange

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/quantary/cryptobot/internal/retry"
	"github.com/quantary/cryptobot/internal/types"
	"github.com/quantary/cryptobot/pkg/errors"
)

// DefaultRequestTimeout bounds every HTTP round trip to the exchange.
const DefaultRequestTimeout = 6 * time.Second

// CredentialProvider resolves a ready-to-use API key pair from a secret name.
// Its failure modes are opaque to this package; they participate in Connect's
// retry envelope through their error classification.
type CredentialProvider interface {
	Credentials(ctx context.Context, secretName string) (types.Credentials, error)
}

// ClientFactory builds a BinanceClient from resolved credentials. Tests
// substitute a factory returning a mock client.
type ClientFactory func(creds types.Credentials, sandbox bool, timeout time.Duration) BinanceClient

// ConnectConfig carries everything Connect needs besides the credential
// provider. Zero values for Policy, Timeout, Sleeper and Factory select the
// production defaults.
type ConnectConfig struct {
	SecretName string
	Sandbox    bool
	Policy     retry.Policy
	Timeout    time.Duration
	Sleeper    retry.Sleeper
	Factory    ClientFactory
}

// Connection is the authenticated session to one exchange plus the market
// metadata loaded at connect time. It is immutable after Connect returns: the
// struct exposes no mutation API, so concurrent readers need no locking.
type Connection struct {
	api     BinanceClient
	markets map[string]types.Market
	log     *zap.Logger
}

// Connect resolves credentials, builds an authenticated client bound to one
// exchange with a bounded request timeout, optionally targets the sandbox
// environment, and loads market metadata. The whole sequence is one retry
// unit: a transient failure anywhere (including credential retrieval) re-runs
// it from the top. Explicit exchange rejections (bad credentials, refused
// requests) surface as terminal rejected errors; anything unclassified
// propagates as a fatal fault.
func Connect(ctx context.Context, provider CredentialProvider, cfg ConnectConfig, log *zap.Logger) (*Connection, error) {
	if provider == nil {
		return nil, errors.New(errors.ErrCodeMissingParameter, "credential provider is required")
	}

	if cfg.SecretName == "" {
		return nil, errors.New(errors.ErrCodeMissingParameter, "secret name is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	factory := cfg.Factory
	if factory == nil {
		factory = func(creds types.Credentials, sandbox bool, timeout time.Duration) BinanceClient {
			return newRealBinanceClient(creds.APIKey, creds.APISecret, sandbox, timeout)
		}
	}

	return retry.Do(ctx, cfg.Policy, cfg.Sleeper, log, "connect", func(ctx context.Context) (*Connection, error) {
		creds, err := provider.Credentials(ctx, cfg.SecretName)
		if err != nil {
			return nil, err
		}

		api := factory(creds, cfg.Sandbox, timeout)

		info, err := api.NewExchangeInfoService().Do(ctx)
		if err != nil {
			return nil, translate("connect", err)
		}

		markets := make(map[string]types.Market, len(info.Symbols))
		for _, s := range info.Symbols {
			markets[s.Symbol] = types.Market{
				Symbol:     s.Symbol,
				BaseAsset:  s.BaseAsset,
				QuoteAsset: s.QuoteAsset,
				Status:     s.Status,
			}
		}

		log.Info("connected to exchange",
			zap.Int("markets", len(markets)),
			zap.Bool("sandbox", cfg.Sandbox),
		)

		return &Connection{
			api:     api,
			markets: markets,
			log:     log,
		}, nil
	})
}

// Market returns the metadata for one symbol.
func (c *Connection) Market(symbol string) (types.Market, bool) {
	m, ok := c.markets[symbol]

	return m, ok
}

// HasMarket reports whether the symbol is tradable on this exchange.
func (c *Connection) HasMarket(symbol string) bool {
	_, ok := c.markets[symbol]

	return ok
}

// MarketCount returns the number of markets loaded at connect time.
func (c *Connection) MarketCount() int {
	return len(c.markets)
}

// newConnection assembles a Connection directly from its parts. Tests use it
// to skip the network handshake.
func newConnection(api BinanceClient, markets map[string]types.Market, log *zap.Logger) *Connection {
	return &Connection{
		api:     api,
		markets: markets,
		log:     log,
	}
}
