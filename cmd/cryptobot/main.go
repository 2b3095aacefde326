package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/quantary/cryptobot/internal/allocation"
	"github.com/quantary/cryptobot/internal/config"
	"github.com/quantary/cryptobot/internal/exchange"
	"github.com/quantary/cryptobot/internal/execution"
	"github.com/quantary/cryptobot/internal/logger"
	"github.com/quantary/cryptobot/internal/secrets"
	"github.com/quantary/cryptobot/internal/store"
	"github.com/quantary/cryptobot/internal/types"
)

// app bundles the wired components behind every command.
type app struct {
	log    *logger.Logger
	cfg    *config.Config
	book   *config.StrategyBook
	engine *execution.Engine
	calc   *allocation.Calculator
	store  *store.SignalStore
}

// bootstrap loads configuration, resolves credentials, connects to the
// exchange and wires the component graph.
func bootstrap(ctx context.Context) (*app, error) {
	lg, err := logger.NewLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	book, err := config.LoadStrategyBook(cfg.StrategyConfigPath)
	if err != nil {
		return nil, err
	}

	secretManager, err := secrets.NewManager(ctx, lg.Logger)
	if err != nil {
		return nil, err
	}

	conn, err := exchange.Connect(ctx, secretManager, exchange.ConnectConfig{
		SecretName: cfg.SecretName,
		Sandbox:    cfg.Sandbox,
	}, lg.Logger)
	if err != nil {
		return nil, err
	}

	signalStore, err := store.NewSignalStore(ctx, cfg.TableName, lg.Logger)
	if err != nil {
		return nil, err
	}

	market := exchange.NewMarketData(conn, lg.Logger)
	orders := exchange.NewOrderExecutor(conn, lg.Logger)
	balances := exchange.NewBalanceQuery(conn, lg.Logger)
	history := exchange.NewTradeHistory(conn, lg.Logger)

	calc := allocation.NewCalculator(balances, history, book, cfg.BaseCurrency, lg.Logger)
	engine := execution.NewEngine(market, orders, balances, calc, book, signalStore, lg.Logger)

	return &app{
		log:    lg,
		cfg:    cfg,
		book:   book,
		engine: engine,
		calc:   calc,
		store:  signalStore,
	}, nil
}

// signalAction handles one incoming trade signal: stop signals execute
// immediately, the rest are stored for the next scheduled run.
func signalAction(ctx context.Context, cmd *cli.Command) error {
	raw, err := os.ReadFile(cmd.String("file"))
	if err != nil {
		return fmt.Errorf("failed to read signal file: %w", err)
	}

	var sig types.Signal
	if err := json.Unmarshal(raw, &sig); err != nil {
		return fmt.Errorf("failed to parse signal: %w", err)
	}

	if sig.CreateTS.IsZero() {
		sig.CreateTS = time.Now().UTC()
	}

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.log.Sync()

	order, err := a.engine.HandleSignal(ctx, sig)
	if err != nil {
		return err
	}

	if order != nil {
		return printJSON(order)
	}

	fmt.Printf("signal for %s deferred to next run\n", sig.Ticker)

	return nil
}

// executeAction runs the scheduled pass: collect the deferred signals of the
// current hour for every active strategy and place the boost orders.
func executeAction(ctx context.Context, cmd *cli.Command) error {
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.log.Sync()

	cutoff := time.Now().UTC().Truncate(time.Hour)

	tickers := make([]string, 0, len(a.book.Active()))
	for _, strat := range a.book.Active() {
		tickers = append(tickers, strat.Symbol)
	}

	signals, err := a.store.AllRecentSignals(ctx, tickers, cutoff)
	if err != nil {
		return err
	}

	if len(signals) == 0 {
		fmt.Printf("no trade signals since %s\n", cutoff.Format(time.RFC3339))

		return nil
	}

	// When several strategies fired in the same hour they compete for the
	// same funds; only the highest-precedence ticker trades.
	signals, err = a.engine.ArbitrateSignals(signals)
	if err != nil {
		return err
	}

	orders, err := a.engine.BuySideBoost(ctx, signals)
	if err != nil {
		return err
	}

	return printJSON(orders)
}

// allocationAction prints the per-currency USD allocation snapshot.
func allocationAction(ctx context.Context, cmd *cli.Command) error {
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.log.Sync()

	alloc, err := a.calc.AccountAllocation(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("total") {
		fmt.Println(alloc.Total().String())

		return nil
	}

	return printJSON(alloc)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(out))

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "cryptobot",
		Usage: "Signal-driven crypto trading over a single exchange connection",
		Commands: []*cli.Command{
			{
				Name:  "signal",
				Usage: "Process one incoming trade signal (stop signals execute immediately)",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Path to the JSON signal payload",
						Required: true,
					},
				},
				Action: signalAction,
			},
			{
				Name:   "execute",
				Usage:  "Execute the deferred trade signals of the current hour",
				Action: executeAction,
			},
			{
				Name:  "allocation",
				Usage: "Print the per-currency USD allocation snapshot",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "total",
						Usage: "Print only the summed total USD exposure",
					},
				},
				Action: allocationAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
