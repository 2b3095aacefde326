// Package store buffers deferred trade signals in DynamoDB between the
// receive endpoint and the scheduled execution run. The table is keyed by
// ticker with create_ts as the sort key.
package store

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quantary/cryptobot/internal/types"
	"github.com/quantary/cryptobot/pkg/errors"
)

// DynamoAPI is the slice of the DynamoDB client this package uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// SignalStore persists trade signals and reads back the recent ones per
// ticker.
type SignalStore struct {
	api   DynamoAPI
	table string
	log   *zap.Logger
}

// NewSignalStore creates a SignalStore over the default AWS configuration.
func NewSignalStore(ctx context.Context, table string, log *zap.Logger) (*SignalStore, error) {
	if table == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "signal table name is required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSignalStoreFailed, "cannot load AWS configuration", err)
	}

	return NewSignalStoreWithClient(dynamodb.NewFromConfig(awsCfg), table, log), nil
}

// NewSignalStoreWithClient creates a SignalStore over an existing client.
func NewSignalStoreWithClient(api DynamoAPI, table string, log *zap.Logger) *SignalStore {
	return &SignalStore{
		api:   api,
		table: table,
		log:   log,
	}
}

// signalItem is the DynamoDB shape of one signal. Decimal and timestamp
// fields are stored as strings so nothing passes through float64.
type signalItem struct {
	Ticker       string `dynamodbav:"ticker"`
	OrderComment string `dynamodbav:"order_comment"`
	OrderAction  string `dynamodbav:"order_action"`
	Percentage   string `dynamodbav:"percentage"`
	CreateTS     string `dynamodbav:"create_ts"`
}

// Put writes one signal. The create timestamp doubles as the sort key, so a
// resent signal with the same ticker and timestamp overwrites rather than
// duplicates.
func (s *SignalStore) Put(ctx context.Context, sig types.Signal) error {
	if sig.Ticker == "" {
		return errors.New(errors.ErrCodeMissingParameter, "signal ticker must be a non-empty string")
	}

	item, err := attributevalue.MarshalMap(signalItem{
		Ticker:       sig.Ticker,
		OrderComment: sig.OrderComment,
		OrderAction:  sig.OrderAction,
		Percentage:   sig.Percentage.String(),
		CreateTS:     sig.CreateTS.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeSignalStoreFailed, "cannot marshal signal", err)
	}

	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return errors.Wrapf(errors.ErrCodeSignalStoreFailed, err, "cannot store signal for %s", sig.Ticker)
	}

	s.log.Info("stored trade signal",
		zap.String("ticker", sig.Ticker),
		zap.Time("create_ts", sig.CreateTS),
	)

	return nil
}

// RecentSignals returns the ticker's signals created at or after the cutoff,
// newest first.
func (s *SignalStore) RecentSignals(ctx context.Context, ticker string, cutoff time.Time) ([]types.Signal, error) {
	if ticker == "" {
		return nil, errors.New(errors.ErrCodeMissingParameter, "ticker must be a non-empty string")
	}

	out, err := s.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("#ticker = :ticker AND #create_ts >= :cutoff"),
		ExpressionAttributeNames: map[string]string{
			"#ticker":    "ticker",
			"#create_ts": "create_ts",
		},
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":ticker": &ddbtypes.AttributeValueMemberS{Value: ticker},
			":cutoff": &ddbtypes.AttributeValueMemberS{Value: cutoff.UTC().Format(time.RFC3339)},
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeSignalStoreFailed, err, "cannot query signals for %s", ticker)
	}

	var items []signalItem
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, errors.Wrap(errors.ErrCodeSignalStoreFailed, "cannot unmarshal signals", err)
	}

	signals := make([]types.Signal, 0, len(items))

	for _, item := range items {
		sig, err := item.toSignal()
		if err != nil {
			return nil, err
		}

		signals = append(signals, sig)
	}

	return signals, nil
}

// AllRecentSignals collects the recent signals of every ticker, preserving
// ticker order.
func (s *SignalStore) AllRecentSignals(ctx context.Context, tickers []string, cutoff time.Time) ([]types.Signal, error) {
	var all []types.Signal

	for _, ticker := range tickers {
		signals, err := s.RecentSignals(ctx, ticker, cutoff)
		if err != nil {
			return nil, err
		}

		all = append(all, signals...)
	}

	return all, nil
}

func (it signalItem) toSignal() (types.Signal, error) {
	pct, err := decimal.NewFromString(it.Percentage)
	if err != nil {
		return types.Signal{}, errors.Wrapf(errors.ErrCodeSignalStoreFailed, err, "stored signal for %s has a malformed percentage %q", it.Ticker, it.Percentage)
	}

	ts, err := time.Parse(time.RFC3339, it.CreateTS)
	if err != nil {
		return types.Signal{}, errors.Wrapf(errors.ErrCodeSignalStoreFailed, err, "stored signal for %s has a malformed timestamp %q", it.Ticker, it.CreateTS)
	}

	return types.Signal{
		Ticker:       it.Ticker,
		OrderComment: it.OrderComment,
		OrderAction:  it.OrderAction,
		Percentage:   pct,
		CreateTS:     ts,
	}, nil
}
