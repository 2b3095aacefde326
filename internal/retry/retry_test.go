package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/quantary/cryptobot/pkg/errors"
)

// fakeSleeper records requested sleep durations instead of blocking.
type fakeSleeper struct {
	slept []time.Duration
}

func (f *fakeSleeper) Sleep(d time.Duration) {
	f.slept = append(f.slept, d)
}

type RetryTestSuite struct {
	suite.Suite

	sleeper *fakeSleeper
	log     *zap.Logger
}

func TestRetrySuite(t *testing.T) {
	suite.Run(t, new(RetryTestSuite))
}

func (suite *RetryTestSuite) SetupTest() {
	suite.sleeper = &fakeSleeper{}
	suite.log = zap.NewNop()
}

func (suite *RetryTestSuite) TestDecide() {
	suite.Run("transient retries while attempts remain", func() {
		suite.Equal(ActionRetry, Decide(errors.KindTransient, 1, 3))
		suite.Equal(ActionRetry, Decide(errors.KindTransient, 2, 3))
	})

	suite.Run("transient fails on last attempt", func() {
		suite.Equal(ActionFail, Decide(errors.KindTransient, 3, 3))
	})

	suite.Run("rejection always fails immediately", func() {
		suite.Equal(ActionFail, Decide(errors.KindRejected, 1, 3))
	})

	suite.Run("unexpected always aborts", func() {
		suite.Equal(ActionAbort, Decide(errors.KindUnexpected, 1, 3))
	})
}

func (suite *RetryTestSuite) TestDoSucceedsFirstAttempt() {
	calls := 0
	got, err := Do(context.Background(), DefaultPolicy(), suite.sleeper, suite.log, "op", func(_ context.Context) (int, error) {
		calls++
		return 42, nil
	})

	suite.NoError(err)
	suite.Equal(42, got)
	suite.Equal(1, calls)
	suite.Empty(suite.sleeper.slept)
}

func (suite *RetryTestSuite) TestDoTransientExhaustsAfterMaxAttempts() {
	calls := 0
	_, err := Do(context.Background(), DefaultPolicy(), suite.sleeper, suite.log, "op", func(_ context.Context) (int, error) {
		calls++
		return 0, errors.New(errors.ErrCodeNetwork, "connection dropped")
	})

	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeRetryExhausted))
	suite.Equal(3, calls)
	// Only the two non-final transient failures sleep.
	suite.Len(suite.sleeper.slept, 2)
	suite.Equal(DefaultBackoff, suite.sleeper.slept[0])
}

func (suite *RetryTestSuite) TestDoTransientThenSuccess() {
	calls := 0
	got, err := Do(context.Background(), DefaultPolicy(), suite.sleeper, suite.log, "op", func(_ context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New(errors.ErrCodeRequestTimeout, "timed out")
		}
		return "ok", nil
	})

	suite.NoError(err)
	suite.Equal("ok", got)
	suite.Equal(3, calls)
	suite.Len(suite.sleeper.slept, 2)
}

func (suite *RetryTestSuite) TestDoRejectionFailsWithoutRetryOrSleep() {
	calls := 0
	rejection := errors.New(errors.ErrCodeExchangeRejected, "insufficient funds")
	_, err := Do(context.Background(), DefaultPolicy(), suite.sleeper, suite.log, "op", func(_ context.Context) (int, error) {
		calls++
		return 0, rejection
	})

	suite.Error(err)
	suite.True(errors.IsRejected(err))
	suite.Equal(1, calls)
	suite.Empty(suite.sleeper.slept)
}

func (suite *RetryTestSuite) TestDoUnexpectedAbortsImmediately() {
	calls := 0
	boom := errors.New(errors.ErrCodeUnknown, "boom")
	_, err := Do(context.Background(), DefaultPolicy(), suite.sleeper, suite.log, "op", func(_ context.Context) (int, error) {
		calls++
		return 0, boom
	})

	suite.Error(err)
	suite.Equal(errors.KindUnexpected, errors.KindOf(err))
	suite.Equal(1, calls)
	suite.Empty(suite.sleeper.slept)
}

func (suite *RetryTestSuite) TestDoUnclassifiedErrorIsUnexpected() {
	calls := 0
	_, err := Do(context.Background(), DefaultPolicy(), suite.sleeper, suite.log, "op", func(_ context.Context) (int, error) {
		calls++
		return 0, context.Canceled
	})

	suite.Error(err)
	suite.Equal(1, calls)
}

func (suite *RetryTestSuite) TestDoZeroPolicyUsesDefaults() {
	calls := 0
	_, err := Do(context.Background(), Policy{}, suite.sleeper, suite.log, "op", func(_ context.Context) (int, error) {
		calls++
		return 0, errors.New(errors.ErrCodeNetwork, "down")
	})

	suite.Error(err)
	suite.Equal(DefaultMaxAttempts, calls)
	suite.Equal(DefaultBackoff, suite.sleeper.slept[0])
}
