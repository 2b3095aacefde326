package exchange

import (
	"context"
	stderrors "errors"
	"net"

	"github.com/adshao/go-binance/v2/common"

	"github.com/quantary/cryptobot/pkg/errors"
)

// translate maps a raw go-binance failure into exactly one failure kind. This
// is the only place exchange-library error taxonomy is inspected; everything
// above it sees the closed {Transient, Rejected, Unexpected} classification.
func translate(op string, err error) error {
	var apiErr *common.APIError
	if stderrors.As(err, &apiErr) {
		return errors.Wrapf(errors.ErrCodeExchangeRejected, err, "%s rejected by exchange (code %d): %s", op, apiErr.Code, apiErr.Message)
	}

	if isTimeout(err) {
		return errors.Wrapf(errors.ErrCodeRequestTimeout, err, "%s timed out", op)
	}

	if isNetwork(err) {
		return errors.Wrapf(errors.ErrCodeNetwork, err, "%s failed with a network error", op)
	}

	return errors.Wrapf(errors.ErrCodeUnknown, err, "%s failed unexpectedly", op)
}

// isTimeout reports whether the failure is the request-timeout subtype of a
// network error. The order executor treats this case specially: the order may
// have landed despite the lost response.
func isTimeout(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}

// isNetwork reports whether the failure is a transient connectivity error.
// url.Error from the HTTP client implements net.Error, so this covers the
// transport failures the client surfaces.
func isNetwork(err error) bool {
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return true
	}

	var opErr *net.OpError

	return stderrors.As(err, &opErr)
}
