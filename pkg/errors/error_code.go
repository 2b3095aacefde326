package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeMissingParameter     ErrorCode = 102
	ErrCodeNotConnected         ErrorCode = 103

	// Network errors (200-299)
	ErrCodeNetwork        ErrorCode = 200
	ErrCodeRequestTimeout ErrorCode = 201
	ErrCodeRetryExhausted ErrorCode = 202

	// Exchange errors (300-399)
	ErrCodeExchangeRejected ErrorCode = 300
	ErrCodeOrderRejected    ErrorCode = 301
	ErrCodeAuthRejected     ErrorCode = 302

	// Credential errors (400-499)
	ErrCodeSecretUnavailable ErrorCode = 400
	ErrCodeSecretMalformed   ErrorCode = 401

	// Storage errors (500-599)
	ErrCodeSignalStoreFailed ErrorCode = 500

	// Execution errors (600-699)
	ErrCodeInvalidOrderAction ErrorCode = 600
	ErrCodeStrategyNotFound   ErrorCode = 601
	ErrCodeNoSignals          ErrorCode = 602
)

// Kind is the closed failure classification that drives retry policy.
type Kind int

const (
	// KindUnexpected marks failures outside the known taxonomy. They propagate
	// as fatal faults and are never retried.
	KindUnexpected Kind = iota
	// KindTransient marks failures worth retrying with backoff.
	KindTransient
	// KindRejected marks explicit exchange-side refusals. Terminal, no retry.
	KindRejected
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindRejected:
		return "rejected"
	default:
		return "unexpected"
	}
}

// Kind maps an error code onto the failure taxonomy. Retry exhaustion keeps
// the transient kind so an enclosing retry envelope (the allocation
// computation retries as a whole) may still treat it as retryable.
func (c ErrorCode) Kind() Kind {
	switch c {
	case ErrCodeNetwork, ErrCodeRequestTimeout, ErrCodeRetryExhausted, ErrCodeSecretUnavailable:
		return KindTransient
	case ErrCodeExchangeRejected, ErrCodeOrderRejected, ErrCodeAuthRejected:
		return KindRejected
	default:
		return KindUnexpected
	}
}
