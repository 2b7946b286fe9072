package chat

import "errors"

// Sentinel errors for conversation execution. Callers classify failures with
// errors.Is and map them to transport responses.
var (
	// ErrValidation indicates malformed caller input: an empty message, an
	// unknown conversation, or a missing user identity.
	ErrValidation = errors.New("invalid request")

	// ErrAuthorization indicates the conversation exists but belongs to a
	// different user.
	ErrAuthorization = errors.New("not conversation owner")

	// ErrModelTransport indicates the model call itself failed. The exchange
	// is not retried; the caller decides whether to resubmit.
	ErrModelTransport = errors.New("model transport failed")

	// ErrPersistence indicates the exchange completed but could not be
	// saved. The response is still returned alongside this error.
	ErrPersistence = errors.New("failed to persist exchange")
)
