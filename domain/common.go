package domain

import (
	"errors"
	"fmt"
)

var (
	MessageFailedBodyRequest  = "failed to parse request body"
	MessageFailedGetToken     = "failed to get token"
	MessageFailedTokenInvalid = "failed to token invalid"

	ErrParseUUID     = errors.New("failed to parse UUID")
	ErrTokenNotFound = errors.New("failed to token not found")
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenInvalid  = errors.New("token invalid")
)

// Error kinds. Adapters and services wrap their causes with one of these so
// callers classify with errors.Is.
var (
	ErrValidation  = errors.New("validation failed")
	ErrInference   = errors.New("inference failed")
	ErrStorage     = errors.New("storage failed")
	ErrPersistence = errors.New("persistence failed")
	ErrNotFound    = errors.New("not found")

	// ErrMalformedModelOutput is an inference failure worth retrying.
	ErrMalformedModelOutput = fmt.Errorf("%w: malformed model output", ErrInference)
)

func InferenceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInference, op, err)
}

func StorageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

func PersistenceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
