package application

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

var (
	ErrNotInitialized        = errors.New("persistence manager not initialized")
	ErrUnsupportedFormat     = errors.New("unsupported record format version")
	ErrCredentialNotFound    = errors.New("credential not found")
	ErrInvalidCredentialPart = errors.New("invalid credential domain or username")
)

// PersistenceError reports a failed store read or write.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistenceErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

const defaultReporterBuffer = 16

// ErrorReporter is the single channel through which background failures
// reach the application layer. Reports never block; when the buffer is full
// the error is only logged.
type ErrorReporter struct {
	errs   chan error
	logger zerolog.Logger
}

func NewErrorReporter(logger zerolog.Logger, buffer int) *ErrorReporter {
	if buffer <= 0 {
		buffer = defaultReporterBuffer
	}

	return &ErrorReporter{
		errs:   make(chan error, buffer),
		logger: logger,
	}
}

func (r *ErrorReporter) Report(err error) {
	if err == nil {
		return
	}

	r.logger.Error().Err(err).Msg("background operation failed")

	select {
	case r.errs <- err:
	default:
		r.logger.Warn().Err(err).Msg("error channel full, dropping report")
	}
}

func (r *ErrorReporter) Errors() <-chan error {
	return r.errs
}
