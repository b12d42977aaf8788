package application

import (
	"github.com/rs/zerolog"

	"github.com/Tobito320/ryxsurf/internal/ports"
	"github.com/Tobito320/ryxsurf/internal/seal"
)

type settings struct {
	logger   zerolog.Logger
	metrics  ports.Metrics
	executor ports.Executor
	clock    ports.Clock
	kdf      seal.Params
	reporter *ErrorReporter
}

func newSettings(opts []Option) settings {
	s := settings{
		logger:   zerolog.Nop(),
		metrics:  ports.NopMetrics{},
		executor: ports.InlineExecutor{},
		clock:    ports.SystemClock{},
		kdf:      seal.DefaultParams,
	}
	for _, opt := range opts {
		opt(&s)
	}

	return s
}

// Option configures the managers of this package.
type Option func(*settings)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

func WithMetrics(metrics ports.Metrics) Option {
	return func(s *settings) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// WithExecutor moves crypto, store I/O and snapshot capture off the caller.
func WithExecutor(executor ports.Executor) Option {
	return func(s *settings) {
		if executor != nil {
			s.executor = executor
		}
	}
}

func WithClock(clock ports.Clock) Option {
	return func(s *settings) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func WithKDFParams(params seal.Params) Option {
	return func(s *settings) { s.kdf = params }
}

// WithErrorReporter routes background failures to reporter instead of only
// logging them.
func WithErrorReporter(reporter *ErrorReporter) Option {
	return func(s *settings) { s.reporter = reporter }
}

func (s settings) report(err error) {
	if err == nil {
		return
	}
	if s.reporter != nil {
		s.reporter.Report(err)
		return
	}
	s.logger.Error().Err(err).Msg("background operation failed")
}
