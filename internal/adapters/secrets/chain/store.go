package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Tobito320/ryxsurf/internal/ports"
)

var ErrNoBackend = errors.New("no secret backend available")

// Backend is a named candidate. Open is called only when the candidate is
// tried, so expensive backends such as the sealed SQLite store derive their
// key only when selected.
type Backend struct {
	Name string
	Open func(ctx context.Context) (ports.SecretStore, error)
}

// Selected is the backend chosen for the process lifetime.
type Selected struct {
	ports.SecretStore
	Name string
}

// Select returns the first candidate that opens and, when it can be probed,
// passes its probe. The choice is made once; later failures are reported by
// the chosen backend itself instead of silently switching stores.
func Select(ctx context.Context, logger zerolog.Logger, candidates ...Backend) (Selected, error) {
	var errs []error
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return Selected{}, err
		}

		store, err := open(ctx, candidate)
		if err != nil {
			if isContextError(err) {
				return Selected{}, err
			}
			logger.Debug().Err(err).Str("backend", candidate.Name).Msg("secret backend unavailable")
			errs = append(errs, fmt.Errorf("%s: %w", candidate.Name, err))
			continue
		}

		logger.Info().Str("backend", candidate.Name).Msg("secret backend selected")
		return Selected{SecretStore: store, Name: candidate.Name}, nil
	}

	return Selected{}, fmt.Errorf("%w: %w", ErrNoBackend, errors.Join(errs...))
}

func open(ctx context.Context, candidate Backend) (ports.SecretStore, error) {
	if candidate.Open == nil {
		return nil, errors.New("backend has no constructor")
	}

	store, err := candidate.Open(ctx)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("backend returned no store")
	}

	if prober, ok := store.(ports.Prober); ok {
		if err := prober.Probe(ctx); err != nil {
			return nil, fmt.Errorf("probe: %w", err)
		}
	}

	return store, nil
}

// Static wraps an already constructed store.
func Static(name string, store ports.SecretStore) Backend {
	return Backend{
		Name: name,
		Open: func(context.Context) (ports.SecretStore, error) { return store, nil },
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
