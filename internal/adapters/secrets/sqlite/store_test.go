package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tobito320/ryxsurf/internal/ports"
	"github.com/Tobito320/ryxsurf/internal/seal"
)

var testParams = seal.Params{Time: 1, MemoryKiB: 8 * 1024, Threads: 1}

func TestStoreRoundTripAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "passwords.db")

	store, err := Open(ctx, path, "master", testParams, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "ryxsurf/credentials/go.dev/gopher", "first"))
	require.NoError(t, store.Put(ctx, "ryxsurf/credentials/go.dev/gopher", "second"))
	require.NoError(t, store.Close())

	reopened, err := Open(ctx, path, "master", testParams, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	value, err := reopened.Get(ctx, "ryxsurf/credentials/go.dev/gopher")
	require.NoError(t, err)
	assert.Equal(t, "second", value)

	require.NoError(t, reopened.Delete(ctx, "ryxsurf/credentials/go.dev/gopher"))
	_, err = reopened.Get(ctx, "ryxsurf/credentials/go.dev/gopher")
	assert.ErrorIs(t, err, ports.ErrSecretNotFound)
}

func TestStoreWrongPasswordFailsAuthentication(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "passwords.db")

	store, err := Open(ctx, path, "master", testParams, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "k", "v"))
	require.NoError(t, store.Close())

	wrong, err := Open(ctx, path, "guess", testParams, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = wrong.Close() })

	_, err = wrong.Get(ctx, "k")
	assert.ErrorIs(t, err, seal.ErrAuthenticationFailed)
}
