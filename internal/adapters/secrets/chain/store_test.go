package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Tobito320/ryxsurf/internal/ports"
	portmocks "github.com/Tobito320/ryxsurf/internal/ports/mocks"
)

type probingStore struct {
	*portmocks.MockSecretStore
	*portmocks.MockProber
}

func TestSelectUsesFirstHealthyBackend(t *testing.T) {
	t.Parallel()

	primary := probingStore{portmocks.NewMockSecretStore(t), portmocks.NewMockProber(t)}
	fallback := portmocks.NewMockSecretStore(t)
	primary.MockProber.EXPECT().Probe(mock.Anything).Return(nil).Once()
	primary.MockSecretStore.EXPECT().Get(mock.Anything, "key").Return("from-pass", nil).Once()

	selected, err := Select(context.Background(), zerolog.Nop(), Static("pass", primary), Static("sqlite", fallback))
	require.NoError(t, err)
	assert.Equal(t, "pass", selected.Name)

	value, err := selected.Get(context.Background(), "key")
	require.NoError(t, err)
	assert.Equal(t, "from-pass", value)
}

func TestSelectFallsBackWhenProbeFails(t *testing.T) {
	t.Parallel()

	primary := probingStore{portmocks.NewMockSecretStore(t), portmocks.NewMockProber(t)}
	fallback := portmocks.NewMockSecretStore(t)
	primary.MockProber.EXPECT().Probe(mock.Anything).Return(errors.New("pass unavailable")).Once()

	selected, err := Select(context.Background(), zerolog.Nop(), Static("pass", primary), Static("sqlite", fallback))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", selected.Name)
	assert.Same(t, fallback, selected.SecretStore)
}

func TestSelectSkipsBackendsThatFailToOpen(t *testing.T) {
	t.Parallel()

	fallback := portmocks.NewMockSecretStore(t)
	broken := Backend{Name: "file", Open: func(context.Context) (ports.SecretStore, error) {
		return nil, errors.New("read-only home")
	}}

	selected, err := Select(context.Background(), zerolog.Nop(), broken, Static("sqlite", fallback))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", selected.Name)
}

func TestSelectReturnsCombinedErrorWhenNothingWorks(t *testing.T) {
	t.Parallel()

	primary := probingStore{portmocks.NewMockSecretStore(t), portmocks.NewMockProber(t)}
	primary.MockProber.EXPECT().Probe(mock.Anything).Return(errors.New("pass failed")).Once()
	broken := Backend{Name: "sqlite", Open: func(context.Context) (ports.SecretStore, error) {
		return nil, errors.New("disk failed")
	}}

	_, err := Select(context.Background(), zerolog.Nop(), Static("pass", primary), broken)
	require.ErrorIs(t, err, ErrNoBackend)
	assert.ErrorContains(t, err, "pass failed")
	assert.ErrorContains(t, err, "disk failed")
}

func TestSelectStopsOnCanceledContext(t *testing.T) {
	t.Parallel()

	primary := probingStore{portmocks.NewMockSecretStore(t), portmocks.NewMockProber(t)}
	fallback := portmocks.NewMockSecretStore(t)
	primary.MockProber.EXPECT().Probe(mock.Anything).Return(context.Canceled).Once()

	_, err := Select(context.Background(), zerolog.Nop(), Static("pass", primary), Static("sqlite", fallback))
	require.ErrorIs(t, err, context.Canceled)
}
