package domain

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionAddTabBecomesActive(t *testing.T) {
	env, engine, _ := newTestEnv()
	session := newSession(env, "work", false)

	first := session.AddTab("https://a")
	second := session.AddTab("https://b")

	assert.Same(t, second, session.ActiveTab())
	index, ok := session.ActiveIndex()
	require.True(t, ok)
	assert.Equal(t, 1, index)
	assert.False(t, first.Loaded())
	assert.Zero(t, engine.created)
}

func TestSessionRemoveTabUnloadsAndClampsActive(t *testing.T) {
	env, engine, _ := newTestEnv()
	var closed []string
	env.TabClosed = func(tab *Tab) { closed = append(closed, tab.URL()) }
	session := newSession(env, "work", false)
	session.AddTab("https://a")
	session.AddTab("https://b")
	require.NoError(t, session.SetActiveTab(context.Background(), 1))

	require.NoError(t, session.RemoveTab(1))

	assert.Empty(t, engine.live)
	assert.Equal(t, []string{"https://b"}, closed)
	index, ok := session.ActiveIndex()
	require.True(t, ok)
	assert.Equal(t, 0, index)

	require.NoError(t, session.RemoveTab(0))
	_, ok = session.ActiveIndex()
	assert.False(t, ok)
	assert.Nil(t, session.ActiveTab())
	assert.True(t, session.IsEmpty())
}

func TestSessionIndexValidation(t *testing.T) {
	env, _, _ := newTestEnv()
	session := newSession(env, "work", false)
	session.AddTab("https://a")

	testCases := []struct {
		name string
		run  func() error
	}{
		{name: "set active negative", run: func() error { return session.SetActiveTab(context.Background(), -1) }},
		{name: "set active past end", run: func() error { return session.SetActiveTab(context.Background(), 1) }},
		{name: "remove past end", run: func() error { return session.RemoveTab(3) }},
		{name: "get past end", run: func() error { _, err := session.Tab(1); return err }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run()
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.ErrorIs(t, err, ErrIndexOutOfRange)
		})
	}
	assert.Equal(t, 1, session.Len())
}

func TestSessionActiveIndexStaysValidUnderRandomEdits(t *testing.T) {
	env, engine, _ := newTestEnv()
	session := newSession(env, "work", false)
	rng := rand.New(rand.NewSource(42))
	removed := map[*Tab]bool{}

	for step := 0; step < 500; step++ {
		if session.IsEmpty() || rng.Intn(3) > 0 {
			session.AddTab("https://example.test")
			if rng.Intn(2) == 0 {
				require.NoError(t, session.SetActiveTab(context.Background(), rng.Intn(session.Len())))
			}
		} else {
			index := rng.Intn(session.Len())
			tab, err := session.Tab(index)
			require.NoError(t, err)
			require.NoError(t, session.RemoveTab(index))
			removed[tab] = true
		}

		index, ok := session.ActiveIndex()
		if session.IsEmpty() {
			assert.False(t, ok)
			continue
		}
		require.True(t, ok)
		require.GreaterOrEqual(t, index, 0)
		require.Less(t, index, session.Len())
		require.False(t, removed[session.ActiveTab()])
	}

	for tab := range removed {
		assert.False(t, tab.Loaded())
		assert.True(t, tab.Closed())
	}
	assert.Equal(t, engine.created-len(engine.destroyed), session.loadedCount())
}

func (s *Session) loadedCount() int {
	count := 0
	for _, tab := range s.tabs {
		if tab.Loaded() {
			count++
		}
	}
	return count
}
