package params

import (
	"errors"
	"testing"

	"github.com/raykavin/chartsync/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(nil,
		Int("sma.period", 20, 2, 500),
		Float("bb.deviation", 2.0, 0.5, 5.0),
		Bool("volume.visible", true),
		Categorical("color.mode", "light", "light", "dark"),
		Parameter{Name: "label", Type: TypeString, Default: "close"},
	)
	require.NoError(t, err)
	return store
}

func TestStore_Get(t *testing.T) {
	store := newTestStore(t)

	v, err := store.Get("sma.period")
	require.NoError(t, err)
	assert.Equal(t, 20, v)

	_, err = store.Get("missing")
	var unknown *core.UnknownParameterError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "missing", unknown.Name)
}

func TestStore_SetDomain(t *testing.T) {
	store := newTestStore(t)

	cases := []struct {
		name  string
		param string
		value any
		ok    bool
	}{
		{"int in range", "sma.period", 50, true},
		{"int from int64", "sma.period", int64(30), true},
		{"integral float accepted for int", "sma.period", 40.0, true},
		{"fractional float rejected for int", "sma.period", 40.5, false},
		{"int below minimum", "sma.period", 1, false},
		{"int above maximum", "sma.period", 501, false},
		{"float from int", "bb.deviation", 3, true},
		{"float above maximum", "bb.deviation", 5.5, false},
		{"bool", "volume.visible", false, true},
		{"bool wrong type", "volume.visible", "yes", false},
		{"categorical option", "color.mode", "dark", true},
		{"categorical outside options", "color.mode", "neon", false},
		{"string", "label", "open", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before, err := store.Get(tc.param)
			require.NoError(t, err)

			_, err = store.Set(tc.param, tc.value)
			if tc.ok {
				require.NoError(t, err)
				return
			}

			var domainErr *core.DomainError
			require.True(t, errors.As(err, &domainErr))
			after, _ := store.Get(tc.param)
			assert.Equal(t, before, after, "rejected value must not replace the entry")
		})
	}
}

func TestStore_TokensAreDistinct(t *testing.T) {
	store := newTestStore(t)

	seen := make(map[Token]bool)
	initial, err := store.Token("sma.period")
	require.NoError(t, err)
	seen[initial] = true

	for _, v := range []int{20, 21, 20, 20} {
		token, err := store.Set("sma.period", v)
		require.NoError(t, err)
		require.False(t, seen[token], "token %s reused", token)
		seen[token] = true
	}

	_, err = store.Set("missing", 1)
	require.Error(t, err)
}

func TestStore_Subscribe(t *testing.T) {
	store := newTestStore(t)

	var changes []Change
	store.Subscribe(func(c Change) { changes = append(changes, c) })

	_, err := store.Set("color.mode", "dark")
	require.NoError(t, err)
	_, err = store.Set("color.mode", "dark")
	require.NoError(t, err)
	_, err = store.Set("color.mode", "neon")
	require.Error(t, err)

	require.Len(t, changes, 1)
	assert.Equal(t, "light", changes[0].Old)
	assert.Equal(t, "dark", changes[0].New)
}

func TestSnapshot_Equality(t *testing.T) {
	store := newTestStore(t)

	a := store.Snapshot("sma.period")
	_, err := store.Set("color.mode", "dark")
	require.NoError(t, err)
	b := store.Snapshot("sma.period")
	assert.True(t, a.Equal(b), "unrelated change must not alter the snapshot")

	_, err = store.Set("sma.period", 21)
	require.NoError(t, err)
	c := store.Snapshot("sma.period")
	assert.False(t, a.Equal(c))

	// equality is by value, not by assignment
	_, err = store.Set("sma.period", 20)
	require.NoError(t, err)
	assert.True(t, a.Equal(store.Snapshot("sma.period")))

	n, err := a.Int("sma.period")
	require.NoError(t, err)
	assert.Equal(t, 20, n)

	assert.Equal(t, store.Snapshot("a", "b").Key(), store.Snapshot("b", "a", "b").Key())
	assert.NotEqual(t, store.Snapshot("sma.period").Key(), store.Snapshot("sma.period", "missing").Key())
}

func TestNewStore_InvalidDefault(t *testing.T) {
	_, err := NewStore(nil, Int("period", 0, 1, 10))
	var domainErr *core.DomainError
	require.True(t, errors.As(err, &domainErr))
}
