package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/treasury/internal/dao"
)

func TestMarshalIdentities(t *testing.T) {
	s, err := marshalIdentities(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", s)

	s, err = marshalIdentities([]dao.Identity{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, s)

	ids, err := unmarshalIdentities("null")
	require.NoError(t, err)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)
}

func TestPayloadRoundTrip(t *testing.T) {
	text, err := marshalPayload(map[string]any{"b": 2, "a": "x"})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":2}`, text)

	payload, err := unmarshalPayload(text)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": "x", "b": json.Number("2")}, payload)

	empty, err := unmarshalPayload("")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = marshalPayload(map[string]any{"f": 1.5})
	assert.Error(t, err)
}

func TestAccounts(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, func(tx *Tx) error {
		require.NoError(t, tx.Credit(ctx, "treasury", "SOL", 100))
		require.NoError(t, tx.Debit(ctx, "treasury", "SOL", 40))
		assert.ErrorIs(t, tx.Debit(ctx, "treasury", "SOL", 61), ErrInsufficientBalance)
		assert.ErrorIs(t, tx.Debit(ctx, "nobody", "SOL", 1), ErrInsufficientBalance)

		bal, err := tx.Balance(ctx, "treasury", "SOL")
		require.NoError(t, err)
		assert.Equal(t, uint64(60), bal)

		bal, err = tx.Balance(ctx, "treasury", "GOV")
		require.NoError(t, err)
		assert.Zero(t, bal)
		return nil
	}))
}
