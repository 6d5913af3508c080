package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallsAreNoOpsWithoutRedis(t *testing.T) {
	RDB = nil
	ctx := context.Background()

	assert.False(t, Available())
	assert.NoError(t, Set(ctx, "product:1", map[string]int{"stock": 3}, time.Minute))

	var dest map[string]int
	assert.False(t, Get(ctx, "product:1", &dest))
	assert.NoError(t, Del(ctx, "product:1"))
}

func TestRememberLoadsOnMiss(t *testing.T) {
	RDB = nil
	ctx := context.Background()
	calls := 0

	var out []string
	err := Remember(ctx, "featured", time.Minute, &out, func() error {
		calls++
		out = []string{"neem", "sulphur"}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"neem", "sulphur"}, out)
	assert.Equal(t, 1, calls)

	boom := errors.New("db down")
	err = Remember(ctx, "featured", time.Minute, &out, func() error { return boom })
	assert.ErrorIs(t, err, boom)
}
