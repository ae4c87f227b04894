package account_test

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/kaushal/skillcredits/pkg/domain"
	"github.com/kaushal/skillcredits/pkg/domain/account"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder(t *testing.T) {
	userID := uuid.New()

	t.Run("defaults to a fresh level one wallet", func(t *testing.T) {
		acc, err := account.New().WithUserID(userID).Build()
		require.NoError(t, err)
		assert.Equal(t, userID, acc.UserID)
		assert.Equal(t, int64(0), acc.CreditBalance)
		assert.Equal(t, 1, acc.Level)
		assert.True(t, acc.KaushalTokenBalance.IsZero())
		assert.False(t, acc.CreatedAt.IsZero())
	})

	t.Run("hydrates stored values", func(t *testing.T) {
		acc, err := account.New().
			WithUserID(userID).
			WithBalance(250).
			WithLevel(3).
			WithTokenBalance(decimal.RequireFromString("1.5")).
			Build()
		require.NoError(t, err)
		assert.Equal(t, int64(250), acc.CreditBalance)
		assert.Equal(t, 3, acc.Level)
		assert.Equal(t, "1.5", acc.KaushalTokenBalance.String())
	})

	t.Run("requires a user", func(t *testing.T) {
		_, err := account.New().Build()
		assert.ErrorIs(t, err, account.ErrUserIDRequired)
	})

	t.Run("rejects a negative balance", func(t *testing.T) {
		_, err := account.New().WithUserID(userID).WithBalance(-1).Build()
		assert.ErrorIs(t, err, account.ErrNegativeBalance)
	})

	t.Run("clamps the level to one", func(t *testing.T) {
		acc, err := account.New().WithUserID(userID).WithLevel(0).Build()
		require.NoError(t, err)
		assert.Equal(t, 1, acc.Level)
	})
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		earned int64
		want   int
	}{
		{-10, 1},
		{0, 1},
		{99, 1},
		{100, 2},
		{399, 2},
		{400, 3},
		{900, 4},
		{10000, 11},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, account.LevelFor(tc.earned), "earned=%d", tc.earned)
	}
}

func TestRaiseLevel(t *testing.T) {
	acc, err := account.New().WithUserID(uuid.New()).WithLevel(3).Build()
	require.NoError(t, err)

	assert.False(t, acc.RaiseLevel(100), "lower earnings never demote")
	assert.Equal(t, 3, acc.Level)

	assert.False(t, acc.RaiseLevel(400))
	assert.Equal(t, 3, acc.Level)

	assert.True(t, acc.RaiseLevel(900))
	assert.Equal(t, 4, acc.Level)
}

func TestCanSpend(t *testing.T) {
	acc, err := account.New().WithUserID(uuid.New()).WithBalance(50).Build()
	require.NoError(t, err)

	assert.True(t, acc.CanSpend(50))
	assert.True(t, acc.CanSpend(1))
	assert.False(t, acc.CanSpend(51))
	assert.False(t, acc.CanSpend(0))
	assert.False(t, acc.CanSpend(-5))
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, account.ValidateAmount(1))
	assert.ErrorIs(t, account.ValidateAmount(0), account.ErrAmountMustBePositive)
	assert.ErrorIs(t, account.ValidateAmount(-1), account.ErrAmountMustBePositive)
	assert.NoError(t, account.ValidateAmount(account.MaxAmount))
	assert.ErrorIs(t, account.ValidateAmount(account.MaxAmount+1), account.ErrAmountTooLarge)
	assert.ErrorIs(t, account.ValidateAmount(math.MaxInt64), domain.ErrValidation)
}
