package conversion_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/kaushal/skillcredits/pkg/domain/conversion"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validAddress = "0x52908400098527886e0f7030069857d2e4169ee7"

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		addr  string
		valid bool
	}{
		{validAddress, true},
		{"0x52908400098527886E0F7030069857D2E4169EE7", true},
		{"", false},
		{"52908400098527886e0f7030069857d2e4169ee7", false},
		{"0x52908400098527886e0f7030069857d2e4169ee", false},
		{"0x52908400098527886e0f7030069857d2e4169ee77", false},
		{"0xZZ908400098527886e0f7030069857d2e4169ee7", false},
	}
	for _, tc := range tests {
		err := conversion.ValidateAddress(tc.addr)
		if tc.valid {
			assert.NoError(t, err, tc.addr)
		} else {
			assert.ErrorIs(t, err, conversion.ErrInvalidAddress, tc.addr)
		}
	}
}

func TestChecksumAddress(t *testing.T) {
	for _, want := range []string{
		"0x52908400098527886E0F7030069857D2E4169EE7",
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
		"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
	} {
		lower := strings.ToLower(want)
		assert.Equal(t, want, conversion.ChecksumAddress(lower))
		assert.Equal(t, want, conversion.ChecksumAddress(want))
	}
	assert.Equal(t, "nope", conversion.ChecksumAddress("nope"))
}

func TestParseRateTable(t *testing.T) {
	t.Run("empty yields defaults", func(t *testing.T) {
		table, err := conversion.ParseRateTable("")
		require.NoError(t, err)
		assert.Equal(t, []conversion.CryptoType{conversion.BNB, conversion.BTC, conversion.ETH, conversion.USDT}, table.Codes())
		rate, ok := table.Rate(conversion.USDT)
		require.True(t, ok)
		assert.Equal(t, "0.01", rate.String())

		table[conversion.USDT] = decimal.NewFromInt(9)
		usdt, _ := conversion.DefaultRates.Rate(conversion.USDT)
		assert.Equal(t, "0.01", usdt.String(), "defaults are copied")
	})

	t.Run("parses and normalizes tickers", func(t *testing.T) {
		table, err := conversion.ParseRateTable(" btc:0.0000003 , usdt:0.02,")
		require.NoError(t, err)
		assert.Len(t, table, 2)
		btc, ok := table.Rate(conversion.BTC)
		require.True(t, ok)
		assert.Equal(t, "0.0000003", btc.String())
		assert.Equal(t, map[string]string{"BTC": "0.0000003", "USDT": "0.02"}, table.Strings())
	})

	for _, bad := range []string{"BTC", "BTC:abc", "BTC:0", "ETH:-1", ":0.1"} {
		t.Run("rejects "+bad, func(t *testing.T) {
			_, err := conversion.ParseRateTable(bad)
			assert.Error(t, err)
		})
	}
}

func TestMerge(t *testing.T) {
	base := conversion.RateTable{conversion.BTC: decimal.RequireFromString("0.1")}
	merged := base.Merge(conversion.RateTable{
		conversion.BTC: decimal.RequireFromString("0.2"),
		"DOGE":         decimal.RequireFromString("3"),
	})
	assert.Len(t, merged, 2)
	assert.Equal(t, "0.2", merged[conversion.BTC].String())
	assert.Equal(t, "0.1", base[conversion.BTC].String())
}

func TestNewQuote(t *testing.T) {
	userID := uuid.New()
	rates := conversion.DefaultRates

	t.Run("valid quote", func(t *testing.T) {
		q, err := conversion.NewQuote(userID, 150, conversion.USDT, validAddress, rates, 100)
		require.NoError(t, err)
		assert.Equal(t, "0x52908400098527886E0F7030069857D2E4169EE7", q.WalletAddress)
		assert.True(t, q.CryptoAmount().Equal(decimal.RequireFromString("1.5")))
	})

	t.Run("minimum is inclusive", func(t *testing.T) {
		_, err := conversion.NewQuote(userID, 100, conversion.BTC, validAddress, rates, 100)
		assert.NoError(t, err)
		_, err = conversion.NewQuote(userID, 99, conversion.BTC, validAddress, rates, 100)
		assert.ErrorIs(t, err, conversion.ErrBelowMinimum)
	})

	t.Run("zero minimum falls back to default", func(t *testing.T) {
		_, err := conversion.NewQuote(userID, conversion.DefaultMinCredits-1, conversion.BTC, validAddress, rates, 0)
		assert.ErrorIs(t, err, conversion.ErrBelowMinimum)
	})

	t.Run("minimum is checked before currency and address", func(t *testing.T) {
		_, err := conversion.NewQuote(userID, 10, "DOGE", "bad", rates, 100)
		assert.ErrorIs(t, err, conversion.ErrBelowMinimum)
	})

	t.Run("currency is checked before address", func(t *testing.T) {
		_, err := conversion.NewQuote(userID, 150, "DOGE", "bad", rates, 100)
		assert.ErrorIs(t, err, conversion.ErrUnsupportedCurrency)
	})

	t.Run("bad address", func(t *testing.T) {
		_, err := conversion.NewQuote(userID, 150, conversion.ETH, "0x123", rates, 100)
		assert.ErrorIs(t, err, conversion.ErrInvalidAddress)
	})
}

func TestRequestTransitions(t *testing.T) {
	q, err := conversion.NewQuote(uuid.New(), 200, conversion.ETH, validAddress, conversion.DefaultRates, 100)
	require.NoError(t, err)
	debitID := uuid.New()

	t.Run("new request is pending", func(t *testing.T) {
		req := conversion.NewRequest(q, debitID)
		assert.Equal(t, conversion.StatusPending, req.Status)
		assert.Equal(t, debitID, req.TransactionID)
		assert.True(t, req.CryptoAmount.Equal(decimal.RequireFromString("0.0008")))
	})

	t.Run("confirm once", func(t *testing.T) {
		req := conversion.NewRequest(q, debitID)
		require.NoError(t, req.Confirm("0xabc"))
		assert.Equal(t, conversion.StatusConfirmed, req.Status)
		assert.Equal(t, "0xabc", req.TxHash)
		assert.ErrorIs(t, req.Confirm("0xdef"), conversion.ErrInvalidStatusTransition)
		assert.ErrorIs(t, req.Fail("late"), conversion.ErrInvalidStatusTransition)
	})

	t.Run("fail once", func(t *testing.T) {
		req := conversion.NewRequest(q, debitID)
		require.NoError(t, req.Fail("node unreachable"))
		assert.Equal(t, conversion.StatusFailed, req.Status)
		assert.Equal(t, "node unreachable", req.FailureReason)
		assert.ErrorIs(t, req.Confirm("0xabc"), conversion.ErrInvalidStatusTransition)
	})
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, conversion.BTC, conversion.Normalize(" btc "))
}
