package credits_test

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/kaushal/skillcredits/pkg/domain/transaction"
	"github.com/kaushal/skillcredits/webapi/credits"
	"github.com/kaushal/skillcredits/webapi/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAccount(t *testing.T) {
	srv := testutils.NewTestServer(t)
	userID, token := srv.NewUser()

	resp := srv.Do(fiber.MethodPost, "/credits/account", "", token)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var acc credits.AccountDTO
	testutils.Decode(t, resp, &acc)
	assert.Equal(t, userID.String(), acc.UserID)
	assert.Equal(t, int64(100), acc.CreditBalance, "signup bonus")
	assert.Equal(t, 2, acc.Level)

	// opening again keeps the single bonus
	resp = srv.Do(fiber.MethodPost, "/credits/account", "", token)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	testutils.Decode(t, resp, &acc)
	assert.Equal(t, int64(100), acc.CreditBalance)
}

func TestAuthRequired(t *testing.T) {
	srv := testutils.NewTestServer(t)

	resp := srv.Do(fiber.MethodGet, "/credits/balance", "", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = srv.Do(fiber.MethodGet, "/credits/balance", "", "not-a-jwt")
	assert.NotEqual(t, fiber.StatusOK, resp.StatusCode)
}

func TestGetBalance(t *testing.T) {
	srv := testutils.NewTestServer(t)

	_, stranger := srv.NewUser()
	resp := srv.Do(fiber.MethodGet, "/credits/balance", "", stranger)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	pd := testutils.DecodeProblem(t, resp)
	assert.Equal(t, "account not found", pd.Detail)

	_, token := srv.NewAccount()
	resp = srv.Do(fiber.MethodGet, "/credits/balance", "", token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var acc credits.AccountDTO
	testutils.Decode(t, resp, &acc)
	assert.Equal(t, int64(100), acc.CreditBalance)
	assert.Equal(t, "0", acc.KaushalTokenBalance)
}

func TestSpend(t *testing.T) {
	srv := testutils.NewTestServer(t)
	_, token := srv.NewAccount()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantBal    int64
	}{
		{"covered", `{"amount":30,"source":"course_unlock","description":"Go course"}`, fiber.StatusOK, 70},
		{"uncovered", `{"amount":1000}`, fiber.StatusBadRequest, 70},
		{"zero amount", `{"amount":0}`, fiber.StatusBadRequest, 70},
		{"negative amount", `{"amount":-5}`, fiber.StatusBadRequest, 70},
		{"oversized amount", `{"amount":9223372036854775807}`, fiber.StatusBadRequest, 70},
		{"exact balance", `{"amount":70}`, fiber.StatusOK, 0},
		{"empty wallet", `{"amount":1}`, fiber.StatusBadRequest, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := srv.Do(fiber.MethodPost, "/credits/spend", tc.body, token)
			assert.Equal(t, tc.wantStatus, resp.StatusCode)

			bal := srv.Do(fiber.MethodGet, "/credits/balance", "", token)
			var acc credits.AccountDTO
			testutils.Decode(t, bal, &acc)
			assert.Equal(t, tc.wantBal, acc.CreditBalance)
		})
	}
}

func TestSpend_InsufficientProblem(t *testing.T) {
	srv := testutils.NewTestServer(t)
	_, token := srv.NewAccount()

	resp := srv.Do(fiber.MethodPost, "/credits/spend", `{"amount":101}`, token)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get(fiber.HeaderContentType))
	pd := testutils.DecodeProblem(t, resp)
	assert.Equal(t, "insufficient credits", pd.Detail)
}

func TestTransactionsAndStats(t *testing.T) {
	srv := testutils.NewTestServer(t)
	_, token := srv.NewAccount()

	resp := srv.Do(fiber.MethodPost, "/credits/spend", `{"amount":30}`, token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = srv.Do(fiber.MethodGet, "/credits/transactions", "", token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var page credits.TransactionsResponse
	testutils.Decode(t, resp, &page)
	require.Len(t, page.Transactions, 2)
	assert.Equal(t, string(transaction.TypeSpend), page.Transactions[0].Type)
	assert.Equal(t, string(transaction.CategoryPurchase), page.Transactions[0].Category)
	assert.Equal(t, string(transaction.CategorySignupBonus), page.Transactions[1].Category)
	assert.Equal(t, 20, page.Limit)

	resp = srv.Do(fiber.MethodGet, "/credits/transactions?limit=1&offset=1", "", token)
	testutils.Decode(t, resp, &page)
	require.Len(t, page.Transactions, 1)
	assert.Equal(t, string(transaction.CategorySignupBonus), page.Transactions[0].Category)

	resp = srv.Do(fiber.MethodGet, "/credits/transactions?limit=-1", "", token)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = srv.Do(fiber.MethodGet, "/credits/stats", "", token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var stats transaction.Stats
	testutils.Decode(t, resp, &stats)
	assert.Equal(t, transaction.Stats{
		Balance:        70,
		Level:          2,
		TotalEarned:    100,
		TotalSpent:     30,
		WeeklyEarnings: 100,
	}, stats)
}
