package pgsql

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzwallet/mz_wallet_backend/internal/apperrors"
	"github.com/mzwallet/mz_wallet_backend/internal/core/domain"
)

func TestQueueTransactionInserts_EmptyMetadataBindsAsString(t *testing.T) {
	from := "acct-1"
	to := "acct-2"
	batch := &pgx.Batch{}
	queueTransactionInserts(batch, []domain.Transaction{{
		Ref:           "ref-1",
		Type:          domain.TypeTransfer,
		FromAccountID: &from,
		ToAccountID:   &to,
		Amount:        decimal.NewFromInt(100),
		Status:        domain.StatusOK,
		CreatedAt:     time.Now().UTC(),
	}})

	require.Len(t, batch.QueuedQueries, 1)
	args := batch.QueuedQueries[0].Arguments
	require.Len(t, args, 8)

	// The metadata column is NOT NULL: an unset metadata must bind as the
	// empty string, never as a nil pointer that pgx would encode as NULL.
	metadata, ok := args[6].(string)
	assert.True(t, ok, "metadata bound as %T, want string", args[6])
	assert.Equal(t, "", metadata)
}

func TestQueueTransactionInserts_OneInsertPerTransaction(t *testing.T) {
	from := "acct-1"
	batch := &pgx.Batch{}
	queueTransactionInserts(batch, []domain.Transaction{
		{Ref: "cso-1", Type: domain.TypeCashout, FromAccountID: &from, Amount: decimal.NewFromInt(1000), Status: domain.StatusOK},
		{Ref: "cso-1-FOWN", Type: domain.TypeCommission, FromAccountID: &from, Amount: decimal.NewFromInt(9), Status: domain.StatusOK, Metadata: `{"role":"owner"}`},
	})

	require.Len(t, batch.QueuedQueries, 2)
	assert.Equal(t, "cso-1", batch.QueuedQueries[0].Arguments[0])
	assert.Equal(t, "cso-1-FOWN", batch.QueuedQueries[1].Arguments[0])
	assert.Equal(t, `{"role":"owner"}`, batch.QueuedQueries[1].Arguments[6])
}

func transferLegs(ref, fromID, toID string, amount decimal.Decimal) []domain.MovementLeg {
	return []domain.MovementLeg{
		{TransactionRef: ref, AccountID: fromID, Direction: domain.Debit, BalanceKind: domain.BalanceMain, Amount: amount},
		{TransactionRef: ref, AccountID: toID, Direction: domain.Credit, BalanceKind: domain.BalanceMain, Amount: amount},
	}
}

func TestApplyLegs_TransferMutatesBothBalances(t *testing.T) {
	states := map[string]*balanceState{
		"a": {balance: decimal.NewFromInt(1000)},
		"b": {balance: decimal.NewFromInt(200)},
	}
	now := time.Now().UTC()

	entries, err := applyLegs(states, transferLegs("ref-1", "a", "b", decimal.NewFromInt(300)), now)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, states["a"].balance.Equal(decimal.NewFromInt(700)))
	assert.True(t, states["b"].balance.Equal(decimal.NewFromInt(500)))
	assert.True(t, states["a"].dirty)
	assert.True(t, states["b"].dirty)

	// balance_after reflects each account's balance at that instant.
	assert.True(t, entries[0].BalanceAfter.Equal(decimal.NewFromInt(700)))
	assert.True(t, entries[1].BalanceAfter.Equal(decimal.NewFromInt(500)))

	// Debits and credits of each entry pair conserve value.
	total := decimal.Zero
	for _, e := range entries {
		if e.Direction == domain.Debit {
			total = total.Sub(e.Amount)
		} else {
			total = total.Add(e.Amount)
		}
	}
	assert.True(t, total.IsZero(), "legs do not conserve value: %s", total)
}

func TestApplyLegs_RejectsOverdraw(t *testing.T) {
	states := map[string]*balanceState{
		"a": {balance: decimal.NewFromInt(100)},
		"b": {balance: decimal.Zero},
	}

	_, err := applyLegs(states, transferLegs("ref-1", "a", "b", decimal.NewFromInt(300)), time.Now().UTC())

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds)
}

func TestApplyLegs_RejectsFloatOverdraw(t *testing.T) {
	states := map[string]*balanceState{
		"agent":    {floatBalance: decimal.NewFromInt(50)},
		"customer": {balance: decimal.Zero},
	}
	legs := []domain.MovementLeg{
		{TransactionRef: "dep-1", AccountID: "agent", Direction: domain.Debit, BalanceKind: domain.BalanceFloat, Amount: decimal.NewFromInt(100)},
		{TransactionRef: "dep-1", AccountID: "customer", Direction: domain.Credit, BalanceKind: domain.BalanceMain, Amount: decimal.NewFromInt(100)},
	}

	_, err := applyLegs(states, legs, time.Now().UTC())

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientFloat)
}

func TestApplyLegs_FloatAndMainAreIndependent(t *testing.T) {
	states := map[string]*balanceState{
		"agent": {balance: decimal.NewFromInt(10), floatBalance: decimal.NewFromInt(5000)},
	}
	legs := []domain.MovementLeg{
		{TransactionRef: "dep-1", AccountID: "agent", Direction: domain.Debit, BalanceKind: domain.BalanceFloat, Amount: decimal.NewFromInt(1000)},
	}

	_, err := applyLegs(states, legs, time.Now().UTC())

	require.NoError(t, err)
	assert.True(t, states["agent"].floatBalance.Equal(decimal.NewFromInt(4000)))
	assert.True(t, states["agent"].balance.Equal(decimal.NewFromInt(10)))
}

func TestApplyLegs_SequentialDebitsAgainstSameBalance(t *testing.T) {
	// Cashout shape: principal plus two fee shares all debit the customer.
	states := map[string]*balanceState{
		"customer": {balance: decimal.NewFromInt(1015)},
		"agent":    {floatBalance: decimal.Zero},
	}
	legs := []domain.MovementLeg{
		{TransactionRef: "cso-1", AccountID: "customer", Direction: domain.Debit, BalanceKind: domain.BalanceMain, Amount: decimal.NewFromInt(1000)},
		{TransactionRef: "cso-1", AccountID: "agent", Direction: domain.Credit, BalanceKind: domain.BalanceFloat, Amount: decimal.NewFromInt(1000)},
		{TransactionRef: "cso-1-FOWN", AccountID: "customer", Direction: domain.Debit, BalanceKind: domain.BalanceMain, Amount: decimal.NewFromInt(9)},
		{TransactionRef: "cso-1-FAGT", AccountID: "customer", Direction: domain.Debit, BalanceKind: domain.BalanceMain, Amount: decimal.NewFromInt(6)},
		{TransactionRef: "cso-1-FAGT", AccountID: "agent", Direction: domain.Credit, BalanceKind: domain.BalanceFloat, Amount: decimal.NewFromInt(6)},
	}

	entries, err := applyLegs(states, legs, time.Now().UTC())

	require.NoError(t, err)
	require.Len(t, entries, 5)
	assert.True(t, states["customer"].balance.IsZero(), "customer balance %s", states["customer"].balance)
	assert.True(t, states["agent"].floatBalance.Equal(decimal.NewFromInt(1006)))

	// One more centavo would overdraw.
	states["customer"].balance = decimal.NewFromInt(1014)
	_, err = applyLegs(states, legs, time.Now().UTC())
	require.Error(t, err)
}

func TestApplyLegs_RejectsUnlockedAccount(t *testing.T) {
	states := map[string]*balanceState{
		"a": {balance: decimal.NewFromInt(1000)},
	}

	_, err := applyLegs(states, transferLegs("ref-1", "a", "missing", decimal.NewFromInt(10)), time.Now().UTC())

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInternal)
}
