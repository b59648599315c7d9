package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finhealth/backend/models"
)

func TestParseFilterDates(t *testing.T) {
	start, end, err := parseFilterDates(models.TransactionFilter{StartDate: "2024-01-01", EndDate: "2024-03-31"})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", start.Format("2006-01-02"))
	assert.Equal(t, "2024-03-31", end.Format("2006-01-02"))

	var inputErr *AggregationInputError

	_, _, err = parseFilterDates(models.TransactionFilter{StartDate: "yesterday"})
	require.True(t, errors.As(err, &inputErr))

	_, _, err = parseFilterDates(models.TransactionFilter{StartDate: "2024-03-01", EndDate: "2024-01-01"})
	require.True(t, errors.As(err, &inputErr))
}

func TestFetchTransactionsFilters(t *testing.T) {
	setupTestDB(t)
	userID := "user-fetch"

	insertTestTransaction(t, userID, "2024-01-05", "rent", -1200, "rent", "")
	insertTestTransaction(t, userID, "2024-02-10", "grocery", -80, "grocery", "visa-1234")
	insertTestTransaction(t, userID, "2024-03-15", "paycheck", 3000, "income", "")
	insertTestTransaction(t, "someone-else", "2024-02-10", "grocery", -80, "grocery", "")

	all, err := FetchTransactions(userID, models.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Oldest first.
	assert.Equal(t, "rent", all[0].Description)
	assert.Equal(t, "paycheck", all[2].Description)

	ranged, err := FetchTransactions(userID, models.TransactionFilter{StartDate: "2024-02-01", EndDate: "2024-02-28"})
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, "grocery", ranged[0].Description)

	byCategory, err := FetchTransactions(userID, models.TransactionFilter{Category: "income"})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)

	byAccount, err := FetchTransactions(userID, models.TransactionFilter{Account: "visa-1234"})
	require.NoError(t, err)
	require.Len(t, byAccount, 1)
}

func TestUpdateTransactionCategory(t *testing.T) {
	setupTestDB(t)
	userID := "user-update"
	id := insertTestTransaction(t, userID, "2024-01-05", "grocery", -80, "grocery", "")

	require.NoError(t, UpdateTransactionCategory(userID, id, "Food"))
	txns, err := FetchTransactions(userID, models.TransactionFilter{})
	require.NoError(t, err)
	assert.Equal(t, "Food", txns[0].Category)

	// Clearing the category falls back to the default bucket.
	require.NoError(t, UpdateTransactionCategory(userID, id, ""))
	txns, err = FetchTransactions(userID, models.TransactionFilter{})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultCategory, txns[0].Category)

	assert.Error(t, UpdateTransactionCategory(userID, "missing-id", "Food"))
	assert.Error(t, UpdateTransactionCategory("someone-else", id, "Food"))
}

func TestDeleteTransaction(t *testing.T) {
	setupTestDB(t)
	userID := "user-delete"
	id := insertTestTransaction(t, userID, "2024-01-05", "rent", -1200, "rent", "")

	deleted, err := DeleteTransaction("someone-else", id)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	deleted, err = DeleteTransaction(userID, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestDeleteAllTransactions(t *testing.T) {
	setupTestDB(t)
	userID := "user-delete"

	insertTestTransaction(t, userID, "2024-01-05", "rent", -1200, "rent", "")
	insertTestTransaction(t, userID, "2024-01-06", "grocery", -80, "grocery", "")
	insertTestTransaction(t, "someone-else", "2024-01-06", "grocery", -80, "grocery", "")

	deleted, err := DeleteAllTransactions(userID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	remaining, err := FetchTransactions("someone-else", models.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestGetCategories(t *testing.T) {
	setupTestDB(t)
	userID := "user-categories"

	insertTestTransaction(t, userID, "2024-01-05", "rent", -1200, "rent", "")
	insertTestTransaction(t, userID, "2024-01-06", "grocery", -80, "grocery", "")
	insertTestTransaction(t, userID, "2024-01-07", "grocery again", -40, "grocery", "")

	categories, err := GetCategories(userID)
	require.NoError(t, err)
	assert.Equal(t, []string{"grocery", "rent"}, categories)
}
