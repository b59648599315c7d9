package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finhealth/backend/database"
	"finhealth/backend/models"
)

const scenarioCSV = `2024-01-01,income,3000
2024-01-05,rent,-1200
2024-01-07,grocery,-150
`

func countTransactions(t *testing.T, userID string) int {
	t.Helper()
	var n int
	require.NoError(t, database.DB.QueryRow(`
		SELECT COUNT(*) FROM transactions WHERE user_id = ?
	`, userID).Scan(&n))
	return n
}

func TestContentHash(t *testing.T) {
	a := ContentHash([]byte("hello"))
	b := ContentHash([]byte("hello"))
	c := ContentHash([]byte("hello "))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestProcessUploadHeaderlessFile(t *testing.T) {
	setupTestDB(t)
	userID := "user-upload"

	result, err := ProcessUpload(context.Background(), userID, "january.csv", []byte(scenarioCSV), nil)
	require.NoError(t, err)

	assert.Equal(t, models.UploadStatusCompleted, result.Status)
	assert.Equal(t, 3, result.TransactionCount)
	assert.Zero(t, result.SkippedDuplicateCount)
	assert.Zero(t, result.ParseErrorCount)
	assert.NotEmpty(t, result.UploadID)

	txns, err := FetchTransactions(userID, models.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txns, 3)

	// The label column doubles as description and category.
	assert.Equal(t, "income", txns[0].Description)
	assert.Equal(t, "income", txns[0].Category)
	assert.Equal(t, models.TypeIncome, txns[0].Type)
	assert.Equal(t, "rent", txns[1].Category)
	assert.Equal(t, models.TypeExpense, txns[1].Type)

	summary := CalculateSummary(txns)
	assert.InDelta(t, 3000.0, summary.TotalIncome, 1e-9)
	assert.InDelta(t, 1350.0, summary.TotalExpenses, 1e-9)
	assert.InDelta(t, 1650.0, summary.Net, 1e-9)
	assert.InDelta(t, 55.0, summary.SavingsRate, 1e-9)
}

func TestProcessUploadIdenticalFileShortCircuits(t *testing.T) {
	setupTestDB(t)
	userID := "user-upload"

	first, err := ProcessUpload(context.Background(), userID, "january.csv", []byte(scenarioCSV), nil)
	require.NoError(t, err)
	require.Equal(t, 3, first.TransactionCount)

	// Same bytes again, different filename: the recorded outcome comes
	// back without re-parsing and the ledger does not grow.
	second, err := ProcessUpload(context.Background(), userID, "january-again.csv", []byte(scenarioCSV), nil)
	require.NoError(t, err)
	assert.Equal(t, first.UploadID, second.UploadID)
	assert.Equal(t, 3, second.TransactionCount)
	assert.Equal(t, "duplicate upload: file already processed", second.Message)

	assert.Equal(t, 3, countTransactions(t, userID))
}

func TestProcessUploadOverlappingRowsSkipped(t *testing.T) {
	setupTestDB(t)
	userID := "user-upload"

	_, err := ProcessUpload(context.Background(), userID, "january.csv", []byte(scenarioCSV), nil)
	require.NoError(t, err)

	overlapping := `2024-01-07,grocery,-150
2024-01-09,fuel,-40
`
	result, err := ProcessUpload(context.Background(), userID, "overlap.csv", []byte(overlapping), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TransactionCount)
	assert.Equal(t, 1, result.SkippedDuplicateCount)
	assert.Equal(t, 4, countTransactions(t, userID))
}

func TestProcessUploadRepeatedRowInOneFile(t *testing.T) {
	setupTestDB(t)
	userID := "user-upload"

	repeated := `2024-01-07,grocery,-150
2024-01-07,grocery,-150
`
	result, err := ProcessUpload(context.Background(), userID, "repeat.csv", []byte(repeated), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TransactionCount)
	assert.Equal(t, 1, result.SkippedDuplicateCount)
}

func TestProcessUploadScopedToOwner(t *testing.T) {
	setupTestDB(t)

	_, err := ProcessUpload(context.Background(), "owner-a", "january.csv", []byte(scenarioCSV), nil)
	require.NoError(t, err)

	// The same bytes from a different owner are not a duplicate.
	result, err := ProcessUpload(context.Background(), "owner-b", "january.csv", []byte(scenarioCSV), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, result.TransactionCount)
	assert.Equal(t, 3, countTransactions(t, "owner-a"))
	assert.Equal(t, 3, countTransactions(t, "owner-b"))
}

func TestProcessUploadHeaderFileWithRules(t *testing.T) {
	setupTestDB(t)
	userID := "user-upload"

	rule, err := CreateRule(userID, containsRule("groceries", "Groceries", "grocery"))
	require.NoError(t, err)

	csvData := `Date,Description,Amount
2024-02-01,GROCERY STORE #42,-52.30
2024-02-02,landlord,-900.00
`
	result, err := ProcessUpload(context.Background(), userID, "feb.csv", []byte(csvData), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TransactionCount)

	txns, err := FetchTransactions(userID, models.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, "Groceries", txns[0].Category)
	assert.Equal(t, models.DefaultCategory, txns[1].Category)

	var matches int
	require.NoError(t, database.DB.QueryRow(`
		SELECT matches_count FROM categorization_rules WHERE id = ?
	`, rule.ID).Scan(&matches))
	assert.Equal(t, 1, matches)
}

func TestProcessUploadReportsRowErrors(t *testing.T) {
	setupTestDB(t)
	userID := "user-upload"

	csvData := `Date,Description,Amount
2024-02-01,ok row,-10.00
bad-date,broken row,-5.00
2024-02-03,also ok,20.00
`
	result, err := ProcessUpload(context.Background(), userID, "partial.csv", []byte(csvData), nil)
	require.NoError(t, err)

	assert.Equal(t, models.UploadStatusCompleted, result.Status)
	assert.Equal(t, 2, result.TransactionCount)
	assert.Equal(t, 1, result.ParseErrorCount)
	require.Len(t, result.ParseErrors, 1)
	assert.Contains(t, result.ParseErrors[0], "row 3")
	assert.Contains(t, result.ParseErrors[0], "date")
}

func TestProcessUploadUnrecognizedHeaderFails(t *testing.T) {
	setupTestDB(t)
	userID := "user-upload"

	csvData := "foo,bar,baz\n1,2,3\n"
	_, err := ProcessUpload(context.Background(), userID, "mystery.csv", []byte(csvData), nil)
	require.Error(t, err)

	var formatErr *FormatDetectionError
	require.True(t, errors.As(err, &formatErr))

	uploads, err := GetUploads(userID)
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	assert.Equal(t, models.UploadStatusFailed, uploads[0].Status)
	assert.NotEmpty(t, uploads[0].ErrorMessage)
	assert.Zero(t, countTransactions(t, userID))
}

func TestProcessUploadFailedFileRetries(t *testing.T) {
	setupTestDB(t)
	userID := "user-upload"

	csvData := "foo,bar,baz\n1,2,3\n"
	_, err := ProcessUpload(context.Background(), userID, "mystery.csv", []byte(csvData), nil)
	require.Error(t, err)

	// A failed outcome is not cached; the retry runs the pipeline again
	// and reuses the same upload record.
	_, err = ProcessUpload(context.Background(), userID, "mystery.csv", []byte(csvData), nil)
	require.Error(t, err)

	uploads, err := GetUploads(userID)
	require.NoError(t, err)
	assert.Len(t, uploads, 1)
}

func TestProcessUploadManualMapping(t *testing.T) {
	setupTestDB(t)
	userID := "user-upload"

	csvData := `When,What,How Much
2024-03-01,paycheck,2500.00
2024-03-04,rent,-900.00
`
	override := map[string]int{
		FieldDate:        0,
		FieldDescription: 1,
		FieldAmount:      2,
	}
	result, err := ProcessUpload(context.Background(), userID, "odd.csv", []byte(csvData), override)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TransactionCount)
}

func TestProcessUploadManualMappingMissingField(t *testing.T) {
	setupTestDB(t)

	_, err := ProcessUpload(context.Background(), "user-upload", "odd.csv",
		[]byte("a,b\n1,2\n"), map[string]int{FieldDate: 0})
	require.Error(t, err)

	var mappingErr *FieldMappingError
	require.True(t, errors.As(err, &mappingErr))
}

func TestProcessUploadConcurrentIdenticalFiles(t *testing.T) {
	setupTestDB(t)
	userID := "user-upload"

	var wg sync.WaitGroup
	results := make([]*models.UploadResult, 5)
	errs := make([]error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = ProcessUpload(context.Background(), userID, "january.csv", []byte(scenarioCSV), nil)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 5; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, results[i])
	}
	// Exactly one ingestion ran; everyone saw three rows and the ledger
	// holds three.
	assert.Equal(t, 3, countTransactions(t, userID))
}

func TestProcessUploadSurvivesBookkeepingFailure(t *testing.T) {
	setupTestDB(t)
	userID := "user-upload"

	// Block the status update that runs after the row transaction has
	// committed; the ingestion itself must still report success.
	_, err := database.DB.Exec(`
		CREATE TRIGGER block_completed BEFORE UPDATE ON uploads
		WHEN NEW.status = 'completed'
		BEGIN
			SELECT RAISE(ABORT, 'uploads table unavailable');
		END
	`)
	require.NoError(t, err)

	result, err := ProcessUpload(context.Background(), userID, "january.csv", []byte(scenarioCSV), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, result.TransactionCount)
	assert.Equal(t, 3, countTransactions(t, userID))

	uploads, err := GetUploads(userID)
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	assert.Equal(t, models.UploadStatusProcessing, uploads[0].Status)
}

func TestNaturalKeyIncludesAccount(t *testing.T) {
	a := testTxn("2024-01-01", "coffee", -4.50, models.DefaultCategory)
	a.UserID = "u"
	b := a
	b.Account = "visa-1234"

	assert.NotEqual(t, naturalKey(a), naturalKey(b))
}

func TestUploadMessage(t *testing.T) {
	assert.Equal(t, "imported 3 transactions", uploadMessage(3, 0, 0))
	assert.Equal(t, "imported 1 transactions, skipped 2 duplicates", uploadMessage(1, 2, 0))
	assert.Equal(t, "imported 0 transactions, rejected 4 unparseable rows", uploadMessage(0, 0, 4))
}
