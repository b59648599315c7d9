package services

import (
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"finhealth/backend/database"
	"finhealth/backend/models"
)

// setupTestDB opens a fresh in-memory database for one test and tears it
// down afterwards.
func setupTestDB(t *testing.T) {
	t.Helper()
	os.Setenv("TEST_DB", "1")
	if err := database.InitDB(); err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}
	t.Cleanup(func() {
		database.DB.Close()
	})
}

// testTxn builds an in-memory transaction for the pure aggregation tests.
func testTxn(date, description string, amount float64, category string) models.Transaction {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return models.Transaction{
		Date:        d,
		Description: description,
		Amount:      amount,
		Category:    category,
		Type:        models.TypeForAmount(amount),
	}
}

// insertTestTransaction seeds one stored transaction and returns its id.
func insertTestTransaction(t *testing.T, userID, date, description string, amount float64, category, account string) string {
	t.Helper()
	d, err := time.Parse("2006-01-02", date)
	require.NoError(t, err)

	id := uuid.New().String()
	now := time.Now()
	_, err = database.DB.Exec(`
		INSERT INTO transactions (id, user_id, date, description, amount, category, account, type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, userID, d, description, amount, category, account, models.TypeForAmount(amount), now, now)
	require.NoError(t, err)
	return id
}
