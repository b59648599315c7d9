package handlers

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"finhealth/backend/database"
	"finhealth/backend/middleware"
	"finhealth/backend/models"
)

// TestUserID is the identity handler tests run under.
const TestUserID = "test-user-1"

// SetupTestDB initializes an in-memory database for handler tests.
func SetupTestDB() {
	os.Setenv("TEST_DB", "1")
	if err := database.InitDB(); err != nil {
		panic("Failed to initialize test database: " + err.Error())
	}
}

// CleanupTestDB closes the test database, discarding its contents.
func CleanupTestDB() {
	if database.DB != nil {
		database.DB.Close()
	}
}

// WithTestUser attaches the test identity the way AuthMiddleware does.
func WithTestUser(r *http.Request) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.UserIDKey, TestUserID)
	return r.WithContext(ctx)
}

// SeedTransaction inserts one stored transaction for the test user and
// returns its id.
func SeedTransaction(date, description string, amount float64, category, account string) string {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic("bad seed date: " + date)
	}
	id := uuid.New().String()
	now := time.Now()
	_, err = database.DB.Exec(`
		INSERT INTO transactions (id, user_id, date, description, amount, category, account, type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, TestUserID, d, description, amount, category, account, models.TypeForAmount(amount), now, now)
	if err != nil {
		panic("Failed to seed transaction: " + err.Error())
	}
	return id
}
