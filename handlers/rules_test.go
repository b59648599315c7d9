package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"finhealth/backend/models"
)

func postRule(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/rules", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	CreateRule(rr, WithTestUser(req))
	return rr
}

const groceryRuleJSON = `{
	"name": "groceries",
	"category": "Groceries",
	"enabled": true,
	"conditions": [
		{"field": "description", "operator": "contains", "value": "grocery"}
	]
}`

func TestCreateRule(t *testing.T) {
	SetupTestDB()
	defer CleanupTestDB()

	rr := postRule(t, groceryRuleJSON)
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var rule models.CategorizationRule
	if err := json.NewDecoder(rr.Body).Decode(&rule); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if rule.ID == "" {
		t.Error("Expected an assigned rule id")
	}
	if rule.Priority != 1 {
		t.Errorf("Expected priority 1, got %d", rule.Priority)
	}
}

func TestCreateRuleInvalidCondition(t *testing.T) {
	SetupTestDB()
	defer CleanupTestDB()

	rr := postRule(t, `{
		"name": "bad",
		"category": "x",
		"enabled": true,
		"conditions": [
			{"field": "amount", "operator": "contains", "value": "10"}
		]
	}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rr.Code)
	}
}

func TestGetRulesEmpty(t *testing.T) {
	SetupTestDB()
	defer CleanupTestDB()

	req := httptest.NewRequest("GET", "/rules", nil)
	rr := httptest.NewRecorder()
	GetRules(rr, WithTestUser(req))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if body := rr.Body.String(); body != "[]\n" {
		t.Errorf("Expected empty JSON array, got %q", body)
	}
}

func TestUpdateRule(t *testing.T) {
	SetupTestDB()
	defer CleanupTestDB()

	created := postRule(t, groceryRuleJSON)
	var rule models.CategorizationRule
	if err := json.NewDecoder(created.Body).Decode(&rule); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	r := mux.NewRouter()
	r.HandleFunc("/rules/{id}", UpdateRule).Methods("PUT")

	update := `{
		"name": "groceries",
		"category": "Food",
		"enabled": true,
		"priority": 1,
		"conditions": [
			{"field": "description", "operator": "contains", "value": "grocery"}
		]
	}`
	req := httptest.NewRequest("PUT", "/rules/"+rule.ID, bytes.NewBufferString(update))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, WithTestUser(req))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var updated models.CategorizationRule
	if err := json.NewDecoder(rr.Body).Decode(&updated); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if updated.Category != "Food" {
		t.Errorf("Expected category Food, got %s", updated.Category)
	}
}

func TestDeleteRuleNotFound(t *testing.T) {
	SetupTestDB()
	defer CleanupTestDB()

	r := mux.NewRouter()
	r.HandleFunc("/rules/{id}", DeleteRule).Methods("DELETE")

	req := httptest.NewRequest("DELETE", "/rules/no-such-id", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, WithTestUser(req))

	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}
}

func TestApplyRules(t *testing.T) {
	SetupTestDB()
	defer CleanupTestDB()

	SeedTransaction("2024-01-05", "GROCERY STORE #42", -52.30, models.DefaultCategory, "")
	SeedTransaction("2024-01-06", "paycheck", 3000, models.DefaultCategory, "")
	postRule(t, groceryRuleJSON)

	req := httptest.NewRequest("POST", "/rules/apply", bytes.NewBufferString(`{"apply_to_existing": true}`))
	rr := httptest.NewRecorder()
	ApplyRules(rr, WithTestUser(req))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var result struct {
		UpdatedCount int    `json:"updatedCount"`
		Message      string `json:"message"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if result.UpdatedCount != 1 {
		t.Errorf("Expected 1 updated transaction, got %d", result.UpdatedCount)
	}
}

func TestApplyRulesWithoutFlag(t *testing.T) {
	SetupTestDB()
	defer CleanupTestDB()

	req := httptest.NewRequest("POST", "/rules/apply", bytes.NewBufferString(`{"apply_to_existing": false}`))
	rr := httptest.NewRecorder()
	ApplyRules(rr, WithTestUser(req))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	var result struct {
		UpdatedCount int `json:"updatedCount"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if result.UpdatedCount != 0 {
		t.Errorf("Expected no updates, got %d", result.UpdatedCount)
	}
}
