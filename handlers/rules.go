package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"finhealth/backend/middleware"
	"finhealth/backend/models"
	"finhealth/backend/services"

	"github.com/gorilla/mux"
)

// writeRuleError maps validation problems to 400 and everything else to 500.
func writeRuleError(w http.ResponseWriter, err error) {
	var conditionErr *services.RuleConditionError
	if errors.As(err, &conditionErr) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// GetRules handles GET /rules
func GetRules(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	rules, err := services.GetRules(userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if rules == nil {
		rules = []models.CategorizationRule{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rules)
}

// CreateRule handles POST /rules
func CreateRule(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var rule models.CategorizationRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := services.CreateRule(userID, &rule)
	if err != nil {
		writeRuleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

// UpdateRule handles PUT /rules/{id}
func UpdateRule(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var rule models.CategorizationRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := services.UpdateRule(userID, mux.Vars(r)["id"], &rule)
	if err != nil {
		writeRuleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updated)
}

// DeleteRule handles DELETE /rules/{id}. Categories the rule already
// assigned stay as they are.
func DeleteRule(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := services.DeleteRule(userID, mux.Vars(r)["id"]); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// ApplyRules handles POST /rules/apply. With apply_to_existing the user's
// enabled rules are re-evaluated against their whole ledger atomically.
func ApplyRules(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body struct {
		ApplyToExisting bool `json:"apply_to_existing"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !body.ApplyToExisting {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"updatedCount": 0,
			"message":      "nothing to do: apply_to_existing not set",
		})
		return
	}

	updated, err := services.ReapplyRules(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"updatedCount": updated,
		"message":      "rules applied to existing transactions",
	})
}
