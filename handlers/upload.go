package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"finhealth/backend/middleware"
	"finhealth/backend/services"

	"github.com/gorilla/mux"
)

// UploadStatement handles POST /uploads: a multipart "file" field holding a
// CSV export, plus an optional "mapping" field with a manual column mapping
// like {"date":0,"description":1,"amount":2} that bypasses format detection.
func UploadStatement(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "Failed to parse multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "No file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Failed to read file: "+header.Filename, http.StatusBadRequest)
		return
	}

	var override map[string]int
	if mappingJSON := r.FormValue("mapping"); mappingJSON != "" {
		if err := json.Unmarshal([]byte(mappingJSON), &override); err != nil {
			http.Error(w, "Invalid column mapping: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	result, err := services.ProcessUpload(r.Context(), userID, header.Filename, data, override)
	if err != nil {
		var formatErr *services.FormatDetectionError
		var mappingErr *services.FieldMappingError
		if errors.As(err, &formatErr) || errors.As(err, &mappingErr) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// GetUploads handles GET /uploads
func GetUploads(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	uploads, err := services.GetUploads(userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(uploads)
}

// GetUpload handles GET /uploads/{id}
func GetUpload(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	upload, err := services.GetUpload(userID, mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(upload)
}
