package models

import "time"

// Upload lifecycle states.
const (
	UploadStatusPending    = "pending"
	UploadStatusProcessing = "processing"
	UploadStatusCompleted  = "completed"
	UploadStatusFailed     = "failed"
)

// UploadRecord tracks one ingested file per user. The content hash keys
// whole-file deduplication: re-uploading identical bytes returns the recorded
// outcome instead of re-parsing.
type UploadRecord struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	Filename         string    `json:"filename"`
	Size             int64     `json:"size"`
	ContentHash      string    `json:"contentHash"`
	Status           string    `json:"status"`
	TransactionCount int       `json:"transactionCount"`
	SkippedCount     int       `json:"skippedCount"`
	ErrorMessage     string    `json:"errorMessage,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// UploadResult is returned to the caller after an ingestion attempt.
type UploadResult struct {
	UploadID              string   `json:"uploadId"`
	Status                string   `json:"status"`
	TransactionCount      int      `json:"transactionCount"`
	SkippedDuplicateCount int      `json:"skippedDuplicateCount"`
	ParseErrorCount       int      `json:"parseErrorCount"`
	ParseErrors           []string `json:"parseErrors,omitempty"`
	Message               string   `json:"message"`
}
