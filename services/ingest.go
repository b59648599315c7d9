package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"finhealth/backend/database"
	"finhealth/backend/models"
)

// uploadGroup collapses concurrent ingestions of the same (user, content
// hash) pair into a single flight; the duplicate caller blocks and receives
// the shared outcome.
var uploadGroup singleflight.Group

// maxReportedParseErrors caps how many row error messages are echoed back to
// the caller; the count always reflects all of them.
const maxReportedParseErrors = 10

// ContentHash returns the hex digest used for whole-file deduplication.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ProcessUpload ingests one uploaded file for a user. Re-uploading identical
// bytes returns the previously recorded outcome without re-parsing, and at
// most one ingestion runs per (user, content hash) at a time.
func ProcessUpload(ctx context.Context, userID, filename string, data []byte, override map[string]int) (*models.UploadResult, error) {
	hash := ContentHash(data)
	key := userID + ":" + hash

	v, err, _ := uploadGroup.Do(key, func() (interface{}, error) {
		return ingestFile(ctx, userID, filename, data, hash, override)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.UploadResult), nil
}

func ingestFile(ctx context.Context, userID, filename string, data []byte, hash string, override map[string]int) (*models.UploadResult, error) {
	cached, err := lookupCompletedUpload(userID, hash)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		log.Printf("Duplicate upload for user %s (%s), returning recorded outcome", userID, filename)
		return &models.UploadResult{
			UploadID:              cached.ID,
			Status:                cached.Status,
			TransactionCount:      cached.TransactionCount,
			SkippedDuplicateCount: cached.SkippedCount,
			Message:               "duplicate upload: file already processed",
		}, nil
	}

	uploadID, err := startUploadRecord(userID, filename, hash, int64(len(data)))
	if err != nil {
		return nil, err
	}

	result, err := parseAndStore(ctx, userID, data, override)
	if err != nil {
		if failErr := markUploadFailed(uploadID, err.Error()); failErr != nil {
			log.Printf("Failed to mark upload %s as failed: %v", uploadID, failErr)
		}
		return nil, err
	}

	if err := markUploadCompleted(uploadID, result); err != nil {
		// The rows are already committed; a bookkeeping failure must not
		// turn a successful ingestion into an error.
		log.Printf("Failed to mark upload %s as completed: %v", uploadID, err)
	}
	result.UploadID = uploadID
	result.Status = models.UploadStatusCompleted
	log.Printf("Upload %s for user %s: %d imported, %d duplicates skipped, %d rows rejected",
		uploadID, userID, result.TransactionCount, result.SkippedDuplicateCount, result.ParseErrorCount)
	return result, nil
}

// parseAndStore runs the detection, mapping, normalization, deduplication,
// and categorization pipeline and commits all surviving rows in a single
// database transaction. A cancelled context rolls everything back.
func parseAndStore(ctx context.Context, userID string, data []byte, override map[string]int) (*models.UploadResult, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, &FormatDetectionError{}
	}

	mapping, dataRows, firstLine, err := resolveSource(records, override)
	if err != nil {
		return nil, err
	}

	normalized, rowErrs, err := NormalizeRows(ctx, dataRows, mapping, firstLine)
	if err != nil {
		return nil, err
	}

	rules, err := ActiveRules(userID)
	if err != nil {
		return nil, err
	}

	tx, err := database.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	skipped := 0
	matchCounts := make(map[string]int)
	seen := make(map[string]bool)
	now := time.Now()
	for _, row := range normalized {
		t := row.Transaction
		t.UserID = userID

		key := naturalKey(t)
		if seen[key] {
			skipped++
			continue
		}
		seen[key] = true

		exists, err := transactionExists(tx, t)
		if err != nil {
			return nil, err
		}
		if exists {
			skipped++
			continue
		}

		if t.Category == models.DefaultCategory {
			if rule, ok := MatchCategory(rules, t); ok {
				t.Category = rule.Category
				matchCounts[rule.ID]++
			}
		}

		t.ID = uuid.New().String()
		t.CreatedAt = now
		t.UpdatedAt = now
		_, err = tx.Exec(`
			INSERT INTO transactions (id, user_id, date, description, amount, category, account, type, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, t.ID, t.UserID, t.Date, t.Description, t.Amount, t.Category, t.Account, t.Type, t.CreatedAt, t.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to insert transaction: %w", err)
		}
		inserted++
	}

	for ruleID, count := range matchCounts {
		_, err := tx.Exec(`
			UPDATE categorization_rules SET matches_count = matches_count + ? WHERE id = ?
		`, count, ruleID)
		if err != nil {
			return nil, fmt.Errorf("failed to update rule match count: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit upload: %w", err)
	}

	result := &models.UploadResult{
		TransactionCount:      inserted,
		SkippedDuplicateCount: skipped,
		ParseErrorCount:       len(rowErrs),
		Message:               uploadMessage(inserted, skipped, len(rowErrs)),
	}
	for i, rowErr := range rowErrs {
		if i == maxReportedParseErrors {
			break
		}
		result.ParseErrors = append(result.ParseErrors, rowErr.Error())
	}
	return result, nil
}

// resolveSource decides where data rows start and how columns map to
// canonical fields: caller override first, then headerless detection, then
// the layout registry.
func resolveSource(records [][]string, override map[string]int) (FieldMapping, [][]string, int, error) {
	if override != nil {
		mapping, err := OverrideMapping(override)
		if err != nil {
			return FieldMapping{}, nil, 0, err
		}
		// The override may be for a headerless export: treat the first
		// row as data when its date cell parses.
		if idx, ok := mapping.Columns[FieldDate]; ok && idx < len(records[0]) {
			if _, err := ParseDate(records[0][idx]); err == nil {
				return mapping, records, 1, nil
			}
		}
		return mapping, records[1:], 2, nil
	}

	if mapping, ok := HeaderlessMapping(records[0]); ok {
		return mapping, records, 1, nil
	}

	layout, err := DetectFormat(records[0])
	if err != nil {
		return FieldMapping{}, nil, 0, err
	}
	mapping, err := ResolveMapping(layout, records[0])
	if err != nil {
		return FieldMapping{}, nil, 0, err
	}
	return mapping, records[1:], 2, nil
}

// naturalKey identifies a transaction for duplicate suppression.
func naturalKey(t models.Transaction) string {
	return strings.Join([]string{
		t.UserID,
		t.Date.Format("2006-01-02"),
		t.Description,
		strconv.FormatFloat(t.Amount, 'f', -1, 64),
		t.Account,
	}, "|")
}

func transactionExists(tx *sql.Tx, t models.Transaction) (bool, error) {
	var exists bool
	err := tx.QueryRow(`
		SELECT EXISTS(
			SELECT 1 FROM transactions
			WHERE user_id = ? AND date = ? AND description = ? AND amount = ? AND account = ?
		)
	`, t.UserID, t.Date, t.Description, t.Amount, t.Account).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check for duplicate row: %w", err)
	}
	return exists, nil
}

func uploadMessage(inserted, skipped, rejected int) string {
	msg := fmt.Sprintf("imported %d transactions", inserted)
	if skipped > 0 {
		msg += fmt.Sprintf(", skipped %d duplicates", skipped)
	}
	if rejected > 0 {
		msg += fmt.Sprintf(", rejected %d unparseable rows", rejected)
	}
	return msg
}

// lookupCompletedUpload returns the recorded outcome for (user, hash) if a
// completed upload exists. Failed uploads do not short-circuit: re-uploading
// a previously failed file retries it.
func lookupCompletedUpload(userID, hash string) (*models.UploadRecord, error) {
	var u models.UploadRecord
	err := database.DB.QueryRow(`
		SELECT id, status, transaction_count, skipped_count
		FROM uploads
		WHERE user_id = ? AND content_hash = ? AND status = ?
	`, userID, hash, models.UploadStatusCompleted).Scan(&u.ID, &u.Status, &u.TransactionCount, &u.SkippedCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up upload history: %w", err)
	}
	return &u, nil
}

// startUploadRecord creates (or, after a failed attempt, resets) the upload
// record for this (user, hash) and moves it to processing.
func startUploadRecord(userID, filename, hash string, size int64) (string, error) {
	now := time.Now()
	id := uuid.New().String()
	_, err := database.DB.Exec(`
		INSERT INTO uploads (id, user_id, filename, size, content_hash, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, content_hash) DO UPDATE SET
			filename = excluded.filename,
			size = excluded.size,
			status = excluded.status,
			error_message = NULL,
			updated_at = excluded.updated_at
	`, id, userID, filename, size, hash, models.UploadStatusPending, now, now)
	if err != nil {
		return "", fmt.Errorf("failed to record upload: %w", err)
	}

	// The conflict path keeps the original id; read it back.
	err = database.DB.QueryRow(`
		SELECT id FROM uploads WHERE user_id = ? AND content_hash = ?
	`, userID, hash).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to read upload record: %w", err)
	}

	_, err = database.DB.Exec(`
		UPDATE uploads SET status = ?, updated_at = ? WHERE id = ?
	`, models.UploadStatusProcessing, time.Now(), id)
	if err != nil {
		return "", fmt.Errorf("failed to mark upload processing: %w", err)
	}
	return id, nil
}

func markUploadCompleted(id string, result *models.UploadResult) error {
	_, err := database.DB.Exec(`
		UPDATE uploads
		SET status = ?, transaction_count = ?, skipped_count = ?, updated_at = ?
		WHERE id = ?
	`, models.UploadStatusCompleted, result.TransactionCount, result.SkippedDuplicateCount, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark upload completed: %w", err)
	}
	return nil
}

func markUploadFailed(id, message string) error {
	_, err := database.DB.Exec(`
		UPDATE uploads
		SET status = ?, error_message = ?, updated_at = ?
		WHERE id = ?
	`, models.UploadStatusFailed, message, time.Now(), id)
	return err
}

// GetUploads returns a user's upload history, newest first.
func GetUploads(userID string) ([]models.UploadRecord, error) {
	rows, err := database.DB.Query(`
		SELECT id, user_id, filename, size, content_hash, status, transaction_count, skipped_count,
			COALESCE(error_message, ''), created_at, updated_at
		FROM uploads
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query uploads: %w", err)
	}
	defer rows.Close()

	var uploads []models.UploadRecord
	for rows.Next() {
		var u models.UploadRecord
		err := rows.Scan(&u.ID, &u.UserID, &u.Filename, &u.Size, &u.ContentHash, &u.Status,
			&u.TransactionCount, &u.SkippedCount, &u.ErrorMessage, &u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan upload: %w", err)
		}
		uploads = append(uploads, u)
	}
	return uploads, rows.Err()
}

// GetUpload returns one upload record scoped to its owner.
func GetUpload(userID, id string) (*models.UploadRecord, error) {
	var u models.UploadRecord
	err := database.DB.QueryRow(`
		SELECT id, user_id, filename, size, content_hash, status, transaction_count, skipped_count,
			COALESCE(error_message, ''), created_at, updated_at
		FROM uploads
		WHERE id = ? AND user_id = ?
	`, id, userID).Scan(&u.ID, &u.UserID, &u.Filename, &u.Size, &u.ContentHash, &u.Status,
		&u.TransactionCount, &u.SkippedCount, &u.ErrorMessage, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("upload not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query upload: %w", err)
	}
	return &u, nil
}
