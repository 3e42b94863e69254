package services

import (
	"fmt"
	"regexp"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/transfret/backoffice/internal/models"
)

// NumberPattern matches generated document references: type letter, AAMM
// period, dash, zero-padded sequence (grows past 2 digits naturally).
var NumberPattern = regexp.MustCompile(`^[FDA]\d{4}-\d{2,}$`)

// Period returns the AAMM bucket key for a date, e.g. "2406" for June 2024.
func Period(at time.Time) string {
	return at.Format("0601")
}

// FormatNumber builds the reference string for a sequence value.
func FormatNumber(docType models.DocumentType, period string, n int) string {
	return fmt.Sprintf("%s%s-%02d", docType, period, n)
}

// NextNumber reserves the next sequence value for (docType, period) and
// returns the formatted reference. The increment is an upsert on the counter
// row, so two concurrent emissions serialize on the row lock instead of both
// reading the same value. Must run inside the same transaction that inserts
// the document: a rollback releases the reserved value.
func NextNumber(tx *gorm.DB, docType models.DocumentType, at time.Time) (string, error) {
	period := Period(at)
	counter := models.SequenceCounter{DocType: string(docType), Period: period, CurrentNumber: 1}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "doc_type"}, {Name: "period"}},
		DoUpdates: clause.Assignments(map[string]any{
			"current_number": gorm.Expr("sequence_counters.current_number + 1"),
			"updated_at":     time.Now(),
		}),
	}).Create(&counter).Error
	if err != nil {
		return "", fmt.Errorf("increment sequence %s%s: %w", docType, period, err)
	}
	// Re-read inside the transaction: the upsert holds the row lock, so the
	// value read here is the one this caller reserved.
	var out models.SequenceCounter
	if err := tx.Where("doc_type = ? AND period = ?", string(docType), period).First(&out).Error; err != nil {
		return "", fmt.Errorf("read sequence %s%s: %w", docType, period, err)
	}
	return FormatNumber(docType, period, out.CurrentNumber), nil
}
