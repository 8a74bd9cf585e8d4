// services/report_service.go
package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"time"

	"invest-engine/models"
	"invest-engine/utils"

	"gorm.io/gorm"
)

// ReportService produces operator-facing snapshots of the ledger and archives
// them to R2 so admins can pull them without touching the database.
type ReportService struct {
	DB *gorm.DB
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{DB: db}
}

// GenerateDepositReport writes a CSV of every deposit with its accrual
// progress and uploads it under a dated key. Returns the object URL.
func (s *ReportService) GenerateDepositReport(ctx context.Context) (string, error) {
	type reportRow struct {
		DepositID     string
		UserID        string
		Username      string
		TierType      string
		Amount        string
		Status        string
		ROICapAmount  string
		ROIPaidAmount string
		IsActive      bool
		ConfirmedAt   *time.Time
	}

	var rows []reportRow
	err := s.DB.Model(&models.Deposit{}).
		Select("deposits.id AS deposit_id, deposits.user_id, users.username, deposits.tier_type, deposits.amount, deposits.status, deposits.roi_cap_amount, deposits.roi_paid_amount, deposits.is_active, deposits.confirmed_at").
		Joins("LEFT JOIN users ON users.id = deposits.user_id").
		Order("deposits.created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return "", fmt.Errorf("failed to query deposits for report: %w", err)
	}

	buf := new(bytes.Buffer)
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"deposit_id", "user_id", "username", "tier", "amount", "status", "roi_cap", "roi_paid", "active", "confirmed_at"})
	for _, r := range rows {
		confirmed := ""
		if r.ConfirmedAt != nil {
			confirmed = r.ConfirmedAt.UTC().Format(time.RFC3339)
		}
		_ = w.Write([]string{
			r.DepositID, r.UserID, r.Username, r.TierType, r.Amount, r.Status,
			r.ROICapAmount, r.ROIPaidAmount, fmt.Sprintf("%t", r.IsActive), confirmed,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to build report CSV: %w", err)
	}

	key := fmt.Sprintf("reports/deposits-%s.csv", time.Now().UTC().Format("2006-01-02-150405"))
	url, err := utils.UploadBytesToR2(ctx, key, buf.Bytes(), "text/csv")
	if err != nil {
		return "", fmt.Errorf("failed to upload report: %w", err)
	}

	log.Printf("[REPORT] deposit report archived: %s (%d rows)", url, len(rows))
	return url, nil
}
