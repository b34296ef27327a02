package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"agreepay/internal/clients"
	"agreepay/internal/domain"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// Uploader stores a generated statement workbook and returns a URL the user
// can download it from.
type Uploader interface {
	Upload(ctx context.Context, fileName string, data []byte) (string, error)
}

// ExportStatus tracks one statement export through redis.
type ExportStatus struct {
	Key      string    `json:"key"`
	Type     string    `json:"type"`
	UserID   int64     `json:"user_id"`
	Filters  any       `json:"filters"`
	Progress float64   `json:"progress"`
	FileURL  *string   `json:"file_url"`
	Error    *string   `json:"error,omitempty"`
	Created  time.Time `json:"created_at"`
}

const (
	exportSetKey = "export_ids"
	exportTTL    = 20 * time.Minute
)

type StatementColumn struct {
	Header string
	Value  func(p domain.Payment) any
}

var statementColumns = map[string]StatementColumn{
	"id":             {Header: "Payment ID", Value: func(p domain.Payment) any { return p.ID }},
	"user_id":        {Header: "Participant", Value: func(p domain.Payment) any { return p.UserID }},
	"amount":         {Header: "Amount", Value: func(p domain.Payment) any { return p.Amount }},
	"percentage":     {Header: "Share %", Value: func(p domain.Payment) any { return p.Percentage }},
	"status":         {Header: "Status", Value: func(p domain.Payment) any { return string(p.Status) }},
	"payment_method": {Header: "Method", Value: func(p domain.Payment) any { return p.PaymentMethod }},
	"transaction_id": {Header: "Transaction ID", Value: func(p domain.Payment) any { return p.TransactionID }},
	"created_at":     {Header: "Paid At", Value: func(p domain.Payment) any { return timePtr(p.CreatedAt) }},
	"updated_at":     {Header: "Updated", Value: func(p domain.Payment) any { return timePtr(p.UpdatedAt) }},
}

var defaultStatementFields = []string{
	"created_at", "id", "user_id", "percentage", "amount", "status", "payment_method", "transaction_id",
}

func timePtr(t *time.Time) any {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

type StatementService struct {
	agreements AgreementRepository
	payments   PaymentRepository
	redis      *clients.RedisClient
	uploader   Uploader
	ws         *clients.WebSocketClient
}

func NewStatementService(
	agreements AgreementRepository,
	payments PaymentRepository,
	redis *clients.RedisClient,
	uploader Uploader,
	ws *clients.WebSocketClient,
) *StatementService {
	return &StatementService{
		agreements: agreements,
		payments:   payments,
		redis:      redis,
		uploader:   uploader,
		ws:         ws,
	}
}

func (s *StatementService) saveStatus(ctx context.Context, st *ExportStatus) error {
	if s.redis == nil {
		return nil
	}
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, st.Key, string(data), exportTTL); err != nil {
		return err
	}
	return s.redis.SAdd(ctx, exportSetKey, st.Key)
}

// StartStatementExport kicks off an async XLSX export of the agreement's
// payment records and returns the export id to poll or listen for.
func (s *StatementService) StartStatementExport(ctx context.Context, key string, selected []string, userID int64) (string, error) {
	agreement, err := s.agreements.FindByIDOrCode(ctx, key)
	if err != nil {
		return "", err
	}
	if !agreement.HasParticipant(userID) {
		return "", domain.ErrNotParticipant
	}

	if len(selected) == 0 {
		selected = defaultStatementFields
	}

	exportID := fmt.Sprintf("exports:%s", uuid.NewString())
	now := time.Now()

	status := &ExportStatus{
		Key:      exportID,
		Type:     "agreement_statement",
		UserID:   userID,
		Filters:  map[string]any{"agreement_id": agreement.ID, "fields": selected},
		Progress: 0,
		Created:  now,
	}
	_ = s.saveStatus(ctx, status)

	go s.runStatementExport(context.Background(), exportID, agreement.ID, agreement.Code, selected, userID, now)

	return exportID, nil
}

func (s *StatementService) runStatementExport(ctx context.Context, exportID, agreementID, code string, selected []string, userID int64, createdAt time.Time) {
	status := &ExportStatus{
		Key:      exportID,
		Type:     "agreement_statement",
		UserID:   userID,
		Filters:  map[string]any{"agreement_id": agreementID, "fields": selected},
		Progress: 0,
		Created:  createdAt,
	}

	fail := func(msg string) {
		log.Printf("statement export %s: %s", exportID, msg)
		status.Error = &msg
		status.Progress = 100
		_ = s.saveStatus(ctx, status)
		if s.ws != nil {
			_ = s.ws.NotifyStatementFailed(ctx, userID, exportID, msg)
		}
	}

	payments, err := s.payments.ListByAgreement(ctx, agreementID)
	if err != nil {
		fail(fmt.Sprintf("list payments failed: %v", err))
		return
	}

	var cols []StatementColumn
	for _, key := range selected {
		col, ok := statementColumns[key]
		if !ok {
			continue
		}
		cols = append(cols, col)
	}
	if len(cols) == 0 {
		fail("no valid fields selected")
		return
	}

	f := excelize.NewFile()
	sheet := "Payments"
	f.SetSheetName(f.GetSheetName(0), sheet)
	_ = f.SetDocProps(&excelize.DocProperties{Creator: fmt.Sprintf("user_%d", userID)})

	for i, col := range cols {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, col.Header)
	}

	total := len(payments)
	rowIdx := 2
	chunkSize := 100
	for i, p := range payments {
		for colIdx, col := range cols {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx)
			_ = f.SetCellValue(sheet, cell, col.Value(p))
		}
		rowIdx++

		if (i+1)%chunkSize == 0 || i == total-1 {
			raw := float64(i+1) / float64(total) * 100.0
			progress := math.Round(raw)
			if progress >= 100 {
				progress = 95
			}
			status.Progress = progress
			_ = s.saveStatus(ctx, status)
			if s.ws != nil {
				_ = s.ws.NotifyStatementProgress(ctx, userID, exportID, progress, "generating")
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		fail(fmt.Sprintf("write workbook failed: %v", err))
		return
	}

	fileName := fmt.Sprintf("statement_%s_%s.xlsx", code, time.Now().Format("20060102_150405"))

	status.Progress = 95
	_ = s.saveStatus(ctx, status)
	if s.ws != nil {
		_ = s.ws.NotifyStatementProgress(ctx, userID, exportID, 95, "uploading")
	}

	url, err := s.uploader.Upload(ctx, fileName, buf.Bytes())
	if err != nil {
		fail(fmt.Sprintf("upload statement failed: %v", err))
		return
	}

	status.FileURL = &url
	status.Progress = 100
	_ = s.saveStatus(ctx, status)
	if s.ws != nil {
		_ = s.ws.NotifyStatementProgress(ctx, userID, exportID, 100, "ready")
		_ = s.ws.NotifyStatementComplete(ctx, userID, exportID, url, fileName)
	}
}

// GetExports lists the caller's statement exports, newest first.
func (s *StatementService) GetExports(ctx context.Context, userID int64) ([]any, error) {
	if s.redis == nil {
		return nil, errors.New("redis client not configured")
	}

	keys, err := s.redis.SMembers(ctx, exportSetKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get export keys: %w", err)
	}

	var statuses []ExportStatus
	for _, key := range keys {
		data, err := s.redis.Get(ctx, key)
		if err != nil {
			continue
		}
		var status ExportStatus
		if err := json.Unmarshal([]byte(data), &status); err != nil {
			continue
		}
		if status.UserID == userID {
			statuses = append(statuses, status)
		}
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Created.After(statuses[j].Created)
	})

	var exports []any
	for _, status := range statuses {
		exports = append(exports, map[string]any{
			"key":        status.Key,
			"type":       status.Type,
			"user_id":    status.UserID,
			"progress":   status.Progress,
			"file_url":   status.FileURL,
			"error":      status.Error,
			"filters":    status.Filters,
			"created_at": humanizeAgo(status.Created),
		})
	}
	return exports, nil
}

// GetExport returns one export status; exports belong to the user who
// started them.
func (s *StatementService) GetExport(ctx context.Context, exportID string, userID int64) (any, error) {
	if s.redis == nil {
		return nil, errors.New("redis client not configured")
	}

	data, err := s.redis.Get(ctx, exportID)
	if err != nil {
		return nil, fmt.Errorf("export not found: %w", err)
	}

	var status ExportStatus
	if err := json.Unmarshal([]byte(data), &status); err != nil {
		return nil, err
	}
	if status.UserID != userID {
		return nil, errors.New("export not found")
	}

	return map[string]any{
		"key":        status.Key,
		"type":       status.Type,
		"user_id":    status.UserID,
		"progress":   status.Progress,
		"file_url":   status.FileURL,
		"error":      status.Error,
		"filters":    status.Filters,
		"created_at": humanizeAgo(status.Created),
	}, nil
}

func humanizeAgo(t time.Time) string {
	now := time.Now()
	if t.After(now) {
		return "just now"
	}

	diff := now.Sub(t)
	minutes := int(diff.Minutes())
	if minutes < 1 {
		return "just now"
	}
	if minutes < 60 {
		return fmt.Sprintf("%d min ago", minutes)
	}
	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%d h ago", hours)
	}
	days := hours / 24
	if days < 30 {
		return fmt.Sprintf("%d d ago", days)
	}
	return t.Format("02.01.2006 15:04")
}
