package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lettersontherocks/AI-Interview/internal/models"
)

var ErrReportNotFound = errors.New("report not found")

type ReportRepository struct {
	DB *gorm.DB
}

// Create stores the report unless one already exists for the session, and
// returns whichever report is stored.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) (*models.Report, error) {
	err := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "session_id"}}, DoNothing: true}).
		Create(report).Error
	if err != nil {
		return nil, err
	}
	return r.GetBySessionID(ctx, report.SessionID)
}

func (r *ReportRepository) GetBySessionID(ctx context.Context, sessionID string) (*models.Report, error) {
	var report models.Report
	err := r.DB.WithContext(ctx).First(&report, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// TotalsBySession maps session ids to their report totals; sessions without a report are absent.
func (r *ReportRepository) TotalsBySession(ctx context.Context, sessionIDs []string) (map[string]float64, error) {
	totals := make(map[string]float64, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return totals, nil
	}

	var rows []struct {
		SessionID  string
		TotalScore float64
	}
	err := r.DB.WithContext(ctx).Model(&models.Report{}).
		Select("session_id, total_score").
		Where("session_id IN ?", sessionIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		totals[row.SessionID] = row.TotalScore
	}
	return totals, nil
}
