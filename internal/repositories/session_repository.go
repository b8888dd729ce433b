package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/lettersontherocks/AI-Interview/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

type SessionRepository struct {
	DB *gorm.DB
}

// WithTx runs fn against a repository bound to one transaction.
func (r *SessionRepository) WithTx(ctx context.Context, fn func(tx *SessionRepository) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&SessionRepository{DB: tx})
	})
}

func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	return r.DB.WithContext(ctx).Create(session).Error
}

func (r *SessionRepository) GetBySessionID(ctx context.Context, sessionID string) (*models.Session, error) {
	var session models.Session
	err := r.DB.WithContext(ctx).First(&session, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Save writes every field of an existing session.
func (r *SessionRepository) Save(ctx context.Context, session *models.Session) error {
	return r.DB.WithContext(ctx).Save(session).Error
}

func (r *SessionRepository) AppendTurn(ctx context.Context, turn *models.Turn) error {
	return r.DB.WithContext(ctx).Create(turn).Error
}

// Turns returns the transcript in sequence order.
func (r *SessionRepository) Turns(ctx context.Context, sessionID string) ([]models.Turn, error) {
	turns := []models.Turn{}
	err := r.DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("seq ASC").
		Find(&turns).Error
	return turns, err
}

// ListByUser returns a user's sessions, newest first.
func (r *SessionRepository) ListByUser(ctx context.Context, userID string) ([]models.Session, error) {
	sessions := []models.Session{}
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&sessions).Error
	return sessions, err
}

// Delivered reports whether the session holding reservationID has asked at least one question.
func (r *SessionRepository) Delivered(ctx context.Context, reservationID string) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Session{}).
		Where("reservation_id = ? AND question_count > 0", reservationID).
		Count(&n).Error
	return n > 0, err
}

// MarkAbandoned finishes the unstarted session holding reservationID. It returns
// the number of sessions changed.
func (r *SessionRepository) MarkAbandoned(ctx context.Context, reservationID string, at time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&models.Session{}).
		Where("reservation_id = ? AND is_finished = ? AND question_count = 0", reservationID, false).
		Updates(map[string]interface{}{
			"is_finished": true,
			"abandoned":   true,
			"state":       models.StateFinished,
			"finished_at": at,
		})
	return res.RowsAffected, res.Error
}
