package models

import (
	"time"

	"gorm.io/gorm"
)

// Session is one interview attempt. Rows are never hard-deleted.
type Session struct {
	gorm.Model
	SessionID        string `gorm:"uniqueIndex;not null" json:"session_id"`
	UserID           string `gorm:"index;not null" json:"user_id"`
	PositionID       string `gorm:"not null" json:"position_id"`
	PositionName     string `json:"position"`
	Round            string `gorm:"not null" json:"round"`
	InterviewerStyle string `json:"interviewer_style"`
	Resume           string `gorm:"type:text" json:"resume,omitempty"`
	State            string `gorm:"not null;default:created" json:"state"`
	CurrentQuestion  string `gorm:"type:text" json:"current_question"`
	// QuestionCount is the sequence number of the current question, starting at 1.
	QuestionCount int    `gorm:"not null;default:0" json:"question_count"`
	CurrentTopic  int    `gorm:"not null;default:0" json:"-"`
	TopicAsked    int    `gorm:"not null;default:0" json:"-"`
	IsFinished    bool   `gorm:"index;not null;default:false" json:"is_finished"`
	Abandoned     bool   `gorm:"not null;default:false" json:"abandoned"`
	ReservationID string `gorm:"index" json:"-"`
	// LastToken and LastResponse hold the idempotency token and the encoded
	// response of the most recently applied answer.
	LastToken      string     `json:"-"`
	LastResponse   string     `gorm:"type:text" json:"-"`
	LastAnsweredAt *time.Time `json:"-"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

// Turn is one transcript entry, ordered by Seq within a session.
type Turn struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	SessionID    string    `gorm:"uniqueIndex:idx_turn_session_seq;not null" json:"-"`
	Seq          int       `gorm:"uniqueIndex:idx_turn_session_seq;not null" json:"seq"`
	QuestionSeq  int       `gorm:"not null" json:"question_seq"`
	Role         string    `gorm:"not null" json:"role"`
	Content      string    `gorm:"type:text" json:"content"`
	QuestionType string    `json:"question_type,omitempty"`
	Dimensions   []string  `gorm:"serializer:json;type:text" json:"dimensions,omitempty"`
	Score        *float64  `json:"score,omitempty"`
	Hint         *string   `gorm:"type:text" json:"hint,omitempty"`
	AudioURL     string    `json:"audio_url,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// TranscriptItem converts a turn into its wire form.
func (t Turn) TranscriptItem() TranscriptItem {
	return TranscriptItem{
		Role:         t.Role,
		Content:      t.Content,
		Timestamp:    t.Timestamp,
		Score:        t.Score,
		Hint:         t.Hint,
		QuestionType: t.QuestionType,
		AudioURL:     t.AudioURL,
	}
}
