package models

import "time"

// Report is the final evaluation of a finished session, created once.
type Report struct {
	ID                uint             `gorm:"primaryKey" json:"-"`
	SessionID         string           `gorm:"uniqueIndex;not null" json:"session_id"`
	UserID            string           `gorm:"index" json:"-"`
	TotalScore        float64          `json:"total_score"`
	TechnicalSkill    float64          `json:"technical_skill"`
	Communication     float64          `json:"communication"`
	LogicThinking     float64          `json:"logic_thinking"`
	ProblemSolving    float64          `json:"problem_solving"`
	ProjectExperience float64          `json:"project_experience"`
	Suggestions       []string         `gorm:"serializer:json;type:text" json:"suggestions"`
	Transcript        []TranscriptItem `gorm:"serializer:json;type:text" json:"transcript"`
	CreatedAt         time.Time        `json:"created_at"`
}

// DimensionScore returns the sub-score for a named dimension.
func (r *Report) DimensionScore(dim string) float64 {
	switch dim {
	case DimensionTechnicalSkill:
		return r.TechnicalSkill
	case DimensionCommunication:
		return r.Communication
	case DimensionLogicThinking:
		return r.LogicThinking
	case DimensionProblemSolving:
		return r.ProblemSolving
	case DimensionProjectExperience:
		return r.ProjectExperience
	}
	return 0
}

type TranscriptItem struct {
	Role         string    `json:"role"`
	Content      string    `json:"content"`
	Timestamp    time.Time `json:"timestamp"`
	Score        *float64  `json:"score,omitempty"`
	Hint         *string   `json:"hint,omitempty"`
	QuestionType string    `json:"question_type,omitempty"`
	AudioURL     string    `json:"audio_url,omitempty"`
}
