package models

import "time"

// uniform error responses
type ErrorResponse struct {
	Code    string                  `json:"code"`
	Detail  string                  `json:"detail"`
	Details []ValidationErrorDetail `json:"details,omitempty"`
}

func (e *ErrorResponse) Error() string {
	return e.Detail
}

// single field validation error
type ValidationErrorDetail struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

type StartInterviewResponse struct {
	SessionID        string `json:"session_id"`
	Question         string `json:"question"`
	QuestionType     string `json:"question_type,omitempty"`
	InterviewerStyle string `json:"interviewer_style,omitempty"`
	AudioURL         string `json:"audio_url,omitempty"`
}

// AnswerResponse is stored verbatim per session so retries get identical bytes.
type AnswerResponse struct {
	NextQuestion *string  `json:"next_question"`
	InstantScore *float64 `json:"instant_score"`
	Hint         *string  `json:"hint"`
	IsFinished   bool     `json:"is_finished"`
	QuestionType string   `json:"question_type,omitempty"`
	AudioURL     string   `json:"audio_url,omitempty"`
}

type SessionSnapshot struct {
	SessionID        string           `json:"session_id"`
	Position         string           `json:"position"`
	Round            string           `json:"round"`
	InterviewerStyle string           `json:"interviewer_style,omitempty"`
	Resume           string           `json:"resume,omitempty"`
	QuestionCount    int              `json:"question_count"`
	CurrentQuestion  *string          `json:"current_question"`
	Transcript       []TranscriptItem `json:"transcript"`
	IsFinished       bool             `json:"is_finished"`
}

type HistoryItem struct {
	SessionID  string     `json:"session_id"`
	Position   string     `json:"position"`
	Round      string     `json:"round"`
	TotalScore *float64   `json:"total_score"`
	IsFinished bool       `json:"is_finished"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

type UserInfo struct {
	UserID         string     `json:"user_id"`
	OpenID         string     `json:"openid"`
	Nickname       string     `json:"nickname"`
	Avatar         string     `json:"avatar"`
	IsVIP          bool       `json:"is_vip"`
	VipType        string     `json:"vip_type"`
	VipExpireDate  *time.Time `json:"vip_expire_date"`
	FreeCountToday int        `json:"free_count_today"`
	// DailyLimit is -1 for unlimited tiers.
	DailyLimit   int       `json:"daily_limit"`
	ExtraCredits int       `json:"extra_credits"`
	CreatedAt    time.Time `json:"created_at"`
	Token        string    `json:"token,omitempty"`
}

type PositionInfo struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	Description  string   `json:"description" yaml:"description"`
	Keywords     []string `json:"keywords" yaml:"keywords"`
	CategoryName string   `json:"category_name" yaml:"-"`
	IsParent     bool     `json:"is_parent" yaml:"-"`
	HasChildren  bool     `json:"has_children" yaml:"-"`
	ParentID     string   `json:"parent_id,omitempty" yaml:"-"`
	ParentName   string   `json:"parent_name,omitempty" yaml:"-"`
}

type PositionCategory struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Icon      string         `json:"icon"`
	Positions []PositionInfo `json:"positions"`
}

type PositionsResponse struct {
	Categories []PositionCategory `json:"categories"`
}

type StyleInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type StylesResponse struct {
	Styles      []StyleInfo `json:"styles"`
	Recommended *string     `json:"recommended"`
}

type PurchaseResponse struct {
	OrderID       string     `json:"order_id"`
	UserID        string     `json:"user_id"`
	PaymentType   string     `json:"payment_type"`
	Status        string     `json:"status"`
	VipType       string     `json:"vip_type"`
	VipExpireDate *time.Time `json:"vip_expire_date"`
	ExtraCredits  int        `json:"extra_credits"`
}
