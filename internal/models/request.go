package models

import (
	"strings"
	"unicode/utf8"
)

const (
	maxResumeLength = 20000
	maxAnswerLength = 10000
)

type StartInterviewRequest struct {
	UserID           string `json:"user_id"`
	PositionID       string `json:"position_id"`
	Round            string `json:"round"`
	InterviewerStyle string `json:"interviewer_style,omitempty"`
	Resume           string `json:"resume,omitempty"`
}

// implements the Validator interface
func (r *StartInterviewRequest) Validate() error {
	r.UserID = strings.TrimSpace(r.UserID)
	r.PositionID = strings.TrimSpace(r.PositionID)
	r.InterviewerStyle = strings.TrimSpace(r.InterviewerStyle)

	if r.UserID == "" {
		return &ErrorResponse{Code: "missing_user_id", Detail: "user_id is required"}
	}
	if r.PositionID == "" {
		return &ErrorResponse{Code: "missing_position", Detail: "position_id is required"}
	}
	if strings.TrimSpace(r.Round) == "" {
		return &ErrorResponse{Code: "missing_round", Detail: "round is required"}
	}
	round, ok := NormalizeRound(r.Round)
	if !ok {
		return &ErrorResponse{
			Code:   "invalid_round",
			Detail: "round must be one of: " + strings.Join(Rounds, ", "),
		}
	}
	r.Round = round

	if r.InterviewerStyle != "" && !IsValidStyle(r.InterviewerStyle) {
		return &ErrorResponse{
			Code:   "invalid_interviewer_style",
			Detail: "interviewer_style must be one of: " + strings.Join(Styles, ", "),
		}
	}
	if utf8.RuneCountInString(r.Resume) > maxResumeLength {
		return &ErrorResponse{Code: "resume_too_long", Detail: "resume exceeds the maximum length"}
	}
	return nil
}

type AnswerRequest struct {
	SessionID       string `json:"session_id"`
	Answer          string `json:"answer"`
	FinishInterview bool   `json:"finish_interview"`
	// RequestID and QuestionSeq are optional idempotency tokens.
	RequestID   string `json:"request_id,omitempty"`
	QuestionSeq *int   `json:"question_seq,omitempty"`
}

func (r *AnswerRequest) Validate() error {
	r.SessionID = strings.TrimSpace(r.SessionID)
	if r.SessionID == "" {
		return &ErrorResponse{Code: "missing_session_id", Detail: "session_id is required"}
	}
	if strings.TrimSpace(r.Answer) == "" && !r.FinishInterview {
		return &ErrorResponse{Code: "missing_answer", Detail: "answer is required"}
	}
	if utf8.RuneCountInString(r.Answer) > maxAnswerLength {
		return &ErrorResponse{Code: "answer_too_long", Detail: "answer exceeds the maximum length"}
	}
	if r.QuestionSeq != nil && *r.QuestionSeq < 1 {
		return &ErrorResponse{Code: "invalid_question_seq", Detail: "question_seq must be positive"}
	}
	return nil
}

type RegisterRequest struct {
	OpenID   string `json:"openid"`
	Nickname string `json:"nickname,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

func (r *RegisterRequest) Validate() error {
	if strings.TrimSpace(r.OpenID) == "" {
		return &ErrorResponse{Code: "missing_openid", Detail: "openid is required"}
	}
	return nil
}

type WxLoginRequest struct {
	Code     string `json:"code"`
	Nickname string `json:"nickname,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

func (r *WxLoginRequest) Validate() error {
	if strings.TrimSpace(r.Code) == "" {
		return &ErrorResponse{Code: "missing_code", Detail: "code is required"}
	}
	return nil
}

type PurchaseRequest struct {
	OrderID     string  `json:"order_id"`
	UserID      string  `json:"user_id"`
	PaymentType string  `json:"payment_type"`
	Amount      float64 `json:"amount"`
}

func (r *PurchaseRequest) Validate() error {
	if strings.TrimSpace(r.OrderID) == "" {
		return &ErrorResponse{Code: "missing_order_id", Detail: "order_id is required"}
	}
	if strings.TrimSpace(r.UserID) == "" {
		return &ErrorResponse{Code: "missing_user_id", Detail: "user_id is required"}
	}
	if _, _, ok := ParsePaymentType(r.PaymentType); !ok {
		return &ErrorResponse{Code: "invalid_payment_type", Detail: "unsupported payment_type: " + r.PaymentType}
	}
	if r.Amount < 0 {
		return &ErrorResponse{Code: "invalid_amount", Detail: "amount must not be negative"}
	}
	return nil
}

var planDays = map[string]int{
	"month":   30,
	"quarter": 90,
	"half":    180,
	"year":    365,
}

// ParsePaymentType splits "<tier>_<period>" into a tier and a duration in days.
// "single" yields an empty tier and zero days.
func ParsePaymentType(paymentType string) (tier string, days int, ok bool) {
	if paymentType == PaymentSingle {
		return "", 0, true
	}
	tier, period, found := strings.Cut(paymentType, "_")
	if !found || (tier != TierNormal && tier != TierSuper) {
		return "", 0, false
	}
	days, ok = planDays[period]
	return tier, days, ok
}
