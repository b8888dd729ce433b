package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lettersontherocks/AI-Interview/internal/entitlement"
	"github.com/lettersontherocks/AI-Interview/internal/events"
	"github.com/lettersontherocks/AI-Interview/internal/metrics"
	"github.com/lettersontherocks/AI-Interview/internal/models"
	"github.com/lettersontherocks/AI-Interview/internal/questionbank"
	"github.com/lettersontherocks/AI-Interview/internal/report"
	"github.com/lettersontherocks/AI-Interview/internal/repositories"
	"github.com/lettersontherocks/AI-Interview/internal/scoring"
)

// Finish reasons, used as metric labels.
const (
	finishRequested = "requested"
	finishCompleted = "completed"
	finishAbandoned = "abandoned"
)

// DefaultRetryWindow is how long an untokened repeat of the last answer counts as a retry.
const DefaultRetryWindow = time.Minute

const digestPrefix = "digest:"

type Options struct {
	MaxQuestions   int
	ReservationTTL time.Duration
	// RetryWindow limits digest-only duplicate detection to resubmissions
	// arriving soon after the answer was applied.
	RetryWindow time.Duration
}

// Orchestrator drives sessions through Created -> AwaitingAnswer -> (Scoring) ->
// AwaitingAnswer | Finished. Work on one session is serialized by the Locker.
type Orchestrator struct {
	sessions  *repositories.SessionRepository
	reports   *repositories.ReportRepository
	ledger    *entitlement.Ledger
	bank      *questionbank.Bank
	scorer    *scoring.Engine
	locker    Locker
	publisher events.Publisher
	opts      Options
	now       func() time.Time
	logger    *zap.Logger
}

func NewOrchestrator(
	sessions *repositories.SessionRepository,
	reports *repositories.ReportRepository,
	ledger *entitlement.Ledger,
	bank *questionbank.Bank,
	scorer *scoring.Engine,
	locker Locker,
	publisher events.Publisher,
	opts Options,
	logger *zap.Logger,
) *Orchestrator {
	if locker == nil {
		locker = NewKeyedMutex()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if opts.MaxQuestions < 1 {
		opts.MaxQuestions = 8
	}
	if opts.RetryWindow <= 0 {
		opts.RetryWindow = DefaultRetryWindow
	}
	return &Orchestrator{
		sessions:  sessions,
		reports:   reports,
		ledger:    ledger,
		bank:      bank,
		scorer:    scorer,
		locker:    locker,
		publisher: publisher,
		opts:      opts,
		now:       time.Now,
		logger:    logger,
	}
}

// SetClock replaces the time source.
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.now = now
}

func newSessionID() string {
	return "session_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
}

// Start admits a new session, asks the first question and commits the reservation.
func (o *Orchestrator) Start(ctx context.Context, req *models.StartInterviewRequest) (*models.StartInterviewResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, validationError(err)
	}
	if _, ok := o.bank.Catalog().Position(req.PositionID); !ok {
		return nil, &ValidationError{Response: &models.ErrorResponse{
			Code:   "unknown_position",
			Detail: "unknown position_id: " + req.PositionID,
		}}
	}
	style := req.InterviewerStyle
	if style == "" {
		style = o.bank.StylePolicy().Resolve("", req.Round).ID
	}

	reservation, err := o.ledger.CheckAndReserve(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	sess := &models.Session{
		SessionID:        newSessionID(),
		UserID:           req.UserID,
		PositionID:       req.PositionID,
		PositionName:     o.bank.Catalog().FullName(req.PositionID),
		Round:            req.Round,
		InterviewerStyle: style,
		Resume:           req.Resume,
		State:            models.StateCreated,
		ReservationID:    reservation.ID,
	}
	if err := o.sessions.Create(ctx, sess); err != nil {
		o.release(reservation.ID)
		return nil, fmt.Errorf("create session: %w", err)
	}

	q, err := o.bank.FirstQuestion(ctx, questionbank.Interview{
		PositionID: sess.PositionID,
		Round:      sess.Round,
		Style:      sess.InterviewerStyle,
		Resume:     sess.Resume,
	})
	if err != nil {
		if ctx.Err() != nil {
			// the reaper reclaims the reservation once it goes stale
			return nil, ctx.Err()
		}
		o.logger.Warn("First question unavailable, releasing reservation",
			zap.String("session_id", sess.SessionID),
			zap.Error(err))
		o.release(reservation.ID)
		if _, markErr := o.sessions.MarkAbandoned(context.Background(), reservation.ID, o.now()); markErr != nil {
			o.logger.Error("Failed to mark session abandoned", zap.String("session_id", sess.SessionID), zap.Error(markErr))
		}
		if errors.Is(err, questionbank.ErrGenerationUnavailable) {
			return nil, fmt.Errorf("%w: %v", ErrTemporarilyUnavailable, err)
		}
		return nil, err
	}

	now := o.now()
	err = o.sessions.WithTx(ctx, func(tx *repositories.SessionRepository) error {
		if err := tx.AppendTurn(ctx, interviewerTurn(sess.SessionID, 1, 1, q, now)); err != nil {
			return err
		}
		sess.State = models.StateAwaitingAnswer
		sess.CurrentQuestion = q.Text
		sess.QuestionCount = 1
		sess.CurrentTopic = q.TopicIndex
		sess.TopicAsked = q.TopicAsked
		return tx.Save(ctx, sess)
	})
	if err != nil {
		o.release(reservation.ID)
		return nil, fmt.Errorf("store first question: %w", err)
	}

	o.commit(ctx, sess.SessionID, reservation.ID)

	metrics.SessionsStarted.WithLabelValues(sess.Round).Inc()
	o.logger.Info("Interview started",
		zap.String("session_id", sess.SessionID),
		zap.String("user_id", sess.UserID),
		zap.String("position_id", sess.PositionID),
		zap.String("round", sess.Round),
		zap.Bool("fallback_question", q.Fallback))

	return &models.StartInterviewResponse{
		SessionID:        sess.SessionID,
		Question:         q.Text,
		QuestionType:     q.Topic,
		InterviewerStyle: sess.InterviewerStyle,
	}, nil
}

// commit consumes the reservation of a session whose first question is stored.
// A failed commit is retried once without the request deadline; if that fails
// too the reaper commits it later instead of refunding it.
func (o *Orchestrator) commit(ctx context.Context, sessionID, reservationID string) {
	err := o.ledger.Commit(ctx, reservationID)
	if err == nil {
		return
	}
	retryCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if retryErr := o.ledger.Commit(retryCtx, reservationID); retryErr != nil {
		o.logger.Warn("Failed to commit reservation, leaving it to the reaper",
			zap.String("session_id", sessionID),
			zap.String("reservation_id", reservationID),
			zap.Error(errors.Join(err, retryErr)))
	}
}

func (o *Orchestrator) release(reservationID string) {
	if err := o.ledger.Release(context.Background(), reservationID); err != nil {
		o.logger.Error("Failed to release reservation", zap.String("reservation_id", reservationID), zap.Error(err))
	}
}

func interviewerTurn(sessionID string, seq, questionSeq int, q questionbank.Question, at time.Time) *models.Turn {
	return &models.Turn{
		SessionID:    sessionID,
		Seq:          seq,
		QuestionSeq:  questionSeq,
		Role:         models.RoleInterviewer,
		Content:      q.Text,
		QuestionType: q.Topic,
		Dimensions:   q.Dimensions,
		Timestamp:    at,
	}
}

// SubmitAnswer records an answer, scores it and either asks the next question
// or finishes the session. A retry carrying the token of the last applied
// answer gets the stored response back unchanged.
func (o *Orchestrator) SubmitAnswer(ctx context.Context, req *models.AnswerRequest) (*models.AnswerResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, validationError(err)
	}

	unlock, err := o.locker.Lock(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, err := o.getSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	if sess.IsFinished {
		metrics.AnswersSubmitted.WithLabelValues("already_finished").Inc()
		return storedResponse(sess)
	}
	if o.isDuplicate(req, sess) {
		metrics.AnswersSubmitted.WithLabelValues("duplicate").Inc()
		return storedResponse(sess)
	}
	if sess.State != models.StateAwaitingAnswer ||
		(req.QuestionSeq != nil && *req.QuestionSeq != sess.QuestionCount) {
		return nil, ErrStaleTurn
	}

	answeredSeq := sess.QuestionCount
	turns, err := o.sessions.Turns(ctx, sess.SessionID)
	if err != nil {
		return nil, err
	}
	current := lastInterviewerTurn(turns)
	now := o.now()
	sess.State = models.StateScoring

	answer := strings.TrimSpace(req.Answer)
	var candidate *models.Turn
	if answer != "" {
		candidate = &models.Turn{
			SessionID:   sess.SessionID,
			Seq:         len(turns) + 1,
			QuestionSeq: sess.QuestionCount,
			Role:        models.RoleCandidate,
			Content:     answer,
			Timestamp:   now,
		}
		candidate.Score, candidate.Hint = o.scorer.Score(ctx, scoring.Input{
			Question:     current.Content,
			Answer:       answer,
			PositionName: sess.PositionName,
			Keywords:     o.bank.Catalog().Keywords(sess.PositionID),
			Dimensions:   current.Dimensions,
		})
		turns = append(turns, *candidate)
	}

	resp := &models.AnswerResponse{}
	if candidate != nil {
		resp.InstantScore = candidate.Score
		resp.Hint = candidate.Hint
	}

	finishReason := ""
	var next questionbank.Question
	switch {
	case req.FinishInterview:
		finishReason = finishRequested
	case sess.QuestionCount >= o.opts.MaxQuestions:
		finishReason = finishCompleted
	default:
		var end bool
		next, end, err = o.bank.NextQuestion(ctx, questionbank.Interview{
			PositionID:    sess.PositionID,
			Round:         sess.Round,
			Style:         sess.InterviewerStyle,
			Resume:        sess.Resume,
			QuestionCount: sess.QuestionCount,
			TopicIndex:    sess.CurrentTopic,
			TopicAsked:    sess.TopicAsked,
			Transcript:    turns,
		}, answer, resp.InstantScore)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, questionbank.ErrGenerationUnavailable) {
				return nil, fmt.Errorf("%w: %v", ErrTemporarilyUnavailable, err)
			}
			return nil, err
		}
		if end {
			finishReason = finishCompleted
		}
	}

	var stored *models.Report
	if finishReason != "" {
		resp.IsFinished = true
		sess.State = models.StateFinished
		sess.IsFinished = true
		sess.CurrentQuestion = ""
		sess.FinishedAt = &now
	} else {
		nextText := next.Text
		resp.NextQuestion = &nextText
		resp.QuestionType = next.Topic
		sess.State = models.StateAwaitingAnswer
		sess.QuestionCount++
		sess.CurrentQuestion = next.Text
		sess.CurrentTopic = next.TopicIndex
		sess.TopicAsked = next.TopicAsked
		turns = append(turns, *interviewerTurn(sess.SessionID, len(turns)+1, sess.QuestionCount, next, now))
	}

	encoded, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	sess.LastToken = idempotencyToken(req, answeredSeq)
	sess.LastResponse = string(encoded)
	sess.LastAnsweredAt = &now

	err = o.sessions.WithTx(ctx, func(tx *repositories.SessionRepository) error {
		if candidate != nil {
			if err := tx.AppendTurn(ctx, candidate); err != nil {
				return err
			}
		}
		if finishReason == "" {
			if err := tx.AppendTurn(ctx, &turns[len(turns)-1]); err != nil {
				return err
			}
		} else {
			compiled := report.Compile(sess.SessionID, sess.UserID, turns, now)
			reports := &repositories.ReportRepository{DB: tx.DB}
			var createErr error
			if stored, createErr = reports.Create(ctx, compiled); createErr != nil {
				return fmt.Errorf("store report: %w", createErr)
			}
		}
		return tx.Save(ctx, sess)
	})
	if err != nil {
		return nil, err
	}

	if finishReason != "" {
		metrics.AnswersSubmitted.WithLabelValues("finished").Inc()
		o.finished(sess, stored, finishReason)
	} else {
		metrics.AnswersSubmitted.WithLabelValues("next_question").Inc()
	}
	return resp, nil
}

func (o *Orchestrator) finished(sess *models.Session, stored *models.Report, reason string) {
	metrics.SessionsFinished.WithLabelValues(reason).Inc()
	o.logger.Info("Interview finished",
		zap.String("session_id", sess.SessionID),
		zap.String("reason", reason),
		zap.Int("question_count", sess.QuestionCount))

	event := events.SessionFinishedEvent{
		SessionID:     sess.SessionID,
		UserID:        sess.UserID,
		Position:      sess.PositionName,
		Round:         sess.Round,
		QuestionCount: sess.QuestionCount,
		Abandoned:     sess.Abandoned,
		FinishedAt:    o.now(),
	}
	if sess.FinishedAt != nil {
		event.FinishedAt = *sess.FinishedAt
	}
	if stored != nil {
		total := stored.TotalScore
		event.TotalScore = &total
	}
	if err := o.publisher.PublishSessionFinished(context.Background(), event); err != nil {
		o.logger.Warn("Failed to publish session finished event", zap.String("session_id", sess.SessionID), zap.Error(err))
	}
}

func lastInterviewerTurn(turns []models.Turn) models.Turn {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == models.RoleInterviewer {
			return turns[i]
		}
	}
	return models.Turn{}
}

// idempotencyToken identifies an answer to question seq: the client request id,
// else the question sequence, else a digest of the answer text.
func idempotencyToken(req *models.AnswerRequest, seq int) string {
	if req.RequestID != "" {
		return "req:" + req.RequestID
	}
	if req.QuestionSeq != nil {
		return "seq:" + strconv.Itoa(*req.QuestionSeq)
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d\x00%t\x00%s", seq, req.FinishInterview, strings.TrimSpace(req.Answer))))
	return digestPrefix + hex.EncodeToString(sum[:16])
}

// isDuplicate reports whether req repeats the last applied answer, which
// answered the question before the current one. A match on the answer digest
// alone only counts within RetryWindow, so the same short answer given to the
// next question later on is applied as a new answer.
func (o *Orchestrator) isDuplicate(req *models.AnswerRequest, sess *models.Session) bool {
	if sess.LastToken == "" {
		return false
	}
	token := idempotencyToken(req, sess.QuestionCount-1)
	if token != sess.LastToken {
		return false
	}
	if !strings.HasPrefix(token, digestPrefix) {
		return true
	}
	return sess.LastAnsweredAt != nil && o.now().Sub(*sess.LastAnsweredAt) <= o.opts.RetryWindow
}

func storedResponse(sess *models.Session) (*models.AnswerResponse, error) {
	if sess.LastResponse == "" {
		return &models.AnswerResponse{IsFinished: sess.IsFinished}, nil
	}
	var resp models.AnswerResponse
	if err := json.Unmarshal([]byte(sess.LastResponse), &resp); err != nil {
		return nil, fmt.Errorf("decode stored response: %w", err)
	}
	return &resp, nil
}

func (o *Orchestrator) getSession(ctx context.Context, sessionID string) (*models.Session, error) {
	sess, err := o.sessions.GetBySessionID(ctx, sessionID)
	if errors.Is(err, repositories.ErrSessionNotFound) {
		return nil, ErrSessionNotFound
	}
	return sess, err
}

// SessionOwner returns the user a session belongs to.
func (o *Orchestrator) SessionOwner(ctx context.Context, sessionID string) (string, error) {
	sess, err := o.getSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return sess.UserID, nil
}

// Resume returns everything a reconnecting client needs, in any state.
func (o *Orchestrator) Resume(ctx context.Context, sessionID string) (*models.SessionSnapshot, error) {
	unlock, err := o.locker.Lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, err := o.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	turns, err := o.sessions.Turns(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	snapshot := &models.SessionSnapshot{
		SessionID:        sess.SessionID,
		Position:         sess.PositionName,
		Round:            sess.Round,
		InterviewerStyle: sess.InterviewerStyle,
		Resume:           sess.Resume,
		QuestionCount:    sess.QuestionCount,
		Transcript:       make([]models.TranscriptItem, 0, len(turns)),
		IsFinished:       sess.IsFinished,
	}
	for _, t := range turns {
		snapshot.Transcript = append(snapshot.Transcript, t.TranscriptItem())
	}
	if !sess.IsFinished && sess.CurrentQuestion != "" {
		current := sess.CurrentQuestion
		snapshot.CurrentQuestion = &current
	}
	return snapshot, nil
}

// Report returns the stored report of a finished session.
func (o *Orchestrator) Report(ctx context.Context, sessionID string) (*models.Report, error) {
	stored, err := o.reports.GetBySessionID(ctx, sessionID)
	if err == nil {
		return stored, nil
	}
	if !errors.Is(err, repositories.ErrReportNotFound) {
		return nil, err
	}
	if _, err := o.getSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return nil, ErrReportNotFound
}

// History lists the user's sessions newest first, skipping starts that never
// produced a question.
func (o *Orchestrator) History(ctx context.Context, userID string) ([]models.HistoryItem, error) {
	sessions, err := o.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.SessionID)
	}
	totals, err := o.reports.TotalsBySession(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]models.HistoryItem, 0, len(sessions))
	for _, s := range sessions {
		if s.Abandoned {
			continue
		}
		item := models.HistoryItem{
			SessionID:  s.SessionID,
			Position:   s.PositionName,
			Round:      s.Round,
			IsFinished: s.IsFinished,
			CreatedAt:  s.CreatedAt,
			FinishedAt: s.FinishedAt,
		}
		if total, ok := totals[s.SessionID]; ok {
			item.TotalScore = &total
		}
		items = append(items, item)
	}
	return items, nil
}

// ReclaimAbandoned releases reservations older than the reservation TTL whose
// session never delivered a first question, and finishes those sessions.
// Stale reservations whose session did deliver a question are committed.
func (o *Orchestrator) ReclaimAbandoned(ctx context.Context) (int, error) {
	now := o.now()
	stale, err := o.ledger.Stale(ctx, now.Add(-o.opts.ReservationTTL))
	if err != nil {
		return 0, err
	}

	reclaimed := 0
	for _, r := range stale {
		delivered, err := o.sessions.Delivered(ctx, r.ID)
		if err != nil {
			o.logger.Error("Failed to inspect stale reservation", zap.String("reservation_id", r.ID), zap.Error(err))
			continue
		}
		if delivered {
			if err := o.ledger.Commit(ctx, r.ID); err != nil {
				o.logger.Error("Failed to commit delivered reservation", zap.String("reservation_id", r.ID), zap.Error(err))
			} else {
				o.logger.Info("Committed reservation of a started session", zap.String("reservation_id", r.ID))
			}
			continue
		}
		if err := o.ledger.Release(ctx, r.ID); err != nil {
			o.logger.Error("Failed to release stale reservation", zap.String("reservation_id", r.ID), zap.Error(err))
			continue
		}
		if _, err := o.sessions.MarkAbandoned(ctx, r.ID, now); err != nil {
			o.logger.Error("Failed to mark session abandoned", zap.String("reservation_id", r.ID), zap.Error(err))
		}
		reclaimed++
		metrics.ReservationsReclaimed.Inc()
		metrics.SessionsFinished.WithLabelValues(finishAbandoned).Inc()
	}
	return reclaimed, nil
}
