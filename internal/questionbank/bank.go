package questionbank

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lettersontherocks/AI-Interview/internal/metrics"
	"github.com/lettersontherocks/AI-Interview/internal/models"
)

// ErrGenerationUnavailable is returned when every generation attempt failed and fallbacks are disabled.
var ErrGenerationUnavailable = errors.New("question generation unavailable")

var (
	errNoGenerator = errors.New("no question generator configured")
	errNoTimeLeft  = errors.New("request deadline leaves no time for generation")
)

// DefaultStoreHeadroom is the time kept back from the request deadline for storing the question.
const DefaultStoreHeadroom = 2 * time.Second

// followUpThreshold is the instant score under which a fallback question stays on the current topic.
const followUpThreshold = 60

// Question is an interviewer turn together with its plan position and dimension tags.
type Question struct {
	Text       string
	Topic      string
	TopicIndex int
	// TopicAsked counts questions asked on Topic, this one included.
	TopicAsked int
	Dimensions []string
	Fallback   bool
}

// Interview is the session context the bank needs.
type Interview struct {
	PositionID string
	Round      string
	Style      string
	Resume     string
	// QuestionCount is the sequence number of the question just answered.
	QuestionCount int
	TopicIndex    int
	TopicAsked    int
	Transcript    []models.Turn
}

type Options struct {
	MaxQuestions      int
	GenerationTimeout time.Duration
	Attempts          int
	Fallback          bool
	// StoreHeadroom is left on the caller's deadline after the last attempt so
	// a fallback question can still be persisted.
	StoreHeadroom time.Duration
}

type Bank struct {
	catalog   *Catalog
	styles    *StylePolicy
	plans     *Plans
	generator Generator
	policy    TerminationPolicy
	opts      Options
	logger    *zap.Logger
}

// NewBank wires the bank. generator may be nil, in which case only fallback questions are asked.
func NewBank(catalog *Catalog, styles *StylePolicy, plans *Plans, generator Generator, policy TerminationPolicy, opts Options, logger *zap.Logger) *Bank {
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	if opts.MaxQuestions < 1 {
		opts.MaxQuestions = 8
	}
	if opts.StoreHeadroom <= 0 {
		opts.StoreHeadroom = DefaultStoreHeadroom
	}
	if policy == nil {
		policy = MaxQuestions{Max: opts.MaxQuestions}
	}
	return &Bank{
		catalog:   catalog,
		styles:    styles,
		plans:     plans,
		generator: generator,
		policy:    policy,
		opts:      opts,
		logger:    logger,
	}
}

// Load builds the catalog, style policy and plans from the embedded data.
func Load() (*Catalog, *StylePolicy, *Plans, error) {
	catalog, err := LoadCatalog()
	if err != nil {
		return nil, nil, nil, err
	}
	styles, err := LoadStylePolicy()
	if err != nil {
		return nil, nil, nil, err
	}
	plans, err := LoadPlans()
	if err != nil {
		return nil, nil, nil, err
	}
	return catalog, styles, plans, nil
}

func (b *Bank) Catalog() *Catalog         { return b.catalog }
func (b *Bank) StylePolicy() *StylePolicy { return b.styles }

// RecommendStyle is the static round -> style lookup.
func (b *Bank) RecommendStyle(round string) (string, bool) {
	return b.styles.RecommendStyle(round)
}

// FirstQuestion produces the opening question of a new interview.
func (b *Bank) FirstQuestion(ctx context.Context, in Interview) (Question, error) {
	plan, err := b.plan(in.Round)
	if err != nil {
		return Question{}, err
	}
	topic := plan.Topic(0)
	req := b.request(in, plan, 0)
	req.Opening = true
	req.QuestionNumber = 1

	gen, err := b.tryGenerate(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Question{}, ctxErr
		}
		if !b.opts.Fallback {
			return Question{}, fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
		}
		return b.fallbackQuestion(topic, 0, 1, in.Transcript), nil
	}
	return Question{
		Text:       gen.Text(),
		Topic:      topic.Name,
		TopicIndex: 0,
		TopicAsked: 1,
		Dimensions: topic.Dimensions,
	}, nil
}

// NextQuestion returns the following question, or end=true when the termination policy ends the interview.
func (b *Bank) NextQuestion(ctx context.Context, in Interview, lastAnswer string, lastScore *float64) (q Question, end bool, err error) {
	plan, err := b.plan(in.Round)
	if err != nil {
		return Question{}, false, err
	}

	progress := Progress{
		Answered:   in.QuestionCount,
		TopicIndex: in.TopicIndex,
		TopicCount: len(plan.Topics),
		LastScore:  lastScore,
	}
	if b.policy.ShouldEnd(progress) {
		return Question{}, true, nil
	}

	current := plan.Topic(in.TopicIndex)
	hasNext := in.TopicIndex+1 < len(plan.Topics)

	req := b.request(in, plan, in.TopicIndex)
	req.QuestionNumber = in.QuestionCount + 1
	req.LastAnswer = lastAnswer
	req.LastScore = lastScore

	gen, genErr := b.tryGenerate(ctx, req)
	if genErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Question{}, false, ctxErr
		}
		if !b.opts.Fallback {
			return Question{}, false, fmt.Errorf("%w: %v", ErrGenerationUnavailable, genErr)
		}
	}

	var followUp bool
	if gen != nil {
		followUp = gen.FollowUp
	} else {
		followUp = lastScore != nil && *lastScore < followUpThreshold
	}

	index, asked := in.TopicIndex+1, 1
	if !hasNext || (followUp && in.TopicAsked < current.Budget) {
		index, asked = in.TopicIndex, in.TopicAsked+1
	}
	target := plan.Topic(index)

	if gen == nil {
		return b.fallbackQuestion(target, index, asked, in.Transcript), false, nil
	}
	return Question{
		Text:       gen.Text(),
		Topic:      target.Name,
		TopicIndex: index,
		TopicAsked: asked,
		Dimensions: target.Dimensions,
	}, false, nil
}

func (b *Bank) plan(round string) (*Plan, error) {
	plan, ok := b.plans.For(round)
	if !ok {
		return nil, fmt.Errorf("no interview plan for round %q", round)
	}
	return plan, nil
}

func (b *Bank) request(in Interview, plan *Plan, topicIndex int) GenerationRequest {
	req := GenerationRequest{
		PositionName: b.catalog.FullName(in.PositionID),
		Keywords:     b.catalog.Keywords(in.PositionID),
		Round:        in.Round,
		Style:        b.styles.Resolve(in.Style, in.Round),
		Resume:       in.Resume,
		MaxQuestions: b.opts.MaxQuestions,
		Topic:        plan.Topic(topicIndex),
		Transcript:   in.Transcript,
	}
	if topicIndex+1 < len(plan.Topics) {
		next := plan.Topics[topicIndex+1]
		req.NextTopic = &next
	}
	return req
}

// tryGenerate calls the generator up to Attempts times. Each attempt is bounded
// by GenerationTimeout and by what is left of ctx minus StoreHeadroom, so running
// out of attempts never expires the caller's context.
func (b *Bank) tryGenerate(ctx context.Context, req GenerationRequest) (*GeneratedQuestion, error) {
	if b.generator == nil {
		return nil, errNoGenerator
	}

	var lastErr error
	for attempt := 1; attempt <= b.opts.Attempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		timeout, ok := b.attemptTimeout(ctx)
		if !ok {
			if lastErr == nil {
				lastErr = errNoTimeLeft
			}
			break
		}
		gen, err := b.generateOnce(ctx, req, timeout)
		if err == nil {
			return gen, nil
		}
		lastErr = err
		b.logger.Warn("Question generation failed",
			zap.Int("attempt", attempt),
			zap.Int("question_number", req.QuestionNumber),
			zap.Error(err))
	}
	metrics.CollaboratorFallbacks.WithLabelValues("generation").Inc()
	return nil, lastErr
}

// attemptTimeout returns the bound for the next attempt, or false when the
// deadline on ctx is closer than StoreHeadroom.
func (b *Bank) attemptTimeout(ctx context.Context) (time.Duration, bool) {
	timeout := b.opts.GenerationTimeout
	deadline, ok := ctx.Deadline()
	if !ok {
		return timeout, true
	}
	left := time.Until(deadline) - b.opts.StoreHeadroom
	if left <= 0 {
		return 0, false
	}
	if timeout <= 0 || left < timeout {
		timeout = left
	}
	return timeout, true
}

func (b *Bank) generateOnce(ctx context.Context, req GenerationRequest, timeout time.Duration) (*GeneratedQuestion, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	defer metrics.ObserveCollaborator("generation", time.Now())
	return b.generator.Generate(ctx, req)
}

// fallbackQuestion picks a generic topic question not yet asked in this session when possible.
func (b *Bank) fallbackQuestion(topic Topic, index, asked int, transcript []models.Turn) Question {
	seen := make(map[string]bool, len(transcript))
	for _, t := range transcript {
		if t.Role == models.RoleInterviewer {
			seen[t.Content] = true
		}
	}

	text := topic.FallbackQuestion(asked - 1)
	for i := 0; i < len(topic.Fallback); i++ {
		candidate := topic.FallbackQuestion(asked - 1 + i)
		if !seen[candidate] {
			text = candidate
			break
		}
	}
	return Question{
		Text:       text,
		Topic:      topic.Name,
		TopicIndex: index,
		TopicAsked: asked,
		Dimensions: topic.Dimensions,
		Fallback:   true,
	}
}
