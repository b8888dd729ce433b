package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/lettersontherocks/AI-Interview/internal/llm"
	"github.com/lettersontherocks/AI-Interview/internal/prompts"
)

// Input is one answer in its question and position context.
type Input struct {
	Question     string
	Answer       string
	PositionName string
	Keywords     []string
	Dimensions   []string
}

type Result struct {
	Score float64
	Hint  string
}

// Scorer is the external scoring collaborator.
type Scorer interface {
	Score(ctx context.Context, in Input) (Result, error)
}

// LLMScorer asks an llm.Provider to grade the answer.
type LLMScorer struct {
	provider      llm.Provider
	promptManager prompts.PromptProvider
}

func NewLLMScorer(provider llm.Provider, promptManager prompts.PromptProvider) *LLMScorer {
	return &LLMScorer{provider: provider, promptManager: promptManager}
}

func (s *LLMScorer) Score(ctx context.Context, in Input) (Result, error) {
	prompt, err := s.promptManager.BuildPrompt("scoring", "default", map[string]interface{}{
		"Position":   in.PositionName,
		"Keywords":   strings.Join(in.Keywords, "、"),
		"Dimensions": strings.Join(in.Dimensions, ", "),
		"Question":   in.Question,
		"Answer":     in.Answer,
	})
	if err != nil {
		return Result{}, fmt.Errorf("build scoring prompt: %w", err)
	}

	resp, err := s.provider.GenerateContent(ctx, prompt, uuid.New().String())
	if err != nil {
		return Result{}, err
	}
	return parseScore(resp.Content)
}

var (
	jsonObject      = regexp.MustCompile(`(?s)\{.*\}`)
	errUnparsable   = errors.New("scorer reply has no score")
	errScoreInvalid = errors.New("scorer returned a non-numeric score")
)

func parseScore(content string) (Result, error) {
	match := jsonObject.FindString(content)
	if match == "" {
		return Result{}, errUnparsable
	}
	var payload struct {
		Score *float64 `json:"score"`
		Hint  string   `json:"hint"`
	}
	if err := json.Unmarshal([]byte(match), &payload); err != nil {
		return Result{}, fmt.Errorf("%w: %v", errUnparsable, err)
	}
	if payload.Score == nil {
		return Result{}, errUnparsable
	}
	if math.IsNaN(*payload.Score) || math.IsInf(*payload.Score, 0) {
		return Result{}, errScoreInvalid
	}
	return Result{Score: clamp(*payload.Score), Hint: strings.TrimSpace(payload.Hint)}, nil
}

func clamp(score float64) float64 {
	return math.Round(math.Max(0, math.Min(100, score)))
}

// KeywordScorer grades by answer length and position keyword coverage. It is
// deterministic and needs no collaborator.
type KeywordScorer struct{}

const (
	keywordBase       = 40.0
	lengthMaxPoints   = 30.0
	runesPerPoint     = 10
	keywordHitPoints  = 8.0
	keywordMaxPoints  = 30.0
	shortAnswerRunes  = 30
	lowScoreThreshold = 60.0
)

func (KeywordScorer) Score(_ context.Context, in Input) (Result, error) {
	answer := strings.TrimSpace(in.Answer)
	length := utf8.RuneCountInString(answer)
	if length == 0 {
		return Result{Score: 0, Hint: "这道题没有作答，建议至少说出自己的思路。"}, nil
	}

	score := keywordBase + math.Min(float64(length/runesPerPoint), lengthMaxPoints)

	lower := strings.ToLower(answer)
	hits := 0
	for _, kw := range in.Keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			hits++
		}
	}
	score += math.Min(float64(hits)*keywordHitPoints, keywordMaxPoints)
	score = clamp(score)

	var hint string
	switch {
	case length < shortAnswerRunes:
		hint = "回答偏短，可以补充具体的例子和细节。"
	case hits == 0 && len(in.Keywords) > 0:
		hint = "可以多结合岗位相关的技术点来展开，例如" + in.Keywords[0] + "。"
	case score < lowScoreThreshold:
		hint = "尝试用“背景-行动-结果”的结构组织回答。"
	}
	return Result{Score: score, Hint: hint}, nil
}
