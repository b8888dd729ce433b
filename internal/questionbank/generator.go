package questionbank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/lettersontherocks/AI-Interview/internal/llm"
	"github.com/lettersontherocks/AI-Interview/internal/models"
	"github.com/lettersontherocks/AI-Interview/internal/prompts"
)

// GenerationRequest carries everything a generator may use to write the next question.
type GenerationRequest struct {
	Opening        bool
	PositionName   string
	Keywords       []string
	Round          string
	Style          StyleDefinition
	Resume         string
	QuestionNumber int
	MaxQuestions   int
	Topic          Topic
	NextTopic      *Topic
	Transcript     []models.Turn
	LastAnswer     string
	LastScore      *float64
}

type GeneratedQuestion struct {
	Feedback string
	Question string
	// FollowUp is true when the question stays on the current topic.
	FollowUp bool
}

// Text is the interviewer utterance: short feedback, then the question.
func (g *GeneratedQuestion) Text() string {
	if g.Feedback == "" {
		return g.Question
	}
	return g.Feedback + "\n\n" + g.Question
}

// Generator is the external question-generation collaborator.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (*GeneratedQuestion, error)
}

// LLMGenerator writes questions with an llm.Provider.
type LLMGenerator struct {
	provider      llm.Provider
	promptManager prompts.PromptProvider
}

func NewLLMGenerator(provider llm.Provider, promptManager prompts.PromptProvider) *LLMGenerator {
	return &LLMGenerator{provider: provider, promptManager: promptManager}
}

type questionPrompt struct {
	Position             string
	Round                string
	StyleName            string
	Personality          string
	FeedbackExample      string
	Keywords             string
	Resume               string
	QuestionNumber       int
	MaxQuestions         int
	Topic                string
	TopicDescription     string
	NextTopic            string
	NextTopicDescription string
	Transcript           string
	LastAnswer           string
	HasLastScore         bool
	LastScore            float64
}

// maxTranscriptTurns bounds how much history goes into a prompt.
const maxTranscriptTurns = 6

func (g *LLMGenerator) Generate(ctx context.Context, req GenerationRequest) (*GeneratedQuestion, error) {
	data := questionPrompt{
		Position:         req.PositionName,
		Round:            req.Round,
		StyleName:        req.Style.Name,
		Personality:      req.Style.Personality,
		Keywords:         strings.Join(req.Keywords, "、"),
		Resume:           req.Resume,
		QuestionNumber:   req.QuestionNumber,
		MaxQuestions:     req.MaxQuestions,
		Topic:            req.Topic.Name,
		TopicDescription: req.Topic.Description,
		Transcript:       formatTranscript(req.Transcript, maxTranscriptTurns),
		LastAnswer:       req.LastAnswer,
	}
	if len(req.Style.FeedbackExamples) > 0 {
		data.FeedbackExample = req.Style.FeedbackExamples[0]
	}
	if req.NextTopic != nil {
		data.NextTopic = req.NextTopic.Name
		data.NextTopicDescription = req.NextTopic.Description
	}
	if req.LastScore != nil {
		data.HasLastScore = true
		data.LastScore = *req.LastScore
	}

	variant := "next"
	if req.Opening {
		variant = "opening"
	}
	prompt, err := g.promptManager.BuildPrompt("question", variant, data)
	if err != nil {
		return nil, fmt.Errorf("build question prompt: %w", err)
	}

	resp, err := g.provider.GenerateContent(ctx, prompt, uuid.New().String())
	if err != nil {
		return nil, err
	}
	return parseGeneratedQuestion(resp.Content)
}

var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

type questionPayload struct {
	Feedback       string `json:"feedback"`
	Question       string `json:"question"`
	NextQuestion   string `json:"next_question"`
	Action         string `json:"action"`
	TopicCompleted bool   `json:"topic_completed"`
}

var errEmptyQuestion = errors.New("generator returned no question")

// parseGeneratedQuestion reads the JSON object out of a model reply. Replies
// without valid JSON are taken as the question text itself.
func parseGeneratedQuestion(content string) (*GeneratedQuestion, error) {
	content = strings.TrimSpace(content)
	if match := jsonObject.FindString(content); match != "" {
		var payload questionPayload
		if err := json.Unmarshal([]byte(match), &payload); err == nil {
			question := strings.TrimSpace(payload.Question)
			if question == "" {
				question = strings.TrimSpace(payload.NextQuestion)
			}
			if question == "" {
				return nil, errEmptyQuestion
			}
			return &GeneratedQuestion{
				Feedback: strings.TrimSpace(payload.Feedback),
				Question: question,
				FollowUp: payload.Action == "follow_up" && !payload.TopicCompleted,
			}, nil
		}
	}
	if content == "" {
		return nil, errEmptyQuestion
	}
	return &GeneratedQuestion{Question: content}, nil
}

func formatTranscript(turns []models.Turn, limit int) string {
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	var b strings.Builder
	for _, t := range turns {
		speaker := "候选人"
		if t.Role == models.RoleInterviewer {
			speaker = "面试官"
		}
		b.WriteString(speaker)
		b.WriteString(": ")
		b.WriteString(t.Content)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
