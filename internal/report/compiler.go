package report

import (
	"math"
	"sort"
	"time"

	"github.com/lettersontherocks/AI-Interview/internal/models"
)

// MaxSuggestions caps the improvement suggestions in a report.
const MaxSuggestions = 3

// suggestionThreshold is the dimension score under which a suggestion is emitted.
const suggestionThreshold = 85.0

var suggestionTemplates = map[string]string{
	models.DimensionTechnicalSkill:    "加强核心技术栈的原理学习，回答时说明底层机制而不仅是用法。",
	models.DimensionCommunication:     "表达时先给结论再展开细节，控制节奏，让面试官更容易跟上。",
	models.DimensionLogicThinking:     "回答前先梳理思路，按“问题-分析-结论”的顺序组织内容。",
	models.DimensionProblemSolving:    "遇到开放问题时先拆解、再给出多个方案并比较取舍。",
	models.DimensionProjectExperience: "用STAR法则讲项目，突出个人贡献和可量化的结果。",
}

const keepItUp = "整体表现优秀，继续保持，可以尝试更高难度的面试轮次。"

// Compile builds the report of a finished session from its transcript.
//
// Unscored answers are excluded. Each scored answer counts toward every
// dimension its question is tagged with; a dimension no question covered takes the
// mean of all scored answers. Sub-scores and the total (the simple mean of the
// five sub-scores) are rounded to one decimal.
func Compile(sessionID, userID string, turns []models.Turn, now time.Time) *models.Report {
	tags := make(map[int][]string)
	for _, t := range turns {
		if t.Role == models.RoleInterviewer {
			tags[t.QuestionSeq] = t.Dimensions
		}
	}

	sums := make(map[string]float64, len(models.Dimensions))
	counts := make(map[string]int, len(models.Dimensions))
	var overall float64
	var scored int
	for _, t := range turns {
		if t.Role != models.RoleCandidate || t.Score == nil {
			continue
		}
		overall += *t.Score
		scored++
		for _, dim := range tags[t.QuestionSeq] {
			if models.IsValidDimension(dim) {
				sums[dim] += *t.Score
				counts[dim]++
			}
		}
	}

	var fallback float64
	if scored > 0 {
		fallback = overall / float64(scored)
	}

	scores := make(map[string]float64, len(models.Dimensions))
	var total float64
	for _, dim := range models.Dimensions {
		value := fallback
		if counts[dim] > 0 {
			value = sums[dim] / float64(counts[dim])
		}
		scores[dim] = round1(value)
		total += scores[dim]
	}

	transcript := make([]models.TranscriptItem, 0, len(turns))
	for _, t := range turns {
		transcript = append(transcript, t.TranscriptItem())
	}

	return &models.Report{
		SessionID:         sessionID,
		UserID:            userID,
		TotalScore:        TotalScore(scores),
		TechnicalSkill:    scores[models.DimensionTechnicalSkill],
		Communication:     scores[models.DimensionCommunication],
		LogicThinking:     scores[models.DimensionLogicThinking],
		ProblemSolving:    scores[models.DimensionProblemSolving],
		ProjectExperience: scores[models.DimensionProjectExperience],
		Suggestions:       Suggestions(scores),
		Transcript:        transcript,
		CreatedAt:         now,
	}
}

// TotalScore is the mean of the five dimension scores, rounded to one decimal.
func TotalScore(scores map[string]float64) float64 {
	var sum float64
	for _, dim := range models.Dimensions {
		sum += scores[dim]
	}
	return round1(sum / float64(len(models.Dimensions)))
}

// Suggestions lists templated advice for the weakest dimensions, lowest first.
func Suggestions(scores map[string]float64) []string {
	dims := append([]string(nil), models.Dimensions...)
	sort.SliceStable(dims, func(i, j int) bool {
		return scores[dims[i]] < scores[dims[j]]
	})

	suggestions := []string{}
	for _, dim := range dims {
		if len(suggestions) == MaxSuggestions {
			break
		}
		if scores[dim] < suggestionThreshold {
			suggestions = append(suggestions, suggestionTemplates[dim])
		}
	}
	if len(suggestions) == 0 {
		suggestions = append(suggestions, keepItUp)
	}
	return suggestions
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
