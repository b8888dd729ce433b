package questionbank

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/lettersontherocks/AI-Interview/internal/models"
)

// Topic is one stage of an interview plan.
type Topic struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Dimensions  []string `yaml:"dimensions"`
	Budget      int      `yaml:"budget"`
	Fallback    []string `yaml:"fallback"`
}

// FallbackQuestion returns the generic question for the n-th question asked on this topic.
func (t Topic) FallbackQuestion(n int) string {
	if len(t.Fallback) == 0 {
		return "请结合你的经历，谈谈你对「" + t.Name + "」的理解。"
	}
	return t.Fallback[n%len(t.Fallback)]
}

type Plan struct {
	Name   string
	Rounds []string `yaml:"rounds"`
	Topics []Topic  `yaml:"topics"`
}

// Topic clamps index into the plan.
func (p *Plan) Topic(index int) Topic {
	if index < 0 {
		index = 0
	}
	if index >= len(p.Topics) {
		index = len(p.Topics) - 1
	}
	return p.Topics[index]
}

type Plans struct {
	byRound map[string]*Plan
}

func LoadPlans() (*Plans, error) {
	data, err := dataFS.ReadFile("data/plans.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read plans: %w", err)
	}

	var file struct {
		Plans map[string]*Plan `yaml:"plans"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse plans: %w", err)
	}

	plans := &Plans{byRound: make(map[string]*Plan)}
	for name, plan := range file.Plans {
		plan.Name = name
		if len(plan.Topics) == 0 {
			return nil, fmt.Errorf("plan %s has no topics", name)
		}
		for i := range plan.Topics {
			topic := &plan.Topics[i]
			if topic.Budget < 1 {
				topic.Budget = 1
			}
			for _, dim := range topic.Dimensions {
				if !models.IsValidDimension(dim) {
					return nil, fmt.Errorf("plan %s topic %s: unknown dimension %q", name, topic.Name, dim)
				}
			}
		}
		for _, round := range plan.Rounds {
			plans.byRound[round] = plan
		}
	}
	for _, round := range models.Rounds {
		if _, ok := plans.byRound[round]; !ok {
			return nil, fmt.Errorf("no plan covers round %s", round)
		}
	}
	return plans, nil
}

func (p *Plans) For(round string) (*Plan, bool) {
	canonical, ok := models.NormalizeRound(round)
	if !ok {
		return nil, false
	}
	plan, ok := p.byRound[canonical]
	return plan, ok
}
