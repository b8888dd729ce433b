package questionbank

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/lettersontherocks/AI-Interview/internal/models"
)

// StyleDefinition is an interviewer persona and the prompt material that goes with it.
type StyleDefinition struct {
	ID               string   `yaml:"id"`
	Name             string   `yaml:"name"`
	Description      string   `yaml:"description"`
	Icon             string   `yaml:"icon"`
	Personality      string   `yaml:"personality"`
	FeedbackExamples []string `yaml:"feedback_examples"`
}

func (s StyleDefinition) Info() models.StyleInfo {
	return models.StyleInfo{ID: s.ID, Name: s.Name, Description: s.Description, Icon: s.Icon}
}

// StylePolicy holds the style catalog and the static round -> style table.
type StylePolicy struct {
	styles          []StyleDefinition
	byID            map[string]StyleDefinition
	recommendations map[string]string
}

func LoadStylePolicy() (*StylePolicy, error) {
	data, err := dataFS.ReadFile("data/styles.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read styles: %w", err)
	}

	var file struct {
		Styles          []StyleDefinition `yaml:"styles"`
		Recommendations map[string]string `yaml:"recommendations"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse styles: %w", err)
	}

	p := &StylePolicy{
		styles:          file.Styles,
		byID:            make(map[string]StyleDefinition),
		recommendations: file.Recommendations,
	}
	for _, s := range file.Styles {
		if !models.IsValidStyle(s.ID) {
			return nil, fmt.Errorf("unknown style id %q", s.ID)
		}
		p.byID[s.ID] = s
	}
	for round, style := range file.Recommendations {
		if _, ok := p.byID[style]; !ok {
			return nil, fmt.Errorf("round %s recommends unknown style %q", round, style)
		}
	}
	return p, nil
}

func (p *StylePolicy) Styles() []models.StyleInfo {
	out := make([]models.StyleInfo, 0, len(p.styles))
	for _, s := range p.styles {
		out = append(out, s.Info())
	}
	return out
}

func (p *StylePolicy) Style(id string) (StyleDefinition, bool) {
	s, ok := p.byID[id]
	return s, ok
}

// RecommendStyle looks the round up in the static recommendation table.
func (p *StylePolicy) RecommendStyle(round string) (string, bool) {
	canonical, ok := models.NormalizeRound(round)
	if !ok {
		return "", false
	}
	style, ok := p.recommendations[canonical]
	return style, ok
}

// Resolve returns the requested style, or the round's recommendation when none was requested.
func (p *StylePolicy) Resolve(requested, round string) StyleDefinition {
	if s, ok := p.byID[requested]; ok {
		return s
	}
	if id, ok := p.RecommendStyle(round); ok {
		return p.byID[id]
	}
	return p.byID[models.StyleFriendly]
}
