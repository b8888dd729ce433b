package questionbank

import (
	"embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lettersontherocks/AI-Interview/internal/models"
)

//go:embed data/*.yaml
var dataFS embed.FS

type catalogFile struct {
	Categories []struct {
		ID        string `yaml:"id"`
		Name      string `yaml:"name"`
		Icon      string `yaml:"icon"`
		Positions []struct {
			models.PositionInfo `yaml:",inline"`
			SubPositions        []models.PositionInfo `yaml:"sub_positions"`
		} `yaml:"positions"`
	} `yaml:"categories"`
}

// Catalog is the read-only position reference data.
type Catalog struct {
	categories []models.PositionCategory
	byID       map[string]models.PositionInfo
	order      []string
}

func LoadCatalog() (*Catalog, error) {
	data, err := dataFS.ReadFile("data/positions.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read position catalog: %w", err)
	}
	return parseCatalog(data)
}

func parseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse position catalog: %w", err)
	}

	c := &Catalog{byID: make(map[string]models.PositionInfo)}
	add := func(p models.PositionInfo) error {
		if p.ID == "" {
			return fmt.Errorf("position %q has no id", p.Name)
		}
		if _, dup := c.byID[p.ID]; dup {
			return fmt.Errorf("duplicate position id %q", p.ID)
		}
		c.byID[p.ID] = p
		c.order = append(c.order, p.ID)
		return nil
	}

	for _, cat := range file.Categories {
		category := models.PositionCategory{ID: cat.ID, Name: cat.Name, Icon: cat.Icon}
		for _, pos := range cat.Positions {
			parent := pos.PositionInfo
			parent.CategoryName = cat.Name
			parent.IsParent = true
			parent.HasChildren = len(pos.SubPositions) > 0
			if err := add(parent); err != nil {
				return nil, err
			}
			category.Positions = append(category.Positions, parent)

			for _, sub := range pos.SubPositions {
				sub.CategoryName = cat.Name
				sub.ParentID = parent.ID
				sub.ParentName = parent.Name
				if err := add(sub); err != nil {
					return nil, err
				}
				category.Positions = append(category.Positions, sub)
			}
		}
		c.categories = append(c.categories, category)
	}
	return c, nil
}

func (c *Catalog) Categories() []models.PositionCategory {
	return c.categories
}

func (c *Catalog) Position(id string) (models.PositionInfo, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// Search matches keyword case-insensitively against name, description and keywords.
func (c *Catalog) Search(keyword string) []models.PositionInfo {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	results := []models.PositionInfo{}
	if keyword == "" {
		return results
	}
	for _, id := range c.order {
		p := c.byID[id]
		if matchesPosition(p, keyword) {
			results = append(results, p)
		}
	}
	return results
}

func matchesPosition(p models.PositionInfo, keyword string) bool {
	if strings.Contains(strings.ToLower(p.Name), keyword) ||
		strings.Contains(strings.ToLower(p.Description), keyword) {
		return true
	}
	for _, kw := range p.Keywords {
		if strings.Contains(strings.ToLower(kw), keyword) {
			return true
		}
	}
	return false
}

// FullName returns "parent - child" for sub-positions and the id itself for unknown ids.
func (c *Catalog) FullName(id string) string {
	p, ok := c.byID[id]
	if !ok {
		return id
	}
	if p.IsParent {
		return p.Name
	}
	return p.ParentName + " - " + p.Name
}

// Keywords returns the position's keywords followed by its parent's.
func (c *Catalog) Keywords(id string) []string {
	p, ok := c.byID[id]
	if !ok {
		return nil
	}
	keywords := append([]string{}, p.Keywords...)
	if !p.IsParent {
		if parent, ok := c.byID[p.ParentID]; ok {
			keywords = append(keywords, parent.Keywords...)
		}
	}
	return keywords
}

func (c *Catalog) Size() int {
	return len(c.byID)
}
