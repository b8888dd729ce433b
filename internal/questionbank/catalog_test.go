package questionbank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalog(t *testing.T) {
	c, err := LoadCatalog()
	require.NoError(t, err)

	cats := c.Categories()
	require.Len(t, cats, 4)
	assert.Equal(t, "tech", cats[0].ID)
	assert.Greater(t, c.Size(), 10)

	parent, ok := c.Position("backend-engineer")
	require.True(t, ok)
	assert.True(t, parent.IsParent)
	assert.True(t, parent.HasChildren)

	child, ok := c.Position("backend-go")
	require.True(t, ok)
	assert.False(t, child.IsParent)
	assert.Equal(t, "backend-engineer", child.ParentID)
	assert.Equal(t, "技术研发", child.CategoryName)
}

func TestCatalogFullNameAndKeywords(t *testing.T) {
	c, err := LoadCatalog()
	require.NoError(t, err)

	assert.Equal(t, "后端工程师 - Go后端", c.FullName("backend-go"))
	assert.Equal(t, "后端工程师", c.FullName("backend-engineer"))
	assert.Equal(t, "unknown-id", c.FullName("unknown-id"))

	keywords := c.Keywords("backend-go")
	require.NotEmpty(t, keywords)
	assert.Equal(t, "Go", keywords[0])
	assert.Contains(t, keywords, "微服务")
	assert.Nil(t, c.Keywords("unknown-id"))
}

func TestCatalogSearch(t *testing.T) {
	c, err := LoadCatalog()
	require.NoError(t, err)

	assert.Empty(t, c.Search(""))
	assert.NotNil(t, c.Search("  "))

	results := c.Search("react")
	require.Len(t, results, 1)
	assert.Equal(t, "frontend-react", results[0].ID)

	results = c.Search("后端")
	require.NotEmpty(t, results)
	assert.Equal(t, "backend-engineer", results[0].ID)

	assert.Empty(t, c.Search("no-such-position-anywhere"))
}

func TestParseCatalogRejectsDuplicates(t *testing.T) {
	data := []byte(`
categories:
  - id: a
    name: A
    positions:
      - id: dup
        name: One
      - id: dup
        name: Two
`)
	_, err := parseCatalog(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")

	_, err = parseCatalog([]byte("categories: ["))
	assert.Error(t, err)
}
