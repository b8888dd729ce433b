package handlers

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lettersontherocks/AI-Interview/internal/models"
)

func TestPositionsHandler(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodGet, "/positions", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[models.PositionsResponse](t, rec)
	require.NotEmpty(t, resp.Categories)
	for _, c := range resp.Categories {
		require.NotEmpty(t, c.Positions, c.ID)
		assert.True(t, c.Positions[0].IsParent)
		for _, p := range c.Positions {
			assert.Equal(t, c.Name, p.CategoryName)
		}
	}
}

func TestSearchHandler(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodGet, "/positions/search?keyword=", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_keyword", decode[models.ErrorResponse](t, rec).Code)

	rec = env.do(t, http.MethodGet, "/positions/search?keyword=goroutine", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	results := decode[[]models.PositionInfo](t, rec)
	require.NotEmpty(t, results)
	assert.Equal(t, "backend-go", results[0].ID)

	rec = env.do(t, http.MethodGet, "/positions/search?keyword=zzzz-nothing", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestStylesHandler(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodGet, "/interviewer-styles?round="+url.QueryEscape("技术二面"), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[models.StylesResponse](t, rec)
	assert.Len(t, resp.Styles, 4)
	require.NotNil(t, resp.Recommended)
	assert.Equal(t, models.StyleProfessional, *resp.Recommended)

	rec = env.do(t, http.MethodGet, "/interviewer-styles", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"recommended":null`)
}
