package handlers

import (
	"net/http"
	"strings"

	"github.com/lettersontherocks/AI-Interview/internal/models"
	"github.com/lettersontherocks/AI-Interview/internal/questionbank"
	"github.com/lettersontherocks/AI-Interview/internal/utils"
)

// CatalogHandler serves the static position and style reference data.
type CatalogHandler struct {
	catalog *questionbank.Catalog
	styles  *questionbank.StylePolicy
}

func NewCatalogHandler(catalog *questionbank.Catalog, styles *questionbank.StylePolicy) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, styles: styles}
}

func (h *CatalogHandler) PositionsHandler(w http.ResponseWriter, r *http.Request) {
	utils.JSON(w, http.StatusOK, models.PositionsResponse{Categories: h.catalog.Categories()})
}

func (h *CatalogHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	keyword := strings.TrimSpace(r.URL.Query().Get("keyword"))
	if keyword == "" {
		utils.JSONError(w, http.StatusBadRequest, "missing_keyword", "keyword is required")
		return
	}
	utils.JSON(w, http.StatusOK, h.catalog.Search(keyword))
}

func (h *CatalogHandler) StylesHandler(w http.ResponseWriter, r *http.Request) {
	resp := models.StylesResponse{Styles: h.styles.Styles()}
	if style, ok := h.styles.RecommendStyle(r.URL.Query().Get("round")); ok {
		resp.Recommended = &style
	}
	utils.JSON(w, http.StatusOK, resp)
}
