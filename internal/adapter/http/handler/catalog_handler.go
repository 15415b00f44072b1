package handler

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/iho/marketplace/internal/domain"
)

// CatalogService defines the behavior needed by CatalogHandler.
type CatalogService interface {
	GetCatalog(ctx context.Context) ([]domain.CatalogItem, error)
}

// CatalogHandler serves the merged price catalog.
type CatalogHandler struct {
	catalogUC CatalogService
	logger    zerolog.Logger
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalogUC CatalogService, logger zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{catalogUC: catalogUC, logger: logger}
}

// List returns the catalog as a JSON array.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalogUC.GetCatalog(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	if items == nil {
		items = []domain.CatalogItem{}
	}

	writeJSON(w, http.StatusOK, items)
}
