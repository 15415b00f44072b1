package handler

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/marketplace/internal/adapter/http/dto"
	"github.com/iho/marketplace/internal/adapter/http/middleware"
	"github.com/iho/marketplace/internal/domain"
	"github.com/iho/marketplace/internal/usecase"
)

// PurchaseService defines the behavior needed by PurchaseHandler.
type PurchaseService interface {
	Purchase(ctx context.Context, input usecase.PurchaseInput) (*usecase.PurchaseResult, error)
	GetBalance(ctx context.Context, userID string) (decimal.Decimal, error)
	ListPurchases(ctx context.Context, input usecase.ListPurchasesInput) ([]*domain.Purchase, error)
}

// PurchaseHandler handles purchases and the ledger read side of the current user.
type PurchaseHandler struct {
	purchaseUC PurchaseService
	logger     zerolog.Logger
}

// NewPurchaseHandler creates a new PurchaseHandler.
func NewPurchaseHandler(purchaseUC PurchaseService, logger zerolog.Logger) *PurchaseHandler {
	return &PurchaseHandler{purchaseUC: purchaseUC, logger: logger}
}

// Create buys a product for the current user and returns the new balance.
func (h *PurchaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		respondError(w, r, h.logger, domain.ErrUnauthorized)
		return
	}

	var req dto.PurchaseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	result, err := h.purchaseUC.Purchase(r.Context(), req.ToUseCaseInput(session.UserID))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PurchaseResponse{
		Balance:  result.Balance,
		Purchase: dto.PurchaseFromDomain(result.Purchase),
	})
}

// Balance returns the derived balance of the current user.
func (h *PurchaseHandler) Balance(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		respondError(w, r, h.logger, domain.ErrUnauthorized)
		return
	}

	balance, err := h.purchaseUC.GetBalance(r.Context(), session.UserID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceResponse{Balance: balance})
}

// List returns the purchases of the current user, newest first.
func (h *PurchaseHandler) List(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		respondError(w, r, h.logger, domain.ErrUnauthorized)
		return
	}

	limit, offset := domain.ValidatePagination(
		parseIntQuery(r, "limit", domain.DefaultPageSize),
		parseIntQuery(r, "offset", 0),
	)

	purchases, err := h.purchaseUC.ListPurchases(r.Context(), usecase.ListPurchasesInput{
		UserID: session.UserID,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PurchaseListResponse{
		Purchases: dto.PurchasesFromDomain(purchases),
		Limit:     limit,
		Offset:    offset,
	})
}
