package http

import (
	"context"
	"net/http"

	"github.com/fjod/cosmic-backend/internal/domain"
	"github.com/go-chi/chi/v5"
)

// CartService is the cart behaviour the handlers need.
type CartService interface {
	AddItem(ctx context.Context, userID, productID string, quantity int) error
	GetCart(ctx context.Context, userID string) (*domain.PopulatedCart, error)
	UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error
	RemoveItem(ctx context.Context, userID, productID string) error
	ClearCart(ctx context.Context, userID string) error
}

type CartHandler struct {
	carts    CartService
	identity IdentitySource
}

func NewCartHandler(carts CartService, identity IdentitySource) *CartHandler {
	return &CartHandler{
		carts:    carts,
		identity: identity,
	}
}

type AddItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"min=1"`
	UserID    string `json:"userId"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"min=1"`
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID, status, err := actingUser(r, h.identity, req.UserID)
	if err != nil {
		respondError(w, status, err.Error())
		return
	}

	if err := h.carts.AddItem(r.Context(), userID, req.ProductID, req.Quantity); err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondOK(w)
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, status, err := actingUser(r, h.identity, r.URL.Query().Get("userId"))
	if err != nil {
		respondError(w, status, err.Error())
		return
	}

	cart, err := h.carts.GetCart(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	// a user without a cart gets null
	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	userID, status, err := actingUser(r, h.identity, r.URL.Query().Get("userId"))
	if err != nil {
		respondError(w, status, err.Error())
		return
	}

	var req UpdateQuantityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	productID := chi.URLParam(r, "productId")
	if err := h.carts.UpdateQuantity(r.Context(), userID, productID, req.Quantity); err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondOK(w)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, status, err := actingUser(r, h.identity, r.URL.Query().Get("userId"))
	if err != nil {
		respondError(w, status, err.Error())
		return
	}

	productID := chi.URLParam(r, "productId")
	if err := h.carts.RemoveItem(r.Context(), userID, productID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondOK(w)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID, status, err := actingUser(r, h.identity, r.URL.Query().Get("userId"))
	if err != nil {
		respondError(w, status, err.Error())
		return
	}

	if err := h.carts.ClearCart(r.Context(), userID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondOK(w)
}
