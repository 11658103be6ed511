package transport

import (
	"errors"
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AddToCartRequest adds quantity of a product to the session cart.
// A missing quantity adds one.
type AddToCartRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  *int   `json:"quantity" validate:"omitempty,gte=1"`
}

// UpdateQuantityRequest sets the quantity of an existing cart line
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

// CartHandler exposes the session cart. A mutation the cart refuses is not an
// error: it answers 200 with applied set to false and the notice.
type CartHandler struct {
	cartService service.CartService
	logger      *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		logger:      logger,
	}
}

// RegisterRoutes registers the cart routes behind the session middleware
func (h *CartHandler) RegisterRoutes(r chi.Router, sessionMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(sessionMiddleware)
		r.Get("/", h.View)
		r.Delete("/", h.Clear)
		r.Post("/items", h.Add)
		r.Put("/items/{productID}", h.UpdateQuantity)
		r.Delete("/items/{productID}", h.Remove)
	})
}

func (h *CartHandler) View(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}

	view, err := h.cartService.View(r.Context(), sid)
	h.respond(w, view, err)
}

func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}

	var req AddToCartRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	view, err := h.cartService.Add(r.Context(), sid, req.ProductID, quantity)
	h.respond(w, view, err)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	view, err := h.cartService.UpdateQuantity(r.Context(), sid, chi.URLParam(r, "productID"), req.Quantity)
	h.respond(w, view, err)
}

func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}

	view, err := h.cartService.Remove(r.Context(), sid, chi.URLParam(r, "productID"))
	h.respond(w, view, err)
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}

	view, err := h.cartService.Clear(r.Context(), sid)
	h.respond(w, view, err)
}

func (h *CartHandler) respond(w http.ResponseWriter, view *service.CartView, err error) {
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProductNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, "Product not found")
		case errors.Is(err, service.ErrProductUnavailable):
			middleware.RespondWithError(w, http.StatusNotFound, "Product is no longer available")
		case errors.Is(err, service.ErrInvalidSession):
			middleware.RespondWithError(w, http.StatusBadRequest, "missing session")
		default:
			h.logger.Error("Cart operation failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update cart")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, view)
}
