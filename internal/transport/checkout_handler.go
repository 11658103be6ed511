package transport

import (
	"errors"
	"net/http"

	"storefront/internal/checkout"
	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CheckoutHandler walks the session through shipping, payment and review
type CheckoutHandler struct {
	checkoutService service.CheckoutService
	logger          *zap.Logger
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(checkoutService service.CheckoutService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		logger:          logger,
	}
}

// RegisterRoutes registers the checkout routes behind the session middleware
func (h *CheckoutHandler) RegisterRoutes(r chi.Router, sessionMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/checkout", func(r chi.Router) {
		r.Use(sessionMiddleware)
		r.Get("/", h.View)
		r.Delete("/", h.Discard)
		r.Post("/shipping", h.SubmitShipping)
		r.Post("/payment", h.SubmitPayment)
		r.Post("/back", h.Back)
		r.Post("/edit/{stage}", h.Edit)
		r.Post("/place", h.PlaceOrder)
	})
}

func (h *CheckoutHandler) View(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}

	view, err := h.checkoutService.View(r.Context(), sid)
	h.respond(w, view, err)
}

func (h *CheckoutHandler) SubmitShipping(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}

	var address checkout.ShippingAddress
	if !decodeRequest(w, r, &address, h.logger) {
		return
	}

	view, err := h.checkoutService.SubmitShipping(r.Context(), sid, address)
	h.respond(w, view, err)
}

func (h *CheckoutHandler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}

	var details checkout.PaymentDetails
	if !decodeRequest(w, r, &details, h.logger) {
		return
	}

	view, err := h.checkoutService.SubmitPayment(r.Context(), sid, details)
	h.respond(w, view, err)
}

func (h *CheckoutHandler) Back(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}

	view, err := h.checkoutService.Back(r.Context(), sid)
	h.respond(w, view, err)
}

// Edit jumps back to an earlier stage from the review page
func (h *CheckoutHandler) Edit(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}

	stage := checkout.Stage(chi.URLParam(r, "stage"))
	if !stage.Valid() {
		middleware.RespondWithError(w, http.StatusNotFound, "Unknown checkout stage")
		return
	}

	view, err := h.checkoutService.GoTo(r.Context(), sid, stage)
	h.respond(w, view, err)
}

func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}

	confirmation, err := h.checkoutService.PlaceOrder(r.Context(), sid)
	if err != nil {
		h.respondError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, confirmation)
}

func (h *CheckoutHandler) Discard(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}

	if err := h.checkoutService.Discard(r.Context(), sid); err != nil {
		h.respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CheckoutHandler) respond(w http.ResponseWriter, view *service.CheckoutView, err error) {
	if err != nil {
		h.respondError(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, view)
}

func (h *CheckoutHandler) respondError(w http.ResponseWriter, err error) {
	if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
		middleware.RespondWithValidationErrors(w, validationErrors)
		return
	}

	switch {
	case errors.Is(err, checkout.ErrInvalidTransition):
		middleware.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, checkout.ErrEmptyCart):
		middleware.RespondWithError(w, http.StatusConflict, "Your cart is empty")
	case errors.Is(err, service.ErrInvalidSession):
		middleware.RespondWithError(w, http.StatusBadRequest, "missing session")
	default:
		h.logger.Error("Checkout operation failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "checkout failed")
	}
}
