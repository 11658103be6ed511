package transport

import (
	"errors"
	"net/http"
	"strconv"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ProductHandler handles HTTP requests for the catalog
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// RegisterRoutes registers all catalog routes. Static paths are registered
// before /{id} so they are not read as product ids.
func (h *ProductHandler) RegisterRoutes(r chi.Router, optionalAuth, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		r.With(optionalAuth).Get("/", h.List)
		r.Get("/categories", h.Categories)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware, adminMiddleware)
			r.Get("/history", h.History)
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})

		r.Get("/{id}", h.Get)
	})
}

// List returns the catalog filtered by keyword and category. showAll only
// takes effect for a verified admin.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := domain.ProductFilter{
		Keyword:  query.Get("keyword"),
		Category: query.Get("category"),
	}

	viewer, _ := middleware.GetUser(r.Context())
	if showAll, _ := strconv.ParseBool(query.Get("showAll")); showAll {
		if viewer != nil && viewer.IsAdmin {
			filter.IncludeAll = true
		} else {
			h.logger.Warn("Ignoring showAll for non-admin request",
				zap.String("remote_addr", r.RemoteAddr),
				zap.Bool("authenticated", viewer != nil),
			)
		}
	}

	products, err := h.productService.List(r.Context(), filter, viewer)
	if err != nil {
		h.logger.Error("Failed to list products", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// Get returns one product, deleted products included
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "Product not found")
	if !ok {
		return
	}

	product, err := h.productService.Get(r.Context(), id)
	if err != nil {
		h.respondProductError(w, err, "failed to get product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.productService.Categories(r.Context())
	if err != nil {
		h.logger.Error("Failed to list categories", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, categories)
}

func (h *ProductHandler) History(w http.ResponseWriter, r *http.Request) {
	products, err := h.productService.History(r.Context())
	if err != nil {
		h.logger.Error("Failed to list product history", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list product history")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.ProductInput
	if !decodeRequest(w, r, &input, h.logger) {
		return
	}

	admin, _ := middleware.GetUser(r.Context())
	product, err := h.productService.Create(r.Context(), input, admin.ID)
	if err != nil {
		h.logger.Error("Failed to create product", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create product")
		return
	}

	h.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("admin_id", admin.ID.String()),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// Update overwrites every editable field of the product
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "Product not found")
	if !ok {
		return
	}

	var input service.ProductInput
	if !decodeRequest(w, r, &input, h.logger) {
		return
	}

	product, err := h.productService.Update(r.Context(), id, input)
	if err != nil {
		h.respondProductError(w, err, "failed to update product")
		return
	}

	h.logger.Info("Product updated", zap.String("product_id", id.String()))
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Delete flags the product as deleted
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "Product not found")
	if !ok {
		return
	}

	if err := h.productService.Delete(r.Context(), id); err != nil {
		h.respondProductError(w, err, "failed to delete product")
		return
	}

	h.logger.Info("Product deleted", zap.String("product_id", id.String()))
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Product removed"})
}

func (h *ProductHandler) respondProductError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, service.ErrProductNotFound) {
		middleware.RespondWithError(w, http.StatusNotFound, "Product not found")
		return
	}
	h.logger.Error(message, zap.Error(err))
	middleware.RespondWithError(w, http.StatusInternalServerError, message)
}
