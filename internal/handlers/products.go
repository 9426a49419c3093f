package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/storeops/api/internal/domain"
	"github.com/storeops/api/internal/platform/httpx"
	"github.com/storeops/api/internal/services"
)

// ProductHandlers exposes the catalog and stock administration endpoints.
type ProductHandlers struct {
	inventory services.InventoryService
}

// NewProductHandlers constructs product handlers.
func NewProductHandlers(inventory services.InventoryService) *ProductHandlers {
	return &ProductHandlers{inventory: inventory}
}

// Routes wires the /products endpoints onto the provided router.
func (h *ProductHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.createProduct)
	r.Get("/", h.listProducts)
	r.Get("/low-stock", h.listLowStock)
	r.Get("/{productID}", h.getProduct)
	r.Put("/{productID}", h.updateProduct)
	r.Post("/{productID}/stock", h.configureStock)
}

func (h *ProductHandlers) createProduct(w http.ResponseWriter, r *http.Request) {
	h.saveProduct(w, r, "")
}

func (h *ProductHandlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	h.saveProduct(w, r, chi.URLParam(r, "productID"))
}

func (h *ProductHandlers) saveProduct(w http.ResponseWriter, r *http.Request, productID string) {
	ctx := r.Context()
	if h.inventory == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "inventory service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req upsertProductRequest
	if !decodeOrderBody(ctx, w, r, &req) {
		return
	}

	product, err := h.inventory.UpsertProduct(ctx, services.ProductUpsertCommand{
		ProductID:               strings.TrimSpace(productID),
		SKU:                     strings.TrimSpace(req.SKU),
		Name:                    strings.TrimSpace(req.Name),
		Category:                strings.TrimSpace(req.Category),
		UnitPrice:               req.UnitPrice,
		Currency:                strings.TrimSpace(req.Currency),
		InitialQuantity:         req.InitialQuantity,
		TrackQuantity:           req.TrackQuantity,
		AllowOutOfStockPurchase: req.AllowOutOfStockPurchase,
		LowStockThreshold:       req.LowStockThreshold,
		Active:                  req.Active,
	})
	if err != nil {
		writeProductError(ctx, w, err)
		return
	}

	status := http.StatusOK
	if r.Method == http.MethodPost {
		status = http.StatusCreated
	}
	writeJSONResponse(w, status, productResponse{Product: buildProductPayload(product)})
}

func (h *ProductHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.inventory == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "inventory service unavailable", http.StatusServiceUnavailable))
		return
	}

	product, err := h.inventory.GetProduct(ctx, chi.URLParam(r, "productID"))
	if err != nil {
		writeProductError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, productResponse{Product: buildProductPayload(product)})
}

func (h *ProductHandlers) configureStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.inventory == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "inventory service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req configureStockRequest
	if !decodeOrderBody(ctx, w, r, &req) {
		return
	}

	product, err := h.inventory.ConfigureStock(ctx, services.StockAdjustmentCommand{
		ProductID:   chi.URLParam(r, "productID"),
		SetQuantity: req.SetQuantity,
		AdjustBy:    req.AdjustBy,
	})
	if err != nil {
		writeProductError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, productResponse{Product: buildProductPayload(product)})
}

func (h *ProductHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

func (h *ProductHandlers) listLowStock(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

func (h *ProductHandlers) list(w http.ResponseWriter, r *http.Request, lowStock bool) {
	ctx := r.Context()
	if h.inventory == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "inventory service unavailable", http.StatusServiceUnavailable))
		return
	}

	query := services.ProductListQuery{
		Category:   strings.TrimSpace(r.URL.Query().Get("category")),
		ActiveOnly: queryBool(r, "activeOnly"),
	}
	var err error
	if query.Pagination, err = paginationFromRequest(r); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	var page domain.CursorPage[services.Product]
	if lowStock {
		page, err = h.inventory.ListLowStock(ctx, query)
	} else {
		page, err = h.inventory.ListProducts(ctx, query)
	}
	if err != nil {
		writeProductError(ctx, w, err)
		return
	}

	payload := productListResponse{
		Products:      make([]productPayload, 0, len(page.Items)),
		NextPageToken: page.NextPageToken,
	}
	for _, product := range page.Items {
		payload.Products = append(payload.Products, buildProductPayload(product))
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func writeProductError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrProductInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "inventory operation failed", http.StatusInternalServerError))
	}
}

type upsertProductRequest struct {
	SKU                     string `json:"sku"`
	Name                    string `json:"name"`
	Category                string `json:"category"`
	UnitPrice               int64  `json:"unitPrice"`
	Currency                string `json:"currency"`
	InitialQuantity         *int64 `json:"initialQuantity"`
	TrackQuantity           bool   `json:"trackQuantity"`
	AllowOutOfStockPurchase bool   `json:"allowOutOfStockPurchase"`
	LowStockThreshold       *int64 `json:"lowStockThreshold"`
	Active                  bool   `json:"active"`
}

type configureStockRequest struct {
	SetQuantity *int64 `json:"setQuantity"`
	AdjustBy    *int64 `json:"adjustBy"`
}

type productResponse struct {
	Product productPayload `json:"product"`
}

type productListResponse struct {
	Products      []productPayload `json:"products"`
	NextPageToken string           `json:"nextPageToken,omitempty"`
}

type productPayload struct {
	ID                      string    `json:"id"`
	SKU                     string    `json:"sku,omitempty"`
	Name                    string    `json:"name"`
	Category                string    `json:"category,omitempty"`
	UnitPrice               int64     `json:"unitPrice"`
	Currency                string    `json:"currency"`
	Quantity                int64     `json:"quantity"`
	TotalSold               int64     `json:"totalSold"`
	TrackQuantity           bool      `json:"trackQuantity"`
	AllowOutOfStockPurchase bool      `json:"allowOutOfStockPurchase"`
	LowStockThreshold       int64     `json:"lowStockThreshold"`
	LowStock                bool      `json:"lowStock"`
	Active                  bool      `json:"active"`
	CreatedAt               time.Time `json:"createdAt"`
	UpdatedAt               time.Time `json:"updatedAt"`
}

func buildProductPayload(product services.Product) productPayload {
	return productPayload{
		ID:                      product.ID,
		SKU:                     product.SKU,
		Name:                    product.Name,
		Category:                product.Category,
		UnitPrice:               product.UnitPrice,
		Currency:                product.Currency,
		Quantity:                product.Quantity,
		TotalSold:               product.TotalSold,
		TrackQuantity:           product.TrackQuantity,
		AllowOutOfStockPurchase: product.AllowOutOfStockPurchase,
		LowStockThreshold:       product.LowStockThreshold,
		LowStock:                product.LowStock(),
		Active:                  product.Active,
		CreatedAt:               product.CreatedAt,
		UpdatedAt:               product.UpdatedAt,
	}
}
