// Package api exposes the web store over HTTP/JSON. Handlers decode requests,
// delegate to the domain services, and map domain errors to status codes.
package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/KaltrinaI/WebStoreManagement/internal/domain/apperr"
	"github.com/KaltrinaI/WebStoreManagement/internal/domain/discount"
	"github.com/KaltrinaI/WebStoreManagement/internal/domain/order"
	"github.com/KaltrinaI/WebStoreManagement/internal/domain/product"
	"github.com/KaltrinaI/WebStoreManagement/internal/domain/report"
)

// Handler wires the HTTP surface to the domain services.
type Handler struct {
	orders    *order.Service
	discounts *discount.Engine
	reports   *report.Aggregator
	products  product.Repository
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	orders *order.Service,
	discounts *discount.Engine,
	reports *report.Aggregator,
	products product.Repository,
) *Handler {
	return &Handler{
		orders:    orders,
		discounts: discounts,
		reports:   reports,
		products:  products,
	}
}

// Routes registers every endpoint on a fresh mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)
	mux.HandleFunc("GET /api/products/{id}/sold", h.productQuantitySold)

	mux.HandleFunc("POST /api/orders", h.placeOrder)
	mux.HandleFunc("GET /api/orders", h.listOrders)
	mux.HandleFunc("GET /api/orders/{id}", h.getOrder)
	mux.HandleFunc("GET /api/orders/user/{email}", h.listOrdersByUser)
	mux.HandleFunc("GET /api/orders/status/{status}", h.listOrdersByStatus)
	mux.HandleFunc("POST /api/orders/{id}/items", h.addOrderItem)
	mux.HandleFunc("DELETE /api/orders/{id}/items/{itemID}", h.removeOrderItem)
	mux.HandleFunc("POST /api/orders/{id}/cancel", h.cancelOrder)
	mux.HandleFunc("PUT /api/orders/{id}/status", h.updateOrderStatus)

	mux.HandleFunc("POST /api/discounts", h.addDiscount)
	mux.HandleFunc("GET /api/discounts", h.listDiscounts)
	mux.HandleFunc("GET /api/discounts/{id}", h.getDiscount)
	mux.HandleFunc("PUT /api/discounts/{id}", h.updateDiscount)
	mux.HandleFunc("DELETE /api/discounts/{id}", h.deleteDiscount)
	mux.HandleFunc("POST /api/discounts/{id}/apply/product/{productID}", h.applyDiscountToProduct)
	mux.HandleFunc("POST /api/discounts/{id}/apply/category/{name}", h.applyDiscountToCategory)
	mux.HandleFunc("POST /api/discounts/{id}/apply/brand/{name}", h.applyDiscountToBrand)
	mux.HandleFunc("POST /api/discounts/sweep", h.sweepExpiredDiscounts)

	mux.HandleFunc("GET /api/reports/earnings/daily", h.dailyEarnings)
	mux.HandleFunc("GET /api/reports/earnings/monthly", h.monthlyEarnings)
	mux.HandleFunc("GET /api/reports/earnings/total", h.totalEarnings)
	mux.HandleFunc("GET /api/reports/top-products", h.topProducts)
	mux.HandleFunc("GET /api/reports", h.listReports)

	return mux
}

// kindStatus maps the error taxonomy to HTTP status codes. Everything the
// client caused is 400 except missing resources.
func kindStatus(kind apperr.Kind) int {
	switch kind {
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.InvalidArgument, apperr.InsufficientStock,
		apperr.InvalidTransition, apperr.AlreadyCanceled:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := kindStatus(apperr.KindOf(err))
	msg := err.Error()
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path), zap.Error(err))
		msg = "internal server error"
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Int(status) })
		e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
	})
	writeJSON(w, status, e.Bytes())
}

func respondJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)
	writeJSON(w, status, e.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// readBody drains the request body with a 1 MiB cap.
func readBody(r *http.Request) ([]byte, error) {
	defer func() { _ = r.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidArgument, err, "read request body")
	}
	if len(body) == 0 {
		return nil, apperr.New(apperr.InvalidArgument, "request body must not be empty")
	}
	return body, nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Newf(apperr.InvalidArgument, "invalid %s", name)
	}
	return id, nil
}
