package api

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/KaltrinaI/WebStoreManagement/internal/domain/apperr"
	"github.com/KaltrinaI/WebStoreManagement/internal/domain/order"
)

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	req, err := decodePlaceOrderRequest(body)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	o, err := h.orders.PlaceOrder(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeOrder(e, o) })
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListAll(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOrders(w, orders)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

func (h *Handler) listOrdersByUser(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListByUserEmail(r.Context(), r.PathValue("email"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOrders(w, orders)
}

func (h *Handler) listOrdersByStatus(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListByStatus(r.Context(), order.Status(r.PathValue("status")))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOrders(w, orders)
}

func (h *Handler) addOrderItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	body, err := readBody(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	req, err := decodeItemRequest(body)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	item, err := h.orders.AddItem(r.Context(), id, req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeOrderItem(e, item) })
}

func (h *Handler) removeOrderItem(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	itemID, err := pathID(r, "itemID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.orders.RemoveItem(r.Context(), orderID, itemID); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.orders.Cancel(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	body, err := readBody(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	status, err := decodeStatusRequest(body)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.orders.UpdateStatus(r.Context(), id, order.Status(status)); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) productQuantitySold(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	sold, err := h.orders.TotalQuantitySold(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("productId", func(e *jx.Encoder) { e.Int64(id) })
			e.Field("quantitySold", func(e *jx.Encoder) { e.Int(sold) })
		})
	})
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		h.respondError(w, r, apperr.Wrap(apperr.Unexpected, err, "list products"))
		return
	}
	if r.URL.Query().Get("inStock") == "true" {
		inStock := products[:0]
		for i := range products {
			if products[i].InStock() {
				inStock = append(inStock, products[i])
			}
		}
		products = inStock
	}
	respondJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range products {
				encodeProduct(e, &products[i])
			}
		})
	})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeProduct(e, p) })
}

func respondOrders(w http.ResponseWriter, orders []order.Order) {
	respondJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range orders {
				encodeOrder(e, &orders[i])
			}
		})
	})
}
