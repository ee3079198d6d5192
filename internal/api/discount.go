package api

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"

	"github.com/KaltrinaI/WebStoreManagement/internal/domain/apperr"
	"github.com/KaltrinaI/WebStoreManagement/internal/domain/discount"
)

func (h *Handler) addDiscount(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	d, err := decodeDiscountRequest(body)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.discounts.Add(r.Context(), d); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeDiscount(e, d) })
}

// listDiscounts serves plain listing plus the name and date filters, selected
// by query parameters.
func (h *Handler) listDiscounts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		out []discount.Discount
		err error
	)
	switch {
	case q.Get("name") != "":
		out, err = h.discounts.ListByName(r.Context(), q.Get("name"))
	case q.Get("start") != "" && q.Get("end") != "":
		var start, end time.Time
		if start, err = parseDate(q.Get("start")); err == nil {
			if end, err = parseDate(q.Get("end")); err == nil {
				out, err = h.discounts.ListByDateRange(r.Context(), start, end)
			}
		}
	case q.Get("start") != "":
		var start time.Time
		if start, err = parseDate(q.Get("start")); err == nil {
			out, err = h.discounts.ListByStartingDate(r.Context(), start)
		}
	case q.Get("end") != "":
		var end time.Time
		if end, err = parseDate(q.Get("end")); err == nil {
			out, err = h.discounts.ListByEndingDate(r.Context(), end)
		}
	default:
		out, err = h.discounts.List(r.Context())
	}
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range out {
				encodeDiscount(e, &out[i])
			}
		})
	})
}

func (h *Handler) getDiscount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	d, err := h.discounts.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeDiscount(e, d) })
}

func (h *Handler) updateDiscount(w http.ResponseWriter, r *http.Request) {
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
	d, err := decodeDiscountRequest(body)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.discounts.Update(r.Context(), id, d); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteDiscount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.discounts.Delete(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) applyDiscountToProduct(w http.ResponseWriter, r *http.Request) {
	discountID, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	productID, err := pathID(r, "productID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.discounts.ApplyToProduct(r.Context(), productID, discountID); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) applyDiscountToCategory(w http.ResponseWriter, r *http.Request) {
	discountID, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.discounts.ApplyToCategory(r.Context(), r.PathValue("name"), discountID); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) applyDiscountToBrand(w http.ResponseWriter, r *http.Request) {
	discountID, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.discounts.ApplyToBrand(r.Context(), r.PathValue("name"), discountID); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) sweepExpiredDiscounts(w http.ResponseWriter, r *http.Request) {
	if err := h.discounts.RemoveExpired(r.Context()); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, apperr.Wrap(apperr.InvalidArgument, err, "dates must be YYYY-MM-DD")
	}
	return t, nil
}
