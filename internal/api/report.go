package api

import (
	"net/http"
	"strconv"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/KaltrinaI/WebStoreManagement/internal/domain/apperr"
)

func (h *Handler) dailyEarnings(w http.ResponseWriter, r *http.Request) {
	earnings, err := h.reports.DailyEarnings(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondEarnings(w, earnings)
}

func (h *Handler) monthlyEarnings(w http.ResponseWriter, r *http.Request) {
	month, err := queryInt(r, "month")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	year, err := queryInt(r, "year")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	earnings, err := h.reports.MonthlyEarnings(r.Context(), month, year)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondEarnings(w, earnings)
}

func (h *Handler) totalEarnings(w http.ResponseWriter, r *http.Request) {
	earnings, err := h.reports.TotalEarnings(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondEarnings(w, earnings)
}

func (h *Handler) topProducts(w http.ResponseWriter, r *http.Request) {
	count := 5
	if v := r.URL.Query().Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			h.respondError(w, r, apperr.New(apperr.InvalidArgument, "count must be an integer"))
			return
		}
		count = n
	}

	ranking, err := h.reports.TopSellingProducts(r.Context(), count)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range ranking {
				encodePerformance(e, &ranking[i])
			}
		})
	})
}

func (h *Handler) listReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.reports.Reports(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range reports {
				encodeReport(e, &reports[i])
			}
		})
	})
}

func respondEarnings(w http.ResponseWriter, earnings decimal.Decimal) {
	respondJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("earnings", func(e *jx.Encoder) { encodeMoney(e, earnings) })
		})
	})
}

func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, apperr.Newf(apperr.InvalidArgument, "%s query parameter is required", name)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Newf(apperr.InvalidArgument, "%s must be an integer", name)
	}
	return n, nil
}
