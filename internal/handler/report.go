package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"
)

// IncomeReport serves the income chart data: one JSON object with exactly
// twelve keys, January through December in calendar order, each value the
// delivered-order income of that month. encoding/json sorts map keys, so the
// object is written with jx to keep the calendar ordering on the wire.
func (h *Handler) IncomeReport(w http.ResponseWriter, r *http.Request) {
	year := queryInt(r, "year", time.Now().Year())
	if year < 2000 || year > 9999 {
		respondError(w, r, http.StatusUnprocessableEntity, "year: out of range")
		return
	}

	series, err := h.orders.IncomeSeries(r.Context(), year)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	for _, entry := range series {
		e.FieldStart(entry.Month)
		e.Num(jx.Num(entry.Amount.StringFixed(2)))
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(e.Bytes())
}
