package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/xelth-com/magebridge/internal/exceptions"
	"github.com/xelth-com/magebridge/internal/models"
	"github.com/xelth-com/magebridge/internal/orders"
)

const defaultExceptionLimit = 100

func (r *Router) sale(w http.ResponseWriter, req *http.Request) (*models.Sale, bool) {
	id, ok := pathID(req, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid sale id")
		return nil, false
	}
	var sale models.Sale
	err := r.db.WithContext(req.Context()).
		Preload("Lines", func(tx *gorm.DB) *gorm.DB { return tx.Order("sequence") }).
		First(&sale, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(w, http.StatusNotFound, "Sale not found")
		return nil, false
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load sale")
		return nil, false
	}
	return &sale, true
}

func (r *Router) getSale(w http.ResponseWriter, req *http.Request) {
	sale, ok := r.sale(w, req)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, sale)
}

// listExceptions returns recent exceptions, optionally filtered by origin model and age
func (r *Router) listExceptions(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	f := exceptions.Filter{Model: q.Get("model"), Limit: defaultExceptionLimit}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		f.Limit = n
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid since, expected RFC3339")
			return
		}
		f.Since = since
	}

	recs, err := exceptions.NewSink(r.db.DB, r.log).List(req.Context(), f)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list exceptions")
		return
	}
	respondJSON(w, http.StatusOK, recs)
}

func (r *Router) saleExceptions(w http.ResponseWriter, req *http.Request) {
	sale, ok := r.sale(w, req)
	if !ok {
		return
	}
	sink := exceptions.NewSink(r.db.DB, r.log)
	recs, err := sink.ForOrigin(req.Context(), exceptions.SaleOrigin(sale.ID))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list exceptions")
		return
	}
	for _, line := range sale.Lines {
		lineRecs, err := sink.ForOrigin(req.Context(), exceptions.LineOrigin(line.ID))
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to list exceptions")
			return
		}
		recs = append(recs, lineRecs...)
	}
	respondJSON(w, http.StatusOK, recs)
}

// clearException marks a sale's problems as handled. Exception records are kept.
func (r *Router) clearException(w http.ResponseWriter, req *http.Request) {
	sale, ok := r.sale(w, req)
	if !ok {
		return
	}
	if err := orders.NewWorkflow(r.db.DB).ClearException(req.Context(), sale); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sale)
}

// confirmSale moves a parked quotation forward once its exception is cleared
func (r *Router) confirmSale(w http.ResponseWriter, req *http.Request) {
	sale, ok := r.sale(w, req)
	if !ok {
		return
	}
	err := orders.NewWorkflow(r.db.DB).Confirm(req.Context(), sale)
	switch {
	case errors.Is(err, orders.ErrSaleHasException), errors.Is(err, orders.ErrInvalidTransition):
		respondError(w, http.StatusConflict, err.Error())
	case err != nil:
		respondError(w, http.StatusInternalServerError, err.Error())
	default:
		respondJSON(w, http.StatusOK, sale)
	}
}
