package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/artevasinkaizen-cmd/partesapp/internal/http/respond"
	"github.com/artevasinkaizen-cmd/partesapp/internal/models"
	"github.com/artevasinkaizen-cmd/partesapp/internal/report"
	"github.com/artevasinkaizen-cmd/partesapp/internal/storage"
)

// StatsHandler serves dashboard aggregations over the persisted partes.
type StatsHandler struct {
	store storage.Store
	log   *zap.Logger
}

// NewStatsHandler constructs the handler.
func NewStatsHandler(store storage.Store, log *zap.Logger) *StatsHandler {
	return &StatsHandler{store: store, log: log}
}

// Register attaches the stats route.
func (h *StatsHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /stats", h.handle)
}

func (h *StatsHandler) handle(w http.ResponseWriter, r *http.Request) {
	to := time.Now()
	from := to.AddDate(0, 0, -29)
	if v := r.URL.Query().Get("from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			from = t
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			to = t
		}
	}

	parteRecs, err := h.store.List(r.Context(), storage.CollectionPartes, nil)
	if err != nil {
		h.log.Error("stats: list partes", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "Failed to read data")
		return
	}
	actRecs, err := h.store.List(r.Context(), storage.CollectionActuaciones, nil)
	if err != nil {
		h.log.Error("stats: list actuaciones", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "Failed to read data")
		return
	}

	partes := make([]models.Parte, 0, len(parteRecs))
	for _, rec := range parteRecs {
		partes = append(partes, models.ParteFromRecord(rec, actRecs))
	}
	respond.JSON(w, http.StatusOK, report.Build(partes, from, to))
}
