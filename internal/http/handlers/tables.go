package handlers

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/artevasinkaizen-cmd/partesapp/internal/blob"
	"github.com/artevasinkaizen-cmd/partesapp/internal/http/respond"
	"github.com/artevasinkaizen-cmd/partesapp/internal/storage"
)

// TableHandler exposes generic collection CRUD: GET/POST /{table} and
// PATCH/DELETE /{table}/{id}.
type TableHandler struct {
	store storage.Store
	blobs blob.Store
	log   *zap.Logger
}

// NewTableHandler constructs the handler. blobs is used to off-load data-URL
// PDF payloads on parte inserts.
func NewTableHandler(store storage.Store, blobs blob.Store, log *zap.Logger) *TableHandler {
	return &TableHandler{store: store, blobs: blobs, log: log}
}

// Register attaches the wildcard routes. Literal routes registered elsewhere
// on the same mux take precedence.
func (h *TableHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{table}", h.handleList)
	mux.HandleFunc("POST /{table}", h.handleInsert)
	mux.HandleFunc("PATCH /{table}/{id}", h.handlePatch)
	mux.HandleFunc("DELETE /{table}/{id}", h.handleDelete)
}

// Reserved query parameter names, accepted but never applied as filters.
var reservedParams = map[string]bool{"order": true, "select": true}

func (h *TableHandler) handleList(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")

	filters := map[string]string{}
	for key, values := range r.URL.Query() {
		if reservedParams[key] || len(values) == 0 {
			continue
		}
		filters[key] = values[0]
	}

	recs, err := h.store.List(r.Context(), table, filters)
	if err != nil {
		h.log.Error("list collection", zap.String("table", table), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "Failed to read data")
		return
	}
	if table == storage.CollectionUsers {
		recs = sanitizeUsers(recs)
	}
	respond.JSON(w, http.StatusOK, recs)
}

func (h *TableHandler) handleInsert(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")

	rec, err := storage.DecodeRecord(r.Body)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	if table == storage.CollectionPartes {
		if err := h.offloadParteFiles(r, rec); err != nil {
			h.log.Error("save parte attachment", zap.Error(err))
			respond.Error(w, http.StatusInternalServerError, "Failed to save file")
			return
		}
	}

	stored, err := h.store.Insert(r.Context(), table, rec)
	if err != nil {
		h.log.Error("insert", zap.String("table", table), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "Failed to write data")
		return
	}
	respond.JSON(w, http.StatusCreated, []storage.Record{stored})
}

// offloadParteFiles converts data-URL PDF fields to stored files before the
// record is persisted. The id is assigned here so file names can carry it.
func (h *TableHandler) offloadParteFiles(r *http.Request, rec storage.Record) error {
	if _, hasFile := rec["pdf_file"]; !hasFile {
		if _, hasSigned := rec["pdf_file_signed"]; !hasSigned {
			return nil
		}
	}
	id := storage.EnsureIdentity(storage.CollectionPartes, rec, time.Now())

	if v, ok := rec["pdf_file"].(string); ok && v != "" {
		url, err := blob.SaveDataURL(r.Context(), h.blobs, v, "parte_"+id)
		if err != nil {
			return err
		}
		rec["pdf_file"] = url
	}
	if v, ok := rec["pdf_file_signed"].(string); ok && v != "" {
		url, err := blob.SaveDataURL(r.Context(), h.blobs, v, "parte_signed_"+id)
		if err != nil {
			return err
		}
		rec["pdf_file_signed"] = url
	}
	return nil
}

func (h *TableHandler) handlePatch(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")
	id := r.PathValue("id")

	patch, err := storage.DecodeRecord(r.Body)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	rec, err := h.store.Update(r.Context(), table, id, patch)
	if err != nil {
		h.respondStoreError(w, table, id, err)
		return
	}
	respond.JSON(w, http.StatusOK, []storage.Record{rec})
}

func (h *TableHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")
	id := r.PathValue("id")

	if err := h.store.Delete(r.Context(), table, id); err != nil {
		h.respondStoreError(w, table, id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TableHandler) respondStoreError(w http.ResponseWriter, table, id string, err error) {
	switch {
	case errors.Is(err, storage.ErrCollectionNotFound):
		respond.Error(w, http.StatusNotFound, "Table not found")
	case errors.Is(err, storage.ErrNotFound):
		respond.Error(w, http.StatusNotFound, "Item not found")
	default:
		h.log.Error("store operation", zap.String("table", table), zap.String("id", id), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "Failed to write data")
	}
}

// sanitizeUsers strips credential material from user rows on read paths.
func sanitizeUsers(recs []storage.Record) []storage.Record {
	out := make([]storage.Record, len(recs))
	for i, rec := range recs {
		clean := rec.Clone()
		delete(clean, "password_hash")
		out[i] = clean
	}
	return out
}
