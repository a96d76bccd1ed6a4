package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/artevasinkaizen-cmd/partesapp/internal/blob"
	"github.com/artevasinkaizen-cmd/partesapp/internal/http/respond"
	"github.com/artevasinkaizen-cmd/partesapp/internal/models/dto"
	"github.com/artevasinkaizen-cmd/partesapp/internal/storage"
)

// UploadHandler decodes avatar uploads and records the resulting URL on the
// user record.
type UploadHandler struct {
	store storage.Store
	blobs blob.Store
	log   *zap.Logger
}

// NewUploadHandler constructs the handler.
func NewUploadHandler(store storage.Store, blobs blob.Store, log *zap.Logger) *UploadHandler {
	return &UploadHandler{store: store, blobs: blobs, log: log}
}

// Register attaches the upload route.
func (h *UploadHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /upload/avatar", h.handleAvatar)
}

func (h *UploadHandler) handleAvatar(w http.ResponseWriter, r *http.Request) {
	var req dto.UploadAvatarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	userID := storage.Stringify(req.UserID)
	if req.Image == "" || userID == "" || userID == "null" {
		respond.Error(w, http.StatusBadRequest, "Missing image or userId")
		return
	}

	user, err := h.store.Get(r.Context(), storage.CollectionUsers, userID)
	if err != nil {
		respond.Error(w, http.StatusNotFound, "User not found")
		return
	}

	savedPath, err := blob.SaveDataURL(r.Context(), h.blobs, req.Image, "avatar_"+userID)
	if err != nil {
		h.log.Error("save avatar", zap.String("user_id", userID), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "Failed to save image")
		return
	}

	meta, _ := user["user_metadata"].(map[string]any)
	if meta == nil {
		meta = map[string]any{}
	}
	meta["avatar_url"] = savedPath

	_, err = h.store.Update(r.Context(), storage.CollectionUsers, userID, storage.Record{
		"avatar_url":    savedPath,
		"user_metadata": meta,
	})
	if err != nil {
		h.log.Error("update avatar", zap.String("user_id", userID), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "Failed to save image")
		return
	}

	respond.JSON(w, http.StatusOK, dto.UploadAvatarResponse{Success: true, AvatarURL: savedPath})
}
