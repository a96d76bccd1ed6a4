package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/artevasinkaizen-cmd/partesapp/internal/auth"
	"github.com/artevasinkaizen-cmd/partesapp/internal/http/respond"
	"github.com/artevasinkaizen-cmd/partesapp/internal/models/dto"
)

// AuthHandler owns the /auth/* endpoints.
type AuthHandler struct {
	svc *auth.Service
	log *zap.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(svc *auth.Service, log *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, log: log}
}

// Register attaches auth routes to the mux.
func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/send-code", h.handleSendCode)
	mux.HandleFunc("POST /auth/verify-code", h.handleVerifyCode)
	mux.HandleFunc("POST /auth/register", h.handleRegister)
	mux.HandleFunc("POST /auth/login", h.handleLogin)
	mux.HandleFunc("POST /auth/update", h.handleUpdate)
	mux.HandleFunc("POST /auth/refresh", h.handleRefresh)
}

func (h *AuthHandler) handleSendCode(w http.ResponseWriter, r *http.Request) {
	var req dto.SendCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		respond.Error(w, http.StatusBadRequest, "Missing email")
		return
	}
	code, mailed, err := h.svc.SendCode(r.Context(), req.Email)
	if err != nil {
		h.log.Error("send code", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "Failed to send email")
		return
	}
	resp := dto.SendCodeResponse{Success: true, Message: "Code sent"}
	if !mailed {
		resp.Message = "Code sent (Dev Mode - Check Console)"
		resp.DevCode = code
	}
	respond.JSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid Code")
		return
	}
	if err := h.svc.VerifyCode(r.Context(), req.Email, req.Code); err != nil {
		switch {
		case errors.Is(err, auth.ErrCodeExpired):
			respond.Error(w, http.StatusBadRequest, "Code expired")
		case errors.Is(err, auth.ErrInvalidCode):
			respond.Error(w, http.StatusBadRequest, "Invalid Code")
		default:
			h.log.Error("verify code", zap.Error(err))
			respond.Error(w, http.StatusInternalServerError, "Verification failed")
		}
		return
	}
	respond.JSON(w, http.StatusOK, dto.VerifyCodeResponse{Success: true})
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	user, session, err := h.svc.Register(r.Context(), req.Email, req.Password, req.Options.Data)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			respond.Error(w, http.StatusBadRequest, "User already exists")
			return
		}
		h.log.Error("register", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "Failed to create user")
		return
	}
	respond.JSON(w, http.StatusOK, dto.SessionResponse{User: user, Session: session})
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	user, session, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respond.Error(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.log.Error("login", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "Login failed")
		return
	}
	respond.JSON(w, http.StatusOK, dto.SessionResponse{User: user, Session: session})
}

func (h *AuthHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	user, err := h.svc.UpdateUser(r.Context(), req.Email, req.Data)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			respond.Error(w, http.StatusNotFound, "User not found")
			return
		}
		h.log.Error("update user", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "Update failed")
		return
	}
	respond.JSON(w, http.StatusOK, dto.UserResponse{User: user})
}

func (h *AuthHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		respond.Error(w, http.StatusBadRequest, "Missing refresh token")
		return
	}
	user, session, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidRefresh) {
			respond.Error(w, http.StatusUnauthorized, "Invalid refresh token")
			return
		}
		h.log.Error("refresh", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "Refresh failed")
		return
	}
	respond.JSON(w, http.StatusOK, dto.SessionResponse{User: user, Session: session})
}
