package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aidashboard/dashboard-auth/internal/domain"
	"github.com/aidashboard/dashboard-auth/internal/http/middleware"
	"github.com/aidashboard/dashboard-auth/internal/http/response"
	"github.com/aidashboard/dashboard-auth/internal/observability"
	"github.com/aidashboard/dashboard-auth/internal/security"
	"github.com/aidashboard/dashboard-auth/internal/service"
)

type UserHandler struct {
	sessions *service.SessionService
}

func NewUserHandler(sessions *service.SessionService) *UserHandler {
	return &UserHandler{sessions: sessions}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, MeResponse{Identity: id, Verified: domain.HasRole(id.Roles, domain.RoleVerified)})
}

func (h *UserHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required", nil)
		return
	}
	device, _ := security.DeviceFingerprint(r)
	sessions, err := h.sessions.ListActive(r.Context(), id.ID, device)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"sessions": sessions})
}

func (h *UserHandler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required", nil)
		return
	}
	sessionID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || sessionID <= 0 {
		response.Error(w, r, http.StatusBadRequest, "INVALID_SESSION_ID", "Invalid session id", nil)
		return
	}
	if err := h.sessions.Revoke(r.Context(), id.ID, sessionID); err != nil {
		response.FromError(w, r, err)
		return
	}
	observability.Audit(r, "auth.session_revoked", "user_id", id.ID, "session_id", sessionID)
	response.JSON(w, r, http.StatusOK, MessageResponse{Message: "Session revoked"})
}
