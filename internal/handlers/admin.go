package handlers

import (
	"errors"
	"net/http"

	"communityd/internal/community"
	"communityd/internal/metrics"
	"communityd/internal/middleware"

	"github.com/rs/zerolog/log"
)

// requireAdmin rejects requests without a valid admin session.
// Returns false after writing the error response.
func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if !h.auth.IsRequestAuthenticated(r) {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Admin session required")
		return false
	}
	return true
}

type loginRequest struct {
	Password string `json:"password"`
}

// HandleAdminLogin checks the admin password and issues the signed
// session cookie.
// POST /api/admin/login
func (h *Handler) HandleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "MISSING_PASSWORD", "Password is required")
		return
	}
	if !h.auth.Configured() {
		metrics.AdminLoginsTotal.WithLabelValues("not_configured").Inc()
		log.Error().Msg("Admin login attempted but ADMIN_PASSWORD is not set")
		writeError(w, http.StatusInternalServerError, "ADMIN_NOT_CONFIGURED", "Admin access is not configured")
		return
	}
	if !h.auth.VerifyPassword(req.Password) {
		metrics.AdminLoginsTotal.WithLabelValues("failure").Inc()
		log.Warn().Str("ip", middleware.GetClientIP(r)).Msg("Admin login failed")
		writeError(w, http.StatusForbidden, "INVALID_CREDENTIALS", "Invalid credentials")
		return
	}

	h.auth.SetSessionCookie(w)
	metrics.AdminLoginsTotal.WithLabelValues("success").Inc()
	log.Info().Str("ip", middleware.GetClientIP(r)).Msg("Admin logged in")
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

// HandleAdminLogout clears the session cookie. Tokens are stateless, so
// a copy stolen before logout stays valid until its expiry.
// POST /api/admin/logout
func (h *Handler) HandleAdminLogout(w http.ResponseWriter, r *http.Request) {
	h.auth.ClearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

// HandleModerationQueue returns the pending items of all three entity
// kinds in one aggregate payload.
// GET /api/admin/moderation
func (h *Handler) HandleModerationQueue(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	page, pageSize := parsePagination(r, maxAdminPage)
	queue, err := h.store.PendingQueue(r.Context(), page, pageSize)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load moderation queue")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, queue)
}

type moderationActionRequest struct {
	Entity string `json:"entity"`
	ID     string `json:"id"`
	Action string `json:"action"`
}

// HandleModerationAction applies a publish or hide decision to a single
// pending (or previously moderated) item.
// POST /api/admin/moderation/action
func (h *Handler) HandleModerationAction(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	var req moderationActionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	entity, ok := community.ParseEntity(req.Entity)
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_ENTITY", "Entity must be one of: posts, comments, asks")
		return
	}
	action, ok := community.ParseAction(req.Action)
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_ACTION", "Action must be one of: publish, hide")
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Item id is required")
		return
	}

	result, err := h.store.ApplyAction(r.Context(), entity, req.ID, action)
	if err != nil {
		if errors.Is(err, community.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Item not found")
			return
		}
		log.Error().Err(err).Str("entity", req.Entity).Str("id", req.ID).Msg("Failed to apply moderation action")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
		return
	}

	metrics.ModerationActionsTotal.WithLabelValues(req.Entity, req.Action).Inc()
	log.Info().Str("entity", req.Entity).Str("id", req.ID).Str("action", req.Action).Msg("Moderation action applied")
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "item": result})
}
