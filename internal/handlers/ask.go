package handlers

import (
	"fmt"
	"net/http"

	"communityd/internal/abuse"
	"communityd/internal/community"
	"communityd/internal/metrics"

	"github.com/rs/zerolog/log"
)

// askSubjectFallbackLen is how much of a bare question becomes the
// subject when no explicit subject is given.
const askSubjectFallbackLen = 80

type createAskRequest struct {
	Locale         string `json:"locale"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
	Question       string `json:"question"`
	Email          string `json:"email"`
	TurnstileToken string `json:"turnstileToken"`
}

// HandleAskCreate accepts a question from the ask form, runs it through
// the submission gate, and stores it as a pending ask. Clients may send
// either subject+body or a single question field; in the latter case the
// subject is derived from the question's first characters.
// POST /api/ask
func (h *Handler) HandleAskCreate(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/ask"

	var req createAskRequest
	if !decodeJSON(w, r, &req) {
		metrics.SubmissionsTotal.WithLabelValues(endpoint, "invalid").Inc()
		return
	}

	req.Locale = normalize(req.Locale)
	req.Subject = normalize(req.Subject)
	req.Body = normalize(req.Body)
	req.Question = normalize(req.Question)
	req.Email = normalize(req.Email)

	// Question-only submissions: the question doubles as body, and its
	// head becomes the subject.
	if req.Question != "" {
		if req.Body == "" {
			req.Body = req.Question
		}
		if req.Subject == "" {
			req.Subject = truncateRunes(req.Question, askSubjectFallbackLen)
		}
	}

	if !community.IsLocale(req.Locale) {
		metrics.SubmissionsTotal.WithLabelValues(endpoint, "invalid").Inc()
		writeError(w, http.StatusBadRequest, "INVALID_LOCALE", "Locale must be one of: en, zh-CN")
		return
	}
	if !abuse.IsLengthBetween(req.Subject, titleMinLen, titleMaxLen) {
		metrics.SubmissionsTotal.WithLabelValues(endpoint, "invalid").Inc()
		writeError(w, http.StatusBadRequest, "INVALID_SUBJECT",
			fmt.Sprintf("Subject must be between %d and %d characters", titleMinLen, titleMaxLen))
		return
	}
	if !abuse.IsLengthBetween(req.Body, bodyMinLen, bodyMaxLen) {
		metrics.SubmissionsTotal.WithLabelValues(endpoint, "invalid").Inc()
		writeError(w, http.StatusBadRequest, "INVALID_BODY",
			fmt.Sprintf("Body must be between %d and %d characters", bodyMinLen, bodyMaxLen))
		return
	}
	if req.Email != "" && !isValidEmail(req.Email) {
		metrics.SubmissionsTotal.WithLabelValues(endpoint, "invalid").Inc()
		writeError(w, http.StatusBadRequest, "INVALID_EMAIL", "Email address is not valid")
		return
	}
	if abuse.CountURLsInFields([]string{req.Subject, req.Body}) > maxURLs {
		metrics.SubmissionsTotal.WithLabelValues(endpoint, "invalid").Inc()
		writeError(w, http.StatusBadRequest, "TOO_MANY_URLS", "Too many links in submission")
		return
	}

	if !h.gate(w, r, endpoint, req.TurnstileToken, []string{req.Locale, req.Subject, req.Body, req.Email}) {
		return
	}

	ask, err := h.store.InsertPendingAsk(r.Context(), req.Locale, req.Subject, req.Body, req.Email)
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues(endpoint, "error").Inc()
		log.Error().Err(err).Msg("Failed to insert ask")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
		return
	}

	metrics.SubmissionsTotal.WithLabelValues(endpoint, "accepted").Inc()
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"ok":     true,
		"id":     ask.ID,
		"status": ask.Status,
	})
}

// truncateRunes cuts s to at most n runes
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
