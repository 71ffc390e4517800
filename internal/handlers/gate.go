package handlers

import (
	"net/http"
	"strings"
	"time"

	"communityd/internal/metrics"
	"communityd/internal/middleware"
	"communityd/internal/tracing"
	"communityd/internal/turnstile"

	"github.com/rs/zerolog/log"
)

// Gate windows. The rate limit is a fixed window: up to rateLimitMax
// requests per window per client per endpoint, with the documented ~2x
// burst at window boundaries. The duplicate window deliberately outlives
// the rate window so reposting the same content stays blocked after the
// rate limit has reset.
const (
	rateLimitMax    = 1
	rateLimitWindow = 30 * time.Second
	dupWindow       = 600 * time.Second
)

// gate runs the anti-abuse pipeline for a public write endpoint:
// bot challenge, then the fixed-window rate limit, then the duplicate
// fingerprint check. Order matters: a failed challenge must not consume
// rate-limit quota, and a rate-limited request must not record a
// fingerprint. On rejection it writes the error response, records the
// outcome, and returns false.
//
// endpoint is the canonical request path; it scopes both KV keys.
// fields are the submission's content fields in a fixed order, joined
// with "\n" to form the duplicate fingerprint input.
func (h *Handler) gate(w http.ResponseWriter, r *http.Request, endpoint, token string, fields []string) bool {
	ip := middleware.GetClientIP(r)

	ctx, span := tracing.GateSpan(r.Context(), endpoint, "challenge")
	result := h.verifier.Verify(ctx, token, ip)
	span.End()

	if result.OK {
		metrics.TurnstileVerificationsTotal.WithLabelValues("ok").Inc()
	} else {
		metrics.TurnstileVerificationsTotal.WithLabelValues(result.Code).Inc()
		metrics.SubmissionsTotal.WithLabelValues(endpoint, "challenge_failed").Inc()
		status := http.StatusForbidden
		if result.Code == turnstile.CodeTokenRequired {
			status = http.StatusBadRequest
		}
		log.Warn().Str("endpoint", endpoint).Str("ip", ip).Str("code", result.Code).Msg("Challenge verification failed")
		writeError(w, status, result.Code, result.Message)
		return false
	}

	allowed, err := h.limiter.Allow(r.Context(), endpoint, ip, rateLimitMax, rateLimitWindow)
	if err != nil {
		log.Error().Err(err).Str("endpoint", endpoint).Msg("Rate limit check failed")
		metrics.SubmissionsTotal.WithLabelValues(endpoint, "error").Inc()
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
		return false
	}
	if !allowed {
		metrics.SubmissionsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
		log.Warn().Str("endpoint", endpoint).Str("ip", ip).Msg("Rate limited")
		writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests, please wait before trying again")
		return false
	}

	fresh, err := h.detector.Allow(r.Context(), endpoint, ip, strings.Join(fields, "\n"), dupWindow)
	if err != nil {
		log.Error().Err(err).Str("endpoint", endpoint).Msg("Duplicate check failed")
		metrics.SubmissionsTotal.WithLabelValues(endpoint, "error").Inc()
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
		return false
	}
	if !fresh {
		metrics.SubmissionsTotal.WithLabelValues(endpoint, "duplicate").Inc()
		log.Warn().Str("endpoint", endpoint).Str("ip", ip).Msg("Duplicate submission")
		writeError(w, http.StatusConflict, "DUPLICATE_SUBMISSION", "This content was already submitted recently")
		return false
	}

	return true
}
