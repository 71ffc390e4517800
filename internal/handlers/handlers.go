package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"communityd/internal/abuse"
	"communityd/internal/adminauth"
	"communityd/internal/community"
	"communityd/internal/turnstile"

	"github.com/rs/zerolog/log"
)

// Config holds handler configuration options
type Config struct {
	// SecureCookies sets the Secure flag on the admin session cookie
	// Should be true in production (HTTPS), false for local development (HTTP)
	SecureCookies bool
}

// ChallengeVerifier checks a bot-challenge token. Satisfied by
// *turnstile.Verifier; narrowed to an interface so tests can stub verdicts.
type ChallengeVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) turnstile.Result
}

// Handler contains all HTTP handler methods and their dependencies.
// Dependencies are injected via the constructor for better testability.
type Handler struct {
	store    community.Store
	verifier ChallengeVerifier
	limiter  *abuse.Limiter
	detector *abuse.Detector
	auth     *adminauth.Authenticator
	config   Config
}

// NewHandler creates a new Handler with all required dependencies.
// This constructor pattern ensures the Handler is always fully initialized.
func NewHandler(
	store community.Store,
	verifier ChallengeVerifier,
	limiter *abuse.Limiter,
	detector *abuse.Detector,
	auth *adminauth.Authenticator,
	config Config,
) *Handler {
	return &Handler{
		store:    store,
		verifier: verifier,
		limiter:  limiter,
		detector: detector,
		auth:     auth,
		config:   config,
	}
}

// apiError is the uniform error envelope: {"error":{"code":...,"message":...}}
type apiError struct {
	Error apiErrorBody `json:"error"`
}

type apiErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON encodes and writes a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes the uniform error envelope
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{Error: apiErrorBody{Code: code, Message: message}})
}

// decodeJSON decodes the request body into target.
// Writes an INVALID_JSON error response and returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, target interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON")
		return false
	}
	return true
}

// emailPattern is intentionally loose: one @, no whitespace, a dot in the domain
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// isValidEmail reports whether s looks like an email address
func isValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// pagination bounds

const (
	defaultPageSize = 20
	maxPublicPage   = 50
	maxAdminPage    = 100
)

// parsePagination reads page and pageSize query parameters, clamping both
// into range. Out-of-range and non-numeric values fall back silently.
func parsePagination(r *http.Request, maxPageSize int) (page, pageSize int) {
	page = 1
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			page = n
		}
	}
	pageSize = defaultPageSize
	if v := r.URL.Query().Get("pageSize"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			pageSize = n
		}
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// normalize trims surrounding whitespace from a user-supplied field
func normalize(s string) string {
	return strings.TrimSpace(s)
}
