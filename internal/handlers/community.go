package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"communityd/internal/abuse"
	"communityd/internal/community"
	"communityd/internal/metrics"

	"github.com/rs/zerolog/log"
)

// Validation bounds for free-text fields (rune counts, inclusive).
const (
	titleMinLen   = 3
	titleMaxLen   = 120
	bodyMinLen    = 10
	bodyMaxLen    = 20000
	commentMinLen = 1
	commentMaxLen = 5000
	authorMaxLen  = 40
	maxURLs       = 2
)

type createPostRequest struct {
	Locale         string `json:"locale"`
	Title          string `json:"title"`
	Body           string `json:"body"`
	AuthorName     string `json:"author_name"`
	TurnstileToken string `json:"turnstileToken"`
}

// HandlePostCreate accepts a new community post, runs it through the
// submission gate, and stores it as pending.
// POST /api/community/posts
func (h *Handler) HandlePostCreate(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/community/posts"

	var req createPostRequest
	if !decodeJSON(w, r, &req) {
		metrics.SubmissionsTotal.WithLabelValues(endpoint, "invalid").Inc()
		return
	}

	req.Locale = normalize(req.Locale)
	req.Title = normalize(req.Title)
	req.Body = normalize(req.Body)
	req.AuthorName = normalize(req.AuthorName)

	if !community.IsLocale(req.Locale) {
		metrics.SubmissionsTotal.WithLabelValues(endpoint, "invalid").Inc()
		writeError(w, http.StatusBadRequest, "INVALID_LOCALE", "Locale must be one of: en, zh-CN")
		return
	}
	if !abuse.IsLengthBetween(req.Title, titleMinLen, titleMaxLen) {
		metrics.SubmissionsTotal.WithLabelValues(endpoint, "invalid").Inc()
		writeError(w, http.StatusBadRequest, "INVALID_TITLE",
			fmt.Sprintf("Title must be between %d and %d characters", titleMinLen, titleMaxLen))
		return
	}
	if !abuse.IsLengthBetween(req.Body, bodyMinLen, bodyMaxLen) {
		metrics.SubmissionsTotal.WithLabelValues(endpoint, "invalid").Inc()
		writeError(w, http.StatusBadRequest, "INVALID_BODY",
			fmt.Sprintf("Body must be between %d and %d characters", bodyMinLen, bodyMaxLen))
		return
	}
	if !abuse.IsLengthBetween(req.AuthorName, 0, authorMaxLen) {
		metrics.SubmissionsTotal.WithLabelValues(endpoint, "invalid").Inc()
		writeError(w, http.StatusBadRequest, "INVALID_AUTHOR",
			fmt.Sprintf("Author name must be at most %d characters", authorMaxLen))
		return
	}
	if abuse.CountURLsInFields([]string{req.Title, req.Body, req.AuthorName}) > maxURLs {
		metrics.SubmissionsTotal.WithLabelValues(endpoint, "invalid").Inc()
		writeError(w, http.StatusBadRequest, "TOO_MANY_URLS", "Too many links in submission")
		return
	}

	if !h.gate(w, r, endpoint, req.TurnstileToken, []string{req.Locale, req.Title, req.Body, req.AuthorName}) {
		return
	}

	post, err := h.store.InsertPendingPost(r.Context(), req.Locale, req.Title, req.Body, req.AuthorName)
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues(endpoint, "error").Inc()
		log.Error().Err(err).Msg("Failed to insert post")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
		return
	}

	metrics.SubmissionsTotal.WithLabelValues(endpoint, "accepted").Inc()
	writeJSON(w, http.StatusCreated, map[string]interface{}{"post": post})
}

// HandlePostList returns published posts newest-first, optionally
// filtered by locale.
// GET /api/community/posts
func (h *Handler) HandlePostList(w http.ResponseWriter, r *http.Request) {
	locale := normalize(r.URL.Query().Get("locale"))
	if locale != "" && !community.IsLocale(locale) {
		writeError(w, http.StatusBadRequest, "INVALID_LOCALE", "Locale must be one of: en, zh-CN")
		return
	}
	page, pageSize := parsePagination(r, maxPublicPage)

	result, err := h.store.ListPublishedPosts(r.Context(), locale, page, pageSize)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list posts")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"posts":    result.Items,
		"total":    result.Total,
		"page":     result.Page,
		"pageSize": result.PageSize,
	})
}

// HandlePostGet returns a single published post with its published
// comments, or 404 for anything not publicly visible.
// GET /api/community/posts/{id}
func (h *Handler) HandlePostGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Post id is required")
		return
	}
	locale := normalize(r.URL.Query().Get("locale"))
	if locale != "" && !community.IsLocale(locale) {
		writeError(w, http.StatusBadRequest, "INVALID_LOCALE", "Locale must be one of: en, zh-CN")
		return
	}

	post, err := h.store.GetPublishedPost(r.Context(), id, locale)
	if err != nil {
		if errors.Is(err, community.ErrNotFound) {
			writeError(w, http.StatusNotFound, "POST_NOT_FOUND", "Post not found")
			return
		}
		log.Error().Err(err).Str("id", id).Msg("Failed to get post")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"post": post})
}

type createCommentRequest struct {
	Body           string `json:"body"`
	AuthorName     string `json:"author_name"`
	TurnstileToken string `json:"turnstileToken"`
}

// HandleCommentCreate accepts a comment on a published post, runs it
// through the submission gate, and stores it as pending. The parent
// post must be published at creation time; otherwise 404.
// POST /api/community/posts/{id}/comments
func (h *Handler) HandleCommentCreate(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/community/posts/:id/comments"

	postID := r.PathValue("id")
	if postID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Post id is required")
		return
	}

	var req createCommentRequest
	if !decodeJSON(w, r, &req) {
		metrics.SubmissionsTotal.WithLabelValues(endpoint, "invalid").Inc()
		return
	}

	req.Body = normalize(req.Body)
	req.AuthorName = normalize(req.AuthorName)

	if !abuse.IsLengthBetween(req.Body, commentMinLen, commentMaxLen) {
		metrics.SubmissionsTotal.WithLabelValues(endpoint, "invalid").Inc()
		writeError(w, http.StatusBadRequest, "INVALID_COMMENT",
			fmt.Sprintf("Comment must be between %d and %d characters", commentMinLen, commentMaxLen))
		return
	}
	if !abuse.IsLengthBetween(req.AuthorName, 0, authorMaxLen) {
		metrics.SubmissionsTotal.WithLabelValues(endpoint, "invalid").Inc()
		writeError(w, http.StatusBadRequest, "INVALID_AUTHOR",
			fmt.Sprintf("Author name must be at most %d characters", authorMaxLen))
		return
	}
	if abuse.CountURLsInFields([]string{req.Body, req.AuthorName}) > maxURLs {
		metrics.SubmissionsTotal.WithLabelValues(endpoint, "invalid").Inc()
		writeError(w, http.StatusBadRequest, "TOO_MANY_URLS", "Too many links in submission")
		return
	}

	if !h.gate(w, r, endpoint, req.TurnstileToken, []string{postID, req.Body, req.AuthorName}) {
		return
	}

	comment, err := h.store.InsertPendingComment(r.Context(), postID, req.Body, req.AuthorName)
	if err != nil {
		if errors.Is(err, community.ErrNotFound) {
			metrics.SubmissionsTotal.WithLabelValues(endpoint, "not_found").Inc()
			writeError(w, http.StatusNotFound, "POST_NOT_FOUND", "Post not found")
			return
		}
		metrics.SubmissionsTotal.WithLabelValues(endpoint, "error").Inc()
		log.Error().Err(err).Str("post_id", postID).Msg("Failed to insert comment")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
		return
	}

	metrics.SubmissionsTotal.WithLabelValues(endpoint, "accepted").Inc()
	writeJSON(w, http.StatusCreated, map[string]interface{}{"comment": comment})
}
