package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "communityd_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "communityd_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "path"})
)

// Submission gate metrics
var (
	// SubmissionsTotal counts every public write attempt by endpoint and
	// how it ended. Outcomes: accepted, invalid, challenge_failed,
	// rate_limited, duplicate, not_found, error.
	SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "communityd_submissions_total",
		Help: "Public submissions by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	// TurnstileVerificationsTotal counts verification calls by result
	// code ("ok" for successes).
	TurnstileVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "communityd_turnstile_verifications_total",
		Help: "Turnstile verification attempts by result",
	}, []string{"result"})
)

// Moderation metrics
var (
	ModerationActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "communityd_moderation_actions_total",
		Help: "Moderation actions applied, by entity and action",
	}, []string{"entity", "action"})

	AdminLoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "communityd_admin_logins_total",
		Help: "Admin login attempts by outcome",
	}, []string{"outcome"})

	// PendingItems is updated by the collector with the current depth of
	// each moderation queue.
	PendingItems = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "communityd_pending_items",
		Help: "Items currently awaiting moderation, by entity",
	}, []string{"entity"})
)

// NormalizePath reduces high-cardinality path labels by replacing dynamic
// segments with placeholders. This keeps the metric label space bounded.
func NormalizePath(path string) string {
	segments := splitPath(path)

	// /api/community/posts/{id} and /api/community/posts/{id}/comments
	if len(segments) >= 4 && segments[0] == "api" && segments[1] == "community" && segments[2] == "posts" {
		if len(segments) == 4 {
			return "/api/community/posts/:id"
		}
		if len(segments) == 5 && segments[4] == "comments" {
			return "/api/community/posts/:id/comments"
		}
	}

	return path
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
