// Package metrics defines and registers all custom Prometheus metrics for the
// account service. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry on import via
// promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "accounts"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// SignInsTotal counts credential sign-in attempts.
// Label:
//   - result: "success", "invalid_credentials", "not_verified", "rate_limited", "error"
var SignInsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sign_ins_total",
		Help:      "Total number of email/password sign-in attempts, by result.",
	},
	[]string{"result"},
)

// SignUpsTotal counts sign-up attempts.
// Label:
//   - result: "success", "duplicate", "invalid", "error"
var SignUpsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sign_ups_total",
		Help:      "Total number of sign-up attempts, by result.",
	},
	[]string{"result"},
)

// SocialSignInsTotal counts completed OAuth callbacks.
// Labels:
//   - provider: "google" or "github"
//   - result: "success" or "error"
var SocialSignInsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "social_sign_ins_total",
		Help:      "Total number of OAuth callbacks handled, by provider and result.",
	},
	[]string{"provider", "result"},
)

// SessionLookupsTotal counts session resolutions per request.
// Label:
//   - source: "cookie_cache", "database", "none"
var SessionLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_lookups_total",
		Help:      "Total number of session lookups, by where the session was found.",
	},
	[]string{"source"},
)

// ProfileUpdatesTotal counts profile submissions.
// Label:
//   - result: "success", "invalid", "error"
var ProfileUpdatesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "profile_updates_total",
		Help:      "Total number of profile updates, by result.",
	},
	[]string{"result"},
)

// ImageUploadsTotal counts avatar uploads.
// Label:
//   - result: "success", "too_large", "invalid", "error"
var ImageUploadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "image_uploads_total",
		Help:      "Total number of avatar uploads, by result.",
	},
	[]string{"result"},
)

// ── Email metrics ─────────────────────────────────────────────────────────────

// EmailsDispatchedTotal counts email delivery outcomes.
// Labels:
//   - template: "verification" or "reset-password"
//   - result: "sent", "failed", "dropped"
var EmailsDispatchedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "emails_dispatched_total",
		Help:      "Total number of emails handled by the dispatcher, by template and result.",
	},
	[]string{"template", "result"},
)

// EmailQueueDepth tracks the number of emails waiting for a worker.
var EmailQueueDepth = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "email_queue_depth",
		Help:      "Current number of emails pending in the dispatcher buffer.",
	},
)

// EmailDeliveryDuration measures one provider call.
// Label:
//   - template: "verification" or "reset-password"
var EmailDeliveryDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "email_delivery_duration_seconds",
		Help:      "Duration of a single email provider call.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"template"},
)
