// Package metrics holds the Prometheus collectors for the moderation pipeline.
//
// Import Path: travelguide.io/guestbook/internal/pkg/metrics
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var SubmissionsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guestbook_submissions_created_total",
	Help: "Submissions persisted, by kind and initial moderation state.",
}, []string{"kind", "state"})

var SpamScore = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "guestbook_classifier_spam_score",
	Help:    "Spam score assigned by the content classifier.",
	Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 80, 100},
}, []string{"kind"})

var ClassifierReasons = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guestbook_classifier_reasons_total",
	Help: "Classifier findings by reason.",
}, []string{"reason"})

var RateLimitDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guestbook_ratelimit_decisions_total",
	Help: "Rate limiter decisions by action kind and outcome (allowed, rejected, degraded).",
}, []string{"action_kind", "outcome"})

var ModerationTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guestbook_moderation_transitions_total",
	Help: "Moderator actions by target state.",
}, []string{"to"})

var AuditWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "guestbook_audit_write_failures_total",
	Help: "Audit records that could not be written or scheduled.",
})

// Rate limiter outcomes.
const (
	OutcomeAllowed  = "allowed"
	OutcomeRejected = "rejected"
	OutcomeDegraded = "degraded"
)

var EventHandlerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guestbook_event_handler_failures_total",
	Help: "Domain event subscriber failures by event type and subscriber.",
}, []string{"event_type", "subscriber"})
