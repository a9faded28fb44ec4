// Package store persists lead records, derives their notifications, and
// serves aggregate stats. Two backends implement the same capability
// interface: a durable Redis store and a process-local in-memory fallback.
// The backend is selected once at process start; business logic never
// branches on which one is active.
package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dome317/lead-intelligence-bot/pkg/core/types"
)

// Store is the lead persistence capability.
//
// AddLead assigns the lead's identity, derives its notifications, and
// persists both together: readers served by this process never observe the
// notifications without their lead. Leads and Notifications return
// newest-first. Stats is a pure read-time fold over all leads.
type Store interface {
	AddLead(ctx context.Context, lead types.Lead) (types.Lead, error)
	AddNotification(ctx context.Context, n types.Notification) error
	Leads(ctx context.Context) ([]types.Lead, error)
	Notifications(ctx context.Context) ([]types.Notification, error)
	Stats(ctx context.Context) (types.Stats, error)
}

// NewID mints a prefixed record identity, e.g. "lead_4f9c...".
func NewID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

// NotificationsFor derives the notification set for a freshly stored lead:
// always one lead_new, plus one lead_hot iff the score reaches the alert
// threshold. Deterministic apart from the minted IDs, and shared by both
// backends so they produce identical sets.
func NotificationsFor(lead types.Lead) []types.Notification {
	summary := lead.ConversationSummary
	if len(summary) > 80 {
		summary = summary[:80]
	}

	notifs := []types.Notification{
		{
			ID:        NewID("notif"),
			Type:      types.NotificationLeadNew,
			Title:     fmt.Sprintf("New Lead: %s", lead.DisplayName("Unknown")),
			Body:      fmt.Sprintf("Score %d/10 (%s) — %s...", lead.Score, lead.ScoreLabel, summary),
			Timestamp: lead.Timestamp,
		},
	}

	if lead.Score >= types.HotAlertThreshold {
		notifs = append(notifs, types.Notification{
			ID:        NewID("notif"),
			Type:      types.NotificationLeadHot,
			Title:     "HOT Lead — Notify Sales Team",
			Body:      fmt.Sprintf("%s scored %d/10. Goal: %s", lead.DisplayName("Prospect"), lead.Score, lead.Goal),
			Timestamp: lead.Timestamp,
		})
	}

	return notifs
}
