package types

import (
	"math"
	"time"
)

// ScoreLabel is the coarse HOT/WARM/COLD bucket of a 1-10 lead score.
type ScoreLabel string

const (
	ScoreHot  ScoreLabel = "HOT"
	ScoreWarm ScoreLabel = "WARM"
	ScoreCold ScoreLabel = "COLD"
)

// HotAlertThreshold is the score at which a lead is considered alert-worthy
// (extra lead_hot notification, Slack forwarding). Note the deliberate
// asymmetry with the extraction-time buckets below: extraction labels HOT as
// 8-10, while alerting fires at >= 7. Both thresholds are intentional and
// not reconciled.
const HotAlertThreshold = 7

// ScoreLabelFor returns the extraction-time bucket for a score:
// 8-10 HOT, 5-7 WARM, 1-4 COLD.
func ScoreLabelFor(score int) ScoreLabel {
	switch {
	case score >= 8:
		return ScoreHot
	case score >= 5:
		return ScoreWarm
	default:
		return ScoreCold
	}
}

// Lead is the structured, scored summary of one completed conversation.
// Immutable after creation; ID is assigned at store-insertion time.
// Name and Email are nil when the prospect never provided them.
type Lead struct {
	ID                  string     `json:"id"`
	Name                *string    `json:"name"`
	Email               *string    `json:"email"`
	Goal                string     `json:"goal"`
	Obstacle            string     `json:"obstacle"`
	Readiness           string     `json:"readiness"`
	Score               int        `json:"score"`
	ScoreLabel          ScoreLabel `json:"score_label"`
	ConversationSummary string     `json:"conversation_summary"`
	Source              string     `json:"source"`
	Timestamp           time.Time  `json:"timestamp"`
}

// DisplayName returns the prospect's name or a fallback for notification
// titles.
func (l Lead) DisplayName(fallback string) string {
	if l.Name != nil && *l.Name != "" {
		return *l.Name
	}
	return fallback
}

// NotificationType categorizes derived notifications.
type NotificationType string

const (
	NotificationLeadNew     NotificationType = "lead_new"
	NotificationLeadHot     NotificationType = "lead_hot"
	NotificationWebhookSent NotificationType = "webhook_sent"
)

// Notification is an append-only event record derived from a lead.
// Never updated after creation.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	Timestamp time.Time        `json:"timestamp"`
}

// Stats is the read-time aggregate over the full lead collection.
// It is derived, never stored.
type Stats struct {
	Total    int     `json:"total"`
	Hot      int     `json:"hot"`
	Warm     int     `json:"warm"`
	Cold     int     `json:"cold"`
	AvgScore float64 `json:"avgScore"`
}

// ComputeStats folds over leads: counts per label and the mean score
// rounded to one decimal place. AvgScore is 0 when there are no leads.
func ComputeStats(leads []Lead) Stats {
	s := Stats{Total: len(leads)}
	if s.Total == 0 {
		return s
	}
	sum := 0
	for _, l := range leads {
		sum += l.Score
		switch l.ScoreLabel {
		case ScoreHot:
			s.Hot++
		case ScoreWarm:
			s.Warm++
		default:
			s.Cold++
		}
	}
	s.AvgScore = math.Round(float64(sum)/float64(s.Total)*10) / 10
	return s
}
