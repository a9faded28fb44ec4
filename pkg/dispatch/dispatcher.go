// Package dispatch forwards newly stored leads to downstream automation:
// an operator-configured webhook endpoint and, for hot leads, a Slack
// incoming webhook. Forwarding is strictly fire-and-forget: jobs are
// enqueued after the lead persists and drained by a background worker;
// failures are logged, never retried, and never surfaced to the caller.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/slack-go/slack"

	"github.com/dome317/lead-intelligence-bot/pkg/core/types"
	"github.com/dome317/lead-intelligence-bot/pkg/store"
)

// SourceTag identifies this system in outbound webhook payloads.
const SourceTag = "lead-intelligence-bot"

// DefaultQueueSize bounds the job queue; a full queue drops the job with a
// log line rather than blocking lead persistence.
const DefaultQueueSize = 64

// forwardTimeout bounds one outbound delivery attempt.
const forwardTimeout = 10 * time.Second

// slackPoster posts to a Slack incoming webhook. Narrowed to an interface
// so tests can observe posts without a Slack endpoint.
type slackPoster func(ctx context.Context, url string, msg *slack.WebhookMessage) error

// Options configures a Dispatcher. Empty URLs disable the corresponding
// channel.
type Options struct {
	WebhookURL      string
	SlackWebhookURL string
	QueueSize       int
	HTTPClient      *http.Client
	Logger          *slog.Logger

	// Store, when set, records a webhook_sent notification after a
	// successful webhook delivery for operator visibility.
	Store store.Store
}

// Dispatcher owns the queue and its single worker goroutine.
type Dispatcher struct {
	opts      Options
	jobs      chan types.Lead
	done      chan struct{}
	closeOnce sync.Once
	postSlack slackPoster
}

// New creates a Dispatcher and starts its worker.
func New(opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: forwardTimeout}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	d := &Dispatcher{
		opts: opts,
		jobs: make(chan types.Lead, opts.QueueSize),
		done: make(chan struct{}),
		postSlack: func(ctx context.Context, url string, msg *slack.WebhookMessage) error {
			return slack.PostWebhookContext(ctx, url, msg)
		},
	}
	go d.run()
	return d
}

// Enabled reports whether any downstream channel is configured.
func (d *Dispatcher) Enabled() bool {
	return d.opts.WebhookURL != "" || d.opts.SlackWebhookURL != ""
}

// Enqueue hands a stored lead to the worker. Never blocks: when the queue
// is full the job is dropped and logged.
func (d *Dispatcher) Enqueue(lead types.Lead) {
	select {
	case d.jobs <- lead:
	default:
		d.opts.Logger.Warn("dispatch queue full, dropping lead forward", "lead_id", lead.ID)
	}
}

// Close stops accepting jobs and waits for the worker to drain outstanding
// ones, up to ctx.
func (d *Dispatcher) Close(ctx context.Context) {
	d.closeOnce.Do(func() { close(d.jobs) })
	select {
	case <-d.done:
	case <-ctx.Done():
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for lead := range d.jobs {
		d.forward(lead)
	}
}

func (d *Dispatcher) forward(lead types.Lead) {
	ctx, cancel := context.WithTimeout(context.Background(), forwardTimeout)
	defer cancel()

	if d.opts.WebhookURL != "" {
		if err := d.postWebhook(ctx, lead); err != nil {
			d.opts.Logger.Error("webhook forward failed", "lead_id", lead.ID, "error", err)
		} else if d.opts.Store != nil {
			n := types.Notification{
				ID:        store.NewID("notif"),
				Type:      types.NotificationWebhookSent,
				Title:     "Lead forwarded to automation",
				Body:      fmt.Sprintf("%s sent to webhook", lead.DisplayName("Prospect")),
				Timestamp: time.Now().UTC(),
			}
			if err := d.opts.Store.AddNotification(ctx, n); err != nil {
				d.opts.Logger.Error("record webhook notification failed", "lead_id", lead.ID, "error", err)
			}
		}
	}

	if d.opts.SlackWebhookURL != "" && lead.Score >= types.HotAlertThreshold {
		msg := &slack.WebhookMessage{
			Text: fmt.Sprintf(":fire: HOT lead %s — score %d/10 (%s). Goal: %s",
				lead.DisplayName("Prospect"), lead.Score, lead.ScoreLabel, lead.Goal),
		}
		if err := d.postSlack(ctx, d.opts.SlackWebhookURL, msg); err != nil {
			d.opts.Logger.Error("slack alert failed", "lead_id", lead.ID, "error", err)
		}
	}
}

// webhookPayload is the outbound record: the lead's fields plus the source
// tag, without the store-assigned ID.
type webhookPayload struct {
	Name                *string          `json:"name"`
	Email               *string          `json:"email"`
	Goal                string           `json:"goal"`
	Obstacle            string           `json:"obstacle"`
	Readiness           string           `json:"readiness"`
	Score               int              `json:"score"`
	ScoreLabel          types.ScoreLabel `json:"score_label"`
	ConversationSummary string           `json:"conversation_summary"`
	Timestamp           time.Time        `json:"timestamp"`
	Source              string           `json:"source"`
}

func (d *Dispatcher) postWebhook(ctx context.Context, lead types.Lead) error {
	payload := webhookPayload{
		Name:                lead.Name,
		Email:               lead.Email,
		Goal:                lead.Goal,
		Obstacle:            lead.Obstacle,
		Readiness:           lead.Readiness,
		Score:               lead.Score,
		ScoreLabel:          lead.ScoreLabel,
		ConversationSummary: lead.ConversationSummary,
		Timestamp:           lead.Timestamp,
		Source:              SourceTag,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.opts.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.opts.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	// No response contract is enforced downstream, but a non-2xx is still
	// worth a log line.
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	return nil
}
