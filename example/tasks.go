package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dmitrymomot/leaseq/pkg/queue"
	"github.com/dmitrymomot/leaseq/pkg/worker"
)

const (
	kindSummarizeNote = "ai.summarize"
	kindSyncProduct   = "woo.sync_product"
	kindSendSMS       = "sms.dispatch"
	kindPruneJobs     = "queue.prune"
)

const sendSMSSchema = `{
	"type": "object",
	"required": ["to", "body"],
	"properties": {
		"to":   {"type": "string", "minLength": 1},
		"body": {"type": "string", "minLength": 1, "maxLength": 1600}
	}
}`

var (
	errInvalidNumber = errors.New("sms: invalid phone number")
	errRateLimited   = errors.New("sms: rate limited")
)

// summarizer is the AI client used to condense CRM notes.
type summarizer interface {
	Summarize(ctx context.Context, noteID int64) (string, error)
}

type summarizePayload struct {
	NoteID int64 `json:"note_id"`
}

type summarizeNote struct {
	ai  summarizer
	log *slog.Logger
}

func (t *summarizeNote) Name() string { return kindSummarizeNote }

func (t *summarizeNote) Handle(ctx context.Context, p summarizePayload) error {
	if p.NoteID <= 0 {
		return worker.Permanent(fmt.Errorf("summarize: invalid note id %d", p.NoteID))
	}
	summary, err := t.ai.Summarize(ctx, p.NoteID)
	if err != nil {
		return fmt.Errorf("summarize note %d: %w", p.NoteID, err)
	}
	t.log.InfoContext(ctx, "note summarized", slog.Int64("note_id", p.NoteID), slog.Int("length", len(summary)))
	return nil
}

// shop is the WooCommerce REST client.
type shop interface {
	SyncProduct(ctx context.Context, productID int64) error
}

type syncProductPayload struct {
	ProductID int64 `json:"product_id"`
}

type syncProduct struct {
	shop shop
	log  *slog.Logger
}

func (t *syncProduct) Name() string { return kindSyncProduct }

func (t *syncProduct) Handle(ctx context.Context, p syncProductPayload) error {
	if err := t.shop.SyncProduct(ctx, p.ProductID); err != nil {
		return fmt.Errorf("sync product %d: %w", p.ProductID, err)
	}
	if job, ok := queue.JobFromContext(ctx); ok && job.Attempts > 0 {
		t.log.InfoContext(ctx, "product synced after retry", slog.Int64("product_id", p.ProductID))
	}
	return nil
}

// smsGateway delivers text messages.
type smsGateway interface {
	Send(ctx context.Context, to, body string) error
}

type sendSMSPayload struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

type sendSMS struct {
	gateway smsGateway
	log     *slog.Logger
}

func (t *sendSMS) Name() string { return kindSendSMS }

func (t *sendSMS) Handle(ctx context.Context, p sendSMSPayload) error {
	err := t.gateway.Send(ctx, p.To, p.Body)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errInvalidNumber):
		return worker.Permanent(err)
	case errors.Is(err, errRateLimited):
		return worker.Snooze(time.Minute)
	default:
		return err
	}
}

// pruneJobs removes finished jobs older than retention every night.
type pruneJobs struct {
	queue     *queue.Queue
	retention time.Duration
}

func (t *pruneJobs) Name() string     { return kindPruneJobs }
func (t *pruneJobs) Schedule() string { return "0 3 * * *" }

func (t *pruneJobs) Handle(ctx context.Context) error {
	_, err := t.queue.Prune(ctx, time.Now().Add(-t.retention))
	return err
}

type stubSummarizer struct{}

func (stubSummarizer) Summarize(_ context.Context, noteID int64) (string, error) {
	return fmt.Sprintf("summary of note %d", noteID), nil
}

type stubShop struct{}

func (stubShop) SyncProduct(context.Context, int64) error { return nil }

// rateLimitedGateway accepts at most limit messages per window.
type rateLimitedGateway struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	start  time.Time
	sent   int
}

func newRateLimitedGateway(limit int, window time.Duration) *rateLimitedGateway {
	return &rateLimitedGateway{limit: limit, window: window}
}

func (g *rateLimitedGateway) Send(_ context.Context, to, _ string) error {
	if !validNumber(to) {
		return fmt.Errorf("%w: %q", errInvalidNumber, to)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	if now.Sub(g.start) >= g.window {
		g.start = now
		g.sent = 0
	}
	if g.sent >= g.limit {
		return errRateLimited
	}
	g.sent++
	return nil
}

// validNumber accepts E.164 numbers: a plus sign and 8 to 15 digits.
func validNumber(s string) bool {
	digits, ok := strings.CutPrefix(s, "+")
	if !ok || len(digits) < 8 || len(digits) > 15 {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
