// Package webhook posts notifications as chat messages to an incoming
// webhook. The payload is {"content": "..."}, understood by Discord and
// by Slack compatible endpoints.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/devilelephant/blacklist/notify"
	"golang.org/x/time/rate"
)

// maxMessageLength is the content limit of a Discord message; longer
// messages are truncated.
const maxMessageLength = 2000

type Options struct {
	URL string
	// Interval is the sustained minimum spacing between messages.
	Interval    time.Duration
	Burst       int
	SendTimeout time.Duration
}

type payload struct {
	Content string `json:"content"`
}

// Notifier sends each notification from its own goroutine, so Send never
// blocks on the network. Notifications over the rate limit are dropped.
type Notifier struct {
	opts       Options
	logger     *slog.Logger
	httpClient *http.Client
	limiter    *rate.Limiter
}

func New(opts Options, logger *slog.Logger) (*Notifier, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("webhook: URL is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("webhook: logger is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Second
	}
	if opts.Burst <= 0 {
		opts.Burst = 5
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 10 * time.Second
	}

	return &Notifier{
		opts:       opts,
		logger:     logger.With("component", "webhook"),
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Every(opts.Interval), opts.Burst),
	}, nil
}

func formatMessage(n notify.Notification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] from *%s*:\n> %s\n", n.Level, n.Source, n.Message)

	if len(n.Fields) > 0 {
		b.WriteString("\n**Fields**:\n")
		for _, k := range slices.Sorted(maps.Keys(n.Fields)) {
			v := n.Fields[k]
			if k == "" || v == nil {
				continue
			}
			if s := fmt.Sprint(v); s != "" {
				fmt.Fprintf(&b, "> %s: `%s`\n", k, s)
			}
		}
	}

	content := b.String()
	if len(content) > maxMessageLength {
		return content[:maxMessageLength-3] + "..."
	}
	return content
}

// Send posts n in the background. The returned error is always nil.
// Delivery failures are logged.
func (wn *Notifier) Send(_ context.Context, n notify.Notification) error {
	if !wn.limiter.Allow() {
		wn.logger.Warn("Rate limit reached, dropping notification", "source", n.Source, "message", n.Message)
		return nil
	}

	go func() {
		// not bound to the caller's context, the request it came from may be gone
		ctx, cancel := context.WithTimeout(context.Background(), wn.opts.SendTimeout)
		defer cancel()
		if err := wn.post(ctx, formatMessage(n)); err != nil {
			wn.logger.Error("Failed to deliver notification", "source", n.Source, "message", n.Message, "error", err)
			return
		}
		wn.logger.Debug("Notification delivered", "source", n.Source)
	}()
	return nil
}

func (wn *Notifier) post(ctx context.Context, content string) error {
	body, err := json.Marshal(payload{Content: content})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wn.opts.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := wn.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook answered %d", resp.StatusCode)
	}
	return nil
}
