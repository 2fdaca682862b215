package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/devilelephant/blacklist/notify"
)

func nullLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		opts     Options
		logger   *slog.Logger
		errorMsg string
	}{
		{name: "Valid options", opts: Options{URL: "http://test.invalid"}, logger: nullLogger()},
		{name: "Missing URL", opts: Options{}, logger: nullLogger(), errorMsg: "webhook: URL is required"},
		{name: "Missing logger", opts: Options{URL: "http://test.invalid"}, errorMsg: "webhook: logger is required"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := New(tc.opts, tc.logger)
			if tc.errorMsg != "" {
				if err == nil || err.Error() != tc.errorMsg {
					t.Fatalf("error = %v, want %q", err, tc.errorMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if n.opts.Burst != 5 || n.opts.Interval != 2*time.Second || n.opts.SendTimeout != 10*time.Second {
				t.Errorf("defaults not applied: %+v", n.opts)
			}
		})
	}
}

func TestFormatMessage(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		n        notify.Notification
		expected string
	}{
		{
			name:     "Simple alarm",
			n:        notify.Notification{Level: slog.LevelError, Source: "registry", Message: "rebuild failed"},
			expected: "[ERROR] from *registry*:\n> rebuild failed\n",
		},
		{
			name: "Fields sorted, empty skipped",
			n: notify.Notification{
				Level:   slog.LevelWarn,
				Source:  "registry",
				Message: "m",
				Fields:  map[string]any{"trigger": "timer", "attempts": 3, "nil": nil, "empty": "", "": "x"},
			},
			expected: "[WARN] from *registry*:\n> m\n\n**Fields**:\n> attempts: `3`\n> trigger: `timer`\n",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := formatMessage(tc.n); got != tc.expected {
				t.Errorf("formatMessage() =\n%q\nwant\n%q", got, tc.expected)
			}
		})
	}

	long := formatMessage(notify.Notification{Message: strings.Repeat("a", 3000)})
	if len(long) != maxMessageLength || !strings.HasSuffix(long, "...") {
		t.Errorf("long message not truncated: %d bytes", len(long))
	}
}

func TestSend(t *testing.T) {
	t.Parallel()

	got := make(chan payload, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p payload
		if r.Header.Get("Content-Type") != "application/json" || json.NewDecoder(r.Body).Decode(&p) != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		got <- p
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n, err := New(Options{URL: srv.URL, Burst: 1, Interval: time.Hour}, nullLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	alarm := notify.Notification{Level: slog.LevelError, Source: "registry", Message: "rebuild failed"}
	if err := n.Send(context.Background(), alarm); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case p := <-got:
		if !strings.Contains(p.Content, "rebuild failed") {
			t.Errorf("content = %q", p.Content)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("notification not delivered")
	}

	// burst of one is spent, the next is dropped
	if err := n.Send(context.Background(), alarm); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case p := <-got:
		t.Errorf("rate limited notification delivered: %q", p.Content)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPost_ErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	n, _ := New(Options{URL: srv.URL}, nullLogger())
	if err := n.post(context.Background(), "x"); err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("post() error = %v, want the 429 status", err)
	}
}

var _ notify.Notifier = (*Notifier)(nil)
var _ notify.Notifier = notify.Nop{}
