// Package notify delivers a best-effort run summary to an optional
// webhook endpoint. Delivery failures are logged and swallowed; they never
// fail the run that produced the summary.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tidesafe/tidesafe/internal/backup"
)

const (
	sendTimeout = 10 * time.Second

	// maxAttachmentBytes is the webhook attachment ceiling (7.5 MB); log
	// files above it are sent without the attachment.
	maxAttachmentBytes = 7864320

	// maxErrorLines caps how many per-file errors go into the message body.
	maxErrorLines = 5
)

// webhookPayload is the JSON body POSTed to the endpoint. The content
// field matches Discord's webhook contract but any endpoint accepting the
// shape works.
type webhookPayload struct {
	Content string `json:"content"`
}

// Notifier posts run summaries to a single webhook URL. A Notifier with an
// empty URL is a no-op.
type Notifier struct {
	url    string
	client *http.Client
	logger zerolog.Logger

	// Delta compares this run against the previous one; appended to the
	// summary content when set.
	Delta string

	// Footer is appended to the summary content when set, e.g. a disk
	// usage line for the backed-up root.
	Footer string
}

// New creates a notifier for the given webhook URL. An empty URL disables
// notification entirely.
func New(url string, logger zerolog.Logger) *Notifier {
	return &Notifier{
		url:    url,
		client: &http.Client{Timeout: sendTimeout},
		logger: logger.With().Str("component", "notifier").Logger(),
	}
}

// Send posts the run summary, attaching the run log when it fits under the
// size ceiling. It never returns an error: failures are logged here and
// the run continues.
func (n *Notifier) Send(ctx context.Context, sum backup.Summary, logPath string) {
	if n.url == "" {
		n.logger.Debug().Msg("no webhook configured, skipping notification")
		return
	}

	content := FormatSummary(sum)
	if n.Delta != "" {
		content += "\n" + n.Delta
	}
	if n.Footer != "" {
		content += "\n" + n.Footer
	}

	var err error
	if attachable(logPath, n.logger) {
		err = n.sendWithAttachment(ctx, content, logPath)
	} else {
		err = n.sendJSON(ctx, content)
	}

	if err != nil {
		n.logger.Warn().Err(err).Msg("notification delivery failed")
		return
	}
	n.logger.Info().Msg("notification sent")
}

func (n *Notifier) sendJSON(ctx context.Context, content string) error {
	body, err := json.Marshal(webhookPayload{Content: content})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return n.do(req)
}

func (n *Notifier) sendWithAttachment(ctx context.Context, content, logPath string) error {
	payload, err := json.Marshal(webhookPayload{Content: content})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	f, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("payload_json", string(payload)); err != nil {
		return fmt.Errorf("write payload field: %w", err)
	}
	part, err := mw.CreateFormFile("files[0]", filepath.Base(logPath))
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("copy log file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, &buf)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return n.do(req)
}

func (n *Notifier) do(req *http.Request) error {
	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// FormatSummary renders a completed run as a short human-readable message.
func FormatSummary(sum backup.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Backup complete: %d uploaded, %d skipped, %d failed in %.1fs",
		sum.Uploaded, sum.Skipped, sum.Failed, sum.Duration().Seconds())

	if sum.Failed > 0 {
		errs := sum.Errors
		if len(errs) > maxErrorLines {
			errs = errs[:maxErrorLines]
		}
		for _, e := range errs {
			fmt.Fprintf(&b, "\n- %s", e)
		}
		if extra := len(sum.Errors) - maxErrorLines; extra > 0 {
			fmt.Fprintf(&b, "\n- and %d more", extra)
		}
	}
	return b.String()
}

// FormatDelta renders how this run's counts moved against the previous
// run's.
func FormatDelta(sum backup.Summary, prevUploaded, prevFailed int) string {
	return fmt.Sprintf("vs previous run: %+d uploaded, %+d failed",
		sum.Uploaded-prevUploaded, sum.Failed-prevFailed)
}

// attachable reports whether the log file exists and fits the ceiling.
func attachable(logPath string, logger zerolog.Logger) bool {
	if logPath == "" {
		return false
	}
	info, err := os.Stat(logPath)
	if err != nil {
		logger.Debug().Err(err).Str("path", logPath).Msg("log file not attachable")
		return false
	}
	if info.Size() > maxAttachmentBytes {
		logger.Debug().
			Int64("size", info.Size()).
			Msg("log file exceeds attachment ceiling, sending summary only")
		return false
	}
	return true
}
