// Package notify announces finished extracts and imports. With an ntfy topic
// configured it pushes to ntfy; otherwise it only logs.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/claude/routinecopy/internal/config"
	"github.com/claude/routinecopy/internal/importer"
)

const userAgent = "routinecopy/0.1"

// Service is the notification surface used by the engine front ends.
type Service interface {
	NotifyExtracted(ctx context.Context, title string, exercises int) error
	NotifyImportCompleted(ctx context.Context, rep *importer.Report) error
	NotifyError(ctx context.Context, err error, label string) error
	TestNotification(ctx context.Context) error
}

// NewService builds an ntfy-backed service when a topic is configured, a
// logging service when only log is given, and a noop service otherwise.
func NewService(cfg config.NotifyConfig, log *slog.Logger) Service {
	topic := strings.TrimSpace(cfg.NtfyTopic)
	if topic == "" {
		if log == nil {
			return noopService{}
		}
		return &logService{log: log}
	}

	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

func extractedPayload(title string, exercises int) payload {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "untitled routine"
	}
	return payload{
		title:   "Routine Copied",
		message: fmt.Sprintf("Copied %s (%d exercises)", title, exercises),
		tags:    []string{"routinecopy", "extract"},
	}
}

func importPayload(rep *importer.Report) payload {
	applied, notFound, partial := rep.Counts()
	title := strings.TrimSpace(rep.Title)
	if title == "" {
		title = "routine"
	}
	p := payload{
		title:   "Routine Pasted",
		message: fmt.Sprintf("Pasted %s: %d applied", title, applied),
		tags:    []string{"routinecopy", "import", "completed"},
	}
	if notFound > 0 || partial > 0 {
		p.title = "Routine Pasted (with problems)"
		p.message = fmt.Sprintf("Pasted %s: %d applied, %d not found, %d partial", title, applied, notFound, partial)
		p.tags = []string{"routinecopy", "import", "warning"}
	}
	return p
}

func errorPayload(err error, label string) payload {
	var b strings.Builder
	b.WriteString("Error")
	if label = strings.TrimSpace(label); label != "" {
		b.WriteString(" during ")
		b.WriteString(label)
	}
	b.WriteString(": ")
	if err != nil {
		b.WriteString(strings.TrimSpace(err.Error()))
	} else {
		b.WriteString("unknown")
	}
	return payload{
		title:    "Routine Copy Error",
		message:  b.String(),
		tags:     []string{"routinecopy", "error"},
		priority: "high",
	}
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyExtracted(ctx context.Context, title string, exercises int) error {
	return n.send(ctx, extractedPayload(title, exercises))
}

func (n *ntfyService) NotifyImportCompleted(ctx context.Context, rep *importer.Report) error {
	return n.send(ctx, importPayload(rep))
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, label string) error {
	return n.send(ctx, errorPayload(err, label))
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "Routine Copy Test",
		message:  "Notification system test",
		tags:     []string{"routinecopy", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type logService struct {
	log *slog.Logger
}

func (l *logService) emit(ctx context.Context, data payload) error {
	level := slog.LevelInfo
	if data.priority == "high" {
		level = slog.LevelWarn
	}
	l.log.Log(ctx, level, data.message, "notification", data.title)
	return nil
}

func (l *logService) NotifyExtracted(ctx context.Context, title string, exercises int) error {
	return l.emit(ctx, extractedPayload(title, exercises))
}

func (l *logService) NotifyImportCompleted(ctx context.Context, rep *importer.Report) error {
	return l.emit(ctx, importPayload(rep))
}

func (l *logService) NotifyError(ctx context.Context, err error, label string) error {
	return l.emit(ctx, errorPayload(err, label))
}

func (l *logService) TestNotification(ctx context.Context) error {
	return l.emit(ctx, payload{title: "Routine Copy Test", message: "Notification system test"})
}

// Noop returns a service that drops every notification.
func Noop() Service { return noopService{} }

type noopService struct{}

func (noopService) NotifyExtracted(context.Context, string, int) error            { return nil }
func (noopService) NotifyImportCompleted(context.Context, *importer.Report) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error              { return nil }
func (noopService) TestNotification(context.Context) error                        { return nil }

