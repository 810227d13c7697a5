// Package analytics records product events as structured log lines.
package analytics

import (
	"context"
	"log/slog"
	"sort"
)

// Tracker emits one INFO record per event under the "analytics" group.
type Tracker struct {
	logger  *slog.Logger
	embedID string
}

func New(logger *slog.Logger, embedID string) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{logger: logger, embedID: embedID}
}

func (t *Tracker) Track(ctx context.Context, sessionID, event string, props map[string]any) {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]any, 0, len(keys)+3)
	attrs = append(attrs, slog.String("event", event), slog.String("session_id", sessionID))
	if t.embedID != "" {
		attrs = append(attrs, slog.String("embed_id", t.embedID))
	}
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, props[k]))
	}
	t.logger.InfoContext(ctx, "analytics event", slog.Group("analytics", attrs...))
}
