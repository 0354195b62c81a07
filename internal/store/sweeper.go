package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/support-chat/internal/metrics"
)

// ExpireCallback is called for each session removed by the sweeper.
type ExpireCallback func(sessionID string)

// StartSweeper runs a background goroutine that periodically removes
// sessions idle for longer than ttl. A non-positive ttl disables expiry.
func StartSweeper(ctx context.Context, s SessionStore, ttl, interval time.Duration, m *metrics.Metrics, onExpire ExpireCallback) {
	if ttl <= 0 {
		slog.Info("Session sweeper disabled, sessions never expire")
		return
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session sweeper started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				sweep(ctx, s, ttl, m, onExpire)
			case <-ctx.Done():
				slog.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweep(ctx context.Context, s SessionStore, ttl time.Duration, m *metrics.Metrics, onExpire ExpireCallback) int {
	expired, err := s.DeleteExpired(ctx, ttl)
	if err != nil {
		slog.Error("Session sweeper failed to delete expired sessions", "error", err)
		return 0
	}
	if len(expired) == 0 {
		return 0
	}

	for _, id := range expired {
		if onExpire != nil {
			onExpire(id)
		}
	}
	m.RecordExpired(len(expired))

	slog.Info("Session sweeper removed expired sessions", "count", len(expired))
	return len(expired)
}
