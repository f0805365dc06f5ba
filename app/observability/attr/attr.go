// Package attr provides slog attribute helpers shared by every module.
package attr

import (
	"context"
	"log/slog"
	"time"

	matchdomain "github.com/scuffedaim/matchview/app/modules/match/domain"
)

type ctxKey int

const correlationIDKey ctxKey = iota

// WithCorrelationID stores a correlation id on the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFrom returns the correlation id stored on ctx, if any.
func CorrelationIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

// ExtractCorrelationID returns the correlation id attribute for ctx.
func ExtractCorrelationID(ctx context.Context) slog.Attr {
	return slog.String("correlation_id", CorrelationIDFrom(ctx))
}

func String(key, value string) slog.Attr { return slog.String(key, value) }

func Int(key string, value int) slog.Attr { return slog.Int(key, value) }

func Int64(key string, value int64) slog.Attr { return slog.Int64(key, value) }

func Duration(key string, value time.Duration) slog.Attr { return slog.Duration(key, value) }

func Any(key string, value any) slog.Attr { return slog.Any(key, value) }

// Error renders err under the "error" key.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// MatchID renders a match identifier.
func MatchID(key string, id matchdomain.MatchID) slog.Attr {
	return slog.String(key, string(id))
}

// BeatmapHash renders a beatmap content hash.
func BeatmapHash(key string, hash matchdomain.BeatmapHash) slog.Attr {
	return slog.String(key, string(hash))
}

// PlayerID renders a player id.
func PlayerID(key string, id matchdomain.PlayerID) slog.Attr {
	return slog.Int64(key, int64(id))
}
