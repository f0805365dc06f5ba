package matchservice

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/scuffedaim/matchview/app/eventbus"
	matchdomain "github.com/scuffedaim/matchview/app/modules/match/domain"
	matchdb "github.com/scuffedaim/matchview/app/modules/match/infrastructure/repositories"
	"github.com/scuffedaim/matchview/app/observability/attr"
	matchmetrics "github.com/scuffedaim/matchview/app/observability/metrics/match"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var matchIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// MatchService implements the Service interface.
type MatchService struct {
	registry *Registry
	eventBus eventbus.EventBus
	logger   *slog.Logger
	metrics  matchmetrics.MatchMetrics
	tracer   trace.Tracer
	palette  ChartPalette
}

// NewMatchService creates a new MatchService. store may be nil.
func NewMatchService(
	sources Sources,
	store matchdb.Repository,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
	metrics matchmetrics.MatchMetrics,
	tracer trace.Tracer,
	cfg RegistryConfig,
) *MatchService {
	s := &MatchService{
		eventBus: eventBus,
		logger:   logger,
		metrics:  metrics,
		tracer:   tracer,
		palette:  DefaultChartPalette,
	}
	refresher := NewRefresher(sources, store, logger, metrics, tracer)
	s.registry = NewRegistry(cfg, refresher, s.publishSnapshot, logger, metrics)
	return s
}

// Registry exposes the watcher registry so the module can run its reaper.
func (s *MatchService) Registry() *Registry { return s.registry }

// operationFunc is the generic signature for service operation functions.
type operationFunc[T any] func(ctx context.Context) (T, error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[T any](
	s *MatchService,
	ctx context.Context,
	operationName string,
	matchID matchdomain.MatchID,
	op operationFunc[T],
) (result T, err error) {
	ctx, span := s.tracer.Start(ctx, operationName, trace.WithAttributes(
		attribute.String("operation", operationName),
		attribute.String("match_id", matchID.String()),
	))
	defer span.End()

	s.metrics.RecordOperationAttempt(ctx, operationName)

	startTime := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration(ctx, operationName, time.Since(startTime))
	}()

	s.logger.DebugContext(ctx, operationName+" triggered",
		attr.String("operation", operationName),
		attr.MatchID("match_id", matchID),
		attr.ExtractCorrelationID(ctx),
	)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				attr.MatchID("match_id", matchID),
				attr.ExtractCorrelationID(ctx),
				attr.Error(err),
			)
			s.metrics.RecordOperationFailure(ctx, operationName)
			span.RecordError(err)
			var zero T
			result = zero
		}
	}()

	result, err = op(ctx)
	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.WarnContext(ctx, "Operation failed with error",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.MatchID("match_id", matchID),
			attr.Error(wrappedErr),
		)
		s.metrics.RecordOperationFailure(ctx, operationName)
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	s.metrics.RecordOperationSuccess(ctx, operationName)
	return result, nil
}

// ValidateMatchID rejects ids that are empty, too long, or contain anything
// other than letters, digits, '-' and '_'.
func ValidateMatchID(matchID matchdomain.MatchID) error {
	if !matchIDPattern.MatchString(matchID.String()) {
		return fmt.Errorf("%w: %q", ErrInvalidMatchID, matchID.String())
	}
	return nil
}

// snapshot returns the committed snapshot of a match, starting its watcher
// and running the initial cycle when needed.
func (s *MatchService) snapshot(ctx context.Context, matchID matchdomain.MatchID) (*Snapshot, error) {
	if err := ValidateMatchID(matchID); err != nil {
		return nil, err
	}
	w, err := s.registry.Get(ctx, matchID)
	if w == nil {
		return nil, err
	}
	if snap := w.Snapshot(); snap != nil {
		return snap, nil
	}
	if err == nil {
		err = w.LastError()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoSnapshot, err)
	}
	return nil, ErrNoSnapshot
}

// GetMatchView returns the grouped rounds of a match.
func (s *MatchService) GetMatchView(ctx context.Context, matchID matchdomain.MatchID, filter ViewFilter) (*MatchView, error) {
	return withTelemetry(s, ctx, "GetMatchView", matchID, func(ctx context.Context) (*MatchView, error) {
		snap, err := s.snapshot(ctx, matchID)
		if err != nil {
			return nil, err
		}
		return BuildView(snap, filter), nil
	})
}

// RoundChart renders the chart of the round at a 1-based index.
func (s *MatchService) RoundChart(ctx context.Context, matchID matchdomain.MatchID, index int) ([]byte, error) {
	return withTelemetry(s, ctx, "RoundChart", matchID, func(ctx context.Context) ([]byte, error) {
		snap, err := s.snapshot(ctx, matchID)
		if err != nil {
			return nil, err
		}
		if index < 1 || index > len(snap.Rounds) {
			return nil, fmt.Errorf("%w: %d of %d", ErrRoundNotFound, index, len(snap.Rounds))
		}
		round := buildRound(index, snap.Rounds[index-1], snap)
		return GenerateRoundChart(round, s.palette)
	})
}

// ExportMatch renders the match as an XLSX workbook.
func (s *MatchService) ExportMatch(ctx context.Context, matchID matchdomain.MatchID, filter ViewFilter) ([]byte, error) {
	return withTelemetry(s, ctx, "ExportMatch", matchID, func(ctx context.Context) ([]byte, error) {
		snap, err := s.snapshot(ctx, matchID)
		if err != nil {
			return nil, err
		}
		return GenerateMatchWorkbook(BuildView(snap, filter))
	})
}

// Subscribe keeps the match watched for as long as ctx lives and delivers the
// current view followed by every committed one. Slow consumers only see the
// most recent view.
func (s *MatchService) Subscribe(ctx context.Context, matchID matchdomain.MatchID) (<-chan []byte, error) {
	return withTelemetry(s, ctx, "Subscribe", matchID, func(opCtx context.Context) (<-chan []byte, error) {
		if err := ValidateMatchID(matchID); err != nil {
			return nil, err
		}

		subCtx, cancel := context.WithCancel(ctx)
		messages, err := s.eventBus.Subscribe(subCtx, eventbus.TopicRoundsUpdated)
		if err != nil {
			cancel()
			return nil, err
		}

		w, release, err := s.registry.Acquire(opCtx, matchID)
		if w == nil {
			cancel()
			return nil, err
		}
		if err != nil {
			// the watcher keeps retrying; the stream starts with its first commit
			s.logger.WarnContext(opCtx, "Initial refresh failed for subscriber",
				attr.MatchID("match_id", matchID),
				attr.Error(err),
			)
		}

		out := make(chan []byte, 1)
		if snap := w.Snapshot(); snap != nil {
			if payload, err := json.Marshal(BuildView(snap, ViewFilter{})); err == nil {
				out <- payload
			}
		}

		go func() {
			defer close(out)
			defer release()
			defer cancel()
			for {
				select {
				case <-subCtx.Done():
					return
				case msg, ok := <-messages:
					if !ok {
						return
					}
					msg.Ack()
					if msg.Metadata.Get(eventbus.MetadataMatchID) != matchID.String() {
						continue
					}
					offerLatest(out, msg.Payload)
				}
			}
		}()
		return out, nil
	})
}

// offerLatest sends payload, replacing an undelivered older payload.
func offerLatest(out chan []byte, payload []byte) {
	for {
		select {
		case out <- payload:
			return
		default:
		}
		select {
		case <-out:
		default:
		}
	}
}

// publishSnapshot broadcasts a committed snapshot on the event bus.
func (s *MatchService) publishSnapshot(ctx context.Context, snap *Snapshot) {
	payload, err := json.Marshal(BuildView(snap, ViewFilter{}))
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to encode match view",
			attr.MatchID("match_id", snap.MatchID),
			attr.Error(err),
		)
		return
	}

	msg := eventbus.NewMessage(snap.MatchID.String(), payload)
	msg.Metadata.Set("correlation_id", snap.CycleID)
	if err := s.eventBus.Publish(eventbus.TopicRoundsUpdated, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish match update",
			attr.MatchID("match_id", snap.MatchID),
			attr.ExtractCorrelationID(ctx),
			attr.Error(err),
		)
	}
}

// ActiveWatchers reports how many matches are being polled.
func (s *MatchService) ActiveWatchers() int { return s.registry.Active() }

// Close stops every watcher.
func (s *MatchService) Close() { s.registry.Close() }

var _ Service = (*MatchService)(nil)
