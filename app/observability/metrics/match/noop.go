package matchmetrics

import (
	"context"
	"time"
)

// NoOpMetrics discards everything. Used in tests and when metrics are disabled.
type NoOpMetrics struct{}

func (NoOpMetrics) RecordCycle(context.Context, string, time.Duration)             {}
func (NoOpMetrics) RecordFetch(context.Context, string, int)                       {}
func (NoOpMetrics) RecordFetchFailure(context.Context, string)                     {}
func (NoOpMetrics) RecordSkippedTick(context.Context)                              {}
func (NoOpMetrics) SetActiveWatchers(int)                                          {}
func (NoOpMetrics) RecordOperationAttempt(context.Context, string)                 {}
func (NoOpMetrics) RecordOperationSuccess(context.Context, string)                 {}
func (NoOpMetrics) RecordOperationFailure(context.Context, string)                 {}
func (NoOpMetrics) RecordOperationDuration(context.Context, string, time.Duration) {}

var _ MatchMetrics = NoOpMetrics{}
