package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/sofascout/internal/domain/dedupe"
	"github.com/okian/sofascout/pkg/logger"
	"github.com/okian/sofascout/pkg/metrics"
)

// Stats are the running totals of one Run. Attempted counts items whose
// operation was invoked; Skipped covers duplicates and ErrSkip results.
type Stats struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.Attempted += other.Attempted
	s.Succeeded += other.Succeeded
	s.Failed += other.Failed
	s.Skipped += other.Skipped
}

// Run processes items strictly in order. An item whose key was already seen
// is skipped without calling op. A failing item is logged and counted and the
// loop moves on. After each success, except on the last item, Run waits for
// the configured pacing. The only error Run returns is the cancellation of ctx,
// together with the totals accumulated so far.
func Run[T any](ctx context.Context, label string, items []T, key func(T) string, op func(context.Context, T) error, opts ...Option) (Stats, error) {
	o := newOptions(opts)
	if o.seen == nil {
		o.seen = dedupe.NewSet()
	}
	log := o.logger.With(logger.String("stage", label))

	var st Stats
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return st, fmt.Errorf("%s interrupted after %d of %d items: %w", label, i, len(items), err)
		}

		k := key(item)
		if o.seen.SeenAndRecord(ctx, k) {
			st.Skipped++
			metrics.RecordItem(label, "duplicate")
			log.Debug(ctx, "already processed", logger.String("key", k))
			continue
		}

		st.Attempted++
		err := invoke(ctx, o, label, item, op)
		switch {
		case err == nil:
			st.Succeeded++
			metrics.RecordItem(label, "succeeded")
		case errors.Is(err, ErrSkip):
			st.Skipped++
			metrics.RecordItem(label, "skipped")
			log.Info(ctx, "item skipped", logger.String("key", k), logger.Error(err))
			continue
		case ctx.Err() != nil:
			st.Failed++
			metrics.RecordItem(label, "failed")
			return st, fmt.Errorf("%s interrupted at %s: %w", label, k, ctx.Err())
		default:
			st.Failed++
			metrics.RecordItem(label, "failed")
			log.Error(ctx, "item failed", logger.Error(&ItemError{Stage: label, Key: k, Err: err}),
				logger.Int("position", i+1), logger.Int("total", len(items)))
			continue
		}

		if i < len(items)-1 && o.pacing > 0 {
			if err := o.sleep(ctx, o.pacing); err != nil {
				return st, fmt.Errorf("%s interrupted while pacing: %w", label, err)
			}
		}
	}

	log.Info(ctx, "stage complete",
		logger.Int("attempted", st.Attempted),
		logger.Int("succeeded", st.Succeeded),
		logger.Int("failed", st.Failed),
		logger.Int("skipped", st.Skipped),
	)
	return st, nil
}

func invoke[T any](ctx context.Context, o *options, label string, item T, op func(context.Context, T) error) error {
	call := func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx, item)
	}
	if o.retry == nil {
		_, err := call(ctx)
		return err
	}
	_, err := Retry(ctx, label, *o.retry, call, WithLogger(o.logger), WithSleeper(o.sleep))
	return err
}
