// Package pipeline runs the daily brief: fetch, summarize, narrate, write,
// and notify, in that order.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/pjm-brief/internal/digest"
	"github.com/sells-group/pjm-brief/internal/failure"
	"github.com/sells-group/pjm-brief/internal/model"
)

// PriceReader loads the most recent trading day.
type PriceReader interface {
	LatestSnapshot(ctx context.Context) (*model.Snapshot, error)
}

// Narrator turns a digest into prose.
type Narrator interface {
	Generate(ctx context.Context, digest string) (string, error)
}

// ReportWriter persists the narrative and returns the file path.
type ReportWriter interface {
	Write(narrative string, date time.Time) (string, error)
}

// Notifier delivers the written report.
type Notifier interface {
	Send(ctx context.Context, reportPath, narrative string, date time.Time) error
}

// Pipeline orchestrates one brief run.
type Pipeline struct {
	reader   PriceReader
	narrator Narrator
	writer   ReportWriter
	notifier Notifier
	newID    func() string
}

// New creates a Pipeline. A nil notifier skips delivery; the run then ends
// after the report is written.
func New(reader PriceReader, narrator Narrator, writer ReportWriter, notifier Notifier) *Pipeline {
	return &Pipeline{
		reader:   reader,
		narrator: narrator,
		writer:   writer,
		notifier: notifier,
		newID:    func() string { return uuid.New().String() },
	}
}

// Run executes the state machine once. The returned Outcome always has State
// StateDone; Reached and Err tell how far it got. A fatal error stops the run
// before any later step is attempted. A delivery failure does not.
func (p *Pipeline) Run(ctx context.Context) model.Outcome {
	out := model.Outcome{
		RunID:   p.newID(),
		State:   model.StateStart,
		Reached: model.StateStart,
	}
	log := zap.L().With(zap.String("run_id", out.RunID))
	log.Info("pipeline: starting brief run")
	start := time.Now()

	finish := func(err error) model.Outcome {
		out.Err = err
		out.State = model.StateDone
		fields := []zap.Field{
			zap.String("reached", string(out.Reached)),
			zap.Bool("notified", out.Notified),
			zap.Duration("elapsed", time.Since(start)),
		}
		switch {
		case failure.Fatal(err):
			log.Error("pipeline: run failed", append(fields,
				zap.String("kind", string(failure.KindOf(err))),
				zap.Bool("is_transient", failure.IsTransient(err)),
				zap.Error(err),
			)...)
		case err != nil:
			log.Warn("pipeline: run finished without delivery", append(fields, zap.Error(err))...)
		default:
			log.Info("pipeline: run complete", fields...)
		}
		return out
	}

	// Fetch.
	snap, err := p.reader.LatestSnapshot(ctx)
	if err != nil {
		return finish(err)
	}
	out.Date = snap.Date
	p.advance(&out, log, model.StateDataFetched,
		zap.String("date", snap.Date.Format("2006-01-02")),
		zap.Int("records", len(snap.Records)),
		zap.Int("zones", len(snap.Zones)),
	)

	// Summarize.
	text, err := digest.Build(snap.Records, snap.Zones, snap.Date)
	if err != nil {
		return finish(err)
	}
	fields := []zap.Field{zap.Int("digest_chars", len(text))}
	if top := digest.TopRecords(snap.Records, 1); len(top) == 1 {
		fields = append(fields, zap.String("top_node", top[0].Node), zap.String("top_lmp", top[0].LMP.StringFixed(2)))
	}
	p.advance(&out, log, model.StateSummarized, fields...)

	// Narrate.
	narrative, err := p.narrator.Generate(ctx, text)
	if err != nil {
		return finish(err)
	}
	out.Narrative = narrative
	p.advance(&out, log, model.StateNarrated, zap.Int("narrative_chars", len(narrative)))

	// Write.
	path, err := p.writer.Write(narrative, snap.Date)
	if err != nil {
		return finish(err)
	}
	out.ReportPath = path
	p.advance(&out, log, model.StateWritten, zap.String("path", path))

	// Notify.
	if p.notifier == nil {
		log.Info("pipeline: delivery disabled, skipping notify")
		return finish(nil)
	}
	if err := p.notifier.Send(ctx, path, narrative, snap.Date); err != nil {
		p.advance(&out, log, model.StateNotifyFailed,
			zap.String("kind", string(failure.KindOf(err))),
			zap.Bool("is_transient", failure.IsTransient(err)),
		)
		// Notifier errors never fail the run.
		if failure.Fatal(err) {
			err = failure.Wrap(err, failure.Delivery, "pipeline: notify")
		}
		return finish(err)
	}
	out.Notified = true
	p.advance(&out, log, model.StateNotified)
	return finish(nil)
}

func (p *Pipeline) advance(out *model.Outcome, log *zap.Logger, state model.RunState, fields ...zap.Field) {
	out.State = state
	out.Reached = state
	log.Info("pipeline: step complete", append([]zap.Field{zap.String("state", string(state))}, fields...)...)
}
