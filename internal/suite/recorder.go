package suite

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/observability"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/logger"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/verdictevents"
	"github.com/mohammed-shakir/ogcapi-features-ets/pkg/verdict"
)

// EventSink receives every recorded verdict.
type EventSink interface {
	Publish(ev verdictevents.Event)
}

// Entry is a verdict with the group and collection it was reached in.
type Entry struct {
	Group      string `json:"group"`
	Collection string `json:"collection,omitempty"`
	verdict.Result
}

// Recorder accumulates verdicts. It logs each one, counts it and forwards it
// to the event sink.
type Recorder struct {
	logger *slog.Logger
	sink   EventSink
	iut    string
	now    func() time.Time

	mu      sync.Mutex
	entries []Entry
}

func NewRecorder(log *slog.Logger, sink EventSink, iut string) *Recorder {
	return &Recorder{logger: log, sink: sink, iut: iut, now: time.Now}
}

// Record stores r under the group and collection carried by ctx.
func (rc *Recorder) Record(ctx context.Context, r verdict.Result) {
	e := Entry{Group: logger.Group(ctx), Collection: logger.Collection(ctx), Result: r}

	rc.mu.Lock()
	rc.entries = append(rc.entries, e)
	rc.mu.Unlock()

	lvl := slog.LevelInfo
	if r.Failed() {
		lvl = slog.LevelWarn
	}
	attrs := []slog.Attr{slog.String("check", r.Check), slog.String("status", r.Status.String())}
	if r.Reason != "" {
		attrs = append(attrs, slog.String("reason", r.Reason))
	}
	rc.logger.LogAttrs(ctx, lvl, "verdict", attrs...)

	observability.IncVerdict(e.Group, r.Status.String())

	if rc.sink != nil {
		rc.sink.Publish(verdictevents.Event{
			RunID:      logger.RunID(ctx),
			IUT:        rc.iut,
			Group:      e.Group,
			Collection: e.Collection,
			Check:      r.Check,
			Status:     r.Status,
			Reason:     r.Reason,
			TS:         rc.now().UTC(),
		})
	}
}

// Entries returns a copy of everything recorded so far.
func (rc *Recorder) Entries() []Entry {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return append([]Entry(nil), rc.entries...)
}

func (rc *Recorder) Summary() verdict.Summary {
	entries := rc.Entries()
	results := make([]verdict.Result, 0, len(entries))
	for _, e := range entries {
		results = append(results, e.Result)
	}
	return verdict.Summarize(results)
}
