// Package eventlog collects parser events for display and forwards them to zap.
package eventlog

import (
	"sync"

	"go.uber.org/zap"

	"github.com/gnoswap-labs/treeform/parser"
)

// Recorder keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	events []parser.Event
}

func (r *Recorder) Log(ev parser.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events in arrival order.
func (r *Recorder) Events() []parser.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]parser.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Counts tallies the recorded events per ID.
func (r *Recorder) Counts() map[parser.EventID]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[parser.EventID]int)
	for _, ev := range r.events {
		counts[ev.ID]++
	}
	return counts
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = r.events[:0]
}

// ZapSink writes events to a zap logger at debug level.
type ZapSink struct {
	logger *zap.Logger
	pos    *parser.PositionInfo
}

// NewZapSink logs events of a parse of text. The text is only used to turn
// byte offsets into line and column fields.
func NewZapSink(logger *zap.Logger, text string) *ZapSink {
	return &ZapSink{logger: logger, pos: parser.NewPositionInfo(text)}
}

func (s *ZapSink) Log(ev parser.Event) {
	if ce := s.logger.Check(zap.DebugLevel, ev.ID.String()); ce != nil {
		line, col := s.pos.Position(ev.Start)
		fields := []zap.Field{
			zap.Int("seq", ev.Seq),
			zap.Int("start", ev.Start),
			zap.Int("end", ev.End),
			zap.Int("line", line),
			zap.Int("column", col),
			zap.Int("depth", ev.Depth),
		}
		if ev.Rule >= 0 {
			fields = append(fields, zap.Int("rule", ev.Rule))
		}
		if ev.Pattern >= 0 {
			fields = append(fields, zap.Int("pattern", ev.Pattern))
		}
		if ev.TypeName != "" {
			fields = append(fields, zap.String("type", ev.TypeName))
		}
		ce.Write(fields...)
	}
}

// Tee fans events out to several loggers.
func Tee(loggers ...parser.Logger) parser.Logger {
	return parser.LoggerFunc(func(ev parser.Event) {
		for _, l := range loggers {
			l.Log(ev)
		}
	})
}
