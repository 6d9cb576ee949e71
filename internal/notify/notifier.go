package notify

import (
	"context"
	"log/slog"
)

// Kind enumerates the semantic notifications a trade can emit.
type Kind int

const (
	KindEntered Kind = iota + 1
	KindStopHit
	KindTargetHit
	KindCancelled
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindEntered:
		return "trade entered"
	case KindStopHit:
		return "stop hit"
	case KindTargetHit:
		return "target hit"
	case KindCancelled:
		return "trade cancelled"
	default:
		return "unknown"
	}
}

// Notifier delivers a semantic trade notification. Each notification
// carries the pair and nothing else; formatting is the sink's concern.
type Notifier interface {
	Notify(ctx context.Context, kind Kind, pair string) error
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier backed by slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, kind Kind, pair string) error {
	n.logger.InfoContext(ctx, "🔔 "+kind.String(), slog.String("pair", pair))
	return nil
}

// Multi fans one notification out to several sinks. A failing sink does
// not stop the others; the first error is returned.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, kind Kind, pair string) error {
	var firstErr error
	for _, n := range m {
		if err := n.Notify(ctx, kind, pair); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
