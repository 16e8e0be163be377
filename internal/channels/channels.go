// Package channels fans completed-analysis notifications out to the
// configured messaging integrations.
package channels

import (
	"context"
	"fmt"
	"strings"

	"github.com/doclexa/doclexa/internal/analysis"
	"go.uber.org/zap"
)

// Notifier is one outbound integration.
type Notifier interface {
	Enabled() bool
	Notify(text string) error
}

// Broadcaster sends one message per completed analysis to every enabled
// notifier. Failures are logged, never surfaced to the analysis flow.
type Broadcaster struct {
	notifiers []Notifier
	logger    *zap.Logger
}

// NewBroadcaster creates a broadcaster over the given notifiers.
func NewBroadcaster(logger *zap.Logger, notifiers ...Notifier) *Broadcaster {
	return &Broadcaster{notifiers: notifiers, logger: logger}
}

// AnalysisCompleted is wired in as the session's completion hook.
func (b *Broadcaster) AnalysisCompleted(ctx context.Context, result analysis.Result) {
	text := FormatNotification(result)
	for _, n := range b.notifiers {
		if !n.Enabled() {
			continue
		}
		if err := n.Notify(text); err != nil {
			b.logger.Warn("notification failed", zap.Error(err))
		}
	}
}

// FormatNotification builds the message body for a completed analysis.
func FormatNotification(result analysis.Result) string {
	answer := result.Answer
	if len(answer) > 500 {
		answer = answer[:500] + "..."
	}

	var sb strings.Builder
	sb.WriteString("📄 Analysis complete\n")
	fmt.Fprintf(&sb, "Type: %s\n", result.DocumentType)
	fmt.Fprintf(&sb, "Language: %s\n\n", result.Language)
	sb.WriteString(answer)
	return sb.String()
}
