package events

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier writes every emitted event to the structured log.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify implements Notifier.
func (l LogNotifier) Notify(_ context.Context, event Event) error {
	l.Logger.Info().
		Str("topic", event.Topic).
		Int64("branch_id", event.BranchID).
		Int64("event_id", event.ID).
		Msg(event.Message)
	return nil
}
