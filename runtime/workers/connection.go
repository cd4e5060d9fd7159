package workers

import (
	"context"
	"log/slog"

	"linguachat/contract"
	"linguachat/domain"
)

// ConnectionWorker processes one connection's inbound events in arrival
// order. It runs under the supervisor's context, not the socket's, so a
// relay suspended on translation finishes even after the sender hangs up.
type ConnectionWorker struct {
	conn     *domain.Connection
	commands chan domain.SendMessageCommand
	relay    contract.IRelay
	log      *slog.Logger
}

func NewConnectionWorker(conn *domain.Connection, commands chan domain.SendMessageCommand,
	relay contract.IRelay, log *slog.Logger) *ConnectionWorker {
	return &ConnectionWorker{conn: conn, commands: commands, relay: relay, log: log}
}

func (w *ConnectionWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker", "user", w.conn.UserID)
			return ctx.Err()
		case cmd, ok := <-w.commands:
			if !ok {
				return nil
			}
			if _, err := w.relay.Relay(ctx, cmd); err != nil {
				// Registry and presence state are untouched by relay failures.
				w.log.Warn("Message relay failed",
					"sender", cmd.SenderID,
					"receiver", cmd.ReceiverID,
					"error", err)
			}
		}
	}
}
