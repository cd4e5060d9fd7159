package workers

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"linguachat/domain"
	"linguachat/mocks"
)

func TestConnectionWorker_RelaysInArrivalOrder(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	relay := mocks.NewMockIRelay(ctrl)

	var order []string
	relay.EXPECT().
		Relay(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
			order = append(order, cmd.Text)
			return domain.Message{}, nil
		}).
		Times(3)

	commands := make(chan domain.SendMessageCommand, 3)
	commands <- domain.SendMessageCommand{SenderID: "alice", ReceiverID: "bob", Text: "first"}
	commands <- domain.SendMessageCommand{SenderID: "alice", ReceiverID: "bob", Text: "second"}
	commands <- domain.SendMessageCommand{SenderID: "alice", ReceiverID: "bob", Text: "third"}
	close(commands)

	worker := NewConnectionWorker(domain.NewConnection("alice"), commands, relay, log)

	// A closed command channel means the socket read loop ended
	err := worker.Run(context.Background())

	req.NoError(err)
	req.Equal([]string{"first", "second", "third"}, order)
}

func TestConnectionWorker_RelayFailureDoesNotStopWorker(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	relay := mocks.NewMockIRelay(ctrl)
	gomock.InOrder(
		relay.EXPECT().
			Relay(gomock.Any(), gomock.Any()).
			Return(domain.Message{}, errors.New("receiver unknown")).
			Times(1),
		relay.EXPECT().
			Relay(gomock.Any(), gomock.Any()).
			Return(domain.Message{}, nil).
			Times(1),
	)

	commands := make(chan domain.SendMessageCommand, 2)
	commands <- domain.SendMessageCommand{SenderID: "alice", ReceiverID: "ghost", Text: "lost"}
	commands <- domain.SendMessageCommand{SenderID: "alice", ReceiverID: "bob", Text: "kept"}
	close(commands)

	worker := NewConnectionWorker(domain.NewConnection("alice"), commands, relay, log)

	req.NoError(worker.Run(context.Background()))
}

func TestConnectionWorker_StopsOnContextCancel(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	relay := mocks.NewMockIRelay(ctrl)

	commands := make(chan domain.SendMessageCommand)
	worker := NewConnectionWorker(domain.NewConnection("alice"), commands, relay, log)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		req.ErrorIs(err, context.Canceled)
	case <-time.After(500 * time.Millisecond):
		req.Fail("Worker should have stopped on context cancel")
	}
}
