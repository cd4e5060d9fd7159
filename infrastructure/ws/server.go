// Package ws exposes the persistent bidirectional connection protocol over
// websockets: one read and one write goroutine per socket, with relay logic
// running in a supervised per-connection worker.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"linguachat/contract"
	"linguachat/domain"
	"linguachat/runtime/workers"
	"linguachat/services"
	"linguachat/sink"
)

type Server struct {
	log                  *slog.Logger
	chat                 services.IChatService
	relay                contract.IRelay
	supervisor           contract.ISupervisor
	upgrader             websocket.Upgrader
	connectionBufferSize int
	writeTimeout         time.Duration
}

func NewServer(log *slog.Logger, chat services.IChatService, relay contract.IRelay,
	supervisor contract.ISupervisor, connectionBufferSize int,
	writeTimeout time.Duration) *Server {
	return &Server{
		log:        log,
		chat:       chat,
		relay:      relay,
		supervisor: supervisor,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Origin policy is enforced by the fronting proxy.
			},
		},
		connectionBufferSize: connectionBufferSize,
		writeTimeout:         writeTimeout,
	}
}

// Handle upgrades the request and blocks for the lifetime of the connection.
// The userId query parameter identifies the user; without it no upgrade
// happens.
func (s *Server) Handle(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId query parameter", http.StatusBadRequest)
		return
	}

	socket, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("Websocket upgrade failed", "error", err)
		return
	}

	// Lifecycle and relay operations survive the socket: a relay suspended
	// on translation runs to completion after the sender hangs up.
	ctx := context.WithoutCancel(r.Context())

	snk := sink.NewConnectionSink(s.connectionBufferSize)
	conn := s.chat.Connect(ctx, userID, snk)

	commands := make(chan domain.SendMessageCommand, s.connectionBufferSize)
	s.supervisor.Start(ctx, workers.NewConnectionWorker(conn, commands, s.relay, s.log))

	done := make(chan struct{})
	go s.writeLoop(socket, snk, done)

	s.readLoop(socket, userID, commands)

	// In-flight commands still drain through the worker; only the mapping
	// and the write side go away now.
	close(commands)
	close(done)
	s.chat.Disconnect(ctx, conn)
	_ = socket.Close()
}

// readLoop decodes inbound envelopes into commands, preserving arrival
// order per connection. It returns when the socket dies.
func (s *Server) readLoop(socket *websocket.Conn, userID string, commands chan<- domain.SendMessageCommand) {
	for {
		var env Envelope
		if err := socket.ReadJSON(&env); err != nil {
			s.log.Debug("Connection closed", "user", userID, "error", err)
			return
		}

		switch env.Event {
		case EventSendMessage:
			var payload SendMessagePayload
			if err := json.Unmarshal(env.Payload, &payload); err != nil {
				s.log.Debug("Malformed sendMessage payload", "user", userID, "error", err)
				continue
			}
			if payload.SenderID == "" {
				payload.SenderID = userID
			}
			commands <- domain.SendMessageCommand{
				SenderID:   payload.SenderID,
				ReceiverID: payload.ReceiverID,
				Text:       payload.Text,
			}
		default:
			s.log.Debug("Unknown event ignored", "event", env.Event, "user", userID)
		}
	}
}

// writeLoop drains the connection sink back to the browser. Separating
// read/write avoids head-of-line blocking when a client is slow.
func (s *Server) writeLoop(socket *websocket.Conn, snk *sink.ConnectionSink, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case evt := <-snk.Events:
			env, err := EncodeEvent(evt)
			if err != nil {
				s.log.Debug("Unencodable event dropped", "error", err)
				continue
			}
			_ = socket.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := socket.WriteJSON(env); err != nil {
				s.log.Debug("Write to socket failed", "error", err)
				return
			}
		}
	}
}
