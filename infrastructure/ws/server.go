// Package ws carries the realtime event protocol over websocket
// connections: JSON envelopes {event, data} in both directions, one read
// loop and one writer goroutine per connection.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"backchannel/auth"
	"backchannel/domain/event"
	"backchannel/observability"
	"backchannel/runtime"
)

const (
	eventJoinChannel    = "join_channel"
	eventSendMessage    = "send_message"
	eventApproveMessage = "approve_message"
	eventRejectMessage  = "reject_message"
)

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type outEnvelope struct {
	Event string      `json:"event"`
	Data  event.Event `json:"data"`
}

type Server struct {
	log          *slog.Logger
	bus          *runtime.Bus
	tokens       *auth.TokenManager
	validate     *validator.Validate
	upgrader     websocket.Upgrader
	bufferSize   int
	writeTimeout time.Duration
}

func NewServer(log *slog.Logger, bus *runtime.Bus, tokens *auth.TokenManager,
	bufferSize int, writeTimeout time.Duration) *Server {
	return &Server{
		log:      log,
		bus:      bus,
		tokens:   tokens,
		validate: validator.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browsers send the page origin; cross-origin policy is the
			// reverse proxy's job.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		bufferSize:   bufferSize,
		writeTimeout: writeTimeout,
	}
}

// Handle upgrades the request and serves the connection until the client
// goes away. All protocol failures are answered with error events; nothing
// closes the connection except the client or a broken pipe.
func (s *Server) Handle(w http.ResponseWriter, r *http.Request) {
	verifiedUser := s.verifiedUser(r)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	sink := NewSink(s.bufferSize)
	observability.LiveConnections.Inc()
	defer observability.LiveConnections.Dec()
	defer s.bus.Leave(connID)

	done := make(chan struct{})
	defer close(done)
	go s.writePump(conn, sink, done)

	s.log.Debug("client connected", "conn_id", connID, "remote", r.RemoteAddr)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			s.log.Debug("client disconnected", "conn_id", connID, "error", err)
			return
		}
		s.dispatch(r.Context(), connID, sink, verifiedUser, raw)
	}
}

func (s *Server) dispatch(ctx context.Context, connID string, sink *Sink, verifiedUser string, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.reject(sink, "Malformed event envelope")
		return
	}

	switch env.Event {
	case eventJoinChannel:
		var req runtime.JoinRequest
		if !s.decode(sink, env.Data, &req) {
			return
		}
		// The binding trusts only the token-verified user, never the
		// client-supplied claim.
		req.UserID = verifiedUser
		s.bus.Join(ctx, connID, sink, req)
	case eventSendMessage:
		var req runtime.SendRequest
		if !s.decode(sink, env.Data, &req) {
			return
		}
		s.bus.Send(ctx, connID, sink, req)
	case eventApproveMessage:
		var req runtime.ModerationRequest
		if !s.decode(sink, env.Data, &req) {
			return
		}
		s.bus.Approve(ctx, connID, sink, req)
	case eventRejectMessage:
		var req runtime.ModerationRequest
		if !s.decode(sink, env.Data, &req) {
			return
		}
		s.bus.Reject(ctx, connID, sink, req)
	default:
		s.reject(sink, fmt.Sprintf("Unknown event %q", env.Event))
	}
}

func (s *Server) decode(sink *Sink, data json.RawMessage, out any) bool {
	if err := json.Unmarshal(data, out); err != nil {
		s.reject(sink, "Malformed event payload")
		return false
	}
	if err := s.validate.Struct(out); err != nil {
		s.reject(sink, "Missing required event fields")
		return false
	}
	return true
}

func (s *Server) reject(sink *Sink, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()
	_ = sink.Consume(ctx, event.Error{Code: "INVALID_PAYLOAD", Message: message})
}

// verifiedUser extracts the owner user id from the bearer token, looking at
// the Authorization header first and the token query parameter as the
// browser-websocket fallback. No token simply means an anonymous caller.
func (s *Server) verifiedUser(r *http.Request) string {
	raw := r.URL.Query().Get("token")
	if header := r.Header.Get("Authorization"); header != "" {
		raw = strings.TrimPrefix(header, "Bearer ")
	}
	if raw == "" {
		return ""
	}
	userID, err := s.tokens.Validate(raw)
	if err != nil {
		s.log.Debug("rejected websocket token", "error", err)
		return ""
	}
	return userID
}

func (s *Server) writePump(conn *websocket.Conn, sink *Sink, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case e := <-sink.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := conn.WriteJSON(outEnvelope{Event: e.Name(), Data: e}); err != nil {
				s.log.Debug("failed to push event to connection", "event", e.Name(), "error", err)
				return
			}
		}
	}
}
