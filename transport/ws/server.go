package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/coregx/parcelhub"
	"github.com/coregx/parcelhub/model"
)

// Hub is the part of parcelhub.Hub the transport drives.
type Hub interface {
	Connect(ctx context.Context, conn parcelhub.Conn, token string) (model.Identity, error)
	HandleInbound(ctx context.Context, connID string, msg parcelhub.InboundMessage) error
	Disconnect(connID string) bool
}

// Server upgrades HTTP requests and runs one Conn per client.
type Server struct {
	hub      Hub
	cfg      config
	upgrader websocket.Upgrader
}

// NewServer creates a Server that hands connections to hub.
func NewServer(hub Hub, opts ...Option) (*Server, error) {
	if hub == nil {
		return nil, parcelhub.NewError(parcelhub.ErrCodeConfiguration, "hub is required")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, parcelhub.NewErrorWithCause(parcelhub.ErrCodeConfiguration, "failed to apply ws option", err)
		}
	}

	return &Server{
		hub: hub,
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     cfg.checkOrigin,
		},
	}, nil
}

// ServeHTTP upgrades the request and blocks until the connection is gone.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	socket, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.cfg.logger.Debugf("ws: upgrade failed: %v", err)
		return
	}

	conn := newConn(uuid.NewString(), r.UserAgent(), socket, s.cfg)
	go conn.writePump()
	defer func() { <-conn.Done() }()

	ctx := r.Context()
	if _, err := s.hub.Connect(ctx, conn, requestToken(r)); err != nil {
		// The hub has already closed conn; drain the client until the close
		// handshake finishes or the socket drops.
		s.discard(conn)
		return
	}
	defer s.hub.Disconnect(conn.ID())

	s.readPump(ctx, conn)
}

// readPump decodes client frames until the socket fails.
func (s *Server) readPump(ctx context.Context, conn *Conn) {
	socket := conn.ws
	socket.SetReadLimit(s.cfg.readLimit)
	_ = socket.SetReadDeadline(time.Now().Add(s.cfg.pongWait))
	socket.SetPongHandler(func(string) error {
		return socket.SetReadDeadline(time.Now().Add(s.cfg.pongWait))
	})

	for {
		messageType, data, err := socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.cfg.logger.Debugf("ws: connection %s dropped: %v", conn.ID(), err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg parcelhub.InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.cfg.logger.Warnf("ws: malformed frame from %s: %v", conn.ID(), err)
			continue
		}
		if err := s.hub.HandleInbound(ctx, conn.ID(), msg); err != nil {
			s.cfg.logger.Warnf("ws: %s from %s rejected: %v", msg.Event, conn.ID(), err)
		}
	}
}

func (s *Server) discard(conn *Conn) {
	_ = conn.ws.SetReadDeadline(time.Now().Add(s.cfg.writeWait))
	for {
		if _, _, err := conn.ws.ReadMessage(); err != nil {
			return
		}
	}
}

// requestToken reads the credential from ?token= or a bearer header.
func requestToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	token, _ := parcelhub.BearerToken(r.Header.Get("Authorization"))
	return token
}
