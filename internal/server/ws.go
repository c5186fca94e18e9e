package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"edgeroute/internal/wshub"
)

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sess := s.mustSession(w, r)
	if sess == nil {
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.Log.Warn("websocket accept", zap.Error(err))
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(64 << 10)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	client := &wshub.Client{
		ID:   uuid.NewString(),
		Conn: conn,
		Send: make(chan []byte, 32),
	}
	sess.Hub.Register(client)
	defer sess.Hub.Unregister(client.ID)
	go client.WritePump(ctx)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure && !errors.Is(err, context.Canceled) {
				s.Log.Debug("websocket read", zap.Error(err))
			}
			return
		}
		var msg wshub.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sess.Hub.SendTo(client.ID, wshub.ServerMessage{Type: wshub.TypeError, Error: "invalid message"})
			continue
		}
		if err := s.applyInput(sess, msg); err != nil {
			sess.Hub.SendTo(client.ID, wshub.ServerMessage{Type: wshub.TypeError, Error: err.Error()})
		}
	}
}
