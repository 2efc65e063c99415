package web

import (
	"context"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/outdial/amd/internal/log"
	"github.com/outdial/amd/pkg/classify"
	"github.com/outdial/amd/pkg/session"
)

// registerStream mounts the streaming endpoint under the given router.
// Rate limiting happens before the upgrade so rejected clients get a
// plain 429 instead of a dropped handshake.
func (s *Server) registerStream(router fiber.Router) {
	router.Use("/stream", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		if !s.admit(c, s.opts.PredictLimiter) {
			return nil
		}
		return c.Next()
	})
	router.Get("/stream", websocket.New(s.handleStream))
}

// handleStream drives one streaming classification session over the
// upgraded connection.
func (s *Server) handleStream(c *websocket.Conn) {
	classifier := s.opts.Local
	if classifier == nil {
		classifier = s.opts.Gemini
	}
	if classifier == nil {
		log.Warn("stream rejected, no classifier configured", "remote", c.RemoteAddr())
		c.WriteJSON(fiber.Map{"error": "no classifier configured"})
		c.Close()
		return
	}

	s.streamSessions.Add(1)
	s.activeSessions.Add(1)
	defer s.activeSessions.Add(-1)

	sess := session.New(&wsConn{conn: c, server: s}, classifier, s.opts.SessionConfig)
	if err := sess.Run(context.Background()); err != nil {
		log.Warn("stream session ended with error", "error", err)
	}
}

// wsConn adapts a fiber websocket connection to session.Conn.
type wsConn struct {
	conn   *websocket.Conn
	server *Server
}

// ReadChunk returns the next binary frame, skipping text and control
// frames. Deadline expiry surfaces as the underlying net timeout
// error, which session.Run treats as silence.
func (w *wsConn) ReadChunk(deadline time.Time) ([]byte, error) {
	if err := w.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	for {
		msgType, data, err := w.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if msgType == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (w *wsConn) WriteResult(result session.Result) error {
	w.server.countVerdict(classify.Label(result.Label))
	return w.conn.WriteJSON(result)
}

func (w *wsConn) Close() error {
	return w.conn.Close()
}
