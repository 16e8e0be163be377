package api

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/doclexa/doclexa/internal/metrics"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// wsConn serializes writes; state listeners and the read loop both push.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (w *wsConn) writeJSON(v interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conn.WriteJSON(v)
}

// handleWebSocket streams state changes and runs analyses interactively.
// Messages in: {"type":"analyze"} or {"type":"followup","question":"..."}.
func (s *Server) handleWebSocket(c *websocket.Conn) {
	defer c.Close()

	metrics.Default().IncrementActiveConnections()
	defer metrics.Default().DecrementActiveConnections()

	conn := &wsConn{conn: c}

	langSub := s.languages.Subscribe(func() {
		conn.writeJSON(fiber.Map{"type": "language", "value": s.languages.Language()})
	})
	defer langSub.Cancel()

	currencySub := s.currency.Subscribe(func() {
		conn.writeJSON(fiber.Map{"type": "currency", "value": s.currency.Selected()})
	})
	defer currencySub.Cancel()

	conn.writeJSON(fiber.Map{
		"type":     "hello",
		"language": s.languages.Language(),
		"currency": s.currency.Selected(),
	})

	for {
		mt, msg, err := c.ReadMessage()
		if err != nil {
			s.logger.Debug("websocket closed", zap.Error(err))
			break
		}
		if mt != websocket.TextMessage {
			continue
		}

		var req struct {
			Type     string `json:"type"`
			Question string `json:"question"`
		}
		if err := json.Unmarshal(msg, &req); err != nil {
			conn.writeJSON(fiber.Map{"type": "error", "content": "invalid message format"})
			continue
		}

		switch req.Type {
		case "analyze":
			result, err := s.session.Start(context.Background())
			if err != nil {
				conn.writeJSON(fiber.Map{"type": "error", "content": err.Error()})
				continue
			}
			conn.writeJSON(fiber.Map{"type": "result", "result": result})
		case "followup":
			result, err := s.session.AskFollowUp(context.Background(), req.Question)
			if err != nil {
				conn.writeJSON(fiber.Map{"type": "error", "content": err.Error()})
				continue
			}
			conn.writeJSON(fiber.Map{"type": "result", "result": result})
		default:
			conn.writeJSON(fiber.Map{"type": "error", "content": "unknown message type"})
		}
	}
}
