package widget

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zhouzirui/elio-helpdesk/client/pkg/utils"
)

const sseHeartbeat = 25 * time.Second

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type outgoingMessage struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// handleWebSocket 推送会话快照，并接收电话输入框的实时修改
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("[websocket] upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	updates := h.ctrl.Watch(ctx)
	replies := make(chan outgoingMessage, 4)

	conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	})

	go h.readLoop(ctx, cancel, conn, replies)

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	h.logger.Debug().Str("remote", r.RemoteAddr).Msg("[websocket] client connected")

	// all writes happen on this goroutine
	for {
		select {
		case <-ctx.Done():
			h.logger.Debug().Str("remote", r.RemoteAddr).Msg("[websocket] client disconnected")
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := h.write(conn, outgoingMessage{Type: "session", Data: newSessionPayload(snap)}); err != nil {
				return
			}
		case msg := <-replies:
			if err := h.write(conn, msg); err != nil {
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(10 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

func (h *Handler) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, replies chan<- outgoingMessage) {
	defer cancel()

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug().Err(err).Msg("[websocket] read error")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(h.readTimeout))

		var reply *outgoingMessage
		switch msg.Type {
		case "phone":
			var payload phoneRequest
			if err := json.Unmarshal(msg.Data, &payload); err != nil {
				reply = errorMessage("invalid phone payload")
				break
			}
			normalized := h.ctrl.OnPhoneEdited(payload.Phone)
			reply = &outgoingMessage{Type: "phone", Data: map[string]string{"phone": normalized}}
		default:
			reply = errorMessage("unsupported message type: " + msg.Type)
		}

		select {
		case replies <- *reply:
		case <-ctx.Done():
			return
		}
	}
}

func errorMessage(message string) *outgoingMessage {
	return &outgoingMessage{Type: "error", Data: map[string]string{"message": message}}
}

func (h *Handler) write(conn *websocket.Conn, msg outgoingMessage) error {
	msg.Timestamp = time.Now().Unix()
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Debug().Err(err).Str("type", msg.Type).Msg("[websocket] write failed")
		return err
	}
	return nil
}

// handleEvents 以 Server-Sent Events 推送会话快照
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()
	updates := h.ctrl.Watch(ctx)

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := utils.SendSSEEvent(w, flusher, "session", newSessionPayload(snap)); err != nil {
				h.logger.Debug().Err(err).Msg("[sse] write failed")
				return
			}
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "heartbeat"); err != nil {
				return
			}
		}
	}
}
