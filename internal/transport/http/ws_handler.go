package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"exampro-service/internal/app"
	"exampro-service/internal/domain"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	service         *app.Service
	logger          *slog.Logger
	defaultPageSize int
	maxPageSize     int
	upgrader        websocket.Upgrader
}

func NewWSHandler(service *app.Service, logger *slog.Logger, defaultPageSize, maxPageSize int) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		service:         service,
		logger:          logger,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type pagePayload struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// pageView is the window a connection is watching.
type pageView struct {
	mu     sync.Mutex
	offset int
	limit  int
}

func (v *pageView) get() (int, int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.offset, v.limit
}

func (v *pageView) set(offset, limit int) {
	v.mu.Lock()
	v.offset, v.limit = offset, limit
	v.mu.Unlock()
}

// ServeWS streams one department's leaderboard: the current page on connect,
// then a fresh page after every invalidation, reset or recomputation.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	departmentID := q.Get("departmentId")
	offset, limit, err := parsePaging(q.Get("offset"), q.Get("limit"), h.defaultPageSize, h.maxPageSize)
	if departmentID == "" || err != nil {
		http.Error(w, "missing departmentId or invalid paging", http.StatusBadRequest)
		return
	}

	updates, cancel, err := h.service.Subscribe(r.Context(), departmentID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, stop := context.WithCancel(r.Context())
	defer stop()

	view := &pageView{offset: offset, limit: limit}
	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write failed", "department_id", departmentID, "error", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				msgs := []outboundMessage[any]{{Type: "update", Payload: update}}
				// After a reset the client decides when to reload.
				if update.Reason != domain.ReasonReset {
					msgs = append(msgs, h.pageMessage(ctx, departmentID, view))
				}
				for _, msg := range msgs {
					select {
					case send <- msg:
					case <-closeSignals:
						return
					}
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- h.pageMessage(ctx, departmentID, view)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "page":
			var payload pagePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Limit < 1 || payload.Limit > h.maxPageSize || payload.Offset < 0 {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid page payload"}}
				continue
			}
			view.set(payload.Offset, payload.Limit)
			send <- h.pageMessage(ctx, departmentID, view)
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	stop()
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) pageMessage(ctx context.Context, departmentID string, view *pageView) outboundMessage[any] {
	offset, limit := view.get()
	page, err := h.service.GetLeaderboard(ctx, departmentID, offset, limit)
	if err != nil {
		return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
	}
	return outboundMessage[any]{Type: "leaderboard", Payload: page}
}
