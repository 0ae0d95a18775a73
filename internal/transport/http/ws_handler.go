package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"contest-service/internal/app"
	"github.com/go-chi/httplog/v2"
	"github.com/gorilla/websocket"
)

const defaultViewInterval = 5 * time.Second

type WSHandler struct {
	service      *app.ContestService
	viewInterval time.Duration
	upgrader     websocket.Upgrader
}

func NewWSHandler(service *app.ContestService, viewInterval time.Duration) *WSHandler {
	if viewInterval <= 0 {
		viewInterval = defaultViewInterval
	}
	return &WSHandler{
		service:      service,
		viewInterval: viewInterval,
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

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func errorMessage(err error) outboundMessage[any] {
	_, code := statusFromError(err)
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Code: code, Message: err.Error()}}
}

// ServeWS upgrades HTTP requests to websockets and keeps the participant's view live.
// The view is pushed on connect, after every change in this process and every viewInterval.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	displayName := r.URL.Query().Get("name")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}
	logger := httplog.LogEntry(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	session, err := h.service.Join(ctx, userID, displayName)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	defer h.service.Leave(context.WithoutCancel(ctx), session.ID())

	updates, cancel := h.service.Subscribe(ctx)
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Only the writer goroutine touches conn for writing.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				logger.Warn("ws write error", "error", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		ticker := time.NewTicker(h.viewInterval)
		defer ticker.Stop()
		for {
			select {
			case _, ok := <-updates:
				if !ok {
					return
				}
			case <-ticker.C:
			case <-closeSignals:
				return
			}
			select {
			case send <- h.viewMessage(ctx, session):
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "session", Payload: map[string]string{"sessionId": session.ID()}}
	send <- h.viewMessage(ctx, session)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload submitRequest
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Code: "validation", Message: "invalid answer payload"}}
				continue
			}
			outcome, err := h.service.Submit(ctx, session, payload.ProblemID, payload.Answer)
			if err != nil {
				send <- errorMessage(err)
				continue
			}
			send <- outboundMessage[any]{Type: "answerResult", Payload: outcome}
			send <- h.viewMessage(ctx, session)
		case "view":
			send <- h.viewMessage(ctx, session)
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) viewMessage(ctx context.Context, session *app.Session) outboundMessage[any] {
	vm, err := h.service.View(ctx, session)
	if err != nil {
		return errorMessage(err)
	}
	return outboundMessage[any]{Type: "view", Payload: vm}
}
