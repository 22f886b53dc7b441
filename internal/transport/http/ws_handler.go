package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"

	"github.com/gorilla/websocket"
)

type WSHandler struct {
	service  *app.SessionService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.SessionService) *WSHandler {
	return &WSHandler{
		service: service,
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

type answerPayload struct {
	QuestionID string `json:"questionId"`
	Value      string `json:"value"`
}

type gotoPayload struct {
	Index int `json:"index"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}

// ServeWS upgrades the request, starts a fresh session for quizId/userId and
// streams its countdown until the connection closes. The connection only ever
// drives the session it started; if a later start for the same quiz and user
// replaces it, the client is told it was abandoned. Closing the connection
// abandons its own session if that is still active.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	userID := r.URL.Query().Get("userId")
	if quizID == "" || userID == "" {
		http.Error(w, "missing quizId or userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	session, err := h.service.Begin(ctx, quizID, userID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err.Error()))
		return
	}
	started := session.State()

	events, cancel := session.Subscribe()
	defer cancel()
	defer h.service.Release(context.WithoutCancel(ctx), session)

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "started", Payload: started}

	// Ticks and outcomes the client did not ask for are forwarded; replies to
	// requests are sent by the read loop.
	go func() {
		defer close(eventsDone)
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				msg, forward := eventMessage(event)
				if !forward {
					continue
				}
				select {
				case send <- msg:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if msg, reply := h.handle(ctx, session, inbound); reply {
			send <- msg
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

// handle applies one client message to session. An abandon gets no direct
// reply; the forwarded abandoned event confirms it.
func (h *WSHandler) handle(ctx context.Context, session *app.Session, inbound inboundMessage) (outboundMessage[any], bool) {
	var state domain.SessionState
	switch inbound.Type {
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage("invalid answer payload"), true
		}
		state = session.Answer(ctx, payload.QuestionID, payload.Value)
	case "goto":
		var payload gotoPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage("invalid goto payload"), true
		}
		state = session.GoTo(ctx, payload.Index)
	case "next":
		state = session.Next(ctx)
	case "previous":
		state = session.Previous(ctx)
	case "submit":
		result, err := session.Submit(ctx)
		if err != nil {
			return errorMessage(err.Error()), true
		}
		return outboundMessage[any]{Type: "result", Payload: resultPayload(result)}, true
	case "abandon":
		if session.Status() != domain.StatusActive {
			return errorMessage(domain.ErrSessionClosed.Error()), true
		}
		h.service.Release(ctx, session)
		return outboundMessage[any]{}, false
	default:
		return errorMessage("unsupported message type"), true
	}
	return outboundMessage[any]{Type: "state", Payload: state}, true
}

func eventMessage(event domain.SessionEvent) (outboundMessage[any], bool) {
	switch event.Type {
	case domain.EventTick:
		return outboundMessage[any]{Type: "tick", Payload: tickPayload{
			Remaining: event.State.Remaining,
			Clock:     event.State.Clock,
		}}, true
	case domain.EventResult:
		if event.Result == nil || !event.Result.AutoSubmitted {
			return outboundMessage[any]{}, false
		}
		return outboundMessage[any]{Type: "result", Payload: resultPayload(*event.Result)}, true
	case domain.EventAbandoned:
		return outboundMessage[any]{Type: "abandoned", Payload: event.State}, true
	}
	return outboundMessage[any]{}, false
}

type tickPayload struct {
	Remaining int    `json:"timeRemaining"`
	Clock     string `json:"clock"`
}

type resultMessage struct {
	domain.Result
	Verdict string `json:"verdict"`
}

func resultPayload(result domain.Result) resultMessage {
	return resultMessage{Result: result, Verdict: result.Verdict()}
}
