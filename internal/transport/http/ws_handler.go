package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"quizctl/internal/app"
	"quizctl/internal/domain"
)

// ControllerFactory builds a fresh attempt controller for the connection
// being upgraded from r. An error refuses the upgrade.
type ControllerFactory func(r *http.Request) (*app.Controller, error)

// WSHandler lets a websocket peer drive its own attempt controller. Every
// state change is pushed as {"type":"state"}; rejected commands get
// {"type":"error"}.
type WSHandler struct {
	newController ControllerFactory
	upgrader      websocket.Upgrader
	log           zerolog.Logger
}

func NewWSHandler(newController ControllerFactory, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		newController: newController,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log.With().Str("component", "ws").Logger(),
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	QuizID int64  `json:"quiz_id"`
	PIN    string `json:"pin"`
}

type selectPayload struct {
	QuestionID int64  `json:"question_id"`
	Option     string `json:"option"`
}

type navigatePayload struct {
	Index int `json:"index"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.ServeWS(w, r)
}

// ServeWS upgrades the request and runs one attempt controller until the
// peer disconnects.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	controller, err := h.newController(r)
	if err != nil {
		h.refuse(w, err)
		return
	}
	defer controller.Close()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancelCtx := context.WithCancel(r.Context())
	defer cancelCtx()

	updates, cancel := controller.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	reply := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-closeSignals:
		}
	}
	replyError := func(message string) {
		reply(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}})
	}

	// one writer; gorilla connections do not support concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug().Err(err).Msg("ws write error")
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case state, ok := <-updates:
				if !ok {
					return
				}
				reply(outboundMessage[any]{Type: "state", Payload: state})
			case <-closeSignals:
				return
			}
		}
	}()

	var inflight sync.WaitGroup
	async := func(fn func() error) {
		inflight.Add(1)
		go func() {
			defer inflight.Done()
			if msg, ok := asyncRejection(fn()); ok {
				replyError(msg)
			}
		}()
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}

		switch inbound.Type {
		case "start":
			var p startPayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				replyError("invalid start payload")
				continue
			}
			async(func() error { return controller.Start(ctx, p.QuizID, p.PIN) })
		case "select":
			var p selectPayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				replyError("invalid select payload")
				continue
			}
			key, ok := domain.ParseOptionKey(p.Option)
			if !ok {
				replyError("option must be one of A, B, C, D")
				continue
			}
			rejectOnError(controller.SelectAnswer(p.QuestionID, key), replyError)
		case "navigate":
			var p navigatePayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				replyError("invalid navigate payload")
				continue
			}
			rejectOnError(controller.Navigate(p.Index), replyError)
		case "next":
			rejectOnError(controller.Next(), replyError)
		case "prev":
			rejectOnError(controller.Prev(), replyError)
		case "submit":
			async(func() error { return controller.Submit(ctx) })
		case "restart":
			rejectOnError(controller.Restart(), replyError)
		default:
			replyError("unsupported message type")
		}
	}

	close(closeSignals)
	cancelCtx()
	controller.Close()
	inflight.Wait()
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) refuse(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionExpired):
		writeJSON(w, http.StatusUnauthorized, errorBody{Detail: "Session expired"})
	case errors.Is(err, domain.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorBody{Detail: "Could not validate credentials"})
	default:
		h.log.Error().Err(err).Msg("ws controller setup failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Detail: "request failed"})
	}
}

func rejectOnError(err error, replyError func(string)) {
	if err != nil {
		replyError(err.Error())
	}
}

// asyncRejection reports guard failures of start and submit. Gateway
// failures are already visible in the pushed state.
func asyncRejection(err error) (string, bool) {
	switch {
	case err == nil:
		return "", false
	case errors.Is(err, domain.ErrWrongPhase),
		errors.Is(err, domain.ErrStartPending),
		errors.Is(err, domain.ErrNothingAnswered):
		return err.Error(), true
	}
	return "", false
}
