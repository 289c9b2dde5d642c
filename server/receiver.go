package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/mbocsi/silaevents/proto"
)

const maxEnvelopeSize = 4 << 20

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

type ReceiverOptions struct {
	Path     string                 // SOAP endpoint path, defaults to "/"
	LogLimit int                    // Events kept in memory, defaults to DefaultLogLimit
	Logger   *slog.Logger           // Optional (defaults to slog.Default())
	OnEvent  func(ev ReceivedEvent) // Optional, called after an event is stored
}

// Receiver is a local SiLA EventReceiver. It accepts the four event
// operations over SOAP, keeps them in an EventLog and streams them to
// websocket watchers.
type Receiver struct {
	Addr   string
	opts   ReceiverOptions
	events *EventLog
	broker *Broker
	logger *slog.Logger

	mu        sync.Mutex
	server    *http.Server
	connected bool
}

func NewReceiver(addr string, opts ReceiverOptions) *Receiver {
	if opts.Path == "" {
		opts.Path = "/"
	}
	if !strings.HasPrefix(opts.Path, "/") {
		opts.Path = "/" + opts.Path
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Receiver{
		Addr:   addr,
		opts:   opts,
		events: NewEventLog(opts.LogLimit),
		broker: NewBroker(),
		logger: logger,
	}
}

func (r *Receiver) Events() *EventLog { return r.events }
func (r *Receiver) Broker() *Broker   { return r.broker }
func (r *Receiver) Path() string      { return r.opts.Path }

func (r *Receiver) Routes() http.Handler {
	router := chi.NewRouter()
	router.Post(r.opts.Path, r.handleSOAP)
	router.Get("/events", r.handleListEvents)
	router.Delete("/events", r.handleClearEvents)
	router.Get("/events/stream", r.handleEventStream)
	router.Get("/events/{id}", r.handleGetEvent)
	router.Get("/ws", r.handleWebSocket)
	return router
}

// Start serves until Shutdown is called.
func (r *Receiver) Start() error {
	r.logger.Info("Starting event receiver", "addr", r.Addr, "path", r.opts.Path)

	r.mu.Lock()
	r.server = &http.Server{Addr: r.Addr, Handler: r.Routes()}
	srv := r.server
	r.connected = true
	r.mu.Unlock()

	err := srv.ListenAndServe()
	r.mu.Lock()
	r.connected = false
	r.mu.Unlock()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (r *Receiver) Shutdown(ctx context.Context) error {
	r.logger.Info("Shutting down event receiver", "addr", r.Addr)
	r.mu.Lock()
	srv := r.server
	r.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (r *Receiver) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected
}

func (r *Receiver) handleSOAP(w http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(io.LimitReader(req.Body, maxEnvelopeSize+1))
	if err != nil {
		r.writeFault(w, "Client", fmt.Sprintf("read request: %v", err))
		return
	}
	if len(body) > maxEnvelopeSize {
		r.writeFault(w, "Client", "envelope too large")
		return
	}

	ev, err := proto.ParseEvent(body)
	if err != nil {
		r.logger.Warn("Rejected SOAP request", "remote_addr", req.RemoteAddr, "error", err.Error())
		r.writeFault(w, "Client", err.Error())
		return
	}

	soapAction := req.Header.Get("SOAPAction")
	if soapAction != "" && soapAction != proto.SOAPAction(ev.Action()) {
		r.logger.Warn("SOAPAction does not match payload", "soap_action", soapAction, "action", ev.Action())
	}

	received := newReceivedEvent(ev)
	received.SOAPAction = soapAction
	received.RemoteAddr = req.RemoteAddr
	received.Envelope = string(body)

	r.events.Store(received)
	watchers := r.broker.Publish(received)
	r.logger.Info("Event received", "action", received.Action, "id", received.ID, "remote_addr", req.RemoteAddr, "watchers", watchers)
	if r.opts.OnEvent != nil {
		r.opts.OnEvent(received)
	}

	reply, err := proto.Envelope(proto.OperationResponse(ev.Action(), proto.NewReturnValue(1).WithMessage("Success")))
	if err != nil {
		r.writeFault(w, "Server", err.Error())
		return
	}
	w.Header().Set("Content-Type", proto.ContentType)
	w.Write(reply)
}

// writeFault answers with a SOAP Fault; SOAP 1.1 requires status 500.
func (r *Receiver) writeFault(w http.ResponseWriter, code, reason string) {
	reply, err := proto.Envelope(proto.Fault(code, reason))
	if err != nil {
		http.Error(w, reason, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", proto.ContentType)
	w.WriteHeader(http.StatusInternalServerError)
	w.Write(reply)
}

func (r *Receiver) handleListEvents(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, r.events.List(req.URL.Query().Get("action")))
}

func (r *Receiver) handleClearEvents(w http.ResponseWriter, req *http.Request) {
	r.events.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (r *Receiver) handleGetEvent(w http.ResponseWriter, req *http.Request) {
	ev, ok := r.events.Get(chi.URLParam(req, "id"))
	if !ok {
		http.Error(w, "event not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// handleWebSocket streams events to the caller. ?action=DataEvent,ErrorEvent
// limits the stream; the default is every action.
func (r *Receiver) handleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	actions := watchedActions(req)
	watcher := NewWSWatcher(conn)
	for _, action := range actions {
		r.broker.Subscribe(action, watcher)
	}
	r.logger.Info("WebSocket watcher connected", "addr", req.RemoteAddr, "id", watcher.ID(), "actions", actions)

	watcher.Run()

	r.broker.UnsubscribeAll(watcher)
	r.logger.Info("WebSocket watcher disconnected", "addr", req.RemoteAddr, "id", watcher.ID())
}

// handleEventStream is the server-sent events counterpart of handleWebSocket.
func (r *Receiver) handleEventStream(w http.ResponseWriter, req *http.Request) {
	watcher, err := NewSSEWatcher(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	actions := watchedActions(req)
	for _, action := range actions {
		r.broker.Subscribe(action, watcher)
	}
	r.logger.Info("SSE watcher connected", "addr", req.RemoteAddr, "id", watcher.ID(), "actions", actions)

	watcher.Run(req.Context())

	r.broker.UnsubscribeAll(watcher)
	r.logger.Info("SSE watcher disconnected", "addr", req.RemoteAddr, "id", watcher.ID())
}

func watchedActions(req *http.Request) []string {
	q := req.URL.Query().Get("action")
	if q == "" {
		return []string{AllActions}
	}
	var actions []string
	for _, a := range strings.Split(q, ",") {
		if a = strings.TrimSpace(a); a != "" {
			actions = append(actions, a)
		}
	}
	if len(actions) == 0 {
		return []string{AllActions}
	}
	return actions
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode JSON response", "error", err)
	}
}
