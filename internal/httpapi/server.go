package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/emeghara/dialctl/internal/call"
	"github.com/emeghara/dialctl/internal/callapi"
	"github.com/emeghara/dialctl/internal/config"
	"github.com/emeghara/dialctl/internal/leads"
	"github.com/emeghara/dialctl/internal/observability"
)

// CallController is the session controller surface the API exposes.
type CallController interface {
	StartCall(ctx context.Context, target string) error
	StopCall(ctx context.Context) error
	Status() call.Snapshot
}

// RemoteHealth pings the remote call-control service.
type RemoteHealth interface {
	Health(ctx context.Context) error
}

type Server struct {
	cfg        config.Config
	controller CallController
	remote     RemoteHealth
	leadStore  leads.Store
	hub        *EventHub
	upgrader   websocket.Upgrader
}

func New(cfg config.Config, controller CallController, remote RemoteHealth, leadStore leads.Store, hub *EventHub) *Server {
	return &Server{
		cfg:        cfg,
		controller: controller,
		remote:     remote,
		leadStore:  leadStore,
		hub:        hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only allow browser websocket connections from the same
				// origin, so another website cannot drive the operator's dialer if
				// the daemon is ever exposed beyond localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/call/start", s.handleStartCall)
	r.Post("/v1/call/stop", s.handleStopCall)
	r.Get("/v1/call/status", s.handleCallStatus)
	r.Get("/v1/call/ws", s.handleCallWS)

	r.Post("/v1/leads", s.handleCreateLead)
	r.Get("/v1/leads", s.handleListLeads)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"call_state": s.controller.Status().State,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := s.remote.Health(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, "call_service_unreachable", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

type startCallRequest struct {
	To string `json:"to"`
}

func (s *Server) handleStartCall(w http.ResponseWriter, r *http.Request) {
	var req startCallRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := s.controller.StartCall(r.Context(), req.To); err != nil {
		var vErr *call.ValidationError
		var rErr *callapi.RemoteError
		switch {
		case errors.As(err, &vErr):
			respondError(w, http.StatusBadRequest, "invalid_number", vErr.Error())
		case errors.Is(err, call.ErrCallInProgress):
			respondError(w, http.StatusConflict, "call_in_progress", err.Error())
		case errors.As(err, &rErr):
			respondError(w, http.StatusBadGateway, "call_service_error", rErr.Error())
		default:
			respondError(w, http.StatusBadGateway, "call_service_unreachable", err.Error())
		}
		return
	}

	respondJSON(w, http.StatusAccepted, s.controller.Status())
}

type stopCallResponse struct {
	call.Snapshot
	Warning string `json:"warning,omitempty"`
}

func (s *Server) handleStopCall(w http.ResponseWriter, r *http.Request) {
	err := s.controller.StopCall(r.Context())
	if errors.Is(err, call.ErrNoActiveCall) {
		respondError(w, http.StatusConflict, "no_active_call", err.Error())
		return
	}

	// The call is ended locally even when the remote hangup failed; the
	// failure is reported as a warning, not an error status.
	res := stopCallResponse{Snapshot: s.controller.Status()}
	if err != nil {
		res.Warning = err.Error()
	}
	respondJSON(w, http.StatusOK, res)
}

type callStatusResponse struct {
	call.Snapshot
	StatusText string   `json:"status_text"`
	Transcript []string `json:"transcript"`
}

func (s *Server) handleCallStatus(w http.ResponseWriter, _ *http.Request) {
	statusText, transcript := s.hub.Snapshot()
	respondJSON(w, http.StatusOK, callStatusResponse{
		Snapshot:   s.controller.Status(),
		StatusText: statusText,
		Transcript: transcript,
	})
}

func (s *Server) handleCallWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	id, events, catchup := s.hub.Subscribe()
	defer s.hub.Unsubscribe(id)

	for _, evt := range catchup {
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(evt); err != nil {
			return
		}
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(1 << 10)
		for {
			// The UI never sends anything meaningful; read only to notice the close.
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		}
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
