// HTTP control surface for the dashboard core
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"robodash/internal/command"
	"robodash/internal/state"
	"robodash/internal/telemetry"
)

// commandSender is the dispatcher surface the server needs. Narrowed for
// tests.
type commandSender interface {
	Send(command.Request) ([]command.Outcome, error)
}

// errorCounter exposes the receiver's decode error count.
type errorCounter interface {
	DecodeErrors() uint64
}

// Server exposes the snapshot read path and command dispatch over HTTP for
// external control UIs. It only ever consumes table copies, never the live
// storage.
type Server struct {
	table   *state.Table
	sender  commandSender
	counter errorCounter
	log     *slog.Logger
	mux     *http.ServeMux
}

// NewServer wires the table, dispatcher and receiver counters into a server.
func NewServer(table *state.Table, sender commandSender, counter errorCounter, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{table: table, sender: sender, counter: counter, log: log, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /robots", s.handleRobots)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /command", s.handleCommand)
}

// ServeHTTP makes the server mountable and testable via httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	s.log.Info("admin server listening", "addr", addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// robotView is the JSON shape handed to consumers.
type robotView struct {
	RobotID    int                   `json:"robot_id"`
	RobotName  string                `json:"robot_name"`
	Connected  bool                  `json:"connected"`
	LastUpdate time.Time             `json:"last_update"`
	Endpoint   string                `json:"endpoint"`
	Status     telemetry.RobotStatus `json:"status"`
}

func viewOf(rec state.Record) robotView {
	endpoint := ""
	if rec.Addr != nil {
		endpoint = rec.Addr.String()
	}
	return robotView{
		RobotID:    rec.Status.RobotID,
		RobotName:  rec.Status.RobotName,
		Connected:  rec.Connected,
		LastUpdate: rec.LastUpdate,
		Endpoint:   endpoint,
		Status:     rec.Status,
	}
}

func (s *Server) handleRobots(w http.ResponseWriter, r *http.Request) {
	snap := s.table.Snapshot()
	views := make([]robotView, 0, len(snap))
	for _, rec := range snap {
		views = append(views, viewOf(rec))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var decodeErrs uint64
	if s.counter != nil {
		decodeErrs = s.counter.DecodeErrors()
	}
	disconnected := s.table.DisconnectedIDs()
	if disconnected == nil {
		disconnected = []int{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"connected":        s.table.ConnectedCount(),
		"disconnected_ids": disconnected,
		"decode_errors":    decodeErrs,
	})
}

// commandBody matches the minimal control UI shape:
// {"target": 1 | "all", "command": "stop", "params": {...}}
type commandBody struct {
	Target  json.RawMessage `json:"target"`
	Command string          `json:"command"`
	Params  map[string]any  `json:"params"`
}

func (b *commandBody) request() (command.Request, error) {
	kind := command.Kind(b.Command)
	if !kind.Valid() {
		return command.Request{}, fmt.Errorf("unknown command %q", b.Command)
	}

	var all string
	if err := json.Unmarshal(b.Target, &all); err == nil {
		if all != "all" {
			return command.Request{}, fmt.Errorf("string target must be %q, got %q", "all", all)
		}
		req := command.NewBroadcast(kind)
		req.Params = b.Params
		return req, nil
	}
	var id int
	if err := json.Unmarshal(b.Target, &id); err != nil {
		return command.Request{}, fmt.Errorf("target must be a robot id or %q", "all")
	}
	req := command.NewRequest(kind, id)
	req.Params = b.Params
	return req, nil
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var body commandBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	req, err := body.request()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	outcomes, err := s.sender.Send(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	type outcomeView struct {
		RobotID  int    `json:"robot_id"`
		Endpoint string `json:"endpoint"`
		OK       bool   `json:"ok"`
		Error    string `json:"error,omitempty"`
	}
	views := make([]outcomeView, 0, len(outcomes))
	for _, o := range outcomes {
		v := outcomeView{RobotID: o.RobotID, OK: o.OK()}
		if o.Addr != nil {
			v.Endpoint = o.Addr.String()
		}
		if o.Err != nil {
			v.Error = o.Err.Error()
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"request_id": req.ID,
		"outcomes":   views,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
