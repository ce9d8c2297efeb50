package httpapi

import (
	stdcontext "context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Paintersrp/protonctl/internal/api"
	"github.com/Paintersrp/protonctl/internal/config"
	"github.com/Paintersrp/protonctl/internal/engine"
	"github.com/Paintersrp/protonctl/internal/envbuild"
	"github.com/Paintersrp/protonctl/internal/metrics"
	"github.com/Paintersrp/protonctl/internal/runtime"
)

const (
	defaultAddr            = "127.0.0.1:7663"
	defaultReadHeader      = 5 * time.Second
	defaultShutdownTimeout = 5 * time.Second
	maxBodyBytes           = 1 << 20

	// ProcessStatusEvent is the SSE event name carrying terminal
	// notifications.
	ProcessStatusEvent = "process-status"
)

// Config controls construction of the API server.
type Config struct {
	Addr              string
	Controller        api.Controller
	Listener          net.Listener
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// Server wraps an http.Server exposing launcher controls.
type Server struct {
	ctrl            api.Controller
	srv             *http.Server
	listener        net.Listener
	shutdownTimeout time.Duration
}

// NewServer constructs a Server with sane defaults.
func NewServer(cfg Config) (*Server, error) {
	if isNilController(cfg.Controller) {
		if cfg.Controller != nil {
			return nil, fmt.Errorf("controller is required (got nil %T)", cfg.Controller)
		}
		return nil, fmt.Errorf("controller is required")
	}
	addr := normalizeAddr(cfg.Addr)
	mux := http.NewServeMux()
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	if srv.ReadHeaderTimeout == 0 {
		srv.ReadHeaderTimeout = defaultReadHeader
	}
	server := &Server{
		ctrl:            cfg.Controller,
		srv:             srv,
		listener:        cfg.Listener,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
	if server.shutdownTimeout == 0 {
		server.shutdownTimeout = defaultShutdownTimeout
	}
	server.registerRoutes(mux)
	return server, nil
}

func isNilController(ctrl api.Controller) bool {
	if ctrl == nil {
		return true
	}
	v := reflect.ValueOf(ctrl)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

// Run starts serving until the provided context is cancelled.
func (s *Server) Run(ctx stdcontext.Context) error {
	if ctx == nil {
		ctx = stdcontext.Background()
	}
	errCh := make(chan error, 1)
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := stdcontext.WithTimeout(stdcontext.Background(), s.shutdownTimeout)
			defer cancel()
			_ = s.srv.Shutdown(shutdownCtx)
		case <-stop:
		}
	}()

	go func() {
		var err error
		if s.listener != nil {
			err = s.srv.Serve(s.listener)
		} else {
			err = s.srv.ListenAndServe()
		}
		errCh <- err
	}()

	err := <-errCh
	close(stop)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.srv.Addr
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/launch", s.handleLaunch)
	mux.HandleFunc("/api/v1/kill", s.handleKill)
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/health", s.handleHealth)
	mux.HandleFunc("/api/v1/config", s.handleConfig)
	mux.HandleFunc("/api/v1/runtimes", s.handleRuntimes)
	mux.HandleFunc("/api/v1/run-in-prefix", s.handleRunInPrefix)
	mux.HandleFunc("/api/v1/winetricks", s.handlePrefixTool)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
}

func (s *Server) handleLaunch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}
	var req api.LaunchRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	result, err := s.ctrl.Launch(r.Context(), req)
	if err != nil {
		s.writeErrorWithDetails(w, err, map[string]any{"game": requestName(req)})
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleKill(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}
	var req api.KillRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" && strings.TrimSpace(req.PrefixPath) == "" {
		s.writeError(w, fmt.Errorf("%w: name or prefix_path is required", api.ErrInvalidRequest))
		return
	}
	if err := s.ctrl.Kill(r.Context(), req); err != nil {
		s.writeErrorWithDetails(w, err, map[string]any{"game": req.Name})
		return
	}
	s.writeJSON(w, http.StatusOK, api.MessageResult{Message: "Killed " + req.Name})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}
	result, err := s.ctrl.Status(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}
	snap, err := s.ctrl.Health(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rec, err := s.ctrl.Config(r.Context())
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, rec)
	case http.MethodPut:
		var rec config.Record
		if !s.decodeBody(w, r, &rec) {
			return
		}
		if err := rec.Validate(); err != nil {
			s.writeError(w, fmt.Errorf("%w: %v", api.ErrInvalidRequest, err))
			return
		}
		if err := s.ctrl.SaveConfig(r.Context(), &rec); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, &rec)
	default:
		s.methodNotAllowed(w, http.MethodGet+", "+http.MethodPut)
	}
}

func (s *Server) handleRuntimes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}
	versions, err := s.ctrl.Runtimes(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if versions == nil {
		versions = []config.RuntimeVersion{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"runtimes": versions})
}

func (s *Server) handleRunInPrefix(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}
	var req api.RunInPrefixRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	result, err := s.ctrl.RunInPrefix(r.Context(), req)
	if err != nil {
		s.writeErrorWithDetails(w, err, map[string]any{"game": requestName(req.LaunchRequest), "exe_path": req.ExecutablePath})
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePrefixTool(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}
	var req api.PrefixToolRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	result, err := s.ctrl.OpenPrefixTool(r.Context(), req)
	if err != nil {
		s.writeErrorWithDetails(w, err, map[string]any{"prefix_path": req.PrefixPath})
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// handleEvents streams process-status notifications as server-sent events
// until the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, errors.New("streaming not supported"))
		return
	}

	events, release := s.ctrl.Subscribe(r.Context())
	defer release()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ProcessStatusEvent, data)
			flusher.Flush()
		}
	}
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, fmt.Errorf("%w: decode body: %v", api.ErrInvalidRequest, err))
		return false
	}
	return true
}

func requestName(req api.LaunchRequest) string {
	if req.Game != nil {
		return req.Game.Name
	}
	return req.Name
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, method string) {
	w.Header().Set("Allow", method)
	s.writeJSON(w, http.StatusMethodNotAllowed, errorBody{
		Code:    "method_not_allowed",
		Message: fmt.Sprintf("method %s not allowed", method),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

type errorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeErrorWithDetails(w, err, nil)
}

func (s *Server) writeErrorWithDetails(w http.ResponseWriter, err error, extra map[string]any) {
	status, code := classifyError(err)
	details := map[string]any{
		"timestamp": time.Now().UTC(),
	}
	for k, v := range extra {
		details[k] = v
	}
	body := errorBody{
		Code:    code,
		Message: err.Error(),
		Details: details,
	}
	s.writeJSON(w, status, body)
}

func classifyError(err error) (int, string) {
	var (
		validationErr *envbuild.ValidationError
		spawnErr      *runtime.SpawnError
		configErr     *config.ConfigError
	)
	switch {
	case errors.Is(err, stdcontext.Canceled):
		return 499, "context_canceled"
	case errors.Is(err, api.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, api.ErrUnknownGame):
		return http.StatusNotFound, "unknown_game"
	case errors.Is(err, engine.ErrAlreadyRunning):
		return http.StatusConflict, "already_running"
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, "validation_error"
	case errors.As(err, &spawnErr):
		return http.StatusBadGateway, "spawn_error"
	case errors.As(err, &configErr):
		if configErr.Op == "lookup" {
			return http.StatusFailedDependency, "missing_dependency"
		}
		return http.StatusInternalServerError, "config_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func normalizeAddr(addr string) string {
	if strings.TrimSpace(addr) == "" {
		return defaultAddr
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		// If parsing failed, trust caller.
		return addr
	}
	if host == "" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
