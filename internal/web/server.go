package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/codestorm-dev/codestorm/internal/config"
	"github.com/codestorm-dev/codestorm/internal/logger"
	"github.com/codestorm-dev/codestorm/internal/runner"
	"github.com/codestorm-dev/codestorm/internal/workspace"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Server exposes the workspace service over HTTP and WebSocket.
type Server struct {
	cfg        *config.Config
	store      *workspace.Store
	files      *workspace.Files
	runner     *runner.Runner
	hub        *Hub
	router     *httprouter.Router
	httpServer *http.Server
	upgrader   websocket.Upgrader
	debug      bool
}

// NewServer creates a new web server
func NewServer(cfg *config.Config, store *workspace.Store, files *workspace.Files, run *runner.Runner, hub *Hub, debug bool) *Server {
	s := &Server{
		cfg:    cfg,
		store:  store,
		files:  files,
		runner: run,
		hub:    hub,
		router: httprouter.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		debug: debug,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.GET("/api/health", s.handleHealth)
	s.router.POST("/api/execute", s.handleExecute)

	s.router.POST("/api/files/list", s.handleFilesList)
	s.router.POST("/api/files/read", s.handleFilesRead)
	s.router.POST("/api/files/create", s.handleFilesCreate)
	s.router.POST("/api/files/save", s.handleFilesSave)
	s.router.POST("/api/files/move", s.handleFilesMove)
	s.router.POST("/api/files/delete", s.handleFilesDelete)
	s.router.GET("/api/files/raw", s.handleFilesRaw)

	s.router.GET("/ws", s.handleWebSocket)
}

// Start starts the web server in the background.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go s.hub.Run()

	go func() {
		logger.Info("Server listening on %s", s.cfg.Addr())
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error: %v", err)
		}
	}()

	return nil
}

// Stop stops the web server
func (s *Server) Stop() error {
	logger.Info("Stopping web server...")

	s.hub.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}

// Handler returns the HTTP handler, used by tests to serve without a listener.
func (s *Server) Handler() http.Handler {
	return s.router
}

// apiRequest is the common JSON request body for the REST endpoints.
type apiRequest struct {
	UserID      string `json:"user_id"`
	Command     string `json:"command,omitempty"`
	Path        string `json:"path,omitempty"`
	NewPath     string `json:"new_path,omitempty"`
	Directory   string `json:"directory,omitempty"`
	Content     string `json:"content,omitempty"`
	IsDirectory bool   `json:"is_directory,omitempty"`
	Timeout     int    `json:"timeout,omitempty"` // seconds
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"version":   Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	if req.Command == "" {
		writeError(w, http.StatusBadRequest, "no command provided")
		return
	}

	_, dir, err := s.store.Resolve(req.UserID, req.Directory)
	if err != nil {
		writeWorkspaceError(w, err)
		return
	}

	result := s.runner.Run(r.Context(), req.Command, dir, time.Duration(req.Timeout)*time.Second)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     result.Success,
		"command":     result.Command,
		"stdout":      result.Stdout,
		"stderr":      result.Stderr,
		"exit_code":   result.ExitCode,
		"duration_ms": result.Duration.Milliseconds(),
		"timed_out":   result.TimedOut,
	})
}

func (s *Server) handleFilesList(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	entries, err := s.files.List(req.UserID, req.Path)
	if err != nil {
		writeWorkspaceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"path":     req.Path,
		"contents": entries,
	})
}

func (s *Server) handleFilesRead(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	content, err := s.files.Read(req.UserID, req.Path)
	if err != nil {
		writeWorkspaceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"path":    req.Path,
		"content": string(content),
	})
}

func (s *Server) handleFilesCreate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	if err := s.files.Create(req.UserID, req.Path, []byte(req.Content), req.IsDirectory); err != nil {
		writeWorkspaceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"path":    req.Path,
	})
}

func (s *Server) handleFilesSave(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	if err := s.files.Save(req.UserID, req.Path, []byte(req.Content)); err != nil {
		writeWorkspaceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"path":    req.Path,
	})
}

func (s *Server) handleFilesMove(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	if req.NewPath == "" {
		writeError(w, http.StatusBadRequest, "no new_path provided")
		return
	}

	if err := s.files.Move(req.UserID, req.Path, req.NewPath); err != nil {
		writeWorkspaceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"path":     req.Path,
		"new_path": req.NewPath,
	})
}

func (s *Server) handleFilesDelete(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	if err := s.files.Delete(req.UserID, req.Path); err != nil {
		writeWorkspaceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"path":    req.Path,
	})
}

// handleFilesRaw streams file bytes without the binary refusal applied to the
// JSON read endpoint. Content type is sniffed by net/http.
func (s *Server) handleFilesRaw(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := r.URL.Query().Get("user_id")
	path := r.URL.Query().Get("path")

	content, err := s.files.ReadRaw(userID, path)
	if err != nil {
		writeWorkspaceError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Failed to upgrade WebSocket: %v", err)
		return
	}

	client := NewClient(s.hub, conn, s.store, s.files, s.runner, s.debug)
	s.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (*apiRequest, bool) {
	var req apiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}
	return &req, true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// writeWorkspaceError maps domain errors onto HTTP statuses.
func writeWorkspaceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workspace.ErrPathEscape), errors.Is(err, workspace.ErrInvalidUserID):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, workspace.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, workspace.ErrExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, workspace.ErrIsDirectory), errors.Is(err, workspace.ErrNotDirectory),
		errors.Is(err, workspace.ErrBinaryFile), errors.Is(err, workspace.ErrTooLarge):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
