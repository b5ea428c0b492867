// Package server wires the auth layer, task table, parameter validator,
// executor, JSON projection, and static assets together into the HTTP
// dispatcher: one handler that routes a request by method and path,
// authenticates it, and produces a response or a classified httpError.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/headexplodes/henchman/internal/assets"
	"github.com/headexplodes/henchman/internal/auth"
	"github.com/headexplodes/henchman/internal/executor"
	"github.com/headexplodes/henchman/internal/jsonapi"
	"github.com/headexplodes/henchman/internal/metrics"
	"github.com/headexplodes/henchman/internal/task"
)

// Server is the top-level HTTP handler. It holds no mutable state of its
// own beyond what Authenticator carries; the task table is fixed after
// construction, matching the "written once at startup" invariant.
type Server struct {
	tasks map[string]task.Def
	auth  *auth.Authenticator
}

// New builds a Server over a fixed task table and authenticator.
func New(tasks map[string]task.Def, authenticator *auth.Authenticator) *Server {
	return &Server{tasks: tasks, auth: authenticator}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set("X-Request-Id", requestID)

	start := time.Now()
	route, status := s.dispatch(w, r)
	duration := time.Since(start)

	metrics.ObserveRequest(route, status, duration)
	slog.Info("request handled",
		"request_id", requestID,
		"method", r.Method,
		"path", r.URL.Path,
		"route", route,
		"status", status,
		"duration_ms", duration.Milliseconds(),
	)
}

// dispatch routes and authenticates the request, returning the route label
// (for metrics) and the status code actually written. Task-run requests
// whose child process starts have already written their own 200 OK and
// headers by the time dispatch returns; the status reported for those is
// always 200, since mid-stream failures are not surfaced as HTTP status
// changes. A child that fails to start is reported as 500.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) (route string, status int) {
	path := strings.TrimPrefix(r.URL.Path, "/")

	// Every route, static assets included, requires Basic auth.
	principal, err := s.auth.Authenticate(r)
	if err != nil {
		return s.writeAuthError(w, err)
	}
	slog.Debug("authenticated request", "user", principal.Username, "path", path)

	switch {
	case path == "favicon.ico" || strings.HasPrefix(path, "web/"):
		return s.serveStatic(w, path)

	case path == "":
		http.Redirect(w, r, "/web/tasks", http.StatusFound)
		return "root", http.StatusFound

	case path == "api/tasks":
		return s.handleListTasks(w, r)

	case strings.HasPrefix(path, "api/tasks/") && strings.HasSuffix(path, "/run"):
		name := strings.TrimSuffix(strings.TrimPrefix(path, "api/tasks/"), "/run")
		return s.handleRunTask(w, r, name)

	case strings.HasPrefix(path, "api/tasks/"):
		name := strings.TrimPrefix(path, "api/tasks/")
		return s.handleDescribeTask(w, r, name)

	default:
		return s.writeError(w, notFound("no such route: /%s", path))
	}
}

func (s *Server) serveStatic(w http.ResponseWriter, path string) (string, int) {
	assetPath := path
	switch {
	case path == "favicon.ico":
		assetPath = "favicon.ico"
	case strings.HasPrefix(path, "web/tasks/") && path != "web/tasks/tasks":
		// Any task name under web/tasks/{name} serves the same HTML
		// shell; the name is resolved client-side from the URL.
		assetPath = "tasks/task"
	default:
		assetPath = strings.TrimPrefix(path, "web/")
	}

	data, contentType, ok := assets.Lookup(assetPath)
	if !ok {
		return s.writeError(w, notFound("no such asset: /%s", path))
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)

	return "web", http.StatusOK
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) (string, int) {
	if r.Method != http.MethodGet {
		return s.writeError(w, methodNotAllowed("method %s not allowed on /api/tasks", r.Method))
	}

	docs := make([]jsonapi.Task, 0, len(s.tasks))
	for _, def := range s.tasks {
		docs = append(docs, jsonapi.FromTask(def))
	}

	return "api/tasks", s.writeJSON(w, docs)
}

func (s *Server) handleDescribeTask(w http.ResponseWriter, r *http.Request, name string) (string, int) {
	if r.Method != http.MethodGet {
		return s.writeError(w, methodNotAllowed("method %s not allowed on /api/tasks/%s", r.Method, name))
	}

	def, ok := s.tasks[name]
	if !ok {
		return s.writeError(w, notFound("no such task: %s", name))
	}

	return "api/tasks/{name}", s.writeJSON(w, jsonapi.FromTask(def))
}

func (s *Server) handleRunTask(w http.ResponseWriter, r *http.Request, name string) (string, int) {
	def, ok := s.tasks[name]
	if !ok {
		return s.writeError(w, notFound("no such task: %s", name))
	}

	plan, err := buildPlan(def, r)
	if err != nil {
		return s.writeError(w, err)
	}

	done := metrics.TaskStarted(name)
	defer func() { done(exitStatusLabel(r)) }()

	if err := executor.Run(r.Context(), w, plan); err != nil {
		slog.Error("task execution failed", "task", name, "error", err)
		return s.writeError(w, internalError("running task %q: %v", name, err))
	}

	return "api/tasks/{name}/run", http.StatusOK
}

// exitStatusLabel is a coarse label for the task_runs_total metric; the
// executor doesn't return the child's exit code to its caller (it streams
// the marker directly to the client), so completion is all this can
// distinguish.
func exitStatusLabel(r *http.Request) string {
	if r.Context().Err() != nil {
		return "cancelled"
	}
	return "completed"
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) int {
	body, err := json.Marshal(v)
	if err != nil {
		return s.writeErrorStatus(w, internalError("encoding response: %v", err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
	return http.StatusOK
}

func (s *Server) writeAuthError(w http.ResponseWriter, err error) (string, int) {
	return "auth", s.writeErrorStatus(w, toHTTPError(err))
}

func (s *Server) writeError(w http.ResponseWriter, err error) (string, int) {
	return "error", s.writeErrorStatus(w, toHTTPError(err))
}

func (s *Server) writeErrorStatus(w http.ResponseWriter, err *httpError) int {
	writeHTMLError(w, err)
	return statusFor(err.Kind)
}

// toHTTPError normalizes an *auth.Error or *httpError into *httpError, the
// single currency the dispatcher writes responses from.
func toHTTPError(err error) *httpError {
	if he, ok := err.(*httpError); ok {
		return he
	}

	if ae, ok := err.(*auth.Error); ok {
		switch ae.Kind {
		case auth.KindBadRequest:
			return badRequest("%s", ae.Message)
		case auth.KindInternalServerError:
			return internalError("%s", ae.Message)
		default:
			return &httpError{Kind: KindUnauthorized, Message: ae.Message}
		}
	}

	return internalError("%v", err)
}
