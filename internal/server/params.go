package server

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/headexplodes/henchman/internal/executor"
	"github.com/headexplodes/henchman/internal/task"
)

// requestValues extracts the flat name->string parameter map from either
// the URL query (GET) or an application/x-www-form-urlencoded body
// (POST). Any other content type on a POST is NotAcceptable; any other
// method is MethodNotAllowed.
func requestValues(r *http.Request) (url.Values, error) {
	switch r.Method {
	case http.MethodGet:
		return r.URL.Query(), nil
	case http.MethodPost:
		contentType := r.Header.Get("Content-Type")
		if mediaType(contentType) != "application/x-www-form-urlencoded" {
			return nil, notAcceptable("unsupported content type: %s", contentType)
		}
		if err := r.ParseForm(); err != nil {
			return nil, badRequest("parsing form body: %v", err)
		}
		return r.PostForm, nil
	default:
		return nil, methodNotAllowed("unsupported method: %s", r.Method)
	}
}

func mediaType(contentType string) string {
	for i, c := range contentType {
		if c == ';' {
			return contentType[:i]
		}
	}
	return contentType
}

// buildPlan resolves and validates def's parameters against the request,
// producing the env overlay for a child-process run. Parameters present in
// the request but not declared on the task are logged, not rejected.
func buildPlan(def task.Def, r *http.Request) (executor.Plan, error) {
	method := task.Method(r.Method)
	if !def.AllowsMethod(method) {
		return executor.Plan{}, methodNotAllowed("method %s not allowed for task %q", r.Method, def.Name)
	}

	values, err := requestValues(r)
	if err != nil {
		return executor.Plan{}, err
	}

	declared := make(map[string]bool, len(def.Parameters))
	env := make(map[string]string)

	for _, p := range def.Parameters {
		declared[p.Name] = true

		raw, present := values[p.Name]
		switch {
		case present:
			value := raw[0]
			if !p.Validate(value) {
				return executor.Plan{}, badRequest("Invalid parameter value: %s", p.Name)
			}
			if p.Env != "" {
				env[p.Env] = value
			}
		case p.Default != nil:
			if p.Env != "" {
				env[p.Env] = p.Default.Rendered()
			}
		case p.Required:
			return executor.Plan{}, badRequest("Parameter is required: %s", p.Name)
		}
	}

	for name := range values {
		if !declared[name] {
			slog.Warn("task run request carried an undeclared parameter", "task", def.Name, "parameter", name)
		}
	}

	return executor.Plan{
		Command: def.Exec.Command,
		Args:    def.Exec.Args,
		Dir:     def.Exec.Dir,
		Env:     env,
	}, nil
}
