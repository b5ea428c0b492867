package server

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/headexplodes/henchman/internal/task"
)

func numberDefault(n float64, isInt bool) *task.ParameterValue {
	return &task.ParameterValue{Type: task.TypeNumber, Num: n, IsInt: isInt}
}

func exampleTask() task.Def {
	return task.Def{
		Name:    "example1",
		Methods: map[task.Method]bool{task.MethodPOST: true},
		Parameters: []task.Parameter{
			{Name: "param1", Required: true, Type: task.TypeString, Enum: []string{"foo", "bar"}, Env: "P1"},
			{Name: "param2", Type: task.TypeNumber, Default: numberDefault(3, true), Env: "P2"},
		},
		Exec: task.Exec{Command: "echo"},
	}
}

func TestBuildPlanUsesPresentValueAndDefault(t *testing.T) {
	form := url.Values{"param1": {"foo"}}
	req := httptest.NewRequest(http.MethodPost, "/api/tasks/example1/run", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	plan, err := buildPlan(exampleTask(), req)
	if err != nil {
		t.Fatalf("buildPlan: %v", err)
	}
	if plan.Env["P1"] != "foo" {
		t.Errorf("P1 = %q, want foo", plan.Env["P1"])
	}
	if plan.Env["P2"] != "3" {
		t.Errorf("P2 = %q, want 3 (default, no trailing .0)", plan.Env["P2"])
	}
}

func TestBuildPlanRejectsMissingRequiredParameter(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/tasks/example1/run", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	_, err := buildPlan(exampleTask(), req)
	he, ok := err.(*httpError)
	if !ok || he.Kind != KindBadRequest {
		t.Fatalf("expected BadRequest, got %#v", err)
	}
	if !strings.Contains(he.Message, "param1") {
		t.Errorf("message = %q, want to mention param1", he.Message)
	}
}

func TestBuildPlanRejectsInvalidEnumValue(t *testing.T) {
	form := url.Values{"param1": {"baz"}}
	req := httptest.NewRequest(http.MethodPost, "/api/tasks/example1/run", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	_, err := buildPlan(exampleTask(), req)
	he, ok := err.(*httpError)
	if !ok || he.Kind != KindBadRequest {
		t.Fatalf("expected BadRequest, got %#v", err)
	}
}

func TestBuildPlanRejectsDisallowedMethod(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/tasks/example1/run", nil)

	_, err := buildPlan(exampleTask(), req)
	he, ok := err.(*httpError)
	if !ok || he.Kind != KindMethodNotAllowed {
		t.Fatalf("expected MethodNotAllowed, got %#v", err)
	}
}

func TestBuildPlanRejectsUnsupportedContentType(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/tasks/example1/run", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")

	_, err := buildPlan(exampleTask(), req)
	he, ok := err.(*httpError)
	if !ok || he.Kind != KindNotAcceptable {
		t.Fatalf("expected NotAcceptable, got %#v", err)
	}
}

func TestBuildPlanUndeclaredParameterIsNotRejected(t *testing.T) {
	form := url.Values{"param1": {"foo"}, "unexpected": {"value"}}
	req := httptest.NewRequest(http.MethodPost, "/api/tasks/example1/run", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if _, err := buildPlan(exampleTask(), req); err != nil {
		t.Fatalf("buildPlan: %v", err)
	}
}
