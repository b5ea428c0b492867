package executor

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRunStreamsStdoutAndExitMarker(t *testing.T) {
	plan := Plan{
		Command: "sh",
		Args:    []string{"-c", "echo hello"},
		Dir:     ".",
	}

	rec := httptest.NewRecorder()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := Run(ctx, rec, plan); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	body := rec.Body.String()
	want := "hello\n[Exit code: 0]"
	if body != want {
		t.Errorf("body = %q, want %q", body, want)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Errorf("Content-Type = %q, want text/plain; charset=utf-8", ct)
	}
	if nosniff := rec.Header().Get("X-Content-Type-Options"); nosniff != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", nosniff)
	}
}

func TestRunNonZeroExitCode(t *testing.T) {
	plan := Plan{
		Command: "sh",
		Args:    []string{"-c", "exit 7"},
		Dir:     ".",
	}

	rec := httptest.NewRecorder()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := Run(ctx, rec, plan); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := "[Exit code: 7]"
	if rec.Body.String() != want {
		t.Errorf("body = %q, want %q", rec.Body.String(), want)
	}
}

func TestRunEnvIsPassedToChild(t *testing.T) {
	plan := Plan{
		Command: "sh",
		Args:    []string{"-c", "echo $GREETING"},
		Dir:     ".",
		Env:     map[string]string{"GREETING": "hi"},
	}

	rec := httptest.NewRecorder()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := Run(ctx, rec, plan); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := "hi\n[Exit code: 0]"
	if rec.Body.String() != want {
		t.Errorf("body = %q, want %q", rec.Body.String(), want)
	}
}

func TestRunInterleavesStdoutAndStderr(t *testing.T) {
	plan := Plan{
		Command: "sh",
		Args:    []string{"-c", "echo out1; echo err1 >&2; echo out2"},
		Dir:     ".",
	}

	rec := httptest.NewRecorder()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := Run(ctx, rec, plan); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	body := rec.Body.String()
	for _, want := range []string{"out1\n", "err1\n", "out2\n", "[Exit code: 0]"} {
		if !strings.Contains(body, want) {
			t.Errorf("body %q missing %q", body, want)
		}
	}
}
