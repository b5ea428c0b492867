package stream

import (
	"context"
	"strings"
	"testing"
	"time"
)

func collect(t *testing.T, ctx context.Context, ch <-chan Line, timeout time.Duration) []Line {
	t.Helper()
	var lines []Line
	deadline := time.After(timeout)
	for {
		select {
		case l, ok := <-ch:
			if !ok {
				return lines
			}
			lines = append(lines, l)
		case <-deadline:
			t.Fatal("timed out waiting for channel to close")
			return nil
		}
	}
}

func TestReadLinesSplitsOnNewline(t *testing.T) {
	ctx := context.Background()
	out := make(chan Line)

	go ReadLines(ctx, strings.NewReader("one\ntwo\nthree"), out)

	lines := collect(t, ctx, out, time.Second)
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3: %+v", len(lines), lines)
	}
	if lines[0].Text != "one\n" || lines[1].Text != "two\n" || lines[2].Text != "three" {
		t.Errorf("unexpected lines: %+v", lines)
	}
}

func TestReadLinesEmptyInput(t *testing.T) {
	ctx := context.Background()
	out := make(chan Line)

	go ReadLines(ctx, strings.NewReader(""), out)

	lines := collect(t, ctx, out, time.Second)
	if len(lines) != 0 {
		t.Errorf("expected no lines, got %+v", lines)
	}
}

func TestInterleaveMergesBothStreamsUntilExhausted(t *testing.T) {
	ctx := context.Background()

	first := make(chan Line)
	second := make(chan Line)

	go func() {
		first <- Line{Text: "a\n"}
		first <- Line{Text: "b\n"}
		close(first)
	}()
	go func() {
		second <- Line{Text: "x\n"}
		close(second)
	}()

	merged := Interleave(ctx, first, second)
	lines := collect(t, ctx, merged, time.Second)

	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3: %+v", len(lines), lines)
	}

	var texts []string
	for _, l := range lines {
		texts = append(texts, l.Text)
	}
	seen := map[string]bool{}
	for _, txt := range texts {
		seen[txt] = true
	}
	for _, want := range []string{"a\n", "b\n", "x\n"} {
		if !seen[want] {
			t.Errorf("expected merged output to contain %q, got %v", want, texts)
		}
	}
}

func TestInterleaveClosesWhenBothInputsClose(t *testing.T) {
	ctx := context.Background()

	first := make(chan Line)
	second := make(chan Line)
	close(first)
	close(second)

	merged := Interleave(ctx, first, second)
	lines := collect(t, ctx, merged, time.Second)
	if len(lines) != 0 {
		t.Errorf("expected no lines from two closed inputs, got %+v", lines)
	}
}

func TestInterleaveRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	first := make(chan Line)
	second := make(chan Line)

	merged := Interleave(ctx, first, second)
	cancel()

	select {
	case _, ok := <-merged:
		if ok {
			t.Error("expected merged channel to produce nothing after cancellation")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for merged channel to close after cancellation")
	}
}
