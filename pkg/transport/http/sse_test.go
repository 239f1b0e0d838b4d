package http

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rhuss/vermittler/pkg/api"
)

func TestSSEWriter_EventFraming(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newSSEEventWriter(rec)

	events := []api.StreamEvent{
		{Type: api.EventMessageStart},
		{Type: api.EventMessageDelta, Delta: "hi"},
		{Type: api.EventMessageEnd},
		api.DoneEvent(false, []api.Message{api.AssistantMessage("hi")}),
	}
	for _, ev := range events {
		if err := w.WriteEvent(context.Background(), ev); err != nil {
			t.Fatalf("WriteEvent failed: %v", err)
		}
	}

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	body := rec.Body.String()
	lines := strings.Split(strings.TrimSuffix(body, "\n\n"), "\n\n")
	if len(lines) != 5 {
		t.Fatalf("got %d frames: %q", len(lines), body)
	}
	for _, line := range lines {
		if !strings.HasPrefix(line, "data: ") {
			t.Errorf("frame %q lacks data prefix", line)
		}
	}
	if lines[4] != "data: [DONE]" {
		t.Errorf("last frame = %q", lines[4])
	}

	// Writer refuses further events after the terminal.
	if err := w.WriteEvent(context.Background(), api.StreamEvent{Type: api.EventMessageDelta}); err == nil {
		t.Error("expected error after terminal event")
	}
}

func TestSSEWriter_StripsUsage(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newSSEEventWriter(rec)

	ev := api.DoneEvent(false, nil)
	ev.Usage = &api.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}
	if err := w.WriteEvent(context.Background(), ev); err != nil {
		t.Fatalf("WriteEvent failed: %v", err)
	}

	if strings.Contains(rec.Body.String(), "usage") {
		t.Errorf("usage leaked to the wire: %q", rec.Body.String())
	}
}

func TestSSEWriter_ResultExclusivity(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newSSEEventWriter(rec)

	if err := w.WriteEvent(context.Background(), api.StreamEvent{Type: api.EventMessageStart}); err != nil {
		t.Fatalf("WriteEvent failed: %v", err)
	}
	if err := w.WriteResult(context.Background(), &api.Result{}); err == nil {
		t.Error("expected error writing result after streaming started")
	}
}

func TestSSEWriter_Result(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newSSEEventWriter(rec)

	res := &api.Result{Text: "hello", RequiresAction: false}
	if err := w.WriteResult(context.Background(), res); err != nil {
		t.Fatalf("WriteResult failed: %v", err)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), `"text":"hello"`) {
		t.Errorf("body = %q", rec.Body.String())
	}

	if err := w.WriteEvent(context.Background(), api.StreamEvent{Type: api.EventMessageStart}); err == nil {
		t.Error("expected error writing event after result")
	}
}
