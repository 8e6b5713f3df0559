package realtime

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeSender struct {
	mu   sync.Mutex
	sent [][]byte
}

func (f *fakeSender) SendCommand(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, append([]byte(nil), data...))
	return nil
}

func (f *fakeSender) commands() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent
}

func TestRouterPreservesOrder(t *testing.T) {
	router := NewRouter(16, nil)
	defer router.Close()

	for i := 0; i < 5; i++ {
		router.HandleRaw([]byte(fmt.Sprintf(`{"type":"response.audio_transcript.delta","delta":"part %d"}`, i)))
	}

	for i := 0; i < 5; i++ {
		event := <-router.Events()
		delta, ok := event.(AITranscriptDelta)
		if !ok {
			t.Fatalf("event %d: expected AITranscriptDelta, got %T", i, event)
		}
		want := fmt.Sprintf("part %d", i)
		if delta.Delta != want {
			t.Errorf("event %d: expected %q, got %q", i, want, delta.Delta)
		}
	}
}

func TestRouterEnablesTranscriptionWhenMissing(t *testing.T) {
	router := NewRouter(16, nil)
	defer router.Close()

	sender := &fakeSender{}
	router.SetSender(sender)

	router.HandleRaw([]byte(`{"type":"session.created","session":{"id":"sess_1","input_audio_transcription":null}}`))
	<-router.Events()

	commands := sender.commands()
	if len(commands) != 1 {
		t.Fatalf("expected 1 command sent, got %d", len(commands))
	}
	if string(commands[0]) != string(SessionUpdateCommand(transcriptionModel)) {
		t.Errorf("unexpected command: %s", commands[0])
	}
}

func TestRouterSkipsUpdateWhenTranscriptionActive(t *testing.T) {
	router := NewRouter(16, nil)
	defer router.Close()

	sender := &fakeSender{}
	router.SetSender(sender)

	router.HandleRaw([]byte(`{"type":"session.created","session":{"id":"sess_1","input_audio_transcription":{"model":"whisper-1"}}}`))
	<-router.Events()

	if len(sender.commands()) != 0 {
		t.Errorf("expected no session.update when transcription already enabled")
	}
}

func TestRouterForwardsUnknownEvents(t *testing.T) {
	router := NewRouter(16, nil)
	defer router.Close()

	router.HandleRaw([]byte(`{"type":"some.future.event","event_id":"x"}`))
	router.HandleRaw([]byte(`{"type":"response.audio_transcript.done","transcript":"after"}`))

	first := <-router.Events()
	unknown, ok := first.(Unknown)
	if !ok {
		t.Fatalf("expected Unknown, got %T", first)
	}
	if unknown.Type != "some.future.event" {
		t.Errorf("unexpected type %q", unknown.Type)
	}

	second := <-router.Events()
	if _, ok := second.(AITranscriptDone); !ok {
		t.Fatalf("expected routing to continue past unknown event, got %T", second)
	}
}

func TestRouterCloseUnblocksHandleRaw(t *testing.T) {
	router := NewRouter(1, nil)
	router.HandleRaw([]byte(`{"type":"response.audio_transcript.delta","delta":"fill"}`))

	done := make(chan struct{})
	go func() {
		// Buffer is full and nothing is draining; only Close frees this.
		router.HandleRaw([]byte(`{"type":"response.audio_transcript.delta","delta":"blocked"}`))
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	router.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("HandleRaw did not unblock after Close")
	}
}
