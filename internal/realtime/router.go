package realtime

import (
	"log/slog"
	"sync"
)

// CommandSender sends a raw client command back over the event channel.
type CommandSender interface {
	SendCommand(data []byte) error
}

const transcriptionModel = "whisper-1"

// Router classifies inbound data-channel messages into typed events and
// forwards them in arrival order. It also handles the transcription
// activation quirk: a session.created without input transcription gets
// answered with a session.update enabling it.
type Router struct {
	log    *slog.Logger
	events chan Event
	done   chan struct{}

	mu     sync.Mutex
	sender CommandSender
	closed bool
}

func NewRouter(bufSize int, log *slog.Logger) *Router {
	if bufSize <= 0 {
		bufSize = defaultEventBuffer
	}
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		log:    log.With("component", "event_router"),
		events: make(chan Event, bufSize),
		done:   make(chan struct{}),
	}
}

func (r *Router) SetSender(sender CommandSender) {
	r.mu.Lock()
	r.sender = sender
	r.mu.Unlock()
}

// HandleRaw processes one inbound message. Callers must invoke it from
// a single goroutine; ordering on the events channel mirrors call order.
func (r *Router) HandleRaw(data []byte) {
	event := ParseEvent(data)

	switch e := event.(type) {
	case SessionCreated:
		if !e.TranscriptionEnabled {
			r.enableTranscription()
		}
	case Unknown:
		r.log.Debug("unrecognized realtime event", "type", e.Type)
	case ProtocolError:
		r.log.Warn("realtime protocol error", "code", e.Code, "message", e.Message)
	}

	select {
	case r.events <- event:
	case <-r.done:
	}
}

func (r *Router) enableTranscription() {
	r.mu.Lock()
	sender := r.sender
	r.mu.Unlock()

	if sender == nil {
		return
	}
	if err := sender.SendCommand(SessionUpdateCommand(transcriptionModel)); err != nil {
		r.log.Error("failed to send session.update", "error", err)
	}
}

func (r *Router) Events() <-chan Event {
	return r.events
}

func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	close(r.done)
}
