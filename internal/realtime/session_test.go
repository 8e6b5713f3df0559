package realtime

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/eygwak/voice-quiz/internal/credential"
	"github.com/eygwak/voice-quiz/internal/shared"
	"github.com/pion/webrtc/v4"
)

type fakeBroker struct {
	mu       sync.Mutex
	cred     credential.Credential
	err      error
	requests []shared.GameMode
}

func (f *fakeBroker) Request(_ context.Context, mode shared.GameMode, _ string, _ []string) (credential.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, mode)
	return f.cred, f.err
}

// answeringPeer terminates the offer in-process so the full handshake
// and transport bring-up run over loopback.
type answeringPeer struct {
	pc     *webrtc.PeerConnection
	opened chan *webrtc.DataChannel
}

func newAnsweringPeer(t *testing.T) *answeringPeer {
	t.Helper()
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		t.Fatalf("failed to create answering peer: %v", err)
	}

	a := &answeringPeer{pc: pc, opened: make(chan *webrtc.DataChannel, 1)}
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		dc.OnOpen(func() {
			a.opened <- dc
		})
	})
	return a
}

func (a *answeringPeer) answer(t *testing.T, offerSDP string) string {
	t.Helper()
	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: offerSDP}
	if err := a.pc.SetRemoteDescription(offer); err != nil {
		t.Fatalf("failed to apply offer: %v", err)
	}
	answer, err := a.pc.CreateAnswer(nil)
	if err != nil {
		t.Fatalf("failed to create answer: %v", err)
	}
	gathered := webrtc.GatheringCompletePromise(a.pc)
	if err := a.pc.SetLocalDescription(answer); err != nil {
		t.Fatalf("failed to set local description: %v", err)
	}
	<-gathered
	return a.pc.LocalDescription().SDP
}

func (a *answeringPeer) close() {
	a.pc.Close()
}

func TestSessionConnectHandshake(t *testing.T) {
	answerer := newAnsweringPeer(t)
	defer answerer.close()

	var gotAuth, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		offer, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(answerer.answer(t, string(offer))))
	}))
	defer server.Close()

	broker := &fakeBroker{cred: credential.Credential{Value: "tok_abc"}}
	session := NewSession(Config{PeerURL: server.URL}, broker, nil)
	defer session.Disconnect()

	connected := make(chan struct{})
	session.OnStateChange(func(change StateChange) {
		if change.Phase == PhaseConnected {
			close(connected)
		}
	})

	if err := session.Connect(context.Background(), shared.ModeDescribe, "apple", []string{"fruit"}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if gotAuth != "Bearer tok_abc" {
		t.Errorf("expected Authorization Bearer tok_abc, got %q", gotAuth)
	}
	if gotContentType != "application/sdp" {
		t.Errorf("expected Content-Type application/sdp, got %q", gotContentType)
	}
	if len(broker.requests) != 1 || broker.requests[0] != shared.ModeDescribe {
		t.Errorf("expected one credential request for modeA, got %v", broker.requests)
	}

	select {
	case <-connected:
	case <-time.After(10 * time.Second):
		t.Fatal("session never reported connected")
	}
	if session.Phase() != PhaseConnected {
		t.Errorf("expected phase connected, got %s", session.Phase())
	}

	// The remote side of the event channel should now be open; a
	// message it sends must surface as a typed event.
	var remote *webrtc.DataChannel
	select {
	case remote = <-answerer.opened:
	case <-time.After(10 * time.Second):
		t.Fatal("event channel never opened on the answering side")
	}
	if remote.Label() != "oai-events" {
		t.Errorf("expected channel label oai-events, got %q", remote.Label())
	}

	if err := remote.SendText(`{"type":"session.created","session":{"id":"sess_t","input_audio_transcription":{"model":"whisper-1"}}}`); err != nil {
		t.Fatalf("failed to send event: %v", err)
	}

	select {
	case event := <-session.Events():
		created, ok := event.(SessionCreated)
		if !ok {
			t.Fatalf("expected SessionCreated, got %T", event)
		}
		if created.SessionID != "sess_t" {
			t.Errorf("unexpected session id %q", created.SessionID)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("event never arrived through the session")
	}
}

func TestSessionConnectRejectsNon201(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("invalid token"))
	}))
	defer server.Close()

	broker := &fakeBroker{cred: credential.Credential{Value: "tok_bad"}}
	session := NewSession(Config{PeerURL: server.URL}, broker, nil)
	defer session.Disconnect()

	err := session.Connect(context.Background(), shared.ModeGuess, "apple", nil)
	if err == nil {
		t.Fatal("expected error for non-201 response")
	}
	var negotiation *NegotiationError
	if !errors.As(err, &negotiation) {
		t.Fatalf("expected NegotiationError, got %T: %v", err, err)
	}
	if negotiation.Status != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", negotiation.Status)
	}
	if session.Phase() != PhaseFailed {
		t.Errorf("expected phase failed, got %s", session.Phase())
	}
}

func TestSessionConnectBrokerFailure(t *testing.T) {
	brokerErr := errors.New("relay unavailable")
	broker := &fakeBroker{err: brokerErr}
	session := NewSession(Config{PeerURL: "http://127.0.0.1:0"}, broker, nil)
	defer session.Disconnect()

	var failed StateChange
	done := make(chan struct{})
	session.OnStateChange(func(change StateChange) {
		if change.Phase == PhaseFailed {
			failed = change
			close(done)
		}
	})

	err := session.Connect(context.Background(), shared.ModeDescribe, "apple", nil)
	if !errors.Is(err, brokerErr) {
		t.Fatalf("expected broker error, got %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("failed state never reported")
	}
	if failed.Err == nil {
		t.Error("expected failure cause on state change")
	}
}

func TestSessionConnectAbortedByDisconnect(t *testing.T) {
	answerer := newAnsweringPeer(t)
	defer answerer.close()

	offered := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offer, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		answer := answerer.answer(t, string(offer))
		close(offered)
		<-release
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(answer))
	}))
	defer server.Close()

	broker := &fakeBroker{cred: credential.Credential{Value: "tok"}}
	session := NewSession(Config{PeerURL: server.URL}, broker, nil)

	var mu sync.Mutex
	var phases []Phase
	session.OnStateChange(func(change StateChange) {
		mu.Lock()
		phases = append(phases, change.Phase)
		mu.Unlock()
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- session.Connect(context.Background(), shared.ModeDescribe, "apple", nil)
	}()

	// Tear down while the endpoint is still holding the answer back,
	// then let the exchange finish.
	select {
	case <-offered:
	case <-time.After(10 * time.Second):
		t.Fatal("offer never reached the endpoint")
	}
	session.Disconnect()
	close(release)

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrConnectAborted) {
			t.Fatalf("expected ErrConnectAborted, got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Connect never returned")
	}

	if session.Phase() != PhaseDisconnected {
		t.Errorf("expected phase disconnected, got %s", session.Phase())
	}
	if err := session.WriteOpus([]byte{0x01}, 960); err == nil {
		t.Error("expected audio writes to fail after teardown")
	}

	time.Sleep(200 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	for _, phase := range phases {
		if phase == PhaseConnected {
			t.Error("session reported connected after teardown")
		}
	}
}

func TestSessionConnectRequiresDisconnected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	broker := &fakeBroker{cred: credential.Credential{Value: "tok"}}
	session := NewSession(Config{PeerURL: server.URL}, broker, nil)
	defer session.Disconnect()

	// First attempt fails and leaves the session in failed.
	if err := session.Connect(context.Background(), shared.ModeDescribe, "apple", nil); err == nil {
		t.Fatal("expected first connect to fail")
	}

	err := session.Connect(context.Background(), shared.ModeDescribe, "apple", nil)
	if !errors.Is(err, ErrNotDisconnected) {
		t.Fatalf("expected ErrNotDisconnected, got %v", err)
	}

	// Disconnect resets and permits another attempt.
	session.Disconnect()
	if session.Phase() != PhaseDisconnected {
		t.Errorf("expected phase disconnected after reset, got %s", session.Phase())
	}
}

func TestSessionDisconnectIdempotent(t *testing.T) {
	broker := &fakeBroker{cred: credential.Credential{Value: "tok"}}
	session := NewSession(Config{PeerURL: "http://127.0.0.1:0"}, broker, nil)

	session.Disconnect()
	session.Disconnect()

	if session.Phase() != PhaseDisconnected {
		t.Errorf("expected disconnected, got %s", session.Phase())
	}
}

func TestSessionSendCommandWithoutChannel(t *testing.T) {
	broker := &fakeBroker{}
	session := NewSession(Config{}, broker, nil)

	if err := session.SendCommand([]byte(`{"type":"response.cancel"}`)); err == nil {
		t.Error("expected error sending without an open channel")
	}
	if err := session.WriteOpus([]byte{0x01}, 960); err == nil {
		t.Error("expected error writing audio while disconnected")
	}
}
