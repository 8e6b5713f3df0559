package realtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/eygwak/voice-quiz/internal/credential"
	"github.com/eygwak/voice-quiz/internal/shared"
	"github.com/pion/webrtc/v4"
)

type Phase string

const (
	PhaseDisconnected Phase = "disconnected"
	PhaseConnecting   Phase = "connecting"
	PhaseConnected    Phase = "connected"
	PhaseFailed       Phase = "failed"
)

// StateChange carries a phase transition; Err is set only for failed.
type StateChange struct {
	Phase Phase
	Err   error
}

var (
	ErrNotDisconnected = errors.New("connect requires a disconnected session")
	ErrConnectTimeout  = errors.New("connection negotiation timed out")
	ErrConnectAborted  = errors.New("connection attempt aborted")
)

// NegotiationError is a non-201 response from the peer endpoint during
// the SDP exchange.
type NegotiationError struct {
	Status int
	Body   string
}

func (e *NegotiationError) Error() string {
	return fmt.Sprintf("sdp exchange failed: status %d: %s", e.Status, e.Body)
}

// TokenBroker issues one ephemeral credential per connection attempt.
type TokenBroker interface {
	Request(ctx context.Context, mode shared.GameMode, word string, taboo []string) (credential.Credential, error)
}

const eventChannelLabel = "oai-events"

// Session owns one realtime connection: credential fetch, SDP
// offer/answer exchange, the event data channel and its router.
// Phases move disconnected -> connecting -> {connected | failed};
// only Disconnect resets them.
type Session struct {
	cfg        Config
	broker     TokenBroker
	httpClient *http.Client
	router     *Router
	log        *slog.Logger

	mu           sync.Mutex
	phase        Phase
	peer         *Peer
	dataChannel  *webrtc.DataChannel
	connectTimer *time.Timer
	onState      func(StateChange)
	onAudio      func([]byte)
}

func NewSession(cfg Config, broker TokenBroker, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		cfg:        cfg,
		broker:     broker,
		httpClient: &http.Client{Timeout: cfg.connectTimeout()},
		router:     NewRouter(cfg.eventBuffer(), log),
		log:        log.With("component", "realtime_session"),
		phase:      PhaseDisconnected,
	}
}

// OnStateChange registers the phase observer. Must be set before
// Connect.
func (s *Session) OnStateChange(fn func(StateChange)) {
	s.mu.Lock()
	s.onState = fn
	s.mu.Unlock()
}

// OnAudio registers the inbound audio sink. Playback is the platform's
// concern; the session only hands frames over.
func (s *Session) OnAudio(fn func([]byte)) {
	s.mu.Lock()
	s.onAudio = fn
	s.mu.Unlock()
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) Events() <-chan Event {
	return s.router.Events()
}

// Connect performs the full handshake. Any step failing moves the
// session to failed and returns the cause; the caller must Disconnect
// before retrying. Connected is reported asynchronously once the
// transport itself says so, not when the handshake returns.
func (s *Session) Connect(ctx context.Context, mode shared.GameMode, word string, taboo []string) error {
	s.mu.Lock()
	if s.phase != PhaseDisconnected {
		s.mu.Unlock()
		return ErrNotDisconnected
	}
	s.phase = PhaseConnecting
	onState := s.onState
	s.mu.Unlock()

	if onState != nil {
		onState(StateChange{Phase: PhaseConnecting})
	}

	cred, err := s.broker.Request(ctx, mode, word, taboo)
	if err != nil {
		return s.fail(fmt.Errorf("credential request: %w", err))
	}

	peer, err := NewPeer(s.cfg)
	if err != nil {
		return s.fail(fmt.Errorf("create peer: %w", err))
	}

	// The event channel has to exist before the offer is generated or
	// it is absent from the SDP and early events are lost.
	dc, err := peer.CreateEventChannel(eventChannelLabel)
	if err != nil {
		peer.Close()
		return s.fail(fmt.Errorf("create event channel: %w", err))
	}

	s.router.SetSender(dataChannelSender{dc: dc})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if msg.IsString {
			s.router.HandleRaw(msg.Data)
		}
	})

	peer.OnAudio(func(frame []byte) {
		s.mu.Lock()
		cb := s.onAudio
		s.mu.Unlock()
		if cb != nil {
			cb(frame)
		}
	})

	peer.OnConnected(func() { s.setConnected() })
	peer.OnFailed(func() {
		s.fail(errors.New("transport reported failure"))
	})

	offer, err := peer.CreateOffer()
	if err != nil {
		peer.Close()
		return s.fail(fmt.Errorf("create offer: %w", err))
	}

	answer, err := s.exchangeSDP(ctx, cred, offer)
	if err != nil {
		peer.Close()
		return s.fail(err)
	}

	if err := peer.SetAnswer(answer); err != nil {
		peer.Close()
		return s.fail(fmt.Errorf("apply answer: %w", err))
	}

	s.mu.Lock()
	// Disconnect may have run while the exchange was in flight; the
	// transport must not outlive it.
	if s.phase != PhaseConnecting {
		s.mu.Unlock()
		dc.Close()
		peer.Close()
		return ErrConnectAborted
	}
	s.peer = peer
	s.dataChannel = dc
	s.connectTimer = time.AfterFunc(s.cfg.connectTimeout(), func() {
		s.failIfStillConnecting()
	})
	s.mu.Unlock()

	s.log.Info("handshake complete, waiting for transport", "mode", mode)
	return nil
}

// exchangeSDP posts the local offer to the peer endpoint and returns
// the remote answer. The endpoint answers 201 with the SDP as plain
// text; anything else is a hard failure.
func (s *Session) exchangeSDP(ctx context.Context, cred credential.Credential, offer string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.PeerURL, strings.NewReader(offer))
	if err != nil {
		return "", fmt.Errorf("build sdp request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.Value)
	req.Header.Set("Content-Type", "application/sdp")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sdp exchange: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read answer: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		return "", &NegotiationError{Status: resp.StatusCode, Body: string(body)}
	}

	return string(body), nil
}

func (s *Session) setConnected() {
	s.mu.Lock()
	if s.phase != PhaseConnecting {
		s.mu.Unlock()
		return
	}
	s.phase = PhaseConnected
	if s.connectTimer != nil {
		s.connectTimer.Stop()
		s.connectTimer = nil
	}
	onState := s.onState
	s.mu.Unlock()

	s.log.Info("transport connected")
	if onState != nil {
		onState(StateChange{Phase: PhaseConnected})
	}
}

func (s *Session) failIfStillConnecting() {
	s.mu.Lock()
	stillConnecting := s.phase == PhaseConnecting
	s.mu.Unlock()
	if stillConnecting {
		s.fail(ErrConnectTimeout)
	}
}

func (s *Session) fail(cause error) error {
	s.mu.Lock()
	if s.phase == PhaseFailed || s.phase == PhaseDisconnected {
		s.mu.Unlock()
		return cause
	}
	s.phase = PhaseFailed
	if s.connectTimer != nil {
		s.connectTimer.Stop()
		s.connectTimer = nil
	}
	peer := s.peer
	s.peer = nil
	s.dataChannel = nil
	onState := s.onState
	s.mu.Unlock()

	if peer != nil {
		peer.Close()
	}

	s.log.Warn("realtime session failed", "error", cause)
	if onState != nil {
		onState(StateChange{Phase: PhaseFailed, Err: cause})
	}
	return cause
}

// SendCommand sends a raw client command over the event channel.
func (s *Session) SendCommand(data []byte) error {
	s.mu.Lock()
	dc := s.dataChannel
	s.mu.Unlock()

	if dc == nil {
		return errors.New("event channel not open")
	}
	return dc.SendText(string(data))
}

// CancelResponse interrupts any in-flight model response.
func (s *Session) CancelResponse() error {
	return s.SendCommand(ResponseCancelCommand())
}

// WriteOpus forwards one microphone frame to the peer.
func (s *Session) WriteOpus(frame []byte, samples int) error {
	s.mu.Lock()
	peer := s.peer
	s.mu.Unlock()

	if peer == nil {
		return errors.New("not connected")
	}
	return peer.WriteOpus(frame, samples)
}

// Disconnect tears the connection down and resets to disconnected.
// Safe to call from any state, any number of times.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.connectTimer != nil {
		s.connectTimer.Stop()
		s.connectTimer = nil
	}
	peer := s.peer
	dc := s.dataChannel
	s.peer = nil
	s.dataChannel = nil
	alreadyDown := s.phase == PhaseDisconnected
	s.phase = PhaseDisconnected
	onState := s.onState
	s.mu.Unlock()

	if dc != nil {
		dc.Close()
	}
	if peer != nil {
		peer.Close()
	}

	if !alreadyDown {
		s.log.Info("disconnected")
		if onState != nil {
			onState(StateChange{Phase: PhaseDisconnected})
		}
	}
}

type dataChannelSender struct {
	dc *webrtc.DataChannel
}

func (s dataChannelSender) SendCommand(data []byte) error {
	return s.dc.SendText(string(data))
}
