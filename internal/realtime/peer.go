package realtime

import (
	"crypto/rand"
	"encoding/binary"
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

// Peer wraps the offer side of a realtime peer connection: one outbound
// microphone track, one inbound audio track, and the event data channel.
type Peer struct {
	pc         *webrtc.PeerConnection
	audioTrack *webrtc.TrackLocalStaticRTP

	mu          sync.RWMutex
	seq         uint16
	timestamp   uint32
	ssrc        uint32
	onAudio     func([]byte)
	onConnected func()
	onFailed    func()
}

func NewPeer(cfg Config) (*Peer, error) {
	me := &webrtc.MediaEngine{}
	if err := me.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}

	api := webrtc.NewAPI(webrtc.WithMediaEngine(me))

	pc, err := api.NewPeerConnection(webrtc.Configuration{
		ICEServers: iceServers(cfg),
	})
	if err != nil {
		return nil, err
	}

	var ssrcBytes [4]byte
	if _, err := rand.Read(ssrcBytes[:]); err != nil {
		pc.Close()
		return nil, err
	}

	track, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio",
		"voicequiz-mic",
	)
	if err != nil {
		pc.Close()
		return nil, err
	}

	if _, err := pc.AddTrack(track); err != nil {
		pc.Close()
		return nil, err
	}

	p := &Peer{
		pc:         pc,
		audioTrack: track,
		ssrc:       binary.BigEndian.Uint32(ssrcBytes[:]),
	}

	pc.OnTrack(func(remoteTrack *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if remoteTrack.Kind() == webrtc.RTPCodecTypeAudio {
			go p.readIncomingAudio(remoteTrack)
		}
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		p.mu.RLock()
		onConnected := p.onConnected
		onFailed := p.onFailed
		p.mu.RUnlock()

		switch state {
		case webrtc.PeerConnectionStateConnected:
			if onConnected != nil {
				onConnected()
			}
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateDisconnected:
			if onFailed != nil {
				onFailed()
			}
		}
	})

	return p, nil
}

func iceServers(cfg Config) []webrtc.ICEServer {
	servers := make([]webrtc.ICEServer, 0, len(cfg.ICEServers))
	for _, s := range cfg.ICEServers {
		server := webrtc.ICEServer{URLs: s.URLs}
		if s.Username != "" {
			server.Username = s.Username
			server.Credential = s.Credential
			server.CredentialType = webrtc.ICECredentialTypePassword
		}
		servers = append(servers, server)
	}
	return servers
}

func (p *Peer) readIncomingAudio(track *webrtc.TrackRemote) {
	buf := make([]byte, 1500)
	for {
		n, _, err := track.Read(buf)
		if err != nil {
			return
		}

		p.mu.RLock()
		cb := p.onAudio
		p.mu.RUnlock()

		if cb != nil {
			pkt := &rtp.Packet{}
			if err := pkt.Unmarshal(buf[:n]); err == nil {
				cb(pkt.Payload)
			}
		}
	}
}

// CreateEventChannel opens the ordered event channel. It must be called
// before CreateOffer so the channel is negotiated in the SDP.
func (p *Peer) CreateEventChannel(label string) (*webrtc.DataChannel, error) {
	ordered := true
	return p.pc.CreateDataChannel(label, &webrtc.DataChannelInit{Ordered: &ordered})
}

// CreateOffer generates the local offer and waits for ICE gathering to
// finish, so the returned SDP is complete for a single-shot exchange.
func (p *Peer) CreateOffer() (string, error) {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return "", err
	}

	gathered := webrtc.GatheringCompletePromise(p.pc)
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return "", err
	}
	<-gathered

	return p.pc.LocalDescription().SDP, nil
}

func (p *Peer) SetAnswer(sdp string) error {
	return p.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  sdp,
	})
}

// WriteOpus sends one encoded microphone frame on the outbound track.
func (p *Peer) WriteOpus(opusData []byte, samples int) error {
	p.mu.Lock()
	seq := p.seq
	ts := p.timestamp
	p.seq++
	p.timestamp += uint32(samples)
	ssrc := p.ssrc
	p.mu.Unlock()

	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    111,
			SequenceNumber: seq,
			Timestamp:      ts,
			SSRC:           ssrc,
		},
		Payload: opusData,
	}

	data, err := pkt.Marshal()
	if err != nil {
		return err
	}

	_, err = p.audioTrack.Write(data)
	return err
}

func (p *Peer) OnAudio(fn func([]byte)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onAudio = fn
}

func (p *Peer) OnConnected(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onConnected = fn
}

func (p *Peer) OnFailed(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onFailed = fn
}

func (p *Peer) Close() error {
	return p.pc.Close()
}
