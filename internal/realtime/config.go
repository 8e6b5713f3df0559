package realtime

import "time"

type Config struct {
	// PeerURL is the realtime API endpoint the SDP offer is posted to.
	PeerURL        string
	ICEServers     []ICEServerConfig
	ConnectTimeout time.Duration
	BufferSizes    BufferSizes
}

type ICEServerConfig struct {
	URLs       []string
	Username   string
	Credential string
}

type BufferSizes struct {
	Events int
}

const (
	defaultConnectTimeout = 20 * time.Second
	defaultEventBuffer    = 64
)

func (c Config) connectTimeout() time.Duration {
	if c.ConnectTimeout > 0 {
		return c.ConnectTimeout
	}
	return defaultConnectTimeout
}

func (c Config) eventBuffer() int {
	if c.BufferSizes.Events > 0 {
		return c.BufferSizes.Events
	}
	return defaultEventBuffer
}
