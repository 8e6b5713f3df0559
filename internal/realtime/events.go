package realtime

import "encoding/json"

// Server event type discriminators, as they appear on the wire.
const (
	typeSessionCreated          = "session.created"
	typeSpeechStarted           = "input_audio_buffer.speech_started"
	typeSpeechStopped           = "input_audio_buffer.speech_stopped"
	typeUserTranscriptCompleted = "conversation.item.input_audio_transcription.completed"
	typeAITranscriptDelta       = "response.audio_transcript.delta"
	typeAITranscriptDone        = "response.audio_transcript.done"
	typeError                   = "error"
)

// Event is the closed set of inbound realtime events. Anything the
// router does not recognize arrives as Unknown.
type Event interface {
	EventType() string
}

type SessionCreated struct {
	SessionID            string
	TranscriptionEnabled bool
}

type SpeechStarted struct {
	AudioStartMs int
	ItemID       string
}

type SpeechStopped struct {
	AudioEndMs int
	ItemID     string
}

type UserTranscriptCompleted struct {
	ItemID     string
	Transcript string
}

type AITranscriptDelta struct {
	Delta string
}

type AITranscriptDone struct {
	Transcript string
}

type ProtocolError struct {
	Code    string
	Message string
}

type Unknown struct {
	Type string
	Raw  json.RawMessage
}

func (SessionCreated) EventType() string          { return typeSessionCreated }
func (SpeechStarted) EventType() string           { return typeSpeechStarted }
func (SpeechStopped) EventType() string           { return typeSpeechStopped }
func (UserTranscriptCompleted) EventType() string { return typeUserTranscriptCompleted }
func (AITranscriptDelta) EventType() string       { return typeAITranscriptDelta }
func (AITranscriptDone) EventType() string        { return typeAITranscriptDone }
func (ProtocolError) EventType() string           { return typeError }
func (u Unknown) EventType() string               { return u.Type }

type envelope struct {
	Type    string `json:"type"`
	EventID string `json:"event_id,omitempty"`
}

type sessionCreatedPayload struct {
	Session struct {
		ID                      string `json:"id"`
		InputAudioTranscription *struct {
			Model string `json:"model"`
		} `json:"input_audio_transcription"`
	} `json:"session"`
}

type speechStartedPayload struct {
	AudioStartMs int    `json:"audio_start_ms"`
	ItemID       string `json:"item_id"`
}

type speechStoppedPayload struct {
	AudioEndMs int    `json:"audio_end_ms"`
	ItemID     string `json:"item_id"`
}

type userTranscriptPayload struct {
	ItemID     string `json:"item_id"`
	Transcript string `json:"transcript"`
}

type transcriptDeltaPayload struct {
	Delta string `json:"delta"`
}

type transcriptDonePayload struct {
	Transcript string `json:"transcript"`
}

type errorPayload struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseEvent decodes one inbound message. Unrecognized types and
// payloads that fail their specific decode degrade to Unknown; this
// never fails.
func ParseEvent(data []byte) Event {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Unknown{Raw: append(json.RawMessage(nil), data...)}
	}

	switch env.Type {
	case typeSessionCreated:
		var p sessionCreatedPayload
		if err := json.Unmarshal(data, &p); err == nil {
			return SessionCreated{
				SessionID:            p.Session.ID,
				TranscriptionEnabled: p.Session.InputAudioTranscription != nil && p.Session.InputAudioTranscription.Model != "",
			}
		}
	case typeSpeechStarted:
		var p speechStartedPayload
		if err := json.Unmarshal(data, &p); err == nil {
			return SpeechStarted{AudioStartMs: p.AudioStartMs, ItemID: p.ItemID}
		}
	case typeSpeechStopped:
		var p speechStoppedPayload
		if err := json.Unmarshal(data, &p); err == nil {
			return SpeechStopped{AudioEndMs: p.AudioEndMs, ItemID: p.ItemID}
		}
	case typeUserTranscriptCompleted:
		var p userTranscriptPayload
		if err := json.Unmarshal(data, &p); err == nil {
			return UserTranscriptCompleted{ItemID: p.ItemID, Transcript: p.Transcript}
		}
	case typeAITranscriptDelta:
		var p transcriptDeltaPayload
		if err := json.Unmarshal(data, &p); err == nil {
			return AITranscriptDelta{Delta: p.Delta}
		}
	case typeAITranscriptDone:
		var p transcriptDonePayload
		if err := json.Unmarshal(data, &p); err == nil {
			return AITranscriptDone{Transcript: p.Transcript}
		}
	case typeError:
		var p errorPayload
		if err := json.Unmarshal(data, &p); err == nil {
			return ProtocolError{Code: p.Error.Code, Message: p.Error.Message}
		}
	}

	return Unknown{Type: env.Type, Raw: append(json.RawMessage(nil), data...)}
}

// Client commands sent back over the data channel.

type sessionUpdateCommand struct {
	Type    string `json:"type"`
	Session struct {
		Type  string `json:"type"`
		Audio struct {
			Input struct {
				Transcription struct {
					Model string `json:"model"`
				} `json:"transcription"`
			} `json:"input"`
		} `json:"audio"`
	} `json:"session"`
}

// SessionUpdateCommand enables inbound transcription on the session.
// The upstream protocol does not turn it on by itself even when asked
// at token minting time; the two-step activation is required.
func SessionUpdateCommand(transcriptionModel string) []byte {
	var cmd sessionUpdateCommand
	cmd.Type = "session.update"
	cmd.Session.Type = "realtime"
	cmd.Session.Audio.Input.Transcription.Model = transcriptionModel
	data, _ := json.Marshal(cmd)
	return data
}

// ResponseCancelCommand interrupts an in-flight model response.
func ResponseCancelCommand() []byte {
	return []byte(`{"type":"response.cancel"}`)
}
