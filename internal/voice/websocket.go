package voice

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/FocusLoopHQ/FocusLoop/internal/genai"
)

// Session states, reported to the client on every transition.
const (
	StateIdle      = "idle"
	StateListening = "listening"
	StateThinking  = "thinking"
	StateSpeaking  = "speaking"
)

// Inbound message types.
const (
	msgStartRecording = "start_recording"
	msgAudioChunk     = "audio_chunk"
	msgStopRecording  = "stop_recording"
	msgInterrupt      = "interrupt"
	msgSetVoice       = "set_voice"
	msgTextInput      = "text_input"
)

// Outbound message types.
const (
	msgSessionState  = "session_state"
	msgTranscript    = "transcript"
	msgAssistantText = "assistant_text"
	msgAudioData     = "audio_data"
	msgError         = "error"
)

// transcribeFilename names uploaded audio for the transcription endpoint,
// which sniffs the container format from the extension.
const transcribeFilename = "voice-input.webm"

// inboundMessage is a client-to-server frame.
type inboundMessage struct {
	Type  string `json:"type"`
	Data  string `json:"data,omitempty"`  // base64 audio for audio_chunk
	Voice string `json:"voice,omitempty"` // voice ID for set_voice
	Text  string `json:"text,omitempty"`  // typed input for text_input
}

// outboundMessage is a server-to-client frame.
type outboundMessage struct {
	Type    string `json:"type"`
	State   string `json:"state,omitempty"`
	Text    string `json:"text,omitempty"`
	Data    string `json:"data,omitempty"` // base64 synthesized audio
	Message string `json:"message,omitempty"`
}

// WSHandler upgrades HTTP requests into voice sessions. Each connection gets
// its own conversation history, audio buffer, and voice selection; nothing
// is shared across sessions or persisted.
type WSHandler struct {
	svc *Service
	gen genai.ClientInterface
}

// NewWSHandler creates a WebSocket handler backed by the voice service and
// the gateway's transcription and synthesis endpoints.
func NewWSHandler(svc *Service, gen genai.ClientInterface) *WSHandler {
	return &WSHandler{svc: svc, gen: gen}
}

// wsSession is the per-connection state. The mutex guards every field and
// serializes writes to the connection; coder/websocket allows only one
// concurrent writer.
type wsSession struct {
	conn *websocket.Conn

	mu          sync.Mutex
	state       string
	voiceID     string
	history     []Turn
	audioBuf    bytes.Buffer
	cancelSpeak context.CancelFunc
}

func (s *wsSession) writeJSON(ctx context.Context, msg outboundMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("WSHandler: failed to marshal outbound message", "type", msg.Type, "error", err)
		return
	}
	if err := s.conn.Write(ctx, websocket.MessageText, data); err != nil {
		slog.Debug("WSHandler: write failed", "type", msg.Type, "error", err)
	}
}

// setState transitions the session and notifies the client.
func (s *wsSession) setState(ctx context.Context, state string) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.writeJSON(ctx, outboundMessage{Type: msgSessionState, State: state})
}

func (s *wsSession) currentState() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ServeHTTP upgrades the request and runs the session until the client
// disconnects.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("WSHandler.ServeHTTP: failed to accept WebSocket", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "session ended")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess := &wsSession{conn: conn, state: StateIdle, voiceID: DefaultVoiceID}
	slog.Info("WSHandler.ServeHTTP: voice session connected", "remote", r.RemoteAddr)
	sess.writeJSON(ctx, outboundMessage{Type: msgSessionState, State: StateIdle})

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WSHandler.ServeHTTP: session closed by client")
			} else {
				slog.Debug("WSHandler.ServeHTTP: read error", "error", err)
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("WSHandler.ServeHTTP: malformed frame", "error", err)
			sess.writeJSON(ctx, outboundMessage{Type: msgError, Message: "Malformed message"})
			continue
		}
		h.dispatch(ctx, sess, msg)
	}
}

func (h *WSHandler) dispatch(ctx context.Context, sess *wsSession, msg inboundMessage) {
	switch msg.Type {
	case msgStartRecording:
		go h.speakOpening(ctx, sess)
	case msgAudioChunk:
		h.bufferChunk(ctx, sess, msg.Data)
	case msgStopRecording:
		go h.processRecording(ctx, sess)
	case msgTextInput:
		go h.processText(ctx, sess, msg.Text)
	case msgInterrupt:
		h.interrupt(ctx, sess)
	case msgSetVoice:
		h.setVoice(ctx, sess, msg.Voice)
	default:
		slog.Warn("WSHandler.dispatch: unknown message type", "type", msg.Type)
		sess.writeJSON(ctx, outboundMessage{Type: msgError, Message: "Unknown message type"})
	}
}

// speakOpening greets the session: a pre-written opener for fresh
// conversations, a contextual continuation for resumed ones. Ends listening
// for the user's reply.
func (h *WSHandler) speakOpening(ctx context.Context, sess *wsSession) {
	sess.setState(ctx, StateThinking)

	sess.mu.Lock()
	history := append([]Turn(nil), sess.history...)
	sess.mu.Unlock()

	opening := h.svc.Opening(ctx, history)

	sess.mu.Lock()
	sess.history = append(sess.history, Turn{Role: RoleAssistant, Content: opening})
	sess.mu.Unlock()

	sess.writeJSON(ctx, outboundMessage{Type: msgAssistantText, Text: opening})
	h.speak(ctx, sess, opening)
	h.startListening(ctx, sess)
}

// bufferChunk appends a base64 audio chunk to the session buffer.
func (h *WSHandler) bufferChunk(ctx context.Context, sess *wsSession, data string) {
	if data == "" {
		return
	}
	audio, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		slog.Warn("WSHandler.bufferChunk: invalid base64 audio", "error", err)
		sess.writeJSON(ctx, outboundMessage{Type: msgError, Message: "Invalid audio data"})
		return
	}
	sess.mu.Lock()
	sess.audioBuf.Write(audio)
	sess.mu.Unlock()
}

// processRecording runs the full turn: transcribe the buffered audio, reply,
// synthesize, and go back to listening.
func (h *WSHandler) processRecording(ctx context.Context, sess *wsSession) {
	sess.setState(ctx, StateThinking)

	sess.mu.Lock()
	audio := append([]byte(nil), sess.audioBuf.Bytes()...)
	sess.audioBuf.Reset()
	sess.mu.Unlock()

	if len(audio) == 0 {
		sess.writeJSON(ctx, outboundMessage{Type: msgError, Message: "No audio received. Please try again."})
		sess.setState(ctx, StateIdle)
		return
	}

	text, err := h.gen.Transcribe(ctx, audio, transcribeFilename)
	if err != nil {
		slog.Warn("WSHandler.processRecording: transcription failed", "error", err, "bytes", len(audio))
		sess.writeJSON(ctx, outboundMessage{Type: msgError, Message: "Could not understand audio. Please try again."})
		sess.setState(ctx, StateIdle)
		return
	}
	sess.writeJSON(ctx, outboundMessage{Type: msgTranscript, Text: text})

	h.respond(ctx, sess, text)
}

// processText answers typed input, skipping transcription.
func (h *WSHandler) processText(ctx context.Context, sess *wsSession, text string) {
	if text == "" {
		sess.writeJSON(ctx, outboundMessage{Type: msgError, Message: "Empty text input"})
		return
	}
	sess.setState(ctx, StateThinking)
	h.respond(ctx, sess, text)
}

// respond produces the assistant's reply for one turn of user input, speaks
// it, and returns the session to listening.
func (h *WSHandler) respond(ctx context.Context, sess *wsSession, userInput string) {
	sess.mu.Lock()
	history := append([]Turn(nil), sess.history...)
	sess.mu.Unlock()

	reply := h.svc.Respond(ctx, userInput, history)

	sess.mu.Lock()
	sess.history = append(sess.history, Turn{Role: RoleUser, Content: userInput}, Turn{Role: RoleAssistant, Content: reply})
	sess.mu.Unlock()

	sess.writeJSON(ctx, outboundMessage{Type: msgAssistantText, Text: reply})
	h.speak(ctx, sess, reply)
	h.startListening(ctx, sess)
}

// speak synthesizes text with the session's voice and streams it to the
// client. Synthesis failures degrade to text-only; the assistant text frame
// has already been sent.
func (h *WSHandler) speak(ctx context.Context, sess *wsSession, text string) {
	speakCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess.mu.Lock()
	sess.state = StateSpeaking
	sess.cancelSpeak = cancel
	voiceID := sess.voiceID
	sess.mu.Unlock()
	sess.writeJSON(ctx, outboundMessage{Type: msgSessionState, State: StateSpeaking})

	audio, err := h.gen.Synthesize(speakCtx, text, voiceID)

	sess.mu.Lock()
	sess.cancelSpeak = nil
	sess.mu.Unlock()

	if err != nil {
		if speakCtx.Err() != nil {
			slog.Debug("WSHandler.speak: synthesis interrupted")
			return
		}
		slog.Warn("WSHandler.speak: synthesis failed, continuing text-only", "error", err)
		return
	}
	sess.writeJSON(ctx, outboundMessage{Type: msgAudioData, Data: base64.StdEncoding.EncodeToString(audio)})
}

// startListening resets the audio buffer and reports the listening state,
// unless an interrupt already returned the session to idle.
func (h *WSHandler) startListening(ctx context.Context, sess *wsSession) {
	sess.mu.Lock()
	if sess.state == StateIdle {
		sess.mu.Unlock()
		return
	}
	sess.state = StateListening
	sess.audioBuf.Reset()
	sess.mu.Unlock()
	sess.writeJSON(ctx, outboundMessage{Type: msgSessionState, State: StateListening})
}

// interrupt cancels in-flight synthesis and returns the session to idle.
func (h *WSHandler) interrupt(ctx context.Context, sess *wsSession) {
	sess.mu.Lock()
	if sess.cancelSpeak != nil {
		sess.cancelSpeak()
		sess.cancelSpeak = nil
	}
	sess.state = StateIdle
	sess.audioBuf.Reset()
	sess.mu.Unlock()
	sess.writeJSON(ctx, outboundMessage{Type: msgSessionState, State: StateIdle})
}

// setVoice switches the session's synthesis voice after validating it
// against the catalog.
func (h *WSHandler) setVoice(ctx context.Context, sess *wsSession, voiceID string) {
	if !IsKnownVoice(voiceID) {
		slog.Warn("WSHandler.setVoice: unknown voice", "voice", voiceID)
		sess.writeJSON(ctx, outboundMessage{Type: msgError, Message: "Unknown voice: " + voiceID})
		return
	}
	sess.mu.Lock()
	sess.voiceID = voiceID
	sess.mu.Unlock()
	slog.Debug("WSHandler.setVoice: voice changed", "voice", voiceID)
}
