// Package live relays a browser microphone to a Gemini live audio session
// and streams the spoken reply back with playback times attached.
package live

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"alalim-backend/internal/audio"
	"alalim-backend/internal/models"
	"alalim-backend/internal/services"
	ws "alalim-backend/internal/websocket"
)

// Status labels sent to the client.
const (
	StatusDisconnected = "disconnected"
	StatusConnecting   = "connecting"
	StatusConnected    = "connected"
	StatusError        = "error"
)

// Input encodings a client may stream.
const (
	InputS16 = "s16"
	InputF32 = "f32"
)

const (
	pongWait    = 60 * time.Second
	pingPeriod  = 54 * time.Second
	writeWait   = 10 * time.Second
	connectWait = 20 * time.Second

	maxFrameBytes = 1 << 20
)

type Connector interface {
	ConnectLive(ctx context.Context, lang models.Language) (services.LiveSession, error)
}

type languageSource interface {
	GetLanguage(ctx context.Context, userID uuid.UUID) (models.Language, error)
}

// Relay serves GET /api/v1/live.
type Relay struct {
	connector Connector
	tokens    ws.TokenParser
	langs     languageSource
}

func NewRelay(connector Connector, tokens ws.TokenParser, langs languageSource) *Relay {
	return &Relay{connector: connector, tokens: tokens, langs: langs}
}

type statusFrame struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type audioFrame struct {
	Type     string  `json:"type"`
	Seq      int     `json:"seq"`
	Data     string  `json:"data"`
	MIMEType string  `json:"mime_type"`
	StartAt  float64 `json:"start_at"`
	Duration float64 `json:"duration"`
}

type eventFrame struct {
	Type    string `json:"type"`
	Stopped int    `json:"stopped,omitempty"`
}

type clientFrame struct {
	Type string `json:"type"`
}

// conn serializes writes from the upstream pump and the client loop.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(v)
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (c *conn) status(status, message string) {
	if err := c.writeJSON(statusFrame{Type: "status", Status: status, Message: message}); err != nil {
		log.Printf("[live] failed to send %s status: %v", status, err)
	}
}

func (r *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	userID, ok := ws.Authenticate(r.tokens, req)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	input := req.URL.Query().Get("input")
	if input == "" {
		input = InputS16
	}
	if input != InputS16 && input != InputF32 {
		http.Error(w, "input must be s16 or f32", http.StatusBadRequest)
		return
	}

	wsConn, err := ws.Upgrader.Upgrade(w, req, nil)
	if err != nil {
		log.Printf("[live] upgrade failed: %v", err)
		return
	}
	defer wsConn.Close()
	wsConn.SetReadLimit(maxFrameBytes)

	log.Printf("[live] new connection for user %s (input %s)", userID, input)
	r.run(req.Context(), &conn{ws: wsConn}, userID, input)
}

func (r *Relay) run(parent context.Context, c *conn, userID uuid.UUID, input string) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	c.status(StatusConnecting, "")

	lang, err := r.langs.GetLanguage(ctx, userID)
	if err != nil {
		log.Printf("[live] language lookup for %s failed: %v", userID, err)
		lang = models.DefaultLanguage
	}

	connectCtx, connectCancel := context.WithTimeout(ctx, connectWait)
	session, err := r.connector.ConnectLive(connectCtx, lang)
	connectCancel()
	if err != nil {
		log.Printf("[live] connect failed for user %s: %v", userID, err)
		c.status(StatusError, "Could not start the live session")
		return
	}

	var closeOnce sync.Once
	closeSession := func() {
		closeOnce.Do(func() {
			if err := session.Close(); err != nil {
				log.Printf("[live] session close: %v", err)
			}
		})
	}
	defer closeSession()

	c.status(StatusConnected, "")

	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	go pingLoop(ctx, c)

	upstreamErr := make(chan error, 1)
	go func() {
		upstreamErr <- pump(ctx, c, session, audio.NewScheduler(), time.Now())
	}()

	clientDone := make(chan error, 1)
	go func() {
		clientDone <- forward(c, session, input)
	}()

	select {
	case err := <-upstreamErr:
		if err != nil && ctx.Err() == nil {
			log.Printf("[live] upstream error for user %s: %v", userID, err)
			c.status(StatusError, "The live session was interrupted")
			return
		}
	case err := <-clientDone:
		if err != nil {
			log.Printf("[live] client loop ended for user %s: %v", userID, err)
		}
	case <-ctx.Done():
	}

	cancel()
	closeSession()
	c.status(StatusDisconnected, "")
	log.Printf("[live] session closed for user %s", userID)
}

// forward reads microphone frames from the client until it stops or goes
// away. A nil return means the client asked to stop.
func forward(c *conn, session services.LiveSession, input string) error {
	mimeType := audio.PCMMimeType(audio.InputSampleRate)
	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				return err
			}
			return nil
		}
		c.ws.SetReadDeadline(time.Now().Add(pongWait))

		switch msgType {
		case websocket.BinaryMessage:
			pcm, err := toPCM16(data, input)
			if err != nil {
				log.Printf("[live] dropping malformed frame: %v", err)
				continue
			}
			if len(pcm) == 0 {
				continue
			}
			if err := session.SendAudio(pcm, mimeType); err != nil {
				return fmt.Errorf("send audio: %w", err)
			}
		case websocket.TextMessage:
			var frame clientFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				continue
			}
			if frame.Type == "stop" {
				return nil
			}
		}
	}
}

// toPCM16 converts a client frame to 16-bit little-endian PCM.
func toPCM16(data []byte, input string) ([]byte, error) {
	if input == InputF32 {
		samples, err := audio.DecodeFloat32LE(data)
		if err != nil {
			return nil, err
		}
		return audio.Float32ToPCM16(samples), nil
	}
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("odd-length 16-bit frame (%d bytes)", len(data))
	}
	return data, nil
}

// pump forwards upstream events to the client. Each audio chunk is placed on
// the playback clock by the scheduler; an interruption clears it.
func pump(ctx context.Context, c *conn, session services.LiveSession, sched *audio.Scheduler, started time.Time) error {
	for {
		ev, err := session.Receive()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if ev.Interrupted {
			stopped := sched.InterruptAt(time.Since(started))
			if err := c.writeJSON(eventFrame{Type: "interrupted", Stopped: len(stopped)}); err != nil {
				return nil
			}
		}

		if len(ev.Audio) > 0 {
			rate, ok := audio.ParseRate(ev.MIMEType)
			if !ok {
				rate = audio.OutputSampleRate
			}
			now := time.Since(started)
			sched.Reap(now)
			slot := sched.Schedule(now, audio.Duration(len(ev.Audio), rate, 1))

			frame := audioFrame{
				Type:     "audio",
				Seq:      slot.Seq,
				Data:     audio.EncodeBase64(ev.Audio),
				MIMEType: audio.PCMMimeType(rate),
				StartAt:  slot.Start.Seconds(),
				Duration: slot.Duration.Seconds(),
			}
			if err := c.writeJSON(frame); err != nil {
				return nil
			}
		}

		if ev.TurnComplete {
			if err := c.writeJSON(eventFrame{Type: "turn_complete"}); err != nil {
				return nil
			}
		}
	}
}

func pingLoop(ctx context.Context, c *conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}
