package assembly

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// IAssembly opens realtime transcription sessions against AssemblyAI.
type IAssembly interface {
	OpenSession(sampleRate int) (Session, error)
}

// Session is one realtime transcription stream. SendAudio pushes fixed-size
// PCM frames; Transcripts delivers finalized transcript texts and is closed
// when the backend terminates the session or the connection drops.
type Session interface {
	SendAudio(frame []byte) error
	Transcripts() <-chan string
	Terminate() error
	Close() error
}

type assemblyClient struct {
	apiKey  string
	baseURL string
	log     *logrus.Logger
}

func New(log *logrus.Logger) IAssembly {
	baseURL := os.Getenv("ASSEMBLYAI_WS_URL")
	if baseURL == "" {
		baseURL = "wss://api.assemblyai.com/v2/realtime/ws"
	}

	return &assemblyClient{
		apiKey:  os.Getenv("ASSEMBLYAI_API_KEY"),
		baseURL: baseURL,
		log:     log,
	}
}

func (a *assemblyClient) OpenSession(sampleRate int) (Session, error) {
	url := fmt.Sprintf("%s?sample_rate=%d", a.baseURL, sampleRate)

	dialer := &websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	header := http.Header{}
	header.Set("Authorization", a.apiKey)

	conn, _, err := dialer.Dial(url, header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to AssemblyAI: %w", err)
	}

	a.log.WithFields(logrus.Fields{
		"sample_rate": sampleRate,
	}).Info("Connected to AssemblyAI streaming API")

	s := &session{
		conn:        conn,
		transcripts: make(chan string, 8),
		log:         a.log,
	}
	go s.readLoop()

	return s, nil
}

type session struct {
	conn        *websocket.Conn
	writeMu     sync.Mutex
	transcripts chan string
	closeOnce   sync.Once
	log         *logrus.Logger
}

type realtimeMessage struct {
	MessageType string `json:"message_type"`
	Text        string `json:"text"`
}

func (s *session) readLoop() {
	defer close(s.transcripts)

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.WithFields(logrus.Fields{
					"error": err.Error(),
				}).Error("AssemblyAI connection error")
			}
			return
		}

		var msg realtimeMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			s.log.WithFields(logrus.Fields{
				"error": err.Error(),
			}).Warn("Unparseable message from AssemblyAI")
			continue
		}

		switch msg.MessageType {
		case "FinalTranscript":
			if msg.Text != "" {
				s.transcripts <- msg.Text
			}
		case "SessionTerminated":
			s.log.Info("AssemblyAI session terminated")
			return
		}
	}
}

func (s *session) SendAudio(frame []byte) error {
	if len(frame) == 0 {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.BinaryMessage, frame)
}

func (s *session) Transcripts() <-chan string {
	return s.transcripts
}

// Terminate asks the backend to finalize any pending transcript and close
// the stream. Transcripts stays open until SessionTerminated arrives.
func (s *session) Terminate() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
		return err
	}
	payload, err := json.Marshal(map[string]bool{"terminate_session": true})
	if err != nil {
		return err
	}
	err = s.conn.WriteMessage(websocket.TextMessage, payload)
	if err != nil && errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return err
}

func (s *session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.conn.Close()
	})
	return err
}
