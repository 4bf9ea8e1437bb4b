package detector

import (
	"FaceGate/internal/entity"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

type RemoteConfig struct {
	URL              string        `yaml:"url"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	PingInterval     time.Duration `yaml:"ping_interval"`
}

func DefaultRemoteConfig() RemoteConfig {
	return RemoteConfig{
		URL:              "ws://localhost:8000/api/v1/face/ws",
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		PingInterval:     30 * time.Second,
	}
}

type remoteRequest struct {
	RequestID string `json:"request_id"`
	Rotation  int    `json:"rotation"`
	Image     string `json:"image"`
}

type remoteResponse struct {
	RequestID string        `json:"request_id"`
	Faces     []entity.Face `json:"faces"`
	Error     string        `json:"error,omitempty"`
}

// remoteEngine talks to an external face detection service over a websocket.
// Every session owns one connection so responses never interleave across sessions.
type remoteEngine struct {
	cfg   RemoteConfig
	log   *logrus.Logger
	reqMu sync.Mutex

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
	done   chan struct{}
}

func NewRemoteFactory(cfg RemoteConfig, log *logrus.Logger) Factory {
	return func() (Engine, error) {
		return DialRemote(cfg, log)
	}
}

func DialRemote(cfg RemoteConfig, log *logrus.Logger) (Engine, error) {
	if cfg.URL == "" {
		return nil, errors.New("URL for face detection service not configured")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	e := &remoteEngine{
		cfg:  cfg,
		log:  log,
		done: make(chan struct{}),
	}

	if _, err := e.reconnect(); err != nil {
		return nil, err
	}

	return e, nil
}

func (e *remoteEngine) reconnect() (*websocket.Conn, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEngineClosed
	}
	if e.conn != nil {
		e.conn.Close()
		e.conn = nil
	}

	e.log.WithField("url", e.cfg.URL).Debug("Connecting to face detection service")

	dialer := websocket.Dialer{HandshakeTimeout: e.cfg.HandshakeTimeout}
	conn, _, err := dialer.Dial(e.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", e.cfg.URL, err)
	}

	conn.SetPingHandler(func(appData string) error {
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(e.cfg.WriteTimeout))
		if err != nil {
			e.log.Warnf("Error sending pong: %v", err)
		}
		return nil
	})

	e.conn = conn
	if e.cfg.PingInterval > 0 {
		go e.keepAlive(conn)
	}

	return conn, nil
}

func (e *remoteEngine) current() *websocket.Conn {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conn
}

func (e *remoteEngine) drop(conn *websocket.Conn) {
	e.mu.Lock()
	if e.conn == conn {
		e.conn = nil
	}
	e.mu.Unlock()
	conn.Close()
}

func (e *remoteEngine) keepAlive(conn *websocket.Conn) {
	ticker := time.NewTicker(e.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.done:
			return
		case <-ticker.C:
		}

		if e.current() != conn {
			return
		}

		err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(e.cfg.WriteTimeout))
		if err != nil {
			e.log.Warnf("Ping failed for face detection service, marking connection as dead: %v", err)
			e.drop(conn)
			return
		}
	}
}

func (e *remoteEngine) Process(ctx context.Context, in Input) ([]entity.Face, error) {
	e.reqMu.Lock()
	defer e.reqMu.Unlock()

	conn := e.current()
	if conn == nil {
		var err error
		if conn, err = e.reconnect(); err != nil {
			return nil, fmt.Errorf("cannot connect to face detection service: %w", err)
		}
	}

	req := remoteRequest{
		RequestID: uuid.NewString(),
		Rotation:  in.Rotation,
		Image:     base64.StdEncoding.EncodeToString(in.Encoded),
	}
	payload, err := jsoniter.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("error marshaling face request: %w", err)
	}

	writeDeadline := time.Now().Add(e.cfg.WriteTimeout)
	if deadline, ok := ctx.Deadline(); ok && deadline.Before(writeDeadline) {
		writeDeadline = deadline
	}
	conn.SetWriteDeadline(writeDeadline)

	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		e.drop(conn)
		return nil, fmt.Errorf("error sending face frame: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
	} else {
		conn.SetReadDeadline(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			e.drop(conn)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("error reading face message: %w", ctxErr)
			}
			return nil, fmt.Errorf("error reading face message: %w", err)
		}

		var resp remoteResponse
		if err := jsoniter.Unmarshal(message, &resp); err != nil {
			return nil, fmt.Errorf("error unmarshaling face response: %w", err)
		}

		// answers to requests that already timed out are skipped
		if resp.RequestID != "" && resp.RequestID != req.RequestID {
			e.log.WithField("request_id", resp.RequestID).Debug("Discarding stale face response")
			continue
		}

		if resp.Error != "" {
			return nil, fmt.Errorf("face detection service error: %s", resp.Error)
		}

		conn.SetReadDeadline(time.Time{})
		conn.SetWriteDeadline(time.Time{})
		return resp.Faces, nil
	}
}

func (e *remoteEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	close(e.done)

	if e.conn != nil {
		err := e.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(e.cfg.WriteTimeout),
		)
		if err != nil {
			e.log.Debugf("Error sending close frame: %v", err)
		}
		closeErr := e.conn.Close()
		e.conn = nil
		return closeErr
	}

	return nil
}
